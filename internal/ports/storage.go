package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/openarchive/archive/internal/domain"
)

// RelationalStore aggregates every relational-store operation the
// application layer needs, the way the teacher's ports.Storage
// aggregates tenant/user/email/fraud-analysis operations behind one
// interface backed by a single Postgres adapter.
type RelationalStore interface {
	OrganizationStore
	AuditStore
	HoldStore
	CaseStore
	RetentionStore

	Close() error
}

// OrganizationStore manages tenants.
type OrganizationStore interface {
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
	GetOrganization(ctx context.Context, id int64) (domain.Organization, error)
	CreateOrganization(ctx context.Context, org domain.Organization) (domain.Organization, error)
}

// AuditStore appends to and reads a per-tenant audit hash chain.
type AuditStore interface {
	// LastHash returns the current_hash of the most recent entry for
	// orgID, or domain.RootHash if the chain is empty.
	LastHash(ctx context.Context, orgID int64) (string, error)
	// Append inserts entry, which must already carry PreviousHash and
	// CurrentHash computed under the caller's serialization lock.
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	// StreamEntries returns every entry for orgID in ascending id order.
	StreamEntries(ctx context.Context, orgID int64) ([]domain.AuditEntry, error)
	// ListOrgIDsWithEntries returns every org id that has at least one
	// audit entry, for the scheduled verifier to iterate.
	ListOrgIDsWithEntries(ctx context.Context) ([]int64, error)
}

// HoldStore persists legal holds and their item sets.
type HoldStore interface {
	CreateHold(ctx context.Context, hold domain.LegalHold) (domain.LegalHold, error)
	GetHold(ctx context.Context, orgID int64, publicID uuid.UUID) (domain.LegalHold, error)
	ListActiveHolds(ctx context.Context, orgID int64) ([]domain.LegalHold, error)
	ListAllActiveHolds(ctx context.Context) ([]domain.LegalHold, error)
	ReleaseHold(ctx context.Context, orgID int64, publicID uuid.UUID) error
	AddHoldItems(ctx context.Context, holdID int64, messageIDs []uuid.UUID) error
	ListHoldItems(ctx context.Context, holdID int64) ([]uuid.UUID, error)
	// ListAllHeldMessageIDs returns the union of explicit hold item ids
	// across every tenant, read by HoldService.LoadProtectionState for
	// the retention worker's per-candidate protection check (§4.9 step 2).
	ListAllHeldMessageIDs(ctx context.Context) (map[uuid.UUID]bool, error)
	IsExplicitlyHeld(ctx context.Context, orgID int64, messageID uuid.UUID) (bool, error)
}

// CaseStore persists eDiscovery cases and their item sets.
type CaseStore interface {
	CreateCase(ctx context.Context, c domain.Case) (domain.Case, error)
	GetCase(ctx context.Context, orgID int64, publicID uuid.UUID) (domain.Case, error)
	ListCases(ctx context.Context, orgID int64) ([]domain.Case, error)
	AddCaseItems(ctx context.Context, caseID int64, messageIDs []uuid.UUID) error
	ListCaseItems(ctx context.Context, caseID int64) ([]domain.CaseItem, error)
	UpdateCaseItem(ctx context.Context, item domain.CaseItem) error
	RemoveCaseItem(ctx context.Context, caseID int64, messageID uuid.UUID) error
	UpdateCaseStatus(ctx context.Context, caseID int64, status string) error
}

// RetentionStore persists retention policies.
type RetentionStore interface {
	ListRetentionPolicies(ctx context.Context) ([]domain.RetentionPolicy, error)
	CreateRetentionPolicy(ctx context.Context, p domain.RetentionPolicy) (domain.RetentionPolicy, error)
}
