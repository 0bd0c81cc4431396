package application

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/apperr"
	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/ports"
)

// fakeBlobStore is an in-memory ports.BlobStore, local to this test
// file per SPEC_FULL.md's test-tooling convention of faking ports
// instead of standing up real backends.
type fakeBlobStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{data: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.data[key] = cp
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, apperr.NotFound
	}
	return v, nil
}

func (f *fakeBlobStore) Head(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// fakeSearchIndex is an in-memory ports.SearchIndex with just enough
// filter support to exercise ingress, retrieval, hold, and retention
// behavior without a real Meilisearch instance.
type fakeSearchIndex struct {
	mu   sync.Mutex
	docs map[string]domain.Message
}

func newFakeSearchIndex() *fakeSearchIndex {
	return &fakeSearchIndex{docs: make(map[string]domain.Message)}
}

func (f *fakeSearchIndex) Upsert(ctx context.Context, msg domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[msg.ID.String()] = msg
	return nil
}

func (f *fakeSearchIndex) Get(ctx context.Context, id string) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if !ok {
		return domain.Message{}, apperr.NotFound
	}
	return m, nil
}

func (f *fakeSearchIndex) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeSearchIndex) Search(ctx context.Context, filter ports.SearchFilter, opts ports.SearchOptions) (ports.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var hits []domain.Message
	for _, m := range f.docs {
		if filter.OrgID != 0 && !m.OwnedBy(filter.OrgID) {
			continue
		}
		if filter.ExactDomain != "" {
			found := false
			for _, d := range m.Domains {
				if d == filter.ExactDomain {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if len(filter.Domains) > 0 && !anyStringMatch(m.Domains, filter.Domains) {
			continue
		}
		if filter.SenderDomain != "" && !strings.EqualFold(filter.SenderDomain, m.SenderDomain) {
			continue
		}
		if len(filter.RecipientDomains) > 0 && !anyStringMatch(m.RecipientDomains, filter.RecipientDomains) {
			continue
		}
		if filter.ExactFrom != "" && !strings.EqualFold(filter.ExactFrom, m.From) {
			continue
		}
		if filter.ExactTo != "" && !strings.EqualFold(filter.ExactTo, m.To) {
			continue
		}
		if filter.TimestampTo != 0 && m.DateTimestamp > filter.TimestampTo {
			continue
		}
		if filter.TimestampFrom != 0 && m.DateTimestamp < filter.TimestampFrom {
			continue
		}
		if filter.HasAttachments != nil && m.HasAttachments != *filter.HasAttachments {
			continue
		}
		if filter.IsSpam != nil && m.IsSpam != *filter.IsSpam {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			haystack := strings.ToLower(m.Subject + " " + m.MessageID + " " + m.InReplyTo + " " + strings.Join(m.References, " ") + " " + m.From + " " + m.To)
			if !strings.Contains(haystack, q) {
				continue
			}
		}
		hits = append(hits, m)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].ID.String() < hits[j].ID.String() })

	total := len(hits)
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return ports.SearchResult{Hits: hits, Total: total}, nil
}

func (f *fakeSearchIndex) Stats(ctx context.Context, orgID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.docs {
		if m.OwnedBy(orgID) {
			count++
		}
	}
	return count, nil
}

// anyStringMatch reports whether haystack and needles share any element,
// mirroring the OR-of-clauses semantics buildFilter composes for domain
// lists.
func anyStringMatch(haystack, needles []string) bool {
	for _, n := range needles {
		for _, h := range haystack {
			if strings.EqualFold(h, n) {
				return true
			}
		}
	}
	return false
}

// fakeOrgLister is an in-memory tenant.OrgLister.
type fakeOrgLister struct {
	orgs []domain.Organization
}

func (f *fakeOrgLister) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return f.orgs, nil
}

// fakeRelStore is an in-memory backing store covering AuditStore,
// HoldStore, CaseStore, and RetentionStore, the way a single Postgres
// adapter backs ports.RelationalStore in production.
type fakeRelStore struct {
	mu sync.Mutex

	auditByOrg map[int64][]domain.AuditEntry
	nextAudit  int64

	holds      map[int64]domain.LegalHold
	holdItems  map[int64][]uuid.UUID
	nextHoldID int64

	cases      map[int64]domain.Case
	caseItems  map[int64][]domain.CaseItem
	nextCaseID int64

	policies []domain.RetentionPolicy
}

func newFakeRelStore() *fakeRelStore {
	return &fakeRelStore{
		auditByOrg: make(map[int64][]domain.AuditEntry),
		holds:      make(map[int64]domain.LegalHold),
		holdItems:  make(map[int64][]uuid.UUID),
		cases:      make(map[int64]domain.Case),
		caseItems:  make(map[int64][]domain.CaseItem),
	}
}

// --- AuditStore ---

func (f *fakeRelStore) LastHash(ctx context.Context, orgID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.auditByOrg[orgID]
	if len(entries) == 0 {
		return domain.RootHash, nil
	}
	return entries[len(entries)-1].CurrentHash, nil
}

func (f *fakeRelStore) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextAudit++
	entry.ID = f.nextAudit
	f.auditByOrg[entry.OrgID] = append(f.auditByOrg[entry.OrgID], entry)
	return entry, nil
}

func (f *fakeRelStore) StreamEntries(ctx context.Context, orgID int64) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditEntry, len(f.auditByOrg[orgID]))
	copy(out, f.auditByOrg[orgID])
	return out, nil
}

func (f *fakeRelStore) ListOrgIDsWithEntries(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for orgID := range f.auditByOrg {
		ids = append(ids, orgID)
	}
	return ids, nil
}

// --- HoldStore ---

func (f *fakeRelStore) CreateHold(ctx context.Context, hold domain.LegalHold) (domain.LegalHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextHoldID++
	hold.ID = f.nextHoldID
	hold.Active = true
	f.holds[hold.ID] = hold
	return hold, nil
}

func (f *fakeRelStore) GetHold(ctx context.Context, orgID int64, publicID uuid.UUID) (domain.LegalHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.holds {
		if h.OrgID == orgID && h.PublicID == publicID {
			return h, nil
		}
	}
	return domain.LegalHold{}, apperr.NotFound
}

func (f *fakeRelStore) ListActiveHolds(ctx context.Context, orgID int64) ([]domain.LegalHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LegalHold
	for _, h := range f.holds {
		if h.OrgID == orgID && h.Active {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeRelStore) ListAllActiveHolds(ctx context.Context) ([]domain.LegalHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LegalHold
	for _, h := range f.holds {
		if h.Active {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeRelStore) ReleaseHold(ctx context.Context, orgID int64, publicID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, h := range f.holds {
		if h.OrgID == orgID && h.PublicID == publicID {
			h.Active = false
			f.holds[id] = h
			return nil
		}
	}
	return apperr.NotFound
}

func (f *fakeRelStore) AddHoldItems(ctx context.Context, holdID int64, messageIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := make(map[uuid.UUID]bool)
	for _, id := range f.holdItems[holdID] {
		existing[id] = true
	}
	for _, id := range messageIDs {
		if !existing[id] {
			f.holdItems[holdID] = append(f.holdItems[holdID], id)
			existing[id] = true
		}
	}
	return nil
}

func (f *fakeRelStore) ListHoldItems(ctx context.Context, holdID int64) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uuid.UUID, len(f.holdItems[holdID]))
	copy(out, f.holdItems[holdID])
	return out, nil
}

func (f *fakeRelStore) ListAllHeldMessageIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]bool)
	for _, ids := range f.holdItems {
		for _, id := range ids {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeRelStore) IsExplicitlyHeld(ctx context.Context, orgID int64, messageID uuid.UUID) (bool, error) {
	held, err := f.ListAllHeldMessageIDs(ctx)
	if err != nil {
		return false, err
	}
	return held[messageID], nil
}

// --- CaseStore ---

func (f *fakeRelStore) CreateCase(ctx context.Context, c domain.Case) (domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCaseID++
	c.ID = f.nextCaseID
	f.cases[c.ID] = c
	return c, nil
}

func (f *fakeRelStore) GetCase(ctx context.Context, orgID int64, publicID uuid.UUID) (domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cases {
		if c.OrgID == orgID && c.PublicID == publicID {
			return c, nil
		}
	}
	return domain.Case{}, apperr.NotFound
}

func (f *fakeRelStore) ListCases(ctx context.Context, orgID int64) ([]domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Case
	for _, c := range f.cases {
		if c.OrgID == orgID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRelStore) AddCaseItems(ctx context.Context, caseID int64, messageIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := make(map[uuid.UUID]bool)
	for _, item := range f.caseItems[caseID] {
		existing[item.MessageID] = true
	}
	for _, id := range messageIDs {
		if !existing[id] {
			f.caseItems[caseID] = append(f.caseItems[caseID], domain.CaseItem{CaseID: caseID, MessageID: id, ReviewStatus: "PENDING"})
			existing[id] = true
		}
	}
	return nil
}

func (f *fakeRelStore) ListCaseItems(ctx context.Context, caseID int64) ([]domain.CaseItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CaseItem, len(f.caseItems[caseID]))
	copy(out, f.caseItems[caseID])
	return out, nil
}

func (f *fakeRelStore) UpdateCaseItem(ctx context.Context, item domain.CaseItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.caseItems[item.CaseID]
	for i, existing := range items {
		if existing.MessageID == item.MessageID {
			items[i] = item
			return nil
		}
	}
	return apperr.NotFound
}

func (f *fakeRelStore) RemoveCaseItem(ctx context.Context, caseID int64, messageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.caseItems[caseID]
	for i, item := range items {
		if item.MessageID == messageID {
			f.caseItems[caseID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound
}

func (f *fakeRelStore) UpdateCaseStatus(ctx context.Context, caseID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[caseID]
	if !ok {
		return apperr.NotFound
	}
	c.Status = status
	f.cases[caseID] = c
	return nil
}

// --- RetentionStore ---

func (f *fakeRelStore) ListRetentionPolicies(ctx context.Context) ([]domain.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.RetentionPolicy, len(f.policies))
	copy(out, f.policies)
	return out, nil
}

func (f *fakeRelStore) CreateRetentionPolicy(ctx context.Context, p domain.RetentionPolicy) (domain.RetentionPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = int64(len(f.policies) + 1)
	f.policies = append(f.policies, p)
	return p, nil
}
