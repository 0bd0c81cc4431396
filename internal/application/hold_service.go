package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/apperr"
	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/ports"
)

// holdCandidateCap bounds the criteria-based auto-populate query (§4.7).
const holdCandidateCap = 10000

// HoldService implements the legal hold registry (C9): create (with
// optional criteria auto-populate), apply, release, and the protection
// predicate shared with retention and search annotation.
type HoldService struct {
	store ports.HoldStore
	index ports.SearchIndex
}

// NewHoldService wires the hold registry's store and index dependencies.
func NewHoldService(store ports.HoldStore, index ports.SearchIndex) *HoldService {
	return &HoldService{store: store, index: index}
}

// CreateHold assigns a public UUID, persists the hold, and — if
// criteria is non-empty — auto-populates its item set from a capped
// index query.
func (s *HoldService) CreateHold(ctx context.Context, orgID int64, name, reason string, criteria domain.FilterCriteria) (domain.LegalHold, error) {
	hold := domain.LegalHold{
		PublicID: uuid.New(),
		OrgID:    orgID,
		Name:     name,
		Reason:   reason,
		Criteria: criteria,
		Active:   true,
	}

	stored, err := s.store.CreateHold(ctx, hold)
	if err != nil {
		return domain.LegalHold{}, fmt.Errorf("create hold: %w", err)
	}

	if !criteria.Empty() {
		result, err := s.index.Search(ctx, criteriaFilter(orgID, criteria), ports.SearchOptions{Limit: holdCandidateCap})
		if err != nil {
			return stored, fmt.Errorf("auto-populate query: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(result.Hits))
		for _, hit := range result.Hits {
			ids = append(ids, hit.ID)
		}
		if len(ids) > 0 {
			if err := s.store.AddHoldItems(ctx, stored.ID, ids); err != nil {
				return stored, fmt.Errorf("auto-populate insert: %w", err)
			}
		}
	}

	return stored, nil
}

func criteriaFilter(orgID int64, c domain.FilterCriteria) ports.SearchFilter {
	f := ports.SearchFilter{OrgID: orgID}
	if c.From != "" {
		f.ExactFrom = c.From
	}
	if c.To != "" {
		f.ExactTo = c.To
	}
	if c.Q != "" {
		f.Query = c.Q
	}
	return f
}

// Apply idempotently adds message ids to a hold's explicit item set.
func (s *HoldService) Apply(ctx context.Context, orgID int64, holdID uuid.UUID, messageIDs []uuid.UUID) error {
	hold, err := s.store.GetHold(ctx, orgID, holdID)
	if err != nil {
		return apperr.New(apperr.KindNotFound, "hold "+holdID.String(), err)
	}
	return s.store.AddHoldItems(ctx, hold.ID, messageIDs)
}

// Release sets a hold inactive; items remain recorded for history.
func (s *HoldService) Release(ctx context.Context, orgID int64, holdID uuid.UUID) error {
	return s.store.ReleaseHold(ctx, orgID, holdID)
}

// GetHold enriches a hold's items by re-querying the index for subject/
// from/date.
func (s *HoldService) GetHold(ctx context.Context, orgID int64, holdID uuid.UUID) (domain.LegalHold, []domain.Message, error) {
	hold, err := s.store.GetHold(ctx, orgID, holdID)
	if err != nil {
		return domain.LegalHold{}, nil, apperr.New(apperr.KindNotFound, "hold "+holdID.String(), err)
	}

	ids, err := s.store.ListHoldItems(ctx, hold.ID)
	if err != nil {
		return hold, nil, fmt.Errorf("list hold items: %w", err)
	}

	items := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.index.Get(ctx, id.String())
		if err != nil {
			continue
		}
		items = append(items, msg)
	}
	return hold, items, nil
}

// ProtectionState is the snapshot the retention worker and search
// annotation check a candidate message against, loaded per retention
// candidate and per search request.
type ProtectionState struct {
	ExplicitlyHeld map[uuid.UUID]bool
	ActiveHolds    []domain.LegalHold
}

// LoadProtectionState loads every organization's active holds and
// explicitly-held message ids in one pass, for reuse across many
// protection checks.
func (s *HoldService) LoadProtectionState(ctx context.Context) (ProtectionState, error) {
	held, err := s.store.ListAllHeldMessageIDs(ctx)
	if err != nil {
		return ProtectionState{}, fmt.Errorf("list held message ids: %w", err)
	}
	holds, err := s.store.ListAllActiveHolds(ctx)
	if err != nil {
		return ProtectionState{}, fmt.Errorf("list active holds: %w", err)
	}
	return ProtectionState{ExplicitlyHeld: held, ActiveHolds: holds}, nil
}

// IsProtected implements the protection predicate (§4.7): a message is
// protected if it is explicitly held, or any active hold's criteria
// matches by sender, recipient, or subject/from/to substring.
func (p ProtectionState) IsProtected(m domain.Message) bool {
	if p.ExplicitlyHeld[m.ID] {
		return true
	}

	for _, h := range p.ActiveHolds {
		if h.OrgID != 0 && !m.OwnedBy(h.OrgID) {
			continue
		}
		c := h.Criteria
		if c.From != "" && strings.EqualFold(c.From, m.SenderEmail) {
			return true
		}
		if c.To != "" && containsFold(m.RecipientEmails, c.To) {
			return true
		}
		if c.Q != "" && containsSubstringFold(c.Q, m.Subject, m.From, m.To) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func containsSubstringFold(needle string, haystacks ...string) bool {
	lower := strings.ToLower(needle)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), lower) {
			return true
		}
	}
	return false
}
