package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/apperr"
	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/ports"
)

// CaseService implements the eDiscovery case workflow supplemented from
// original_source/core/cases.py: folders of message ids with per-item
// tags, review status, and assignee, feeding the export pipeline.
type CaseService struct {
	store ports.CaseStore
}

// NewCaseService wires the case registry's store dependency.
func NewCaseService(store ports.CaseStore) *CaseService {
	return &CaseService{store: store}
}

// CreateCase opens a new case folder, mirroring cases.py's create_case.
func (s *CaseService) CreateCase(ctx context.Context, orgID int64, name, description string) (domain.Case, error) {
	c := domain.Case{
		PublicID:    uuid.New(),
		OrgID:       orgID,
		Name:        name,
		Description: description,
		Status:      "PENDING",
	}
	stored, err := s.store.CreateCase(ctx, c)
	if err != nil {
		return domain.Case{}, fmt.Errorf("create case: %w", err)
	}
	return stored, nil
}

// ListCases returns every case for an org, matching cases.py's list_cases
// ordering (newest first, left to the store's query).
func (s *CaseService) ListCases(ctx context.Context, orgID int64) ([]domain.Case, error) {
	return s.store.ListCases(ctx, orgID)
}

// GetCase fetches one case with its item set, mirroring get_case.
func (s *CaseService) GetCase(ctx context.Context, orgID int64, publicID uuid.UUID) (domain.Case, []domain.CaseItem, error) {
	c, err := s.store.GetCase(ctx, orgID, publicID)
	if err != nil {
		return domain.Case{}, nil, apperr.New(apperr.KindNotFound, "case "+publicID.String(), err)
	}
	items, err := s.store.ListCaseItems(ctx, c.ID)
	if err != nil {
		return c, nil, fmt.Errorf("list case items: %w", err)
	}
	return c, items, nil
}

// AddItems attaches message ids to a case, deduplicated by the store's
// ON CONFLICT DO NOTHING equivalent (add_items_to_case).
func (s *CaseService) AddItems(ctx context.Context, orgID int64, publicID uuid.UUID, messageIDs []uuid.UUID) (int, error) {
	c, err := s.store.GetCase(ctx, orgID, publicID)
	if err != nil {
		return 0, apperr.New(apperr.KindNotFound, "case "+publicID.String(), err)
	}
	if err := s.store.AddCaseItems(ctx, c.ID, messageIDs); err != nil {
		return 0, fmt.Errorf("add case items: %w", err)
	}
	return len(messageIDs), nil
}

// Tag sets an item's tag list (update_item_tags).
func (s *CaseService) Tag(ctx context.Context, orgID int64, publicID uuid.UUID, messageID uuid.UUID, tags []string) error {
	return s.updateItem(ctx, orgID, publicID, messageID, func(item *domain.CaseItem) {
		item.Tags = tags
	})
}

// Assign sets an item's assignee, the Go equivalent of cases.py's
// batch_assign_items collapsed to one item at a time (SPEC_FULL's
// case model has no separate users table to batch-verify against).
func (s *CaseService) Assign(ctx context.Context, orgID int64, publicID uuid.UUID, messageID uuid.UUID, assignee string) error {
	return s.updateItem(ctx, orgID, publicID, messageID, func(item *domain.CaseItem) {
		item.Assignee = assignee
	})
}

// SetReviewStatus transitions an item's review status
// (update_item_status: PENDING/IN_REVIEW/COMPLETED).
func (s *CaseService) SetReviewStatus(ctx context.Context, orgID int64, publicID uuid.UUID, messageID uuid.UUID, status string) error {
	return s.updateItem(ctx, orgID, publicID, messageID, func(item *domain.CaseItem) {
		item.ReviewStatus = status
	})
}

func (s *CaseService) updateItem(ctx context.Context, orgID int64, publicID, messageID uuid.UUID, mutate func(*domain.CaseItem)) error {
	c, err := s.store.GetCase(ctx, orgID, publicID)
	if err != nil {
		return apperr.New(apperr.KindNotFound, "case "+publicID.String(), err)
	}
	items, err := s.store.ListCaseItems(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("list case items: %w", err)
	}
	for _, item := range items {
		if item.MessageID == messageID {
			mutate(&item)
			return s.store.UpdateCaseItem(ctx, item)
		}
	}
	return apperr.New(apperr.KindNotFound, "case item "+messageID.String(), nil)
}

// RemoveItem detaches a message from a case (remove_item_from_case).
func (s *CaseService) RemoveItem(ctx context.Context, orgID int64, publicID uuid.UUID, messageID uuid.UUID) error {
	c, err := s.store.GetCase(ctx, orgID, publicID)
	if err != nil {
		return apperr.New(apperr.KindNotFound, "case "+publicID.String(), err)
	}
	return s.store.RemoveCaseItem(ctx, c.ID, messageID)
}

// UpdateStatus transitions the case itself, not an item.
func (s *CaseService) UpdateStatus(ctx context.Context, orgID int64, publicID uuid.UUID, status string) error {
	c, err := s.store.GetCase(ctx, orgID, publicID)
	if err != nil {
		return apperr.New(apperr.KindNotFound, "case "+publicID.String(), err)
	}
	return s.store.UpdateCaseStatus(ctx, c.ID, status)
}

// ItemMessageIDs extracts the message id list a case's items reference,
// the input export_case hands to create_export_job.
func ItemMessageIDs(items []domain.CaseItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MessageID)
	}
	return ids
}
