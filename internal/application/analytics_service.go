package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openarchive/archive/internal/ports"
)

// OrgAnalytics is the per-org summary computed by
// original_source/core/analytics.py's get_org_analytics: message
// volume, hold activity, and a storage estimate.
type OrgAnalytics struct {
	TotalMessages      int     `json:"total_messages"`
	ActiveHolds        int     `json:"active_holds"`
	HeldItems          int     `json:"held_items"`
	StorageVolumeBytes int64   `json:"storage_volume_bytes"`
	HoldRatio          float64 `json:"hold_ratio"`
}

// averageMessageBytes is analytics.py's "50KB average estimate" used in
// lieu of a real per-message size aggregation Meilisearch doesn't do.
const averageMessageBytes = 50_000

// AnalyticsService composes already-specified primitives (search stats,
// hold counts) into the org summary; it owns no storage of its own.
type AnalyticsService struct {
	index ports.SearchIndex
	holds ports.HoldStore
}

// NewAnalyticsService wires the index and hold-store dependencies.
func NewAnalyticsService(index ports.SearchIndex, holds ports.HoldStore) *AnalyticsService {
	return &AnalyticsService{index: index, holds: holds}
}

// Summary computes one org's analytics snapshot.
func (s *AnalyticsService) Summary(ctx context.Context, orgID int64) (OrgAnalytics, error) {
	total, err := s.index.Stats(ctx, orgID)
	if err != nil {
		return OrgAnalytics{}, fmt.Errorf("index stats: %w", err)
	}

	activeHolds, err := s.holds.ListActiveHolds(ctx, orgID)
	if err != nil {
		return OrgAnalytics{}, fmt.Errorf("list active holds: %w", err)
	}

	held := make(map[uuid.UUID]bool)
	for _, h := range activeHolds {
		ids, err := s.holds.ListHoldItems(ctx, h.ID)
		if err != nil {
			return OrgAnalytics{}, fmt.Errorf("list hold items: %w", err)
		}
		for _, id := range ids {
			held[id] = true
		}
	}

	var ratio float64
	if total > 0 {
		ratio = float64(len(held)) / float64(total)
	}

	return OrgAnalytics{
		TotalMessages:      total,
		ActiveHolds:        len(activeHolds),
		HeldItems:          len(held),
		StorageVolumeBytes: int64(total) * averageMessageBytes,
		HoldRatio:          ratio,
	}, nil
}
