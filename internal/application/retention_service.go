package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/ports"
)

// retentionCandidateCap bounds each domain's per-pass query (§4.9 step 3).
const retentionCandidateCap = 1000

// RetentionService implements the 24h disposal sweep (C10): candidate
// enumeration per policy per domain, with a read-modify-delete
// protection re-check at the moment of deletion (§5).
type RetentionService struct {
	relStore ports.RetentionStore
	index    ports.SearchIndex
	blobs    ports.BlobStore
	holds    *HoldService
	log      *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRetentionService wires the retention worker's dependencies.
func NewRetentionService(relStore ports.RetentionStore, index ports.SearchIndex, blobs ports.BlobStore, holds *HoldService, log *zap.Logger) *RetentionService {
	return &RetentionService{relStore: relStore, index: index, blobs: blobs, holds: holds, log: log, done: make(chan struct{})}
}

// PurgeReport tallies one sweep's outcome per domain.
type PurgeReport struct {
	PurgedByDomain map[string]int
	TotalPurged    int
	TotalSkipped   int
}

// RunSweep executes one full retention pass across every policy and
// domain (§4.9).
func (s *RetentionService) RunSweep(ctx context.Context) (PurgeReport, error) {
	policies, err := s.relStore.ListRetentionPolicies(ctx)
	if err != nil {
		return PurgeReport{}, fmt.Errorf("list retention policies: %w", err)
	}

	// sweepDomain loads protection state fresh before each candidate's
	// deletion, so a hold created mid-pass still protects a message
	// deleted later in the same pass (§5 read-modify-delete contract).
	report := PurgeReport{PurgedByDomain: make(map[string]int)}

	for _, policy := range policies {
		for _, d := range policy.Domains {
			purged, skipped, err := s.sweepDomain(ctx, policy, d)
			if err != nil {
				s.log.Error("retention sweep failed for domain", zap.String("domain", d), zap.Error(err))
				continue
			}
			report.PurgedByDomain[d] += purged
			report.TotalPurged += purged
			report.TotalSkipped += skipped
		}
	}

	return report, nil
}

func (s *RetentionService) sweepDomain(ctx context.Context, policy domain.RetentionPolicy, domainName string) (purged, skipped int, err error) {
	cutoff := time.Now().AddDate(0, 0, -policy.RetainDays).Unix()

	filter := ports.SearchFilter{
		ExactDomain:   domainName,
		TimestampTo:   cutoff,
		TimestampFrom: 1, // date_timestamp=0 is never eligible (§4.9)
	}
	if policy.OrgID != nil {
		filter.OrgID = *policy.OrgID
	}

	result, err := s.index.Search(ctx, filter, ports.SearchOptions{Limit: retentionCandidateCap})
	if err != nil {
		return 0, 0, fmt.Errorf("search candidates: %w", err)
	}

	for _, candidate := range result.Hits {
		state, err := s.holds.LoadProtectionState(ctx)
		if err != nil {
			s.log.Error("load protection state failed mid-sweep", zap.Error(err))
			continue
		}
		if state.IsProtected(candidate) {
			skipped++
			continue
		}

		if err := s.index.Delete(ctx, candidate.ID.String()); err != nil {
			s.log.Error("delete index doc failed", zap.String("id", candidate.ID.String()), zap.Error(err))
			continue
		}
		if err := s.blobs.Delete(ctx, candidate.ID.String()+".enc"); err != nil {
			s.log.Error("delete blob failed", zap.String("id", candidate.ID.String()), zap.Error(err))
			continue
		}
		purged++
	}

	return purged, skipped, nil
}

// Start launches the 24-hour sweep loop.
func (s *RetentionService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.runLoop(ctx)
}

// Stop signals the sweep loop to exit and waits for it.
func (s *RetentionService) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *RetentionService) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := s.RunSweep(ctx)
			if err != nil {
				s.log.Error("retention sweep failed", zap.Error(err))
				continue
			}
			s.log.Info("retention sweep complete", zap.Int("purged", report.TotalPurged), zap.Int("skipped", report.TotalSkipped))
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
