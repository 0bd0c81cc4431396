package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/domain"
	"github.com/openarchive/archive/internal/domain/crypto"
	"github.com/openarchive/archive/internal/ports"
)

// AuditService implements append (per-tenant serialized) and scheduled
// chain verification (C8).
type AuditService struct {
	store ports.AuditStore
	log   *zap.Logger

	mu         sync.Mutex // guards tenantLock
	tenantLock map[int64]*sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewAuditService wires the audit log's store dependency.
func NewAuditService(store ports.AuditStore, log *zap.Logger) *AuditService {
	return &AuditService{
		store:      store,
		log:        log,
		tenantLock: make(map[int64]*sync.Mutex),
		done:       make(chan struct{}),
	}
}

func (s *AuditService) lockFor(orgID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.tenantLock[orgID]
	if !ok {
		l = &sync.Mutex{}
		s.tenantLock[orgID] = l
	}
	return l
}

// Append serializes the read-last-hash/compute/insert critical section
// per tenant (§5); inserts across tenants proceed in parallel.
func (s *AuditService) Append(ctx context.Context, orgID int64, actor, action string, details map[string]any) (domain.AuditEntry, error) {
	lock := s.lockFor(orgID)
	lock.Lock()
	defer lock.Unlock()

	previous, err := s.store.LastHash(ctx, orgID)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("last hash: %w", err)
	}
	if previous == "" {
		previous = domain.RootHash
	}

	canonicalDetails, err := domain.Canonical(details)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("canonicalize details: %w", err)
	}
	current := crypto.AuditHash(previous, actor, action, canonicalDetails, orgID)

	entry := domain.AuditEntry{
		OrgID:        orgID,
		Actor:        actor,
		Action:       action,
		Details:      details,
		PreviousHash: previous,
		CurrentHash:  current,
	}

	stored, err := s.store.Append(ctx, entry)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("append entry: %w", err)
	}
	return stored, nil
}

// VerifyResult is the outcome of a single chain verification pass.
type VerifyResult struct {
	OrgID       int64
	EntryCount  int
	HeadHash    string
	OK          bool
	FailedID    int64
	FailureKind string // "link mismatch" or "content mismatch"
}

// Verify streams one tenant's chain in id order, checking link
// continuity and content-hash reproducibility. The first failure halts
// verification for that chain (§4.8).
func (s *AuditService) Verify(ctx context.Context, orgID int64) (VerifyResult, error) {
	entries, err := s.store.StreamEntries(ctx, orgID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("stream entries: %w", err)
	}

	result := VerifyResult{OrgID: orgID, OK: true}
	previous := domain.RootHash
	for _, e := range entries {
		if e.PreviousHash != previous {
			result.OK = false
			result.FailedID = e.ID
			result.FailureKind = "link mismatch"
			return result, nil
		}

		canonicalDetails, cerr := domain.Canonical(e.Details)
		if cerr != nil {
			return VerifyResult{}, fmt.Errorf("canonicalize entry %d: %w", e.ID, cerr)
		}
		recomputed := crypto.AuditHash(e.PreviousHash, e.Actor, e.Action, canonicalDetails, e.OrgID)
		if recomputed != e.CurrentHash {
			result.OK = false
			result.FailedID = e.ID
			result.FailureKind = "content mismatch"
			return result, nil
		}

		previous = e.CurrentHash
		result.EntryCount++
		result.HeadHash = e.CurrentHash
	}

	return result, nil
}

// Start launches the scheduled verifier: every 10 minutes, every tenant
// with entries is re-verified (§4.8).
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.runVerifier(ctx)
}

// Stop signals the verifier loop to exit and waits for it.
func (s *AuditService) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *AuditService) runVerifier(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.verifyAll(ctx)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *AuditService) verifyAll(ctx context.Context) {
	orgIDs, err := s.store.ListOrgIDsWithEntries(ctx)
	if err != nil {
		s.log.Error("list orgs with audit entries failed", zap.Error(err))
		return
	}

	for _, orgID := range orgIDs {
		result, err := s.Verify(ctx, orgID)
		if err != nil {
			s.log.Error("audit chain verification errored", zap.Int64("org_id", orgID), zap.Error(err))
			continue
		}
		if !result.OK {
			s.log.Error("audit chain verification FAILED — tamper detected",
				zap.Int64("org_id", orgID), zap.Int64("failed_entry_id", result.FailedID),
				zap.String("failure_kind", result.FailureKind))
			continue
		}
		s.log.Info("audit chain verified",
			zap.Int64("org_id", orgID), zap.Int("entries", result.EntryCount), zap.String("head", result.HeadHash))
	}
}
