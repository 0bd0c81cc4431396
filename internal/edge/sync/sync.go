// Package sync drives the edge agent's two-phase upload loop against
// Core: each pass uploads pending CAS blobs before pending messages. A
// CAS blob whose upload exhausts its retries stays PENDING while the
// message phase still runs, so a message can reach Core before a blob
// it references.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/edge/buffer"
)

// CoreClient is the subset of the Agent<->Core HTTP surface (§6) the
// sync loop needs. Implemented by internal/adapters/coreclient.
type CoreClient interface {
	CASExists(ctx context.Context, hash string) (bool, error)
	UploadCAS(ctx context.Context, hash string, data []byte) error
	SyncMessage(ctx context.Context, id, key string, metadata, blob []byte) error
}

// Syncer periodically drains the local buffer to Core.
type Syncer struct {
	buf    *buffer.Buffer
	client CoreClient
	log    *zap.Logger
	batch  int
}

// NewSyncer wires a Syncer over buf and client. batch caps rows pulled
// per phase per tick.
func NewSyncer(buf *buffer.Buffer, client CoreClient, log *zap.Logger, batch int) *Syncer {
	if batch <= 0 {
		batch = 50
	}
	return &Syncer{buf: buf, client: client, log: log, batch: batch}
}

// Run ticks every interval until ctx is cancelled, running one sync pass
// per tick. Errors within a pass are logged and retried next tick; Run
// returns nil once ctx is cancelled.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Once(ctx); err != nil {
			s.log.Warn("sync pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Once runs a single two-phase sync pass: all pending CAS blobs, then
// all pending messages. Each item is retried with exponential backoff
// independently; a failing item does not block siblings.
func (s *Syncer) Once(ctx context.Context) error {
	if err := s.syncCAS(ctx); err != nil {
		return fmt.Errorf("cas phase: %w", err)
	}
	if err := s.syncMessages(ctx); err != nil {
		return fmt.Errorf("message phase: %w", err)
	}
	return nil
}

func (s *Syncer) syncCAS(ctx context.Context) error {
	pending, err := s.buf.GetPendingCAS(ctx, s.batch)
	if err != nil {
		return err
	}

	for _, blob := range pending {
		err := s.withBackoff(ctx, func() error {
			exists, err := s.client.CASExists(ctx, blob.Hash)
			if err != nil {
				return err
			}
			if !exists {
				if err := s.client.UploadCAS(ctx, blob.Hash, blob.Data); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.log.Warn("cas upload exhausted retries", zap.String("hash", blob.Hash), zap.Error(err))
			continue
		}
		if err := s.buf.MarkCASSynced(ctx, blob.Hash); err != nil {
			return fmt.Errorf("mark cas synced %s: %w", blob.Hash, err)
		}
	}
	return nil
}

func (s *Syncer) syncMessages(ctx context.Context) error {
	pending, err := s.buf.GetPendingMessages(ctx, s.batch)
	if err != nil {
		return err
	}

	for _, msg := range pending {
		err := s.withBackoff(ctx, func() error {
			return s.client.SyncMessage(ctx, msg.ID, msg.Key, msg.Metadata, msg.Blob)
		})
		if err != nil {
			s.log.Warn("message sync exhausted retries", zap.String("key", msg.Key), zap.Error(err))
			continue
		}
		if err := s.buf.MarkMessageSynced(ctx, msg.ID); err != nil {
			return fmt.Errorf("mark message synced %s: %w", msg.ID, err)
		}
	}
	return nil
}

// withBackoff retries op with exponential backoff, at most five retries
// after the first attempt, so one unreachable Core instance doesn't stall the tick
// indefinitely; the row simply stays PENDING for the next pass.
func (s *Syncer) withBackoff(ctx context.Context, op backoff.Operation) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.Retry(op, bo)
}
