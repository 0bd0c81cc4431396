// Package buffer implements the edge agent's durable local store: two
// tables, messages and cas_blobs, each with a PENDING/SYNCED status
// column, backed by modernc.org/sqlite (pure Go, no cgo). Crash-safety
// contract: once Buffer.SaveMessage/SaveCASBlob return, the row is
// durably PENDING.
package buffer

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// PendingMessage is one row of the messages table awaiting sync.
type PendingMessage struct {
	ID       string
	Key      string // per-message symmetric key the blob was encrypted under
	Metadata []byte // JSON-encoded ingest metadata
	Blob     []byte // encrypted MIME bytes
}

// PendingCAS is one row of the cas_blobs table awaiting sync.
type PendingCAS struct {
	Hash string
	Data []byte
}

// Buffer is the edge agent's local embedded relational store.
type Buffer struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite buffer at path.
func Open(path string) (*Buffer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open buffer: %w", err)
	}
	// The pure-Go sqlite driver does not support concurrent writers; a
	// single connection avoids SQLITE_BUSY under the agent's otherwise
	// cooperative single-threaded pipeline.
	db.SetMaxOpenConns(1)

	b := &Buffer{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Buffer) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		metadata BLOB NOT NULL,
		blob BLOB NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING'
	);
	CREATE TABLE IF NOT EXISTS cas_blobs (
		hash TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING'
	);
	CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status);
	CREATE INDEX IF NOT EXISTS idx_cas_blobs_status ON cas_blobs(status);
	`
	_, err := b.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("init buffer schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (b *Buffer) Close() error {
	return b.db.Close()
}

// SaveMessage inserts a PENDING message row. Idempotent on id.
func (b *Buffer) SaveMessage(ctx context.Context, m PendingMessage) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (id, key, metadata, blob, status) VALUES (?, ?, ?, ?, 'PENDING')`,
		m.ID, m.Key, m.Metadata, m.Blob,
	)
	if err != nil {
		return fmt.Errorf("save message %s: %w", m.ID, err)
	}
	return nil
}

// SaveCASBlob inserts a PENDING CAS row if hash is absent.
func (b *Buffer) SaveCASBlob(ctx context.Context, blob PendingCAS) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO cas_blobs (hash, data, status) VALUES (?, ?, 'PENDING')`,
		blob.Hash, blob.Data,
	)
	if err != nil {
		return fmt.Errorf("save cas blob %s: %w", blob.Hash, err)
	}
	return nil
}

// GetPendingMessages returns up to limit PENDING message rows, oldest
// first (rowid order).
func (b *Buffer) GetPendingMessages(ctx context.Context, limit int) ([]PendingMessage, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, key, metadata, blob FROM messages WHERE status = 'PENDING' ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending messages: %w", err)
	}
	defer rows.Close()

	var out []PendingMessage
	for rows.Next() {
		var m PendingMessage
		if err := rows.Scan(&m.ID, &m.Key, &m.Metadata, &m.Blob); err != nil {
			return nil, fmt.Errorf("scan pending message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetPendingCAS returns up to limit PENDING CAS rows, oldest first.
func (b *Buffer) GetPendingCAS(ctx context.Context, limit int) ([]PendingCAS, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT hash, data FROM cas_blobs WHERE status = 'PENDING' ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending cas: %w", err)
	}
	defer rows.Close()

	var out []PendingCAS
	for rows.Next() {
		var c PendingCAS
		if err := rows.Scan(&c.Hash, &c.Data); err != nil {
			return nil, fmt.Errorf("scan pending cas: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkMessageSynced flips a message row to SYNCED.
func (b *Buffer) MarkMessageSynced(ctx context.Context, id string) error {
	_, err := b.db.ExecContext(ctx, `UPDATE messages SET status = 'SYNCED' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark message synced %s: %w", id, err)
	}
	return nil
}

// MarkCASSynced flips a CAS row to SYNCED.
func (b *Buffer) MarkCASSynced(ctx context.Context, hash string) error {
	_, err := b.db.ExecContext(ctx, `UPDATE cas_blobs SET status = 'SYNCED' WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("mark cas synced %s: %w", hash, err)
	}
	return nil
}
