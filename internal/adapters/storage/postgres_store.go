// Package storage implements the relational-store port against
// PostgreSQL via database/sql and lib/pq, following the same
// connection-pool and schema-bootstrap conventions as the teacher's
// PostgresStore.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/openarchive/archive/internal/domain"
)

// PostgresStore implements ports.RelationalStore for PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings a PostgreSQL connection pool.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Production: tune against actual workload; these are conservative
	// defaults for a single-process core.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InitSchema creates every table the relational store needs if absent.
// Production: use a migration tool; this mirrors a prototype's
// bootstrap-on-start convenience.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schema := `
	-- ============================================================================
	-- ORGANIZATIONS TABLE
	-- ============================================================================
	-- One row per tenant. domains is the authoritative routing table for the
	-- tenant resolver (§4.5); a domain may appear under more than one org.
	CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		slug VARCHAR(100) UNIQUE NOT NULL,
		name VARCHAR(200) NOT NULL,
		domains TEXT[] NOT NULL DEFAULT '{}',
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT NOW()
	);

	-- ============================================================================
	-- AUDIT LOGS TABLE
	-- ============================================================================
	-- Append-only, per-org hash chain (§4.8). Row-level security keyed on
	-- session GUCs app.current_role/app.current_org_id gives a defense-in-depth
	-- layer beneath the application-level tenant check.
	CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		org_id BIGINT NOT NULL REFERENCES organizations(id),
		actor VARCHAR(200) NOT NULL,
		action VARCHAR(100) NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		previous_hash VARCHAR(64) NOT NULL,
		current_hash VARCHAR(64) NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_org_id ON audit_logs(org_id, id);

	ALTER TABLE audit_logs ENABLE ROW LEVEL SECURITY;
	DROP POLICY IF EXISTS audit_logs_tenant_isolation ON audit_logs;
	CREATE POLICY audit_logs_tenant_isolation ON audit_logs
		USING (
			current_setting('app.current_role', true) = 'super_admin'
			OR org_id = NULLIF(current_setting('app.current_org_id', true), '')::BIGINT
		);

	-- ============================================================================
	-- LEGAL HOLDS
	-- ============================================================================
	CREATE TABLE IF NOT EXISTS legal_holds (
		id BIGSERIAL PRIMARY KEY,
		public_id UUID UNIQUE NOT NULL,
		org_id BIGINT NOT NULL REFERENCES organizations(id),
		name VARCHAR(200) NOT NULL,
		reason TEXT,
		criteria_from VARCHAR(320) DEFAULT '',
		criteria_to VARCHAR(320) DEFAULT '',
		criteria_q TEXT DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT NOW(),
		UNIQUE (org_id, name)
	);

	CREATE TABLE IF NOT EXISTS legal_hold_items (
		hold_id BIGINT NOT NULL REFERENCES legal_holds(id),
		message_id UUID NOT NULL,
		added_at TIMESTAMP DEFAULT NOW(),
		UNIQUE (hold_id, message_id)
	);

	-- ============================================================================
	-- CASES
	-- ============================================================================
	CREATE TABLE IF NOT EXISTS cases (
		id BIGSERIAL PRIMARY KEY,
		public_id UUID UNIQUE NOT NULL,
		org_id BIGINT NOT NULL REFERENCES organizations(id),
		name VARCHAR(200) NOT NULL,
		description TEXT,
		status VARCHAR(30) NOT NULL DEFAULT 'open',
		created_at TIMESTAMP DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS case_items (
		case_id BIGINT NOT NULL REFERENCES cases(id),
		message_id UUID NOT NULL,
		tags TEXT[] NOT NULL DEFAULT '{}',
		review_status VARCHAR(30) NOT NULL DEFAULT 'PENDING',
		assignee VARCHAR(200) DEFAULT '',
		added_at TIMESTAMP DEFAULT NOW(),
		UNIQUE (case_id, message_id)
	);

	-- ============================================================================
	-- RETENTION POLICIES
	-- ============================================================================
	CREATE TABLE IF NOT EXISTS retention_policies (
		id BIGSERIAL PRIMARY KEY,
		org_id BIGINT REFERENCES organizations(id),
		domains TEXT[] NOT NULL DEFAULT '{}',
		retain_days INT NOT NULL,
		action VARCHAR(30) NOT NULL DEFAULT 'delete'
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Organizations
// ---------------------------------------------------------------------------

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name, domains, is_default, created_at FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		var o domain.Organization
		var domains pq.StringArray
		if err := rows.Scan(&o.ID, &o.Slug, &o.Name, &domains, &o.IsDefault, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		o.Domains = domains
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id int64) (domain.Organization, error) {
	var o domain.Organization
	var domains pq.StringArray
	row := s.db.QueryRowContext(ctx, `SELECT id, slug, name, domains, is_default, created_at FROM organizations WHERE id = $1`, id)
	if err := row.Scan(&o.ID, &o.Slug, &o.Name, &domains, &o.IsDefault, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Organization{}, fmt.Errorf("organization %d: %w", id, sql.ErrNoRows)
		}
		return domain.Organization{}, fmt.Errorf("get organization: %w", err)
	}
	o.Domains = domains
	return o, nil
}

func (s *PostgresStore) CreateOrganization(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO organizations (slug, name, domains, is_default) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		org.Slug, org.Name, pq.StringArray(org.Domains), org.IsDefault,
	)
	if err := row.Scan(&org.ID, &org.CreatedAt); err != nil {
		return domain.Organization{}, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}

// ---------------------------------------------------------------------------
// Audit log
// ---------------------------------------------------------------------------

func (s *PostgresStore) LastHash(ctx context.Context, orgID int64) (string, error) {
	var hash string
	row := s.db.QueryRowContext(ctx,
		`SELECT current_hash FROM audit_logs WHERE org_id = $1 ORDER BY id DESC LIMIT 1`, orgID)
	err := row.Scan(&hash)
	if err == sql.ErrNoRows {
		return domain.RootHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("last hash: %w", err)
	}
	return hash, nil
}

func (s *PostgresStore) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("marshal details: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO audit_logs (org_id, actor, action, details, previous_hash, current_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		entry.OrgID, entry.Actor, entry.Action, detailsJSON, entry.PreviousHash, entry.CurrentHash,
	)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) StreamEntries(ctx context.Context, orgID int64) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, actor, action, details, previous_hash, current_hash, created_at
		 FROM audit_logs WHERE org_id = $1 ORDER BY id ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("stream audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Actor, &e.Action, &detailsJSON, &e.PreviousHash, &e.CurrentHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) ListOrgIDsWithEntries(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT org_id FROM audit_logs ORDER BY org_id`)
	if err != nil {
		return nil, fmt.Errorf("list org ids with entries: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan org id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---------------------------------------------------------------------------
// Legal holds
// ---------------------------------------------------------------------------

func (s *PostgresStore) CreateHold(ctx context.Context, hold domain.LegalHold) (domain.LegalHold, error) {
	if hold.PublicID == uuid.Nil {
		hold.PublicID = uuid.New()
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO legal_holds (public_id, org_id, name, reason, criteria_from, criteria_to, criteria_q, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		hold.PublicID, hold.OrgID, hold.Name, hold.Reason,
		hold.Criteria.From, hold.Criteria.To, hold.Criteria.Q, hold.Active,
	)
	if err := row.Scan(&hold.ID, &hold.CreatedAt); err != nil {
		return domain.LegalHold{}, fmt.Errorf("create hold: %w", err)
	}
	return hold, nil
}

func scanHold(row *sql.Row) (domain.LegalHold, error) {
	var h domain.LegalHold
	err := row.Scan(&h.ID, &h.PublicID, &h.OrgID, &h.Name, &h.Reason,
		&h.Criteria.From, &h.Criteria.To, &h.Criteria.Q, &h.Active, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.LegalHold{}, fmt.Errorf("hold not found: %w", sql.ErrNoRows)
	}
	if err != nil {
		return domain.LegalHold{}, fmt.Errorf("scan hold: %w", err)
	}
	return h, nil
}

const holdColumns = `id, public_id, org_id, name, reason, criteria_from, criteria_to, criteria_q, active, created_at`

func (s *PostgresStore) GetHold(ctx context.Context, orgID int64, publicID uuid.UUID) (domain.LegalHold, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM legal_holds WHERE org_id = $1 AND public_id = $2`, orgID, publicID)
	return scanHold(row)
}

func (s *PostgresStore) ListActiveHolds(ctx context.Context, orgID int64) ([]domain.LegalHold, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+holdColumns+` FROM legal_holds WHERE org_id = $1 AND active = TRUE`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list active holds: %w", err)
	}
	defer rows.Close()
	return scanHolds(rows)
}

func (s *PostgresStore) ListAllActiveHolds(ctx context.Context) ([]domain.LegalHold, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+holdColumns+` FROM legal_holds WHERE active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("list all active holds: %w", err)
	}
	defer rows.Close()
	return scanHolds(rows)
}

func scanHolds(rows *sql.Rows) ([]domain.LegalHold, error) {
	var holds []domain.LegalHold
	for rows.Next() {
		var h domain.LegalHold
		if err := rows.Scan(&h.ID, &h.PublicID, &h.OrgID, &h.Name, &h.Reason,
			&h.Criteria.From, &h.Criteria.To, &h.Criteria.Q, &h.Active, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (s *PostgresStore) ReleaseHold(ctx context.Context, orgID int64, publicID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE legal_holds SET active = FALSE WHERE org_id = $1 AND public_id = $2`, orgID, publicID)
	if err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("hold not found: %w", sql.ErrNoRows)
	}
	return nil
}

func (s *PostgresStore) AddHoldItems(ctx context.Context, holdID int64, messageIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO legal_hold_items (hold_id, message_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare add hold items: %w", err)
	}
	defer stmt.Close()

	for _, id := range messageIDs {
		if _, err := stmt.ExecContext(ctx, holdID, id); err != nil {
			return fmt.Errorf("add hold item %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListHoldItems(ctx context.Context, holdID int64) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT message_id FROM legal_hold_items WHERE hold_id = $1`, holdID)
	if err != nil {
		return nil, fmt.Errorf("list hold items: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan hold item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ListAllHeldMessageIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT message_id FROM legal_hold_items`)
	if err != nil {
		return nil, fmt.Errorf("list all held message ids: %w", err)
	}
	defer rows.Close()

	held := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan held message id: %w", err)
		}
		held[id] = true
	}
	return held, rows.Err()
}

func (s *PostgresStore) IsExplicitlyHeld(ctx context.Context, orgID int64, messageID uuid.UUID) (bool, error) {
	var exists bool
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM legal_hold_items li
			JOIN legal_holds h ON h.id = li.hold_id
			WHERE h.org_id = $1 AND li.message_id = $2
		)`, orgID, messageID)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("is explicitly held: %w", err)
	}
	return exists, nil
}

// ---------------------------------------------------------------------------
// Cases
// ---------------------------------------------------------------------------

func (s *PostgresStore) CreateCase(ctx context.Context, c domain.Case) (domain.Case, error) {
	if c.PublicID == uuid.Nil {
		c.PublicID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "open"
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO cases (public_id, org_id, name, description, status) VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.PublicID, c.OrgID, c.Name, c.Description, c.Status,
	)
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		return domain.Case{}, fmt.Errorf("create case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetCase(ctx context.Context, orgID int64, publicID uuid.UUID) (domain.Case, error) {
	var c domain.Case
	row := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, org_id, name, description, status, created_at
		 FROM cases WHERE org_id = $1 AND public_id = $2`, orgID, publicID)
	if err := row.Scan(&c.ID, &c.PublicID, &c.OrgID, &c.Name, &c.Description, &c.Status, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Case{}, fmt.Errorf("case not found: %w", sql.ErrNoRows)
		}
		return domain.Case{}, fmt.Errorf("get case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCases(ctx context.Context, orgID int64) ([]domain.Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, public_id, org_id, name, description, status, created_at FROM cases WHERE org_id = $1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(&c.ID, &c.PublicID, &c.OrgID, &c.Name, &c.Description, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (s *PostgresStore) AddCaseItems(ctx context.Context, caseID int64, messageIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO case_items (case_id, message_id, review_status) VALUES ($1, $2, 'PENDING') ON CONFLICT DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare add case items: %w", err)
	}
	defer stmt.Close()

	for _, id := range messageIDs {
		if _, err := stmt.ExecContext(ctx, caseID, id); err != nil {
			return fmt.Errorf("add case item %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListCaseItems(ctx context.Context, caseID int64) ([]domain.CaseItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT case_id, message_id, tags, review_status, assignee, added_at FROM case_items WHERE case_id = $1`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list case items: %w", err)
	}
	defer rows.Close()

	var items []domain.CaseItem
	for rows.Next() {
		var item domain.CaseItem
		var tags pq.StringArray
		if err := rows.Scan(&item.CaseID, &item.MessageID, &tags, &item.ReviewStatus, &item.Assignee, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan case item: %w", err)
		}
		item.Tags = tags
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateCaseItem(ctx context.Context, item domain.CaseItem) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE case_items SET tags = $1, review_status = $2, assignee = $3
		 WHERE case_id = $4 AND message_id = $5`,
		pq.StringArray(item.Tags), item.ReviewStatus, item.Assignee, item.CaseID, item.MessageID,
	)
	if err != nil {
		return fmt.Errorf("update case item: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveCaseItem(ctx context.Context, caseID int64, messageID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM case_items WHERE case_id = $1 AND message_id = $2`, caseID, messageID)
	if err != nil {
		return fmt.Errorf("remove case item: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateCaseStatus(ctx context.Context, caseID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE cases SET status = $1 WHERE id = $2`, status, caseID)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Retention policies
// ---------------------------------------------------------------------------

func (s *PostgresStore) ListRetentionPolicies(ctx context.Context) ([]domain.RetentionPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, org_id, domains, retain_days, action FROM retention_policies`)
	if err != nil {
		return nil, fmt.Errorf("list retention policies: %w", err)
	}
	defer rows.Close()

	var policies []domain.RetentionPolicy
	for rows.Next() {
		var p domain.RetentionPolicy
		var orgID sql.NullInt64
		var domains pq.StringArray
		if err := rows.Scan(&p.ID, &orgID, &domains, &p.RetainDays, &p.Action); err != nil {
			return nil, fmt.Errorf("scan retention policy: %w", err)
		}
		if orgID.Valid {
			p.OrgID = &orgID.Int64
		}
		p.Domains = domains
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *PostgresStore) CreateRetentionPolicy(ctx context.Context, p domain.RetentionPolicy) (domain.RetentionPolicy, error) {
	var orgID sql.NullInt64
	if p.OrgID != nil {
		orgID = sql.NullInt64{Int64: *p.OrgID, Valid: true}
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO retention_policies (org_id, domains, retain_days, action) VALUES ($1, $2, $3, $4) RETURNING id`,
		orgID, pq.StringArray(p.Domains), p.RetainDays, p.Action,
	)
	if err := row.Scan(&p.ID); err != nil {
		return domain.RetentionPolicy{}, fmt.Errorf("create retention policy: %w", err)
	}
	return p, nil
}
