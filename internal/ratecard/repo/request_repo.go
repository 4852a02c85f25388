package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-ratecard-go/internal/ratecard/entity"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// RequestRepo is the Request Store: one row per access request in `rate_card_requests`.
// Timestamps are stored as unix milliseconds so the same SQL runs on PostgreSQL and SQLite.
type RequestRepo struct {
	db *sqlx.DB
}

func NewRequestRepo(db *sqlx.DB) *RequestRepo { return &RequestRepo{db: db} }

// EnsureTable creates the rate_card_requests table and its indexes if missing.
// The CHECK constraints mirror the entity invariants so a bad write fails in the database too.
func (r *RequestRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
CREATE TABLE IF NOT EXISTS rate_card_requests (
  id VARCHAR(32) PRIMARY KEY,
  full_name TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  email TEXT,
  brand_name TEXT,
  instagram_handle TEXT,
  about_business TEXT,
  service_interest TEXT,
  help_needed TEXT,
  additional_info TEXT,
  notes TEXT,
  submitted_at_ms BIGINT NOT NULL,
  is_approved BOOLEAN NOT NULL DEFAULT FALSE,
  token TEXT UNIQUE,
  token_expires_at_ms BIGINT,
  was_accessed BOOLEAN NOT NULL DEFAULT FALSE,
  accessed_at_ms BIGINT,
  CHECK ((token IS NULL) = (token_expires_at_ms IS NULL)),
  CHECK (is_approved = (token IS NOT NULL)),
  CHECK (is_approved OR NOT was_accessed)
)`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return fmt.Errorf("create rate_card_requests: %w", err)
	}
	idx := []string{
		`CREATE INDEX IF NOT EXISTS idx_rate_card_requests_submitted ON rate_card_requests (submitted_at_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_card_requests_approved ON rate_card_requests (is_approved)`,
	}
	for _, q := range idx {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

type requestRow struct {
	ID               string  `db:"id"`
	FullName         string  `db:"full_name"`
	PhoneNumber      string  `db:"phone_number"`
	Email            *string `db:"email"`
	BrandName        *string `db:"brand_name"`
	InstagramHandle  *string `db:"instagram_handle"`
	AboutBusiness    *string `db:"about_business"`
	ServiceInterest  *string `db:"service_interest"`
	HelpNeeded       *string `db:"help_needed"`
	AdditionalInfo   *string `db:"additional_info"`
	Notes            *string `db:"notes"`
	SubmittedAtMs    int64   `db:"submitted_at_ms"`
	IsApproved       bool    `db:"is_approved"`
	Token            *string `db:"token"`
	TokenExpiresAtMs *int64  `db:"token_expires_at_ms"`
	WasAccessed      bool    `db:"was_accessed"`
	AccessedAtMs     *int64  `db:"accessed_at_ms"`
}

const selectColumns = `id, full_name, phone_number, email, brand_name, instagram_handle,
	about_business, service_interest, help_needed, additional_info, notes, submitted_at_ms,
	is_approved, token, token_expires_at_ms, was_accessed, accessed_at_ms`

func (row requestRow) toEntity() *entity.AccessRequest {
	return &entity.AccessRequest{
		ID:              row.ID,
		FullName:        row.FullName,
		PhoneNumber:     row.PhoneNumber,
		Email:           row.Email,
		BrandName:       row.BrandName,
		InstagramHandle: row.InstagramHandle,
		AboutBusiness:   row.AboutBusiness,
		ServiceInterest: row.ServiceInterest,
		HelpNeeded:      row.HelpNeeded,
		AdditionalInfo:  row.AdditionalInfo,
		Notes:           row.Notes,
		SubmittedAt:     fromMillis(row.SubmittedAtMs),
		IsApproved:      row.IsApproved,
		Token:           row.Token,
		TokenExpiresAt:  fromMillisPtr(row.TokenExpiresAtMs),
		WasAccessed:     row.WasAccessed,
		AccessedAt:      fromMillisPtr(row.AccessedAtMs),
	}
}

// Create inserts a new, pending request. Approval and access columns always start empty.
func (r *RequestRepo) Create(ctx context.Context, in *entity.AccessRequest) error {
	q := r.db.Rebind(`INSERT INTO rate_card_requests (id, full_name, phone_number, email, brand_name,
		instagram_handle, about_business, service_interest, help_needed, additional_info, notes, submitted_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		in.ID, in.FullName, in.PhoneNumber, in.Email, in.BrandName,
		in.InstagramHandle, in.AboutBusiness, in.ServiceInterest, in.HelpNeeded, in.AdditionalInfo, in.Notes,
		toMillis(in.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// GetByID returns the request or sql.ErrNoRows.
func (r *RequestRepo) GetByID(ctx context.Context, id string) (*entity.AccessRequest, error) {
	var row requestRow
	q := r.db.Rebind(`SELECT ` + selectColumns + ` FROM rate_card_requests WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// GetByToken returns the request holding exactly this token, or sql.ErrNoRows.
func (r *RequestRepo) GetByToken(ctx context.Context, token string) (*entity.AccessRequest, error) {
	var row requestRow
	q := r.db.Rebind(`SELECT ` + selectColumns + ` FROM rate_card_requests WHERE token = ?`)
	if err := r.db.GetContext(ctx, &row, q, token); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// Approve sets the approval flag, token and expiry in one transaction, guarded on
// the request still being pending. It returns sql.ErrNoRows when the id is unknown
// and 0 rows when the request was already approved (including by a concurrent caller).
func (r *RequestRepo) Approve(ctx context.Context, id, token string, expiresAt time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var approved bool
	if err := tx.GetContext(ctx, &approved, tx.Rebind(`SELECT is_approved FROM rate_card_requests WHERE id = ?`), id); err != nil {
		return 0, err
	}
	if approved {
		return 0, nil
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE rate_card_requests
		SET is_approved = TRUE, token = ?, token_expires_at_ms = ?
		WHERE id = ? AND NOT is_approved`), token, toMillis(expiresAt), id)
	if err != nil {
		return 0, fmt.Errorf("approve request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit approve: %w", err)
	}
	return rows, nil
}

// MarkAccessed stamps the first access for an approved token. Rows already marked
// are left untouched, so the result is 0 on every call after the first.
func (r *RequestRepo) MarkAccessed(ctx context.Context, token string, at time.Time) (int64, error) {
	q := r.db.Rebind(`UPDATE rate_card_requests SET was_accessed = TRUE, accessed_at_ms = ?
		WHERE token = ? AND is_approved AND NOT was_accessed`)
	res, err := r.db.ExecContext(ctx, q, toMillis(at), token)
	if err != nil {
		return 0, fmt.Errorf("mark accessed: %w", err)
	}
	return res.RowsAffected()
}

// List returns requests newest first, filtered by derived status and a free-text query.
func (r *RequestRepo) List(ctx context.Context, f entity.Filter, now time.Time) ([]*entity.AccessRequest, error) {
	where, args := filterClause(f, now)
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + selectColumns + ` FROM rate_card_requests`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY submitted_at_ms DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []requestRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]*entity.AccessRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// Stats counts requests per dashboard tab at now.
func (r *RequestRepo) Stats(ctx context.Context, now time.Time) (entity.Stats, error) {
	q := r.db.Rebind(`SELECT
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN NOT is_approved THEN 1 ELSE 0 END), 0) AS pending,
		COALESCE(SUM(CASE WHEN is_approved AND token_expires_at_ms >= ? THEN 1 ELSE 0 END), 0) AS approved,
		COALESCE(SUM(CASE WHEN was_accessed THEN 1 ELSE 0 END), 0) AS accessed,
		COALESCE(SUM(CASE WHEN is_approved AND token_expires_at_ms < ? THEN 1 ELSE 0 END), 0) AS expired
		FROM rate_card_requests`)
	var st entity.Stats
	ms := toMillis(now)
	if err := r.db.GetContext(ctx, &st, q, ms, ms); err != nil {
		return entity.Stats{}, fmt.Errorf("request stats: %w", err)
	}
	return st, nil
}

// Delete removes a request (administrative only) and returns the affected row count.
func (r *RequestRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM rate_card_requests WHERE id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("delete request: %w", err)
	}
	return res.RowsAffected()
}

func filterClause(f entity.Filter, now time.Time) (string, []any) {
	var conds []string
	var args []any
	switch strings.ToLower(f.Status) {
	case string(entity.StatusPending):
		conds = append(conds, `NOT is_approved`)
	case string(entity.StatusApproved):
		conds = append(conds, `is_approved AND token_expires_at_ms >= ?`)
		args = append(args, toMillis(now))
	case string(entity.StatusExpired):
		conds = append(conds, `is_approved AND token_expires_at_ms < ?`)
		args = append(args, toMillis(now))
	case "accessed":
		conds = append(conds, `was_accessed`)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		conds = append(conds, `(LOWER(full_name) LIKE ? OR LOWER(phone_number) LIKE ?
			OR LOWER(COALESCE(email, '')) LIKE ? OR LOWER(COALESCE(brand_name, '')) LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	return strings.Join(conds, " AND "), args
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func fromMillisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }
