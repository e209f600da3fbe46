/*
Package sqlite provides a SQLite-backed implementation of quota.Store and
the scheme catalogue.

PURPOSE:
  Persists store quotas, their seller distribution and scheme definitions.
  The commission engine itself never touches storage: the API layer loads
  a scheme and an HcQuota from here and hands them to commission.Compute.

INTERFACES IMPLEMENTED:
  quota.Store: store quotas and HC quota rows

IMMUTABILITY:
  An approved store quota is frozen:
  - SaveStoreQuota, ReplaceDistribution and ApproveStoreQuota return a
    quota.ConflictError
  - Approval flips the store quota and every HC row in one transaction
  An approved scheme is frozen the same way: SaveScheme and ApproveScheme
  return a commission.ConflictError.

KEY TABLES:
  store_quotas: one row per store and period
  hc_quotas:    one row per seller of a store quota
  schemes:      scheme definitions as JSON (versioned, draft/approved)

CONCURRENCY:
  Uses sync.RWMutex around every statement. Multi-row writes run in one
  SQL transaction, so a failed distribution leaves the previous one intact.

USAGE:
  store, err := sqlite.New("./data/commissions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  distributor := quota.NewDistributor(store, logger)

SEE ALSO:
  - quota/store.go: Interface definition
  - quota/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/quota"
)

const dateLayout = "2006-01-02"

// Store implements quota.Store and the scheme catalogue using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ quota.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS store_quotas (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		period TEXT NOT NULL,
		ss_quota INTEGER NOT NULL,
		breakdown_json TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_store_quotas_store_period
		ON store_quotas(store_id, period);

	CREATE TABLE IF NOT EXISTS hc_quotas (
		id TEXT PRIMARY KEY,
		store_quota_id TEXT NOT NULL REFERENCES store_quotas(id) ON DELETE CASCADE,
		seller_id TEXT NOT NULL,
		ss_quota INTEGER NOT NULL,
		breakdown_json TEXT,
		start_date TEXT,
		proration_factor TEXT NOT NULL,
		prorated_ss_quota TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_hc_quotas_seller
		ON hc_quotas(store_quota_id, seller_id);

	CREATE TABLE IF NOT EXISTS schemes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STORE QUOTAS
// =============================================================================

// SaveStoreQuota inserts or updates a draft store quota.
func (s *Store) SaveStoreQuota(ctx context.Context, sq quota.StoreQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	status, err := storeQuotaStatus(ctx, sqlTx, sq.ID)
	if err != nil && !errors.Is(err, quota.ErrNotFound) {
		return err
	}
	if status.IsImmutable() {
		return &quota.ConflictError{StoreQuotaID: sq.ID, Status: status, Action: "update"}
	}

	breakdown, err := encodeBreakdown(sq.Breakdown)
	if err != nil {
		return err
	}
	if sq.Status == "" {
		sq.Status = quota.StatusDraft
	}
	now := time.Now().UTC()
	created := sq.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO store_quotas (id, store_id, period, ss_quota, breakdown_json, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			store_id = excluded.store_id,
			period = excluded.period,
			ss_quota = excluded.ss_quota,
			breakdown_json = excluded.breakdown_json,
			status = excluded.status,
			updated_at = excluded.updated_at
	`,
		sq.ID, sq.StoreID, sq.Period.String(), sq.SsQuota, breakdown, sq.Status,
		created.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save store quota %s: %w", sq.ID, err)
	}
	return sqlTx.Commit()
}

// GetStoreQuota retrieves a store quota by ID.
func (s *Store) GetStoreQuota(ctx context.Context, id quota.StoreQuotaID) (*quota.StoreQuota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sq quota.StoreQuota
	var period, createdAt, updatedAt string
	var breakdown sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, store_id, period, ss_quota, breakdown_json, status, created_at, updated_at FROM store_quotas WHERE id = ?",
		id,
	).Scan(&sq.ID, &sq.StoreID, &period, &sq.SsQuota, &breakdown, &sq.Status, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, quota.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if sq.Period, err = quota.ParsePeriod(period); err != nil {
		return nil, fmt.Errorf("corrupt period on store quota %s: %w", id, err)
	}
	if sq.Breakdown, err = decodeBreakdown(breakdown); err != nil {
		return nil, err
	}
	sq.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sq.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &sq, nil
}

// ListStoreQuotas returns every store quota, newest period first.
func (s *Store) ListStoreQuotas(ctx context.Context) ([]quota.StoreQuota, error) {
	s.mu.RLock()
	ids, err := s.queryIDs(ctx, "SELECT id FROM store_quotas ORDER BY period DESC, store_id")
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	result := make([]quota.StoreQuota, 0, len(ids))
	for _, id := range ids {
		sq, err := s.GetStoreQuota(ctx, quota.StoreQuotaID(id))
		if err != nil {
			return nil, err
		}
		result = append(result, *sq)
	}
	return result, nil
}

// ApproveStoreQuota freezes the store quota and its HC rows.
func (s *Store) ApproveStoreQuota(ctx context.Context, id quota.StoreQuotaID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	status, err := storeQuotaStatus(ctx, sqlTx, id)
	if err != nil {
		return err
	}
	if status.IsImmutable() {
		return &quota.ConflictError{StoreQuotaID: id, Status: status, Action: "approve"}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE store_quotas SET status = ?, updated_at = ? WHERE id = ?",
		quota.StatusApproved, now, id,
	); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE hc_quotas SET status = ? WHERE store_quota_id = ?",
		quota.StatusApproved, id,
	); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func storeQuotaStatus(ctx context.Context, sqlTx *sql.Tx, id quota.StoreQuotaID) (quota.Status, error) {
	var status quota.Status
	err := sqlTx.QueryRowContext(ctx, "SELECT status FROM store_quotas WHERE id = ?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", quota.ErrNotFound
	}
	return status, err
}

// =============================================================================
// HC QUOTAS
// =============================================================================

// ReplaceDistribution deletes the current HC rows and inserts rows in one
// transaction.
func (s *Store) ReplaceDistribution(ctx context.Context, id quota.StoreQuotaID, rows []quota.HcQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	status, err := storeQuotaStatus(ctx, sqlTx, id)
	if err != nil {
		return err
	}
	if status.IsImmutable() {
		return &quota.ConflictError{StoreQuotaID: id, Status: status, Action: "distribute"}
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM hc_quotas WHERE store_quota_id = ?", id); err != nil {
		return err
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO hc_quotas (id, store_quota_id, seller_id, ss_quota, breakdown_json, start_date,
		                       proration_factor, prorated_ss_quota, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		breakdown, err := encodeBreakdown(r.Breakdown)
		if err != nil {
			return err
		}
		var start sql.NullString
		if r.StartDate != nil {
			start = sql.NullString{String: r.StartDate.Format(dateLayout), Valid: true}
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, id, r.SellerID, r.SsQuota, breakdown, start,
			r.ProrationFactor.String(), r.ProratedSsQuota.String(), r.Status, created.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("failed to insert hc quota for seller %s: %w", r.SellerID, err)
		}
	}

	return sqlTx.Commit()
}

// ListHcQuotas returns the HC rows of a store quota ordered by seller.
func (s *Store) ListHcQuotas(ctx context.Context, id quota.StoreQuotaID) ([]quota.HcQuota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryHcQuotas(ctx, "WHERE store_quota_id = ? ORDER BY seller_id", id)
}

// GetHcQuota returns one seller's row.
func (s *Store) GetHcQuota(ctx context.Context, id quota.StoreQuotaID, seller quota.SellerID) (*quota.HcQuota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.queryHcQuotas(ctx, "WHERE store_quota_id = ? AND seller_id = ?", id, seller)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, quota.ErrNotFound
	}
	return &rows[0], nil
}

func (s *Store) queryHcQuotas(ctx context.Context, where string, args ...any) ([]quota.HcQuota, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_quota_id, seller_id, ss_quota, breakdown_json, start_date,
		       proration_factor, prorated_ss_quota, status, created_at
		FROM hc_quotas `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []quota.HcQuota
	for rows.Next() {
		var h quota.HcQuota
		var breakdown, start sql.NullString
		var factor, prorated, createdAt string
		if err := rows.Scan(&h.ID, &h.StoreQuotaID, &h.SellerID, &h.SsQuota, &breakdown, &start,
			&factor, &prorated, &h.Status, &createdAt); err != nil {
			return nil, err
		}
		if h.Breakdown, err = decodeBreakdown(breakdown); err != nil {
			return nil, err
		}
		if start.Valid {
			t, err := time.Parse(dateLayout, start.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt start_date on hc quota %s: %w", h.ID, err)
			}
			h.StartDate = &t
		}
		if h.ProrationFactor, err = decimal.NewFromString(factor); err != nil {
			return nil, fmt.Errorf("corrupt proration_factor on hc quota %s: %w", h.ID, err)
		}
		if h.ProratedSsQuota, err = decimal.NewFromString(prorated); err != nil {
			return nil, fmt.Errorf("corrupt prorated_ss_quota on hc quota %s: %w", h.ID, err)
		}
		h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, h)
	}
	return result, rows.Err()
}

// =============================================================================
// SCHEME STORE
// =============================================================================

// SchemeRecord is a stored scheme with its JSON config.
type SchemeRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	Version    int
	Status     commission.SchemeStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const schemeColumns = "id, name, config_json, version, status, created_at, updated_at"

// SaveScheme inserts a draft scheme or bumps the version of an existing
// draft. Returns commission.ConflictError if the scheme is approved.
func (s *Store) SaveScheme(ctx context.Context, scheme SchemeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	status, err := schemeStatus(ctx, sqlTx, scheme.ID)
	if err != nil && !errors.Is(err, commission.ErrNotFound) {
		return err
	}
	if status == commission.SchemeApproved {
		return &commission.ConflictError{SchemeID: commission.SchemeID(scheme.ID), Status: status}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO schemes (id, name, config_json, version, status, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = schemes.version + 1,
			updated_at = excluded.updated_at
	`, scheme.ID, scheme.Name, scheme.ConfigJSON, commission.SchemeDraft, now, now)
	if err != nil {
		return err
	}
	return sqlTx.Commit()
}

// ApproveScheme freezes a draft scheme.
func (s *Store) ApproveScheme(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	status, err := schemeStatus(ctx, sqlTx, id)
	if err != nil {
		return err
	}
	if status == commission.SchemeApproved {
		return &commission.ConflictError{SchemeID: commission.SchemeID(id), Status: status}
	}

	_, err = sqlTx.ExecContext(ctx,
		"UPDATE schemes SET status = ?, updated_at = ? WHERE id = ?",
		commission.SchemeApproved, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	return sqlTx.Commit()
}

func schemeStatus(ctx context.Context, sqlTx *sql.Tx, id string) (commission.SchemeStatus, error) {
	var status commission.SchemeStatus
	err := sqlTx.QueryRowContext(ctx, "SELECT status FROM schemes WHERE id = ?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", commission.ErrNotFound
	}
	return status, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheme(row rowScanner) (*SchemeRecord, error) {
	var r SchemeRecord
	var createdAt, updatedAt string
	if err := row.Scan(&r.ID, &r.Name, &r.ConfigJSON, &r.Version, &r.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

// GetScheme retrieves a scheme by ID.
func (s *Store) GetScheme(ctx context.Context, id string) (*SchemeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanScheme(s.db.QueryRowContext(ctx,
		"SELECT "+schemeColumns+" FROM schemes WHERE id = ?", id,
	))
	if err == sql.ErrNoRows {
		return nil, commission.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListSchemes returns all schemes ordered by name.
func (s *Store) ListSchemes(ctx context.Context) ([]SchemeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+schemeColumns+" FROM schemes ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemes []SchemeRecord
	for rows.Next() {
		r, err := scanScheme(rows)
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, *r)
	}
	return schemes, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for demos).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"hc_quotas", "store_quotas", "schemes"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func encodeBreakdown(b map[string]int) (sql.NullString, error) {
	if len(b) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeBreakdown(s sql.NullString) (map[string]int, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var b map[string]int
	if err := json.Unmarshal([]byte(s.String), &b); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	return b, nil
}
