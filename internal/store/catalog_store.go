// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store provides SQL-backed persistence for the model catalog.
// SQLite (github.com/mattn/go-sqlite3) and PostgreSQL (pgx stdlib) are supported.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/switchAIChat/internal/catalog"
)

// Dialect selects the SQL flavor.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota
	// Postgres uses "$n" placeholders.
	Postgres
)

const defaultTable = "model_catalog"

const entryColumns = "id, provider, name, display_name, capabilities, default_config, context_length, is_available, last_seen_at, missing_since, created_at, updated_at"

// CatalogStore is a catalog.Store on database/sql.
type CatalogStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// OpenCatalogStore opens the database for driver ("sqlite3" or "postgres"),
// creates the schema and returns a ready store.
func OpenCatalogStore(ctx context.Context, driver, dsn string) (*CatalogStore, error) {
	var (
		db      *sql.DB
		err     error
		dialect Dialect
	)
	switch driver {
	case "sqlite3":
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite works best with single connection
		db.SetMaxIdleConns(1)
		dialect = SQLite
	case "postgres":
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		dialect = Postgres
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}

	s := NewCatalogStore(db, dialect)
	if err = s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.WithField("driver", driver).Info("catalog store ready")
	return s, nil
}

// NewCatalogStore wraps an open database. The schema is not created.
func NewCatalogStore(db *sql.DB, dialect Dialect) *CatalogStore {
	return &CatalogStore{db: db, dialect: dialect, table: defaultTable}
}

// Migrate creates the catalog table and indexes if missing.
func (s *CatalogStore) Migrate(ctx context.Context) error {
	ts := "DATETIME"
	if s.dialect == Postgres {
		ts = "TIMESTAMPTZ"
	}
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			capabilities TEXT NOT NULL,
			default_config TEXT NOT NULL,
			context_length INTEGER NOT NULL DEFAULT 0,
			is_available BOOLEAN NOT NULL,
			last_seen_at %[2]s NULL,
			missing_since %[2]s NULL,
			created_at %[2]s NOT NULL,
			updated_at %[2]s NOT NULL,
			UNIQUE (provider, name)
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_available ON %[1]s(is_available);
	`, s.table, ts)

	// pgx runs one statement per Exec in extended protocol; split defensively.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *CatalogStore) Close() error {
	return s.db.Close()
}

// Get returns the entry with the given id.
func (s *CatalogStore) Get(ctx context.Context, id string) (*catalog.Entry, error) {
	query := s.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", entryColumns, s.table))
	return s.queryOne(ctx, query, id)
}

// Find returns the entry for (provider, name).
func (s *CatalogStore) Find(ctx context.Context, provider, name string) (*catalog.Entry, error) {
	query := s.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE provider = ? AND name = ?", entryColumns, s.table))
	return s.queryOne(ctx, query, provider, name)
}

// List returns matching entries ordered by creation time.
func (s *CatalogStore) List(ctx context.Context, filter catalog.Filter) ([]*catalog.Entry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Provider != "" {
		where = append(where, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.AvailableOnly {
		where = append(where, "is_available = ?")
		args = append(args, true)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", entryColumns, s.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, provider, name"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Entry
	for rows.Next() {
		e, errScan := scanEntry(rows)
		if errScan != nil {
			return nil, errScan
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog: %w", err)
	}
	return out, nil
}

// Create inserts e, assigning an id when empty.
func (s *CatalogStore) Create(ctx context.Context, e *catalog.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	caps, cfg, err := encodeJSONColumns(e)
	if err != nil {
		return err
	}

	query := s.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, entryColumns))
	_, err = s.db.ExecContext(ctx, query,
		e.ID, e.Provider, e.Name, e.DisplayName, caps, cfg, e.ContextLength, e.IsAvailable,
		nullTime(e.LastSeenAt), nullTime(e.MarkedAsMissingSince), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicate
		}
		return fmt.Errorf("failed to insert catalog entry: %w", err)
	}
	return nil
}

// Update replaces the stored entry with the same id.
func (s *CatalogStore) Update(ctx context.Context, e *catalog.Entry) error {
	caps, cfg, err := encodeJSONColumns(e)
	if err != nil {
		return err
	}
	query := s.rebind(fmt.Sprintf(`UPDATE %s SET provider = ?, name = ?, display_name = ?, capabilities = ?, default_config = ?,
		context_length = ?, is_available = ?, last_seen_at = ?, missing_since = ?, updated_at = ? WHERE id = ?`, s.table))
	res, err := s.db.ExecContext(ctx, query,
		e.Provider, e.Name, e.DisplayName, caps, cfg, e.ContextLength, e.IsAvailable,
		nullTime(e.LastSeenAt), nullTime(e.MarkedAsMissingSince), e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update catalog entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update catalog entry: %w", err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *CatalogStore) queryOne(ctx context.Context, query string, args ...any) (*catalog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query catalog: %w", err)
		}
		return nil, catalog.ErrNotFound
	}
	return scanEntry(rows)
}

// rebind rewrites "?" placeholders for the active dialect.
func (s *CatalogStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanEntry(rows *sql.Rows) (*catalog.Entry, error) {
	var (
		e            catalog.Entry
		caps, cfg    string
		lastSeen     sql.NullTime
		missingSince sql.NullTime
	)
	if err := rows.Scan(&e.ID, &e.Provider, &e.Name, &e.DisplayName, &caps, &cfg, &e.ContextLength,
		&e.IsAvailable, &lastSeen, &missingSince, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
	}
	if err := json.Unmarshal([]byte(caps), &e.Capabilities); err != nil {
		return nil, fmt.Errorf("failed to decode capabilities of %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(cfg), &e.DefaultConfig); err != nil {
		return nil, fmt.Errorf("failed to decode default config of %s: %w", e.ID, err)
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		e.LastSeenAt = &t
	}
	if missingSince.Valid {
		t := missingSince.Time
		e.MarkedAsMissingSince = &t
	}
	return &e, nil
}

func encodeJSONColumns(e *catalog.Entry) (string, string, error) {
	caps, err := json.Marshal(e.Capabilities)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode capabilities: %w", err)
	}
	cfg, err := json.Marshal(e.DefaultConfig)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode default config: %w", err)
	}
	return string(caps), string(cfg), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ catalog.Store = (*CatalogStore)(nil)
