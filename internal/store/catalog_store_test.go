// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/traylinx/switchAIChat/internal/catalog"
)

func TestRebind(t *testing.T) {
	pg := &CatalogStore{dialect: Postgres}
	if got := pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &CatalogStore{dialect: SQLite}
	if got := lite.rebind("x = ?"); got != "x = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestCatalogStore_GetScansRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	s := NewCatalogStore(db, Postgres)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "provider", "name", "display_name", "capabilities", "default_config",
		"context_length", "is_available", "last_seen_at", "missing_since", "created_at", "updated_at"}).
		AddRow("m1", "gemini", "gemini-2.5-flash", "Gemini 2.5 Flash",
			`{"text_input":true,"web_search":true}`, `{"temperature":0.7}`,
			1048576, true, now, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + entryColumns + " FROM model_catalog WHERE id = $1")).
		WithArgs("m1").
		WillReturnRows(rows)

	e, err := s.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !e.Capabilities.WebSearch || !e.Capabilities.TextInput || e.Capabilities.ImageInput {
		t.Errorf("capabilities = %+v", e.Capabilities)
	}
	if e.DefaultConfig.Temperature == nil || *e.DefaultConfig.Temperature != 0.7 {
		t.Errorf("default config = %+v", e.DefaultConfig)
	}
	if e.LastSeenAt == nil || !e.LastSeenAt.Equal(now) {
		t.Errorf("LastSeenAt = %v", e.LastSeenAt)
	}
	if e.MarkedAsMissingSince != nil {
		t.Errorf("MarkedAsMissingSince = %v, want nil", e.MarkedAsMissingSince)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCatalogStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := NewCatalogStore(db, SQLite)
	mock.ExpectQuery(regexp.QuoteMeta("FROM model_catalog WHERE provider = ? AND name = ?")).
		WithArgs("openai", "gpt-x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := s.Find(context.Background(), "openai", "gpt-x"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Find err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCatalogStore_UpdateMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := NewCatalogStore(db, SQLite)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE model_catalog SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.Update(context.Background(), &catalog.Entry{ID: "gone", Provider: "claude", Name: "x"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCatalogStore_ListFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := NewCatalogStore(db, Postgres)
	mock.ExpectQuery(regexp.QuoteMeta("FROM model_catalog WHERE provider = $1 AND is_available = $2 ORDER BY created_at, provider, name")).
		WithArgs("gemini", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entries, err := s.List(context.Background(), catalog.Filter{Provider: "gemini", AvailableOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCatalogStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := OpenCatalogStore(ctx, "sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCatalogStore: %v", err)
	}
	defer s.Close()

	seen := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	e := &catalog.Entry{
		Provider:      "gemini",
		Name:          "gemini-2.5-pro",
		DisplayName:   "Gemini 2.5 Pro",
		Capabilities:  catalog.Capabilities{TextInput: true, ImageInput: true},
		DefaultConfig: catalog.GenerationConfig{TopK: catalog.Int(40)},
		IsAvailable:   true,
		LastSeenAt:    &seen,
		CreatedAt:     seen,
		UpdatedAt:     seen,
	}
	if err := s.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, &catalog.Entry{Provider: "gemini", Name: "gemini-2.5-pro", CreatedAt: seen, UpdatedAt: seen}); !errors.Is(err, catalog.ErrDuplicate) {
		t.Errorf("duplicate Create err = %v, want ErrDuplicate", err)
	}

	missing := seen.Add(time.Hour)
	e.MarkedAsMissingSince = &missing
	e.IsAvailable = false
	if err := s.Update(ctx, e); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.Find(ctx, "gemini", "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.IsAvailable {
		t.Error("expected entry to be unavailable")
	}
	if got.MarkedAsMissingSince == nil || !got.MarkedAsMissingSince.Equal(missing) {
		t.Errorf("MarkedAsMissingSince = %v", got.MarkedAsMissingSince)
	}
	if got.DefaultConfig.TopK == nil || *got.DefaultConfig.TopK != 40 {
		t.Errorf("DefaultConfig = %+v", got.DefaultConfig)
	}

	avail, err := s.List(ctx, catalog.Filter{AvailableOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(avail) != 0 {
		t.Errorf("available entries = %d, want 0", len(avail))
	}
}
