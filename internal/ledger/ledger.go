// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ledger records VideoAsset lifecycle transitions across batch runs.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/persistence/sqlite"
)

const schemaVersion = 1

// Entry is the current state of one asset.
type Entry struct {
	AssetID   string
	Source    string
	State     asset.State
	Reason    string // failure reason, empty unless State is failed
	UpdatedAt time.Time
}

// Event is one recorded transition.
type Event struct {
	AssetID string
	State   asset.State
	Reason  string
	At      time.Time
}

// ErrNotFound is returned by Get for unknown assets.
var ErrNotFound = errors.New("ledger: asset not found")

// Store is the SQLite-backed ledger.
type Store struct {
	DB  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &Store{DB: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var current int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		asset_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		state TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		updated_at_ms INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS asset_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id TEXT NOT NULL REFERENCES assets(asset_id) ON DELETE CASCADE,
		state TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_asset_events_asset ON asset_events(asset_id, id);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record upserts the asset's current state and appends the transition.
func (s *Store) Record(ctx context.Context, a asset.VideoAsset, reason string) error {
	at := s.now().UnixMilli()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO assets (asset_id, source, state, reason, updated_at_ms)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(asset_id) DO UPDATE SET
		source = excluded.source,
		state = excluded.state,
		reason = excluded.reason,
		updated_at_ms = excluded.updated_at_ms
	`, a.ID, a.Source, string(a.State), reason, at)
	if err != nil {
		return fmt.Errorf("ledger: upsert %s: %w", a.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO asset_events (asset_id, state, reason, at_ms) VALUES (?, ?, ?, ?)`,
		a.ID, string(a.State), reason, at)
	if err != nil {
		return fmt.Errorf("ledger: append event %s: %w", a.ID, err)
	}
	return tx.Commit()
}

// Get returns the current entry for id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	var (
		e  Entry
		st string
		ms int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT asset_id, source, state, reason, updated_at_ms FROM assets WHERE asset_id = ?`, id,
	).Scan(&e.AssetID, &e.Source, &st, &e.Reason, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: get %s: %w", id, err)
	}
	e.State = asset.State(st)
	e.UpdatedAt = time.UnixMilli(ms).UTC()
	return e, nil
}

// List returns all current entries ordered by asset id.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT asset_id, source, state, reason, updated_at_ms FROM assets ORDER BY asset_id`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			st string
			ms int64
		)
		if err := rows.Scan(&e.AssetID, &e.Source, &st, &e.Reason, &ms); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		e.State = asset.State(st)
		e.UpdatedAt = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// History returns the transitions recorded for id, oldest first.
func (s *Store) History(ctx context.Context, id string) ([]Event, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT asset_id, state, reason, at_ms FROM asset_events WHERE asset_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("ledger: history %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var (
			ev Event
			st string
			ms int64
		)
		if err := rows.Scan(&ev.AssetID, &st, &ev.Reason, &ms); err != nil {
			return nil, fmt.Errorf("ledger: scan event: %w", err)
		}
		ev.State = asset.State(st)
		ev.At = time.UnixMilli(ms).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
