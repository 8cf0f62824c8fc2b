// Package sqlite provides a SQLite implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/logging"
	"github.com/jwulff/sensorviz/internal/storage"

	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// NewMemoryStore creates an in-memory SQLite store. Naive timestamps in
// stored payloads are read in loc.
func NewMemoryStore(loc *time.Location) (*Store, error) {
	return newStore(":memory:", loc)
}

// NewFileStore creates a file-based SQLite store.
func NewFileStore(path string, loc *time.Location) (*Store, error) {
	return newStore(path, loc)
}

func newStore(dsn string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if loc == nil {
		loc = time.UTC
	}
	store := &Store{db: db, loc: loc}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dataset methods

func (s *Store) PutDataset(ctx context.Context, ds *dataset.Dataset) error {
	if ds == nil || ds.ID == "" {
		return storage.ErrEmptyID
	}
	payload, err := ds.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	created := ds.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO datasets (id, payload, row_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, ds.ID, string(payload), ds.Len(), created, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store dataset: %w", err)
	}
	logging.For("sqlite").Debug("stored dataset", "id", ds.ID, "rows", ds.Len(), "bytes", len(payload))
	return nil
}

func (s *Store) GetDataset(ctx context.Context, id string) (*dataset.Dataset, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM datasets WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{Resource: "dataset", ID: id}
	}
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Decode([]byte(payload), s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", id, err)
	}
	return ds.WithID(id), nil
}

// ListDatasets summarises every dataset without loading its rows.
func (s *Store) ListDatasets(ctx context.Context) ([]dataset.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, json_remove(payload, '$.clean_rows'), row_count FROM datasets ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []dataset.Summary{}
	for rows.Next() {
		var id, head string
		var count int
		if err := rows.Scan(&id, &head, &count); err != nil {
			return nil, err
		}
		ds, err := dataset.Decode([]byte(head), s.loc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode dataset %s: %w", id, err)
		}
		summary := ds.Summarize()
		summary.ID = id
		summary.RowCount = count
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", id)
	return err
}

// Config methods

func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound{Resource: "config", ID: key}
	}
	return value, err
}

func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO config (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, value, time.Now())
	return err
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
