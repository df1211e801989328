//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"genomap/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// Row appends read then update the manifest; one connection keeps that
	// sequence serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadManifest(ctx context.Context, q querier, id string) (model.Manifest, bool, error) {
	var payload []byte
	err := q.QueryRowContext(ctx, `SELECT payload FROM manifests WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Manifest{}, false, nil
		}
		return model.Manifest{}, false, err
	}
	manifest, err := DecodeManifest(payload)
	if err != nil {
		return model.Manifest{}, false, fmt.Errorf("decode manifest %s: %w", id, err)
	}
	return manifest, true, nil
}

func upsertManifest(ctx context.Context, tx *sql.Tx, manifest model.Manifest) error {
	payload, err := EncodeManifest(manifest)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO manifests (id, created_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, manifest.ID, manifest.CreatedAt.UnixNano(), manifest.SchemaVersion, manifest.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) SaveManifest(ctx context.Context, manifest model.Manifest) error {
	if manifest.ID == "" {
		return errors.New("manifest id is required")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		prev, ok, err := loadManifest(ctx, tx, manifest.ID)
		if err != nil {
			return err
		}
		manifest.NumRows = 0
		if ok {
			manifest.NumRows = prev.NumRows
		}
		return upsertManifest(ctx, tx, manifest)
	})
}

func (s *SQLiteStore) GetManifest(ctx context.Context, id string) (model.Manifest, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Manifest{}, false, err
	}
	return loadManifest(ctx, db, id)
}

func (s *SQLiteStore) ListManifests(ctx context.Context) ([]model.Manifest, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM manifests ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Manifest
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		manifest, err := DecodeManifest(payload)
		if err != nil {
			return nil, fmt.Errorf("decode manifest %s: %w", id, err)
		}
		out = append(out, manifest)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendRows(ctx context.Context, datasetID string, rows []model.Row) (int, error) {
	var total int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		manifest, ok, err := loadManifest(ctx, tx, datasetID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO rows (dataset_id, idx, payload) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range stamp(rows, manifest.NumRows) {
			payload, err := EncodeRow(row)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, datasetID, row.Index, payload); err != nil {
				return err
			}
		}
		manifest.NumRows += len(rows)
		total = manifest.NumRows
		return upsertManifest(ctx, tx, manifest)
	})
	return total, err
}

func (s *SQLiteStore) GetRows(ctx context.Context, datasetID string, offset, limit int) ([]model.Row, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if _, ok, err := loadManifest(ctx, db, datasetID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT idx, payload FROM rows
		WHERE dataset_id = ?
		ORDER BY idx
		LIMIT ? OFFSET ?
	`, datasetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var (
			idx     int
			payload []byte
		)
		if err := rows.Scan(&idx, &payload); err != nil {
			return nil, err
		}
		row, err := DecodeRow(payload)
		if err != nil {
			return nil, fmt.Errorf("decode row %s/%d: %w", datasetID, idx, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS manifests (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS rows (
			dataset_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (dataset_id, idx)
		);
	`)
	return err
}
