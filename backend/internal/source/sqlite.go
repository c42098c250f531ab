// Package source persists canonical product records. The graph is a derived
// index over this store and can always be rebuilt from it.
package source

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"brewgraph/backend/internal/normalize"
	apperrors "brewgraph/backend/pkg/errors"
)

// UpsertResult reports what an upsert did
type UpsertResult string

const (
	Inserted  UpsertResult = "inserted"
	Updated   UpsertResult = "updated"
	Unchanged UpsertResult = "unchanged"
)

// SQLiteStore stores records as JSON keyed by product id
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the record database at path.
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create source directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS product_records (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL DEFAULT '',  -- normalized brand identity
		content_hash TEXT NOT NULL,
		record TEXT NOT NULL,               -- JSON ProductRecord
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_product_records_brand ON product_records(brand_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert stores a record, reporting whether it was new, changed or identical
// to the stored copy
func (s *SQLiteStore) Upsert(ctx context.Context, rec *normalize.ProductRecord) (UpsertResult, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	var existing string
	err = s.db.QueryRowContext(ctx, `SELECT content_hash FROM product_records WHERE id = ?`, rec.ID).Scan(&existing)
	result := Updated
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result = Inserted
	case err != nil:
		return "", fmt.Errorf("lookup record %s: %w", rec.ID, err)
	case existing == hash:
		return Unchanged, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO product_records (id, brand_id, content_hash, record, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			brand_id = excluded.brand_id,
			content_hash = excluded.content_hash,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, rec.ID, normalize.NodeID(rec.Brand), hash, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	return result, nil
}

// Get returns one record
func (s *SQLiteStore) Get(ctx context.Context, id string) (*normalize.ProductRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM product_records WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("record", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return decode(data)
}

// List returns every record ordered by id
func (s *SQLiteStore) List(ctx context.Context) ([]*normalize.ProductRecord, error) {
	return s.query(ctx, `SELECT record FROM product_records ORDER BY id`)
}

// ListByBrand returns the records of one brand, matched on normalized identity
func (s *SQLiteStore) ListByBrand(ctx context.Context, brand string) ([]*normalize.ProductRecord, error) {
	return s.query(ctx, `SELECT record FROM product_records WHERE brand_id = ? ORDER BY id`, normalize.NodeID(brand))
}

// Count returns the number of stored records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]*normalize.ProductRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*normalize.ProductRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func decode(data string) (*normalize.ProductRecord, error) {
	var rec normalize.ProductRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}
