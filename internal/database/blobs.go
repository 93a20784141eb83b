package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pm-go/internal/pm"
)

// SQLiteBlobStore implements pm.BlobStore on the blobs table. Each write is
// a single upsert, so a blob is replaced atomically.
type SQLiteBlobStore struct {
	db *sql.DB
}

// NewSQLiteBlobStore wraps a migrated connection.
func NewSQLiteBlobStore(db *sql.DB) *SQLiteBlobStore {
	return &SQLiteBlobStore{db: db}
}

func (s *SQLiteBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blobs WHERE path = ?`, path).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking blob %s: %w", path, err)
	}
	return true, nil
}

func (s *SQLiteBlobStore) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE path = ?`, path).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", pm.ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("reading blob %s: %w", path, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *SQLiteBlobStore) Write(ctx context.Context, path string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (path, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		path, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing blob %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteBlobStore) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting blob %s: %w", path, err)
	}
	return nil
}

// CreateDirectory is a no-op: paths are plain keys.
func (s *SQLiteBlobStore) CreateDirectory(context.Context, string) error {
	return nil
}

// Compile-time check that SQLiteBlobStore implements pm.BlobStore interface
var _ pm.BlobStore = (*SQLiteBlobStore)(nil)
