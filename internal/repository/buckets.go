// Package repository provides the SQL implementation of the bucket store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLBuckets implements storage.Backend on a single key/value table.
// Queries use $n placeholders, which both PostgreSQL and SQLite accept.
type SQLBuckets struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLBuckets creates a new SQLBuckets over db. The schema must already
// exist (see db.Open).
func NewSQLBuckets(db *sql.DB) *SQLBuckets {
	return &SQLBuckets{DB: db}
}

// Load returns the value stored under bucket. ok is false when no row exists.
func (s *SQLBuckets) Load(ctx context.Context, bucket string) ([]byte, bool, error) {
	var value string
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT value FROM buckets WHERE name = $1`,
		bucket,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load bucket %s: %w", bucket, err)
	}
	return []byte(value), true, nil
}

// Save inserts or replaces the value stored under bucket.
func (s *SQLBuckets) Save(ctx context.Context, bucket string, blob []byte) error {
	_, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO buckets (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
		bucket, string(blob),
	)
	if err != nil {
		return fmt.Errorf("save bucket %s: %w", bucket, err)
	}
	return nil
}

// Clear deletes the row for bucket. Clearing a missing bucket is not an error.
func (s *SQLBuckets) Clear(ctx context.Context, bucket string) error {
	_, err := s.DB.ExecContext(
		ctx,
		`DELETE FROM buckets WHERE name = $1`,
		bucket,
	)
	if err != nil {
		return fmt.Errorf("clear bucket %s: %w", bucket, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLBuckets) Close() error {
	return s.DB.Close()
}
