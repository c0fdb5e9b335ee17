// Package store persists the reading list and publishes live snapshots of it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-bookbase/models"
)

// ErrEmptyID is returned when an entry has no book identifier.
var ErrEmptyID = errors.New("empty book id")

// StoreError wraps any persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error {
	return e.Err
}

// Repository is a durable reading_list table.
type Repository interface {
	All(ctx context.Context) ([]models.ReadingListEntry, error)
	Get(ctx context.Context, id string) (models.ReadingListEntry, bool, error)
	Upsert(ctx context.Context, entry models.ReadingListEntry) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	MaxAddedAt(ctx context.Context) (int64, error)
	Close() error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reading_list (
    book_id    TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    authors    TEXT,
    thumbnail  TEXT,
    added_date BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reading_list_added_date ON reading_list (added_date DESC);
`

// migrate runs each schema statement through exec.
func migrate(ctx context.Context, exec func(ctx context.Context, stmt string) error) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
