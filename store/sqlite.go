package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-bookbase/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository keeps the reading list in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens dsn and creates the schema if needed.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to an in-memory database is a separate database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	repo, err := NewSQLiteRepository(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLiteRepository wraps an open handle and migrates it.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	err := migrate(ctx, func(ctx context.Context, stmt string) error {
		_, err := db.ExecContext(ctx, stmt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]models.ReadingListEntry, error) {
	const q = `SELECT book_id, title, COALESCE(authors, ''), COALESCE(thumbnail, ''), added_date
		FROM reading_list ORDER BY added_date DESC, book_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.ReadingListEntry, 0)
	for rows.Next() {
		var e models.ReadingListEntry
		if err := rows.Scan(&e.BookID, &e.Title, &e.Authors, &e.Thumbnail, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (models.ReadingListEntry, bool, error) {
	const q = `SELECT book_id, title, COALESCE(authors, ''), COALESCE(thumbnail, ''), added_date
		FROM reading_list WHERE book_id = ?`
	var e models.ReadingListEntry
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.BookID, &e.Title, &e.Authors, &e.Thumbnail, &e.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReadingListEntry{}, false, nil
	}
	if err != nil {
		return models.ReadingListEntry{}, false, err
	}
	return e, true, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e models.ReadingListEntry) error {
	const q = `INSERT INTO reading_list (book_id, title, authors, thumbnail, added_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			thumbnail = excluded.thumbnail,
			added_date = excluded.added_date`
	_, err := r.db.ExecContext(ctx, q, e.BookID, e.Title, e.Authors, e.Thumbnail, e.AddedAt)
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reading_list WHERE book_id = ?`, id)
	return err
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reading_list WHERE book_id = ?)`, id).Scan(&exists)
	return exists, err
}

func (r *SQLiteRepository) MaxAddedAt(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(added_date), 0) FROM reading_list`).Scan(&max)
	return max, err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
