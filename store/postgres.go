package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aluiziolira/go-bookbase/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository keeps the reading list in PostgreSQL.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// OpenPostgres connects to dsn and creates the schema if needed.
// timeout bounds every individual query.
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &PostgresRepository{pool: pool, timeout: timeout}

	pingCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	err = migrate(ctx, func(ctx context.Context, stmt string) error {
		execCtx, cancel := r.withTimeout(ctx)
		defer cancel()
		_, err := pool.Exec(execCtx, stmt)
		return err
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepository) All(ctx context.Context) ([]models.ReadingListEntry, error) {
	const q = `SELECT book_id, title, COALESCE(authors, ''), COALESCE(thumbnail, ''), added_date
		FROM reading_list ORDER BY added_date DESC, book_id`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(timeoutCtx, q)
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

func (r *PostgresRepository) Get(ctx context.Context, id string) (models.ReadingListEntry, bool, error) {
	const q = `SELECT book_id, title, COALESCE(authors, ''), COALESCE(thumbnail, ''), added_date
		FROM reading_list WHERE book_id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var e models.ReadingListEntry
	err := r.pool.QueryRow(timeoutCtx, q, id).Scan(&e.BookID, &e.Title, &e.Authors, &e.Thumbnail, &e.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ReadingListEntry{}, false, nil
	}
	if err != nil {
		return models.ReadingListEntry{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, e models.ReadingListEntry) error {
	const q = `INSERT INTO reading_list (book_id, title, authors, thumbnail, added_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (book_id) DO UPDATE SET
			title = EXCLUDED.title,
			authors = EXCLUDED.authors,
			thumbnail = EXCLUDED.thumbnail,
			added_date = EXCLUDED.added_date`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.pool.Exec(timeoutCtx, q, e.BookID, e.Title, e.Authors, e.Thumbnail, e.AddedAt)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.pool.Exec(timeoutCtx, `DELETE FROM reading_list WHERE book_id = $1`, id)
	return err
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var exists bool
	err := r.pool.QueryRow(timeoutCtx, `SELECT EXISTS(SELECT 1 FROM reading_list WHERE book_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) MaxAddedAt(ctx context.Context) (int64, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var max int64
	err := r.pool.QueryRow(timeoutCtx, `SELECT COALESCE(MAX(added_date), 0)::BIGINT FROM reading_list`).Scan(&max)
	return max, err
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
