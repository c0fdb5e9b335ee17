package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-bookbase/models"
	"github.com/aluiziolira/go-bookbase/store"
	"github.com/stretchr/testify/require"
)

// waitFor polls a controller's snapshot until cond holds.
func waitFor[S any](t *testing.T, state func() S, changed func() <-chan struct{}, cond func(S) bool) S {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		ch := changed()
		s := state()
		if cond(s) {
			return s
		}
		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("condition not reached, last state %+v", s)
			return s
		}
	}
}

var errUnavailable = errors.New("database unavailable")

// failingRepo lets tests break individual operations of a real repository.
type failingRepo struct {
	store.Repository
	failAll    atomic.Bool
	failDelete atomic.Bool
	failUpsert atomic.Bool
	failExists atomic.Bool
}

func (r *failingRepo) All(ctx context.Context) ([]models.ReadingListEntry, error) {
	if r.failAll.Load() {
		return nil, errUnavailable
	}
	return r.Repository.All(ctx)
}

func (r *failingRepo) Delete(ctx context.Context, id string) error {
	if r.failDelete.Load() {
		return errUnavailable
	}
	return r.Repository.Delete(ctx, id)
}

func (r *failingRepo) Upsert(ctx context.Context, e models.ReadingListEntry) error {
	if r.failUpsert.Load() {
		return errUnavailable
	}
	return r.Repository.Upsert(ctx, e)
}

func (r *failingRepo) Exists(ctx context.Context, id string) (bool, error) {
	if r.failExists.Load() {
		return false, errUnavailable
	}
	return r.Repository.Exists(ctx, id)
}

func newTestStore(t *testing.T) (*store.Store, *failingRepo) {
	t.Helper()
	ctx := context.Background()
	sqlite, err := store.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	repo := &failingRepo{Repository: sqlite}
	s, err := store.New(ctx, repo, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, repo
}

func book(id, title string) models.BookRecord {
	return models.BookRecord{ID: id, Title: title, Authors: []string{"A. Writer"}}
}
