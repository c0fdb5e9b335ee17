package store

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-bookbase/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

// Store is the reading list. Writes are serialized store-wide; reads run
// concurrently and go through an LRU of entries by id.
type Store struct {
	repo  Repository
	cache *lru.Cache[string, models.ReadingListEntry]
	now   func() time.Time

	mu        sync.RWMutex
	lastStamp int64

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now for AddedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New wraps repo. cacheSize <= 0 selects a default.
func New(ctx context.Context, repo Repository, cacheSize int, opts ...Option) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, models.ReadingListEntry](cacheSize)
	if err != nil {
		return nil, StoreError{Op: "init", Err: err}
	}
	last, err := repo.MaxAddedAt(ctx)
	if err != nil {
		return nil, StoreError{Op: "init", Err: err}
	}

	s := &Store{
		repo:      repo,
		cache:     cache,
		now:       time.Now,
		lastStamp: last,
		subs:      make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Observe returns a live view. The current snapshot is available
// immediately; every later add or remove produces another. The
// subscription is closed when ctx ends or Close is called.
func (s *Store) Observe(ctx context.Context) *Subscription {
	sub := newSubscription(s)

	s.mu.RLock()
	update := s.snapshot(ctx)
	s.subsMu.Lock()
	s.subs[sub] = struct{}{}
	sub.offer(update)
	s.subsMu.Unlock()
	s.mu.RUnlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub
}

// Observers reports the number of attached subscriptions.
func (s *Store) Observers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// List returns the entries, most recently added first.
func (s *Store) List(ctx context.Context) ([]models.ReadingListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, StoreError{Op: "list", Err: err}
	}
	return entries, nil
}

// Get returns the entry for id, if present.
func (s *Store) Get(ctx context.Context, id string) (models.ReadingListEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok, err := s.lookup(ctx, id)
	if err != nil {
		return models.ReadingListEntry{}, false, StoreError{Op: "get", Err: err}
	}
	return entry, ok, nil
}

// Exists reports whether id is in the reading list.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache.Contains(id) {
		return true, nil
	}
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, StoreError{Op: "exists", Err: err}
	}
	return ok, nil
}

// Add inserts entry or replaces the entry with the same id. A replace with
// identical content keeps the stored AddedAt; anything else is stamped with
// a fresh, strictly increasing AddedAt.
func (s *Store) Add(ctx context.Context, entry models.ReadingListEntry) error {
	if strings.TrimSpace(entry.BookID) == "" {
		return StoreError{Op: "add", Err: ErrEmptyID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := s.lookup(ctx, entry.BookID)
	if err != nil {
		return StoreError{Op: "add", Err: err}
	}
	if found && existing.SameContent(entry) {
		entry.AddedAt = existing.AddedAt
	} else {
		entry.AddedAt = s.nextStamp()
		if err := s.repo.Upsert(ctx, entry); err != nil {
			s.cache.Remove(entry.BookID)
			return StoreError{Op: "add", Err: err}
		}
	}
	s.cache.Add(entry.BookID, entry)
	s.publish(ctx)
	return nil
}

// Remove deletes id. Removing an absent id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.cache.Remove(id)
		return StoreError{Op: "remove", Err: err}
	}
	s.cache.Remove(id)
	s.publish(ctx)
	return nil
}

// Close detaches every subscription and closes the repository.
func (s *Store) Close() error {
	s.subsMu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return s.repo.Close()
}

// lookup requires s.mu held in either mode.
func (s *Store) lookup(ctx context.Context, id string) (models.ReadingListEntry, bool, error) {
	if entry, ok := s.cache.Get(id); ok {
		return entry, true, nil
	}
	entry, ok, err := s.repo.Get(ctx, id)
	if err != nil || !ok {
		return models.ReadingListEntry{}, false, err
	}
	s.cache.Add(id, entry)
	return entry, true, nil
}

// nextStamp requires s.mu held for writing.
func (s *Store) nextStamp() int64 {
	stamp := s.now().UnixMilli()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp
	return stamp
}

func (s *Store) snapshot(ctx context.Context) Update {
	entries, err := s.repo.All(context.WithoutCancel(ctx))
	if err != nil {
		slog.Warn("reading list snapshot failed", slog.Any("error", err))
		return Update{Err: StoreError{Op: "observe", Err: err}}
	}
	return Update{Entries: entries}
}

// publish requires s.mu held for writing, so observers see writes in
// commit order.
func (s *Store) publish(ctx context.Context) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if len(s.subs) == 0 {
		return
	}

	update := s.snapshot(ctx)
	for sub := range s.subs {
		u := update
		u.Entries = slices.Clone(update.Entries)
		sub.offer(u)
	}
}

func (s *Store) detach(sub *Subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.updates)
}
