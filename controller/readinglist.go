package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-bookbase/models"
	"github.com/aluiziolira/go-bookbase/store"
)

// ReadingListState is a snapshot of the reading-list view. Entries holds the
// last list that loaded successfully, also while Status is StatusError.
type ReadingListState struct {
	Status  Status
	Entries []models.ReadingListEntry
	Message string
}

// ReadingList mirrors the store's live view.
type ReadingList struct {
	store ReadingListStore

	mu    sync.Mutex
	state ReadingListState
	sub   *store.Subscription
	done  chan struct{}

	changed *notifier
}

// NewReadingList returns a controller in the Loading state.
func NewReadingList(s ReadingListStore) *ReadingList {
	return &ReadingList{
		store:   s,
		state:   ReadingListState{Status: StatusLoading},
		done:    make(chan struct{}),
		changed: newNotifier(),
	}
}

// Start subscribes to the store until ctx ends or Close is called. It must
// be called at most once.
func (c *ReadingList) Start(ctx context.Context) {
	sub := c.store.Observe(ctx)
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		for u := range sub.Updates() {
			c.apply(u)
		}
	}()
}

// Close detaches from the store and waits for the mirror loop to exit.
func (c *ReadingList) Close() {
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Close()
	<-c.done
}

// Add saves book to the reading list.
func (c *ReadingList) Add(ctx context.Context, book models.BookRecord) error {
	if err := c.store.Add(ctx, models.NewReadingListEntry(book)); err != nil {
		c.fail(fmt.Sprintf("could not add %q to reading list: %v", book.Title, err))
		return err
	}
	return nil
}

// Remove deletes entry. On failure the view moves to StatusError and keeps
// the entries it had.
func (c *ReadingList) Remove(ctx context.Context, entry models.ReadingListEntry) error {
	if err := c.store.Remove(ctx, entry.BookID); err != nil {
		c.fail(fmt.Sprintf("could not remove %q from reading list: %v", entry.Title, err))
		return err
	}
	return nil
}

// Contains reports whether id is saved.
func (c *ReadingList) Contains(ctx context.Context, id string) (bool, error) {
	return c.store.Exists(ctx, id)
}

// State returns the current snapshot.
func (c *ReadingList) State() ReadingListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Changed is closed on the next state change.
func (c *ReadingList) Changed() <-chan struct{} {
	return c.changed.wait()
}

func (c *ReadingList) apply(u store.Update) {
	if u.Err != nil {
		c.fail(fmt.Sprintf("could not load reading list: %v", u.Err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(u.Entries) == 0 {
		c.state = ReadingListState{Status: StatusEmpty, Entries: []models.ReadingListEntry{}}
	} else {
		c.state = ReadingListState{Status: StatusSuccess, Entries: u.Entries}
	}
	c.changed.broadcast()
}

func (c *ReadingList) fail(message string) {
	slog.Warn("reading list error", slog.String("message", message))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ReadingListState{Status: StatusError, Entries: c.state.Entries, Message: message}
	c.changed.broadcast()
}
