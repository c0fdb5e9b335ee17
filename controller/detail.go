package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-bookbase/catalog"
	"github.com/aluiziolira/go-bookbase/models"
	"golang.org/x/sync/errgroup"
)

// ErrBookNotLoaded is returned by Toggle before a book has been loaded.
var ErrBookNotLoaded = errors.New("book not loaded")

// Fetcher resolves a single volume.
type Fetcher interface {
	FetchByID(ctx context.Context, id string) (models.BookRecord, error)
}

// DetailState is a snapshot of the detail view. Book stays set after a later
// failure; Error carries the user-facing message.
type DetailState struct {
	IsLoading     bool
	Error         string
	Book          *models.BookRecord
	InReadingList bool
	JustAdded     bool
}

// Detail shows one book and its reading-list membership.
type Detail struct {
	fetcher Fetcher
	store   ReadingListStore
	id      string

	toggleMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	state      DetailState

	changed *notifier
}

// NewDetail returns a controller for book id. Nothing is fetched until Load.
func NewDetail(fetcher Fetcher, s ReadingListStore, id string) *Detail {
	return &Detail{
		fetcher: fetcher,
		store:   s,
		id:      id,
		state:   DetailState{IsLoading: true},
		changed: newNotifier(),
	}
}

// Load fetches the book and checks membership concurrently. It returns the
// fetch error, or else the membership error.
func (d *Detail) Load(ctx context.Context) error {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	d.state.IsLoading = true
	d.state.Error = ""
	d.state.JustAdded = false
	d.changed.broadcast()
	d.mu.Unlock()

	var (
		book      models.BookRecord
		fetchErr  error
		inList    bool
		existsErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		book, fetchErr = d.fetcher.FetchByID(ctx, d.id)
		return nil
	})
	g.Go(func() error {
		inList, existsErr = d.store.Exists(ctx, d.id)
		return nil
	})
	_ = g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		return nil
	}

	next := d.state
	next.IsLoading = false
	if fetchErr == nil {
		next.Book = &book
	}
	if existsErr == nil {
		next.InReadingList = inList
	}

	var err error
	switch {
	case fetchErr != nil:
		err = fetchErr
		if catalog.IsNotFound(fetchErr) {
			next.Error = "book not found"
		} else {
			next.Error = fmt.Sprintf("could not load book details: %v", fetchErr)
		}
	case existsErr != nil:
		err = existsErr
		next.Error = fmt.Sprintf("could not check reading list: %v", existsErr)
	}
	if err != nil {
		slog.Warn("detail load failed", slog.String("id", d.id), slog.Any("error", err))
	}

	d.state = next
	d.changed.broadcast()
	return err
}

// Toggle adds the loaded book to the reading list, or removes it when it is
// already there.
func (d *Detail) Toggle(ctx context.Context) error {
	d.toggleMu.Lock()
	defer d.toggleMu.Unlock()

	d.mu.Lock()
	book := d.state.Book
	member := d.state.InReadingList
	d.mu.Unlock()
	if book == nil {
		return ErrBookNotLoaded
	}

	if member {
		return d.remove(ctx, book.ID)
	}

	if err := d.store.Add(ctx, models.NewReadingListEntry(*book)); err != nil {
		d.fail(fmt.Sprintf("could not add to reading list: %v", err))
		return err
	}
	d.update(func(s *DetailState) {
		s.InReadingList = true
		s.JustAdded = true
		s.Error = ""
	})
	return nil
}

func (d *Detail) remove(ctx context.Context, id string) error {
	entry, ok, err := d.store.Get(ctx, id)
	if err != nil {
		d.fail(fmt.Sprintf("could not update reading list: %v", err))
		return err
	}
	if ok {
		if err := d.store.Remove(ctx, entry.BookID); err != nil {
			d.fail(fmt.Sprintf("could not remove from reading list: %v", err))
			return err
		}
	}
	d.update(func(s *DetailState) {
		s.InReadingList = false
		s.JustAdded = false
		s.Error = ""
	})
	return nil
}

// State returns the current snapshot.
func (d *Detail) State() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Changed is closed on the next state change.
func (d *Detail) Changed() <-chan struct{} {
	return d.changed.wait()
}

func (d *Detail) update(fn func(*DetailState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.state)
	d.changed.broadcast()
}

func (d *Detail) fail(message string) {
	slog.Warn("detail error", slog.String("id", d.id), slog.String("message", message))
	d.update(func(s *DetailState) {
		s.Error = message
		s.JustAdded = false
	})
}
