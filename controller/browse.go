package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/aluiziolira/go-bookbase/config"
	"github.com/aluiziolira/go-bookbase/models"
)

// Aggregator fetches several categories at once.
type Aggregator interface {
	Aggregate(ctx context.Context, queries []models.CategoryQuery) []models.CategoryResult
}

// Searcher runs a single catalog search.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.BookRecord, error)
}

// BrowseState is a snapshot of the browse view. Categories is set for
// StatusSuccess, Err for StatusError.
type BrowseState struct {
	Status     Status
	Categories []models.CategoryResult
	Err        error
}

// Browse owns the query text and the categories on screen.
type Browse struct {
	aggregator   Aggregator
	searcher     Searcher
	mode         string
	defaultQuery string
	categories   []models.CategoryQuery
	maxResults   int

	mu         sync.Mutex
	query      string
	generation uint64
	cancel     context.CancelFunc
	state      BrowseState

	changed  *notifier
	inflight sync.WaitGroup
}

// NewBrowse returns a controller in the Loading state.
func NewBrowse(aggregator Aggregator, searcher Searcher, cfg *config.Config) *Browse {
	return &Browse{
		aggregator:   aggregator,
		searcher:     searcher,
		mode:         cfg.Mode,
		defaultQuery: cfg.DefaultQuery,
		categories:   cfg.Categories,
		maxResults:   cfg.MaxResults,
		state:        BrowseState{Status: StatusLoading},
		changed:      newNotifier(),
	}
}

// Start loads the default view: every configured category in browse mode,
// or the default query in search mode.
func (b *Browse) Start(ctx context.Context) {
	b.launch(ctx, b.defaultView)
}

// UpdateQuery stores text without fetching anything.
func (b *Browse) UpdateQuery(text string) {
	b.mu.Lock()
	b.query = text
	b.mu.Unlock()
}

// Query returns the current query text.
func (b *Browse) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// SubmitSearch searches for the current query. A blank query shows the
// default view instead.
func (b *Browse) SubmitSearch(ctx context.Context) {
	query := b.Query()
	if strings.TrimSpace(query) == "" {
		b.Start(ctx)
		return
	}
	b.launch(ctx, func(ctx context.Context) BrowseState {
		return b.search(ctx, query)
	})
}

// ClearSearch empties the query and shows the default view.
func (b *Browse) ClearSearch(ctx context.Context) {
	b.UpdateQuery("")
	b.Start(ctx)
}

// State returns the current snapshot.
func (b *Browse) State() BrowseState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Changed is closed on the next state change.
func (b *Browse) Changed() <-chan struct{} {
	return b.changed.wait()
}

// Wait blocks until every launched operation has returned.
func (b *Browse) Wait() {
	b.inflight.Wait()
}

func (b *Browse) launch(ctx context.Context, run func(context.Context) BrowseState) {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	if b.cancel != nil {
		b.cancel()
	}
	opCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.inflight.Add(1)
	b.setLocked(BrowseState{Status: StatusLoading})
	b.mu.Unlock()

	go func() {
		defer b.inflight.Done()
		defer cancel()

		next := run(opCtx)

		b.mu.Lock()
		defer b.mu.Unlock()
		if gen != b.generation {
			slog.Debug("dropping superseded browse result",
				slog.Uint64("generation", gen),
				slog.Uint64("current", b.generation),
			)
			return
		}
		b.setLocked(next)
	}()
}

func (b *Browse) defaultView(ctx context.Context) BrowseState {
	if b.mode == config.ModeSearch {
		return b.search(ctx, b.defaultQuery)
	}
	return BrowseState{
		Status:     StatusSuccess,
		Categories: b.aggregator.Aggregate(ctx, b.categories),
	}
}

func (b *Browse) search(ctx context.Context, query string) BrowseState {
	books, err := b.searcher.Search(ctx, query, b.maxResults)
	if err != nil {
		slog.Warn("search failed", slog.String("query", query), slog.Any("error", err))
		return BrowseState{Status: StatusError, Err: err}
	}
	return BrowseState{
		Status: StatusSuccess,
		Categories: []models.CategoryResult{{
			Query: models.CategoryQuery{Label: query, Query: query},
			Books: books,
		}},
	}
}

// setLocked requires b.mu.
func (b *Browse) setLocked(s BrowseState) {
	b.state = s
	b.changed.broadcast()
}
