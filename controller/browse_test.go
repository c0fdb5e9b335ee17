package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aluiziolira/go-bookbase/config"
	"github.com/aluiziolira/go-bookbase/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAggregator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAggregator) Aggregate(ctx context.Context, queries []models.CategoryQuery) []models.CategoryResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	out := make([]models.CategoryResult, len(queries))
	for i, q := range queries {
		out[i] = models.CategoryResult{Query: q, Books: []models.BookRecord{{ID: q.Query, Title: q.Label}}}
	}
	return out
}

func (f *fakeAggregator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// gatedSearcher blocks each query until its gate is released. It ignores
// cancellation so superseded searches still complete.
type gatedSearcher struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	errs   map[string]error
	called map[string]chan struct{}
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{
		gates:  map[string]chan struct{}{},
		errs:   map[string]error{},
		called: map[string]chan struct{}{},
	}
}

func (g *gatedSearcher) gate(query string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gates[query] = make(chan struct{})
	g.called[query] = make(chan struct{})
}

func (g *gatedSearcher) release(query string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.gates[query])
}

func (g *gatedSearcher) waitCalled(t *testing.T, query string) {
	t.Helper()
	g.mu.Lock()
	ch := g.called[query]
	g.mu.Unlock()
	<-ch
}

func (g *gatedSearcher) Search(ctx context.Context, query string, maxResults int) ([]models.BookRecord, error) {
	g.mu.Lock()
	gate := g.gates[query]
	called := g.called[query]
	err := g.errs[query]
	g.mu.Unlock()

	if called != nil {
		close(called)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []models.BookRecord{{ID: query + "-1", Title: "Result for " + query}}, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Categories = []models.CategoryQuery{
		{Label: "Fantasy", Query: "fantasy"},
		{Label: "Romance", Query: "romance"},
	}
	return cfg
}

func TestBrowseStartsInLoading(t *testing.T) {
	b := NewBrowse(&fakeAggregator{}, newGatedSearcher(), testConfig())
	assert.Equal(t, StatusLoading, b.State().Status)
}

func TestBrowseStartAggregatesCategories(t *testing.T) {
	agg := &fakeAggregator{}
	b := NewBrowse(agg, newGatedSearcher(), testConfig())

	b.Start(context.Background())
	b.Wait()

	state := b.State()
	require.Equal(t, StatusSuccess, state.Status)
	require.Len(t, state.Categories, 2)
	assert.Equal(t, "Fantasy", state.Categories[0].Query.Label)
	assert.Equal(t, "Romance", state.Categories[1].Query.Label)
}

func TestBrowseSearchModeDefaultView(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = config.ModeSearch
	cfg.DefaultQuery = "bestsellers"
	agg := &fakeAggregator{}
	b := NewBrowse(agg, newGatedSearcher(), cfg)

	b.Start(context.Background())
	b.Wait()

	state := b.State()
	require.Equal(t, StatusSuccess, state.Status)
	require.Len(t, state.Categories, 1)
	assert.Equal(t, "bestsellers", state.Categories[0].Query.Query)
	assert.Zero(t, agg.callCount())
}

func TestBrowseUpdateQueryDoesNotFetch(t *testing.T) {
	agg := &fakeAggregator{}
	b := NewBrowse(agg, newGatedSearcher(), testConfig())

	b.UpdateQuery("  dune ")
	assert.Equal(t, "  dune ", b.Query())
	assert.Equal(t, StatusLoading, b.State().Status)
	assert.Zero(t, agg.callCount())
}

func TestBrowseBlankSubmitIsStart(t *testing.T) {
	agg := &fakeAggregator{}
	b := NewBrowse(agg, newGatedSearcher(), testConfig())

	b.UpdateQuery("   ")
	b.SubmitSearch(context.Background())
	b.Wait()

	state := b.State()
	assert.Equal(t, StatusSuccess, state.Status)
	assert.Len(t, state.Categories, 2)
	assert.Equal(t, 1, agg.callCount())
}

func TestBrowseSubmitSearchUsesQueryAsLabel(t *testing.T) {
	b := NewBrowse(&fakeAggregator{}, newGatedSearcher(), testConfig())

	b.UpdateQuery("dune")
	b.SubmitSearch(context.Background())
	b.Wait()

	state := b.State()
	require.Equal(t, StatusSuccess, state.Status)
	require.Len(t, state.Categories, 1)
	assert.Equal(t, models.CategoryQuery{Label: "dune", Query: "dune"}, state.Categories[0].Query)
	assert.Equal(t, "dune-1", state.Categories[0].Books[0].ID)
}

func TestBrowseSearchFailureIsError(t *testing.T) {
	searcher := newGatedSearcher()
	searcher.errs["dune"] = errors.New("offline")
	b := NewBrowse(&fakeAggregator{}, searcher, testConfig())

	b.UpdateQuery("dune")
	b.SubmitSearch(context.Background())
	b.Wait()

	state := b.State()
	assert.Equal(t, StatusError, state.Status)
	assert.Error(t, state.Err)
	assert.Empty(t, state.Categories)
}

func TestBrowseClearSearch(t *testing.T) {
	b := NewBrowse(&fakeAggregator{}, newGatedSearcher(), testConfig())

	b.UpdateQuery("dune")
	b.SubmitSearch(context.Background())
	b.Wait()

	b.ClearSearch(context.Background())
	b.Wait()

	assert.Equal(t, "", b.Query())
	state := b.State()
	assert.Equal(t, StatusSuccess, state.Status)
	assert.Len(t, state.Categories, 2)
}

func TestBrowseLatestSearchWins(t *testing.T) {
	tests := []struct {
		name         string
		releaseOrder []string
	}{
		{name: "older finishes last", releaseOrder: []string{"B", "A"}},
		{name: "older finishes first", releaseOrder: []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := newGatedSearcher()
			searcher.gate("A")
			searcher.gate("B")
			b := NewBrowse(&fakeAggregator{}, searcher, testConfig())
			ctx := context.Background()

			b.UpdateQuery("A")
			b.SubmitSearch(ctx)
			searcher.waitCalled(t, "A")

			b.UpdateQuery("B")
			b.SubmitSearch(ctx)
			searcher.waitCalled(t, "B")
			assert.Equal(t, StatusLoading, b.State().Status)

			for _, q := range tt.releaseOrder {
				searcher.release(q)
			}
			b.Wait()

			state := b.State()
			require.Equal(t, StatusSuccess, state.Status)
			require.Len(t, state.Categories, 1)
			assert.Equal(t, "B", state.Categories[0].Query.Label)
			assert.Equal(t, "B-1", state.Categories[0].Books[0].ID)
		})
	}
}

func TestBrowseChangedSignalsTransitions(t *testing.T) {
	b := NewBrowse(&fakeAggregator{}, newGatedSearcher(), testConfig())
	b.Start(context.Background())

	state := waitFor(t, b.State, b.Changed, func(s BrowseState) bool {
		return s.Status == StatusSuccess
	})
	assert.Len(t, state.Categories, 2)
	b.Wait()
}
