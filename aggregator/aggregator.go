// Package aggregator fans a set of category queries out to the catalog and
// collects the results in input order.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-bookbase/catalog"
	"github.com/aluiziolira/go-bookbase/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Searcher is the slice of the catalog client the aggregator needs.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.BookRecord, error)
}

// Aggregator runs category queries concurrently.
type Aggregator struct {
	searcher    Searcher
	maxResults  int
	maxInFlight int
	metrics     *catalog.Metrics
}

// New returns an Aggregator. maxInFlight <= 0 means no cap.
func New(searcher Searcher, maxResults, maxInFlight int, metrics *catalog.Metrics) *Aggregator {
	return &Aggregator{
		searcher:    searcher,
		maxResults:  maxResults,
		maxInFlight: maxInFlight,
		metrics:     metrics,
	}
}

// Aggregate searches every query and returns one result per query, in the
// same order. A failing query yields an empty book list; the other queries
// are unaffected. Aggregate itself never fails.
func (a *Aggregator) Aggregate(ctx context.Context, queries []models.CategoryQuery) []models.CategoryResult {
	results := make([]models.CategoryResult, len(queries))
	if len(queries) == 0 {
		return results
	}

	runID := uuid.NewString()
	start := time.Now()
	a.metrics.IncAggregate(len(queries))

	// Per-query errors are absorbed, so the group context is never cancelled
	// by a sibling failure.
	var g errgroup.Group
	if a.maxInFlight > 0 {
		g.SetLimit(a.maxInFlight)
	}

	for i, q := range queries {
		g.Go(func() error {
			books, err := a.searcher.Search(ctx, q.Query, a.maxResults)
			if err != nil {
				a.metrics.IncCategoryFailure()
				slog.Warn("category fetch failed",
					slog.String("run_id", runID),
					slog.String("label", q.Label),
					slog.String("query", q.Query),
					slog.String("error_type", catalog.ErrorType(err)),
					slog.Any("error", err),
				)
				books = []models.BookRecord{}
			}
			if books == nil {
				books = []models.BookRecord{}
			}
			results[i] = models.CategoryResult{Query: q, Books: books}
			return nil
		})
	}
	_ = g.Wait()

	slog.Debug("aggregate finished",
		slog.String("run_id", runID),
		slog.Int("categories", len(queries)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return results
}
