// Package pipeline streams catalog records to disk in batches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-bookbase/config"
	"github.com/aluiziolira/go-bookbase/models"
	"github.com/aluiziolira/go-bookbase/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: timed out draining workers")
)

var drainTimeout = 30 * time.Second

// OutputWriter receives validated, de-duplicated batches.
type OutputWriter interface {
	Write(books []*models.BookRecord) error
	Close() error
	Validate() error
}

// Pipeline validates records, drops repeated volume ids and writes batches.
type Pipeline struct {
	ctx       context.Context
	writer    OutputWriter
	bookCh    chan *models.BookRecord
	batchSize int

	wg sync.WaitGroup

	// seen holds recently written ids; a volume often shows up in several categories.
	seen *lru.Cache[string, struct{}]

	counters *counters

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline sizes buffers from cfg.
func NewPipeline(ctx context.Context, writer OutputWriter, cfg *config.Config) *Pipeline {
	bufferSize := cfg.PipelineBufferSize
	if bufferSize <= 0 {
		bufferSize = 1
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	dedupeSize := cfg.DedupeMaxSize
	if dedupeSize <= 0 {
		dedupeSize = 1024
	}
	seen, _ := lru.New[string, struct{}](dedupeSize)

	return &Pipeline{
		ctx:       ctx,
		writer:    writer,
		bookCh:    make(chan *models.BookRecord, bufferSize),
		batchSize: batchSize,
		seen:      seen,
		counters:  newCounters(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues records. It blocks while the buffer is full.
func (p *Pipeline) Process(books ...*models.BookRecord) error {
	if len(books) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, book := range books {
		if book == nil {
			continue
		}
		if err := p.enqueue(book); err != nil {
			return err
		}
	}
	return nil
}

// ProcessResults enqueues every book of every category.
func (p *Pipeline) ProcessResults(results []models.CategoryResult) error {
	for _, r := range results {
		for i := range r.Books {
			if err := p.Process(&r.Books[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close stops intake and waits up to drainTimeout for workers to flush.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.bookCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return p.Err()
	case <-time.After(drainTimeout):
		slog.Warn("pipeline drain timed out", slog.Duration("timeout", drainTimeout))
		return ErrPipelineCloseTimeout
	}
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.counters.snapshot()
}

// StartMetricsReporting logs progress every interval until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Any("processed", m["processed_records"]),
					slog.Any("rejected", m["rejected"]),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.BookRecord, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for book := range p.bookCh {
		prepared := p.prepare(book)
		if prepared == nil {
			continue
		}
		batch = append(batch, prepared)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) prepare(book *models.BookRecord) *models.BookRecord {
	if err := parser.ValidateRecord(book); err != nil {
		p.counters.reject("invalid_record")
		slog.Debug("record rejected", slog.String("id", book.ID), slog.Any("error", err))
		return nil
	}

	if found, _ := p.seen.ContainsOrAdd(book.ID, struct{}{}); found {
		p.counters.reject("duplicate_id")
		return nil
	}

	p.counters.processed.Add(1)
	return book
}

func (p *Pipeline) enqueue(book *models.BookRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.bookCh <- book:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

// counters tracks written and rejected records.
type counters struct {
	processed atomic.Int64

	mu       sync.Mutex
	rejected map[string]int
}

func newCounters() *counters {
	return &counters{rejected: make(map[string]int)}
}

func (c *counters) reject(reason string) {
	c.mu.Lock()
	c.rejected[reason]++
	c.mu.Unlock()
}

func (c *counters) snapshot() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	rejected := make(map[string]int, len(c.rejected))
	for k, v := range c.rejected {
		rejected[k] = v
	}
	return map[string]interface{}{
		"processed_records": c.processed.Load(),
		"rejected":          rejected,
	}
}
