// Package controller holds the presentation-facing state machines. Each
// controller exposes a State snapshot, a Changed channel and command methods.
package controller

import (
	"context"
	"sync"

	"github.com/aluiziolira/go-bookbase/models"
	"github.com/aluiziolira/go-bookbase/store"
)

// Status tags a controller snapshot.
type Status int

const (
	StatusLoading Status = iota
	StatusEmpty
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ReadingListStore is the part of store.Store the controllers use.
type ReadingListStore interface {
	Observe(ctx context.Context) *store.Subscription
	Get(ctx context.Context, id string) (models.ReadingListEntry, bool, error)
	Add(ctx context.Context, entry models.ReadingListEntry) error
	Remove(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// notifier hands out a channel that is closed on the next broadcast.
type notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{})}
}

func (n *notifier) wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	close(n.ch)
	n.ch = make(chan struct{})
}
