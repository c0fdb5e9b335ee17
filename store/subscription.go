package store

import (
	"sync"

	"github.com/aluiziolira/go-bookbase/models"
)

// Update is one emission of a live reading-list view. Err is set when the
// snapshot could not be produced; Entries is nil in that case.
type Update struct {
	Entries []models.ReadingListEntry
	Err     error
}

// Subscription is a live view of the store. It buffers at most one update:
// a newer snapshot replaces an unread one.
type Subscription struct {
	store   *Store
	updates chan Update
	done    chan struct{}
	once    sync.Once
}

func newSubscription(s *Store) *Subscription {
	return &Subscription{
		store:   s,
		updates: make(chan Update, 1),
		done:    make(chan struct{}),
	}
}

// Updates yields the current snapshot first, then one per change. The
// channel is closed after Close.
func (sub *Subscription) Updates() <-chan Update {
	return sub.updates
}

// Done is closed once the subscription is detached.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// Close detaches the subscription. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.store.detach(sub)
		close(sub.done)
	})
}

// offer must only be called by the single publisher holding the store's
// subscriber lock.
func (sub *Subscription) offer(u Update) {
	for {
		select {
		case sub.updates <- u:
			return
		default:
		}
		select {
		case <-sub.updates:
		default:
		}
	}
}
