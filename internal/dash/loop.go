// Package dash is the dashboard's real-time synchronization layer: it
// owns the current match, the bounded notification log and the polled
// queue and recent-match views, and keeps them consistent with the
// server's push channel.
package dash

import (
	"context"
	"sync"
)

const inboxSize = 256

// Loop runs handlers one at a time on a single goroutine. Every state
// transition in this package happens inside a Loop handler, so handlers
// are atomic with respect to each other.
type Loop struct {
	inbox chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop creates a loop. Handlers posted before Run starts are queued.
func NewLoop() *Loop {
	return &Loop{
		inbox: make(chan func(), inboxSize),
		done:  make(chan struct{}),
	}
}

// Run drains the inbox until ctx is cancelled. Queued handlers that have
// not started by then are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.inbox:
			fn()
		}
	}
}

// Post queues fn. It returns false once the loop has stopped.
// Do not call Post from inside a handler when the inbox may be full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. Reports whether fn
// ran. Must not be called from a handler.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Stopped is closed when Run returns.
func (l *Loop) Stopped() <-chan struct{} { return l.done }
