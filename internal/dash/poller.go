package dash

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/metrics"
)

// QueueSource fetches the waiting-player list.
type QueueSource interface {
	QueuePlayers(ctx context.Context) ([]api.QueueEntry, error)
}

// RecentSource fetches recently completed matches.
type RecentSource interface {
	RecentMatches(ctx context.Context) ([]api.RecentMatch, error)
}

// Snapshot is the latest view of a polled collection.
type Snapshot[T any] struct {
	Items T
	// Updated is when Items were fetched; zero until the first success.
	Updated time.Time
	// Err is the most recent failure. Items keep the last good data.
	Err error
}

// view is a polled collection. Every Refresh issues its own fetch;
// completions are applied on the loop in completion order, so the last
// fetch to complete wins regardless of issue order.
type view[T any] struct {
	name  string
	fetch func(context.Context) (T, error)
	loop  *Loop
	snap  Value[Snapshot[T]]

	mu      sync.Mutex
	ctx     context.Context
	wg      sync.WaitGroup
	issued  uint64
	applied uint64 // loop only

	onApply func(T)
}

func (v *view[T]) bind(ctx context.Context) {
	v.mu.Lock()
	v.ctx = ctx
	v.mu.Unlock()
}

// wait unbinds the view and blocks until in-flight fetches finish.
func (v *view[T]) wait() {
	v.mu.Lock()
	v.ctx = nil
	v.mu.Unlock()
	v.wg.Wait()
}

// Refresh issues one fetch. It returns false when the view is not running.
func (v *view[T]) Refresh() bool {
	v.mu.Lock()
	ctx := v.ctx
	if ctx == nil || ctx.Err() != nil {
		v.mu.Unlock()
		return false
	}
	v.issued++
	seq := v.issued
	v.wg.Add(1)
	v.mu.Unlock()

	go func() {
		defer v.wg.Done()
		items, err := v.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		v.loop.Post(func() { v.apply(seq, items, err) })
	}()
	return true
}

func (v *view[T]) apply(seq uint64, items T, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		metrics.Polls.WithLabelValues(v.name, "error").Inc()
		slog.Warn("refresh failed", "view", v.name, "error", err)
		s := v.snap.Get()
		s.Err = err
		v.snap.Set(s)
		return
	}

	metrics.Polls.WithLabelValues(v.name, "ok").Inc()
	if seq < v.applied {
		metrics.PollsOutOfOrder.WithLabelValues(v.name).Inc()
		slog.Debug("refresh completed out of order", "view", v.name, "seq", seq, "newest", v.applied)
	} else {
		v.applied = seq
	}
	if v.onApply != nil {
		v.onApply(items)
	}
	v.snap.Set(Snapshot[T]{Items: items, Updated: time.Now()})
}

// Snapshot returns the latest applied snapshot.
func (v *view[T]) Snapshot() Snapshot[T] { return v.snap.Get() }

// Subscribe calls fn on the loop every time a fetch completes.
func (v *view[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	return v.snap.Subscribe(fn)
}

// QueuePoller keeps the queue snapshot fresh: once on start, then every
// interval, plus one fetch shortly after each match-found signal.
type QueuePoller struct {
	view[[]api.QueueEntry]
	interval time.Duration
	settle   time.Duration
	control  *PollControl
}

// NewQueuePoller creates a poller. control may be nil.
func NewQueuePoller(src QueueSource, loop *Loop, interval, settle time.Duration, control *PollControl) *QueuePoller {
	p := &QueuePoller{interval: interval, settle: settle, control: control}
	p.view = view[[]api.QueueEntry]{
		name:    "queue",
		fetch:   src.QueuePlayers,
		loop:    loop,
		onApply: func(q []api.QueueEntry) { metrics.QueueSize.Set(float64(len(q))) },
	}
	return p
}

// Run polls until ctx is cancelled, then waits for in-flight fetches.
func (p *QueuePoller) Run(ctx context.Context) error {
	p.bind(ctx)
	defer p.wait()

	p.Refresh()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if p.control != nil && p.control.IsPaused() {
				continue
			}
			p.Refresh()
		}
	}
}

// RefreshAfterMatch schedules one fetch after the settle delay, giving the
// server time to drop matched players from the queue.
func (p *QueuePoller) RefreshAfterMatch() {
	p.mu.Lock()
	ctx := p.ctx
	if ctx == nil || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		t := time.NewTimer(p.settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			p.Refresh()
		}
	}()
}

// RecentLoader fetches recent matches on start and on every Refresh.
type RecentLoader struct {
	view[[]api.RecentMatch]
}

// NewRecentLoader creates a loader.
func NewRecentLoader(src RecentSource, loop *Loop) *RecentLoader {
	r := &RecentLoader{}
	r.view = view[[]api.RecentMatch]{
		name:  "recent",
		fetch: src.RecentMatches,
		loop:  loop,
	}
	return r
}

// Run loads once and then serves Refresh calls until ctx is cancelled.
func (r *RecentLoader) Run(ctx context.Context) error {
	r.bind(ctx)
	defer r.wait()

	r.Refresh()
	<-ctx.Done()
	return nil
}
