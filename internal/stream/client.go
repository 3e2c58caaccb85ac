// Package stream keeps the server push channel open and turns its
// messages into match-found signals.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/metrics"
)

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second

	// stableAfter is how long a connection must stay up, without
	// delivering anything, before the backoff resets.
	stableAfter = 10 * time.Second
)

// ErrClosedByServer is reported through OnLost when the server ends the
// stream cleanly.
var ErrClosedByServer = errors.New("stream closed by server")

// Opener opens one push connection. *api.Client implements it.
type Opener interface {
	OpenStream(ctx context.Context, lastEventID string) (io.ReadCloser, error)
}

// Client owns a single push connection and reconnects it until its
// context is cancelled. Callbacks run on the goroutine calling Run, in
// delivery order, and never after Run returns.
type Client struct {
	Opener     Opener
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// OnConnected fires each time a connection is established.
	OnConnected func()
	// OnMatch fires for every message carrying a non-empty match_id.
	// Duplicates are passed through.
	OnMatch func(api.MatchNotification)
	// OnLost fires once per outage: when an open connection drops, or
	// when the first attempt of a new outage fails.
	OnLost func(err error)

	// jitter returns a value in [0,1); nil means math/rand.
	jitter func() float64
	// wait pauses between attempts; nil means sleep.
	wait func(ctx context.Context, d time.Duration) bool
}

// Run connects, consumes, and reconnects with capped exponential backoff.
// It returns nil when ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.Opener == nil {
		return fmt.Errorf("stream: no opener configured")
	}

	var (
		lastID  string
		hint    time.Duration
		backoff = c.base(0)
		outage  bool
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		body, err := c.Opener.OpenStream(ctx, lastID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !outage {
				outage = true
				c.lost(err)
			} else {
				slog.Debug("stream reconnect failed", "error", err)
			}
		} else {
			outage = false
			opened := time.Now()
			metrics.StreamConnects.Inc()
			slog.Info("stream connected")
			if c.OnConnected != nil {
				c.OnConnected()
			}

			r := newReader(body)
			var events int
			events, err = c.consume(r)
			body.Close()
			lastID = r.lastID
			if r.retry > 0 {
				hint = r.retry
			}
			// A connection that is accepted then dropped straight away keeps
			// escalating the backoff.
			if events > 0 || time.Since(opened) >= stableAfter {
				backoff = c.base(hint)
			}
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				err = ErrClosedByServer
			}
			outage = true
			c.lost(err)
		}

		delay := c.delay(backoff)
		slog.Info("stream reconnecting", "delay", delay.Round(time.Millisecond))
		wait := c.wait
		if wait == nil {
			wait = sleep
		}
		if !wait(ctx, delay) {
			return nil
		}
		backoff = minDuration(backoff*2, c.max())
	}
}

// consume reads events until the body ends or fails and reports how many
// it dispatched.
func (c *Client) consume(r *reader) (int, error) {
	n := 0
	for {
		ev, err := r.Next()
		if err != nil {
			return n, err
		}
		n++
		c.dispatch(ev)
	}
}

// dispatch decodes a message event. Named events other than "message"
// are not match notifications and are skipped.
func (c *Client) dispatch(ev Event) {
	if ev.Oversized {
		metrics.StreamMessages.WithLabelValues("oversized").Inc()
		slog.Debug("dropping oversized stream message", "id", ev.ID, "limit", maxLine)
		return
	}
	if ev.Type != "" && ev.Type != "message" {
		metrics.StreamMessages.WithLabelValues("ignored").Inc()
		return
	}
	var n api.MatchNotification
	if err := json.Unmarshal([]byte(ev.Data), &n); err != nil {
		metrics.StreamMessages.WithLabelValues("malformed").Inc()
		slog.Debug("dropping malformed stream message", "error", err, "data", truncate(ev.Data, 120))
		return
	}
	if n.MatchID == "" {
		metrics.StreamMessages.WithLabelValues("ignored").Inc()
		return
	}
	metrics.StreamMessages.WithLabelValues("match").Inc()
	if c.OnMatch != nil {
		c.OnMatch(n)
	}
}

func (c *Client) lost(err error) {
	metrics.StreamLost.Inc()
	slog.Warn("stream lost", "error", err)
	if c.OnLost != nil {
		c.OnLost(err)
	}
}

func (c *Client) base(hint time.Duration) time.Duration {
	if hint > 0 {
		return minDuration(hint, c.max())
	}
	if c.MinBackoff > 0 {
		return c.MinBackoff
	}
	return defaultMinBackoff
}

func (c *Client) max() time.Duration {
	if c.MaxBackoff > 0 {
		return c.MaxBackoff
	}
	return defaultMaxBackoff
}

// delay applies equal jitter: half the backoff fixed, half random.
func (c *Client) delay(backoff time.Duration) time.Duration {
	j := c.jitter
	if j == nil {
		j = rand.Float64
	}
	half := backoff / 2
	return half + time.Duration(j()*float64(backoff-half))
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
