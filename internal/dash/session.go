package dash

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/config"
	"github.com/riftaugur/augur-cli/internal/stream"
)

// Server is everything the session needs from the matchmaking server.
// *api.Client implements it.
type Server interface {
	QueueSource
	RecentSource
	ResultPoster
	stream.Opener
	JoinQueue(ctx context.Context, req api.JoinRequest) error
}

// Options tunes a Session.
type Options struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	LogCapacity  int
	Optimistic   bool
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

// OptionsFromConfig maps the dashboard and stream config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval: cfg.Dashboard.PollInterval.Duration,
		SettleDelay:  cfg.Dashboard.MatchSettleDelay.Duration,
		LogCapacity:  cfg.Dashboard.LogCapacity,
		Optimistic:   cfg.Dashboard.ReportPolicy != config.PolicyPessimistic,
		MinBackoff:   cfg.Stream.ReconnectMin.Duration,
		MaxBackoff:   cfg.Stream.ReconnectMax.Duration,
	}
}

// Session is one live dashboard: a push connection, the current match,
// the queue and recent-match views and the notification log, all driven
// by a single Loop.
type Session struct {
	Log     *NotificationLog
	Match   *Coordinator
	Queue   *QueuePoller
	Recent  *RecentLoader
	Control *PollControl

	server   Server
	loop     *Loop
	stream   *stream.Client
	reporter *Reporter
}

// NewSession wires a session against srv. Nothing runs until Run.
func NewSession(srv Server, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}

	loop := NewLoop()
	log := NewNotificationLog(opts.LogCapacity)
	control := &PollControl{}

	s := &Session{
		Log:     log,
		Match:   NewCoordinator(log),
		Queue:   NewQueuePoller(srv, loop, opts.PollInterval, opts.SettleDelay, control),
		Recent:  NewRecentLoader(srv, loop),
		Control: control,
		server:  srv,
		loop:    loop,
	}

	s.reporter = NewReporter(srv, s.Match, loop, log)
	s.reporter.Optimistic = opts.Optimistic

	s.Match.OnMatchFound = func(api.MatchNotification) {
		s.Queue.RefreshAfterMatch()
	}
	s.Match.OnCleared = func(api.MatchNotification, ClearReason) {
		s.Recent.Refresh()
		s.Queue.Refresh()
	}

	s.stream = &stream.Client{
		Opener:     srv,
		MinBackoff: opts.MinBackoff,
		MaxBackoff: opts.MaxBackoff,
		OnConnected: func() {
			loop.Post(func() { log.Add("Connected to server for real-time events.") })
		},
		OnMatch: func(m api.MatchNotification) {
			loop.Post(func() { s.Match.MatchFound(m) })
		},
		OnLost: func(error) {
			loop.Post(func() { log.Add("Connection to server lost. Retrying...") })
		},
	}
	return s
}

// Run drives the session until ctx is cancelled or a component fails.
// It returns after the stream, timers and in-flight fetches have stopped.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop.Run(ctx) })
	g.Go(func() error { return s.stream.Run(ctx) })
	g.Go(func() error { return s.Queue.Run(ctx) })
	g.Go(func() error { return s.Recent.Run(ctx) })
	return g.Wait()
}

// Report submits the active match's result with winner as the winning side.
func (s *Session) Report(ctx context.Context, winner Side) error {
	return s.reporter.Report(ctx, winner)
}

// Clear drops the active match without a result. Reports whether a match
// was active.
func (s *Session) Clear() bool {
	var cleared bool
	s.loop.Do(func() { cleared = s.Match.Clear() })
	return cleared
}

// JoinQueue enqueues a player. A nil mmr lets the server use its default.
func (s *Session) JoinQueue(ctx context.Context, playerID string, mmr *int) error {
	err := s.server.JoinQueue(ctx, api.JoinRequest{PlayerID: playerID, MMR: mmr})
	s.loop.Post(func() {
		if err != nil {
			s.Log.Addf("Failed to add %s to the queue: %v", playerID, err)
			return
		}
		s.Log.Addf("Player %s joined the queue.", playerID)
	})
	if err != nil {
		return fmt.Errorf("join queue: %w", err)
	}
	s.Queue.Refresh()
	return nil
}

// Post runs fn on the session loop. Observers use it to read several
// values consistently.
func (s *Session) Post(fn func()) bool { return s.loop.Post(fn) }
