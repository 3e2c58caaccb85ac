package dash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/metrics"
)

var (
	// ErrNoActiveMatch is returned when a result is reported while idle.
	ErrNoActiveMatch = errors.New("no active match")
	// ErrReportInFlight is returned when a result for the active match is
	// already being submitted.
	ErrReportInFlight = errors.New("result already being reported")
)

// Side names the winning team of a match.
type Side int

const (
	TeamA Side = iota
	TeamB
)

func (s Side) String() string {
	if s == TeamB {
		return "Team B"
	}
	return "Team A"
}

// ParseSide accepts "a", "b", "team_a" and "team_b" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "team_a", "teama":
		return TeamA, nil
	case "b", "team_b", "teamb":
		return TeamB, nil
	}
	return 0, fmt.Errorf("unknown side %q (want a or b)", s)
}

// ResultFor orders the match rosters as winner and loser.
func ResultFor(m api.MatchNotification, winner Side) api.MatchResult {
	if winner == TeamB {
		return api.MatchResult{WinnerTeam: m.TeamB, LoserTeam: m.TeamA}
	}
	return api.MatchResult{WinnerTeam: m.TeamA, LoserTeam: m.TeamB}
}

// ResultPoster submits a match result.
type ResultPoster interface {
	ReportResult(ctx context.Context, matchID string, res api.MatchResult) error
}

// Reporter submits the active match's result, exactly once per call.
type Reporter struct {
	poster ResultPoster
	coord  *Coordinator
	loop   *Loop
	log    *NotificationLog

	// Optimistic closes the match even when the submission fails.
	Optimistic bool

	mu       sync.Mutex
	inflight map[string]bool
}

// NewReporter creates an optimistic reporter.
func NewReporter(poster ResultPoster, coord *Coordinator, loop *Loop, log *NotificationLog) *Reporter {
	return &Reporter{
		poster:     poster,
		coord:      coord,
		loop:       loop,
		log:        log,
		Optimistic: true,
		inflight:   make(map[string]bool),
	}
}

// Report posts the result of the active match with winner as the winning
// side. It sends nothing when no match is active. Must not be called from
// a loop handler.
func (r *Reporter) Report(ctx context.Context, winner Side) error {
	m, ok := r.coord.Current()
	if !ok {
		return ErrNoActiveMatch
	}
	if !r.begin(m.MatchID) {
		return ErrReportInFlight
	}
	defer r.end(m.MatchID)

	res := ResultFor(m, winner)
	err := r.poster.ReportResult(ctx, m.MatchID, res)
	if err != nil {
		metrics.Reports.WithLabelValues("error").Inc()
		slog.Warn("report failed", "match", m.MatchID, "error", err)
	} else {
		metrics.Reports.WithLabelValues("ok").Inc()
		slog.Info("result reported", "match", m.MatchID, "winner", winner.String())
	}

	closeMatch := err == nil || r.Optimistic
	r.loop.Do(func() {
		switch {
		case err == nil:
			r.log.Addf("Result for match %s recorded: %s won (%s).", m.MatchID, winner, strings.Join(res.WinnerTeam, ", "))
		case closeMatch:
			r.log.Addf("Failed to report result for match %s: %v. Match closed anyway.", m.MatchID, err)
		default:
			r.log.Addf("Failed to report result for match %s: %v. Match still active, report again to retry.", m.MatchID, err)
		}
		if closeMatch {
			r.coord.ResultReported(m.MatchID)
		}
	})

	if err != nil {
		return fmt.Errorf("report match %s: %w", m.MatchID, err)
	}
	return nil
}

func (r *Reporter) begin(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[id] {
		return false
	}
	r.inflight[id] = true
	return true
}

func (r *Reporter) end(id string) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}
