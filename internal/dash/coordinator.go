package dash

import (
	"slices"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/metrics"
)

// recentIDs bounds the set of match ids remembered for redelivery checks.
const recentIDs = 256

// State is the coordinator's lifecycle state.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// ClearReason says why an active match left the dashboard.
type ClearReason string

const (
	ClearedByResult ClearReason = "result-reported"
	ClearedManually ClearReason = "manual-clear"
)

// Coordinator owns the current match. It holds at most one match at a
// time: the first one found wins until a result is reported or the
// operator clears it. All methods except Current, State and Subscribe
// must run on the session Loop.
type Coordinator struct {
	current Value[*api.MatchNotification]
	log     *NotificationLog

	seen      map[string]struct{}
	seenOrder []string

	// OnMatchFound fires after Idle -> Active.
	OnMatchFound func(m api.MatchNotification)
	// OnCleared fires after Active -> Idle, once per transition.
	OnCleared func(m api.MatchNotification, reason ClearReason)
}

// NewCoordinator creates an idle coordinator writing to log.
func NewCoordinator(log *NotificationLog) *Coordinator {
	return &Coordinator{
		log:  log,
		seen: make(map[string]struct{}),
	}
}

// Current returns a copy of the active match.
func (c *Coordinator) Current() (api.MatchNotification, bool) {
	m := c.current.Get()
	if m == nil {
		return api.MatchNotification{}, false
	}
	return *m, true
}

// State returns Idle or Active.
func (c *Coordinator) State() State {
	if c.current.Get() == nil {
		return Idle
	}
	return Active
}

// Subscribe calls fn with the new match (nil when idle) on every transition.
func (c *Coordinator) Subscribe(fn func(*api.MatchNotification)) (unsubscribe func()) {
	return c.current.Subscribe(fn)
}

// MatchFound handles a match-found signal. It reports whether the
// coordinator transitioned to Active.
func (c *Coordinator) MatchFound(m api.MatchNotification) bool {
	if m.MatchID == "" {
		return false
	}

	if cur := c.current.Get(); cur != nil {
		if cur.MatchID == m.MatchID {
			metrics.MatchTransitions.WithLabelValues("duplicate").Inc()
			c.log.Addf("Duplicate notification for match %s ignored.", m.MatchID)
		} else {
			metrics.MatchTransitions.WithLabelValues("busy").Inc()
			c.log.Addf("Match %s ignored: match %s is still in progress.", m.MatchID, cur.MatchID)
		}
		return false
	}

	if _, ok := c.seen[m.MatchID]; ok {
		metrics.MatchTransitions.WithLabelValues("stale").Inc()
		c.log.Addf("Stale notification for match %s ignored.", m.MatchID)
		return false
	}
	c.remember(m.MatchID)

	next := api.MatchNotification{
		MatchID: m.MatchID,
		TeamA:   slices.Clone(m.TeamA),
		TeamB:   slices.Clone(m.TeamB),
	}
	c.current.Set(&next)
	metrics.MatchTransitions.WithLabelValues("found").Inc()
	metrics.MatchActive.Set(1)
	c.log.Addf("Match Found! ID: %s", next.MatchID)

	if c.OnMatchFound != nil {
		c.OnMatchFound(next)
	}
	return true
}

// ResultReported closes the active match if its id is matchID. Reports for
// any other match are no-ops.
func (c *Coordinator) ResultReported(matchID string) bool {
	cur := c.current.Get()
	if cur == nil || cur.MatchID != matchID {
		return false
	}
	c.clear(*cur, ClearedByResult)
	return true
}

// Clear drops the active match without submitting a result.
func (c *Coordinator) Clear() bool {
	cur := c.current.Get()
	if cur == nil {
		return false
	}
	c.log.Addf("Match %s cleared without a result.", cur.MatchID)
	c.clear(*cur, ClearedManually)
	return true
}

func (c *Coordinator) clear(m api.MatchNotification, reason ClearReason) {
	c.current.Set(nil)
	metrics.MatchTransitions.WithLabelValues(string(reason)).Inc()
	metrics.MatchActive.Set(0)
	if c.OnCleared != nil {
		c.OnCleared(m, reason)
	}
}

func (c *Coordinator) remember(id string) {
	c.seen[id] = struct{}{}
	c.seenOrder = append(c.seenOrder, id)
	if len(c.seenOrder) > recentIDs {
		delete(c.seen, c.seenOrder[0])
		c.seenOrder = c.seenOrder[1:]
	}
}
