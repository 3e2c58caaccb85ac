package dash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftaugur/augur-cli/internal/api"
)

func match(id string) api.MatchNotification {
	return api.MatchNotification{
		MatchID: id,
		TeamA:   []string{id + "-a1", id + "-a2"},
		TeamB:   []string{id + "-b1", id + "-b2"},
	}
}

type hookCounts struct {
	found   []string
	cleared []ClearReason
}

func newTestCoordinator() (*Coordinator, *hookCounts) {
	c := NewCoordinator(NewNotificationLog(50))
	h := &hookCounts{}
	c.OnMatchFound = func(m api.MatchNotification) { h.found = append(h.found, m.MatchID) }
	c.OnCleared = func(_ api.MatchNotification, r ClearReason) { h.cleared = append(h.cleared, r) }
	return c, h
}

func TestCoordinator_FirstMatchWins(t *testing.T) {
	c, h := newTestCoordinator()

	assert.True(t, c.MatchFound(match("m1")))
	assert.False(t, c.MatchFound(match("m2")))

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "m1", cur.MatchID)
	assert.Equal(t, Active, c.State())
	assert.Equal(t, []string{"m1"}, h.found)
	assert.Contains(t, c.log.Lines()[0].Message, "Match m2 ignored")
}

func TestCoordinator_DuplicateMatchIDTransitionsOnce(t *testing.T) {
	c, h := newTestCoordinator()

	c.MatchFound(match("m1"))
	c.MatchFound(match("m1"))
	assert.Equal(t, []string{"m1"}, h.found)
	assert.Equal(t, "Duplicate notification for match m1 ignored.", c.log.Lines()[0].Message)

	// Redelivery after the match was closed must not reopen it.
	require.True(t, c.ResultReported("m1"))
	assert.False(t, c.MatchFound(match("m1")))
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, []string{"m1"}, h.found)
	assert.Equal(t, "Stale notification for match m1 ignored.", c.log.Lines()[0].Message)
}

func TestCoordinator_ForgetsOldIDs(t *testing.T) {
	c, _ := newTestCoordinator()
	for i := 0; i <= recentIDs; i++ {
		id := fmt.Sprintf("m%d", i)
		require.True(t, c.MatchFound(match(id)))
		require.True(t, c.Clear())
	}
	assert.True(t, c.MatchFound(match("m0")))
}

func TestCoordinator_IgnoresEmptyID(t *testing.T) {
	c, h := newTestCoordinator()
	assert.False(t, c.MatchFound(api.MatchNotification{}))
	assert.Empty(t, h.found)
	assert.Equal(t, 0, c.log.Len())
}

func TestCoordinator_ResultReportedCascadesOnce(t *testing.T) {
	c, h := newTestCoordinator()
	c.MatchFound(match("m1"))

	assert.False(t, c.ResultReported("m9"))
	assert.Equal(t, Active, c.State())

	assert.True(t, c.ResultReported("m1"))
	assert.False(t, c.ResultReported("m1"))
	assert.Equal(t, []ClearReason{ClearedByResult}, h.cleared)
	assert.Equal(t, Idle, c.State())
}

func TestCoordinator_ManualClear(t *testing.T) {
	c, h := newTestCoordinator()

	assert.False(t, c.Clear())
	assert.Empty(t, h.cleared)

	c.MatchFound(match("m1"))
	assert.True(t, c.Clear())
	assert.Equal(t, []ClearReason{ClearedManually}, h.cleared)
	assert.Equal(t, "Match m1 cleared without a result.", c.log.Lines()[0].Message)

	// A new match is accepted once idle again.
	assert.True(t, c.MatchFound(match("m2")))
}

func TestCoordinator_CurrentIsACopy(t *testing.T) {
	c, _ := newTestCoordinator()
	m := match("m1")
	c.MatchFound(m)
	m.TeamA[0] = "changed"

	cur, _ := c.Current()
	assert.Equal(t, "m1-a1", cur.TeamA[0])
}

func TestCoordinator_SubscribersSeeEveryTransition(t *testing.T) {
	c, _ := newTestCoordinator()
	var seen []string
	c.Subscribe(func(m *api.MatchNotification) {
		if m == nil {
			seen = append(seen, "idle")
			return
		}
		seen = append(seen, m.MatchID)
	})

	c.MatchFound(match("m1"))
	c.MatchFound(match("m2"))
	c.ResultReported("m1")
	c.MatchFound(match("m2"))
	c.Clear()

	assert.Equal(t, []string{"m1", "idle", "m2", "idle"}, seen)
}
