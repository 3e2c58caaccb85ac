package display

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/dash"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestSetupLogger_WritesToWriter(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupLogger("warn", &buf)
	slog.Info("hidden")
	slog.Warn("shown", "view", "queue")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "view=queue")
}

func TestDisplayMatch(t *testing.T) {
	var buf bytes.Buffer
	DisplayMatch(&buf, &api.MatchNotification{MatchID: "m1", TeamA: []string{"p1", "p2"}, TeamB: []string{"p3"}})
	out := buf.String()
	assert.Contains(t, out, "Current match m1")
	assert.Contains(t, out, "Team A: p1, p2")
	assert.Contains(t, out, "Team B: p3")

	buf.Reset()
	DisplayMatch(&buf, nil)
	assert.Contains(t, buf.String(), "No active match")
}

func TestDisplayQueue(t *testing.T) {
	var buf bytes.Buffer
	DisplayQueue(&buf, dash.Snapshot[[]api.QueueEntry]{Items: []api.QueueEntry{{PlayerID: "p1", MMR: 1200}, {PlayerID: "p2", MMR: 980}}})
	assert.Contains(t, buf.String(), "Queue (2): p1 (1,200), p2 (980)")

	buf.Reset()
	DisplayQueue(&buf, dash.Snapshot[[]api.QueueEntry]{Err: errors.New("timeout")})
	assert.Contains(t, buf.String(), "Queue refresh failed: timeout")
}

func TestRecentTable(t *testing.T) {
	var buf bytes.Buffer
	RecentTable(&buf, []api.RecentMatch{{
		MatchID:    "0f8fad5b-d9cb-469f-a165-70867728950e",
		WinnerTeam: []string{"p1"},
		LoserTeam:  []string{"p2"},
		Timestamp:  "2024-05-01T12:00:00",
	}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "0f8fad5b...950e")
	assert.Contains(t, lines[1], "2024-05-01T12:00:00")
}

func TestPlayerCard(t *testing.T) {
	var buf bytes.Buffer
	PlayerCard(&buf, &api.Player{PlayerID: "p1", Rank: "Gold II", MMR: 1450, Wins: 3, Losses: 1, CharacterPreferences: []string{"Ahri"}})
	out := buf.String()
	assert.Contains(t, out, "Gold II")
	assert.Contains(t, out, "1,450")
	assert.Contains(t, out, "3W 1L (75%)")
	assert.Contains(t, out, "Ahri")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "-", WinRate(0, 0))
	assert.Equal(t, "50%", WinRate(2, 2))
	assert.Equal(t, "1,234,567", formatInt(1234567))
	assert.Equal(t, "-1,000", formatInt(-1000))
	assert.Equal(t, "m1", ShortID("m1"))
}
