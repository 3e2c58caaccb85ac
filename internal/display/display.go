// Package display renders dashboard state as plain text lines and tables.
package display

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/dash"
)

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger configures the global slog logger to write text records to w.
func SetupLogger(level string, w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	slog.SetDefault(slog.New(handler))
}

func stamp() string { return time.Now().Format("15:04:05") }

// DisplayLine prints one notification line.
func DisplayLine(w io.Writer, line dash.LogLine) {
	fmt.Fprintln(w, line.String())
}

// DisplayMatch prints the current match, or that none is active.
func DisplayMatch(w io.Writer, m *api.MatchNotification) {
	ts := stamp()
	if m == nil {
		fmt.Fprintf(w, "[%s] No active match\n", ts)
		return
	}
	fmt.Fprintf(w, "[%s] Current match %s\n", ts, m.MatchID)
	fmt.Fprintf(w, "[%s]   Team A: %s\n", ts, roster(m.TeamA))
	fmt.Fprintf(w, "[%s]   Team B: %s\n", ts, roster(m.TeamB))
	fmt.Fprintf(w, "[%s]   Report with: a (Team A won) | b (Team B won) | c (clear)\n", ts)
}

// DisplayQueue prints a one-line queue summary. A failed refresh is
// flagged but the last good entries are still shown.
func DisplayQueue(w io.Writer, snap dash.Snapshot[[]api.QueueEntry]) {
	ts := stamp()
	if snap.Err != nil {
		fmt.Fprintf(w, "[%s] Queue refresh failed: %v\n", ts, snap.Err)
		return
	}
	if len(snap.Items) == 0 {
		fmt.Fprintf(w, "[%s] Queue: empty\n", ts)
		return
	}
	parts := make([]string, len(snap.Items))
	for i, e := range snap.Items {
		parts[i] = fmt.Sprintf("%s (%s)", e.PlayerID, formatInt(e.MMR))
	}
	fmt.Fprintf(w, "[%s] Queue (%d): %s\n", ts, len(snap.Items), strings.Join(parts, ", "))
}

// DisplayRecent prints the newest recent match as a one-line summary.
func DisplayRecent(w io.Writer, snap dash.Snapshot[[]api.RecentMatch]) {
	ts := stamp()
	if snap.Err != nil {
		fmt.Fprintf(w, "[%s] Recent matches refresh failed: %v\n", ts, snap.Err)
		return
	}
	if len(snap.Items) == 0 {
		fmt.Fprintf(w, "[%s] No recent matches\n", ts)
		return
	}
	m := snap.Items[0]
	fmt.Fprintf(w, "[%s] Recent matches: %d | latest %s: %s beat %s\n",
		ts, len(snap.Items), ShortID(m.MatchID), roster(m.WinnerTeam), roster(m.LoserTeam))
}

// QueueTable prints waiting players in server order.
func QueueTable(w io.Writer, entries []api.QueueEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tMMR")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, e.PlayerID, formatInt(e.MMR))
	}
	tw.Flush()
}

// RecentTable prints completed matches.
func RecentTable(w io.Writer, matches []api.RecentMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No recent matches.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tWINNERS\tLOSERS\tTIME")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ShortID(m.MatchID), roster(m.WinnerTeam), roster(m.LoserTeam), m.Timestamp)
	}
	tw.Flush()
}

// PlayerCard prints a player's profile and record.
func PlayerCard(w io.Writer, p *api.Player) {
	fmt.Fprintf(w, "Player:  %s\n", p.PlayerID)
	if p.Rank != "" {
		fmt.Fprintf(w, "Rank:    %s\n", p.Rank)
	}
	if p.MMR > 0 {
		fmt.Fprintf(w, "MMR:     %s\n", formatInt(p.MMR))
	}
	fmt.Fprintf(w, "Record:  %dW %dL (%s)\n", p.Wins, p.Losses, WinRate(p.Wins, p.Losses))
	if len(p.CharacterPreferences) > 0 {
		fmt.Fprintf(w, "Plays:   %s\n", strings.Join(p.CharacterPreferences, ", "))
	}
}

// PlayerTable prints search results.
func PlayerTable(w io.Writer, players []api.Player) {
	if len(players) == 0 {
		fmt.Fprintln(w, "No players found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tRANK\tMMR")
	for _, p := range players {
		mmr := "-"
		if p.MMR > 0 {
			mmr = formatInt(p.MMR)
		}
		rank := p.Rank
		if rank == "" {
			rank = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.PlayerID, rank, mmr)
	}
	tw.Flush()
}

// DisplayPrediction prints win probabilities as percentages.
func DisplayPrediction(w io.Writer, p *api.Prediction) {
	fmt.Fprintf(w, "Team A: %5.1f%%\n", p.TeamAWinProb*100)
	fmt.Fprintf(w, "Team B: %5.1f%%\n", p.TeamBWinProb*100)
}

// WinRate formats wins/(wins+losses) as a percentage, or "-" with no games.
func WinRate(wins, losses int) string {
	total := wins + losses
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(wins)*100/float64(total))
}

// ShortID abbreviates long match ids for tables.
func ShortID(id string) string {
	if len(id) < 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-4:]
}

func roster(players []string) string {
	if len(players) == 0 {
		return "-"
	}
	return strings.Join(players, ", ")
}

func formatInt(n int) string {
	if n < 0 {
		return "-" + formatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}
