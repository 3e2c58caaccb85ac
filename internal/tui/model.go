// Package tui is the interactive terminal dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/dash"
	"github.com/riftaugur/augur-cli/internal/display"
)

const tickInterval = time.Second

// Messages
type changedMsg struct{}
type tickMsg struct{}

type actionMsg struct {
	text string
	err  error
}

// watcher turns session notifications into a wake-up signal. Callbacks run
// on the session loop, so they must never block.
type watcher struct {
	changes chan struct{}
	unsubs  []func()
}

func watch(sess *dash.Session) *watcher {
	w := &watcher{changes: make(chan struct{}, 1)}
	notify := func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	}
	w.unsubs = []func(){
		sess.Log.Subscribe(func(dash.LogLine) { notify() }),
		sess.Match.Subscribe(func(*api.MatchNotification) { notify() }),
		sess.Queue.Subscribe(func(dash.Snapshot[[]api.QueueEntry]) { notify() }),
		sess.Recent.Subscribe(func(dash.Snapshot[[]api.RecentMatch]) { notify() }),
	}
	return w
}

func (w *watcher) close() {
	for _, u := range w.unsubs {
		u()
	}
}

// Model renders a live session and maps keys to session actions. Actions
// that talk to the server run as commands so Update never blocks.
type Model struct {
	sess   *dash.Session
	watch  *watcher
	cancel context.CancelFunc
	theme  theme

	match  *api.MatchNotification
	queue  dash.Snapshot[[]api.QueueEntry]
	recent dash.Snapshot[[]api.RecentMatch]
	log    []dash.LogLine
	paused bool

	joining   bool
	textInput textinput.Model
	reporting bool
	status    string
	statusErr bool
	showHelp  bool

	width  int
	height int
	now    time.Time
}

// NewModel creates a model bound to sess. cancel is called on quit and may
// be nil.
func NewModel(sess *dash.Session, cancel context.CancelFunc) Model {
	ti := textinput.New()
	ti.Placeholder = "player_id [mmr]"
	ti.CharLimit = 64
	ti.Width = 32

	m := Model{
		sess:      sess,
		watch:     watch(sess),
		cancel:    cancel,
		theme:     newTheme(),
		textInput: ti,
		now:       time.Now(),
	}
	m.sync()
	return m
}

// Run shows the dashboard until the operator quits or ctx is cancelled.
func Run(ctx context.Context, sess *dash.Session, cancel context.CancelFunc) error {
	m := NewModel(sess, cancel)
	defer m.watch.close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return m.pollChanges()
}

func (m Model) pollChanges() tea.Cmd {
	ch := m.watch.changes
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-time.After(tickInterval):
			return tickMsg{}
		}
	}
}

// sync copies the session's current state into the model.
func (m *Model) sync() {
	m.match = nil
	if cur, ok := m.sess.Match.Current(); ok {
		m.match = &cur
	}
	m.queue = m.sess.Queue.Snapshot()
	m.recent = m.sess.Recent.Snapshot()
	m.log = m.sess.Log.View()
	m.paused = m.sess.Control.IsPaused()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		var cmd tea.Cmd
		if m.joining {
			cmd = m.handlePromptKey(msg)
		} else {
			cmd = m.handleKey(msg)
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case changedMsg:
		m.now = time.Now()
		m.sync()
		cmds = append(cmds, m.pollChanges())

	case tickMsg:
		m.now = time.Now()
		cmds = append(cmds, m.pollChanges())

	case actionMsg:
		m.reporting = false
		m.setStatus(msg.text, msg.err)
		m.sync()

	default:
		// cursor blink and other input internals
		if m.joining {
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// handlePromptKey drives the join prompt.
func (m *Model) handlePromptKey(k tea.KeyMsg) tea.Cmd {
	switch k.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return nil
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyEnter:
		playerID, mmr, err := parseJoin(m.textInput.Value())
		if err != nil {
			m.setStatus("", err)
			return nil
		}
		m.closePrompt()
		return m.joinCmd(playerID, mmr)
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(k)
	return cmd
}

func (m *Model) closePrompt() {
	m.joining = false
	m.textInput.Blur()
	m.textInput.Reset()
}

func (m *Model) handleKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "q", "ctrl+c":
		return m.quit()
	case "a":
		return m.reportCmd(dash.TeamA)
	case "b":
		return m.reportCmd(dash.TeamB)
	case "c":
		return m.clearCmd()
	case "p":
		if m.sess.Control.Toggle() {
			m.setStatus("Queue auto-refresh paused", nil)
		} else {
			m.setStatus("Queue auto-refresh resumed", nil)
		}
		m.paused = m.sess.Control.IsPaused()
	case "r":
		m.sess.Queue.Refresh()
		m.sess.Recent.Refresh()
		m.setStatus("Refreshing queue and recent matches", nil)
	case "j":
		m.joining = true
		m.textInput.Focus()
		return textinput.Blink
	case "?":
		m.showHelp = !m.showHelp
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	return tea.Quit
}

func (m *Model) setStatus(text string, err error) {
	if err != nil {
		m.status = err.Error()
		m.statusErr = true
		return
	}
	m.status = text
	m.statusErr = false
}

func (m *Model) reportCmd(winner dash.Side) tea.Cmd {
	if m.match == nil {
		m.setStatus("", dash.ErrNoActiveMatch)
		return nil
	}
	if m.reporting {
		m.setStatus("", dash.ErrReportInFlight)
		return nil
	}
	m.reporting = true
	m.setStatus(fmt.Sprintf("Reporting %s as winner...", winner), nil)
	sess := m.sess
	return func() tea.Msg {
		err := sess.Report(context.Background(), winner)
		return actionMsg{text: fmt.Sprintf("Reported %s as winner", winner), err: err}
	}
}

func (m *Model) clearCmd() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		if !sess.Clear() {
			return actionMsg{err: dash.ErrNoActiveMatch}
		}
		return actionMsg{text: "Match cleared"}
	}
}

func (m *Model) joinCmd(playerID string, mmr *int) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		err := sess.JoinQueue(context.Background(), playerID, mmr)
		return actionMsg{text: fmt.Sprintf("%s joined the queue", playerID), err: err}
	}
}

// parseJoin reads "player_id [mmr]".
func parseJoin(s string) (string, *int, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return fields[0], nil, nil
	case 2:
		mmr, err := strconv.Atoi(fields[1])
		if err != nil || mmr < 0 {
			return "", nil, fmt.Errorf("invalid mmr %q", fields[1])
		}
		return fields[0], &mmr, nil
	}
	return "", nil, errors.New("enter a player id, optionally followed by an mmr")
}

func (m Model) View() string {
	t := m.theme
	var b strings.Builder

	header := t.title.Render("Augur") + "  " + t.muted.Render(m.now.Format("15:04:05"))
	if m.paused {
		header += "  " + t.badge.Render("auto-refresh paused")
	}
	b.WriteString(header + "\n")

	b.WriteString(t.pane.Width(m.paneWidth(1)).Render(m.matchView()) + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		t.pane.Width(m.paneWidth(2)).Render(m.queueView()),
		t.pane.Width(m.paneWidth(2)).Render(m.recentView()),
	) + "\n")
	b.WriteString(t.pane.Width(m.paneWidth(1)).Render(m.logView()) + "\n")

	if m.joining {
		b.WriteString("Join queue: " + m.textInput.View() + "\n")
	}
	if m.status != "" {
		if m.statusErr {
			b.WriteString(t.err.Render(m.status) + "\n")
		} else {
			b.WriteString(t.muted.Render(m.status) + "\n")
		}
	}
	b.WriteString(t.keys.Render(m.helpLine()))
	return b.String()
}

func (m Model) paneWidth(columns int) int {
	w := m.width
	if w <= 0 {
		w = 100
	}
	// border and padding take four cells per pane
	return max(w/columns-4, 20)
}

func (m Model) matchView() string {
	t := m.theme
	if m.match == nil {
		return t.heading.Render("Current Match") + "\n" + t.muted.Render("No active match. Waiting for the server...")
	}
	return fmt.Sprintf("%s  %s\n%s %s\n%s %s",
		t.heading.Render("Current Match"), m.match.MatchID,
		t.teamA.Render("Team A:"), strings.Join(m.match.TeamA, ", "),
		t.teamB.Render("Team B:"), strings.Join(m.match.TeamB, ", "))
}

func (m Model) queueView() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.heading.Render(fmt.Sprintf("Queue (%d)", len(m.queue.Items))))
	if m.queue.Err != nil {
		b.WriteString("\n" + t.err.Render("stale: "+m.queue.Err.Error()))
	}
	if len(m.queue.Items) == 0 {
		b.WriteString("\n" + t.muted.Render("empty"))
		return b.String()
	}
	for i, e := range m.queue.Items {
		if i >= m.listRows() {
			b.WriteString("\n" + t.muted.Render(fmt.Sprintf("... %d more", len(m.queue.Items)-i)))
			break
		}
		fmt.Fprintf(&b, "\n%2d. %-16s %5d", i+1, e.PlayerID, e.MMR)
	}
	return b.String()
}

func (m Model) recentView() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.heading.Render("Recent Matches"))
	if m.recent.Err != nil {
		b.WriteString("\n" + t.err.Render("stale: "+m.recent.Err.Error()))
	}
	if len(m.recent.Items) == 0 {
		b.WriteString("\n" + t.muted.Render("none yet"))
		return b.String()
	}
	for i, r := range m.recent.Items {
		if i >= m.listRows() {
			break
		}
		fmt.Fprintf(&b, "\n%s %s %s %s",
			t.muted.Render(display.ShortID(r.MatchID)),
			t.winner.Render(strings.Join(r.WinnerTeam, ", ")),
			t.muted.Render("beat"),
			t.loser.Render(strings.Join(r.LoserTeam, ", ")))
	}
	return b.String()
}

func (m Model) logView() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.heading.Render("Notifications"))
	for i, l := range m.log {
		if i >= m.logRows() {
			break
		}
		if l.Timestamp == "" {
			b.WriteString("\n" + t.muted.Render(l.Message))
			continue
		}
		b.WriteString("\n" + t.muted.Render("["+l.Timestamp+"]") + " " + l.Message)
	}
	return b.String()
}

func (m Model) listRows() int {
	if m.height <= 0 {
		return 8
	}
	return max((m.height-16)/2, 3)
}

func (m Model) logRows() int {
	if m.height <= 0 {
		return 8
	}
	return max(m.height-m.listRows()-16, 3)
}

func (m Model) helpLine() string {
	if m.showHelp {
		return "a: Team A won  b: Team B won  c: clear match  j: join queue  r: refresh  p: pause auto-refresh  q: quit  ?: hide help"
	}
	return "a/b report winner  c clear  j join  p pause  ? help  q quit"
}
