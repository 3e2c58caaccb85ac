package tui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/dash"
)

type stubServer struct {
	mu      sync.Mutex
	results map[string]api.MatchResult
	joins   []api.JoinRequest
	conn    *io.PipeWriter
}

func (s *stubServer) QueuePlayers(context.Context) ([]api.QueueEntry, error) {
	return []api.QueueEntry{{PlayerID: "p1", MMR: 1000}}, nil
}

func (s *stubServer) RecentMatches(context.Context) ([]api.RecentMatch, error) {
	return nil, nil
}

func (s *stubServer) ReportResult(_ context.Context, id string, res api.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = res
	return nil
}

func (s *stubServer) JoinQueue(_ context.Context, req api.JoinRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joins = append(s.joins, req)
	return nil
}

func (s *stubServer) OpenStream(ctx context.Context, _ string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	s.mu.Lock()
	s.conn = pw
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	return pr, nil
}

func runSession(t *testing.T) (*stubServer, *dash.Session) {
	t.Helper()
	srv := &stubServer{results: make(map[string]api.MatchResult)}
	sess := dash.NewSession(srv, dash.Options{PollInterval: time.Hour, LogCapacity: 20, Optimistic: true})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sess.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv, sess
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModel_IdleView(t *testing.T) {
	_, sess := runSession(t)
	m := NewModel(sess, nil)
	defer m.watch.close()

	view := m.View()
	assert.Contains(t, view, "No active match")
	assert.Contains(t, view, "Queue (")
	assert.Contains(t, view, "q quit")
}

func TestModel_WaitingLineUntilFirstNotification(t *testing.T) {
	sess := dash.NewSession(&stubServer{results: make(map[string]api.MatchResult)}, dash.Options{LogCapacity: 20})
	m := NewModel(sess, nil)
	defer m.watch.close()
	assert.Contains(t, m.View(), dash.WaitingMessage)

	sess.Log.Add("Connected to server for real-time events.")
	m.sync()
	view := m.View()
	assert.Contains(t, view, "Connected to server for real-time events.")
	assert.NotContains(t, view, dash.WaitingMessage)
}

func TestModel_ReportWithoutMatchShowsError(t *testing.T) {
	_, sess := runSession(t)
	m := NewModel(sess, nil)
	defer m.watch.close()

	m, cmd := update(t, m, key("a"))
	assert.Nil(t, cmd)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.View(), dash.ErrNoActiveMatch.Error())
}

func TestModel_PauseToggle(t *testing.T) {
	_, sess := runSession(t)
	m := NewModel(sess, nil)
	defer m.watch.close()

	m, _ = update(t, m, key("p"))
	assert.True(t, sess.Control.IsPaused())
	assert.Contains(t, m.View(), "auto-refresh paused")

	m, _ = update(t, m, key("p"))
	assert.False(t, sess.Control.IsPaused())
	assert.NotContains(t, m.View(), "auto-refresh paused")
}

func TestModel_JoinPrompt(t *testing.T) {
	srv, sess := runSession(t)
	m := NewModel(sess, nil)
	defer m.watch.close()

	m, _ = update(t, m, key("j"))
	require.True(t, m.joining)
	// Keys typed into the prompt are not commands.
	m, _ = update(t, m, key("p7 1300"))
	assert.False(t, sess.Control.IsPaused())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.joining)

	msg := cmd()
	action, ok := msg.(actionMsg)
	require.True(t, ok)
	require.NoError(t, action.err)

	srv.mu.Lock()
	require.Len(t, srv.joins, 1)
	assert.Equal(t, "p7", srv.joins[0].PlayerID)
	assert.Equal(t, 1300, *srv.joins[0].MMR)
	srv.mu.Unlock()

	m, _ = update(t, m, msg)
	assert.Equal(t, "p7 joined the queue", m.status)
}

func TestModel_JoinPromptEscape(t *testing.T) {
	_, sess := runSession(t)
	m := NewModel(sess, nil)
	defer m.watch.close()

	m, _ = update(t, m, key("j"))
	m, _ = update(t, m, key("p7"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.joining)
	assert.Empty(t, m.textInput.Value())
}

func TestModel_ReportActiveMatch(t *testing.T) {
	srv, sess := runSession(t)
	m := NewModel(sess, nil)
	defer m.watch.close()

	var w *io.PipeWriter
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		w = srv.conn
		return w != nil
	}, time.Second, time.Millisecond)
	_, err := fmt.Fprint(w, "data: {\"match_id\":\"m1\",\"team_a\":[\"p1\"],\"team_b\":[\"p2\"]}\n\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sess.Match.State() == dash.Active }, time.Second, time.Millisecond)

	m, _ = update(t, m, changedMsg{})
	assert.Contains(t, m.View(), "m1")

	m, cmd := update(t, m, key("b"))
	require.NotNil(t, cmd)
	// A second press while the first is outstanding is refused locally.
	_, again := update(t, m, key("b"))
	assert.Nil(t, again)

	msg := cmd()
	m, _ = update(t, m, msg)
	assert.False(t, m.statusErr)
	assert.Nil(t, m.match)

	srv.mu.Lock()
	assert.Equal(t, []string{"p2"}, srv.results["m1"].WinnerTeam)
	srv.mu.Unlock()
}

func TestModel_QuitCancels(t *testing.T) {
	_, sess := runSession(t)
	cancelled := false
	m := NewModel(sess, func() { cancelled = true })
	defer m.watch.close()

	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.True(t, cancelled)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestParseJoin(t *testing.T) {
	id, mmr, err := parseJoin("  p1  ")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.Nil(t, mmr)

	id, mmr, err = parseJoin("p2 1450")
	require.NoError(t, err)
	assert.Equal(t, "p2", id)
	assert.Equal(t, 1450, *mmr)

	_, _, err = parseJoin("p3 lots")
	assert.Error(t, err)
	_, _, err = parseJoin("")
	assert.Error(t, err)
	_, _, err = parseJoin("a b c")
	assert.Error(t, err)
}
