package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "secret-key", time.Second)
}

func TestQueuePlayers_PreservesServerOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/queue/players", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-API-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Contains(t, r.Header.Get("User-Agent"), "augur/")
		_, _ = io.WriteString(w, `[{"player_id":"zed","mmr":1400},{"player_id":"ahri","mmr":900}]`)
	})

	got, err := c.QueuePlayers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []QueueEntry{{"zed", 1400}, {"ahri", 900}}, got)
}

func TestReportResult_PostsBodyToMatchPath(t *testing.T) {
	var gotPath string
	var gotBody MatchResult
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := c.ReportResult(context.Background(), "m1", MatchResult{
		WinnerTeam: []string{"p1", "p2"},
		LoserTeam:  []string{"p3", "p4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/matches/m1/results", gotPath)
	assert.Equal(t, []string{"p1", "p2"}, gotBody.WinnerTeam)
	assert.Equal(t, []string{"p3", "p4"}, gotBody.LoserTeam)
}

func TestReportResult_EmptyMatchID(t *testing.T) {
	c := New("http://127.0.0.1:1", "", time.Second)
	require.Error(t, c.ReportResult(context.Background(), "", MatchResult{}))
}

func TestJoinQueue_OmitsMMRWhenUnset(t *testing.T) {
	var raw map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.JoinQueue(context.Background(), JoinRequest{PlayerID: "p9"}))
	assert.Equal(t, map[string]any{"player_id": "p9"}, raw)

	mmr := 1500
	require.NoError(t, c.JoinQueue(context.Background(), JoinRequest{PlayerID: "p9", MMR: &mmr}))
	assert.Equal(t, float64(1500), raw["mmr"])
}

func TestErrorStatus_BecomesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"Player p1 already exists"}`)
	})

	_, err := c.AddPlayer(context.Background(), PlayerRequest{PlayerID: "p1", Rank: "Gold II"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsConflict())
	assert.False(t, apiErr.IsRetryable())
	assert.Equal(t, "Player p1 already exists", apiErr.Message)
	assert.Equal(t, "POST /players", apiErr.Op)
}

func TestErrorStatus_PlainBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})

	_, err := c.RecentMatches(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsRetryable())
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestPlayers_PrefixQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fa ker", r.URL.Query().Get("prefix"))
		_, _ = io.WriteString(w, `[{"player_id":"fa ker1","rank":"Challenger","wins":3,"losses":1}]`)
	})

	got, err := c.Players(context.Background(), "fa ker")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Wins)
}

func TestPlayerStats_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/player/ghost/stats", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Player not found"}`)
	})

	_, err := c.PlayerStats(context.Background(), "ghost")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
}

func TestPredict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a"}, req.TeamA)
		_, _ = io.WriteString(w, `{"team_a_win_prob":0.6,"team_b_win_prob":0.4}`)
	})

	p, err := c.Predict(context.Background(), PredictRequest{TeamA: []string{"a"}, TeamB: []string{"b"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, p.TeamAWinProb, 1e-9)
}

func TestOpenStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "42", r.Header.Get("Last-Event-ID"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {}\n\n")
	})

	body, err := c.OpenStream(context.Background(), "42")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {}\n\n", string(data))
}

func TestOpenStream_RejectedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.OpenStream(context.Background(), "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
