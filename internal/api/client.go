package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// version is set at build time via ldflags.
var version = "dev"

// SetVersion sets the version string for User-Agent headers.
func SetVersion(v string) { version = v }

// Client is an HTTP client for the matchmaking server.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	// stream has no overall timeout; the push channel lives as long as its context.
	stream *http.Client
}

// New creates a client for the server at baseURL. apiKey may be empty.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// QueuePlayers fetches the current queue snapshot.
func (c *Client) QueuePlayers(ctx context.Context) ([]QueueEntry, error) {
	var entries []QueueEntry
	if err := c.do(ctx, http.MethodGet, "/queue/players", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RecentMatches fetches the latest completed matches.
func (c *Client) RecentMatches(ctx context.Context) ([]RecentMatch, error) {
	var matches []RecentMatch
	if err := c.do(ctx, http.MethodGet, "/matches/recent", nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// ReportResult posts the outcome of a match. The response body is ignored.
func (c *Client) ReportResult(ctx context.Context, matchID string, res MatchResult) error {
	if matchID == "" {
		return fmt.Errorf("report result: empty match id")
	}
	return c.do(ctx, http.MethodPost, "/matches/"+url.PathEscape(matchID)+"/results", res, nil)
}

// JoinQueue enqueues a player.
func (c *Client) JoinQueue(ctx context.Context, req JoinRequest) error {
	if req.PlayerID == "" {
		return fmt.Errorf("join queue: player id is required")
	}
	return c.do(ctx, http.MethodPost, "/queue", req, nil)
}

// Players lists player profiles, optionally filtered by id prefix.
func (c *Client) Players(ctx context.Context, prefix string) ([]Player, error) {
	path := "/players"
	if prefix != "" {
		path += "?" + url.Values{"prefix": {prefix}}.Encode()
	}
	var players []Player
	if err := c.do(ctx, http.MethodGet, path, nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// AddPlayer creates a player profile. Returns the server's status line.
func (c *Client) AddPlayer(ctx context.Context, req PlayerRequest) (string, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodPost, "/players", req, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// UpdatePlayer changes the rank of an existing player.
func (c *Client) UpdatePlayer(ctx context.Context, req PlayerRequest) (string, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodPut, "/players", req, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// PlayerStats fetches one player's profile and record.
func (c *Client) PlayerStats(ctx context.Context, playerID string) (*Player, error) {
	var p Player
	if err := c.do(ctx, http.MethodGet, "/player/"+url.PathEscape(playerID)+"/stats", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Predict asks the server for win probabilities of two rosters.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*Prediction, error) {
	var p Prediction
	if err := c.do(ctx, http.MethodPost, "/predict", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// OpenStream opens the server-sent event stream. The caller owns the
// returned body and must close it; cancelling ctx also tears it down.
func (c *Client) OpenStream(ctx context.Context, lastEventID string) (io.ReadCloser, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/stream", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if lastEventID != "" {
		httpReq.Header.Set("Last-Event-ID", lastEventID)
	}

	httpResp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, newAPIError("GET /stream", httpResp.StatusCode, body)
	}
	return httpResp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", "augur/"+version)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}
	return httpReq, nil
}

// do sends one request and decodes a JSON response into out (if non-nil).
// Non-2xx statuses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	httpReq, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	start := time.Now()
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	slog.Debug("api call", "op", op, "status", httpResp.StatusCode,
		"elapsed", time.Since(start), "request_id", httpReq.Header.Get("X-Request-ID"))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return newAPIError(op, httpResp.StatusCode, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: parse response: %w (body: %s)", op, err, truncate(string(respBody), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
