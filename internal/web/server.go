package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/dash"
)

// DefaultPort is the default web console port.
const DefaultPort = 2727

// maxPortRetries is the number of ports to try before giving up.
const maxPortRetries = 10

// Server is the local web console HTTP server.
type Server struct {
	hub     *EventHub
	sess    *dash.Session
	router  chi.Router
	httpSrv *http.Server
	unsubs  []func()
	stop    chan struct{}
}

// New creates a console for sess and starts relaying its state changes to
// the event hub. The port parameter sets the starting port (0 means
// DefaultPort).
func New(sess *dash.Session, port int) *Server {
	if port <= 0 {
		port = DefaultPort
	}

	s := &Server{
		hub:  NewEventHub(),
		sess: sess,
		stop: make(chan struct{}),
	}
	s.relay()

	staticSub, _ := fs.Sub(staticFS, "static")
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	r.Get("/events", s.handleSSE)
	r.Get("/state", s.handleState)
	r.Post("/report", s.handleReport)
	r.Post("/clear", s.handleClear)
	r.Post("/queue", s.handleJoin)
	r.Post("/control/pause", s.handlePause)
	r.Post("/control/resume", s.handleResume)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: r,
	}
	return s
}

// Handler returns the console's router.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the event hub the console publishes to.
func (s *Server) Hub() *EventHub { return s.hub }

// relay subscribes to the session's observables. The callbacks run on the
// session loop and only publish, which never blocks.
func (s *Server) relay() {
	s.unsubs = append(s.unsubs,
		s.sess.Log.Subscribe(func(l dash.LogLine) {
			s.hub.Publish(Event{Type: "log", Message: l.Message, Data: l})
		}),
		s.sess.Match.Subscribe(func(m *api.MatchNotification) {
			if m == nil {
				s.hub.Publish(Event{Type: "match", Message: "No active match"})
				return
			}
			s.hub.Publish(Event{Type: "match", Message: "Match " + m.MatchID, Data: m})
		}),
		s.sess.Queue.Subscribe(func(snap dash.Snapshot[[]api.QueueEntry]) {
			s.hub.Publish(Event{Type: "queue", Message: errText(snap.Err), Data: snap.Items})
		}),
		s.sess.Recent.Subscribe(func(snap dash.Snapshot[[]api.RecentMatch]) {
			s.hub.Publish(Event{Type: "recent", Message: errText(snap.Err), Data: snap.Items})
		}),
	)
}

// Start binds the console on 127.0.0.1 and serves in the background,
// returning the bound port. A busy port moves to the next one, up to
// maxPortRetries, unless pinned is set by an explicit --port.
func (s *Server) Start(pinned bool) (int, error) {
	_, portStr, _ := net.SplitHostPort(s.httpSrv.Addr)
	port, _ := strconv.Atoi(portStr)

	tries := maxPortRetries
	if pinned {
		tries = 1
	}

	var lastErr error
	for i := 0; i < tries; i++ {
		addr := fmt.Sprintf("127.0.0.1:%d", port+i)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		s.httpSrv.Addr = addr
		go func() {
			if err := s.httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				slog.Error("web console error", "error", err)
			}
		}()
		return port + i, nil
	}

	if pinned {
		return 0, fmt.Errorf("web console port %d: %w", port, lastErr)
	}
	return 0, fmt.Errorf("web console: no available port in range %d-%d", port, port+maxPortRetries-1)
}

// Shutdown detaches from the session, ends open event streams and stops
// the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data, _ := staticFS.ReadFile("static/index.html")
	_, _ = w.Write(data)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	var types []string
	if q := r.URL.Query().Get("types"); q != "" {
		types = strings.Split(q, ",")
	}
	events, unsubscribe := s.hub.Subscribe(types...)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.stop:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, _ := json.Marshal(e)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// stateResponse is the GET /state body.
type stateResponse struct {
	State       string                 `json:"state"`
	Match       *api.MatchNotification `json:"match"`
	Paused      bool                   `json:"paused"`
	Queue       []api.QueueEntry       `json:"queue"`
	QueueError  string                 `json:"queue_error,omitempty"`
	Recent      []api.RecentMatch      `json:"recent"`
	RecentError string                 `json:"recent_error,omitempty"`
	Log         []dash.LogLine         `json:"log"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	resp := stateResponse{
		State:  s.sess.Match.State().String(),
		Paused: s.sess.Control.IsPaused(),
		Log:    s.sess.Log.Lines(),
	}
	if m, ok := s.sess.Match.Current(); ok {
		resp.Match = &m
	}
	q := s.sess.Queue.Snapshot()
	resp.Queue, resp.QueueError = q.Items, errText(q.Err)
	rm := s.sess.Recent.Snapshot()
	resp.Recent, resp.RecentError = rm.Items, errText(rm.Err)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Winner string `json:"winner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	side, err := dash.ParseSide(req.Winner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The submission outlives a closed browser tab.
	err = s.sess.Report(context.WithoutCancel(r.Context()), side)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "reported"})
	case errors.Is(err, dash.ErrNoActiveMatch), errors.Is(err, dash.ErrReportInFlight):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, upstreamStatus(err), err.Error())
	}
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	if !s.sess.Clear() {
		writeError(w, http.StatusConflict, dash.ErrNoActiveMatch.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req api.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id required")
		return
	}
	if err := s.sess.JoinQueue(r.Context(), req.PlayerID, req.MMR); err != nil {
		writeError(w, upstreamStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.sess.Control.Pause()
	s.hub.Publish(Event{Type: "control", Message: "Queue auto-refresh paused"})
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	s.sess.Control.Resume()
	s.hub.Publish(Event{Type: "control", Message: "Queue auto-refresh resumed"})
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

// upstreamStatus passes client errors from the matchmaking server through
// and maps everything else to 502.
func upstreamStatus(err error) int {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
