package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/config"
	"github.com/riftaugur/augur-cli/internal/dash"
	"github.com/riftaugur/augur-cli/internal/display"
	"github.com/riftaugur/augur-cli/internal/metrics"
	"github.com/riftaugur/augur-cli/internal/tui"
	"github.com/riftaugur/augur-cli/internal/web"
)

func dashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the live matchmaking dashboard",
		Args:  cobra.NoArgs,
		RunE:  runDash,
	}
	cmd.Flags().Bool("plain", false, "line-oriented output instead of the full-screen dashboard")
	cmd.Flags().Bool("no-web", false, "disable the local web console")
	cmd.Flags().IntP("port", "p", 0, "web console port (default from config, auto-increments if taken)")
	return cmd
}

func runDash(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	plain, _ := cmd.Flags().GetBool("plain")
	noWeb, _ := cmd.Flags().GetBool("no-web")

	// The full-screen dashboard owns the terminal, so logs go to a file.
	if plain {
		display.SetupLogger(logLevel(cmd, cfg), os.Stderr)
	} else {
		logFile, err := openLogFile(cfg.LogPath())
		if err != nil {
			return err
		}
		defer logFile.Close()
		display.SetupLogger(logLevel(cmd, cfg), logFile)
	}

	sess := dash.NewSession(newClient(cfg), dash.OptionsFromConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Console.Enabled && !noWeb {
		port := cfg.Console.Port
		pinned := false
		if p, _ := cmd.Flags().GetInt("port"); p > 0 {
			port = p
			pinned = true
		}
		metrics.Init()
		srv := web.New(sess, port)
		actualPort, startErr := srv.Start(pinned)
		if startErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: web console unavailable: %s\n", startErr)
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			announce(sess, "Console: http://127.0.0.1:%d", actualPort)
			if plain {
				fmt.Printf("Console: http://127.0.0.1:%d\n", actualPort)
			}
		}
	}

	if plain {
		fmt.Printf("Augur %s: watching %s\n", version, cfg.Server.URL)
		fmt.Println("Commands: a | b (report winner), c (clear), p (pause refresh), j <player> [mmr], q (quit)")
		fmt.Println()
		fmt.Println(dash.WaitingMessage)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		if plain {
			return runPlain(gctx, sess, os.Stdin, os.Stdout, cancel)
		}
		return tui.Run(gctx, sess, cancel)
	})
	return g.Wait()
}

// announce adds a notification line from outside the session loop.
func announce(sess *dash.Session, format string, args ...any) {
	sess.Post(func() { sess.Log.Addf(format, args...) })
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// runPlain prints session changes as lines and reads one-letter commands
// from in until ctx is cancelled.
func runPlain(ctx context.Context, sess *dash.Session, in io.Reader, out io.Writer, cancel context.CancelFunc) error {
	out = &lockedWriter{w: out}
	var lastQueue []api.QueueEntry
	var lastQueueErr string

	unsubs := []func(){
		sess.Log.Subscribe(func(l dash.LogLine) { display.DisplayLine(out, l) }),
		sess.Match.Subscribe(func(m *api.MatchNotification) { display.DisplayMatch(out, m) }),
		sess.Queue.Subscribe(func(snap dash.Snapshot[[]api.QueueEntry]) {
			errText := ""
			if snap.Err != nil {
				errText = snap.Err.Error()
			}
			if errText == lastQueueErr && slices.Equal(snap.Items, lastQueue) {
				return
			}
			lastQueue, lastQueueErr = snap.Items, errText
			display.DisplayQueue(out, snap)
		}),
		sess.Recent.Subscribe(func(snap dash.Snapshot[[]api.RecentMatch]) { display.DisplayRecent(out, snap) }),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			if quit := plainCommand(ctx, sess, out, line); quit {
				cancel()
				return nil
			}
		}
	}
}

// plainCommand runs one line-mode command. It reports whether to quit.
func plainCommand(ctx context.Context, sess *dash.Session, out io.Writer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "q", "quit", "exit":
		return true
	case "a", "b":
		side, _ := dash.ParseSide(fields[0])
		if err := sess.Report(ctx, side); err != nil {
			fmt.Fprintf(out, "Error: %s\n", err)
		}
	case "c", "clear":
		if !sess.Clear() {
			fmt.Fprintf(out, "Error: %s\n", dash.ErrNoActiveMatch)
		}
	case "p", "pause":
		if sess.Control.Toggle() {
			fmt.Fprintln(out, "Queue auto-refresh paused.")
		} else {
			fmt.Fprintln(out, "Queue auto-refresh resumed.")
		}
	case "r", "refresh":
		sess.Queue.Refresh()
		sess.Recent.Refresh()
	case "j", "join":
		if len(fields) < 2 || len(fields) > 3 {
			fmt.Fprintln(out, "Usage: j <player_id> [mmr]")
			return false
		}
		var mmr *int
		if len(fields) == 3 {
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				fmt.Fprintf(out, "Error: invalid mmr %q\n", fields[2])
				return false
			}
			mmr = &n
		}
		_ = sess.JoinQueue(ctx, fields[1], mmr)
	default:
		fmt.Fprintf(out, "Unknown command %q\n", fields[0])
	}
	return false
}

// lockedWriter serializes writes from the session loop and the command reader.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
