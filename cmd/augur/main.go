package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/config"
	"github.com/riftaugur/augur-cli/internal/display"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	api.SetVersion(version)

	root := &cobra.Command{
		Use:           "augur",
		Short:         "Augur: live matchmaking dashboard",
		Long:          "Augur CLI: watch the matchmaking queue, get notified when matches form, and report results.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	root.AddCommand(initCmd(), dashCmd(), queueCmd(), matchesCmd(), reportCmd(), playerCmd(),
		predictCmd(), configCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates the config and sets up stderr logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	display.SetupLogger(logLevel(cmd, cfg), os.Stderr)
	return cfg, nil
}

func logLevel(cmd *cobra.Command, cfg *config.Config) string {
	if cmd != nil {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			return "debug"
		}
	}
	return cfg.Logging.Level
}

func newClient(cfg *config.Config) *api.Client {
	return api.New(cfg.Server.URL, cfg.Server.APIKey, cfg.Server.Timeout.Duration)
}

// ── init command ──

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and check the server",
		RunE:  runInit,
	}
}

func runInit(_ *cobra.Command, _ []string) error {
	fmt.Printf("Welcome to Augur!  (v%s)\n\n", version)

	scanner := bufio.NewScanner(os.Stdin)

	if _, err := os.Stat(config.Path()); err == nil {
		fmt.Printf("Config already exists at %s\n", config.Path())
		fmt.Print("Overwrite? [y/N]: ")
		scanner.Scan()
		if strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	fmt.Printf("Matchmaking server URL [%s]: ", cfg.Server.URL)
	scanner.Scan()
	if v := strings.TrimSpace(scanner.Text()); v != "" {
		cfg.Server.URL = v
	}

	fmt.Print("API key (optional, Enter to skip): ")
	scanner.Scan()
	cfg.Server.APIKey = strings.TrimSpace(scanner.Text())

	fmt.Printf("Queue refresh interval [%s]: ", cfg.Dashboard.PollInterval.Duration)
	scanner.Scan()
	if v := strings.TrimSpace(scanner.Text()); v != "" {
		if err := cfg.Dashboard.PollInterval.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}

	fmt.Printf("Notification log size [%d]: ", cfg.Dashboard.LogCapacity)
	scanner.Scan()
	if v := strings.TrimSpace(scanner.Text()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid log size: %s", v)
		}
		cfg.Dashboard.LogCapacity = n
	}

	fmt.Println("When a result report fails:")
	fmt.Println("  1. optimistic  - close the match anyway")
	fmt.Println("  2. pessimistic - keep the match so it can be reported again")
	fmt.Print("Choose [1]: ")
	scanner.Scan()
	switch strings.TrimSpace(scanner.Text()) {
	case "", "1":
		cfg.Dashboard.ReportPolicy = config.PolicyOptimistic
	case "2":
		cfg.Dashboard.ReportPolicy = config.PolicyPessimistic
	default:
		return fmt.Errorf("invalid choice: %s", scanner.Text())
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Print("\nChecking server... ")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout.Duration)
	defer cancel()
	queue, err := newClient(cfg).QueuePlayers(ctx)
	if err != nil {
		fmt.Println("failed")
		fmt.Printf("Warning: %s\n", err)
		fmt.Println("Saving anyway; check the URL with 'augur config show'.")
	} else {
		fmt.Printf("ok (%d players waiting)\n", len(queue))
	}

	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("\nConfig saved to %s\n", config.Path())
	fmt.Println("Run 'augur dash' to open the live dashboard.")
	return nil
}

// ── config command ──

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current config (API key redacted)",
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print config file path",
			Run: func(_ *cobra.Command, _ []string) {
				fmt.Println(config.Path())
			},
		},
	)
	return cmd
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n", config.Path())
	return toml.NewEncoder(os.Stdout).Encode(cfg.Redact())
}

// ── version command ──

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("augur %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// requestContext bounds a one-shot command.
func requestContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cfg.Server.Timeout.Duration+5*time.Second)
}
