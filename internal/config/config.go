// Package config loads and saves the augur TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const fileName = "config.toml"

// Config is the on-disk configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Stream    StreamConfig    `toml:"stream"`
	Console   ConsoleConfig   `toml:"console"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig points at the matchmaking server.
type ServerConfig struct {
	URL     string   `toml:"url"`
	APIKey  string   `toml:"api_key,omitempty"`
	Timeout Duration `toml:"timeout"`
}

// DashboardConfig tunes the live views.
type DashboardConfig struct {
	PollInterval     Duration `toml:"poll_interval"`
	MatchSettleDelay Duration `toml:"match_settle_delay"`
	LogCapacity      int      `toml:"log_capacity"`
	// ReportPolicy is "optimistic" (clear the match even when the report
	// request fails) or "pessimistic" (keep it active on failure).
	ReportPolicy string `toml:"report_policy"`
}

// StreamConfig bounds the push channel reconnect backoff.
type StreamConfig struct {
	ReconnectMin Duration `toml:"reconnect_min"`
	ReconnectMax Duration `toml:"reconnect_max"`
}

// ConsoleConfig controls the local web console.
type ConsoleConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `toml:"level"`
	// File receives logs while the TUI owns the terminal. Empty means
	// augur.log in the config directory.
	File string `toml:"file,omitempty"`
}

// Duration is a time.Duration stored as a string ("5s", "500ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:5000",
			Timeout: Duration{10 * time.Second},
		},
		Dashboard: DashboardConfig{
			PollInterval:     Duration{5 * time.Second},
			MatchSettleDelay: Duration{500 * time.Millisecond},
			LogCapacity:      200,
			ReportPolicy:     PolicyOptimistic,
		},
		Stream: StreamConfig{
			ReconnectMin: Duration{time.Second},
			ReconnectMax: Duration{30 * time.Second},
		},
		Console: ConsoleConfig{
			Enabled: true,
			Port:    2727,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Dir returns the configuration directory. AUGUR_HOME overrides ~/.augur.
func Dir() string {
	if d := os.Getenv("AUGUR_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".augur"
	}
	return filepath.Join(home, ".augur")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), fileName)
}

// LogPath returns the log file used while the TUI is active.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(Dir(), "augur.log")
}

// Load reads the config file on top of the defaults, then applies
// AUGUR_SERVER and AUGUR_API_KEY overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(Path(), cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", Path(), err)
	}
	if v := os.Getenv("AUGUR_SERVER"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("AUGUR_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(Path(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
