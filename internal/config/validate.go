package config

import (
	"fmt"
	"net/url"
	"time"
)

// Report policies accepted by dashboard.report_policy.
const (
	PolicyOptimistic  = "optimistic"
	PolicyPessimistic = "pessimistic"
)

// Validate checks that the config has all required fields.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required — run 'augur init'")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.url %q must be an http(s) URL", c.Server.URL)
	}
	if c.Server.Timeout.Duration <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}

	if c.Dashboard.PollInterval.Duration < 100*time.Millisecond {
		return fmt.Errorf("dashboard.poll_interval must be at least 100ms")
	}
	if c.Dashboard.MatchSettleDelay.Duration < 0 {
		return fmt.Errorf("dashboard.match_settle_delay cannot be negative")
	}
	if c.Dashboard.LogCapacity < 1 {
		return fmt.Errorf("dashboard.log_capacity must be at least 1")
	}
	switch c.Dashboard.ReportPolicy {
	case PolicyOptimistic, PolicyPessimistic:
	default:
		return fmt.Errorf("dashboard.report_policy must be one of: optimistic, pessimistic")
	}

	if c.Stream.ReconnectMin.Duration <= 0 {
		return fmt.Errorf("stream.reconnect_min must be positive")
	}
	if c.Stream.ReconnectMax.Duration < c.Stream.ReconnectMin.Duration {
		return fmt.Errorf("stream.reconnect_max must not be below stream.reconnect_min")
	}

	if c.Console.Port < 0 || c.Console.Port > 65535 {
		return fmt.Errorf("console.port must be between 0 and 65535")
	}
	return nil
}

// Redact returns a copy of the config with the API key masked for display.
func (c *Config) Redact() *Config {
	copy := *c
	if c.Server.APIKey != "" {
		copy.Server.APIKey = redactKey(c.Server.APIKey)
	}
	return &copy
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
