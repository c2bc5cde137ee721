package config

import (
	"fmt"
	"time"
)

// Config represents the persistent coachrelay configuration stored as
// config.toml in the .coachrelay/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Relay    RelayConfig    `toml:"relay"`
	Upstream UpstreamConfig `toml:"upstream"`
	Limits   LimitsConfig   `toml:"limits"`
	Events   EventsConfig   `toml:"events"`
	Client   ClientConfig   `toml:"client"`
}

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// UpstreamConfig holds upstream provider settings. APIKey is normally
// supplied through the COACHRELAY_UPSTREAM_API_KEY environment variable
// rather than the file.
type UpstreamConfig struct {
	URL    string `toml:"url,omitempty"`
	Model  string `toml:"model,omitempty"`
	APIKey string `toml:"api_key,omitempty"`
}

// LimitsConfig holds the per-session safety limits. IdleTimeout is a Go
// duration string (e.g. "120s").
type LimitsConfig struct {
	IdleTimeout    string `toml:"idle_timeout,omitempty"`
	MaxFrameBuffer int    `toml:"max_frame_buffer,omitempty"`
}

// ParseIdleTimeout parses the idle timeout duration. An empty value
// returns zero, which callers treat as "use the default".
func (l LimitsConfig) ParseIdleTimeout() (time.Duration, error) {
	if l.IdleTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("parsing limits.idle_timeout: %w", err)
	}
	return d, nil
}

// EventsConfig holds the session eventstream settings. Disabled by
// default; when enabled, session summaries publish to the Kafka brokers.
type EventsConfig struct {
	Enabled bool     `toml:"enabled,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// relay (e.g. coachrelay chat). Target is a full URL (scheme + host + port).
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}
