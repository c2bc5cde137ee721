package relay

import "time"

const (
	// DefaultIdleTimeout bounds how long a session waits for the next
	// upstream byte before the connection is considered stalled.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultMaxFrameBuffer bounds the unresolved frame tail per session.
	DefaultMaxFrameBuffer = 1024 * 1024
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// UpstreamURL is the upstream chat-completions endpoint
	// (e.g., "https://api.openai.com/v1/chat/completions")
	UpstreamURL string

	// APIKey is the upstream provider credential. Sessions fail with a
	// config error before any upstream contact when it is empty.
	APIKey string

	// Settings are the hot-reloadable session settings; zero fields take
	// defaults. See Relay.ApplySettings.
	Settings Settings
}

// Settings are the per-session knobs that may change while the server is
// running (the config watcher reapplies them on file change). A Settings
// value is read atomically at session start; in-flight sessions keep the
// settings they started with.
type Settings struct {
	// Model is the upstream model identifier.
	Model string

	// IdleTimeout is the per-read upstream watchdog window.
	IdleTimeout time.Duration

	// MaxFrameBuffer is the per-session frame buffer ceiling in bytes.
	MaxFrameBuffer int
}

// withDefaults fills zero fields with package defaults.
func (s Settings) withDefaults() Settings {
	if s.Model == "" {
		s.Model = "gpt-4o-mini"
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.MaxFrameBuffer <= 0 {
		s.MaxFrameBuffer = DefaultMaxFrameBuffer
	}
	return s
}
