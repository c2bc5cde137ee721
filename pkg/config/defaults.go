package config

const (
	// DefaultConfigVersion is the current config schema version.
	DefaultConfigVersion = 1

	// DefaultListen is the default relay listen address.
	DefaultListen = ":8090"

	// DefaultUpstreamURL is the default chat completion endpoint.
	DefaultUpstreamURL = "https://api.openai.com/v1/chat/completions"

	// DefaultModel is the default upstream model identifier.
	DefaultModel = "gpt-4o-mini"

	// DefaultIdleTimeout is the default upstream idle watchdog duration.
	DefaultIdleTimeout = "120s"

	// DefaultMaxFrameBuffer is the default cap on the bytes an unresolved
	// frame may accumulate before the session aborts.
	DefaultMaxFrameBuffer = 1 << 20

	// DefaultEventsTopic is the default Kafka topic for session summaries.
	DefaultEventsTopic = "coachrelay.sessions"

	// DefaultClientTarget is the default relay URL for CLI consumers.
	DefaultClientTarget = "http://localhost:8090"
)

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() *Config {
	return &Config{
		Version: DefaultConfigVersion,
		Relay: RelayConfig{
			Listen: DefaultListen,
		},
		Upstream: UpstreamConfig{
			URL:   DefaultUpstreamURL,
			Model: DefaultModel,
		},
		Limits: LimitsConfig{
			IdleTimeout:    DefaultIdleTimeout,
			MaxFrameBuffer: DefaultMaxFrameBuffer,
		},
		Events: EventsConfig{
			Topic: DefaultEventsTopic,
		},
		Client: ClientConfig{
			Target: DefaultClientTarget,
		},
	}
}
