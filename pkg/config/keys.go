package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// configKeyInfo describes how to read and write one dotted config key.
type configKeyInfo struct {
	get func(*Config) string
	set func(*Config, string) error
}

var configKeys = map[string]configKeyInfo{
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error {
			c.Relay.Listen = v
			return nil
		},
	},
	"upstream.url": {
		get: func(c *Config) string { return c.Upstream.URL },
		set: func(c *Config, v string) error {
			c.Upstream.URL = v
			return nil
		},
	},
	"upstream.model": {
		get: func(c *Config) string { return c.Upstream.Model },
		set: func(c *Config, v string) error {
			c.Upstream.Model = v
			return nil
		},
	},
	"upstream.api_key": {
		get: func(c *Config) string { return c.Upstream.APIKey },
		set: func(c *Config, v string) error {
			c.Upstream.APIKey = v
			return nil
		},
	},
	"limits.idle_timeout": {
		get: func(c *Config) string { return c.Limits.IdleTimeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid duration %q: %w", v, err)
			}
			c.Limits.IdleTimeout = v
			return nil
		},
	},
	"limits.max_frame_buffer": {
		get: func(c *Config) string { return strconv.Itoa(c.Limits.MaxFrameBuffer) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid buffer size %q: must be a positive integer", v)
			}
			c.Limits.MaxFrameBuffer = n
			return nil
		},
	},
	"events.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Events.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean %q", v)
			}
			c.Events.Enabled = b
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			parts := strings.Split(v, ",")
			brokers := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					brokers = append(brokers, p)
				}
			}
			c.Events.Brokers = brokers
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error {
			c.Events.Topic = v
			return nil
		},
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error {
			c.Client.Target = v
			return nil
		},
	},
}

// ValidConfigKeys returns all supported configuration key names in a
// stable order matching the TOML section layout.
func ValidConfigKeys() []string {
	ordered := []string{
		"relay.listen",
		"upstream.url",
		"upstream.model",
		"upstream.api_key",
		"limits.idle_timeout",
		"limits.max_frame_buffer",
		"events.enabled",
		"events.brokers",
		"events.topic",
		"client.target",
	}

	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}
