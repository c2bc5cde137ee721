// Package servecmder provides the serve command for running the relay server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adaptiveopslab/coachrelay/pkg/config"
	"github.com/adaptiveopslab/coachrelay/pkg/eventstream"
	"github.com/adaptiveopslab/coachrelay/pkg/eventstream/kafka"
	"github.com/adaptiveopslab/coachrelay/pkg/eventstream/nop"
	"github.com/adaptiveopslab/coachrelay/pkg/logger"
	"github.com/adaptiveopslab/coachrelay/relay"
)

type ServeCommander struct {
	listen         string
	upstream       string
	model          string
	idleTimeout    string
	maxFrameBuffer int
	eventsBrokers  []string
	eventsTopic    string
	debug          bool

	cfg    *config.Config
	logger *zap.Logger
}

const serveLongDesc string = `Run the coachrelay server.

The relay accepts coaching requests, opens a streaming completion against
the configured upstream provider, and re-emits the response as a
simplified event stream.

Configuration precedence: flags > COACHRELAY_* environment variables >
.coachrelay/config.toml > defaults. The upstream API key is read from
COACHRELAY_UPSTREAM_API_KEY or the config file.

Examples:
  coachrelay serve
  coachrelay serve --listen :9000 --model gpt-4o
  coachrelay serve --events-brokers localhost:9092`

const serveShortDesc string = "Run the coachrelay server"

var serveFlags = []string{
	config.FlagListen,
	config.FlagUpstream,
	config.FlagModel,
	config.FlagIdleTimeout,
	config.FlagMaxFrameBuffer,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, fs, serveFlags)

			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(configDir)
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, fs, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagIdleTimeout, &cmder.idleTimeout)
	config.AddIntFlag(cmd, fs, config.FlagMaxFrameBuffer, &cmder.maxFrameBuffer)
	config.AddStringSliceFlag(cmd, fs, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, fs, config.FlagEventsTopic, &cmder.eventsTopic)

	return cmd
}

func (c *ServeCommander) run(configDir string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	relayConfig, err := c.relayConfig()
	if err != nil {
		return err
	}

	publisher, err := c.createPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	r, err := relay.New(relayConfig, publisher, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	c.logger.Info("starting relay",
		zap.String("listen", relayConfig.ListenAddr),
		zap.String("upstream", relayConfig.UpstreamURL),
		zap.String("model", relayConfig.Settings.Model),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.watchConfig(ctx, configDir, r)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 1)

	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}

// relayConfig materializes a relay.Config from the resolved configuration.
func (c *ServeCommander) relayConfig() (relay.Config, error) {
	idle, err := c.cfg.Limits.ParseIdleTimeout()
	if err != nil {
		return relay.Config{}, err
	}

	return relay.Config{
		ListenAddr:  c.cfg.Relay.Listen,
		UpstreamURL: c.cfg.Upstream.URL,
		APIKey:      c.cfg.Upstream.APIKey,
		Settings: relay.Settings{
			Model:          c.cfg.Upstream.Model,
			IdleTimeout:    idle,
			MaxFrameBuffer: c.cfg.Limits.MaxFrameBuffer,
		},
	}, nil
}

func (c *ServeCommander) createPublisher() (eventstream.Publisher, error) {
	brokers := c.cfg.Events.Brokers

	// Passing brokers implies enabling events.
	if !c.cfg.Events.Enabled && len(brokers) == 0 {
		c.logger.Info("session events disabled")
		return nop.NewPublisher(), nil
	}
	if len(brokers) == 0 {
		c.logger.Info("session events enabled but no brokers configured")
		return nop.NewPublisher(), nil
	}

	publisher, err := kafka.NewPublisher(brokers, c.cfg.Events.Topic)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	c.logger.Info("publishing session events",
		zap.Strings("brokers", brokers),
		zap.String("topic", c.cfg.Events.Topic),
	)
	return publisher, nil
}

// watchConfig hot-reloads the tunable settings when config.toml changes.
// Watching is best effort; a missing config file just means no reloads.
func (c *ServeCommander) watchConfig(ctx context.Context, configDir string, r *relay.Relay) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil || cfger.GetTarget() == "" {
		return
	}

	watcher, err := config.NewWatcher(cfger, c.logger)
	if err != nil {
		c.logger.Debug("config watching unavailable", zap.Error(err))
		return
	}

	go func() {
		defer watcher.Close()
		_ = watcher.Watch(ctx, func(cfg *config.Config) {
			idle, err := cfg.Limits.ParseIdleTimeout()
			if err != nil {
				c.logger.Error("ignoring reloaded config", zap.Error(err))
				return
			}

			r.ApplySettings(relay.Settings{
				Model:          cfg.Upstream.Model,
				IdleTimeout:    idle,
				MaxFrameBuffer: cfg.Limits.MaxFrameBuffer,
			})

			c.logger.Info("applied reloaded settings",
				zap.String("model", cfg.Upstream.Model),
				zap.Duration("idle_timeout", idle),
				zap.Int("max_frame_buffer", cfg.Limits.MaxFrameBuffer),
			)
		})
	}()
}
