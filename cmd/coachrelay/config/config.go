// Package configcmder provides the config command for managing persistent
// coachrelay configuration stored in the .coachrelay/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent coachrelay configuration.

Configuration is stored as config.toml in the .coachrelay/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  relay.listen,
  upstream.url, upstream.model, upstream.api_key,
  limits.idle_timeout, limits.max_frame_buffer,
  events.enabled, events.brokers, events.topic,
  client.target

Use subcommands to get, set, or list configuration values:
  coachrelay config set <key> <value>    Set a configuration value
  coachrelay config get <key>            Get a configuration value
  coachrelay config list                 List all configuration values

Examples:
  coachrelay config set upstream.model gpt-4o
  coachrelay config set limits.idle_timeout 90s
  coachrelay config get relay.listen
  coachrelay config list`

const configShortDesc string = "Manage persistent coachrelay configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
