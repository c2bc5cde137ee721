// Package coachrelaycmder
package coachrelaycmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/adaptiveopslab/coachrelay/cmd/coachrelay/chat"
	configcmder "github.com/adaptiveopslab/coachrelay/cmd/coachrelay/config"
	servecmder "github.com/adaptiveopslab/coachrelay/cmd/coachrelay/serve"
	versioncmder "github.com/adaptiveopslab/coachrelay/cmd/version"
)

const coachrelayLongDesc string = `Coachrelay streams live coaching guidance from an upstream LLM.

Run the relay using:
  coachrelay serve     Run the relay server
  coachrelay chat      Stream a coaching session from a running relay
  coachrelay config    Manage persistent configuration`

const coachrelayShortDesc string = "Coachrelay - Live Coaching Stream Relay"

func NewCoachrelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coachrelay",
		Short: coachrelayShortDesc,
		Long:  coachrelayLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .coachrelay/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
