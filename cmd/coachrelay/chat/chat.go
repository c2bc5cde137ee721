// Package chatcmder provides the chat command for streaming coaching
// sessions from a running relay.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/adaptiveopslab/coachrelay/pkg/client"
	"github.com/adaptiveopslab/coachrelay/pkg/cliui"
	"github.com/adaptiveopslab/coachrelay/pkg/config"
	"github.com/adaptiveopslab/coachrelay/pkg/logger"
)

var (
	userPrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("scenario> ")
	coachPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("coach> ")
)

type chatCommander struct {
	target string
	token  string
	notes  string
	debug  bool

	logger *slog.Logger
}

const chatLongDesc string = `Stream a coaching session from a running coachrelay server.

With a scenario argument, streams a single session and exits. Without
arguments, starts an interactive loop reading scenarios from stdin.

Examples:
  coachrelay chat "Two pods are crash-looping after the deploy"
  coachrelay chat --notes "we already rolled back" "API latency doubled"
  coachrelay chat --target http://relay.internal:8090`

const chatShortDesc string = "Stream a coaching session from the relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "chat [scenario]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagTarget})

			cmder.target = v.GetString("client.target")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			scenario := ""
			if len(args) == 1 {
				scenario = strings.TrimSpace(args[0])
			}

			return cmder.run(scenario)
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagTarget, &cmder.target)
	cmd.Flags().StringVar(&cmder.token, "token", "local", "Bearer token sent to the relay")
	cmd.Flags().StringVarP(&cmder.notes, "notes", "n", "", "Additional context sent with the scenario")

	return cmd
}

func (c *chatCommander) run(scenario string) error {
	c.logger = logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
	)

	cl := client.New(c.target, c.token)

	if !cl.Healthy(context.Background(), 2*time.Second) {
		c.logger.Warn("relay health check failed", "target", c.target)
	}

	if scenario != "" {
		return c.streamSession(cl, scenario)
	}

	fmt.Println()
	fmt.Printf("  %s\n\n", cliui.FaintStyle.Render("Describe your scenario and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := c.streamSession(cl, input); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// streamSession runs one coaching session and prints it to stdout.
func (c *chatCommander) streamSession(cl *client.Client, scenario string) error {
	start := time.Now()

	s, err := cl.Stream(context.Background(), client.Request{
		Scenario: scenario,
		Notes:    c.notes,
	})
	if err != nil {
		return err
	}

	fmt.Print(coachPrompt)

	for ev := range s.Events() {
		switch ev.Kind {
		case client.KindChunk:
			fmt.Print(ev.Text)
		case client.KindDone:
			fmt.Printf("\n\n  %s %s\n",
				cliui.SuccessMark,
				cliui.StepStyle.Render(fmt.Sprintf("(%s)", cliui.FormatDuration(time.Since(start)))),
			)
		case client.KindError:
			fmt.Println()
			return ev.Err
		}
	}

	return nil
}
