package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/presentation/tui"
	"github.com/parleyhq/parley/pkg/adapters/scripted"
	"github.com/parleyhq/parley/pkg/observability"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a scripted conversation through the engine",
	Long:  `Runs every turn of a recorded script against the demo booking flow and renders the resulting transcript, including function call outcomes and node transitions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		script, err := scripted.LoadFile(args[0])
		if err != nil {
			return err
		}

		engine, err := buildEngine(cfg, scripted.New(script), observability.NewNop())
		if err != nil {
			return fmt.Errorf("initializing engine: %w", err)
		}

		tui.PrintBanner()
		render := tui.NewRenderer()

		ctx := cmd.Context()
		state, err := engine.StartSession(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = engine.EndSession(ctx, state.ID, "replay_finished") }()

		for i, turn := range script.Turns {
			result, err := engine.ProcessTurn(ctx, state.ID, turn.User)
			if err != nil {
				return fmt.Errorf("turn %d: %w", i+1, err)
			}

			out, err := render(tui.TranscriptMarkdown(turn.User, result))
			if err != nil {
				return err
			}
			fmt.Print(out)

			if result.Escalated {
				break
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
