package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpAdapter "github.com/parleyhq/parley/pkg/adapters/mcp"
	"github.com/parleyhq/parley/pkg/adapters/scripted"
	"github.com/parleyhq/parley/pkg/observability"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the dialogue engine as an MCP server over stdio.
This lets MCP clients drive sessions through the start_session,
process_turn and end_session tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		scriptPath, _ := cmd.Flags().GetString("script")
		script, err := scripted.LoadFile(scriptPath)
		if err != nil {
			return err
		}

		engine, err := buildEngine(cfg, scripted.New(script), observability.NewNop())
		if err != nil {
			return fmt.Errorf("initializing engine: %w", err)
		}

		// Keep Stdout clean for JSON-RPC.
		log.SetOutput(os.Stderr)

		srv := mcpAdapter.NewServer(engine)
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("script", "s", "examples/booking-demo/script.yaml", "Scripted model to serve turns with")
}
