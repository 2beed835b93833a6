package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/logging"
	httpAdapter "github.com/parleyhq/parley/pkg/adapters/http"
	"github.com/parleyhq/parley/pkg/adapters/scripted"
	"github.com/parleyhq/parley/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the dialogue engine in server mode, exposing session management and turn processing as a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}

		scriptPath, _ := cmd.Flags().GetString("script")
		script, err := scripted.LoadFile(scriptPath)
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		metrics := observability.New(registry)

		engine, err := buildEngine(cfg, scripted.New(script), metrics)
		if err != nil {
			return fmt.Errorf("initializing engine: %w", err)
		}

		handler := httpAdapter.NewHandler(engine,
			httpAdapter.WithLogger(logging.New(cfg.SlogLevel())),
			httpAdapter.WithGatherer(registry),
		)

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Parley server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			fmt.Printf("\nShutting down, signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("killing server: %w", err)
				}
			}
			fmt.Println("Parley server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides config)")
	serveCmd.Flags().StringP("script", "s", "examples/booking-demo/script.yaml", "Scripted model to serve turns with")
}
