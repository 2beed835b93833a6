package main

import (
	"fmt"
	"os"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/demoflow"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/adapters/redis"
	"github.com/parleyhq/parley/pkg/observability"
	"github.com/parleyhq/parley/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a node-based dialogue orchestration engine",
	Long:  `Parley drives multi-turn conversational agents through a graph of nodes, with session persistence, failure-aware escalation and resumable tasks.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
}

// buildEngine assembles an engine around the demo booking flow, honoring
// the config's persistence and policy settings.
func buildEngine(cfg config.Config, model ports.Model, metrics *observability.Metrics) (*parley.Engine, error) {
	logger := logging.New(cfg.SlogLevel())
	clinic := demoflow.NewClinic()
	reg := demoflow.NewRegistry(clinic, metrics)

	opts := []parley.Option{
		parley.WithLogger(logger),
		parley.WithFailurePolicy(cfg.Policy),
		parley.WithMetrics(metrics),
	}
	if cfg.EntryNode != "" {
		opts = append(opts, parley.WithEntryNode(cfg.EntryNode))
	}

	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redis.NewFromClient(client, redis.WithTTL(cfg.Redis.TTL.Std()))
		opts = append(opts,
			parley.WithStore(store),
			parley.WithLocker(redis.NewLocker(client, "parley:")),
		)
	}

	return parley.New(reg, model, opts...)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
