package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/adherence-api/internal/config"
	"github.com/jwalitptl/adherence-api/internal/repository"
	"github.com/jwalitptl/adherence-api/internal/repository/postgres"
	"github.com/jwalitptl/adherence-api/pkg/logger"
	"github.com/jwalitptl/adherence-api/pkg/messaging"
	"github.com/jwalitptl/adherence-api/pkg/messaging/redis"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

func main() {
	var cfgPath string
	var cfg *config.Config
	var lg *logger.Logger

	rootCmd := &cobra.Command{
		Use:           "adherence",
		Short:         "Medication adherence API for pharmacies and their clients",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			var err error
			cfg, err = config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			lg = logger.NewLogger(&logger.Config{
				Level:      logger.ParseLevel(cfg.Log.Level),
				TimeFormat: time.RFC3339,
				JSON:       cfg.Log.JSON,
			})
			lg.SetGlobal()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.yaml")

	load := func() (*config.Config, *logger.Logger) { return cfg, lg }
	rootCmd.AddCommand(serveCmd(load), workerCmd(load), migrateCmd(load))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loader hands subcommands the config and logger built by the root command.
type loader func() (*config.Config, *logger.Logger)

// infra holds the connections shared by serve and worker.
type infra struct {
	db       *sqlx.DB
	repos    *repository.Repositories
	broker   messaging.Broker
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func openInfra(ctx context.Context, cfg *config.Config, lg *logger.Logger) (*infra, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("adherence", registry)

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	broker, err := newBroker(cfg, lg, m)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &infra{
		db:       db,
		repos:    postgres.New(db),
		broker:   broker,
		metrics:  m,
		registry: registry,
	}, nil
}

func (i *infra) Close() {
	if err := i.broker.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close broker")
	}
	if err := i.db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}

// newBroker falls back to the in-process broker when no Redis URL is set,
// which only reaches websocket clients of this same process.
func newBroker(cfg *config.Config, lg *logger.Logger, m *metrics.Metrics) (messaging.Broker, error) {
	if cfg.Redis.URL == "" {
		lg.Warn("Redis URL not set, using in-process broker")
		return messaging.NewMemoryBroker(), nil
	}
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: 2,
	}, lg.Zerolog(), m)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return broker, nil
}
