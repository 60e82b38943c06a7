package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stacksIndexer/internal/config"
	"stacksIndexer/internal/storage"
	"stacksIndexer/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Stacks contract event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Poll contract events and serve the query API",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("api-url", "https://api.hiro.so", "upstream extended API base URL")
	runCmd.Flags().StringSlice("contract", nil, "contract ids to track, address.name (comma-separated)")
	runCmd.Flags().Duration("poll-interval", 10*time.Second, "poll interval per contract")
	runCmd.Flags().Int("page-limit", 50, "events requested per page")
	runCmd.Flags().Int("max-pages", 10, "maximum full pages drained per cycle")
	runCmd.Flags().Int("max-retries", 3, "maximum retry attempts for transient upstream errors")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Float64("rate-limit", 5, "upstream requests per second, 0 disables limiting")
	runCmd.Flags().Duration("request-timeout", 0, "per-request upstream timeout, 0 means none")
	runCmd.Flags().Bool("resume", true, "resume progress from stored checkpoints")
	runCmd.Flags().String("cursor-file", "", "optional file persisting page offsets across restarts")
	addServeFlags(runCmd)
	root.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API without polling",
		RunE:  runServe,
	}
	addServeFlags(serveCmd)
	root.AddCommand(serveCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored events to JSONL",
		RunE:  runExport,
	}

	exportCmd.Flags().String("store", config.StorePostgres, "event store backend (postgres, memory)")
	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	exportCmd.Flags().String("out", "./data/events.jsonl", "output JSONL path")
	exportCmd.Flags().String("contract-id", "", "only export events of this contract")
	exportCmd.Flags().String("since", "", "only export events at or after this time (unix seconds or RFC3339)")
	exportCmd.Flags().Int("batch-size", 500, "events read per batch")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", ":3000", "HTTP listen address")
	cmd.Flags().String("api-prefix", "/api", "route prefix of the query API")
	cmd.Flags().Bool("metrics", true, "expose /metrics")
	cmd.Flags().String("store", config.StorePostgres, "event store backend (postgres, memory)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Duration("shutdown-timeout", 15*time.Second, "graceful HTTP shutdown timeout")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

type stores struct {
	events      storage.EventStore
	checkpoints storage.CheckpointStore
	close       func()
}

func openStores(ctx context.Context, backend, dsn string, logger *zap.Logger) (stores, error) {
	switch backend {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		mem := storage.NewMemoryStore()
		return stores{events: mem, checkpoints: mem, close: func() {}}, nil
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return stores{}, fmt.Errorf("migrate postgres: %w", err)
		}
		return stores{events: pg, checkpoints: pg, close: pg.Close}, nil
	default:
		return stores{}, fmt.Errorf("unknown store %q", backend)
	}
}
