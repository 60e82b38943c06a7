package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stacksIndexer/internal/config"
	"stacksIndexer/internal/storage"
)

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Store, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer st.close()

	sink := storage.NewJsonlSink(cfg.Out)
	if err := sink.Truncate(); err != nil {
		return fmt.Errorf("truncate %s: %w", cfg.Out, err)
	}

	filter := storage.EventFilter{ContractID: cfg.ContractID, Since: cfg.Since}
	written, err := exportEvents(ctx, st.events, sink, filter, cfg.BatchSize)
	if err != nil {
		return err
	}

	logger.Info("export done",
		zap.String("out", cfg.Out),
		zap.String("contract_id", cfg.ContractID),
		zap.Time("since", cfg.Since),
		zap.Int("events", written),
	)
	return nil
}

// exportEvents copies every event matching filter into sink, batchSize at a time.
func exportEvents(ctx context.Context, events storage.EventStore, sink storage.Sink, filter storage.EventFilter, batchSize int) (int, error) {
	written := 0
	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		batch, _, err := events.Find(ctx, filter, storage.Page{Offset: offset, Limit: batchSize})
		if err != nil {
			return written, fmt.Errorf("read events at offset %d: %w", offset, err)
		}
		if len(batch) == 0 {
			return written, nil
		}
		if err := sink.PutEventBatch(batch); err != nil {
			return written, fmt.Errorf("write events: %w", err)
		}
		written += len(batch)
		if len(batch) < batchSize {
			return written, nil
		}
	}
}
