package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stacksIndexer/internal/api"
	"stacksIndexer/internal/chain"
	"stacksIndexer/internal/config"
	"stacksIndexer/internal/indexer"
	"stacksIndexer/internal/query"
)

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	contracts, err := indexer.ParseContracts(cfg.Contracts)
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		return fmt.Errorf("at least one contract is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Store, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer st.close()

	client, err := chain.NewClient(chain.Config{
		BaseURL:        cfg.APIURL,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		RateLimit:      cfg.RateLimit,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("create upstream client: %w", err)
	}

	poller := indexer.NewPoller(indexer.PollerConfig{
		Interval:  cfg.PollInterval,
		PageLimit: cfg.PageLimit,
		MaxPages:  cfg.MaxPages,
		Resume:    cfg.Resume,
	}, client, st.events, st.checkpoints, indexer.NewCursorStore(cfg.CursorFile, cfg.CursorFile != ""), logger)

	logger.Info("indexer start",
		zap.String("api_url", cfg.APIURL),
		zap.Strings("contracts", cfg.Contracts),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("page_limit", cfg.PageLimit),
		zap.Int("max_pages", cfg.MaxPages),
		zap.Bool("resume", cfg.Resume),
		zap.String("store", cfg.Store),
		zap.String("listen", cfg.Listen),
	)

	for _, contract := range contracts {
		if err := poller.Start(ctx, contract); err != nil {
			return fmt.Errorf("start polling %s: %w", contract.ID(), err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveAPI(gctx, cfg, query.NewService(st.events, st.checkpoints, logger), logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		for _, id := range poller.Active() {
			poller.Stop(id)
		}
		poller.Wait()
		logger.Info("pollers stopped")
		return nil
	})

	return g.Wait()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	return serveAPI(ctx, cfg, query.NewService(st.events, st.checkpoints, logger), logger)
}

func serveAPI(ctx context.Context, cfg config.Config, svc *query.Service, logger *zap.Logger) error {
	router := api.NewRouter(svc, api.RouterConfig{
		Prefix:  cfg.APIPrefix,
		Metrics: cfg.Metrics,
	}, logger)
	return api.ServeAndWait(ctx, logger, api.NewServer(cfg.Listen, router), cfg.ShutdownTimeout)
}
