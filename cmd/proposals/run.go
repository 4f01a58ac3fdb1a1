package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proposalScope/internal/api"
	"proposalScope/internal/chain"
	"proposalScope/internal/config"
	"proposalScope/internal/dispatch"
	"proposalScope/internal/governance"
	"proposalScope/internal/indexer"
	"proposalScope/internal/metrics"
	"proposalScope/internal/storage"
	"proposalScope/internal/storage/postgres"
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Start == "" {
		return fmt.Errorf("start is required")
	}
	start, err := indexer.ParseTime(cfg.Start)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	end := time.Now().UTC()
	if cfg.End != "" {
		if end, err = indexer.ParseTime(cfg.End); err != nil {
			return fmt.Errorf("parse end: %w", err)
		}
	}

	governors, err := resolveGovernors(cfg.Chain, cfg.Governors)
	if err != nil {
		return err
	}
	supported, err := runChains(cfg.Chain, cfg.Governors)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		SupportedChains:   supported,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "proposals")

	if cfg.MetricsAddr != "" {
		srv := api.NewServer(cfg.MetricsAddr, reg, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := []indexer.Option{
		indexer.WithLogger(logger),
		indexer.WithMetrics(m),
		indexer.WithDecodeErrorSink(storage.NewJsonlErrorSink(cfg.Errors)),
	}

	if cfg.CheckpointEnabled {
		checkpoint, closeFn, err := openCheckpoint(ctx, cfg, checkpointName(chainClient.ChainID(), governors))
		if err != nil {
			return err
		}
		defer closeFn()
		opts = append(opts, indexer.WithCheckpoint(checkpoint))
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		Start:        start,
		End:          end,
		Window:       cfg.Window,
		MaxBlockSpan: cfg.MaxBlockSpan,
		Governors:    governors,
		Dispatch: dispatch.Config{
			Concurrency: cfg.Concurrency,
			MaxRetries:  cfg.MaxRetries,
			BaseDelay:   cfg.RetryBackoff,
		},
	}, chainClient, chain.NewBlockResolver(chainClient, cfg.BlockFloor), storage.NewJsonlStorage(cfg.Out), opts...)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain", cfg.Chain),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Duration("window", cfg.Window),
		zap.Int("governors", len(governors)),
		zap.Uint64("max_block_span", cfg.MaxBlockSpan),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	return runner.Run(ctx)
}

func resolveGovernors(chainName string, inputs []string) ([]common.Address, error) {
	if len(inputs) > 0 {
		return indexer.ParseAddresses(inputs)
	}
	governors := governance.Governors(chainName)
	if len(governors) == 0 {
		return nil, fmt.Errorf("no known governors for chain %q, pass --governor", chainName)
	}
	return governors, nil
}

// runChains pins the endpoint to the configured chain when its default
// governors are scanned. Explicit governors may live on any supported chain.
func runChains(chainName string, inputs []string) ([]uint64, error) {
	if len(inputs) > 0 {
		return governance.SupportedChainIDs(), nil
	}
	chainID, ok := governance.ChainID(chainName)
	if !ok {
		return nil, fmt.Errorf("unsupported chain %q", chainName)
	}
	return []uint64{chainID}, nil
}

func checkpointName(chainID uint64, governors []common.Address) string {
	names := make([]string, len(governors))
	for i, g := range governors {
		names[i] = strings.ToLower(g.Hex())
	}
	return fmt.Sprintf("proposals:%d:%s", chainID, strings.Join(names, ","))
}

// openCheckpoint prefers the database when a DSN is configured.
func openCheckpoint(ctx context.Context, cfg config.Config, name string) (indexer.Checkpoint, func(), error) {
	if cfg.PGDSN == "" {
		return indexer.NewFileCheckpoint(cfg.Checkpoint), func() {}, nil
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	return indexer.NewStateCheckpoint(store, name), store.Close, nil
}
