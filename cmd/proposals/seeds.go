package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proposalScope/internal/config"
	"proposalScope/internal/model"
	"proposalScope/internal/storage"
	"proposalScope/internal/storage/postgres"
)

func newSeedsCmd() *cobra.Command {
	seedsCmd := &cobra.Command{
		Use:   "seeds",
		Short: "Manage proposal seeds",
	}
	seedsCmd.PersistentFlags().String("seeds", "./data/proposals.json", "seed file (YAML or JSON)")
	seedsCmd.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	seedsCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	seedsCmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Validate the seed file and upsert it into Postgres",
		RunE:  runSeedsImport,
	})
	seedsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print seeds as JSON, from Postgres when a DSN is set",
		RunE:  runSeedsList,
	})
	return seedsCmd
}

func runSeedsImport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSeeds(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seeds, err := storage.NewFileSeedSource(cfg.File).LoadSeeds(ctx)
	if err != nil {
		return err
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.UpsertSeeds(ctx, seeds); err != nil {
		return err
	}

	logger.Info("seeds imported", zap.String("file", cfg.File), zap.Int("count", len(seeds)))
	return nil
}

func runSeedsList(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSeeds(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeFn, err := openSeedSource(ctx, cfg.File, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer closeFn()

	seeds, err := source.LoadSeeds(ctx)
	if err != nil {
		return err
	}
	if seeds == nil {
		seeds = []model.ProposalSeed{}
	}
	return printJSON(cmd.OutOrStdout(), seeds)
}

// openSeedSource prefers Postgres when dsn is set.
func openSeedSource(ctx context.Context, file, dsn string) (storage.SeedSource, func(), error) {
	if dsn == "" {
		return storage.NewFileSeedSource(file), func() {}, nil
	}
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, store.Close, nil
}

func printJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
