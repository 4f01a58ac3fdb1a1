package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "proposals",
		Short:        "Arbitrum governance proposal indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index ProposalCreated events over a time range",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().String("chain", "arb1", "chain name (arb1, eth-mainnet)")
	runCmd.Flags().StringSlice("governor", nil, "governor addresses (comma-separated), defaults to the chain's known governors")
	runCmd.Flags().String("start", "", "range start (RFC3339 or YYYY-MM-DD)")
	runCmd.Flags().String("end", "", "range end (RFC3339 or YYYY-MM-DD), empty means now")
	runCmd.Flags().Duration("window", 24*time.Hour, "time window per task")
	runCmd.Flags().Uint64("max-block-span", 50_000, "maximum blocks per eth_getLogs call")
	runCmd.Flags().Uint64("block-floor", 0, "lowest block considered when resolving timestamps")
	runCmd.Flags().Int("concurrency", 5, "concurrent window tasks")
	runCmd.Flags().Int("max-retries", 3, "attempts per task including the first")
	runCmd.Flags().Duration("retry-backoff", 100*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Float64("requests-per-second", 10, "RPC request rate limit")
	runCmd.Flags().Int("burst", 10, "RPC request burst")
	runCmd.Flags().String("out", "./data/proposals.jsonl", "output proposals JSONL")
	runCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN, stores the checkpoint in the database when set")
	runCmd.Flags().String("metrics-addr", "", "serve /metrics and /healthz on this address")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw log JSONL into proposal records",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/proposals.jsonl", "output proposals JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)
	root.AddCommand(newSeedsCmd())
	root.AddCommand(newQueryCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
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
