package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.StringSlice("governor", nil, "")
	flags.Int("concurrency", 5, "")
	flags.Duration("window", 24*time.Hour, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "arb1", cfg.Chain)
	assert.Equal(t, 24*time.Hour, cfg.Window)
	assert.Equal(t, uint64(50_000), cfg.MaxBlockSpan)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 10.0, cfg.RequestsPerSecond)
	assert.True(t, cfg.CheckpointEnabled)
	assert.Empty(t, cfg.Governors)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("PROPOSALS_RPC", "https://arb1.example")
	t.Setenv("PROPOSALS_MAX_RETRIES", "7")
	t.Setenv("PROPOSALS_GOVERNOR", "0x1111111111111111111111111111111111111111, 0x2222222222222222222222222222222222222222")

	flags := runFlags()
	require.NoError(t, flags.Parse([]string{"--concurrency", "2"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "https://arb1.example", cfg.RPCURL)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, []string{
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	}, cfg.Governors)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc: https://node.example
start: "2024-03-01"
window: 12h
governor:
  - "0x789fC99093B09aD01C34DC7251D0C89ce743e5a4"
`), 0o644))

	cfg, err := Load(path, runFlags())
	require.NoError(t, err)
	assert.Equal(t, "https://node.example", cfg.RPCURL)
	assert.Equal(t, "2024-03-01", cfg.Start)
	assert.Equal(t, 12*time.Hour, cfg.Window)
	assert.Equal(t, []string{"0x789fC99093B09aD01C34DC7251D0C89ce743e5a4"}, cfg.Governors)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadCommandConfigs(t *testing.T) {
	t.Setenv("PROPOSALS_PG_DSN", "postgres://localhost/proposals")

	decodeCfg, err := LoadDecode("", nil)
	require.NoError(t, err)
	assert.Equal(t, "./data/proposals.jsonl", decodeCfg.Out)
	assert.Equal(t, "./data/decode_errors.jsonl", decodeCfg.Errors)

	seedsCfg, err := LoadSeeds("", nil)
	require.NoError(t, err)
	assert.Equal(t, "./data/proposals.json", seedsCfg.File)
	assert.Equal(t, "postgres://localhost/proposals", seedsCfg.PGDSN)

	queryCfg, err := LoadQuery("", nil)
	require.NoError(t, err)
	assert.Equal(t, "arb1", queryCfg.Chain)
	assert.Equal(t, "postgres://localhost/proposals", queryCfg.PGDSN)
}
