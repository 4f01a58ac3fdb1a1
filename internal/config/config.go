package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PROPOSALS"

// Config holds settings for the run command.
type Config struct {
	RPCURL            string
	Chain             string
	Governors         []string
	Start             string
	End               string
	Window            time.Duration
	MaxBlockSpan      uint64
	BlockFloor        uint64
	Concurrency       int
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Burst             int
	Out               string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	MetricsAddr       string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"chain":               "arb1",
		"window":              24 * time.Hour,
		"max-block-span":      uint64(50_000),
		"concurrency":         5,
		"max-retries":         3,
		"retry-backoff":       100 * time.Millisecond,
		"requests-per-second": 10.0,
		"burst":               10,
		"out":                 "./data/proposals.jsonl",
		"errors":              "./data/decode_errors.jsonl",
		"checkpoint":          "./data/checkpoint.json",
		"checkpoint-enabled":  true,
		"log-level":           "info",
	})
	if err != nil {
		return Config{}, err
	}

	return Config{
		RPCURL:            v.GetString("rpc"),
		Chain:             v.GetString("chain"),
		Governors:         getStringSlice(v, "governor"),
		Start:             v.GetString("start"),
		End:               v.GetString("end"),
		Window:            v.GetDuration("window"),
		MaxBlockSpan:      v.GetUint64("max-block-span"),
		BlockFloor:        v.GetUint64("block-floor"),
		Concurrency:       v.GetInt("concurrency"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		RequestsPerSecond: v.GetFloat64("requests-per-second"),
		Burst:             v.GetInt("burst"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

// newViper builds a viper instance layered as flags > env > config file > defaults.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// getStringSlice accepts a YAML list or a comma-separated string, the form
// environment variables and --flag=a,b produce.
func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	raw := v.GetStringSlice(key)
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	}

	var out []string
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
