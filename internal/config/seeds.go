package config

import "github.com/spf13/pflag"

// SeedsConfig holds configuration for the seeds commands.
type SeedsConfig struct {
	File     string
	PGDSN    string
	LogLevel string
}

// LoadSeeds merges config file, environment variables, and flags into SeedsConfig.
func LoadSeeds(cfgFile string, flags *pflag.FlagSet) (SeedsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"seeds":     "./data/proposals.json",
		"log-level": "info",
	})
	if err != nil {
		return SeedsConfig{}, err
	}

	return SeedsConfig{
		File:     v.GetString("seeds"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
