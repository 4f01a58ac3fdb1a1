package config

import "github.com/spf13/pflag"

// QueryConfig holds configuration for the query commands.
type QueryConfig struct {
	RPCURL            string
	Chain             string
	Governor          string
	Token             string
	RequestsPerSecond float64
	Burst             int
	Seeds             string
	PGDSN             string
	LogLevel          string
}

// LoadQuery merges config file, environment variables, and flags into QueryConfig.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (QueryConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"chain":               "arb1",
		"requests-per-second": 10.0,
		"burst":               10,
		"seeds":               "./data/proposals.json",
		"log-level":           "info",
	})
	if err != nil {
		return QueryConfig{}, err
	}

	return QueryConfig{
		RPCURL:            v.GetString("rpc"),
		Chain:             v.GetString("chain"),
		Governor:          v.GetString("governor"),
		Token:             v.GetString("token"),
		RequestsPerSecond: v.GetFloat64("requests-per-second"),
		Burst:             v.GetInt("burst"),
		Seeds:             v.GetString("seeds"),
		PGDSN:             v.GetString("pg-dsn"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}
