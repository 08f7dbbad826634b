package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"optionAMM/internal/amount"
	"optionAMM/internal/engine"
	"optionAMM/internal/fees"
)

const envPrefix = "AMM"

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerPebble = "pebble"
)

// Config holds the engine and ledger settings shared by every command.
type Config struct {
	FeeRate      string
	MinLiquidity string
	Ledger       string
	DataDir      string
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

// EngineParams validates the fee rate and minimum liquidity.
func (c Config) EngineParams() (engine.Params, error) {
	schedule, err := fees.ParseSchedule(c.FeeRate)
	if err != nil {
		return engine.Params{}, err
	}
	minLiquidity, err := amount.Parse(c.MinLiquidity)
	if err != nil {
		return engine.Params{}, fmt.Errorf("invalid min liquidity: %w", err)
	}
	return engine.Params{Fees: schedule, MinLiquidity: minLiquidity}, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		FeeRate:      v.GetString("fee-rate"),
		MinLiquidity: v.GetString("min-liquidity"),
		Ledger:       strings.ToLower(v.GetString("ledger")),
		DataDir:      v.GetString("data-dir"),
		LogLevel:     v.GetString("log-level"),
	}
	switch cfg.Ledger {
	case LedgerMemory, LedgerPebble:
	default:
		return Config{}, fmt.Errorf("unknown ledger %q (want %s or %s)", cfg.Ledger, LedgerMemory, LedgerPebble)
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee-rate", "0.003")
	v.SetDefault("min-liquidity", "1")
	v.SetDefault("ledger", LedgerPebble)
	v.SetDefault("data-dir", "./data/ledger")
	v.SetDefault("log-level", "info")

	v.SetDefault("out", "./data/results.jsonl")
	v.SetDefault("batch-size", 1000)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", "500ms")

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
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
