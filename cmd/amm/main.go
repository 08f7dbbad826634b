package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"optionAMM/internal/config"
	"optionAMM/internal/engine"
	"optionAMM/internal/ledger"
	"optionAMM/internal/metrics"
	pebbleledger "optionAMM/internal/storage/pebble"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Multi-outcome constant-product AMM",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("fee-rate", "0.003", "swap fee rate in [0, 1) applied to new pools")
	root.PersistentFlags().String("min-liquidity", "1", "minimum initial liquidity for new pools")
	root.PersistentFlags().String("ledger", config.LedgerPebble, "ledger backend (memory, pebble)")
	root.PersistentFlags().String("data-dir", "./data/ledger", "pebble ledger directory")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newReplayCmd(), newQuoteCmd(), newInspectCmd(), newSnapshotCmd())

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

func openLedger(cfg config.Config, logger *zap.Logger) (ledger.Ledger, func() error, error) {
	switch cfg.Ledger {
	case config.LedgerMemory:
		return ledger.NewMemory(), func() error { return nil }, nil
	case config.LedgerPebble:
		l, err := pebbleledger.Open(cfg.DataDir, logger.Named("pebble"))
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger %q", cfg.Ledger)
	}
}

func newEngine(cfg config.Config, l ledger.Ledger, emitter engine.Emitter, m *metrics.Metrics, logger *zap.Logger) (*engine.Engine, error) {
	params, err := cfg.EngineParams()
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{Params: params, Metrics: m}, l, emitter, logger.Named("engine"))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
