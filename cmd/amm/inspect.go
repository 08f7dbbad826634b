package main

import (
	"context"

	"github.com/spf13/cobra"

	"optionAMM/internal/config"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a pool, its positions and implied probabilities",
		RunE:  runInspect,
	}

	cmd.Flags().String("market", "", "market id (0x-prefixed) or name")

	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	market, err := config.ResolveMarket(cfg.Market)
	if err != nil {
		return err
	}

	l, closeLedger, err := openLedger(cfg.Config, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	eng, err := newEngine(cfg.Config, l, nil, nil, logger)
	if err != nil {
		return err
	}

	view, err := eng.Inspect(context.Background(), market)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), view)
}
