package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"optionAMM/internal/amount"
	"optionAMM/internal/config"
	"optionAMM/internal/model"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against the ledger without executing it",
		RunE:  runQuote,
	}

	cmd.Flags().String("market", "", "market id (0x-prefixed) or name")
	cmd.Flags().Uint("option", 0, "option index")
	cmd.Flags().String("amount", "", "input amount in tokens")
	cmd.Flags().Bool("sell", false, "pay the counter-option and receive --option")

	return cmd
}

type quoteOutput struct {
	Market    model.MarketID `json:"market"`
	Option    uint8          `json:"option"`
	IsBuy     bool           `json:"is_buy"`
	AmountIn  amount.Amount  `json:"amount_in"`
	AmountOut amount.Amount  `json:"amount_out"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
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
	value, err := amount.Parse(cfg.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
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

	out, err := eng.GetQuote(context.Background(), market, cfg.Option, value, !cfg.Sell)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), quoteOutput{
		Market:    market,
		Option:    cfg.Option,
		IsBuy:     !cfg.Sell,
		AmountIn:  value,
		AmountOut: out,
	})
}
