package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"optionAMM/internal/config"
	"optionAMM/internal/engine"
	"optionAMM/internal/model"
	"optionAMM/internal/storage/postgres"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export pools and positions from the ledger to Postgres",
		RunE:  runSnapshot,
	}

	cmd.Flags().String("pg-dsn", "", "Postgres DSN")

	return cmd
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
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

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, closeLedger, err := openLedger(cfg.Config, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	eng, err := newEngine(cfg.Config, l, nil, nil, logger)
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

	logger.Info("snapshot start", zap.String("ledger", cfg.Ledger), zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	return exportSnapshot(ctx, eng, store, logger)
}

// ledgerStateName is the amm_state row holding the exported ledger cursor.
const ledgerStateName = "ledger"

func exportSnapshot(ctx context.Context, eng *engine.Engine, store *postgres.Store, logger *zap.Logger) error {
	pools, err := eng.Pools(ctx)
	if err != nil {
		return err
	}
	var positions []model.LPPosition
	for _, pool := range pools {
		ps, err := eng.Positions(ctx, pool.Market)
		if err != nil {
			return err
		}
		positions = append(positions, ps...)
	}

	if err := store.UpsertPools(ctx, pools); err != nil {
		return fmt.Errorf("upsert pools: %w", err)
	}
	if err := store.UpsertPositions(ctx, positions); err != nil {
		return fmt.Errorf("upsert positions: %w", err)
	}
	cursor, err := eng.Cursor(ctx)
	if err != nil {
		return err
	}
	if err := store.SaveState(ctx, ledgerStateName, cursor); err != nil {
		return fmt.Errorf("save ledger cursor: %w", err)
	}
	logger.Info("snapshot exported", zap.Int("pools", len(pools)), zap.Int("positions", len(positions)), zap.Uint64("cursor", cursor))
	return nil
}
