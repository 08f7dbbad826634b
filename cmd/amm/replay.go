package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"optionAMM/internal/config"
	"optionAMM/internal/engine"
	"optionAMM/internal/metrics"
	"optionAMM/internal/notify"
	"optionAMM/internal/replay"
	"optionAMM/internal/storage"
	"optionAMM/internal/storage/postgres"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Execute signed operations from a JSONL file",
		RunE:  runReplay,
	}

	cmd.Flags().String("in", "", "input operations JSONL")
	cmd.Flags().String("out", "./data/results.jsonl", "per-operation results JSONL")
	cmd.Flags().String("events-out", "", "notifications JSONL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for notifications and snapshots")
	cmd.Flags().Int("batch-size", 1000, "operations between result writes and notification flushes")
	cmd.Flags().Int("max-retries", 5, "maximum notification delivery retries")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	l, closeLedger, err := openLedger(cfg.Config, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	var sinks storage.Multi
	if cfg.EventsOut != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.EventsOut))
	}
	if store != nil {
		sinks = append(sinks, store)
	}

	var (
		emitter    engine.Emitter
		dispatcher *notify.Dispatcher
	)
	if len(sinks) > 0 {
		outbox := notify.NewOutbox()
		emitter = outbox
		dispatcher = notify.NewDispatcher(notify.DispatchConfig{
			BatchSize:    cfg.BatchSize,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			SinkName:     sinkName(cfg),
		}, outbox, sinks, m, logger.Named("notify"))
	}

	eng, err := newEngine(cfg.Config, l, emitter, m, logger)
	if err != nil {
		return err
	}

	var results replay.ResultSink
	if cfg.Out != "" {
		results = storage.NewJsonlStorage(cfg.Out)
	}

	logger.Info("replay start",
		zap.String("input", cfg.In),
		zap.String("ledger", cfg.Ledger),
		zap.String("out", cfg.Out),
		zap.String("events_out", cfg.EventsOut),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.String("fee_rate", cfg.FeeRate),
	)

	runner := replay.NewRunner(replay.RunConfig{
		InputPath: cfg.In,
		BatchSize: cfg.BatchSize,
	}, eng, results, dispatcher, logger.Named("replay"))

	summary, runErr := runner.Run(ctx)
	if runErr != nil && summary.Undelivered == 0 {
		return runErr
	}

	if store != nil {
		if err := exportSnapshot(ctx, eng, store, logger); err != nil {
			return err
		}
	}
	if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	return runErr
}

func sinkName(cfg config.ReplayConfig) string {
	switch {
	case cfg.EventsOut != "" && cfg.PGDSN != "":
		return "jsonl+postgres"
	case cfg.PGDSN != "":
		return "postgres"
	default:
		return "jsonl"
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
