// Package engine implements the pool operations of the option AMM: pool
// creation, liquidity deposits and withdrawals, swaps and quotes.
//
// The engine holds no locks. The host serializes operations on a pool; the
// ledger guards its own state, and every mutating operation commits a single
// changeset before any notification is enqueued.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"optionAMM/internal/amount"
	"optionAMM/internal/fees"
	"optionAMM/internal/ledger"
	"optionAMM/internal/metrics"
	"optionAMM/internal/model"
)

// Params are the settings applied to new pools.
type Params struct {
	Fees         fees.Schedule
	MinLiquidity amount.Amount
}

// Config holds the engine's runtime settings.
type Config struct {
	Params  Params
	Metrics *metrics.Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Emitter receives notifications after their operation has been committed.
type Emitter interface {
	Emit(n model.Notification)
}

// Engine executes pool operations against a ledger.
type Engine struct {
	params  Params
	ledger  ledger.Ledger
	emitter Emitter
	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   func() time.Time
	seq     atomic.Uint64
}

// New builds an Engine. A nil emitter drops notifications.
func New(cfg Config, l ledger.Ledger, emitter Emitter, logger *zap.Logger) (*Engine, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	params := cfg.Params
	schedule, err := fees.NewSchedule(params.Fees.Rate)
	if err != nil {
		return nil, err
	}
	params.Fees = schedule
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		params:  params,
		ledger:  l,
		emitter: emitter,
		metrics: cfg.Metrics,
		logger:  logger,
		clock:   clock,
	}, nil
}

// Params returns the settings applied to new pools.
func (e *Engine) Params() Params {
	return e.params
}

func (e *Engine) now() uint64 {
	return uint64(e.clock().UnixMicro())
}

func (e *Engine) loadPool(ctx context.Context, market model.MarketID) (model.LiquidityPool, error) {
	pool, ok, err := e.ledger.Pool(ctx, market)
	if err != nil {
		return model.LiquidityPool{}, fmt.Errorf("load pool %s: %w", market, err)
	}
	if !ok {
		return model.LiquidityPool{}, model.ErrPoolNotFound.Wrapf("market %s", market)
	}
	return pool, nil
}

// Cursor returns the host position stored with the last committed changeset.
func (e *Engine) Cursor(ctx context.Context) (uint64, error) {
	cursor, err := e.ledger.Cursor(ctx)
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return cursor, nil
}

// Advance records cursor for a host input that changed no pool, such as a
// rejected operation or a quote.
func (e *Engine) Advance(ctx context.Context, cursor uint64) error {
	if cursor == 0 {
		return nil
	}
	if err := e.ledger.Apply(ctx, ledger.Changeset{Cursor: cursor}); err != nil {
		return fmt.Errorf("advance cursor to %d: %w", cursor, err)
	}
	return nil
}

// commit applies cs together with the host cursor, zero meaning none.
func (e *Engine) commit(ctx context.Context, cursor uint64, cs ledger.Changeset) error {
	cs.Cursor = cursor
	if err := e.ledger.Apply(ctx, cs); err != nil {
		if errors.Is(err, model.ErrPoolAlreadyExists) {
			return err
		}
		return fmt.Errorf("commit changeset: %w", err)
	}
	return nil
}

func (e *Engine) emit(kind string, market model.MarketID, payload interface{}) {
	if e.emitter == nil {
		return
	}
	seq := e.seq.Add(1)
	e.emitter.Emit(model.NewNotification(kind, market, seq, e.now(), payload))
}

func (e *Engine) done(op string, market model.MarketID, fields ...zap.Field) {
	e.metrics.ObserveOperation(op, "ok")
	e.logger.Debug(op, append([]zap.Field{zap.Stringer("market", market)}, fields...)...)
}

// reject records an operation that ended in err. Domain errors are
// rejections; anything else is a ledger failure.
func (e *Engine) reject(op string, market model.MarketID, err error) error {
	if model.ErrorCode(err) == 0 {
		e.metrics.ObserveOperation(op, "failed")
		e.logger.Warn("operation failed", zap.String("op", op), zap.Stringer("market", market), zap.Error(err))
		return err
	}
	e.metrics.ObserveOperation(op, "rejected")
	e.logger.Debug("operation rejected", zap.String("op", op), zap.Stringer("market", market), zap.Error(err))
	return err
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
