package engine

import (
	"context"
	"fmt"

	"cosmossdk.io/math"

	"optionAMM/internal/model"
	"optionAMM/internal/pricing"
)

// PoolView is a pool with its implied option probabilities.
type PoolView struct {
	Pool          model.LiquidityPool `json:"pool"`
	Probabilities []math.LegacyDec    `json:"probabilities"`
	Positions     []model.LPPosition  `json:"positions,omitempty"`
}

// Pool returns the pool for market or ErrPoolNotFound.
func (e *Engine) Pool(ctx context.Context, market model.MarketID) (model.LiquidityPool, error) {
	return e.loadPool(ctx, market)
}

// Pools lists every registered pool.
func (e *Engine) Pools(ctx context.Context) ([]model.LiquidityPool, error) {
	pools, err := e.ledger.Pools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return pools, nil
}

// Position returns the caller's position in market, if any.
func (e *Engine) Position(ctx context.Context, market model.MarketID, provider model.Owner) (model.LPPosition, bool, error) {
	pos, ok, err := e.ledger.Position(ctx, market, provider)
	if err != nil {
		return model.LPPosition{}, false, fmt.Errorf("load position: %w", err)
	}
	return pos, ok, nil
}

// Positions lists the LP positions of market.
func (e *Engine) Positions(ctx context.Context, market model.MarketID) ([]model.LPPosition, error) {
	positions, err := e.ledger.Positions(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// Stats returns the cross-pool counters.
func (e *Engine) Stats(ctx context.Context) (model.Stats, error) {
	stats, err := e.ledger.Stats(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

// Inspect returns the pool, its probabilities and its positions.
func (e *Engine) Inspect(ctx context.Context, market model.MarketID) (PoolView, error) {
	pool, err := e.loadPool(ctx, market)
	if err != nil {
		return PoolView{}, err
	}
	positions, err := e.Positions(ctx, market)
	if err != nil {
		return PoolView{}, err
	}
	return PoolView{
		Pool:          pool,
		Probabilities: pricing.Probabilities(pool.OptionReserves),
		Positions:     positions,
	}, nil
}
