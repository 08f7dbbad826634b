package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"optionAMM/internal/amount"
	"optionAMM/internal/ledger"
	"optionAMM/internal/model"
	"optionAMM/internal/pricing"
)

const opCreatePool = "create_pool"

// CreatePool registers a pool for market with numOptions reserves seeded from
// initial. The caller receives every share of the new pool.
func (e *Engine) CreatePool(ctx context.Context, caller model.Owner, market model.MarketID, numOptions uint8, initial amount.Amount) error {
	return e.createPool(ctx, 0, caller, market, numOptions, initial)
}

func (e *Engine) createPool(ctx context.Context, cursor uint64, caller model.Owner, market model.MarketID, numOptions uint8, initial amount.Amount) error {
	if numOptions < 2 {
		return e.reject(opCreatePool, market, model.ErrInvalidOptionCount.Wrapf("need at least 2 options, got %d", numOptions))
	}
	if initial.IsZero() {
		return e.reject(opCreatePool, market, model.ErrInsufficientLiquidity.Wrap("initial liquidity must be positive"))
	}
	if initial.LT(e.params.MinLiquidity) {
		return e.reject(opCreatePool, market, model.ErrMinLiquidityNotMet.Wrapf("%s below minimum %s", initial, e.params.MinLiquidity))
	}

	_, exists, err := e.ledger.Pool(ctx, market)
	if err != nil {
		return e.reject(opCreatePool, market, fmt.Errorf("load pool %s: %w", market, err))
	}
	if exists {
		return e.reject(opCreatePool, market, model.ErrPoolAlreadyExists.Wrapf("market %s", market))
	}

	reserves := seedReserves(initial, int(numOptions))
	if reserves[len(reserves)-1].IsZero() {
		return e.reject(opCreatePool, market, model.ErrInsufficientLiquidity.Wrapf("%s cannot seed %d options", initial, numOptions))
	}
	k := pricing.Invariant(reserves)
	now := e.now()

	pool := model.LiquidityPool{
		Market:         market,
		OptionReserves: reserves,
		TotalLiquidity: initial,
		KConstant:      k,
		FeeRate:        e.params.Fees.Rate,
		FeeCollected:   amount.Zero(),
		TotalVolume:    amount.Zero(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	pos := model.LPPosition{
		Market:      market,
		Provider:    caller,
		Shares:      initial,
		DepositedAt: now,
		InitialK:    copyInt(k),
	}
	err = e.commit(ctx, cursor, ledger.Changeset{
		Pool:       &pool,
		Position:   &pos,
		NewPool:    true,
		StatsDelta: model.Stats{TotalPools: 1},
	})
	if err != nil {
		return e.reject(opCreatePool, market, err)
	}

	e.metrics.ObservePoolCreated(market, initial)
	e.done(opCreatePool, market, zap.Uint8("options", numOptions), zap.Stringer("liquidity", initial))
	e.emit(model.KindPoolCreated, market, model.PoolCreated{Market: market, Liquidity: initial})
	return nil
}

// seedReserves splits total evenly over n options. The remainder goes to
// option 0 so the reserves sum to total exactly.
func seedReserves(total amount.Amount, n int) []amount.Amount {
	part, rem := total.Split(n)
	reserves := make([]amount.Amount, n)
	for i := range reserves {
		reserves[i] = part
	}
	reserves[0] = part.SaturatingAdd(rem)
	return reserves
}
