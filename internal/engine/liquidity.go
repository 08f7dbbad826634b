package engine

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"optionAMM/internal/amount"
	"optionAMM/internal/ledger"
	"optionAMM/internal/model"
	"optionAMM/internal/pricing"
)

const (
	opAddLiquidity    = "add_liquidity"
	opRemoveLiquidity = "remove_liquidity"
)

// AddLiquidity deposits value into market's pool and credits the caller with
// shares minted pro rata to the pool's reserve value. It returns the minted shares.
func (e *Engine) AddLiquidity(ctx context.Context, caller model.Owner, market model.MarketID, value amount.Amount) (amount.Amount, error) {
	return e.addLiquidity(ctx, 0, caller, market, value)
}

func (e *Engine) addLiquidity(ctx context.Context, cursor uint64, caller model.Owner, market model.MarketID, value amount.Amount) (amount.Amount, error) {
	if value.IsZero() {
		return amount.Zero(), e.reject(opAddLiquidity, market, model.ErrInsufficientLiquidity.Wrap("deposit must be positive"))
	}
	pool, err := e.loadPool(ctx, market)
	if err != nil {
		return amount.Zero(), e.reject(opAddLiquidity, market, err)
	}
	pos, _, err := e.ledger.Position(ctx, market, caller)
	if err != nil {
		return amount.Zero(), e.reject(opAddLiquidity, market, fmt.Errorf("load position: %w", err))
	}

	minted, reserves, err := mintShares(pool, value)
	if err != nil {
		return amount.Zero(), e.reject(opAddLiquidity, market, err)
	}
	total, ok := pool.TotalLiquidity.CheckedAdd(minted)
	if !ok {
		return amount.Zero(), e.reject(opAddLiquidity, market, model.ErrInvalidOperation.Wrap("deposit overflows pool liquidity"))
	}

	now := e.now()
	pool.OptionReserves = reserves
	pool.KConstant = pricing.Invariant(reserves)
	pool.TotalLiquidity = total
	pool.UpdatedAt = now

	pos.Market = market
	pos.Provider = caller
	pos.Shares = pos.Shares.SaturatingAdd(minted)
	pos.DepositedAt = now
	pos.InitialK = copyInt(pool.KConstant)

	if err := e.commit(ctx, cursor, ledger.Changeset{Pool: &pool, Position: &pos}); err != nil {
		return amount.Zero(), e.reject(opAddLiquidity, market, err)
	}

	e.metrics.ObserveDeposit(market, value)
	e.done(opAddLiquidity, market, zap.Stringer("provider", caller), zap.Stringer("amount", value), zap.Stringer("shares", minted))
	e.emit(model.KindLiquidityAdded, market, model.LiquidityAdded{
		Market:   market,
		Provider: caller,
		Amount:   value,
		Shares:   minted,
	})
	return minted, nil
}

// RemoveLiquidity burns shares from the caller's position and returns the
// amount withdrawn from each option reserve.
func (e *Engine) RemoveLiquidity(ctx context.Context, caller model.Owner, market model.MarketID, shares amount.Amount) ([]amount.Amount, error) {
	return e.removeLiquidity(ctx, 0, caller, market, shares)
}

func (e *Engine) removeLiquidity(ctx context.Context, cursor uint64, caller model.Owner, market model.MarketID, shares amount.Amount) ([]amount.Amount, error) {
	if shares.IsZero() {
		return nil, e.reject(opRemoveLiquidity, market, model.ErrInsufficientLiquidity.Wrap("shares must be positive"))
	}
	pool, err := e.loadPool(ctx, market)
	if err != nil {
		return nil, e.reject(opRemoveLiquidity, market, err)
	}
	pos, ok, err := e.ledger.Position(ctx, market, caller)
	if err != nil {
		return nil, e.reject(opRemoveLiquidity, market, fmt.Errorf("load position: %w", err))
	}
	if !ok {
		return nil, e.reject(opRemoveLiquidity, market, model.ErrInsufficientLiquidity.Wrapf("%s holds no position", caller))
	}
	if pos.Shares.LT(shares) {
		return nil, e.reject(opRemoveLiquidity, market, model.ErrInsufficientLiquidity.Wrapf("requested %s shares, holding %s", shares, pos.Shares))
	}
	if pool.TotalLiquidity.LT(shares) {
		return nil, e.reject(opRemoveLiquidity, market, model.ErrInsufficientLiquidity.Wrapf("requested %s shares, pool has %s", shares, pool.TotalLiquidity))
	}

	reserves, withdrawn := burnShares(pool, shares)
	pool.OptionReserves = reserves
	pool.KConstant = pricing.Invariant(reserves)
	pool.TotalLiquidity = pool.TotalLiquidity.SaturatingSub(shares)
	pool.UpdatedAt = e.now()
	pos.Shares = pos.Shares.SaturatingSub(shares)

	if err := e.commit(ctx, cursor, ledger.Changeset{Pool: &pool, Position: &pos}); err != nil {
		return nil, e.reject(opRemoveLiquidity, market, err)
	}

	e.metrics.ObserveWithdrawal(market, shares)
	e.done(opRemoveLiquidity, market, zap.Stringer("provider", caller), zap.Stringer("shares", shares))
	e.emit(model.KindLiquidityRemoved, market, model.LiquidityRemoved{
		Market:   market,
		Provider: caller,
		Shares:   shares,
		Amounts:  withdrawn,
	})
	return withdrawn, nil
}

// mintShares prices a deposit against the pool's reserve value and returns the
// minted shares and the grown reserves. Each reserve grows by its own share of
// the deposit, so implied probabilities are unchanged up to truncation.
func mintShares(pool model.LiquidityPool, deposit amount.Amount) (amount.Amount, []amount.Amount, error) {
	value := pool.ReserveValue()
	if value.Sign() == 0 {
		if !pool.TotalLiquidity.IsZero() {
			return amount.Zero(), nil, model.ErrInsufficientLiquidity.Wrap("pool has outstanding shares but no reserves")
		}
		reserves := seedReserves(deposit, pool.NumOptions())
		if reserves[len(reserves)-1].IsZero() {
			return amount.Zero(), nil, model.ErrInsufficientLiquidity.Wrapf("%s cannot seed %d options", deposit, pool.NumOptions())
		}
		return deposit, reserves, nil
	}

	minted := deposit
	if !pool.TotalLiquidity.IsZero() {
		minted = mulDiv(pool.TotalLiquidity, deposit, value)
	}
	if minted.IsZero() {
		return amount.Zero(), nil, model.ErrInsufficientLiquidity.Wrapf("deposit %s too small to mint shares", deposit)
	}

	reserves := make([]amount.Amount, len(pool.OptionReserves))
	for i, r := range pool.OptionReserves {
		next, ok := r.CheckedAdd(mulDiv(r, deposit, value))
		if !ok {
			return amount.Zero(), nil, model.ErrInvalidOperation.Wrapf("reserve %d would overflow", i)
		}
		reserves[i] = next
	}
	return minted, reserves, nil
}

// burnShares removes shares/total of every reserve, truncating in favour of
// the pool.
func burnShares(pool model.LiquidityPool, shares amount.Amount) ([]amount.Amount, []amount.Amount) {
	total := pool.TotalLiquidity.BigInt()
	reserves := make([]amount.Amount, len(pool.OptionReserves))
	withdrawn := make([]amount.Amount, len(pool.OptionReserves))
	for i, r := range pool.OptionReserves {
		out := mulDiv(r, shares, total)
		withdrawn[i] = out
		reserves[i] = r.SaturatingSub(out)
	}
	return reserves, withdrawn
}

// mulDiv returns trunc(a*b/den); den must be positive.
func mulDiv(a, b amount.Amount, den *big.Int) amount.Amount {
	v := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return amount.FromBig(v.Quo(v, den))
}
