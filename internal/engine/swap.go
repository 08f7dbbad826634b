package engine

import (
	"context"

	"go.uber.org/zap"

	"optionAMM/internal/amount"
	"optionAMM/internal/fees"
	"optionAMM/internal/ledger"
	"optionAMM/internal/model"
	"optionAMM/internal/pricing"
)

const (
	opSwap     = "swap"
	opGetQuote = "get_quote"
)

// Quote is the priced outcome of a swap that has not been committed.
type Quote struct {
	From      uint8         `json:"from"`
	To        uint8         `json:"to"`
	AmountIn  amount.Amount `json:"amount_in"`
	Fee       amount.Amount `json:"fee"`
	AmountOut amount.Amount `json:"amount_out"`
}

// Swap pays amountIn of option from into the pool and receives option to.
// The swap is rejected without effect when the output is below minOut.
func (e *Engine) Swap(ctx context.Context, caller model.Owner, market model.MarketID, from, to uint8, amountIn, minOut amount.Amount) (amount.Amount, error) {
	return e.swap(ctx, 0, caller, market, from, to, amountIn, minOut)
}

func (e *Engine) swap(ctx context.Context, cursor uint64, caller model.Owner, market model.MarketID, from, to uint8, amountIn, minOut amount.Amount) (amount.Amount, error) {
	pool, err := e.loadPool(ctx, market)
	if err != nil {
		return amount.Zero(), e.reject(opSwap, market, err)
	}
	quote, result, err := price(pool, from, to, amountIn)
	if err != nil {
		return amount.Zero(), e.reject(opSwap, market, err)
	}
	if quote.AmountOut.LT(minOut) {
		return amount.Zero(), e.reject(opSwap, market, model.ErrSlippageTooHigh.Wrapf("output %s below minimum %s", quote.AmountOut, minOut))
	}

	pool.OptionReserves = result.Apply(pool.OptionReserves)
	fees.Accrue(&pool, amountIn, quote.Fee)
	pool.UpdatedAt = e.now()

	err = e.commit(ctx, cursor, ledger.Changeset{
		Pool:       &pool,
		StatsDelta: model.Stats{TotalVolume: amountIn},
	})
	if err != nil {
		return amount.Zero(), e.reject(opSwap, market, err)
	}

	e.metrics.ObserveSwap(market, amountIn, quote.Fee)
	e.done(opSwap, market,
		zap.Stringer("trader", caller),
		zap.Uint8("from", from),
		zap.Uint8("to", to),
		zap.Stringer("amount_in", amountIn),
		zap.Stringer("amount_out", quote.AmountOut),
		zap.Stringer("fee", quote.Fee),
	)
	e.emit(model.KindSwapExecuted, market, model.SwapExecuted{
		Market:    market,
		From:      from,
		To:        to,
		AmountIn:  amountIn,
		AmountOut: quote.AmountOut,
	})
	return quote.AmountOut, nil
}

// GetQuote prices a swap between option and its counter-option, the lowest
// other index. Buying pays option and receives the counter-option; selling
// pays the counter-option and receives option. Nothing is persisted.
func (e *Engine) GetQuote(ctx context.Context, market model.MarketID, option uint8, value amount.Amount, isBuy bool) (amount.Amount, error) {
	pool, err := e.loadPool(ctx, market)
	if err != nil {
		return amount.Zero(), err
	}
	if int(option) >= pool.NumOptions() {
		return amount.Zero(), model.ErrInvalidSwap.Wrapf("option %d out of range, pool has %d", option, pool.NumOptions())
	}
	from, to := option, counterOption(option)
	if !isBuy {
		from, to = to, from
	}
	quote, _, err := price(pool, from, to, value)
	if err != nil {
		return amount.Zero(), err
	}
	return quote.AmountOut, nil
}

// QuoteSwap prices the swap Swap would execute for the same arguments.
func (e *Engine) QuoteSwap(ctx context.Context, market model.MarketID, from, to uint8, amountIn amount.Amount) (Quote, error) {
	pool, err := e.loadPool(ctx, market)
	if err != nil {
		return Quote{}, err
	}
	quote, _, err := price(pool, from, to, amountIn)
	return quote, err
}

// price withholds the pool's fee and runs the pricing math. Swap and the
// quote paths share it so their results agree exactly.
func price(pool model.LiquidityPool, from, to uint8, amountIn amount.Amount) (Quote, pricing.SwapResult, error) {
	if amountIn.IsZero() {
		return Quote{}, pricing.SwapResult{}, model.ErrInvalidSwap.Wrap("swap amount must be positive")
	}
	fee, net := fees.Schedule{Rate: pool.FeeRate}.Withhold(amountIn)
	result, err := pricing.Swap(pool.OptionReserves, pool.KConstant, int(from), int(to), net)
	if err != nil {
		return Quote{}, pricing.SwapResult{}, err
	}
	return Quote{
		From:      from,
		To:        to,
		AmountIn:  amountIn,
		Fee:       fee,
		AmountOut: result.AmountOut,
	}, result, nil
}

func counterOption(option uint8) uint8 {
	if option == 0 {
		return 1
	}
	return 0
}
