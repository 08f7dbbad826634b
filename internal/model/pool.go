package model

import (
	"math/big"

	"cosmossdk.io/math"

	"optionAMM/internal/amount"
)

// LiquidityPool is the reserve set and accounting state of one market.
type LiquidityPool struct {
	Market         MarketID        `json:"market"`
	OptionReserves []amount.Amount `json:"option_reserves"`
	TotalLiquidity amount.Amount   `json:"total_liquidity"`
	// KConstant is the exact product of OptionReserves in attos.
	KConstant    *big.Int       `json:"k_constant"`
	FeeRate      math.LegacyDec `json:"fee_rate"`
	FeeCollected amount.Amount  `json:"fee_collected"`
	TotalVolume  amount.Amount  `json:"total_volume"`
	CreatedAt    uint64         `json:"created_at"`
	UpdatedAt    uint64         `json:"updated_at"`
}

// NumOptions returns the number of option reserves.
func (p LiquidityPool) NumOptions() int {
	return len(p.OptionReserves)
}

// Clone returns a deep copy so callers can mutate it without touching ledger state.
func (p LiquidityPool) Clone() LiquidityPool {
	out := p
	out.OptionReserves = append([]amount.Amount(nil), p.OptionReserves...)
	if p.KConstant != nil {
		out.KConstant = new(big.Int).Set(p.KConstant)
	}
	return out
}

// ReserveValue is the total reserve mass of the pool.
func (p LiquidityPool) ReserveValue() *big.Int {
	return amount.Sum(p.OptionReserves)
}
