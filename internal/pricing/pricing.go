// Package pricing holds the constant-product math shared by committed swaps
// and quotes. Nothing here mutates its inputs.
package pricing

import (
	"math/big"

	"cosmossdk.io/math"

	"optionAMM/internal/amount"
	"optionAMM/internal/model"
)

// SwapResult is the outcome of pricing a swap against a reserve vector.
type SwapResult struct {
	AmountOut   amount.Amount
	NewFrom     amount.Amount
	NewTo       amount.Amount
	FromReserve int
	ToReserve   int
}

// Invariant returns the exact product of all reserves in attos.
func Invariant(reserves []amount.Amount) *big.Int {
	if len(reserves) == 0 {
		return new(big.Int)
	}
	k := big.NewInt(1)
	for _, r := range reserves {
		k.Mul(k, r.BigInt())
	}
	return k
}

// Swap prices amountIn (already net of fees) of option from into option to.
//
// new[from] = reserve[from] + amountIn
// new[to]   = ceil(k / (new[from] * prod(reserve[m], m not in {from, to})))
//
// Rounding new[to] up keeps the product of the new reserves at or above k.
func Swap(reserves []amount.Amount, k *big.Int, from, to int, amountIn amount.Amount) (SwapResult, error) {
	n := len(reserves)
	if from == to {
		return SwapResult{}, model.ErrInvalidSwap.Wrap("cannot swap an option into itself")
	}
	if from < 0 || to < 0 || from >= n || to >= n {
		return SwapResult{}, model.ErrInvalidSwap.Wrapf("option index out of range: from %d, to %d, options %d", from, to, n)
	}
	if amountIn.IsZero() {
		return SwapResult{}, model.ErrInvalidSwap.Wrap("swap amount too small after fees")
	}
	if k == nil || k.Sign() <= 0 {
		return SwapResult{}, model.ErrInvalidSwap.Wrap("pool invariant is zero")
	}
	if reserves[to].IsZero() {
		return SwapResult{}, model.ErrInvalidSwap.Wrapf("reserve %d is empty", to)
	}

	others := big.NewInt(1)
	for m, r := range reserves {
		if m == from || m == to {
			continue
		}
		others.Mul(others, r.BigInt())
	}
	if others.Sign() == 0 {
		return SwapResult{}, model.ErrInvalidSwap.Wrap("pool has an empty reserve")
	}

	newFrom, ok := reserves[from].CheckedAdd(amountIn)
	if !ok {
		return SwapResult{}, model.ErrInvalidSwap.Wrapf("reserve %d would overflow", from)
	}

	denom := others.Mul(others, newFrom.BigInt())
	newToInt := ceilDiv(k, denom)
	if newToInt.Sign() == 0 {
		return SwapResult{}, model.ErrInvalidSwap.Wrapf("swap would exhaust reserve %d", to)
	}
	if newToInt.Cmp(reserves[to].BigInt()) >= 0 {
		return SwapResult{}, model.ErrInvalidSwap.Wrap("swap output rounds to zero")
	}

	newTo := amount.FromBig(newToInt)
	return SwapResult{
		AmountOut:   reserves[to].SaturatingSub(newTo),
		NewFrom:     newFrom,
		NewTo:       newTo,
		FromReserve: from,
		ToReserve:   to,
	}, nil
}

// Apply returns a copy of reserves with the swap result written in.
func (r SwapResult) Apply(reserves []amount.Amount) []amount.Amount {
	out := append([]amount.Amount(nil), reserves...)
	out[r.FromReserve] = r.NewFrom
	out[r.ToReserve] = r.NewTo
	return out
}

// Probabilities returns the implied price of each option, p_i = (1/r_i) / sum(1/r_m),
// computed as prod(r_m, m != i) / sum_j prod(r_m, m != j). Empty reserves yield nil.
func Probabilities(reserves []amount.Amount) []math.LegacyDec {
	if len(reserves) == 0 {
		return nil
	}
	partials := make([]*big.Int, len(reserves))
	total := new(big.Int)
	for i := range reserves {
		if reserves[i].IsZero() {
			return nil
		}
		p := big.NewInt(1)
		for m, r := range reserves {
			if m != i {
				p.Mul(p, r.BigInt())
			}
		}
		partials[i] = p
		total.Add(total, p)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(math.LegacyPrecision), nil)
	out := make([]math.LegacyDec, len(reserves))
	for i, p := range partials {
		q := new(big.Int).Mul(p, scale)
		q.Quo(q, total)
		out[i] = math.LegacyNewDecFromBigIntWithPrec(q, math.LegacyPrecision)
	}
	return out
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
