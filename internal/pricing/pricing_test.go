package pricing

import (
	"errors"
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"pgregory.net/rapid"

	"optionAMM/internal/amount"
	"optionAMM/internal/model"
)

func TestSwapBinaryScenario(t *testing.T) {
	reserves := []amount.Amount{amount.FromTokens(500), amount.FromTokens(500)}
	k := Invariant(reserves)

	wantK := new(big.Int).Mul(amount.FromTokens(500).BigInt(), amount.FromTokens(500).BigInt())
	if k.Cmp(wantK) != 0 {
		t.Fatalf("k mismatch: %s", k)
	}

	res, err := Swap(reserves, k, 0, 1, amount.FromTokens(99))
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if !res.NewFrom.Equal(amount.FromTokens(599)) {
		t.Fatalf("new from reserve mismatch: %s", res.NewFrom)
	}
	// 250000 / 599 = 417.3622704507512520868..., rounded up in attos.
	if res.NewTo.String() != "417.362270450751252087" {
		t.Fatalf("new to reserve mismatch: %s", res.NewTo)
	}
	if res.AmountOut.String() != "82.637729549248747913" {
		t.Fatalf("amount out mismatch: %s", res.AmountOut)
	}

	// inputs are untouched
	if !reserves[0].Equal(amount.FromTokens(500)) || !reserves[1].Equal(amount.FromTokens(500)) {
		t.Fatalf("swap mutated its input")
	}
}

func TestSwapRejectsBadIndices(t *testing.T) {
	reserves := []amount.Amount{amount.FromTokens(10), amount.FromTokens(10), amount.FromTokens(10)}
	k := Invariant(reserves)

	cases := []struct {
		name     string
		from, to int
		in       amount.Amount
	}{
		{"same option", 1, 1, amount.FromTokens(1)},
		{"from out of range", 3, 0, amount.FromTokens(1)},
		{"to out of range", 0, 5, amount.FromTokens(1)},
		{"negative index", -1, 0, amount.FromTokens(1)},
		{"zero input", 0, 1, amount.Zero()},
	}
	for _, tc := range cases {
		if _, err := Swap(reserves, k, tc.from, tc.to, tc.in); !errors.Is(err, model.ErrInvalidSwap) {
			t.Fatalf("%s: expected ErrInvalidSwap, got %v", tc.name, err)
		}
	}
}

func TestSwapRejectsEmptyReserves(t *testing.T) {
	reserves := []amount.Amount{amount.FromTokens(10), amount.FromTokens(10), amount.Zero()}
	if _, err := Swap(reserves, big.NewInt(0), 0, 1, amount.FromTokens(1)); !errors.Is(err, model.ErrInvalidSwap) {
		t.Fatalf("expected ErrInvalidSwap for zero k, got %v", err)
	}
	if _, err := Swap(reserves, big.NewInt(100), 0, 1, amount.FromTokens(1)); !errors.Is(err, model.ErrInvalidSwap) {
		t.Fatalf("expected ErrInvalidSwap for empty untouched reserve, got %v", err)
	}
}

func TestSwapNeverDrainsReserve(t *testing.T) {
	reserves := []amount.Amount{amount.FromTokens(1), amount.FromTokens(1)}
	k := Invariant(reserves)

	huge := amount.MustParse("1000000000000000000")
	res, err := Swap(reserves, k, 0, 1, huge)
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	if res.NewTo.IsZero() {
		t.Fatalf("reserve drained to zero")
	}
	if !res.AmountOut.LT(reserves[1]) {
		t.Fatalf("output %s should stay below reserve %s", res.AmountOut, reserves[1])
	}
}

func TestSwapMultiOutcomeUsesUntouchedReserves(t *testing.T) {
	reserves := []amount.Amount{amount.FromTokens(100), amount.FromTokens(200), amount.FromTokens(400)}
	k := Invariant(reserves)

	res, err := Swap(reserves, k, 2, 0, amount.FromTokens(100))
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	// k = 100*200*400 = 8e6; new[2] = 500; new[0] = 8e6 / (500*200) = 80
	if !res.NewTo.Equal(amount.FromTokens(80)) {
		t.Fatalf("new to reserve mismatch: %s", res.NewTo)
	}
	if !res.AmountOut.Equal(amount.FromTokens(20)) {
		t.Fatalf("amount out mismatch: %s", res.AmountOut)
	}

	after := res.Apply(reserves)
	if Invariant(after).Cmp(k) != 0 {
		t.Fatalf("invariant changed on exact division")
	}
}

func TestSwapPreservesInvariantWithinRounding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 5).Draw(t, "options")
		reserves := make([]amount.Amount, n)
		for i := range reserves {
			attos := rapid.Int64Range(1_000_000, 1<<62).Draw(t, "reserve")
			reserves[i] = amount.FromAttos(math.NewInt(attos))
		}
		k := Invariant(reserves)

		steps := rapid.IntRange(1, 8).Draw(t, "steps")
		for s := 0; s < steps; s++ {
			from := rapid.IntRange(0, n-1).Draw(t, "from")
			to := rapid.IntRange(0, n-1).Draw(t, "to")
			if from == to {
				continue
			}
			in := amount.FromAttos(math.NewInt(rapid.Int64Range(1, 1<<60).Draw(t, "in")))

			res, err := Swap(reserves, k, from, to, in)
			if err != nil {
				if !errors.Is(err, model.ErrInvalidSwap) {
					t.Fatalf("unexpected error kind: %v", err)
				}
				continue
			}
			reserves = res.Apply(reserves)

			product := Invariant(reserves)
			if product.Cmp(k) < 0 {
				t.Fatalf("product %s fell below k %s", product, k)
			}
			// tolerance: one atto of the output reserve times the other reserves
			tolerance := big.NewInt(1)
			for m, r := range reserves {
				if m != to {
					tolerance.Mul(tolerance, r.BigInt())
				}
			}
			if new(big.Int).Sub(product, k).Cmp(tolerance) >= 0 {
				t.Fatalf("product %s drifted beyond rounding tolerance of k %s", product, k)
			}
			for i, r := range reserves {
				if r.IsZero() {
					t.Fatalf("reserve %d drained", i)
				}
			}
		}
	})
}

func TestProbabilities(t *testing.T) {
	even := Probabilities([]amount.Amount{amount.FromTokens(500), amount.FromTokens(500)})
	if len(even) != 2 || !even[0].Equal(math.LegacyNewDecWithPrec(5, 1)) {
		t.Fatalf("even pool should price at 0.5: %v", even)
	}

	skewed := Probabilities([]amount.Amount{amount.FromTokens(100), amount.FromTokens(300)})
	if !skewed[0].Equal(math.LegacyNewDecWithPrec(75, 2)) || !skewed[1].Equal(math.LegacyNewDecWithPrec(25, 2)) {
		t.Fatalf("skewed pool mismatch: %v", skewed)
	}

	if got := Probabilities([]amount.Amount{amount.FromTokens(1), amount.Zero()}); got != nil {
		t.Fatalf("empty reserve should give nil, got %v", got)
	}
}
