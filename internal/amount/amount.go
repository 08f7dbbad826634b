package amount

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"cosmossdk.io/math"
)

// Decimals is the number of fractional digits carried by an Amount.
const Decimals = 18

var (
	maxAttos = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
)

// Amount is a non-negative fixed-point quantity stored in attos (10^-18 units).
// Values are clamped to [0, 2^128-1]; add and sub saturate instead of wrapping.
type Amount struct {
	attos math.Int
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{attos: math.ZeroInt()}
}

// Max returns the largest representable amount.
func Max() Amount {
	return Amount{attos: math.NewIntFromBigInt(maxAttos)}
}

// FromAttos builds an Amount from a raw atto count, clamping to the valid range.
func FromAttos(v math.Int) Amount {
	if v.IsNil() {
		return Zero()
	}
	return FromBig(v.BigInt())
}

// FromBig builds an Amount from a raw atto count, clamping to the valid range.
func FromBig(v *big.Int) Amount {
	if v == nil || v.Sign() <= 0 {
		return Zero()
	}
	if v.Cmp(maxAttos) > 0 {
		return Max()
	}
	return Amount{attos: math.NewIntFromBigInt(v)}
}

// FromTokens returns n whole tokens.
func FromTokens(n uint64) Amount {
	v := new(big.Int).SetUint64(n)
	return FromBig(v.Mul(v, oneToken))
}

// Parse reads a decimal token quantity such as "12.5".
func Parse(input string) (Amount, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	dec, err := math.LegacyNewDecFromStr(input)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	if dec.IsNegative() {
		return Amount{}, fmt.Errorf("negative amount %q", input)
	}
	attos := dec.BigInt()
	if attos.Cmp(maxAttos) > 0 {
		return Amount{}, fmt.Errorf("amount %q exceeds maximum", input)
	}
	return FromBig(attos), nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(input string) Amount {
	a, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) int() math.Int {
	if a.attos.IsNil() {
		return math.ZeroInt()
	}
	return a.attos
}

// Attos returns the raw atto count.
func (a Amount) Attos() math.Int {
	return a.int()
}

// BigInt returns a copy of the raw atto count.
func (a Amount) BigInt() *big.Int {
	return a.int().BigInt()
}

// Dec returns the amount as an 18-decimal LegacyDec in token units.
func (a Amount) Dec() math.LegacyDec {
	return math.LegacyNewDecFromBigIntWithPrec(a.BigInt(), Decimals)
}

func (a Amount) IsZero() bool {
	return a.int().IsZero()
}

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.BigInt().Cmp(b.BigInt())
}

func (a Amount) Equal(b Amount) bool { return a.int().Equal(b.int()) }
func (a Amount) LT(b Amount) bool    { return a.int().LT(b.int()) }
func (a Amount) LTE(b Amount) bool   { return a.int().LTE(b.int()) }
func (a Amount) GT(b Amount) bool    { return a.int().GT(b.int()) }
func (a Amount) GTE(b Amount) bool   { return a.int().GTE(b.int()) }

// CheckedAdd returns a+b and false when the sum does not fit.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	if sum.Cmp(maxAttos) > 0 {
		return Max(), false
	}
	return Amount{attos: math.NewIntFromBigInt(sum)}, true
}

// SaturatingAdd returns a+b, clamped to Max.
func (a Amount) SaturatingAdd(b Amount) Amount {
	sum, _ := a.CheckedAdd(b)
	return sum
}

// SaturatingSub returns a-b, clamped to zero.
func (a Amount) SaturatingSub(b Amount) Amount {
	if a.LTE(b) {
		return Zero()
	}
	return Amount{attos: a.int().Sub(b.int())}
}

// MulDiv returns trunc(a*num/den). It reports false when den is zero.
func (a Amount) MulDiv(num, den Amount) (Amount, bool) {
	if den.IsZero() {
		return Zero(), false
	}
	v := new(big.Int).Mul(a.BigInt(), num.BigInt())
	v.Quo(v, den.BigInt())
	return FromBig(v), true
}

// MulDecTruncate returns trunc(a*d) for a non-negative decimal d.
func (a Amount) MulDecTruncate(d math.LegacyDec) Amount {
	if d.IsNil() || !d.IsPositive() {
		return Zero()
	}
	return FromAttos(math.LegacyNewDecFromInt(a.int()).Mul(d).TruncateInt())
}

// Split divides a into n equal parts and returns one part and the remainder.
func (a Amount) Split(n int) (Amount, Amount) {
	if n <= 0 {
		return Zero(), a
	}
	q, r := new(big.Int).QuoRem(a.BigInt(), big.NewInt(int64(n)), new(big.Int))
	return FromBig(q), FromBig(r)
}

// Sum adds amounts without clamping.
func Sum(amounts []Amount) *big.Int {
	total := new(big.Int)
	for _, a := range amounts {
		total.Add(total, a.BigInt())
	}
	return total
}

// String formats the amount in token units without trailing zeros.
func (a Amount) String() string {
	text := a.Dec().String()
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimSuffix(text, ".")
	}
	return text
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		text = num.String()
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
