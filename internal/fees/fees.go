package fees

import (
	"fmt"

	"cosmossdk.io/math"

	"optionAMM/internal/amount"
	"optionAMM/internal/model"
)

// Schedule withholds a fixed fraction of every swap input.
type Schedule struct {
	Rate math.LegacyDec
}

// NewSchedule validates that rate lies in [0, 1).
func NewSchedule(rate math.LegacyDec) (Schedule, error) {
	if rate.IsNil() {
		return Schedule{Rate: math.LegacyZeroDec()}, nil
	}
	if rate.IsNegative() || rate.GTE(math.LegacyOneDec()) {
		return Schedule{}, fmt.Errorf("fee rate must be in [0, 1), got %s", rate)
	}
	return Schedule{Rate: rate}, nil
}

// ParseSchedule reads a decimal fee rate such as "0.003".
func ParseSchedule(input string) (Schedule, error) {
	rate, err := math.LegacyNewDecFromStr(input)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid fee rate %q: %w", input, err)
	}
	return NewSchedule(rate)
}

// Withhold splits a gross swap input into the fee and the amount that is priced.
func (s Schedule) Withhold(gross amount.Amount) (fee, net amount.Amount) {
	fee = gross.MulDecTruncate(s.Rate)
	return fee, gross.SaturatingSub(fee)
}

// Accrue records a swap on the pool's fee and volume counters. Fees are kept
// out of the reserves.
func Accrue(pool *model.LiquidityPool, gross, fee amount.Amount) {
	pool.FeeCollected = pool.FeeCollected.SaturatingAdd(fee)
	pool.TotalVolume = pool.TotalVolume.SaturatingAdd(gross)
}
