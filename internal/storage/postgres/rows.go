package postgres

import (
	"encoding/json"
	"fmt"
	"math/big"

	"optionAMM/internal/model"
)

type notificationRow struct {
	ID        string
	Kind      string
	Market    string
	Seq       int64
	EmittedAt int64
	Payload   string
}

func newNotificationRow(n model.Notification) (notificationRow, error) {
	rec, err := n.Record()
	if err != nil {
		return notificationRow{}, fmt.Errorf("encode notification %s: %w", n.ID.Hex(), err)
	}
	return notificationRow{
		ID:        rec.ID.Hex(),
		Kind:      rec.Kind,
		Market:    rec.Market.Hex(),
		Seq:       int64(rec.Seq),
		EmittedAt: int64(rec.EmittedAt),
		Payload:   string(rec.Payload),
	}, nil
}

// Amounts are stored in token units so SQL sums read naturally.
type poolRow struct {
	Market         string
	NumOptions     int16
	Reserves       string
	TotalLiquidity string
	KConstant      string
	FeeRate        string
	FeeCollected   string
	TotalVolume    string
	CreatedAt      int64
	UpdatedAt      int64
}

func newPoolRow(pool model.LiquidityPool) (poolRow, error) {
	reserves, err := json.Marshal(pool.OptionReserves)
	if err != nil {
		return poolRow{}, fmt.Errorf("encode reserves of %s: %w", pool.Market, err)
	}
	feeRate := "0"
	if !pool.FeeRate.IsNil() {
		feeRate = pool.FeeRate.String()
	}
	return poolRow{
		Market:         pool.Market.Hex(),
		NumOptions:     int16(pool.NumOptions()),
		Reserves:       string(reserves),
		TotalLiquidity: pool.TotalLiquidity.String(),
		KConstant:      intString(pool.KConstant),
		FeeRate:        feeRate,
		FeeCollected:   pool.FeeCollected.String(),
		TotalVolume:    pool.TotalVolume.String(),
		CreatedAt:      int64(pool.CreatedAt),
		UpdatedAt:      int64(pool.UpdatedAt),
	}, nil
}

type positionRow struct {
	Market      string
	Provider    string
	Shares      string
	InitialK    string
	DepositedAt int64
}

func newPositionRow(pos model.LPPosition) positionRow {
	return positionRow{
		Market:      pos.Market.Hex(),
		Provider:    pos.Provider.Hex(),
		Shares:      pos.Shares.String(),
		InitialK:    intString(pos.InitialK),
		DepositedAt: int64(pos.DepositedAt),
	}
}

// k is kept in attos^N, unscaled.
func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
