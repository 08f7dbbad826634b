package postgres

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"

	"optionAMM/internal/amount"
	"optionAMM/internal/model"
)

func TestNewPoolRow(t *testing.T) {
	market := model.MarketIDFromName("m")
	pool := model.LiquidityPool{
		Market:         market,
		OptionReserves: []amount.Amount{amount.FromTokens(599), amount.MustParse("417.362270450751252087")},
		TotalLiquidity: amount.FromTokens(1000),
		KConstant:      big.NewInt(12345),
		FeeRate:        math.LegacyNewDecWithPrec(1, 2),
		FeeCollected:   amount.FromTokens(1),
		TotalVolume:    amount.FromTokens(100),
		CreatedAt:      7,
		UpdatedAt:      9,
	}

	row, err := newPoolRow(pool)
	if err != nil {
		t.Fatalf("pool row: %v", err)
	}
	if row.Market != market.Hex() || row.NumOptions != 2 {
		t.Fatalf("unexpected identity columns: %+v", row)
	}
	if row.Reserves != `["599","417.362270450751252087"]` {
		t.Fatalf("reserves mismatch: %s", row.Reserves)
	}
	if row.KConstant != "12345" || row.FeeRate != "0.010000000000000000" || row.FeeCollected != "1" {
		t.Fatalf("numeric columns mismatch: %+v", row)
	}

	pool.FeeRate = math.LegacyDec{}
	pool.KConstant = nil
	row, err = newPoolRow(pool)
	if err != nil {
		t.Fatalf("pool row: %v", err)
	}
	if row.FeeRate != "0" || row.KConstant != "0" {
		t.Fatalf("nil numerics should encode as zero: %+v", row)
	}
}

func TestNewNotificationRow(t *testing.T) {
	market := model.MarketIDFromName("m")
	n := model.NewNotification(model.KindLiquidityAdded, market, 3, 99, model.LiquidityAdded{
		Market:   market,
		Provider: model.OwnerFromName("alice"),
		Amount:   amount.FromTokens(5),
		Shares:   amount.FromTokens(5),
	})

	row, err := newNotificationRow(n)
	if err != nil {
		t.Fatalf("notification row: %v", err)
	}
	if row.ID != n.ID.Hex() || row.Seq != 3 || row.EmittedAt != 99 || row.Kind != model.KindLiquidityAdded {
		t.Fatalf("unexpected row: %+v", row)
	}
	want := `{"market":"` + market.Hex() + `","provider":"` + model.OwnerFromName("alice").Hex() + `","amount":"5","shares":"5"}`
	if row.Payload != want {
		t.Fatalf("payload mismatch:\n got %s\nwant %s", row.Payload, want)
	}
}
