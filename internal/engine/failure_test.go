package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"optionAMM/internal/amount"
	"optionAMM/internal/fees"
	"optionAMM/internal/ledger"
	"optionAMM/internal/metrics"
	"optionAMM/internal/model"
)

var errDisk = errors.New("disk unavailable")

// brokenLedger fails writes or position reads on demand.
type brokenLedger struct {
	*ledger.Memory
	failApply     bool
	failPositions bool
}

func (l *brokenLedger) Apply(ctx context.Context, cs ledger.Changeset) error {
	if l.failApply {
		return errDisk
	}
	return l.Memory.Apply(ctx, cs)
}

func (l *brokenLedger) Position(ctx context.Context, market model.MarketID, provider model.Owner) (model.LPPosition, bool, error) {
	if l.failPositions {
		return model.LPPosition{}, false, errDisk
	}
	return l.Memory.Position(ctx, market, provider)
}

func TestLedgerFailuresAreCountedAndLogged(t *testing.T) {
	ctx := context.Background()
	schedule, err := fees.ParseSchedule("0.01")
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	core, logs := observer.New(zap.WarnLevel)
	l := &brokenLedger{Memory: ledger.NewMemory()}
	e, err := New(Config{
		Params:  Params{Fees: schedule, MinLiquidity: amount.Zero()},
		Metrics: m,
		Clock:   func() time.Time { return time.Unix(1_700_000_000, 0) },
	}, l, nil, zap.New(core))
	require.NoError(t, err)

	market := model.MarketIDFromName("m")
	require.NoError(t, e.CreatePool(ctx, alice, market, 2, amount.FromTokens(1000)))

	l.failApply = true
	_, err = e.Swap(ctx, bob, market, 0, 1, amount.FromTokens(10), amount.Zero())
	require.ErrorIs(t, err, errDisk)
	require.Zero(t, model.ErrorCode(err))
	_, err = e.AddLiquidity(ctx, bob, market, amount.FromTokens(10))
	require.ErrorIs(t, err, errDisk)
	err = e.CreatePool(ctx, alice, model.MarketIDFromName("other"), 2, amount.FromTokens(10))
	require.ErrorIs(t, err, errDisk)

	l.failApply = false
	l.failPositions = true
	_, err = e.RemoveLiquidity(ctx, alice, market, amount.FromTokens(1))
	require.ErrorIs(t, err, errDisk)

	for _, op := range []string{opSwap, opAddLiquidity, opCreatePool, opRemoveLiquidity} {
		require.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(op, "failed")), op)
		require.Zero(t, testutil.ToFloat64(m.Operations.WithLabelValues(op, "rejected")), op)
	}
	require.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(opCreatePool, "ok")))
	require.Equal(t, 4, logs.FilterMessage("operation failed").Len())

	pool, err := e.Pool(ctx, market)
	require.NoError(t, err)
	require.True(t, pool.TotalVolume.IsZero())
}

func TestSwapAcceptsExactMinimumOutput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "0.01", amount.Zero())
	market := model.MarketIDFromName("m")
	require.NoError(t, f.engine.CreatePool(ctx, alice, market, 2, amount.FromTokens(1000)))

	quote, err := f.engine.QuoteSwap(ctx, market, 0, 1, amount.FromTokens(100))
	require.NoError(t, err)

	above := amount.FromBig(new(big.Int).Add(quote.AmountOut.BigInt(), big.NewInt(1)))
	_, err = f.engine.Swap(ctx, bob, market, 0, 1, amount.FromTokens(100), above)
	require.True(t, errors.Is(err, model.ErrSlippageTooHigh))

	out, err := f.engine.Swap(ctx, bob, market, 0, 1, amount.FromTokens(100), quote.AmountOut)
	require.NoError(t, err)
	require.True(t, out.Equal(quote.AmountOut))
}

func TestExecuteCommitsCursor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "0.01", amount.Zero())
	market := model.MarketIDFromName("m")

	cursor := func() uint64 {
		t.Helper()
		c, err := f.engine.Cursor(ctx)
		require.NoError(t, err)
		return c
	}

	_, err := f.engine.Execute(ctx, Request{Signer: alice, Cursor: 1, Operation: Operation{
		Type: opCreatePool, Market: market, NumOptions: 2, InitialLiquidity: amount.FromTokens(1000),
	}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), cursor())

	_, err = f.engine.Execute(ctx, Request{Signer: bob, Cursor: 2, Operation: Operation{
		Type: opSwap, Market: market, FromOption: 1, ToOption: 1, Amount: amount.FromTokens(10), MinAmountOut: amount.Zero(),
	}})
	require.True(t, errors.Is(err, model.ErrInvalidSwap))
	require.Equal(t, uint64(2), cursor())

	_, err = f.engine.Execute(ctx, Request{Signer: bob, Cursor: 3, Operation: Operation{
		Type: opGetQuote, Market: market, OptionIndex: 0, Amount: amount.FromTokens(10), IsBuy: true,
	}})
	require.NoError(t, err)
	require.Equal(t, uint64(3), cursor())

	_, err = f.engine.Execute(ctx, Request{Signer: bob, Operation: Operation{Type: "mint"}})
	require.True(t, errors.Is(err, model.ErrInvalidOperation))
	_, err = f.engine.Swap(ctx, bob, market, 0, 1, amount.FromTokens(10), amount.Zero())
	require.NoError(t, err)
	require.Equal(t, uint64(3), cursor(), "requests without a cursor leave it in place")
}
