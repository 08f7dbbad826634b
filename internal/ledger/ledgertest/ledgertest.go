// Package ledgertest checks that a ledger implementation honours the
// contract the pool engine relies on.
package ledgertest

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"optionAMM/internal/amount"
	"optionAMM/internal/ledger"
	"optionAMM/internal/model"
)

// Run exercises newLedger against the shared ledger contract.
func Run(t *testing.T, newLedger func(t *testing.T) ledger.Ledger) {
	t.Run("missing records", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		_, ok, err := l.Pool(ctx, model.MarketIDFromName("nope"))
		require.NoError(t, err)
		require.False(t, ok)

		_, ok, err = l.Position(ctx, model.MarketIDFromName("nope"), model.OwnerFromName("alice"))
		require.NoError(t, err)
		require.False(t, ok)

		stats, err := l.Stats(ctx)
		require.NoError(t, err)
		require.Zero(t, stats.TotalPools)
		require.True(t, stats.TotalVolume.IsZero())
	})

	t.Run("apply and read back", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		market := model.MarketIDFromName("m1")
		pool := samplePool(market)
		pos := samplePosition(market, model.OwnerFromName("alice"))

		require.NoError(t, l.Apply(ctx, ledger.Changeset{
			Pool:       &pool,
			Position:   &pos,
			NewPool:    true,
			StatsDelta: model.Stats{TotalPools: 1},
		}))

		got, ok, err := l.Pool(ctx, market)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 0, got.KConstant.Cmp(pool.KConstant))
		require.True(t, got.TotalLiquidity.Equal(pool.TotalLiquidity))
		require.Len(t, got.OptionReserves, 2)
		require.True(t, got.FeeRate.Equal(pool.FeeRate))

		gotPos, ok, err := l.Position(ctx, market, pos.Provider)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, gotPos.Shares.Equal(pos.Shares))
		require.Equal(t, pos.DepositedAt, gotPos.DepositedAt)

		stats, err := l.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), stats.TotalPools)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		market := model.MarketIDFromName("m2")
		pool := samplePool(market)
		require.NoError(t, l.Apply(ctx, ledger.Changeset{Pool: &pool, NewPool: true}))

		got, _, err := l.Pool(ctx, market)
		require.NoError(t, err)
		got.OptionReserves[0] = amount.Zero()
		got.KConstant.SetInt64(0)

		again, _, err := l.Pool(ctx, market)
		require.NoError(t, err)
		require.False(t, again.OptionReserves[0].IsZero())
		require.Equal(t, 1, again.KConstant.Sign())
	})

	t.Run("new pool conflicts", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		market := model.MarketIDFromName("m3")
		pool := samplePool(market)
		require.NoError(t, l.Apply(ctx, ledger.Changeset{Pool: &pool, NewPool: true, StatsDelta: model.Stats{TotalPools: 1}}))

		pos := samplePosition(market, model.OwnerFromName("bob"))
		err := l.Apply(ctx, ledger.Changeset{Pool: &pool, Position: &pos, NewPool: true, StatsDelta: model.Stats{TotalPools: 1}})
		require.True(t, errors.Is(err, model.ErrPoolAlreadyExists))

		_, ok, err := l.Position(ctx, market, pos.Provider)
		require.NoError(t, err)
		require.False(t, ok, "failed changeset must not write the position")

		stats, err := l.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(1), stats.TotalPools)
	})

	t.Run("positions by market", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		m1 := model.MarketIDFromName("a")
		m2 := model.MarketIDFromName("b")
		p1 := samplePool(m1)
		p2 := samplePool(m2)
		require.NoError(t, l.Apply(ctx, ledger.Changeset{Pool: &p1, NewPool: true}))
		require.NoError(t, l.Apply(ctx, ledger.Changeset{Pool: &p2, NewPool: true}))

		for _, name := range []string{"alice", "bob"} {
			pos := samplePosition(m1, model.OwnerFromName(name))
			require.NoError(t, l.Apply(ctx, ledger.Changeset{Position: &pos}))
		}
		other := samplePosition(m2, model.OwnerFromName("carol"))
		require.NoError(t, l.Apply(ctx, ledger.Changeset{Position: &other}))

		updated := samplePosition(m1, model.OwnerFromName("alice"))
		updated.Shares = amount.FromTokens(1)
		require.NoError(t, l.Apply(ctx, ledger.Changeset{Position: &updated}))

		positions, err := l.Positions(ctx, m1)
		require.NoError(t, err)
		require.Len(t, positions, 2)

		pools, err := l.Pools(ctx)
		require.NoError(t, err)
		require.Len(t, pools, 2)

		alice, ok, err := l.Position(ctx, m1, model.OwnerFromName("alice"))
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, alice.Shares.Equal(amount.FromTokens(1)))
	})

	t.Run("cursor is written with its changeset", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		cursor, err := l.Cursor(ctx)
		require.NoError(t, err)
		require.Zero(t, cursor)

		market := model.MarketIDFromName("cur")
		pool := samplePool(market)
		require.NoError(t, l.Apply(ctx, ledger.Changeset{Pool: &pool, NewPool: true, Cursor: 4}))

		err = l.Apply(ctx, ledger.Changeset{Pool: &pool, NewPool: true, Cursor: 5})
		require.True(t, errors.Is(err, model.ErrPoolAlreadyExists))
		cursor, err = l.Cursor(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(4), cursor, "a rejected changeset must not move the cursor")

		require.NoError(t, l.Apply(ctx, ledger.Changeset{Cursor: 9}))
		require.NoError(t, l.Apply(ctx, ledger.Changeset{StatsDelta: model.Stats{TotalPools: 1}}))
		cursor, err = l.Cursor(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(9), cursor, "a changeset without a cursor leaves it in place")
	})

	t.Run("stats accumulate", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		require.NoError(t, l.Apply(ctx, ledger.Changeset{StatsDelta: model.Stats{TotalVolume: amount.FromTokens(10)}}))
		require.NoError(t, l.Apply(ctx, ledger.Changeset{StatsDelta: model.Stats{TotalVolume: amount.FromTokens(5)}}))

		stats, err := l.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, "15", stats.TotalVolume.String())
	})
}

func samplePool(market model.MarketID) model.LiquidityPool {
	reserves := []amount.Amount{amount.FromTokens(500), amount.FromTokens(500)}
	k := new(big.Int).Mul(reserves[0].BigInt(), reserves[1].BigInt())
	return model.LiquidityPool{
		Market:         market,
		OptionReserves: reserves,
		TotalLiquidity: amount.FromTokens(1000),
		KConstant:      k,
		FeeRate:        math.LegacyNewDecWithPrec(3, 3),
		FeeCollected:   amount.Zero(),
		TotalVolume:    amount.Zero(),
		CreatedAt:      1,
		UpdatedAt:      1,
	}
}

func samplePosition(market model.MarketID, provider model.Owner) model.LPPosition {
	return model.LPPosition{
		Market:      market,
		Provider:    provider,
		Shares:      amount.FromTokens(1000),
		DepositedAt: 1,
		InitialK:    big.NewInt(42),
	}
}
