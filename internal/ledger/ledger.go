package ledger

import (
	"context"

	"optionAMM/internal/model"
)

// PoolLedger maps market ids to pool records.
type PoolLedger interface {
	Pool(ctx context.Context, market model.MarketID) (model.LiquidityPool, bool, error)
	Pools(ctx context.Context) ([]model.LiquidityPool, error)
}

// PositionLedger maps (market, provider) to LP positions.
type PositionLedger interface {
	Position(ctx context.Context, market model.MarketID, provider model.Owner) (model.LPPosition, bool, error)
	Positions(ctx context.Context, market model.MarketID) ([]model.LPPosition, error)
}

// Ledger is the state the pool engine reads and commits to.
type Ledger interface {
	PoolLedger
	PositionLedger
	Stats(ctx context.Context) (model.Stats, error)
	// Cursor returns the host position recorded by the last changeset that set one.
	Cursor(ctx context.Context) (uint64, error)
	// Apply commits every record in the changeset or none of them.
	Apply(ctx context.Context, cs Changeset) error
}

// Changeset is the full effect of one engine operation.
type Changeset struct {
	Pool     *model.LiquidityPool
	Position *model.LPPosition
	// NewPool makes Apply fail with ErrPoolAlreadyExists if the pool is present.
	NewPool    bool
	StatsDelta model.Stats
	// Cursor, when non-zero, is stored with the changeset so a host can
	// resume after the last operation that was committed.
	Cursor uint64
}
