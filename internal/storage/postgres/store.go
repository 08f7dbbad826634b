package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"optionAMM/internal/model"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for pool snapshots and notifications.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables the store writes to.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutNotifications inserts notifications, skipping ids that were already delivered.
func (s *Store) PutNotifications(ctx context.Context, batch []model.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]notificationRow, 0, len(batch))
	for _, n := range batch {
		row, err := newNotificationRow(n)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(`
			INSERT INTO amm_notifications (id, kind, market, seq, emitted_at_us, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6::text::jsonb, now())
			ON CONFLICT (id) DO NOTHING
		`,
			row.ID,
			row.Kind,
			row.Market,
			row.Seq,
			row.EmittedAt,
			row.Payload,
		)
	}
	return s.sendBatch(ctx, b, len(rows))
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.LiquidityPool) error {
	if len(pools) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, pool := range pools {
		row, err := newPoolRow(pool)
		if err != nil {
			return err
		}
		b.Queue(`
			INSERT INTO amm_pools (
				market, num_options, option_reserves, total_liquidity, k_constant, fee_rate,
				fee_collected, total_volume, created_at_us, updated_at_us, synced_at
			) VALUES ($1, $2, $3::text::jsonb, $4::text::numeric, $5::text::numeric, $6::text::numeric,
				$7::text::numeric, $8::text::numeric, $9, $10, now())
			ON CONFLICT (market)
			DO UPDATE SET
				option_reserves = EXCLUDED.option_reserves,
				total_liquidity = EXCLUDED.total_liquidity,
				k_constant = EXCLUDED.k_constant,
				fee_collected = EXCLUDED.fee_collected,
				total_volume = EXCLUDED.total_volume,
				updated_at_us = EXCLUDED.updated_at_us,
				synced_at = now()
		`,
			row.Market,
			row.NumOptions,
			row.Reserves,
			row.TotalLiquidity,
			row.KConstant,
			row.FeeRate,
			row.FeeCollected,
			row.TotalVolume,
			row.CreatedAt,
			row.UpdatedAt,
		)
	}
	return s.sendBatch(ctx, b, len(pools))
}

// UpsertPositions inserts or updates LP positions.
func (s *Store) UpsertPositions(ctx context.Context, positions []model.LPPosition) error {
	if len(positions) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, pos := range positions {
		row := newPositionRow(pos)
		b.Queue(`
			INSERT INTO amm_positions (market, provider, shares, initial_k, deposited_at_us, synced_at)
			VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5, now())
			ON CONFLICT (market, provider)
			DO UPDATE SET
				shares = EXCLUDED.shares,
				initial_k = EXCLUDED.initial_k,
				deposited_at_us = EXCLUDED.deposited_at_us,
				synced_at = now()
		`,
			row.Market,
			row.Provider,
			row.Shares,
			row.InitialK,
			row.DepositedAt,
		)
	}
	return s.sendBatch(ctx, b, len(positions))
}

// SaveState upserts the input line a snapshot was taken at.
func (s *Store) SaveState(ctx context.Context, name string, line uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO amm_state (name, last_line, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_line = EXCLUDED.last_line, updated_at = now()
	`, name, int64(line))
	return err
}

func (s *Store) sendBatch(ctx context.Context, b *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, b)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
