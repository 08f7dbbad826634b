package pebble

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"optionAMM/internal/ledger"
	"optionAMM/internal/model"
)

var (
	poolPrefix     = []byte("pool/")
	positionPrefix = []byte("pos/")
	statsKey       = []byte("stats")
	cursorKey      = []byte("cursor")
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("ledger is closed")

// Ledger stores pools, positions and stats in a pebble database.
type Ledger struct {
	mu sync.Mutex
	db *pebble.DB
}

var _ ledger.Ledger = (*Ledger)(nil)

// Open opens (or creates) a ledger under dir.
func Open(dir string, logger *zap.Logger) (*Ledger, error) {
	if dir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := pebble.Open(dir, &pebble.Options{Logger: logger.Sugar()})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close flushes and closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func (l *Ledger) Pool(_ context.Context, market model.MarketID) (model.LiquidityPool, bool, error) {
	var pool model.LiquidityPool
	ok, err := l.get(poolKey(market), &pool)
	return pool, ok, err
}

func (l *Ledger) Pools(_ context.Context) ([]model.LiquidityPool, error) {
	var out []model.LiquidityPool
	err := l.scan(poolPrefix, func(value []byte) error {
		var pool model.LiquidityPool
		if err := json.Unmarshal(value, &pool); err != nil {
			return fmt.Errorf("decode pool: %w", err)
		}
		out = append(out, pool)
		return nil
	})
	return out, err
}

func (l *Ledger) Position(_ context.Context, market model.MarketID, provider model.Owner) (model.LPPosition, bool, error) {
	var pos model.LPPosition
	ok, err := l.get(positionKey(market, provider), &pos)
	return pos, ok, err
}

func (l *Ledger) Positions(_ context.Context, market model.MarketID) ([]model.LPPosition, error) {
	prefix := append(append([]byte(nil), positionPrefix...), market.Bytes()...)
	var out []model.LPPosition
	err := l.scan(prefix, func(value []byte) error {
		var pos model.LPPosition
		if err := json.Unmarshal(value, &pos); err != nil {
			return fmt.Errorf("decode position: %w", err)
		}
		out = append(out, pos)
		return nil
	})
	return out, err
}

func (l *Ledger) Stats(_ context.Context) (model.Stats, error) {
	var stats model.Stats
	_, err := l.get(statsKey, &stats)
	return stats, err
}

func (l *Ledger) Cursor(_ context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return 0, ErrClosed
	}
	val, closer, err := l.db.Get(cursorKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, fmt.Errorf("cursor has %d bytes, want 8", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// Apply writes the changeset in a single synced batch.
func (l *Ledger) Apply(_ context.Context, cs ledger.Changeset) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}

	batch := l.db.NewBatch()
	defer batch.Close()

	if cs.Pool != nil {
		key := poolKey(cs.Pool.Market)
		if cs.NewPool {
			exists, err := l.has(key)
			if err != nil {
				return err
			}
			if exists {
				return model.ErrPoolAlreadyExists.Wrapf("market %s", cs.Pool.Market)
			}
		}
		if err := setJSON(batch, key, cs.Pool); err != nil {
			return err
		}
	}

	if cs.Position != nil {
		if err := setJSON(batch, positionKey(cs.Position.Market, cs.Position.Provider), cs.Position); err != nil {
			return err
		}
	}

	if cs.StatsDelta != (model.Stats{}) {
		var stats model.Stats
		if _, err := l.getLocked(statsKey, &stats); err != nil {
			return err
		}
		if err := setJSON(batch, statsKey, stats.Add(cs.StatsDelta)); err != nil {
			return err
		}
	}

	if cs.Cursor != 0 {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], cs.Cursor)
		if err := batch.Set(cursorKey, buf[:], nil); err != nil {
			return fmt.Errorf("write cursor: %w", err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (l *Ledger) get(key []byte, dst interface{}) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(key, dst)
}

func (l *Ledger) getLocked(key []byte, dst interface{}) (bool, error) {
	if l.db == nil {
		return false, ErrClosed
	}
	val, closer, err := l.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %q: %w", key, err)
	}
	defer closer.Close()
	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (l *Ledger) has(key []byte) (bool, error) {
	_, closer, err := l.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

func (l *Ledger) scan(prefix []byte, fn func(value []byte) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}

	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return fmt.Errorf("open iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func setJSON(batch *pebble.Batch, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return batch.Set(key, data, nil)
}

func poolKey(market model.MarketID) []byte {
	return append(append([]byte(nil), poolPrefix...), market.Bytes()...)
}

func positionKey(market model.MarketID, provider model.Owner) []byte {
	key := append(append([]byte(nil), positionPrefix...), market.Bytes()...)
	return append(key, provider.Bytes()...)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
