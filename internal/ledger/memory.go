package ledger

import (
	"context"
	"sync"

	"optionAMM/internal/model"
)

// Memory is an in-process ledger: records live in slices, maps hold indexes.
type Memory struct {
	mu            sync.RWMutex
	pools         []model.LiquidityPool
	poolIndex     map[model.MarketID]int
	positions     []model.LPPosition
	positionIndex map[model.PositionKey]int
	byMarket      map[model.MarketID][]int
	stats         model.Stats
	cursor        uint64
}

func NewMemory() *Memory {
	return &Memory{
		poolIndex:     make(map[model.MarketID]int),
		positionIndex: make(map[model.PositionKey]int),
		byMarket:      make(map[model.MarketID][]int),
	}
}

func (m *Memory) Pool(_ context.Context, market model.MarketID) (model.LiquidityPool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.poolIndex[market]
	if !ok {
		return model.LiquidityPool{}, false, nil
	}
	return m.pools[idx].Clone(), true, nil
}

func (m *Memory) Pools(_ context.Context) ([]model.LiquidityPool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.LiquidityPool, 0, len(m.pools))
	for _, pool := range m.pools {
		out = append(out, pool.Clone())
	}
	return out, nil
}

func (m *Memory) Position(_ context.Context, market model.MarketID, provider model.Owner) (model.LPPosition, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.positionIndex[model.PositionKey{Market: market, Provider: provider}]
	if !ok {
		return model.LPPosition{}, false, nil
	}
	return m.positions[idx].Clone(), true, nil
}

func (m *Memory) Positions(_ context.Context, market model.MarketID) ([]model.LPPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	indexes := m.byMarket[market]
	out := make([]model.LPPosition, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, m.positions[idx].Clone())
	}
	return out, nil
}

func (m *Memory) Stats(_ context.Context) (model.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats, nil
}

func (m *Memory) Cursor(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor, nil
}

func (m *Memory) Apply(_ context.Context, cs Changeset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cs.Pool != nil {
		idx, exists := m.poolIndex[cs.Pool.Market]
		if cs.NewPool && exists {
			return model.ErrPoolAlreadyExists.Wrapf("market %s", cs.Pool.Market)
		}
		if exists {
			m.pools[idx] = cs.Pool.Clone()
		} else {
			m.poolIndex[cs.Pool.Market] = len(m.pools)
			m.pools = append(m.pools, cs.Pool.Clone())
		}
	}

	if cs.Position != nil {
		key := cs.Position.Key()
		if idx, ok := m.positionIndex[key]; ok {
			m.positions[idx] = cs.Position.Clone()
		} else {
			idx = len(m.positions)
			m.positionIndex[key] = idx
			m.positions = append(m.positions, cs.Position.Clone())
			m.byMarket[key.Market] = append(m.byMarket[key.Market], idx)
		}
	}

	m.stats = m.stats.Add(cs.StatsDelta)
	if cs.Cursor != 0 {
		m.cursor = cs.Cursor
	}
	return nil
}
