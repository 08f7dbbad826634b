package model

import (
	"encoding/binary"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"optionAMM/internal/amount"
)

// Notification kinds delivered to the market context.
const (
	KindPoolCreated      = "pool_created"
	KindSwapExecuted     = "swap_executed"
	KindLiquidityAdded   = "liquidity_added"
	KindLiquidityRemoved = "liquidity_removed"
)

// PoolCreated is emitted once a pool is registered.
type PoolCreated struct {
	Market    MarketID      `json:"market"`
	Liquidity amount.Amount `json:"liquidity"`
}

// SwapExecuted is emitted after a committed swap.
type SwapExecuted struct {
	Market    MarketID      `json:"market"`
	From      uint8         `json:"from"`
	To        uint8         `json:"to"`
	AmountIn  amount.Amount `json:"amount_in"`
	AmountOut amount.Amount `json:"amount_out"`
}

// LiquidityAdded is emitted after a deposit.
type LiquidityAdded struct {
	Market   MarketID      `json:"market"`
	Provider Owner         `json:"provider"`
	Amount   amount.Amount `json:"amount"`
	Shares   amount.Amount `json:"shares"`
}

// LiquidityRemoved is emitted after a withdrawal.
type LiquidityRemoved struct {
	Market   MarketID        `json:"market"`
	Provider Owner           `json:"provider"`
	Shares   amount.Amount   `json:"shares"`
	Amounts  []amount.Amount `json:"amounts"`
}

// Notification is a one-way event addressed to a market context.
type Notification struct {
	ID        common.Hash `json:"id"`
	Kind      string      `json:"kind"`
	Market    MarketID    `json:"market"`
	Seq       uint64      `json:"seq"`
	EmittedAt uint64      `json:"emitted_at"`
	Payload   interface{} `json:"payload"`
}

// NotificationRecord is the stored form of a Notification.
type NotificationRecord struct {
	ID        common.Hash     `json:"id"`
	Kind      string          `json:"kind"`
	Market    MarketID        `json:"market"`
	Seq       uint64          `json:"seq"`
	EmittedAt uint64          `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload"`
}

// NewNotification stamps a payload with a content-derived id so consumers can
// drop redeliveries.
func NewNotification(kind string, market MarketID, seq, emittedAt uint64, payload interface{}) Notification {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seq)
	binary.BigEndian.PutUint64(buf[8:], emittedAt)
	id := crypto.Keccak256Hash([]byte(kind), market.Bytes(), buf[:])

	return Notification{
		ID:        id,
		Kind:      kind,
		Market:    market,
		Seq:       seq,
		EmittedAt: emittedAt,
		Payload:   payload,
	}
}

// Record converts a Notification to its stored form.
func (n Notification) Record() (NotificationRecord, error) {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return NotificationRecord{}, err
	}
	return NotificationRecord{
		ID:        n.ID,
		Kind:      n.Kind,
		Market:    n.Market,
		Seq:       n.Seq,
		EmittedAt: n.EmittedAt,
		Payload:   payload,
	}, nil
}
