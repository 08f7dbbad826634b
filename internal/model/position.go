package model

import (
	"math/big"

	"optionAMM/internal/amount"
)

// LPPosition is a provider's proportional claim on a pool.
type LPPosition struct {
	Market      MarketID      `json:"market"`
	Provider    Owner         `json:"provider"`
	Shares      amount.Amount `json:"shares"`
	DepositedAt uint64        `json:"deposited_at"`
	InitialK    *big.Int      `json:"initial_k"`
}

// PositionKey addresses a position in the ledger.
type PositionKey struct {
	Market   MarketID
	Provider Owner
}

func (p LPPosition) Key() PositionKey {
	return PositionKey{Market: p.Market, Provider: p.Provider}
}

func (p LPPosition) Clone() LPPosition {
	out := p
	if p.InitialK != nil {
		out.InitialK = new(big.Int).Set(p.InitialK)
	}
	return out
}
