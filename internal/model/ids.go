package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// MarketID identifies a pool; it is the id of the market context the pool serves.
type MarketID common.Hash

// Owner identifies a liquidity provider or trader as supplied by the host.
type Owner common.Hash

func (m MarketID) Hex() string    { return common.Hash(m).Hex() }
func (m MarketID) String() string { return m.Hex() }
func (m MarketID) Bytes() []byte  { return common.Hash(m).Bytes() }

func (m MarketID) MarshalText() ([]byte, error) {
	return common.Hash(m).MarshalText()
}

func (m *MarketID) UnmarshalText(input []byte) error {
	return (*common.Hash)(m).UnmarshalText(input)
}

func (o Owner) Hex() string    { return common.Hash(o).Hex() }
func (o Owner) String() string { return o.Hex() }
func (o Owner) Bytes() []byte  { return common.Hash(o).Bytes() }

func (o Owner) MarshalText() ([]byte, error) {
	return common.Hash(o).MarshalText()
}

func (o *Owner) UnmarshalText(input []byte) error {
	return (*common.Hash)(o).UnmarshalText(input)
}

// ParseMarketID converts a 32-byte hex string into a MarketID.
func ParseMarketID(input string) (MarketID, error) {
	h, err := parseHash(input)
	if err != nil {
		return MarketID{}, fmt.Errorf("invalid market id: %w", err)
	}
	return MarketID(h), nil
}

// ParseOwner converts a 32-byte hex string into an Owner.
func ParseOwner(input string) (Owner, error) {
	h, err := parseHash(input)
	if err != nil {
		return Owner{}, fmt.Errorf("invalid owner: %w", err)
	}
	return Owner(h), nil
}

// MarketIDFromName derives a stable MarketID from a human readable name.
func MarketIDFromName(name string) MarketID {
	return MarketID(crypto.Keccak256Hash([]byte(name)))
}

// OwnerFromName derives a stable Owner from a human readable name.
func OwnerFromName(name string) Owner {
	return Owner(crypto.Keccak256Hash([]byte(name)))
}

func parseHash(input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, err
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(data))
	}
	return common.BytesToHash(data), nil
}
