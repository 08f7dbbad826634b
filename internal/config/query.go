package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"optionAMM/internal/model"
)

// QueryConfig holds configuration for the read-only commands.
type QueryConfig struct {
	Config
	Market string
	Option uint8
	Amount string
	Sell   bool
	PGDSN  string
}

// LoadQuery merges config file, environment variables, and flags into QueryConfig.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (QueryConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return QueryConfig{}, err
	}
	base, err := fromViper(v)
	if err != nil {
		return QueryConfig{}, err
	}

	option := v.GetUint("option")
	if option > 255 {
		return QueryConfig{}, fmt.Errorf("option index %d out of range", option)
	}
	return QueryConfig{
		Config: base,
		Market: v.GetString("market"),
		Option: uint8(option),
		Amount: v.GetString("amount"),
		Sell:   v.GetBool("sell"),
		PGDSN:  v.GetString("pg-dsn"),
	}, nil
}

// ResolveMarket accepts a 32-byte hex id or a market name.
func ResolveMarket(input string) (model.MarketID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return model.MarketID{}, fmt.Errorf("market is required")
	}
	if strings.HasPrefix(input, "0x") {
		return model.ParseMarketID(input)
	}
	return model.MarketIDFromName(input), nil
}
