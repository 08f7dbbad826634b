package model

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error namespace for pool engine errors.
const Codespace = "amm"

var (
	ErrPoolNotFound          = errorsmod.Register(Codespace, 1, "pool not found")
	ErrInsufficientLiquidity = errorsmod.Register(Codespace, 2, "insufficient liquidity")
	ErrInvalidSwap           = errorsmod.Register(Codespace, 3, "invalid swap parameters")
	ErrSlippageTooHigh       = errorsmod.Register(Codespace, 4, "slippage too high")
	ErrMinLiquidityNotMet    = errorsmod.Register(Codespace, 5, "minimum liquidity not met")
	ErrPoolAlreadyExists     = errorsmod.Register(Codespace, 6, "pool already exists")
	ErrInvalidOptionCount    = errorsmod.Register(Codespace, 7, "invalid option count")
	ErrInvalidOperation      = errorsmod.Register(Codespace, 8, "invalid operation")
)

var kinds = []*errorsmod.Error{
	ErrPoolNotFound,
	ErrInsufficientLiquidity,
	ErrInvalidSwap,
	ErrSlippageTooHigh,
	ErrMinLiquidityNotMet,
	ErrPoolAlreadyExists,
	ErrInvalidOptionCount,
	ErrInvalidOperation,
}

// ErrorCode returns the registered code of a pool engine error, or 0.
func ErrorCode(err error) uint32 {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind.ABCICode()
		}
	}
	return 0
}
