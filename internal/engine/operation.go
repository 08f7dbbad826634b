package engine

import (
	"context"

	"optionAMM/internal/amount"
	"optionAMM/internal/model"
)

// Operation is a tagged pool operation as submitted by the host.
type Operation struct {
	Type             string         `json:"type"`
	Market           model.MarketID `json:"market"`
	NumOptions       uint8          `json:"num_options,omitempty"`
	InitialLiquidity amount.Amount  `json:"initial_liquidity"`
	Amount           amount.Amount  `json:"amount"`
	Shares           amount.Amount  `json:"shares"`
	FromOption       uint8          `json:"from_option,omitempty"`
	ToOption         uint8          `json:"to_option,omitempty"`
	MinAmountOut     amount.Amount  `json:"min_amount_out"`
	OptionIndex      uint8          `json:"option_index,omitempty"`
	IsBuy            bool           `json:"is_buy,omitempty"`
}

// Request pairs an operation with the identity that signed it. A non-zero
// Cursor is the host's input position; it is committed with the operation.
type Request struct {
	Signer    model.Owner `json:"signer"`
	Operation Operation   `json:"operation"`
	Cursor    uint64      `json:"-"`
}

// Result is the outcome of Execute. Only the fields relevant to the operation
// type are set.
type Result struct {
	Type      string          `json:"type"`
	Market    model.MarketID  `json:"market"`
	AmountOut *amount.Amount  `json:"amount_out,omitempty"`
	Shares    *amount.Amount  `json:"shares,omitempty"`
	Withdrawn []amount.Amount `json:"withdrawn,omitempty"`
}

// Execute dispatches req to the matching engine operation. When the operation
// commits nothing (a rejection or a quote) the cursor is still advanced, so
// the host never executes the same input twice.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	res, err := e.execute(ctx, req)
	if err != nil && model.ErrorCode(err) == 0 {
		return res, err
	}
	if err != nil || req.Operation.Type == opGetQuote {
		if advErr := e.Advance(ctx, req.Cursor); advErr != nil {
			return res, advErr
		}
	}
	return res, err
}

func (e *Engine) execute(ctx context.Context, req Request) (Result, error) {
	op := req.Operation
	res := Result{Type: op.Type, Market: op.Market}

	switch op.Type {
	case opCreatePool:
		if err := e.createPool(ctx, req.Cursor, req.Signer, op.Market, op.NumOptions, op.InitialLiquidity); err != nil {
			return res, err
		}
		shares := op.InitialLiquidity
		res.Shares = &shares
	case opAddLiquidity:
		minted, err := e.addLiquidity(ctx, req.Cursor, req.Signer, op.Market, op.Amount)
		if err != nil {
			return res, err
		}
		res.Shares = &minted
	case opRemoveLiquidity:
		withdrawn, err := e.removeLiquidity(ctx, req.Cursor, req.Signer, op.Market, op.Shares)
		if err != nil {
			return res, err
		}
		res.Withdrawn = withdrawn
	case opSwap:
		out, err := e.swap(ctx, req.Cursor, req.Signer, op.Market, op.FromOption, op.ToOption, op.Amount, op.MinAmountOut)
		if err != nil {
			return res, err
		}
		res.AmountOut = &out
	case opGetQuote:
		out, err := e.GetQuote(ctx, op.Market, op.OptionIndex, op.Amount, op.IsBuy)
		if err != nil {
			return res, err
		}
		res.AmountOut = &out
	default:
		return res, model.ErrInvalidOperation.Wrapf("unknown operation type %q", op.Type)
	}
	return res, nil
}
