// Package replay drives the pool engine from a JSONL file of signed
// operations, the way a host would feed it requests.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"optionAMM/internal/engine"
	"optionAMM/internal/model"
	"optionAMM/internal/notify"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	InputPath string
	// BatchSize is the number of input lines between result writes and
	// notification flushes.
	BatchSize int
}

// Outcome is the per-line result written to the results sink.
type Outcome struct {
	Line   uint64         `json:"line"`
	Signer model.Owner    `json:"signer"`
	Result *engine.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	Code   uint32         `json:"code,omitempty"`
}

// Summary counts what a run did.
type Summary struct {
	Lines    int `json:"lines"`
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
	// Undelivered is the number of notifications still queued when the run ended.
	Undelivered int `json:"undelivered"`
}

// ResultSink receives outcomes in input order.
type ResultSink interface {
	Append(values ...interface{}) error
}

// Runner feeds operations to the engine and records their outcomes.
type Runner struct {
	cfg        RunConfig
	engine     *engine.Engine
	results    ResultSink
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewRunner builds a Runner. results and dispatcher are optional.
func NewRunner(cfg RunConfig, eng *engine.Engine, results ResultSink, dispatcher *notify.Dispatcher, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &Runner{
		cfg:        cfg,
		engine:     eng,
		results:    results,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run executes every input line after the ledger cursor. Each line number is
// committed with its operation, so a restart never applies a line twice.
// Rejected operations are recorded and the run continues. Ledger or result
// sink failures stop it. Notification delivery failures do not: the
// notifications stay queued and the error is returned once the input is done.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if r.engine == nil {
		return summary, fmt.Errorf("engine is nil")
	}
	if r.cfg.InputPath == "" {
		return summary, fmt.Errorf("input path is required")
	}

	resumeAfter, err := r.engine.Cursor(ctx)
	if err != nil {
		return summary, err
	}
	if resumeAfter > 0 {
		r.logger.Info("resume from ledger cursor", zap.Uint64("last_line", resumeAfter))
	}

	file, err := os.Open(r.cfg.InputPath)
	if err != nil {
		return summary, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]interface{}, 0, r.cfg.BatchSize)
	var lineNo, pending uint64
	var deliveryErr error

	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary.Lines++
		if lineNo <= resumeAfter {
			summary.Skipped++
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		outcome, err := r.apply(ctx, lineNo, line)
		if err != nil {
			return summary, err
		}
		if outcome.Error != "" {
			summary.Rejected++
		} else {
			summary.Applied++
		}
		batch = append(batch, outcome)
		pending = lineNo

		if len(batch) >= r.cfg.BatchSize {
			if err := r.flush(ctx, batch, pending, &deliveryErr); err != nil {
				return summary, err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan input: %w", err)
	}

	if len(batch) > 0 || r.pending() > 0 {
		if err := r.flush(ctx, batch, pending, &deliveryErr); err != nil {
			return summary, err
		}
	}
	summary.Undelivered = r.pending()

	r.logger.Info("replay complete",
		zap.Int("lines", summary.Lines),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("skipped", summary.Skipped),
		zap.Int("undelivered", summary.Undelivered),
	)
	if summary.Undelivered > 0 && deliveryErr != nil {
		return summary, fmt.Errorf("%d notifications undelivered: %w", summary.Undelivered, deliveryErr)
	}
	return summary, nil
}

func (r *Runner) apply(ctx context.Context, lineNo uint64, line []byte) (Outcome, error) {
	var req engine.Request
	if err := json.Unmarshal(line, &req); err != nil {
		err = model.ErrInvalidOperation.Wrapf("line %d: %s", lineNo, err)
		r.logger.Warn("decode operation", zap.Uint64("line", lineNo), zap.Error(err))
		if advErr := r.engine.Advance(ctx, lineNo); advErr != nil {
			return Outcome{}, advErr
		}
		return Outcome{Line: lineNo, Error: err.Error(), Code: model.ErrorCode(err)}, nil
	}
	req.Cursor = lineNo

	res, err := r.engine.Execute(ctx, req)
	if err != nil {
		code := model.ErrorCode(err)
		if code == 0 {
			return Outcome{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		return Outcome{Line: lineNo, Signer: req.Signer, Error: err.Error(), Code: code}, nil
	}
	return Outcome{Line: lineNo, Signer: req.Signer, Result: &res}, nil
}

// flush writes outcomes and then tries to deliver queued notifications. A
// delivery failure is logged and kept in deliveryErr; the lines are already
// committed and the notifications stay queued for the next flush.
func (r *Runner) flush(ctx context.Context, batch []interface{}, lastLine uint64, deliveryErr *error) error {
	if r.results != nil && len(batch) > 0 {
		if err := r.results.Append(batch...); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}
	delivered := 0
	if r.dispatcher != nil {
		n, err := r.dispatcher.Flush(ctx)
		delivered = n
		if err != nil {
			*deliveryErr = err
			r.logger.Warn("notification delivery deferred",
				zap.Error(err),
				zap.Int("pending", r.dispatcher.Pending()),
				zap.Uint64("last_line", lastLine),
			)
		} else {
			*deliveryErr = nil
		}
	}
	r.logger.Info("batch complete", zap.Int("operations", len(batch)), zap.Int("notifications", delivered), zap.Uint64("last_line", lastLine))
	return nil
}

func (r *Runner) pending() int {
	if r.dispatcher == nil {
		return 0
	}
	return r.dispatcher.Pending()
}
