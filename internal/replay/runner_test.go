package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"optionAMM/internal/amount"
	"optionAMM/internal/engine"
	"optionAMM/internal/fees"
	"optionAMM/internal/ledger"
	"optionAMM/internal/model"
	"optionAMM/internal/notify"
	"optionAMM/internal/storage"
	pebbleledger "optionAMM/internal/storage/pebble"
)

func opsFile(t *testing.T, dir string) string {
	t.Helper()
	market := model.MarketIDFromName("final").Hex()
	alice := model.OwnerFromName("alice").Hex()
	bob := model.OwnerFromName("bob").Hex()
	lines := []string{
		`{"signer":"` + alice + `","operation":{"type":"create_pool","market":"` + market + `","num_options":2,"initial_liquidity":"1000"}}`,
		``,
		`{"signer":"` + bob + `","operation":{"type":"swap","market":"` + market + `","from_option":0,"to_option":1,"amount":"100","min_amount_out":"0"}}`,
		`not json`,
		`{"signer":"` + bob + `","operation":{"type":"remove_liquidity","market":"` + market + `","shares":"5"}}`,
		`{"signer":"` + bob + `","operation":{"type":"add_liquidity","market":"` + market + `","amount":"50"}}`,
	}
	path := filepath.Join(dir, "ops.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write ops: %v", err)
	}
	return path
}

func newEngine(t *testing.T, l ledger.Ledger, outbox *notify.Outbox) *engine.Engine {
	t.Helper()
	schedule, err := fees.ParseSchedule("0.01")
	if err != nil {
		t.Fatalf("fee schedule: %v", err)
	}
	if l == nil {
		l = ledger.NewMemory()
	}
	var emitter engine.Emitter
	if outbox != nil {
		emitter = outbox
	}
	eng, err := engine.New(engine.Config{
		Params: engine.Params{Fees: schedule, MinLiquidity: amount.FromTokens(1)},
		Clock:  func() time.Time { return time.Unix(1_700_000_000, 0) },
	}, l, emitter, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

type downSink struct {
	calls int
}

func (s *downSink) PutNotifications(context.Context, []model.Notification) error {
	s.calls++
	return errors.New("sink unavailable")
}

func readOutcomes(t *testing.T, path string) []Outcome {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer file.Close()

	var out []Outcome
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var o Outcome
		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		out = append(out, o)
	}
	return out
}

func TestRunnerReplaysAndResumes(t *testing.T) {
	dir := t.TempDir()
	input := opsFile(t, dir)
	resultsPath := filepath.Join(dir, "results.jsonl")
	eventsPath := filepath.Join(dir, "events.jsonl")
	l := ledger.NewMemory()

	outbox := notify.NewOutbox()
	eng := newEngine(t, l, outbox)
	dispatcher := notify.NewDispatcher(notify.DispatchConfig{BatchSize: 10}, outbox, storage.NewJsonlStorage(eventsPath), nil, nil)
	runner := NewRunner(RunConfig{InputPath: input, BatchSize: 2}, eng, storage.NewJsonlStorage(resultsPath), dispatcher, nil)

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Lines != 5 || summary.Applied != 3 || summary.Rejected != 2 || summary.Skipped != 0 || summary.Undelivered != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	outcomes := readOutcomes(t, resultsPath)
	if len(outcomes) != 5 {
		t.Fatalf("expected 5 outcomes, got %d", len(outcomes))
	}
	if outcomes[1].Line != 3 || outcomes[1].Result == nil || outcomes[1].Result.AmountOut.String() != "82.637729549248747913" {
		t.Fatalf("unexpected swap outcome: %+v", outcomes[1])
	}
	if outcomes[2].Code != model.ErrorCode(model.ErrInvalidOperation) {
		t.Fatalf("malformed line should be an invalid operation: %+v", outcomes[2])
	}
	if outcomes[3].Code != model.ErrorCode(model.ErrInsufficientLiquidity) {
		t.Fatalf("removing without a position should be rejected: %+v", outcomes[3])
	}

	cursor, err := eng.Cursor(context.Background())
	if err != nil || cursor != 6 {
		t.Fatalf("cursor mismatch: %d %v", cursor, err)
	}
	if outbox.Len() != 0 {
		t.Fatalf("outbox should be drained, %d pending", outbox.Len())
	}

	data, err := os.ReadFile(eventsPath)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Fatalf("expected 3 notifications, got %d", got)
	}

	again := NewRunner(RunConfig{InputPath: input, BatchSize: 2}, newEngine(t, l, nil), nil, nil, nil)
	summary, err = again.Run(context.Background())
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if summary.Skipped != 5 || summary.Applied != 0 || summary.Rejected != 0 {
		t.Fatalf("rerun should skip committed lines: %+v", summary)
	}
}

func TestRunnerAdvancesPastTrailingRejections(t *testing.T) {
	dir := t.TempDir()
	market := model.MarketIDFromName("tail").Hex()
	alice := model.OwnerFromName("alice").Hex()
	lines := []string{
		`{"signer":"` + alice + `","operation":{"type":"create_pool","market":"` + market + `","num_options":2,"initial_liquidity":"1000"}}`,
		`{"signer":"` + alice + `","operation":{"type":"get_quote","market":"` + market + `","option_index":0,"amount":"10","is_buy":true}}`,
		`{"signer":"` + alice + `","operation":{"type":"swap","market":"` + market + `","from_option":0,"to_option":0,"amount":"10"}}`,
		`{broken`,
	}
	input := filepath.Join(dir, "ops.jsonl")
	if err := os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write ops: %v", err)
	}

	l := ledger.NewMemory()
	summary, err := NewRunner(RunConfig{InputPath: input}, newEngine(t, l, nil), nil, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Applied != 2 || summary.Rejected != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	cursor, err := l.Cursor(context.Background())
	if err != nil || cursor != 4 {
		t.Fatalf("cursor should cover the rejected tail: %d %v", cursor, err)
	}
}

func TestRunnerDoesNotReapplyAfterSinkOutage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "ledger")
	market := model.MarketIDFromName("outage")
	alice := model.OwnerFromName("alice").Hex()
	bob := model.OwnerFromName("bob").Hex()
	lines := []string{
		`{"signer":"` + alice + `","operation":{"type":"create_pool","market":"` + market.Hex() + `","num_options":2,"initial_liquidity":"1000"}}`,
		`{"signer":"` + bob + `","operation":{"type":"swap","market":"` + market.Hex() + `","from_option":0,"to_option":1,"amount":"100","min_amount_out":"0"}}`,
	}
	input := filepath.Join(dir, "ops.jsonl")
	if err := os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write ops: %v", err)
	}

	l, err := pebbleledger.Open(dataDir, nil)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	outbox := notify.NewOutbox()
	down := &downSink{}
	dispatcher := notify.NewDispatcher(notify.DispatchConfig{MaxRetries: 0}, outbox, down, nil, nil)
	summary, err := NewRunner(RunConfig{InputPath: input}, newEngine(t, l, outbox), nil, dispatcher, nil).Run(ctx)
	if err == nil {
		t.Fatalf("expected the delivery failure to be reported")
	}
	if summary.Applied != 2 || summary.Undelivered != 2 || down.calls == 0 {
		t.Fatalf("unexpected summary after outage: %+v (sink calls %d)", summary, down.calls)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close ledger: %v", err)
	}

	reopened, err := pebbleledger.Open(dataDir, nil)
	if err != nil {
		t.Fatalf("reopen ledger: %v", err)
	}
	defer reopened.Close()

	outbox = notify.NewOutbox()
	eng := newEngine(t, reopened, outbox)
	dispatcher = notify.NewDispatcher(notify.DispatchConfig{}, outbox, storage.NewJsonlStorage(filepath.Join(dir, "events.jsonl")), nil, nil)
	summary, err = NewRunner(RunConfig{InputPath: input}, eng, nil, dispatcher, nil).Run(ctx)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if summary.Skipped != 2 || summary.Applied != 0 || summary.Rejected != 0 {
		t.Fatalf("rerun should skip committed lines: %+v", summary)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !stats.TotalVolume.Equal(amount.FromTokens(100)) || stats.TotalPools != 1 {
		t.Fatalf("swap applied more than once: %+v", stats)
	}
	pool, err := eng.Pool(ctx, market)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if !pool.FeeCollected.Equal(amount.FromTokens(1)) {
		t.Fatalf("fee collected twice: %s", pool.FeeCollected)
	}
}

func TestRunnerRequiresInput(t *testing.T) {
	runner := NewRunner(RunConfig{}, newEngine(t, nil, nil), nil, nil, nil)
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected missing input error")
	}
}
