package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"optionAMM/internal/amount"
	"optionAMM/internal/model"
)

func TestJsonlStorageAppendsNotifications(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJsonlStorage(path)
	market := model.MarketIDFromName("m")

	batch := []model.Notification{
		model.NewNotification(model.KindPoolCreated, market, 1, 10, model.PoolCreated{Market: market, Liquidity: amount.FromTokens(1000)}),
		model.NewNotification(model.KindSwapExecuted, market, 2, 11, model.SwapExecuted{Market: market, From: 0, To: 1, AmountIn: amount.FromTokens(100), AmountOut: amount.MustParse("82.5")}),
	}
	if err := sink.PutNotifications(context.Background(), batch[:1]); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := sink.PutNotifications(context.Background(), batch[1:]); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if err := sink.PutNotifications(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var records []model.NotificationRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.NotificationRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != batch[0].ID || records[1].Kind != model.KindSwapExecuted {
		t.Fatalf("unexpected records: %+v", records)
	}

	var swap model.SwapExecuted
	if err := json.Unmarshal(records[1].Payload, &swap); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if swap.AmountOut.String() != "82.5" {
		t.Fatalf("payload amount mismatch: %s", swap.AmountOut)
	}
}

type failingSink struct{ err error }

func (f failingSink) PutNotifications(context.Context, []model.Notification) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	path := filepath.Join(t.TempDir(), "events.jsonl")
	sinks := Multi{failingSink{err: boom}, NewJsonlStorage(path)}

	batch := []model.Notification{model.NewNotification(model.KindPoolCreated, model.MarketID{}, 1, 1, nil)}
	if err := sinks.PutNotifications(context.Background(), batch); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("healthy sink should still receive the batch: %v", err)
	}
}
