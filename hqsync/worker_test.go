package hqsync

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
)

type fakeTarget struct {
	mu       sync.Mutex
	pushed   []MirrorEvent
	failures int
}

func (t *fakeTarget) Name() string { return "fake" }

func (t *fakeTarget) Push(ctx context.Context, event MirrorEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failures > 0 {
		t.failures--
		return context.DeadlineExceeded
	}
	t.pushed = append(t.pushed, event)
	return nil
}

func (t *fakeTarget) pushedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pushed)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestWorkerDeliversQueuedEvents(t *testing.T) {
	target := &fakeTarget{}
	w := NewWorker([]Target{target}, testLogger())
	w.Start()
	defer w.Stop()

	w.Enqueue(MirrorEvent{ID: "e1", Kind: "stock.received", Payload: json.RawMessage(`{"x":1}`)})
	w.Enqueue(MirrorEvent{ID: "e2", Kind: "stock.deducted", Payload: json.RawMessage(`{"x":2}`)})

	waitFor(t, func() bool { return target.pushedCount() == 2 })
}

func TestWorkerParksDeadAfterMaxAttempts(t *testing.T) {
	t.Setenv("HQ_SYNC_MAX_ATTEMPTS", "1")

	target := &fakeTarget{failures: 100}
	w := NewWorker([]Target{target}, testLogger())
	w.Start()
	defer w.Stop()

	w.Enqueue(MirrorEvent{ID: "e1", Kind: "stock.received", Payload: json.RawMessage(`{}`)})
	waitFor(t, func() bool { return w.DeadCount() == 1 })

	// target recovers; the sweep gives parked events another round
	target.mu.Lock()
	target.failures = 0
	target.mu.Unlock()

	w.RequeueDead()
	waitFor(t, func() bool { return target.pushedCount() == 1 })
	if w.DeadCount() != 0 {
		t.Fatalf("expected dead queue drained, got %d", w.DeadCount())
	}
}

func TestFromLedgerEvent(t *testing.T) {
	ev := ledger.Event{
		Kind:       ledger.EventStockReceived,
		OccurredAt: time.Now().UTC(),
		Payload:    map[string]string{"item": "rice"},
	}
	mirror := FromLedgerEvent(ev)
	if mirror.ID == "" {
		t.Fatal("expected a generated event id")
	}
	if mirror.Kind != ledger.EventStockReceived {
		t.Fatalf("expected kind carried over, got %s", mirror.Kind)
	}
	var payload map[string]string
	if err := json.Unmarshal(mirror.Payload, &payload); err != nil {
		t.Fatalf("payload not valid json: %v", err)
	}
	if payload["item"] != "rice" {
		t.Fatalf("unexpected payload %v", payload)
	}
}
