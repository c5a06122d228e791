package hqsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
)

// MirrorEvent is one ledger mutation queued for delivery to head office.
// Delivery is at-least-once; targets must tolerate duplicates keyed by ID.
type MirrorEvent struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Attempts   int             `json:"attempts"`
	Payload    json.RawMessage `json:"payload"`
}

// Target receives mirror events. Push must be safe to call again with the
// same event after a failure.
type Target interface {
	Name() string
	Push(ctx context.Context, event MirrorEvent) error
}

// FromLedgerEvent converts a committed ledger event into a queueable
// mirror event. Payloads that cannot marshal are sent with a null body
// rather than dropped.
func FromLedgerEvent(ev ledger.Event) MirrorEvent {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		payload = json.RawMessage("null")
	}
	return MirrorEvent{
		ID:         uuid.NewString(),
		Kind:       ev.Kind,
		OccurredAt: ev.OccurredAt,
		Payload:    payload,
	}
}
