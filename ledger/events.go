package ledger

import "time"

// Event is published to subscribers after each committed mutation.
type Event struct {
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

const (
	EventItemCreated      = "item.created"
	EventItemUpdated      = "item.updated"
	EventItemDeleted      = "item.deleted"
	EventStockReceived    = "stock.received"
	EventStockDeducted    = "stock.deducted"
	EventStockTransferred = "stock.transferred"
	EventBatchProduced    = "batch.produced"
	EventBatchReverted    = "batch.reverted"
	EventStockAdjusted    = "stocktake.adjusted"
)
