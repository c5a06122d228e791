package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ShortfallLine describes one deduction request that exceeds on-hand stock.
type ShortfallLine struct {
	ItemId   string          `json:"item_id"`
	Required decimal.Decimal `json:"required"`
	OnHand   decimal.Decimal `json:"on_hand"`
}

// InsufficientStockError carries every offending line of a rejected
// deduction (or just the first one, when the caller deducted fail-fast).
type InsufficientStockError struct {
	Lines []ShortfallLine
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("%s required %s on hand %s", l.ItemId, l.Required, l.OnHand))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// RecipeIncompleteError is raised when a sold/produced item has no usable
// recipe and the caller asked for strict resolution.
type RecipeIncompleteError struct {
	ItemId  string
	Missing []string
}

func (e *RecipeIncompleteError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("recipe incomplete for item %s", e.ItemId)
	}
	return fmt.Sprintf("recipe incomplete for item %s: missing %s", e.ItemId, strings.Join(e.Missing, ", "))
}

type UnitMismatchError struct {
	FromItemId string
	ToItemId   string
	FromUnit   UnitType
	ToUnit     UnitType
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("unit mismatch: %s is %s, %s is %s", e.FromItemId, e.FromUnit, e.ToItemId, e.ToUnit)
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Id)
}

// ConflictError reports a lost compare-and-swap race on a persisted
// collection; callers re-read and retry.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict on %s", e.Key)
}

// RemoteSyncError wraps a mirror push failure. Non-fatal: the local commit
// already happened and is never rolled back.
type RemoteSyncError struct {
	Target string
	Err    error
}

func (e *RemoteSyncError) Error() string {
	return fmt.Sprintf("remote sync to %s failed: %v", e.Target, e.Err)
}

func (e *RemoteSyncError) Unwrap() error {
	return e.Err
}
