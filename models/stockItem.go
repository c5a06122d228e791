package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is the authoritative stock position of one ingredient or
// finished good. CurrentStock and CurrentCost are mutated only by the
// ledger; everything else in the system stores snapshots of them.
type StockItem struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	UnitType     UnitType        `json:"unit_type"`
	Department   string          `json:"department"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	CurrentCost  decimal.Decimal `json:"current_cost"`
	LowestCost   decimal.Decimal `json:"lowest_cost"`
	HighestCost  decimal.Decimal `json:"highest_cost"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	SupplierId   string          `json:"supplier_id"`
	// Version counts committed ledger mutations of this record; multi-writer
	// deployments compare it before accepting a stale update.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ObserveCost widens the historical low/high cost bounds.
func (i *StockItem) ObserveCost(c decimal.Decimal) {
	if c.LessThanOrEqual(decimal.Zero) {
		return
	}
	if i.LowestCost.IsZero() || c.LessThan(i.LowestCost) {
		i.LowestCost = c
	}
	if c.GreaterThan(i.HighestCost) {
		i.HighestCost = c
	}
}

type NewStockItem struct {
	Code         string          `json:"code" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	UnitType     UnitType        `json:"unit_type" binding:"required"`
	Department   string          `json:"department"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	OpeningCost  decimal.Decimal `json:"opening_cost"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	SupplierId   string          `json:"supplier_id"`
}

func (input *NewStockItem) Validate() error {
	if !input.UnitType.Valid() {
		return NewValidationError("invalid unit type %q", input.UnitType)
	}
	if input.OpeningStock.IsNegative() {
		return NewValidationError("opening stock cannot be negative")
	}
	if input.OpeningCost.IsNegative() {
		return NewValidationError("opening cost cannot be negative")
	}
	return nil
}
