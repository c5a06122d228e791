package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockTakeVariance compares one physical count with the ledger quantity at
// count time. VarianceValue = VarianceQty × unit cost at count time.
type StockTakeVariance struct {
	ItemId        string          `json:"item_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	SystemQty     decimal.Decimal `json:"system_qty"`
	PhysicalQty   decimal.Decimal `json:"physical_qty"`
	VarianceQty   decimal.Decimal `json:"variance_qty"`
	VarianceValue decimal.Decimal `json:"variance_value"`
}

type StockTakeSession struct {
	ID         string              `json:"id"`
	Date       time.Time           `json:"date"`
	Department string              `json:"department"`
	Variances  []StockTakeVariance `json:"variances"`
	Applied    bool                `json:"applied"`
	CreatedAt  time.Time           `json:"created_at"`
}

type PhysicalCount struct {
	ItemId string          `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty"`
}

type NewStockTake struct {
	Date       time.Time       `json:"date"`
	Department string          `json:"department"`
	Counts     []PhysicalCount `json:"counts" binding:"required,min=1"`
	// ApplyAdjustments left unset means apply; physical count is ground
	// truth.
	ApplyAdjustments *bool `json:"apply_adjustments"`
}

func (input *NewStockTake) ShouldApply() bool {
	return input.ApplyAdjustments == nil || *input.ApplyAdjustments
}

func (input *NewStockTake) Validate() error {
	if len(input.Counts) == 0 {
		return NewValidationError("stock take needs at least one count")
	}
	for _, c := range input.Counts {
		if c.Qty.IsNegative() {
			return NewValidationError("physical count for %s cannot be negative", c.ItemId)
		}
	}
	return nil
}
