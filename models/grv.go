package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type GrvItem struct {
	ItemId   string          `json:"item_id"`
	Qty      decimal.Decimal `json:"qty"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// GoodsReceivedVoucher records one supplier delivery. Items and financials
// are mutable only while pending; confirmation feeds the ledger exactly
// once.
type GoodsReceivedVoucher struct {
	ID        string          `json:"id"`
	GrvNumber int             `json:"grv_number"`
	Date      time.Time       `json:"date"`
	Supplier  string          `json:"supplier"`
	Items     []GrvItem       `json:"items"`
	SubTotal  decimal.Decimal `json:"sub_total"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Status    GrvStatus       `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type NewGrvItem struct {
	ItemId   string          `json:"item_id" binding:"required"`
	Qty      decimal.Decimal `json:"qty"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type NewGrv struct {
	Supplier string       `json:"supplier" binding:"required"`
	Date     time.Time    `json:"date"`
	Items    []NewGrvItem `json:"items" binding:"required,min=1"`
	// Explicit totals override the recomputed ones when supplied (supplier
	// paperwork sometimes carries its own rounding).
	SubTotal *decimal.Decimal `json:"sub_total"`
	Tax      *decimal.Decimal `json:"tax"`
	Total    *decimal.Decimal `json:"total"`
}

func (input *NewGrv) Validate() error {
	if len(input.Items) == 0 {
		return NewValidationError("grv needs at least one line")
	}
	for _, it := range input.Items {
		if !it.Qty.IsPositive() {
			return NewValidationError("grv line for %s has non-positive qty", it.ItemId)
		}
		if it.UnitCost.IsNegative() {
			return NewValidationError("grv line for %s has negative unit cost", it.ItemId)
		}
	}
	return nil
}

// ApplyFinancials recomputes subtotal/tax/total from lines, honoring any
// explicit totals the caller supplied.
func (grv *GoodsReceivedVoucher) ApplyFinancials(input *NewGrv) {
	subTotal := decimal.Zero
	for _, it := range grv.Items {
		subTotal = subTotal.Add(it.Qty.Mul(it.UnitCost))
	}
	grv.SubTotal = subTotal.Round(2)
	grv.Tax = decimal.Zero
	if input.SubTotal != nil {
		grv.SubTotal = input.SubTotal.Round(2)
	}
	if input.Tax != nil {
		grv.Tax = input.Tax.Round(2)
	}
	grv.Total = grv.SubTotal.Add(grv.Tax)
	if input.Total != nil {
		grv.Total = input.Total.Round(2)
	}
}
