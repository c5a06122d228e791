package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultIssueNo seeds the shared issue number sequence when no stock
// issues exist yet.
const DefaultIssueNo = 200

// StockIssueRef snapshots one side of a transfer line.
type StockIssueRef struct {
	Id       string   `json:"id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	UnitType UnitType `json:"unit_type"`
}

// StockIssue is one immutable transfer line. Lines created together share
// an IssueNo for audit grouping. Deleting a stock issue does NOT reverse
// the underlying ledger movement; see TransferProcessor.DeleteStockIssue.
type StockIssue struct {
	ID        string          `json:"id"`
	IssueNo   int             `json:"issue_no"`
	Date      time.Time       `json:"date"`
	From      StockIssueRef   `json:"from"`
	To        StockIssueRef   `json:"to"`
	WasQty    decimal.Decimal `json:"was_qty"`
	IssuedQty decimal.Decimal `json:"issued_qty"`
	NowQty    decimal.Decimal `json:"now_qty"`
	Value     decimal.Decimal `json:"value"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

type NewStockIssueLine struct {
	FromItemId string          `json:"from_item_id" binding:"required"`
	ToItemId   string          `json:"to_item_id" binding:"required"`
	Qty        decimal.Decimal `json:"qty"`
}

type NewStockIssue struct {
	Date      time.Time           `json:"date"`
	CreatedBy string              `json:"created_by"`
	Lines     []NewStockIssueLine `json:"lines" binding:"required,min=1"`
}

func (input *NewStockIssue) Validate() error {
	if len(input.Lines) == 0 {
		return NewValidationError("stock issue needs at least one line")
	}
	for _, line := range input.Lines {
		if line.FromItemId == line.ToItemId {
			return NewValidationError("origin and destination are the same item %s", line.FromItemId)
		}
		if !line.Qty.IsPositive() {
			return NewValidationError("issue qty for %s must be positive", line.FromItemId)
		}
	}
	return nil
}
