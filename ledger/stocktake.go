package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

type Adjustment struct {
	ItemId string          `json:"item_id"`
	NewQty decimal.Decimal `json:"new_qty"`
}

type AdjustedLine struct {
	ItemId    string          `json:"item_id"`
	QtyBefore decimal.Decimal `json:"qty_before"`
	QtyAfter  decimal.Decimal `json:"qty_after"`
	Delta     decimal.Decimal `json:"delta"`
}

type AdjustResult struct {
	Lines   []AdjustedLine `json:"lines"`
	Skipped []SkippedLine  `json:"skipped"`
}

// ApplyStockTakeAdjustments sets on-hand quantities to physically counted
// values. The physical count is ground truth, so there is no sufficiency
// check; items whose delta is below the quantity epsilon are skipped.
func (s *Service) ApplyStockTakeAdjustments(ctx context.Context, adjustments []Adjustment) (*AdjustResult, error) {
	if len(adjustments) == 0 {
		return nil, models.NewValidationError("stock take adjustment needs at least one line")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &AdjustResult{Lines: []AdjustedLine{}, Skipped: []SkippedLine{}}
	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		result.Lines = result.Lines[:0]
		result.Skipped = result.Skipped[:0]
		byId := indexItems(records)
		now := time.Now().UTC()

		applied := false
		for _, adj := range adjustments {
			idx, ok := byId[adj.ItemId]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: adj.ItemId, Reason: "unknown item"})
				continue
			}
			if adj.NewQty.IsNegative() {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: adj.ItemId, Reason: "negative physical qty"})
				continue
			}
			item := &records[idx]
			delta := adj.NewQty.Sub(item.CurrentStock)
			if delta.Abs().LessThan(utils.QtyEpsilon) {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: adj.ItemId, Reason: "delta below epsilon"})
				continue
			}
			before := item.CurrentStock
			item.CurrentStock = utils.RoundQty(adj.NewQty)
			item.Version++
			item.UpdatedAt = now
			result.Lines = append(result.Lines, AdjustedLine{
				ItemId:    item.ID,
				QtyBefore: before,
				QtyAfter:  item.CurrentStock,
				Delta:     delta,
			})
			applied = true
		}
		if !applied {
			return nil, nil
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Lines) > 0 {
		s.notify(EventStockAdjusted, result)
	}
	return result, nil
}
