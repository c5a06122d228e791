package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

// FinishedGoodId derives the deterministic id of the stock item a recipe's
// batches produce. One finished-good item per parent code, forever.
func FinishedGoodId(parentCode string) string {
	return "fg:" + parentCode
}

type BatchApplyResult struct {
	FinishedGoodId string           `json:"finished_good_id"`
	FinishedGood   models.StockItem `json:"finished_good"`
	Consumed       []DeductedLine   `json:"consumed"`
}

// ApplyBatchProduction debits every ingredient the batch consumed and
// credits the finished good, repricing it by weighted average against the
// batch unit cost. On any shortfall nothing is applied and the returned
// error carries every short ingredient.
func (s *Service) ApplyBatchProduction(ctx context.Context, recipe *models.Recipe, batch *models.BatchProduction) (*BatchApplyResult, error) {
	if recipe == nil || batch == nil {
		return nil, models.NewValidationError("recipe and batch are required")
	}
	if !batch.ActualOutput.IsPositive() {
		return nil, models.NewValidationError("batch output must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fgId := FinishedGoodId(recipe.ParentItem.Code)
	result := &BatchApplyResult{FinishedGoodId: fgId}
	var shortage *models.InsufficientStockError

	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		shortage = nil
		result.Consumed = nil
		byId := indexItems(records)

		var short []models.ShortfallLine
		for _, used := range batch.IngredientsUsed {
			idx, ok := byId[used.IngredientId]
			if !ok {
				short = append(short, models.ShortfallLine{ItemId: used.IngredientId, Required: used.QtyUsed, OnHand: decimal.Zero})
				continue
			}
			if !utils.QtyCovers(records[idx].CurrentStock, used.QtyUsed) {
				short = append(short, models.ShortfallLine{ItemId: used.IngredientId, Required: used.QtyUsed, OnHand: records[idx].CurrentStock})
			}
		}
		if len(short) > 0 {
			shortage = &models.InsufficientStockError{Lines: short}
			return nil, nil
		}

		now := time.Now().UTC()
		for _, used := range batch.IngredientsUsed {
			item := &records[byId[used.IngredientId]]
			before := item.CurrentStock
			item.CurrentStock = utils.RoundQty(item.CurrentStock.Sub(used.QtyUsed))
			if item.CurrentStock.IsNegative() {
				item.CurrentStock = decimal.Zero
			}
			item.Version++
			item.UpdatedAt = now
			result.Consumed = append(result.Consumed, DeductedLine{
				ItemId:    item.ID,
				Qty:       used.QtyUsed,
				QtyBefore: before,
				QtyAfter:  item.CurrentStock,
			})
		}

		fgIdx, ok := byId[fgId]
		if !ok {
			records = append(records, models.StockItem{
				ID:        fgId,
				Code:      recipe.ParentItem.Code,
				Name:      recipe.ParentItem.Name,
				UnitType:  recipe.OutputUnitType,
				CreatedAt: now,
			})
			fgIdx = len(records) - 1
		}
		fg := &records[fgIdx]
		fg.CurrentCost = utils.WeightedAverageCost(fg.CurrentStock, fg.CurrentCost, batch.ActualOutput, batch.UnitCost)
		fg.CurrentStock = utils.RoundQty(fg.CurrentStock.Add(batch.ActualOutput))
		fg.ObserveCost(batch.UnitCost)
		fg.Version++
		fg.UpdatedAt = now
		result.FinishedGood = *fg
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if shortage != nil {
		return nil, shortage
	}
	s.notify(EventBatchProduced, result)
	return result, nil
}

// RevertBatchProduction undoes a batch: debits the finished good by the
// produced quantity and credits every consumed ingredient back. It refuses
// when the finished good's on-hand has dropped below the produced quantity
// (output already consumed). The finished good's unit cost is left
// unchanged; quantity-only unwind is an accepted approximation.
func (s *Service) RevertBatchProduction(ctx context.Context, recipe *models.Recipe, batch *models.BatchProduction) error {
	if recipe == nil || batch == nil {
		return models.NewValidationError("recipe and batch are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fgId := FinishedGoodId(recipe.ParentItem.Code)
	var shortage *models.InsufficientStockError

	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		shortage = nil
		byId := indexItems(records)

		fgIdx, ok := byId[fgId]
		if !ok {
			return nil, &models.NotFoundError{Resource: "finished good", Id: fgId}
		}
		fg := &records[fgIdx]
		if !utils.QtyCovers(fg.CurrentStock, batch.ActualOutput) {
			shortage = &models.InsufficientStockError{Lines: []models.ShortfallLine{{
				ItemId:   fgId,
				Required: batch.ActualOutput,
				OnHand:   fg.CurrentStock,
			}}}
			return nil, nil
		}

		now := time.Now().UTC()
		fg.CurrentStock = utils.RoundQty(fg.CurrentStock.Sub(batch.ActualOutput))
		if fg.CurrentStock.IsNegative() {
			fg.CurrentStock = decimal.Zero
		}
		fg.Version++
		fg.UpdatedAt = now

		for _, used := range batch.IngredientsUsed {
			idx, ok := byId[used.IngredientId]
			if !ok {
				// ingredient deleted since the batch; nothing to credit
				continue
			}
			item := &records[idx]
			item.CurrentStock = utils.RoundQty(item.CurrentStock.Add(used.QtyUsed))
			item.Version++
			item.UpdatedAt = now
		}
		return records, nil
	})
	if err != nil {
		return err
	}
	if shortage != nil {
		return shortage
	}
	s.notify(EventBatchReverted, map[string]any{"batch_id": batch.ID, "finished_good_id": fgId})
	return nil
}
