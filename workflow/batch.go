package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/config"
	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

// BatchProductionProcessor converts ingredient stock into finished-goods
// stock through a recipe.
type BatchProductionProcessor struct {
	inv    *store.Inventory
	ledger *ledger.Service
	logger *logrus.Logger
}

func NewBatchProductionProcessor(inv *store.Inventory, led *ledger.Service, logger *logrus.Logger) *BatchProductionProcessor {
	return &BatchProductionProcessor{inv: inv, ledger: led, logger: logger}
}

// RecordBatchProduction scales the recipe's ingredients by
// actualOutput/outputQty, costs them from the live ledger, debits them and
// credits the finished good, then persists the batch record
// most-recent-first. Shortfalls surface as InsufficientStockError carrying
// every short ingredient.
func (p *BatchProductionProcessor) RecordBatchProduction(ctx context.Context, input *models.NewBatchProduction) (*models.BatchProduction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	recipe, err := p.getRecipe(ctx, input.RecipeId)
	if err != nil {
		return nil, err
	}
	if !recipe.OutputQty.IsPositive() || len(recipe.Ingredients) == 0 {
		return nil, &models.RecipeIncompleteError{ItemId: recipe.ParentItem.Id}
	}
	snapshot, err := p.ledger.SnapshotMap(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	variance, pct := models.YieldVariance(input.TheoreticalOutput, input.ActualOutput)
	batch := models.BatchProduction{
		ID:                   uuid.NewString(),
		RecipeId:             recipe.ID,
		BatchDate:            input.BatchDate,
		TheoreticalOutput:    input.TheoreticalOutput,
		ActualOutput:         input.ActualOutput,
		YieldVariance:        variance,
		YieldVariancePercent: pct,
		ProducedBy:           input.ProducedBy,
		CreatedAt:            now,
	}
	if batch.BatchDate.IsZero() {
		batch.BatchDate = now
	}

	// consumption snapshot, costed from the ledger at call time
	factor := input.ActualOutput.Div(recipe.OutputQty)
	total := decimal.Zero
	for _, ing := range recipe.Ingredients {
		qtyUsed := utils.RoundQty(ing.RequiredQty.Mul(factor))
		unitCost := ing.UnitCost
		code, name := ing.Code, ing.Name
		if item, ok := snapshot[ing.IngredientId]; ok {
			unitCost = item.CurrentCost
			code, name = item.Code, item.Name
		}
		cost := utils.RoundMoney(qtyUsed.Mul(unitCost))
		total = total.Add(cost)
		batch.IngredientsUsed = append(batch.IngredientsUsed, models.BatchIngredientUsage{
			IngredientId: ing.IngredientId,
			Code:         code,
			Name:         name,
			QtyUsed:      qtyUsed,
			UnitCost:     unitCost,
			Cost:         cost,
		})
	}
	batch.TotalCost = utils.RoundMoney(total)
	batch.UnitCost = utils.RoundMoney(batch.TotalCost.Div(input.ActualOutput))

	if _, err := p.ledger.ApplyBatchProduction(ctx, recipe, &batch); err != nil {
		config.LogError(p.logger, "batch.go", "RecordBatchProduction", "ledger.ApplyBatchProduction", batch.RecipeId, err)
		return nil, err
	}

	_, err = p.inv.Batches.Mutate(ctx, func(records []models.BatchProduction) ([]models.BatchProduction, error) {
		return append([]models.BatchProduction{batch}, records...), nil
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// RevertBatchProduction unwinds a recorded batch and deletes its record.
// The ledger refuses when the produced quantity was already consumed, and
// that error names the blocking finished-good position.
func (p *BatchProductionProcessor) RevertBatchProduction(ctx context.Context, batchId string) error {
	batch, err := p.GetBatchProduction(ctx, batchId)
	if err != nil {
		return err
	}
	recipe, err := p.getRecipe(ctx, batch.RecipeId)
	if err != nil {
		return err
	}

	if err := p.ledger.RevertBatchProduction(ctx, recipe, batch); err != nil {
		config.LogError(p.logger, "batch.go", "RevertBatchProduction", "ledger.RevertBatchProduction", batchId, err)
		return err
	}

	_, err = p.inv.Batches.Mutate(ctx, func(records []models.BatchProduction) ([]models.BatchProduction, error) {
		for i := range records {
			if records[i].ID == batchId {
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, nil
	})
	return err
}

func (p *BatchProductionProcessor) GetBatchProduction(ctx context.Context, id string) (*models.BatchProduction, error) {
	records, _, err := p.inv.Batches.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			b := records[i]
			return &b, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "batch production", Id: id}
}

// ListBatchProductions returns batches most-recent-first.
func (p *BatchProductionProcessor) ListBatchProductions(ctx context.Context) ([]models.BatchProduction, error) {
	records, _, err := p.inv.Batches.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.BatchProduction, len(records))
	copy(out, records)
	return out, nil
}

func (p *BatchProductionProcessor) getRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	records, _, err := p.inv.Recipes.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			r := records[i]
			return &r, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "recipe", Id: id}
}
