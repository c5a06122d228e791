// Package workflow implements the mutation pathways of the inventory core.
// Processors validate, then drive the ledger primitives; the ledger is the
// sole writer of item state.
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

// RecipeProcessor maps produced/sold items to scaled ingredient
// requirements and keeps recipe costs in step with live ledger costs.
type RecipeProcessor struct {
	inv    *store.Inventory
	ledger *ledger.Service
	logger *logrus.Logger
}

func NewRecipeProcessor(inv *store.Inventory, led *ledger.Service, logger *logrus.Logger) *RecipeProcessor {
	return &RecipeProcessor{inv: inv, ledger: led, logger: logger}
}

// UpsertRecipe creates or replaces the recipe of a parent item. Every
// ingredient's cost/name/code is refreshed from the live ledger before the
// totals are computed; the stored figures are snapshots, never a cache the
// ledger must keep fresh. The recomputed unit cost is pushed best-effort to
// any sale-price record sharing the parent's code.
func (p *RecipeProcessor) UpsertRecipe(ctx context.Context, input *models.NewRecipe) (*models.Recipe, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	parent, err := p.ledger.GetStockItem(ctx, input.ParentItemId)
	if err != nil {
		return nil, err
	}
	snapshot, err := p.ledger.SnapshotMap(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipe := models.Recipe{
		ID:             uuid.NewString(),
		ParentItem:     models.RecipeItemRef{Id: parent.ID, Code: parent.Code, Name: parent.Name},
		OutputQty:      input.OutputQty,
		OutputUnitType: input.OutputUnitType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, ing := range input.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, models.RecipeIngredient{
			IngredientId: ing.IngredientId,
			RequiredQty:  utils.RoundQty(ing.RequiredQty),
		})
	}
	if missing := models.CostRecipe(snapshot, &recipe); len(missing) > 0 {
		return nil, &models.RecipeIncompleteError{ItemId: input.ParentItemId, Missing: missing}
	}

	_, err = p.inv.Recipes.Mutate(ctx, func(records []models.Recipe) ([]models.Recipe, error) {
		for i := range records {
			if records[i].ParentItem.Id == recipe.ParentItem.Id {
				recipe.ID = records[i].ID
				recipe.CreatedAt = records[i].CreatedAt
				records[i] = recipe
				return records, nil
			}
		}
		return append(records, recipe), nil
	})
	if err != nil {
		return nil, err
	}

	p.pushCostToSalePrice(ctx, recipe.ParentItem.Code, recipe.UnitCost)
	return &recipe, nil
}

// pushCostToSalePrice is one-way and best-effort: a push failure never
// fails the upsert. Deltas below the push epsilon are redundant writes and
// are skipped.
func (p *RecipeProcessor) pushCostToSalePrice(ctx context.Context, code string, unitCost decimal.Decimal) {
	_, err := p.inv.SalePrices.Mutate(ctx, func(records []models.SalePrice) ([]models.SalePrice, error) {
		for i := range records {
			if records[i].Code != code {
				continue
			}
			if records[i].CostPrice.Sub(unitCost).Abs().LessThan(utils.CostPushEpsilon) {
				return nil, nil
			}
			records[i].CostPrice = unitCost
			records[i].UpdatedAt = time.Now().UTC()
			return records, nil
		}
		return nil, nil
	})
	if err != nil {
		config.LogError(p.logger, "recipe.go", "pushCostToSalePrice", "SalePrices.Mutate", code, err)
	}
}

// DeepDeduct resolves the recipe of a sold item, scales the ingredient
// requirements by the sold quantity, and deducts them fail-fast. With
// strict=false a recipe-less item deducts as itself (a purchased good sold
// as-is); with strict=true that raises RecipeIncompleteError.
func (p *RecipeProcessor) DeepDeduct(ctx context.Context, itemId string, qty decimal.Decimal, strict bool) (*ledger.DeductResult, error) {
	if !qty.IsPositive() {
		return nil, models.NewValidationError("deduct qty must be positive")
	}

	recipes, _, err := p.inv.Recipes.Load(ctx)
	if err != nil {
		return nil, err
	}
	var recipe *models.Recipe
	for i := range recipes {
		if recipes[i].ParentItem.Id == itemId {
			recipe = &recipes[i]
			break
		}
	}

	if recipe == nil || !recipe.OutputQty.IsPositive() || len(recipe.Ingredients) == 0 {
		if strict {
			return nil, &models.RecipeIncompleteError{ItemId: itemId}
		}
		return p.deductLines(ctx, []ledger.DeductLine{{ItemId: itemId, Qty: qty}})
	}

	factor := qty.Div(recipe.OutputQty)
	lines := make([]ledger.DeductLine, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		lines = append(lines, ledger.DeductLine{
			ItemId: ing.IngredientId,
			Qty:    utils.RoundQty(ing.RequiredQty.Mul(factor)),
		})
	}
	return p.deductLines(ctx, lines)
}

func (p *RecipeProcessor) deductLines(ctx context.Context, lines []ledger.DeductLine) (*ledger.DeductResult, error) {
	result, err := p.ledger.Deduct(ctx, lines, ledger.DeductFailFast)
	if err != nil {
		return nil, err
	}
	if !result.Ok {
		return nil, &models.InsufficientStockError{Lines: result.Insufficient}
	}
	return result, nil
}

func (p *RecipeProcessor) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
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

func (p *RecipeProcessor) GetRecipeByParentItem(ctx context.Context, itemId string) (*models.Recipe, error) {
	records, _, err := p.inv.Recipes.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ParentItem.Id == itemId {
			r := records[i]
			return &r, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "recipe", Id: itemId}
}

// ListRecipes returns a read-only snapshot for analytics collaborators.
func (p *RecipeProcessor) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	records, _, err := p.inv.Recipes.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Recipe, len(records))
	copy(out, records)
	return out, nil
}

func (p *RecipeProcessor) DeleteRecipe(ctx context.Context, id string) error {
	deleted := false
	_, err := p.inv.Recipes.Mutate(ctx, func(records []models.Recipe) ([]models.Recipe, error) {
		for i := range records {
			if records[i].ID == id {
				deleted = true
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	if !deleted {
		return &models.NotFoundError{Resource: "recipe", Id: id}
	}
	return nil
}
