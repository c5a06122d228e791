package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeItemRef is a denormalized reference to the parent stock item a
// recipe produces or sells.
type RecipeItemRef struct {
	Id   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// RecipeIngredient stores a cost snapshot; it is refreshed from the ledger
// on every upsert and never trusted as current.
type RecipeIngredient struct {
	IngredientId string          `json:"ingredient_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	RequiredQty  decimal.Decimal `json:"required_qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	UnitType     UnitType        `json:"unit_type"`
}

type Recipe struct {
	ID             string             `json:"id"`
	ParentItem     RecipeItemRef      `json:"parent_item"`
	OutputQty      decimal.Decimal    `json:"output_qty"`
	OutputUnitType UnitType           `json:"output_unit_type"`
	Ingredients    []RecipeIngredient `json:"ingredients"`
	TotalCost      decimal.Decimal    `json:"total_cost"`
	UnitCost       decimal.Decimal    `json:"unit_cost"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type NewRecipeIngredient struct {
	IngredientId string          `json:"ingredient_id" binding:"required"`
	RequiredQty  decimal.Decimal `json:"required_qty"`
}

type NewRecipe struct {
	ParentItemId   string                `json:"parent_item_id" binding:"required"`
	OutputQty      decimal.Decimal       `json:"output_qty"`
	OutputUnitType UnitType              `json:"output_unit_type" binding:"required"`
	Ingredients    []NewRecipeIngredient `json:"ingredients" binding:"required,min=1"`
}

func (input *NewRecipe) Validate() error {
	if input.OutputQty.LessThan(decimal.NewFromInt(1)) {
		return NewValidationError("output qty must be at least 1")
	}
	if !input.OutputUnitType.Valid() {
		return NewValidationError("invalid output unit type %q", input.OutputUnitType)
	}
	for _, ing := range input.Ingredients {
		if !ing.RequiredQty.IsPositive() {
			return NewValidationError("ingredient %s required qty must be positive", ing.IngredientId)
		}
	}
	return nil
}

// CostRecipe recomputes a recipe's cost fields from a ledger snapshot. Pure:
// it mutates only the passed recipe and returns ids of ingredients absent
// from the snapshot. TotalCost = Σ requiredQty×unitCost,
// UnitCost = TotalCost/OutputQty.
func CostRecipe(items map[string]StockItem, r *Recipe) (missing []string) {
	total := decimal.Zero
	for idx := range r.Ingredients {
		ing := &r.Ingredients[idx]
		item, ok := items[ing.IngredientId]
		if !ok {
			missing = append(missing, ing.IngredientId)
			continue
		}
		ing.Code = item.Code
		ing.Name = item.Name
		ing.UnitType = item.UnitType
		ing.UnitCost = item.CurrentCost
		total = total.Add(ing.RequiredQty.Mul(ing.UnitCost))
	}
	r.TotalCost = total.Round(2)
	if r.OutputQty.IsPositive() {
		r.UnitCost = r.TotalCost.Div(r.OutputQty).Round(2)
	} else {
		r.UnitCost = decimal.Zero
	}
	return missing
}
