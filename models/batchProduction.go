package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchIngredientUsage is the consumption snapshot of one ingredient in a
// recorded batch, scaled by actualOutput/outputQty at record time.
type BatchIngredientUsage struct {
	IngredientId string          `json:"ingredient_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	QtyUsed      decimal.Decimal `json:"qty_used"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Cost         decimal.Decimal `json:"cost"`
}

type BatchProduction struct {
	ID                   string                 `json:"id"`
	RecipeId             string                 `json:"recipe_id"`
	BatchDate            time.Time              `json:"batch_date"`
	TheoreticalOutput    decimal.Decimal        `json:"theoretical_output"`
	ActualOutput         decimal.Decimal        `json:"actual_output"`
	YieldVariance        decimal.Decimal        `json:"yield_variance"`
	YieldVariancePercent decimal.Decimal        `json:"yield_variance_percent"`
	IngredientsUsed      []BatchIngredientUsage `json:"ingredients_used"`
	TotalCost            decimal.Decimal        `json:"total_cost"`
	UnitCost             decimal.Decimal        `json:"unit_cost"`
	ProducedBy           string                 `json:"produced_by"`
	CreatedAt            time.Time              `json:"created_at"`
}

type NewBatchProduction struct {
	RecipeId          string          `json:"recipe_id" binding:"required"`
	BatchDate         time.Time       `json:"batch_date"`
	TheoreticalOutput decimal.Decimal `json:"theoretical_output"`
	ActualOutput      decimal.Decimal `json:"actual_output"`
	ProducedBy        string          `json:"produced_by"`
}

func (input *NewBatchProduction) Validate() error {
	if !input.ActualOutput.IsPositive() {
		return NewValidationError("actual output must be positive")
	}
	if input.TheoreticalOutput.IsNegative() {
		return NewValidationError("theoretical output cannot be negative")
	}
	return nil
}

// YieldVariance returns (variance, variancePercent) for the recorded
// outputs. Percent is 0 when theoretical is 0.
func YieldVariance(theoretical, actual decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	variance := actual.Sub(theoretical)
	if theoretical.IsZero() {
		return variance, decimal.Zero
	}
	pct := variance.Div(theoretical).Mul(decimal.NewFromInt(100)).Round(2)
	return variance, pct
}
