package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

func TestUpsertRecipeComputesCosts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	curry := e.mustCreateItem(t, "CURRY", models.UnitTypePortion, 0, 0)
	chicken := e.mustCreateItem(t, "CHICKEN", models.UnitTypeKilogram, 20, 8)
	oil := e.mustCreateItem(t, "OIL", models.UnitTypeLitre, 10, 10)

	recipe, err := e.recipes.UpsertRecipe(ctx, &models.NewRecipe{
		ParentItemId:   curry.ID,
		OutputQty:      decimal.NewFromInt(10),
		OutputUnitType: models.UnitTypePortion,
		Ingredients: []models.NewRecipeIngredient{
			{IngredientId: chicken.ID, RequiredQty: decimal.NewFromInt(2)},
			{IngredientId: oil.ID, RequiredQty: decimal.NewFromFloat(0.5)},
		},
	})
	if err != nil {
		t.Fatalf("upsert recipe: %v", err)
	}

	// 2×8 + 0.5×10 = 21, per portion 2.10
	if recipe.TotalCost.StringFixed(2) != "21.00" {
		t.Fatalf("expected total cost 21.00, got %s", recipe.TotalCost)
	}
	if recipe.UnitCost.StringFixed(2) != "2.10" {
		t.Fatalf("expected unit cost 2.10, got %s", recipe.UnitCost)
	}
	if recipe.Ingredients[0].Code != "CHICKEN" {
		t.Fatalf("expected ingredient snapshot refreshed, got %+v", recipe.Ingredients[0])
	}
}

func TestUpsertRecipeReplacesByParent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	curry := e.mustCreateItem(t, "CURRY", models.UnitTypePortion, 0, 0)
	chicken := e.mustCreateItem(t, "CHICKEN", models.UnitTypeKilogram, 20, 8)

	input := &models.NewRecipe{
		ParentItemId:   curry.ID,
		OutputQty:      decimal.NewFromInt(10),
		OutputUnitType: models.UnitTypePortion,
		Ingredients: []models.NewRecipeIngredient{
			{IngredientId: chicken.ID, RequiredQty: decimal.NewFromInt(2)},
		},
	}
	first, err := e.recipes.UpsertRecipe(ctx, input)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	input.Ingredients[0].RequiredQty = decimal.NewFromInt(3)
	second, err := e.recipes.UpsertRecipe(ctx, input)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected recipe id preserved across upserts: %s vs %s", first.ID, second.ID)
	}

	list, _ := e.recipes.ListRecipes(ctx)
	if len(list) != 1 {
		t.Fatalf("expected one recipe per parent, got %d", len(list))
	}
}

func TestUpsertRecipeMissingIngredient(t *testing.T) {
	e := newTestEnv(t)
	curry := e.mustCreateItem(t, "CURRY", models.UnitTypePortion, 0, 0)

	_, err := e.recipes.UpsertRecipe(context.Background(), &models.NewRecipe{
		ParentItemId:   curry.ID,
		OutputQty:      decimal.NewFromInt(10),
		OutputUnitType: models.UnitTypePortion,
		Ingredients: []models.NewRecipeIngredient{
			{IngredientId: "ghost", RequiredQty: decimal.NewFromInt(1)},
		},
	})
	var incomplete *models.RecipeIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected recipe incomplete error, got %v", err)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != "ghost" {
		t.Fatalf("expected ghost reported missing, got %v", incomplete.Missing)
	}
}

func TestUpsertRecipePushesCostToSalePrice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	curry := e.mustCreateItem(t, "CURRY", models.UnitTypePortion, 0, 0)
	chicken := e.mustCreateItem(t, "CHICKEN", models.UnitTypeKilogram, 20, 8)

	_, err := e.inv.SalePrices.Mutate(ctx, func(records []models.SalePrice) ([]models.SalePrice, error) {
		return append(records, models.SalePrice{
			Code:         "CURRY",
			Name:         "Chicken Curry",
			SellingPrice: decimal.NewFromInt(12),
			CostPrice:    decimal.Zero,
			UpdatedAt:    time.Now().UTC(),
		}), nil
	})
	if err != nil {
		t.Fatalf("seed sale price: %v", err)
	}

	if _, err := e.recipes.UpsertRecipe(ctx, &models.NewRecipe{
		ParentItemId:   curry.ID,
		OutputQty:      decimal.NewFromInt(10),
		OutputUnitType: models.UnitTypePortion,
		Ingredients: []models.NewRecipeIngredient{
			{IngredientId: chicken.ID, RequiredQty: decimal.NewFromInt(2)},
		},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	prices, _, err := e.inv.SalePrices.Load(ctx)
	if err != nil {
		t.Fatalf("load sale prices: %v", err)
	}
	if prices[0].CostPrice.StringFixed(2) != "1.60" {
		t.Fatalf("expected cost price pushed to 1.60, got %s", prices[0].CostPrice)
	}
	// selling price is never touched
	if prices[0].SellingPrice.String() != "12" {
		t.Fatalf("expected selling price untouched, got %s", prices[0].SellingPrice)
	}
}

func TestDeepDeductScalesIngredients(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	curry := e.mustCreateItem(t, "CURRY", models.UnitTypePortion, 0, 0)
	chicken := e.mustCreateItem(t, "CHICKEN", models.UnitTypeKilogram, 20, 8)
	oil := e.mustCreateItem(t, "OIL", models.UnitTypeLitre, 10, 10)

	if _, err := e.recipes.UpsertRecipe(ctx, &models.NewRecipe{
		ParentItemId:   curry.ID,
		OutputQty:      decimal.NewFromInt(10),
		OutputUnitType: models.UnitTypePortion,
		Ingredients: []models.NewRecipeIngredient{
			{IngredientId: chicken.ID, RequiredQty: decimal.NewFromInt(2)},
			{IngredientId: oil.ID, RequiredQty: decimal.NewFromInt(1)},
		},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// sell 5 portions: half the batch
	result, err := e.recipes.DeepDeduct(ctx, curry.ID, decimal.NewFromInt(5), true)
	if err != nil {
		t.Fatalf("deep deduct: %v", err)
	}
	if !result.Ok {
		t.Fatalf("expected success, got %+v", result.Insufficient)
	}

	if e.stockOf(t, chicken.ID).String() != "19" {
		t.Fatalf("expected chicken 19, got %s", e.stockOf(t, chicken.ID))
	}
	if e.stockOf(t, oil.ID).String() != "9.5" {
		t.Fatalf("expected oil 9.5, got %s", e.stockOf(t, oil.ID))
	}
	// the sold item itself carries no stock
	if !e.stockOf(t, curry.ID).IsZero() {
		t.Fatalf("expected curry untouched at 0, got %s", e.stockOf(t, curry.ID))
	}
}

func TestDeepDeductRecipelessItem(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	cola := e.mustCreateItem(t, "COLA", models.UnitTypeUnit, 24, 1)

	// strict mode refuses
	_, err := e.recipes.DeepDeduct(ctx, cola.ID, decimal.NewFromInt(2), true)
	var incomplete *models.RecipeIncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected recipe incomplete error, got %v", err)
	}

	// non-strict deducts the item itself
	result, err := e.recipes.DeepDeduct(ctx, cola.ID, decimal.NewFromInt(2), false)
	if err != nil {
		t.Fatalf("deep deduct: %v", err)
	}
	if !result.Ok {
		t.Fatalf("expected success, got %+v", result.Insufficient)
	}
	if e.stockOf(t, cola.ID).String() != "22" {
		t.Fatalf("expected cola 22, got %s", e.stockOf(t, cola.ID))
	}
}

func TestDeepDeductInsufficientStock(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	curry := e.mustCreateItem(t, "CURRY", models.UnitTypePortion, 0, 0)
	chicken := e.mustCreateItem(t, "CHICKEN", models.UnitTypeKilogram, 1, 8)

	if _, err := e.recipes.UpsertRecipe(ctx, &models.NewRecipe{
		ParentItemId:   curry.ID,
		OutputQty:      decimal.NewFromInt(10),
		OutputUnitType: models.UnitTypePortion,
		Ingredients: []models.NewRecipeIngredient{
			{IngredientId: chicken.ID, RequiredQty: decimal.NewFromInt(2)},
		},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	_, err := e.recipes.DeepDeduct(ctx, curry.ID, decimal.NewFromInt(10), true)
	var short *models.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}
	if e.stockOf(t, chicken.ID).String() != "1" {
		t.Fatalf("expected chicken untouched at 1, got %s", e.stockOf(t, chicken.ID))
	}
}

func TestDeleteStockItemReferencedByRecipeRefused(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	curry := e.mustCreateItem(t, "CURRY", models.UnitTypePortion, 0, 0)
	chicken := e.mustCreateItem(t, "CHICKEN", models.UnitTypeKilogram, 20, 8)

	if _, err := e.recipes.UpsertRecipe(ctx, &models.NewRecipe{
		ParentItemId:   curry.ID,
		OutputQty:      decimal.NewFromInt(10),
		OutputUnitType: models.UnitTypePortion,
		Ingredients: []models.NewRecipeIngredient{
			{IngredientId: chicken.ID, RequiredQty: decimal.NewFromInt(2)},
		},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := e.ledger.DeleteStockItem(ctx, chicken.ID); err == nil {
		t.Fatal("expected deleting a recipe ingredient to be refused")
	}
	if err := e.ledger.DeleteStockItem(ctx, curry.ID); err == nil {
		t.Fatal("expected deleting a recipe parent to be refused")
	}
}
