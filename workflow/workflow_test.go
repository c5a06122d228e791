package workflow

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
)

type testEnv struct {
	inv       *store.Inventory
	ledger    *ledger.Service
	recipes   *RecipeProcessor
	receipts  *ReceiptProcessor
	batches   *BatchProductionProcessor
	transfers *TransferProcessor
	takes     *StockTakeProcessor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	inv := store.NewInventory(store.NewMemoryStore(), logger)
	led := ledger.New(inv, logger)
	return &testEnv{
		inv:       inv,
		ledger:    led,
		recipes:   NewRecipeProcessor(inv, led, logger),
		receipts:  NewReceiptProcessor(inv, led, logger),
		batches:   NewBatchProductionProcessor(inv, led, logger),
		transfers: NewTransferProcessor(inv, led, logger),
		takes:     NewStockTakeProcessor(inv, led, logger),
	}
}

func (e *testEnv) mustCreateItem(t *testing.T, code string, unit models.UnitType, stock, cost float64) *models.StockItem {
	t.Helper()
	item, err := e.ledger.CreateStockItem(context.Background(), &models.NewStockItem{
		Code:         code,
		Name:         "item " + code,
		UnitType:     unit,
		OpeningStock: decimal.NewFromFloat(stock),
		OpeningCost:  decimal.NewFromFloat(cost),
	})
	if err != nil {
		t.Fatalf("create item %s: %v", code, err)
	}
	return item
}

func (e *testEnv) stockOf(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	item, err := e.ledger.GetStockItem(context.Background(), id)
	if err != nil {
		t.Fatalf("get item %s: %v", id, err)
	}
	return item.CurrentStock
}
