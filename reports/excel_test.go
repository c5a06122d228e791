package reports

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
)

func newTestBuilder(t *testing.T) (*Builder, *ledger.Service, *store.Inventory) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	inv := store.NewInventory(store.NewMemoryStore(), logger)
	led := ledger.New(inv, logger)
	return NewBuilder(inv, led), led, inv
}

func TestWriteValuation(t *testing.T) {
	b, led, _ := newTestBuilder(t)
	ctx := context.Background()

	_, err := led.CreateStockItem(ctx, &models.NewStockItem{
		Code:         "RICE",
		Name:         "Basmati Rice",
		UnitType:     models.UnitTypeKilogram,
		OpeningStock: decimal.NewFromInt(20),
		OpeningCost:  decimal.NewFromFloat(3.50),
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	var buf bytes.Buffer
	if err := b.WriteValuation(ctx, &buf); err != nil {
		t.Fatalf("write valuation: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	code, err := f.GetCellValue("Valuation", "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if code != "RICE" {
		t.Fatalf("expected first row code RICE, got %q", code)
	}
	value, err := f.GetCellValue("Valuation", "G2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if value != "70" {
		t.Fatalf("expected extended value 70, got %q", value)
	}
}

func TestWriteStockTakeVariance(t *testing.T) {
	b, _, inv := newTestBuilder(t)
	ctx := context.Background()

	session := models.StockTakeSession{
		ID:   "take-1",
		Date: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Variances: []models.StockTakeVariance{
			{
				ItemId:        "rice",
				Code:          "RICE",
				Name:          "Basmati Rice",
				SystemQty:     decimal.NewFromInt(150),
				PhysicalQty:   decimal.NewFromInt(90),
				VarianceQty:   decimal.NewFromInt(-60),
				VarianceValue: decimal.NewFromFloat(-340.20),
			},
		},
		CreatedAt: time.Now().UTC(),
	}
	_, err := inv.StockTakes.Mutate(ctx, func(records []models.StockTakeSession) ([]models.StockTakeSession, error) {
		return append(records, session), nil
	})
	if err != nil {
		t.Fatalf("persist session: %v", err)
	}

	var buf bytes.Buffer
	if err := b.WriteStockTakeVariance(ctx, &buf); err != nil {
		t.Fatalf("write variance workbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheet := "Take 2026-08-30"
	code, err := f.GetCellValue(sheet, "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if code != "RICE" {
		t.Fatalf("expected counted item RICE, got %q", code)
	}
	variance, err := f.GetCellValue(sheet, "E2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if variance != "-60" {
		t.Fatalf("expected variance qty -60, got %q", variance)
	}
}
