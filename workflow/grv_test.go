package workflow

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

func TestGrvConfirmReceivesStock(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	rice := e.mustCreateItem(t, "RICE", models.UnitTypeKilogram, 100, 5)

	grv, err := e.receipts.CreateGrv(ctx, &models.NewGrv{
		Supplier: "Golden Valley",
		Items: []models.NewGrvItem{
			{ItemId: rice.ID, Qty: decimal.NewFromInt(50), UnitCost: decimal.NewFromInt(7)},
		},
	})
	if err != nil {
		t.Fatalf("create grv: %v", err)
	}
	if grv.Status != models.GrvStatusPending {
		t.Fatalf("expected pending, got %s", grv.Status)
	}
	if grv.SubTotal.StringFixed(2) != "350.00" {
		t.Fatalf("expected subtotal 350.00, got %s", grv.SubTotal)
	}

	// no stock movement before confirmation
	if e.stockOf(t, rice.ID).String() != "100" {
		t.Fatal("pending grv must not touch the ledger")
	}

	confirmed, err := e.receipts.ConfirmGrv(ctx, grv.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != models.GrvStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	got, _ := e.ledger.GetStockItem(ctx, rice.ID)
	if got.CurrentStock.String() != "150" {
		t.Fatalf("expected 150 on hand, got %s", got.CurrentStock)
	}
	if got.CurrentCost.StringFixed(2) != "5.67" {
		t.Fatalf("expected weighted average 5.67, got %s", got.CurrentCost)
	}
}

func TestGrvConfirmIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	rice := e.mustCreateItem(t, "RICE", models.UnitTypeKilogram, 100, 5)

	grv, err := e.receipts.CreateGrv(ctx, &models.NewGrv{
		Supplier: "Golden Valley",
		Items: []models.NewGrvItem{
			{ItemId: rice.ID, Qty: decimal.NewFromInt(50), UnitCost: decimal.NewFromInt(7)},
		},
	})
	if err != nil {
		t.Fatalf("create grv: %v", err)
	}

	if _, err := e.receipts.ConfirmGrv(ctx, grv.ID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	again, err := e.receipts.ConfirmGrv(ctx, grv.ID)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if again.Status != models.GrvStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", again.Status)
	}

	// stock received exactly once
	if e.stockOf(t, rice.ID).String() != "150" {
		t.Fatalf("expected 150 on hand after double confirm, got %s", e.stockOf(t, rice.ID))
	}
}

func TestGrvCancelAfterConfirmRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	rice := e.mustCreateItem(t, "RICE", models.UnitTypeKilogram, 0, 0)

	grv, _ := e.receipts.CreateGrv(ctx, &models.NewGrv{
		Supplier: "Golden Valley",
		Items: []models.NewGrvItem{
			{ItemId: rice.ID, Qty: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(2)},
		},
	})
	if _, err := e.receipts.ConfirmGrv(ctx, grv.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := e.receipts.CancelGrv(ctx, grv.ID); err == nil {
		t.Fatal("expected cancel after confirm to be rejected")
	}
}

func TestGrvCancelPendingLeavesLedgerAlone(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	rice := e.mustCreateItem(t, "RICE", models.UnitTypeKilogram, 100, 5)

	grv, _ := e.receipts.CreateGrv(ctx, &models.NewGrv{
		Supplier: "Golden Valley",
		Items: []models.NewGrvItem{
			{ItemId: rice.ID, Qty: decimal.NewFromInt(50), UnitCost: decimal.NewFromInt(7)},
		},
	})
	cancelled, err := e.receipts.CancelGrv(ctx, grv.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.GrvStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if e.stockOf(t, rice.ID).String() != "100" {
		t.Fatal("cancelled grv must not touch the ledger")
	}

	// confirming a cancelled grv is rejected
	if _, err := e.receipts.ConfirmGrv(ctx, grv.ID); err == nil {
		t.Fatal("expected confirm after cancel to be rejected")
	}
}

func TestGrvUpdateOnlyWhilePending(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	rice := e.mustCreateItem(t, "RICE", models.UnitTypeKilogram, 0, 0)

	input := &models.NewGrv{
		Supplier: "Golden Valley",
		Items: []models.NewGrvItem{
			{ItemId: rice.ID, Qty: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(2)},
		},
	}
	grv, _ := e.receipts.CreateGrv(ctx, input)

	input.Supplier = "Other Mill"
	updated, err := e.receipts.UpdateGrv(ctx, grv.ID, input)
	if err != nil {
		t.Fatalf("update pending: %v", err)
	}
	if updated.Supplier != "Other Mill" {
		t.Fatalf("expected supplier updated, got %s", updated.Supplier)
	}

	if _, err := e.receipts.ConfirmGrv(ctx, grv.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := e.receipts.UpdateGrv(ctx, grv.ID, input); err == nil {
		t.Fatal("expected update after confirm to be rejected")
	}
	if err := e.receipts.DeleteGrv(ctx, grv.ID); err == nil {
		t.Fatal("expected delete after confirm to be rejected")
	}
}

func TestGrvNumbersAreSequential(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	rice := e.mustCreateItem(t, "RICE", models.UnitTypeKilogram, 0, 0)

	input := &models.NewGrv{
		Supplier: "Golden Valley",
		Items: []models.NewGrvItem{
			{ItemId: rice.ID, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(1)},
		},
	}
	first, err := e.receipts.CreateGrv(ctx, input)
	if err != nil {
		t.Fatalf("first grv: %v", err)
	}
	second, err := e.receipts.CreateGrv(ctx, input)
	if err != nil {
		t.Fatalf("second grv: %v", err)
	}
	if second.GrvNumber != first.GrvNumber+1 {
		t.Fatalf("expected sequential numbers, got %d then %d", first.GrvNumber, second.GrvNumber)
	}
}

func TestGrvCreateRejectsUnknownItem(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.receipts.CreateGrv(context.Background(), &models.NewGrv{
		Supplier: "Golden Valley",
		Items: []models.NewGrvItem{
			{ItemId: "ghost", Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(1)},
		},
	})
	if err == nil {
		t.Fatal("expected unknown item to be rejected")
	}
}
