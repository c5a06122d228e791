package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/config"
	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

// ReceiptProcessor runs the goods-received-voucher state machine:
// pending → confirmed | cancelled, both terminal. Only confirmation touches
// the ledger, exactly once.
type ReceiptProcessor struct {
	inv    *store.Inventory
	ledger *ledger.Service
	logger *logrus.Logger

	// serializes state transitions so confirm cannot race itself
	mu sync.Mutex
}

func NewReceiptProcessor(inv *store.Inventory, led *ledger.Service, logger *logrus.Logger) *ReceiptProcessor {
	return &ReceiptProcessor{inv: inv, ledger: led, logger: logger}
}

func (p *ReceiptProcessor) CreateGrv(ctx context.Context, input *models.NewGrv) (*models.GoodsReceivedVoucher, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := p.validateLineItems(ctx, input.Items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	grv := models.GoodsReceivedVoucher{
		ID:        uuid.NewString(),
		Date:      input.Date,
		Supplier:  input.Supplier,
		Items:     mapGrvItems(input.Items),
		Status:    models.GrvStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if grv.Date.IsZero() {
		grv.Date = now
	}
	grv.ApplyFinancials(input)

	_, err := p.inv.Grvs.Mutate(ctx, func(records []models.GoodsReceivedVoucher) ([]models.GoodsReceivedVoucher, error) {
		maxNo := 0
		for _, existing := range records {
			if existing.GrvNumber > maxNo {
				maxNo = existing.GrvNumber
			}
		}
		grv.GrvNumber = maxNo + 1
		return append(records, grv), nil
	})
	if err != nil {
		return nil, err
	}
	return &grv, nil
}

// UpdateGrv replaces a pending GRV's lines and financials. Confirmed and
// cancelled GRVs are immutable.
func (p *ReceiptProcessor) UpdateGrv(ctx context.Context, id string, input *models.NewGrv) (*models.GoodsReceivedVoucher, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := p.validateLineItems(ctx, input.Items); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var updated models.GoodsReceivedVoucher
	found := false
	_, err := p.inv.Grvs.Mutate(ctx, func(records []models.GoodsReceivedVoucher) ([]models.GoodsReceivedVoucher, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			found = true
			if records[i].Status != models.GrvStatusPending {
				return nil, models.NewValidationError("grv %s is %s and cannot be edited", id, records[i].Status)
			}
			records[i].Supplier = input.Supplier
			if !input.Date.IsZero() {
				records[i].Date = input.Date
			}
			records[i].Items = mapGrvItems(input.Items)
			records[i].ApplyFinancials(input)
			records[i].UpdatedAt = time.Now().UTC()
			updated = records[i]
			return records, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &models.NotFoundError{Resource: "grv", Id: id}
	}
	return &updated, nil
}

// ConfirmGrv transitions a pending GRV to confirmed and, as one logical
// operation, receives its lines into the ledger at weighted-average cost.
// If the receive fails the GRV stays pending for retry. Confirming an
// already-confirmed GRV is a no-op: stock is never received twice.
func (p *ReceiptProcessor) ConfirmGrv(ctx context.Context, id string) (*models.GoodsReceivedVoucher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	grv, err := p.getGrv(ctx, id)
	if err != nil {
		return nil, err
	}
	switch grv.Status {
	case models.GrvStatusConfirmed:
		return grv, nil
	case models.GrvStatusCancelled:
		return nil, models.NewValidationError("grv %s is cancelled and cannot be confirmed", id)
	}

	lines := make([]ledger.ReceiveLine, 0, len(grv.Items))
	for _, it := range grv.Items {
		lines = append(lines, ledger.ReceiveLine{ItemId: it.ItemId, Qty: it.Qty, UnitCost: it.UnitCost})
	}
	result, err := p.ledger.Receive(ctx, lines, models.CostModeWeightedAverage)
	if err != nil {
		config.LogError(p.logger, "grv.go", "ConfirmGrv", "ledger.Receive", id, err)
		return nil, err
	}
	if len(result.Skipped) > 0 {
		// line items validated at create time; a skip here means an item was
		// deleted since
		config.LogError(p.logger, "grv.go", "ConfirmGrv", "skipped lines", result.Skipped,
			models.NewValidationError("grv %s had skipped receive lines", id))
	}

	var confirmed models.GoodsReceivedVoucher
	_, err = p.inv.Grvs.Mutate(ctx, func(records []models.GoodsReceivedVoucher) ([]models.GoodsReceivedVoucher, error) {
		for i := range records {
			if records[i].ID == id {
				records[i].Status = models.GrvStatusConfirmed
				records[i].UpdatedAt = time.Now().UTC()
				confirmed = records[i]
				return records, nil
			}
		}
		return nil, &models.NotFoundError{Resource: "grv", Id: id}
	})
	if err != nil {
		config.LogError(p.logger, "grv.go", "ConfirmGrv", "status save after receive", id, err)
		return nil, err
	}
	return &confirmed, nil
}

// CancelGrv terminates a pending GRV with no ledger effect. Cancelling a
// confirmed GRV is rejected; cancelling a cancelled one is a no-op.
func (p *ReceiptProcessor) CancelGrv(ctx context.Context, id string) (*models.GoodsReceivedVoucher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cancelled models.GoodsReceivedVoucher
	found := false
	_, err := p.inv.Grvs.Mutate(ctx, func(records []models.GoodsReceivedVoucher) ([]models.GoodsReceivedVoucher, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			found = true
			switch records[i].Status {
			case models.GrvStatusConfirmed:
				return nil, models.NewValidationError("grv %s is confirmed and cannot be cancelled", id)
			case models.GrvStatusCancelled:
				cancelled = records[i]
				return nil, nil
			}
			records[i].Status = models.GrvStatusCancelled
			records[i].UpdatedAt = time.Now().UTC()
			cancelled = records[i]
			return records, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &models.NotFoundError{Resource: "grv", Id: id}
	}
	return &cancelled, nil
}

// DeleteGrv removes a pending GRV. Terminal GRVs are part of the audit
// trail and stay.
func (p *ReceiptProcessor) DeleteGrv(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	found := false
	_, err := p.inv.Grvs.Mutate(ctx, func(records []models.GoodsReceivedVoucher) ([]models.GoodsReceivedVoucher, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			found = true
			if records[i].Status != models.GrvStatusPending {
				return nil, models.NewValidationError("grv %s is %s and cannot be deleted", id, records[i].Status)
			}
			return append(records[:i], records[i+1:]...), nil
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return &models.NotFoundError{Resource: "grv", Id: id}
	}
	return nil
}

func (p *ReceiptProcessor) GetGrv(ctx context.Context, id string) (*models.GoodsReceivedVoucher, error) {
	return p.getGrv(ctx, id)
}

func (p *ReceiptProcessor) ListGrvs(ctx context.Context) ([]models.GoodsReceivedVoucher, error) {
	records, _, err := p.inv.Grvs.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.GoodsReceivedVoucher, len(records))
	copy(out, records)
	return out, nil
}

func (p *ReceiptProcessor) getGrv(ctx context.Context, id string) (*models.GoodsReceivedVoucher, error) {
	records, _, err := p.inv.Grvs.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			grv := records[i]
			return &grv, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "grv", Id: id}
}

func (p *ReceiptProcessor) validateLineItems(ctx context.Context, items []models.NewGrvItem) error {
	snapshot, err := p.ledger.SnapshotMap(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, ok := snapshot[it.ItemId]; !ok {
			return models.NewValidationError("unknown stock item %s", it.ItemId)
		}
	}
	return nil
}

func mapGrvItems(items []models.NewGrvItem) []models.GrvItem {
	out := make([]models.GrvItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.GrvItem{ItemId: it.ItemId, Qty: it.Qty, UnitCost: it.UnitCost})
	}
	return out
}
