package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/config"
	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

// StockTakeProcessor records physical count sessions, computes variance
// against the ledger, and optionally sets the ledger to the counted
// quantities.
type StockTakeProcessor struct {
	inv    *store.Inventory
	ledger *ledger.Service
	logger *logrus.Logger
}

func NewStockTakeProcessor(inv *store.Inventory, led *ledger.Service, logger *logrus.Logger) *StockTakeProcessor {
	return &StockTakeProcessor{inv: inv, ledger: led, logger: logger}
}

// RecordStockTake computes the variance for every counted item against the
// current ledger snapshot. Counts for items outside the session department
// are rejected, not silently dropped. Unless ApplyAdjustments opts out, the
// ledger is updated to the physical quantities after the session is saved.
func (p *StockTakeProcessor) RecordStockTake(ctx context.Context, input *models.NewStockTake) (*models.StockTakeSession, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	items, err := p.ledger.SnapshotMap(ctx)
	if err != nil {
		return nil, err
	}

	variances := make([]models.StockTakeVariance, 0, len(input.Counts))
	for _, count := range input.Counts {
		item, ok := items[count.ItemId]
		if !ok {
			return nil, models.NewValidationError("counted item %s does not exist", count.ItemId)
		}
		if input.Department != "" && item.Department != input.Department {
			return nil, models.NewValidationError("item %s belongs to department %q, not %q", item.Code, item.Department, input.Department)
		}
		varianceQty := count.Qty.Sub(item.CurrentStock)
		variances = append(variances, models.StockTakeVariance{
			ItemId:        item.ID,
			Code:          item.Code,
			Name:          item.Name,
			SystemQty:     item.CurrentStock,
			PhysicalQty:   count.Qty,
			VarianceQty:   varianceQty,
			VarianceValue: utils.RoundMoney(varianceQty.Mul(item.CurrentCost)),
		})
	}

	now := time.Now().UTC()
	session := models.StockTakeSession{
		ID:         uuid.NewString(),
		Date:       input.Date,
		Department: input.Department,
		Variances:  variances,
		CreatedAt:  now,
	}
	if session.Date.IsZero() {
		session.Date = now
	}

	if input.ShouldApply() {
		adjustments := make([]ledger.Adjustment, 0, len(input.Counts))
		for _, count := range input.Counts {
			adjustments = append(adjustments, ledger.Adjustment{ItemId: count.ItemId, NewQty: count.Qty})
		}
		result, err := p.ledger.ApplyStockTakeAdjustments(ctx, adjustments)
		if err != nil {
			config.LogError(p.logger, "workflow", "RecordStockTake", "apply adjustments", input, err)
			return nil, err
		}
		for _, skipped := range result.Skipped {
			if skipped.Reason == "delta below epsilon" {
				continue
			}
			config.LogWarn(p.logger, "workflow", "RecordStockTake", "adjustment skipped",
				"item "+skipped.ItemId+": "+skipped.Reason)
		}
		session.Applied = true
	}

	_, err = p.inv.StockTakes.Mutate(ctx, func(records []models.StockTakeSession) ([]models.StockTakeSession, error) {
		return append(records, session), nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (p *StockTakeProcessor) GetStockTake(ctx context.Context, id string) (*models.StockTakeSession, error) {
	records, _, err := p.inv.StockTakes.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			session := records[i]
			return &session, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "stock take session", Id: id}
}

func (p *StockTakeProcessor) ListStockTakes(ctx context.Context) ([]models.StockTakeSession, error) {
	records, _, err := p.inv.StockTakes.Load(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
