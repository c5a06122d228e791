package workflow

import (
	"context"
	"fmt"
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

// TransferProcessor moves stock between items of the same unit type and
// records one StockIssue document per moved line. Issues are an audit
// trail: deleting one never puts the quantity back.
type TransferProcessor struct {
	inv    *store.Inventory
	ledger *ledger.Service
	logger *logrus.Logger

	// serializes issue-number allocation
	mu sync.Mutex
}

func NewTransferProcessor(inv *store.Inventory, led *ledger.Service, logger *logrus.Logger) *TransferProcessor {
	return &TransferProcessor{inv: inv, ledger: led, logger: logger}
}

// CreateStockIssue validates every line up front, moves all quantities in
// one ledger transfer, and only then writes the issue records. A shortfall
// on any line fails the whole request with nothing moved.
func (p *TransferProcessor) CreateStockIssue(ctx context.Context, input *models.NewStockIssue) ([]models.StockIssue, error) {
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
	lines := make([]ledger.TransferLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		from, ok := items[line.FromItemId]
		if !ok {
			return nil, &models.NotFoundError{Resource: "stock item", Id: line.FromItemId}
		}
		to, ok := items[line.ToItemId]
		if !ok {
			return nil, &models.NotFoundError{Resource: "stock item", Id: line.ToItemId}
		}
		if from.UnitType != to.UnitType {
			return nil, &models.UnitMismatchError{
				FromItemId: from.ID,
				ToItemId:   to.ID,
				FromUnit:   from.UnitType,
				ToUnit:     to.UnitType,
			}
		}
		lines = append(lines, ledger.TransferLine{
			FromItemId: line.FromItemId,
			ToItemId:   line.ToItemId,
			Qty:        line.Qty,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result, err := p.ledger.Transfer(ctx, lines)
	if err != nil {
		return nil, err
	}
	if !result.Ok {
		return nil, &models.InsufficientStockError{Lines: result.Insufficient}
	}
	for _, skipped := range result.Skipped {
		// items validated above; a skip here means they vanished mid-flight
		config.LogWarn(p.logger, "workflow", "CreateStockIssue", "line skipped by ledger",
			fmt.Sprintf("item %s: %s", skipped.ItemId, skipped.Reason))
	}

	now := time.Now().UTC()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	issues := make([]models.StockIssue, 0, len(result.Lines))
	_, err = p.inv.StockIssues.Mutate(ctx, func(records []models.StockIssue) ([]models.StockIssue, error) {
		issues = issues[:0]
		nextNo := models.DefaultIssueNo
		for _, rec := range records {
			if rec.IssueNo >= nextNo {
				nextNo = rec.IssueNo + 1
			}
		}
		for _, line := range result.Lines {
			from := items[line.FromItemId]
			to := items[line.ToItemId]
			issue := models.StockIssue{
				ID:      uuid.NewString(),
				IssueNo: nextNo,
				Date:    date,
				From: models.StockIssueRef{
					Id:       from.ID,
					Code:     from.Code,
					Name:     from.Name,
					UnitType: from.UnitType,
				},
				To: models.StockIssueRef{
					Id:       to.ID,
					Code:     to.Code,
					Name:     to.Name,
					UnitType: to.UnitType,
				},
				WasQty:    line.FromBefore,
				IssuedQty: line.Qty,
				NowQty:    line.FromAfter,
				Value:     utils.RoundMoney(line.Qty.Mul(from.CurrentCost)),
				CreatedBy: input.CreatedBy,
				CreatedAt: now,
			}
			issues = append(issues, issue)
			records = append(records, issue)
		}
		return records, nil
	})
	if err != nil {
		// the quantities already moved; the audit record is what failed
		config.LogError(p.logger, "workflow", "CreateStockIssue", "persist issue records", input, err)
		return nil, err
	}
	return issues, nil
}

// DeleteStockIssue removes the audit record only. The transfer it
// documents stays applied.
func (p *TransferProcessor) DeleteStockIssue(ctx context.Context, id string) error {
	found := false
	_, err := p.inv.StockIssues.Mutate(ctx, func(records []models.StockIssue) ([]models.StockIssue, error) {
		found = false
		for i, rec := range records {
			if rec.ID == id {
				found = true
				records = append(records[:i], records[i+1:]...)
				return records, nil
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return &models.NotFoundError{Resource: "stock issue", Id: id}
	}
	config.LogWarn(p.logger, "workflow", "DeleteStockIssue", "issue record removed", "transferred stock not reversed for "+id)
	return nil
}

func (p *TransferProcessor) GetStockIssue(ctx context.Context, id string) (*models.StockIssue, error) {
	records, _, err := p.inv.StockIssues.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			issue := records[i]
			return &issue, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "stock issue", Id: id}
}

func (p *TransferProcessor) ListStockIssues(ctx context.Context) ([]models.StockIssue, error) {
	records, _, err := p.inv.StockIssues.Load(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
