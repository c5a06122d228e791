// Package ledger holds the authoritative stock position of every item.
// Every other component mutates stock only through this service. The
// persistence substrate has no transactions; multi-line mutations are made
// all-or-nothing by validating every line before applying any.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

// Service is constructed once per process with an injected store handle; it
// keeps no package-level state.
type Service struct {
	inv    *store.Inventory
	logger *logrus.Logger

	// serializes local mutations: one logical actor at a time, so no reader
	// observes a half-applied multi-line change.
	mu   sync.Mutex
	subs []func(Event)
}

func New(inv *store.Inventory, logger *logrus.Logger) *Service {
	return &Service{inv: inv, logger: logger}
}

// Subscribe registers a post-commit observer. Observers run synchronously
// after the local commit and must not block.
func (s *Service) Subscribe(fn func(Event)) {
	s.subs = append(s.subs, fn)
}

func (s *Service) notify(kind string, payload any) {
	ev := Event{Kind: kind, OccurredAt: time.Now().UTC(), Payload: payload}
	for _, fn := range s.subs {
		fn(ev)
	}
}

type ReceiveLine struct {
	ItemId   string          `json:"item_id"`
	Qty      decimal.Decimal `json:"qty"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// SkippedLine reports a line the ledger declined to apply, so data-entry
// errors surface instead of vanishing.
type SkippedLine struct {
	ItemId string `json:"item_id"`
	Reason string `json:"reason"`
}

type ReceivedLine struct {
	ItemId     string          `json:"item_id"`
	Qty        decimal.Decimal `json:"qty"`
	QtyBefore  decimal.Decimal `json:"qty_before"`
	QtyAfter   decimal.Decimal `json:"qty_after"`
	CostBefore decimal.Decimal `json:"cost_before"`
	CostAfter  decimal.Decimal `json:"cost_after"`
}

type ReceiveResult struct {
	Lines   []ReceivedLine `json:"lines"`
	Skipped []SkippedLine  `json:"skipped"`
}

// Receive credits stock for each valid line and reprices the item per
// costMode. It has no sufficiency requirement and cannot fail on stock;
// invalid lines are reported in Skipped.
func (s *Service) Receive(ctx context.Context, lines []ReceiveLine, costMode models.CostMode) (*ReceiveResult, error) {
	if !costMode.Valid() {
		return nil, models.NewValidationError("invalid cost mode %q", costMode)
	}
	if len(lines) == 0 {
		return nil, models.NewValidationError("receive needs at least one line")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &ReceiveResult{Lines: []ReceivedLine{}, Skipped: []SkippedLine{}}
	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		result.Lines = result.Lines[:0]
		result.Skipped = result.Skipped[:0]
		byId := indexItems(records)
		now := time.Now().UTC()

		applied := false
		for _, line := range lines {
			idx, ok := byId[line.ItemId]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: line.ItemId, Reason: "unknown item"})
				continue
			}
			if !line.Qty.IsPositive() {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: line.ItemId, Reason: "non-positive qty"})
				continue
			}
			item := &records[idx]
			before := ReceivedLine{
				ItemId:     item.ID,
				Qty:        line.Qty,
				QtyBefore:  item.CurrentStock,
				CostBefore: item.CurrentCost,
			}
			newQty := utils.RoundQty(item.CurrentStock.Add(line.Qty))
			var newCost decimal.Decimal
			if costMode == models.CostModeLastPurchase {
				newCost = utils.RoundMoney(line.UnitCost)
			} else {
				newCost = utils.WeightedAverageCost(item.CurrentStock, item.CurrentCost, line.Qty, line.UnitCost)
			}
			item.CurrentStock = newQty
			item.CurrentCost = newCost
			item.ObserveCost(utils.RoundMoney(line.UnitCost))
			item.Version++
			item.UpdatedAt = now

			before.QtyAfter = newQty
			before.CostAfter = newCost
			result.Lines = append(result.Lines, before)
			applied = true
		}
		if !applied {
			return nil, nil
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Lines) > 0 {
		s.notify(EventStockReceived, result)
	}
	return result, nil
}

type DeductMode int

const (
	// DeductCollectAll validates every line and reports all shortfalls.
	DeductCollectAll DeductMode = iota
	// DeductFailFast stops at the first shortfall.
	DeductFailFast
)

type DeductLine struct {
	ItemId string          `json:"item_id"`
	Qty    decimal.Decimal `json:"qty"`
}

type DeductedLine struct {
	ItemId    string          `json:"item_id"`
	Qty       decimal.Decimal `json:"qty"`
	QtyBefore decimal.Decimal `json:"qty_before"`
	QtyAfter  decimal.Decimal `json:"qty_after"`
}

type DeductResult struct {
	Ok           bool                   `json:"ok"`
	Insufficient []models.ShortfallLine `json:"insufficient,omitempty"`
	Lines        []DeductedLine         `json:"lines"`
	Skipped      []SkippedLine          `json:"skipped"`
}

// Deduct debits stock with all-or-nothing semantics: every line is
// validated for sufficiency first, and nothing is applied unless all pass.
// The mode only controls how many shortfalls are reported.
func (s *Service) Deduct(ctx context.Context, lines []DeductLine, mode DeductMode) (*DeductResult, error) {
	if len(lines) == 0 {
		return nil, models.NewValidationError("deduct needs at least one line")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &DeductResult{Lines: []DeductedLine{}, Skipped: []SkippedLine{}}
	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		result.Ok = false
		result.Insufficient = nil
		result.Lines = result.Lines[:0]
		result.Skipped = result.Skipped[:0]
		byId := indexItems(records)

		// pass 1: validate everything, accumulating per-item demand so two
		// lines against the same item cannot each pass alone.
		pending := make(map[string]decimal.Decimal)
		valid := make([]DeductLine, 0, len(lines))
		for _, line := range lines {
			idx, ok := byId[line.ItemId]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: line.ItemId, Reason: "unknown item"})
				continue
			}
			if !line.Qty.IsPositive() {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: line.ItemId, Reason: "non-positive qty"})
				continue
			}
			item := records[idx]
			demand := pending[line.ItemId].Add(line.Qty)
			if !utils.QtyCovers(item.CurrentStock, demand) {
				result.Insufficient = append(result.Insufficient, models.ShortfallLine{
					ItemId:   line.ItemId,
					Required: line.Qty,
					OnHand:   item.CurrentStock.Sub(pending[line.ItemId]),
				})
				if mode == DeductFailFast {
					return nil, nil
				}
				continue
			}
			pending[line.ItemId] = demand
			valid = append(valid, line)
		}
		if len(result.Insufficient) > 0 {
			return nil, nil
		}

		// pass 2: apply all
		now := time.Now().UTC()
		for _, line := range valid {
			item := &records[byId[line.ItemId]]
			before := item.CurrentStock
			item.CurrentStock = utils.RoundQty(item.CurrentStock.Sub(line.Qty))
			if item.CurrentStock.IsNegative() {
				// epsilon slack only; clamp rounding residue
				item.CurrentStock = decimal.Zero
			}
			item.Version++
			item.UpdatedAt = now
			result.Lines = append(result.Lines, DeductedLine{
				ItemId:    item.ID,
				Qty:       line.Qty,
				QtyBefore: before,
				QtyAfter:  item.CurrentStock,
			})
		}
		result.Ok = true
		if len(result.Lines) == 0 {
			return nil, nil
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if result.Ok && len(result.Lines) > 0 {
		s.notify(EventStockDeducted, result)
	}
	return result, nil
}

type TransferLine struct {
	FromItemId string          `json:"from_item_id"`
	ToItemId   string          `json:"to_item_id"`
	Qty        decimal.Decimal `json:"qty"`
}

type TransferredLine struct {
	FromItemId string          `json:"from_item_id"`
	ToItemId   string          `json:"to_item_id"`
	Qty        decimal.Decimal `json:"qty"`
	FromBefore decimal.Decimal `json:"from_before"`
	FromAfter  decimal.Decimal `json:"from_after"`
	ToBefore   decimal.Decimal `json:"to_before"`
	ToAfter    decimal.Decimal `json:"to_after"`
}

type TransferResult struct {
	Ok           bool                   `json:"ok"`
	Insufficient []models.ShortfallLine `json:"insufficient,omitempty"`
	Lines        []TransferredLine      `json:"lines"`
	Skipped      []SkippedLine          `json:"skipped"`
}

// Transfer moves quantity between items. Destination cost is untouched
// (pure quantity move); unit-type compatibility is the caller's check.
func (s *Service) Transfer(ctx context.Context, lines []TransferLine) (*TransferResult, error) {
	if len(lines) == 0 {
		return nil, models.NewValidationError("transfer needs at least one line")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &TransferResult{Lines: []TransferredLine{}, Skipped: []SkippedLine{}}
	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		result.Ok = false
		result.Insufficient = nil
		result.Lines = result.Lines[:0]
		result.Skipped = result.Skipped[:0]
		byId := indexItems(records)

		pending := make(map[string]decimal.Decimal)
		valid := make([]TransferLine, 0, len(lines))
		for _, line := range lines {
			fromIdx, fromOk := byId[line.FromItemId]
			if !fromOk {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: line.FromItemId, Reason: "unknown origin item"})
				continue
			}
			if _, toOk := byId[line.ToItemId]; !toOk {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: line.ToItemId, Reason: "unknown destination item"})
				continue
			}
			if !line.Qty.IsPositive() {
				result.Skipped = append(result.Skipped, SkippedLine{ItemId: line.FromItemId, Reason: "non-positive qty"})
				continue
			}
			from := records[fromIdx]
			demand := pending[line.FromItemId].Add(line.Qty)
			if !utils.QtyCovers(from.CurrentStock, demand) {
				result.Insufficient = append(result.Insufficient, models.ShortfallLine{
					ItemId:   line.FromItemId,
					Required: line.Qty,
					OnHand:   from.CurrentStock.Sub(pending[line.FromItemId]),
				})
				continue
			}
			pending[line.FromItemId] = demand
			valid = append(valid, line)
		}
		if len(result.Insufficient) > 0 {
			return nil, nil
		}

		now := time.Now().UTC()
		for _, line := range valid {
			from := &records[byId[line.FromItemId]]
			to := &records[byId[line.ToItemId]]
			tl := TransferredLine{
				FromItemId: from.ID,
				ToItemId:   to.ID,
				Qty:        line.Qty,
				FromBefore: from.CurrentStock,
				ToBefore:   to.CurrentStock,
			}
			from.CurrentStock = utils.RoundQty(from.CurrentStock.Sub(line.Qty))
			if from.CurrentStock.IsNegative() {
				from.CurrentStock = decimal.Zero
			}
			to.CurrentStock = utils.RoundQty(to.CurrentStock.Add(line.Qty))
			from.Version++
			to.Version++
			from.UpdatedAt = now
			to.UpdatedAt = now
			tl.FromAfter = from.CurrentStock
			tl.ToAfter = to.CurrentStock
			result.Lines = append(result.Lines, tl)
		}
		result.Ok = true
		if len(result.Lines) == 0 {
			return nil, nil
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if result.Ok && len(result.Lines) > 0 {
		s.notify(EventStockTransferred, result)
	}
	return result, nil
}

func indexItems(records []models.StockItem) map[string]int {
	byId := make(map[string]int, len(records))
	for i, item := range records {
		byId[item.ID] = i
	}
	return byId
}
