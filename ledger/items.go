package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

func (s *Service) CreateStockItem(ctx context.Context, input *models.NewStockItem) (*models.StockItem, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	item := models.StockItem{
		ID:           uuid.NewString(),
		Code:         strings.TrimSpace(input.Code),
		Name:         strings.TrimSpace(input.Name),
		UnitType:     input.UnitType,
		Department:   input.Department,
		CurrentStock: utils.RoundQty(input.OpeningStock),
		CurrentCost:  utils.RoundMoney(input.OpeningCost),
		ReorderLevel: input.ReorderLevel,
		SupplierId:   input.SupplierId,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	item.ObserveCost(item.CurrentCost)

	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		for _, existing := range records {
			if existing.Code == item.Code {
				return nil, models.NewValidationError("item code %s already exists", item.Code)
			}
		}
		return append(records, item), nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(EventItemCreated, item)
	return &item, nil
}

type StockItemUpdate struct {
	Name         *string          `json:"name"`
	Department   *string          `json:"department"`
	ReorderLevel *decimal.Decimal `json:"reorder_level"`
	SupplierId   *string          `json:"supplier_id"`
}

func (s *Service) UpdateStockItem(ctx context.Context, id string, input *StockItemUpdate) (*models.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated models.StockItem
	_, err := s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		idx, ok := indexItems(records)[id]
		if !ok {
			return nil, &models.NotFoundError{Resource: "stock item", Id: id}
		}
		item := &records[idx]
		if input.Name != nil {
			item.Name = strings.TrimSpace(*input.Name)
		}
		if input.Department != nil {
			item.Department = *input.Department
		}
		if input.ReorderLevel != nil {
			item.ReorderLevel = *input.ReorderLevel
		}
		if input.SupplierId != nil {
			item.SupplierId = *input.SupplierId
		}
		item.Version++
		item.UpdatedAt = time.Now().UTC()
		updated = *item
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(EventItemUpdated, updated)
	return &updated, nil
}

// DeleteStockItem removes an item that no recipe references. Items carrying
// stock history stay deletable only once their recipes are gone; the ledger
// never hard-deletes a referenced item.
func (s *Service) DeleteStockItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipes, _, err := s.inv.Recipes.Load(ctx)
	if err != nil {
		return err
	}
	for _, r := range recipes {
		if r.ParentItem.Id == id {
			return models.NewValidationError("item %s is the parent of recipe %s", id, r.ID)
		}
		for _, ing := range r.Ingredients {
			if ing.IngredientId == id {
				return models.NewValidationError("item %s is an ingredient of recipe %s", id, r.ID)
			}
		}
	}

	var deleted models.StockItem
	_, err = s.inv.StockItems.Mutate(ctx, func(records []models.StockItem) ([]models.StockItem, error) {
		idx, ok := indexItems(records)[id]
		if !ok {
			return nil, &models.NotFoundError{Resource: "stock item", Id: id}
		}
		deleted = records[idx]
		return append(records[:idx], records[idx+1:]...), nil
	})
	if err != nil {
		return err
	}
	s.notify(EventItemDeleted, deleted)
	return nil
}

func (s *Service) GetStockItem(ctx context.Context, id string) (*models.StockItem, error) {
	records, _, err := s.inv.StockItems.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			item := records[i]
			return &item, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "stock item", Id: id}
}

func (s *Service) GetStockItemByCode(ctx context.Context, code string) (*models.StockItem, error) {
	records, _, err := s.inv.StockItems.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Code == code {
			item := records[i]
			return &item, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "stock item", Id: code}
}

// Snapshot returns a point-in-time copy of all items for read-only
// collaborators. Mutating the copy has no effect on the ledger.
func (s *Service) Snapshot(ctx context.Context) ([]models.StockItem, error) {
	records, _, err := s.inv.StockItems.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.StockItem, len(records))
	copy(out, records)
	return out, nil
}

// SnapshotMap is Snapshot keyed by item id; recipe costing reads from it.
func (s *Service) SnapshotMap(ctx context.Context) (map[string]models.StockItem, error) {
	records, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	byId := make(map[string]models.StockItem, len(records))
	for _, item := range records {
		byId[item.ID] = item
	}
	return byId, nil
}
