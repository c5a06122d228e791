package store

import (
	"github.com/sirupsen/logrus"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

// Stable envelope keys. Renaming one orphans persisted data.
const (
	KeyStockItems  = "inventory:stock_items"
	KeyRecipes     = "inventory:recipes"
	KeyGrvs        = "inventory:grvs"
	KeyBatches     = "inventory:batches"
	KeyStockIssues = "inventory:stock_issues"
	KeyStockTakes  = "inventory:stock_takes"
	KeySalePrices  = "inventory:sale_prices"
)

const schemaVersion = 1

// Inventory bundles the collections every processor shares. Built once per
// process and passed by handle; there is no package-level instance.
type Inventory struct {
	StockItems  *Collection[models.StockItem]
	Recipes     *Collection[models.Recipe]
	Grvs        *Collection[models.GoodsReceivedVoucher]
	Batches     *Collection[models.BatchProduction]
	StockIssues *Collection[models.StockIssue]
	StockTakes  *Collection[models.StockTakeSession]
	SalePrices  *Collection[models.SalePrice]
}

func NewInventory(s Store, logger *logrus.Logger) *Inventory {
	return &Inventory{
		StockItems:  NewCollection[models.StockItem](s, logger, KeyStockItems, schemaVersion, nil),
		Recipes:     NewCollection[models.Recipe](s, logger, KeyRecipes, schemaVersion, nil),
		Grvs:        NewCollection[models.GoodsReceivedVoucher](s, logger, KeyGrvs, schemaVersion, nil),
		Batches:     NewCollection[models.BatchProduction](s, logger, KeyBatches, schemaVersion, nil),
		StockIssues: NewCollection[models.StockIssue](s, logger, KeyStockIssues, schemaVersion, nil),
		StockTakes:  NewCollection[models.StockTakeSession](s, logger, KeyStockTakes, schemaVersion, nil),
		SalePrices:  NewCollection[models.SalePrice](s, logger, KeySalePrices, schemaVersion, nil),
	}
}
