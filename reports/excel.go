package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/gamercodedev-jpg/smartpos-inventory/ledger"
	"github.com/gamercodedev-jpg/smartpos-inventory/models"
	"github.com/gamercodedev-jpg/smartpos-inventory/store"
	"github.com/gamercodedev-jpg/smartpos-inventory/utils"
)

// Builder renders inventory workbooks.
type Builder struct {
	inv    *store.Inventory
	ledger *ledger.Service
}

func NewBuilder(inv *store.Inventory, led *ledger.Service) *Builder {
	return &Builder{inv: inv, ledger: led}
}

// WriteValuation writes the inventory valuation workbook: one row per
// stock item with on-hand quantity, unit cost and extended value.
func (b *Builder) WriteValuation(ctx context.Context, w io.Writer) error {
	items, err := b.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Valuation"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Code")
	f.SetCellValue(sheet, "B1", "Name")
	f.SetCellValue(sheet, "C1", "Department")
	f.SetCellValue(sheet, "D1", "Unit")
	f.SetCellValue(sheet, "E1", "OnHand")
	f.SetCellValue(sheet, "F1", "UnitCost")
	f.SetCellValue(sheet, "G1", "Value")

	total := decimal.Zero
	for i, item := range items {
		row := fmt.Sprint(i + 2)
		value := utils.RoundMoney(item.CurrentStock.Mul(item.CurrentCost))
		total = total.Add(value)
		f.SetCellValue(sheet, "A"+row, item.Code)
		f.SetCellValue(sheet, "B"+row, item.Name)
		f.SetCellValue(sheet, "C"+row, item.Department)
		f.SetCellValue(sheet, "D"+row, string(item.UnitType))
		f.SetCellValue(sheet, "E"+row, item.CurrentStock.InexactFloat64())
		f.SetCellValue(sheet, "F"+row, item.CurrentCost.InexactFloat64())
		f.SetCellValue(sheet, "G"+row, value.InexactFloat64())
	}

	totalRow := fmt.Sprint(len(items) + 3)
	f.SetCellValue(sheet, "F"+totalRow, "Total")
	f.SetCellValue(sheet, "G"+totalRow, total.InexactFloat64())

	return f.Write(w)
}

// WriteStockTakeVariance writes one sheet per stock take session, each
// row a counted item with its system quantity, physical quantity and
// variance value.
func (b *Builder) WriteStockTakeVariance(ctx context.Context, w io.Writer) error {
	sessions, _, err := b.inv.StockTakes.Load(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for n, session := range sessions {
		sheet := fmt.Sprintf("Take %s", session.Date.Format("2006-01-02"))
		if session.Department != "" {
			sheet = sheet + " " + session.Department
		}
		if len(sheet) > 31 {
			// sheet names cap at 31 chars
			sheet = sheet[:31]
		}
		if n == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		writeVarianceSheet(f, sheet, session)
	}

	return f.Write(w)
}

func writeVarianceSheet(f *excelize.File, sheet string, session models.StockTakeSession) {
	f.SetCellValue(sheet, "A1", "Code")
	f.SetCellValue(sheet, "B1", "Name")
	f.SetCellValue(sheet, "C1", "SystemQty")
	f.SetCellValue(sheet, "D1", "PhysicalQty")
	f.SetCellValue(sheet, "E1", "VarianceQty")
	f.SetCellValue(sheet, "F1", "VarianceValue")
	f.SetCellValue(sheet, "G1", "Applied")

	for i, v := range session.Variances {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheet, "A"+row, v.Code)
		f.SetCellValue(sheet, "B"+row, v.Name)
		f.SetCellValue(sheet, "C"+row, v.SystemQty.InexactFloat64())
		f.SetCellValue(sheet, "D"+row, v.PhysicalQty.InexactFloat64())
		f.SetCellValue(sheet, "E"+row, v.VarianceQty.InexactFloat64())
		f.SetCellValue(sheet, "F"+row, v.VarianceValue.InexactFloat64())
		f.SetCellValue(sheet, "G"+row, session.Applied)
	}
}
