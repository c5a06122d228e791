package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalePrice is the POS pricing collaborator's record. The recipe resolver
// pushes CostPrice one-way by shared Code; selling price stays POS-owned.
type SalePrice struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
