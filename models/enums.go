package models

type UnitType string

const (
	UnitTypeUnit       UnitType = "unit"
	UnitTypeGram       UnitType = "g"
	UnitTypeKilogram   UnitType = "kg"
	UnitTypeMillilitre UnitType = "ml"
	UnitTypeLitre      UnitType = "l"
	UnitTypePortion    UnitType = "portion"
)

func (t UnitType) Valid() bool {
	switch t {
	case UnitTypeUnit, UnitTypeGram, UnitTypeKilogram, UnitTypeMillilitre, UnitTypeLitre, UnitTypePortion:
		return true
	}
	return false
}

// CostMode selects how a receipt reprices an item.
type CostMode string

const (
	CostModeLastPurchase    CostMode = "lastPurchase"
	CostModeWeightedAverage CostMode = "weightedAverage"
)

func (m CostMode) Valid() bool {
	return m == CostModeLastPurchase || m == CostModeWeightedAverage
}

type GrvStatus string

const (
	GrvStatusPending   GrvStatus = "pending"
	GrvStatusConfirmed GrvStatus = "confirmed"
	GrvStatusCancelled GrvStatus = "cancelled"
)

// Terminal reports whether the status accepts no further transition.
func (s GrvStatus) Terminal() bool {
	return s == GrvStatusConfirmed || s == GrvStatusCancelled
}
