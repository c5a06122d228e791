package utils

import (
	"github.com/shopspring/decimal"
)

var (
	// QtyEpsilon tolerates rounding noise when comparing on-hand quantities.
	// Quantities are stored to 4 decimal places.
	QtyEpsilon = decimal.New(1, -4)

	// CostPushEpsilon is the minimum cost delta worth pushing to a sale-price
	// record. Anything below is a redundant write.
	CostPushEpsilon = decimal.NewFromFloat(0.005)
)

// RoundMoney rounds a cost/value to 2 decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundQty rounds a quantity to 4 decimal places.
func RoundQty(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

// WeightedAverageCost blends an existing stock position with a received line.
// newCost = (onHand*cost + inQty*inCost) / (onHand + inQty), rounded to money.
// Returns inCost when the combined quantity is not positive.
func WeightedAverageCost(onHand, cost, inQty, inCost decimal.Decimal) decimal.Decimal {
	sum := onHand.Add(inQty)
	if sum.LessThanOrEqual(decimal.Zero) {
		return RoundMoney(inCost)
	}
	num := onHand.Mul(cost).Add(inQty.Mul(inCost))
	return RoundMoney(num.Div(sum))
}

// QtyEqual reports whether two quantities are equal within QtyEpsilon.
func QtyEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(QtyEpsilon)
}

// QtyCovers reports whether onHand is enough to satisfy required, within
// QtyEpsilon.
func QtyCovers(onHand, required decimal.Decimal) bool {
	return required.LessThanOrEqual(onHand.Add(QtyEpsilon))
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]bool, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
