// Package reorder computes stocking bounds and reorder quantities.
package reorder

import (
	"math"

	"github.com/opensource-finance/heron/internal/domain"
)

// SafetyStockDays spreads safety stock into an approximate daily depletion
// rate for the days-until-reorder estimate.
const SafetyStockDays = 30

// Suggest computes the reorder suggestion for one position.
func Suggest(pos domain.InventoryPosition, w domain.Warehouse) domain.ReorderSuggestion {
	current := pos.Current()
	rp := max(pos.ReorderPoint, 0)
	ss := max(pos.SafetyStock, 0)
	needs := current <= rp

	return domain.ReorderSuggestion{
		PositionRef:       domain.NewPositionRef(pos, w),
		CurrentQuantity:   current,
		ReorderPoint:      rp,
		SafetyStock:       ss,
		MinQuantity:       pos.MinQuantity(),
		MaxQuantity:       pos.MaxQuantity(),
		SuggestedQuantity: Quantity(current, rp, ss),
		NeedsReorder:      needs,
		DaysUntilReorder:  DaysUntilReorder(current, rp, ss),
	}
}

// Quantity returns the suggested order quantity: the gap to reorder point
// plus safety stock, at least one safety stock when below the reorder point,
// and never negative.
func Quantity(current, reorderPoint, safetyStock int) int {
	floor := 0
	if current < reorderPoint {
		floor = safetyStock
	}
	return max(reorderPoint+safetyStock-current, floor, 0)
}

// DaysUntilReorder approximates the days until current stock reaches the
// reorder point, depleting at safetyStock/30 units per day (at least one).
func DaysUntilReorder(current, reorderPoint, safetyStock int) int {
	if current <= reorderPoint {
		return 0
	}
	rate := max(float64(safetyStock)/SafetyStockDays, 1)
	return int(math.Floor(float64(current-reorderPoint) / rate))
}
