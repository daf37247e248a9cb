// Package channel splits replenishment need across sales channels.
package channel

import (
	"github.com/opensource-finance/heron/internal/demand"
	"github.com/opensource-finance/heron/internal/domain"
)

// CoverDays is the horizon each channel is replenished for.
const CoverDays = 30

// Split attributes replenishment for one position to each channel, using the
// product's channel-segmented demand from table. Channels are sized
// independently, so TotalQuantity may exceed the position's single reorder
// suggestion.
func Split(pos domain.InventoryPosition, w domain.Warehouse, table *demand.Table) domain.ChannelSplit {
	current := pos.Current()
	rp := max(pos.ReorderPoint, 0)
	ss := max(pos.SafetyStock, 0)

	split := domain.ChannelSplit{
		PositionRef:     domain.NewPositionRef(pos, w),
		CurrentQuantity: current,
		ReorderPoint:    rp,
		SafetyStock:     ss,
		Channels:        make([]domain.ChannelAllocation, 0, 3),
	}

	for _, ch := range domain.Channels() {
		est := table.ProductChannel(pos.Product.ID, ch)
		q := Quantity(est.TotalQuantity, table.WindowDays, current, rp, ss)
		split.Channels = append(split.Channels, domain.ChannelAllocation{
			Channel:            ch,
			AvgDailyDemand:     est.AvgDaily,
			Quantity:           q,
			NeedsReplenishment: q > 0 && current < rp+ss,
		})
		split.TotalQuantity += q
	}

	return split
}

// Quantity sizes one channel: CoverDays of its average daily demand plus
// safety stock. Demand is given as the channel's total over windowDays and
// rounded up in integer arithmetic. The result is floored at safety stock
// when current stock is below the reorder point, else at zero.
func Quantity(total, windowDays, current, reorderPoint, safetyStock int) int {
	floor := 0
	if current < reorderPoint {
		floor = safetyStock
	}
	need := 0
	if total > 0 && windowDays > 0 {
		need = (total*CoverDays + windowDays - 1) / windowDays
	}
	return max(need+safetyStock, floor, 0)
}
