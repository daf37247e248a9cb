// Package risk scores inventory positions for stockout and overstock risk.
package risk

import (
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/demand"
)

// DeadStockMinQuantity is the stock level above which a position with no
// trailing demand is flagged as dead stock.
const DeadStockMinQuantity = 100

// Score assesses one position against its product's 30-day demand estimate.
func Score(pos domain.InventoryPosition, w domain.Warehouse, est demand.Estimate) domain.RiskScore {
	current := pos.Current()
	maxQty := pos.MaxQuantity()

	stockout := Stockout(current, pos.ReorderPoint, pos.SafetyStock, est.AvgDaily)
	overstock := Overstock(current, maxQty, est.AvgDaily, est.TotalQuantity)

	return domain.RiskScore{
		PositionRef:     domain.NewPositionRef(pos, w),
		CurrentQuantity: current,
		MaxQuantity:     maxQty,
		AvgDailyDemand:  est.AvgDaily,
		DemandStdDev:    est.StdDevDaily,
		DaysOfStock:     DaysOfStock(current, est.AvgDaily),
		StockoutScore:   stockout,
		OverstockScore:  overstock,
		OverallScore:    max(stockout, overstock),
		Level:           Classify(stockout, overstock),
	}
}

// DaysOfStock returns current cover in days, or nil when there is no demand signal.
func DaysOfStock(current int, avgDaily float64) *float64 {
	if avgDaily <= 0 {
		return nil
	}
	d := float64(current) / avgDaily
	return &d
}

// Stockout returns the stockout risk in [0, 100]. The first matching rule wins.
func Stockout(current, reorderPoint, safetyStock int, avgDaily float64) int {
	switch {
	case current <= 0:
		return 100
	case current < safetyStock:
		return 90
	case current < reorderPoint:
		return 70
	case avgDaily <= 0:
		return 0
	}

	days := float64(current) / avgDaily
	switch {
	case days < 7:
		return 60
	case days < 14:
		return 40
	case days < 30:
		return 20
	default:
		return 0
	}
}

// Overstock returns the overstock risk in [0, 100]. demand30 is the total
// quantity ordered over the trailing 30 days.
func Overstock(current, maxQty int, avgDaily float64, demand30 int) int {
	switch {
	case float64(current) > 1.5*float64(maxQty):
		return 90
	case current > maxQty:
		return 60
	}

	if avgDaily > 0 {
		days := float64(current) / avgDaily
		switch {
		case days > 180:
			return 70
		case days > 120:
			return 50
		case days > 90:
			return 30
		default:
			return 0
		}
	}

	if current > DeadStockMinQuantity && demand30 == 0 {
		return 80
	}
	return 0
}

// Classify derives the risk level from the two scores.
func Classify(stockout, overstock int) domain.RiskLevel {
	switch {
	case stockout >= 70:
		return domain.RiskCritical
	case stockout >= 50:
		return domain.RiskHigh
	case overstock >= 70:
		return domain.RiskOverstock
	case stockout >= 30 || overstock >= 50:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
