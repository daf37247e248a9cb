// Package scenario evaluates allocation policy presets against current supply
// and open demand.
package scenario

import (
	"github.com/opensource-finance/heron/internal/domain"
)

// Default targets, in percent.
const (
	DefaultServiceLevelTarget = 95.0
	DefaultMarginTarget       = 30.0
)

// Tier thresholds on the overall score.
const (
	HighTierMin   = 80.0
	MediumTierMin = 60.0
)

// Preset is a named service-vs-margin weighting.
type Preset struct {
	Name          string
	Label         string
	ServiceWeight float64
	MarginWeight  float64
}

// Presets returns the fixed policy presets in evaluation order.
func Presets() []Preset {
	return []Preset{
		{Name: "service_first", Label: "Service level first", ServiceWeight: 0.8, MarginWeight: 0.2},
		{Name: "balanced", Label: "Balanced", ServiceWeight: 0.5, MarginWeight: 0.5},
		{Name: "margin_first", Label: "Margin first", ServiceWeight: 0.2, MarginWeight: 0.8},
	}
}

// Params scopes and parameterises a simulation. Zero targets fall back to the
// defaults; empty filters match everything. WarehouseID limits supply only:
// order lines carry no warehouse, so open demand is always counted across
// every warehouse for the product.
type Params struct {
	ServiceLevelTarget float64 `json:"serviceLevelTarget,omitempty"`
	MarginTarget       float64 `json:"marginTarget,omitempty"`
	ProductID          string  `json:"productId,omitempty"`
	WarehouseID        string  `json:"warehouseId,omitempty"`
}

func (p Params) withDefaults() Params {
	if p.ServiceLevelTarget <= 0 {
		p.ServiceLevelTarget = DefaultServiceLevelTarget
	}
	if p.MarginTarget <= 0 {
		p.MarginTarget = DefaultMarginTarget
	}
	return p
}

// Totals is the supply and open demand in scope.
type Totals struct {
	Supply int
	Demand int
}

// Aggregate sums current stock over positions and remaining quantity over open
// order lines. Demand is scoped by product only; order lines carry no warehouse.
func Aggregate(inventory []domain.InventoryPosition, orders []domain.Order, p Params) Totals {
	var t Totals
	for _, pos := range inventory {
		if p.ProductID != "" && pos.Product.ID != p.ProductID {
			continue
		}
		if p.WarehouseID != "" && pos.WarehouseID != p.WarehouseID {
			continue
		}
		t.Supply += pos.Current()
	}
	for _, o := range domain.OpenOrders(orders) {
		for _, l := range o.Lines {
			if p.ProductID != "" && l.ProductID != p.ProductID {
				continue
			}
			t.Demand += l.RemainingQuantity()
		}
	}
	return t
}

// Evaluate scores one preset against aggregate totals.
func Evaluate(preset Preset, totals Totals, p Params) domain.ScenarioResult {
	p = p.withDefaults()

	fillRate := 100.0
	if totals.Demand > 0 {
		fillRate = min(float64(totals.Supply)/float64(totals.Demand)*100, 100)
	}
	serviceLevel := min(fillRate, p.ServiceLevelTarget)

	marginImpact := p.MarginTarget * 0.95
	if preset.MarginWeight > 0.5 {
		marginImpact = p.MarginTarget * 1.1
	}

	overall := (serviceLevel/100*preset.ServiceWeight + marginImpact/100*preset.MarginWeight) * 100

	return domain.ScenarioResult{
		Name:          preset.Name,
		Label:         preset.Label,
		ServiceWeight: preset.ServiceWeight,
		MarginWeight:  preset.MarginWeight,
		TotalSupply:   totals.Supply,
		TotalDemand:   totals.Demand,
		FillRate:      fillRate,
		ServiceLevel:  serviceLevel,
		MarginImpact:  marginImpact,
		OverallScore:  overall,
		Tier:          Tier(overall),
	}
}

// Recommend flags the highest scoring result; ties go to the earlier preset.
func Recommend(results []domain.ScenarioResult) {
	best := -1
	for i := range results {
		results[i].Recommended = false
		if best < 0 || results[i].OverallScore > results[best].OverallScore {
			best = i
		}
	}
	if best >= 0 {
		results[best].Recommended = true
	}
}

// Simulate evaluates every preset in order and flags the recommended one.
func Simulate(inventory []domain.InventoryPosition, orders []domain.Order, p Params) []domain.ScenarioResult {
	totals := Aggregate(inventory, orders, p)
	presets := Presets()
	results := make([]domain.ScenarioResult, len(presets))
	for i, preset := range presets {
		results[i] = Evaluate(preset, totals, p)
	}
	Recommend(results)
	return results
}

// Tier grades an overall score.
func Tier(score float64) domain.RecommendationTier {
	switch {
	case score >= HighTierMin:
		return domain.TierHigh
	case score >= MediumTierMin:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}
