// Package warehouse ranks candidate warehouses for a demand line.
package warehouse

import (
	"sort"

	"github.com/opensource-finance/heron/internal/domain"
)

// Scoring constants.
const (
	BaseScore         = 0.5
	MaxAvailability   = 0.3
	CountryMatchBonus = 0.1
	CityMatchBonus    = 0.1
)

// Demand is the line being sourced.
type Demand struct {
	Requested int
	Location  domain.Geography
}

// Supply is one warehouse's available quantity of the product.
type Supply struct {
	Warehouse domain.Warehouse
	Available int
}

// Score returns the ranking score of a supply against a demand. Scores sit
// roughly in [0.5, 1.0]; the bound is not enforced.
func Score(d Demand, s Supply) float64 {
	score := BaseScore
	if d.Requested > 0 {
		ratio := float64(s.Available) / float64(d.Requested)
		score += min(ratio/2, MaxAvailability)
	}
	if s.Warehouse.Location.SameCountry(d.Location) {
		score += CountryMatchBonus
		if s.Warehouse.Location.SameCity(d.Location) {
			score += CityMatchBonus
		}
	}
	return score
}

// Rank scores every supply with stock and returns candidates best first.
// Supplies with no available quantity are dropped before scoring. Equal scores
// keep input order.
func Rank(d Demand, supplies []Supply) []domain.WarehouseCandidate {
	if d.Requested <= 0 {
		return nil
	}

	candidates := make([]domain.WarehouseCandidate, 0, len(supplies))
	for _, s := range supplies {
		if s.Available <= 0 {
			continue
		}
		candidates = append(candidates, domain.WarehouseCandidate{
			WarehouseID:         s.Warehouse.ID,
			WarehouseName:       s.Warehouse.Name,
			Available:           s.Available,
			Score:               Score(d, s),
			RecommendedQuantity: min(s.Available, d.Requested),
			SameCountry:         s.Warehouse.Location.SameCountry(d.Location),
			SameCity:            s.Warehouse.Location.SameCity(d.Location),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}
