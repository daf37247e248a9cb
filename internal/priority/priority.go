// Package priority maps a customer and its order history to a priority weight.
package priority

import (
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/shopspring/decimal"
)

// Base weights by customer classification.
const (
	BaseWholesale = 0.8
	BaseBusiness  = 0.6
	BaseRetailer  = 0.4
	BaseDefault   = 0.5
)

var (
	valueTier1 = decimal.NewFromInt(100000)
	valueTier2 = decimal.NewFromInt(50000)
	valueTier3 = decimal.NewFromInt(10000)
)

// History is a customer's lifetime aggregate.
type History struct {
	LifetimeValue decimal.Decimal `json:"lifetimeValue"`
	OrderCount    int             `json:"orderCount"`
}

// HistoryFor aggregates the orders belonging to one customer.
func HistoryFor(customerID string, orders []domain.Order) History {
	h := History{LifetimeValue: decimal.Zero}
	for _, o := range orders {
		if o.CustomerID != customerID {
			continue
		}
		h.LifetimeValue = h.LifetimeValue.Add(o.Total())
		h.OrderCount++
	}
	return h
}

// Histories aggregates every customer's history in one pass.
func Histories(orders []domain.Order) map[string]History {
	out := make(map[string]History)
	for _, o := range orders {
		h, ok := out[o.CustomerID]
		if !ok {
			h.LifetimeValue = decimal.Zero
		}
		h.LifetimeValue = h.LifetimeValue.Add(o.Total())
		h.OrderCount++
		out[o.CustomerID] = h
	}
	return out
}

// BaseWeight returns the classification weight of a customer type.
func BaseWeight(t domain.CustomerType) float64 {
	switch t {
	case domain.CustomerWholesale:
		return BaseWholesale
	case domain.CustomerBusiness:
		return BaseBusiness
	case domain.CustomerRetailer:
		return BaseRetailer
	default:
		return BaseDefault
	}
}

// ValueBonus returns the bonus for the highest lifetime value tier reached.
func ValueBonus(value decimal.Decimal) float64 {
	switch {
	case value.GreaterThan(valueTier1):
		return 0.2
	case value.GreaterThan(valueTier2):
		return 0.1
	case value.GreaterThan(valueTier3):
		return 0.05
	default:
		return 0
	}
}

// CountBonus returns the bonus for the highest order count tier reached.
func CountBonus(count int) float64 {
	switch {
	case count > 50:
		return 0.1
	case count > 20:
		return 0.05
	default:
		return 0
	}
}

// FromHistory scores a customer type against an aggregated history.
// The result lies in [0.4, 1.0].
func FromHistory(t domain.CustomerType, h History) float64 {
	return min(BaseWeight(t)+ValueBonus(h.LifetimeValue)+CountBonus(h.OrderCount), 1.0)
}

// Score recomputes a customer's priority from the full order history.
func Score(c domain.Customer, orders []domain.Order) float64 {
	return FromHistory(c.Type, HistoryFor(c.ID, orders))
}
