package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
)

// ErrInvalidFilter is returned for an unknown filter or sort value.
var ErrInvalidFilter = errors.New("invalid filter")

// Risk type filters.
const (
	RiskTypeAll       = "all"
	RiskTypeStockout  = "stockout"
	RiskTypeOverstock = "overstock"
	RiskTypeCritical  = "critical"
)

// Sort keys.
const (
	SortOverall   = "overall"
	SortStockout  = "stockout"
	SortOverstock = "overstock"
	SortDays      = "days"
	SortQuantity  = "quantity"
)

// Availability filters.
const (
	AvailabilityFull    = "full"
	AvailabilityPartial = "partial"
)

// RiskTypeMinScore is the score at which a position counts as a stockout or
// overstock risk for the risk type filter.
const RiskTypeMinScore = 50

// AllocationFilters narrows allocation recommendations.
type AllocationFilters struct {
	Search       string              `json:"search,omitempty"`
	PriorityTier domain.PriorityTier `json:"priorityTier,omitempty"`
	Availability string              `json:"availability,omitempty"`
	Expr         string              `json:"expr,omitempty"`
}

func (f AllocationFilters) validate() error {
	switch f.PriorityTier {
	case "", domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
	default:
		return fmt.Errorf("%w: priority tier %q", ErrInvalidFilter, f.PriorityTier)
	}
	switch f.Availability {
	case "", AvailabilityFull, AvailabilityPartial:
	default:
		return fmt.Errorf("%w: availability %q", ErrInvalidFilter, f.Availability)
	}
	return nil
}

func (f AllocationFilters) match(r domain.AllocationRecommendation) bool {
	if f.PriorityTier != "" && r.PriorityTier != f.PriorityTier {
		return false
	}
	switch f.Availability {
	case AvailabilityFull:
		if r.Status != domain.AllocationFull {
			return false
		}
	case AvailabilityPartial:
		if r.Status != domain.AllocationPartial {
			return false
		}
	}
	return contains(f.Search, r.SKU, r.ProductName, r.CustomerName, r.OrderID)
}

// RiskFilters narrows and orders risk scores.
type RiskFilters struct {
	Search   string `json:"search,omitempty"`
	RiskType string `json:"riskType,omitempty"`
	Sort     string `json:"sort,omitempty"`
	Expr     string `json:"expr,omitempty"`
}

func (f RiskFilters) validate() error {
	switch f.RiskType {
	case "", RiskTypeAll, RiskTypeStockout, RiskTypeOverstock, RiskTypeCritical:
	default:
		return fmt.Errorf("%w: risk type %q", ErrInvalidFilter, f.RiskType)
	}
	switch f.Sort {
	case "", SortOverall, SortStockout, SortOverstock, SortDays:
	default:
		return fmt.Errorf("%w: sort %q", ErrInvalidFilter, f.Sort)
	}
	return nil
}

func (f RiskFilters) match(r domain.RiskScore) bool {
	switch f.RiskType {
	case RiskTypeStockout:
		if r.StockoutScore < RiskTypeMinScore {
			return false
		}
	case RiskTypeOverstock:
		if r.OverstockScore < RiskTypeMinScore {
			return false
		}
	case RiskTypeCritical:
		if r.Level != domain.RiskCritical {
			return false
		}
	}
	return contains(f.Search, r.SKU, r.ProductName, r.WarehouseName)
}

// ReorderFilters narrows and orders reorder suggestions.
type ReorderFilters struct {
	Search    string `json:"search,omitempty"`
	Warehouse string `json:"warehouse,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Expr      string `json:"expr,omitempty"`
}

func (f ReorderFilters) validate() error {
	switch f.Sort {
	case "", SortQuantity, SortDays:
		return nil
	default:
		return fmt.Errorf("%w: sort %q", ErrInvalidFilter, f.Sort)
	}
}

func (f ReorderFilters) match(s domain.ReorderSuggestion) bool {
	return inWarehouse(f.Warehouse, s.PositionRef) &&
		contains(f.Search, s.SKU, s.ProductName, s.WarehouseName)
}

// ChannelFilters narrows channel splits.
type ChannelFilters struct {
	Search    string         `json:"search,omitempty"`
	Channel   domain.Channel `json:"channel,omitempty"`
	Warehouse string         `json:"warehouse,omitempty"`
	Expr      string         `json:"expr,omitempty"`
}

func (f ChannelFilters) validate() error {
	if f.Channel == "" {
		return nil
	}
	for _, ch := range domain.Channels() {
		if ch == f.Channel {
			return nil
		}
	}
	return fmt.Errorf("%w: channel %q", ErrInvalidFilter, f.Channel)
}

func (f ChannelFilters) match(s domain.ChannelSplit) bool {
	if f.Channel != "" && !s.Channel(f.Channel).NeedsReplenishment {
		return false
	}
	return inWarehouse(f.Warehouse, s.PositionRef) &&
		contains(f.Search, s.SKU, s.ProductName, s.WarehouseName)
}

// contains reports whether search is empty or a case-insensitive substring of
// any field.
func contains(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// inWarehouse matches a warehouse filter against the position's warehouse ID
// or name.
func inWarehouse(warehouse string, ref domain.PositionRef) bool {
	warehouse = strings.TrimSpace(warehouse)
	if warehouse == "" {
		return true
	}
	return ref.WarehouseID == warehouse || strings.EqualFold(ref.WarehouseName, warehouse)
}
