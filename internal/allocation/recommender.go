// Package allocation joins open order lines to available inventory and ranks
// the resulting allocation opportunities.
package allocation

import (
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/priority"
	"github.com/opensource-finance/heron/internal/warehouse"
)

// Priority score weights.
const (
	WeightCustomer = 0.4
	WeightValue    = 0.3
	WeightAge      = 0.2
	WeightChannel  = 0.1

	// WholesaleBonus is weighted by WeightChannel again when scored, so a
	// wholesale order gains 0.01 overall.
	WholesaleBonus = 0.1

	// ValueCap is the line value at which the value factor saturates.
	ValueCap = 10000.0

	// AgeCapDays is the order age at which the age factor saturates.
	AgeCapDays = 30.0
)

// Tier thresholds on the priority score.
const (
	HighTierMin   = 0.7
	MediumTierMin = 0.4
)

// Item is one order line queued for scoring.
type Item struct {
	Order domain.Order
	Line  domain.OrderLine
}

// Recommender holds the joins needed to score lines of one snapshot.
// It is read-only after construction and safe for concurrent use.
type Recommender struct {
	asOf      time.Time
	orders    []domain.Order
	customers map[string]domain.Customer
	histories map[string]priority.History
	products  map[string]domain.Product
	supply    map[string][]warehouse.Supply
	available map[string]int
}

// NewRecommender indexes a snapshot for line scoring as of asOf.
func NewRecommender(snap *domain.Snapshot, asOf time.Time) *Recommender {
	r := &Recommender{
		asOf:      asOf,
		orders:    snap.Orders,
		customers: snap.CustomerIndex(),
		histories: priority.Histories(snap.Orders),
		products:  snap.ProductIndex(),
		supply:    make(map[string][]warehouse.Supply),
		available: make(map[string]int),
	}

	warehouses := snap.WarehouseIndex()
	for _, pos := range snap.Inventory {
		qty := pos.Current()
		if pos.Product.ID == "" || qty <= 0 {
			continue
		}
		w, ok := warehouses[pos.WarehouseID]
		if !ok {
			w = domain.Warehouse{ID: pos.WarehouseID}
		}
		r.supply[pos.Product.ID] = append(r.supply[pos.Product.ID], warehouse.Supply{Warehouse: w, Available: qty})
		r.available[pos.Product.ID] += qty
	}

	return r
}

// Items returns the lines of every open order, in input order.
func (r *Recommender) Items() []Item {
	var items []Item
	for _, o := range domain.OpenOrders(r.orders) {
		for _, l := range o.Lines {
			items = append(items, Item{Order: o, Line: l})
		}
	}
	return items
}

// Recommend scores one line. It returns false when the line is skipped: the
// customer cannot be resolved, nothing remains to fulfil, or no stock exists.
func (r *Recommender) Recommend(it Item) (domain.AllocationRecommendation, bool) {
	customer, ok := r.customers[it.Order.CustomerID]
	if !ok {
		return domain.AllocationRecommendation{}, false
	}

	requested := it.Line.RemainingQuantity()
	if requested <= 0 {
		return domain.AllocationRecommendation{}, false
	}

	total := r.available[it.Line.ProductID]
	if total <= 0 {
		return domain.AllocationRecommendation{}, false
	}

	customerPriority := priority.FromHistory(customer.Type, r.histories[customer.ID])
	lineValue := it.Line.LineTotal.InexactFloat64()
	score, contrib := Score(customerPriority, lineValue, OrderAgeDays(it.Order.PlacedAt, r.asOf), it.Order.Channel)

	candidates := warehouse.Rank(
		warehouse.Demand{Requested: requested, Location: customer.Location},
		r.supply[it.Line.ProductID],
	)

	product := r.products[it.Line.ProductID]
	rec := domain.AllocationRecommendation{
		OrderID:           it.Order.ID,
		LineID:            it.Line.ID,
		ProductID:         it.Line.ProductID,
		SKU:               product.SKU,
		ProductName:       product.Name,
		CustomerID:        customer.ID,
		CustomerName:      customer.Name,
		Channel:           it.Order.Channel,
		RequestedQuantity: requested,
		TotalAvailable:    total,
		CustomerPriority:  customerPriority,
		PriorityScore:     score,
		PriorityTier:      Tier(score),
		Contributions:     contrib,
		Candidates:        candidates,
		Status:            Status(requested, total),
	}

	if len(candidates) > 0 {
		top := candidates[0]
		rec.RecommendedWarehouseID = top.WarehouseID
		rec.RecommendedQuantity = top.RecommendedQuantity
		rec.PickupEligible = top.SameCity && top.Available >= requested
	}

	return rec, true
}

// Score combines the weighted factors into a priority score in [0, 1].
func Score(customerPriority, lineValue, ageDays float64, ch domain.Channel) (float64, domain.PriorityContribution) {
	bonus := 0.0
	if ch == domain.ChannelWholesale {
		bonus = WholesaleBonus
	}

	c := domain.PriorityContribution{
		Customer: customerPriority * WeightCustomer,
		Value:    clamp01(lineValue/ValueCap) * WeightValue,
		Age:      clamp01(ageDays/AgeCapDays) * WeightAge,
		Channel:  bonus * WeightChannel,
	}
	return c.Customer + c.Value + c.Age + c.Channel, c
}

// OrderAgeDays returns whole days since placement; zero for undated or future orders.
func OrderAgeDays(placedAt, asOf time.Time) float64 {
	if placedAt.IsZero() || placedAt.After(asOf) {
		return 0
	}
	return math.Floor(asOf.Sub(placedAt).Hours() / 24)
}

// Status classifies how much of the request the total supply covers.
func Status(requested, available int) domain.AllocationStatus {
	switch {
	case available >= requested:
		return domain.AllocationFull
	case available > 0:
		return domain.AllocationPartial
	default:
		return domain.AllocationUnavailable
	}
}

// Tier buckets a priority score.
func Tier(score float64) domain.PriorityTier {
	switch {
	case score >= HighTierMin:
		return domain.PriorityHigh
	case score >= MediumTierMin:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Rank orders recommendations by priority score, highest first. Equal scores
// keep input order.
func Rank(recs []domain.AllocationRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].PriorityScore > recs[j].PriorityScore
	})
}

// Recommend scores every open line of a snapshot sequentially and ranks the result.
func Recommend(snap *domain.Snapshot, asOf time.Time) []domain.AllocationRecommendation {
	r := NewRecommender(snap, asOf)
	recs := make([]domain.AllocationRecommendation, 0)
	for _, it := range r.Items() {
		if rec, ok := r.Recommend(it); ok {
			recs = append(recs, rec)
		}
	}
	Rank(recs)
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return min(v, 1)
}
