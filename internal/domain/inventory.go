package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product identifies a sellable item.
type Product struct {
	ID   string `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// Geography is a country/city pair used for proximity matching.
type Geography struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// SameCountry reports whether both geographies name the same, non-empty country.
func (g Geography) SameCountry(other Geography) bool {
	return sameName(g.Country, other.Country)
}

// SameCity reports whether both geographies share country and city.
func (g Geography) SameCity(other Geography) bool {
	return g.SameCountry(other) && sameName(g.City, other.City)
}

func sameName(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// CustomerType is the classification tag of a customer account.
type CustomerType string

const (
	CustomerWholesale CustomerType = "wholesale"
	CustomerBusiness  CustomerType = "business"
	CustomerRetailer  CustomerType = "retailer"
	CustomerConsumer  CustomerType = "consumer"
)

// Customer is a buying account.
type Customer struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     CustomerType `json:"type"`
	Location Geography    `json:"location"`
}

// Channel is the sales motion an order was placed through.
type Channel string

const (
	ChannelDirect    Channel = "direct"
	ChannelBusiness  Channel = "business"
	ChannelWholesale Channel = "wholesale"
)

// Channels returns the replenishment channels in reporting order.
func Channels() []Channel {
	return []Channel{ChannelDirect, ChannelBusiness, ChannelWholesale}
}

// Order is a customer order with its lines.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customerId"`
	Status     OrderStatus `json:"status"`
	Channel    Channel     `json:"channel"`
	PlacedAt   time.Time   `json:"placedAt"`
	Lines      []OrderLine `json:"lines"`
}

// Total returns the sum of the order's line totals.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// OrderLine is one product line of an order.
type OrderLine struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"productId"`
	Quantity          int             `json:"quantity"`
	FulfilledQuantity int             `json:"fulfilledQuantity"`
	LineTotal         decimal.Decimal `json:"lineTotal"`
}

// OrderedQuantity returns the ordered quantity clamped at zero.
func (l OrderLine) OrderedQuantity() int {
	return max(l.Quantity, 0)
}

// RemainingQuantity returns ordered minus fulfilled, clamped at zero.
func (l OrderLine) RemainingQuantity() int {
	return max(l.Quantity-max(l.FulfilledQuantity, 0), 0)
}

// Warehouse is a stocking location.
type Warehouse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Location Geography `json:"location"`
}

// InventoryPosition is the stock of one product at one warehouse.
type InventoryPosition struct {
	ID           string  `json:"id"`
	Product      Product `json:"product"`
	WarehouseID  string  `json:"warehouseId"`
	OnHand       int     `json:"onHand"`
	Reserved     int     `json:"reserved"`
	Available    *int    `json:"available,omitempty"`
	ReorderPoint int     `json:"reorderPoint"`
	SafetyStock  int     `json:"safetyStock"`
}

// Current returns the sellable quantity: the supplied available quantity when
// present, otherwise on-hand minus reserved. Never negative.
func (p InventoryPosition) Current() int {
	if p.Available != nil {
		return max(*p.Available, 0)
	}
	return max(p.OnHand-p.Reserved, 0)
}

// MinQuantity is the lower stocking bound.
func (p InventoryPosition) MinQuantity() int {
	return max(p.ReorderPoint, 0)
}

// MaxQuantity is the upper stocking bound: reorder point plus three safety stocks.
func (p InventoryPosition) MaxQuantity() int {
	return max(p.ReorderPoint, 0) + 3*max(p.SafetyStock, 0)
}

// Snapshot is the read-only input set for one computation.
type Snapshot struct {
	Products   []Product           `json:"products,omitempty"`
	Customers  []Customer          `json:"customers"`
	Orders     []Order             `json:"orders"`
	Inventory  []InventoryPosition `json:"inventory"`
	Warehouses []Warehouse         `json:"warehouses"`
}

// WarehouseIndex maps warehouse IDs to warehouses.
func (s *Snapshot) WarehouseIndex() map[string]Warehouse {
	idx := make(map[string]Warehouse, len(s.Warehouses))
	for _, w := range s.Warehouses {
		idx[w.ID] = w
	}
	return idx
}

// CustomerIndex maps customer IDs to customers.
func (s *Snapshot) CustomerIndex() map[string]Customer {
	idx := make(map[string]Customer, len(s.Customers))
	for _, c := range s.Customers {
		idx[c.ID] = c
	}
	return idx
}

// ProductIndex maps product IDs to products, taken from the catalog and from
// the product references nested in inventory positions.
func (s *Snapshot) ProductIndex() map[string]Product {
	idx := make(map[string]Product, len(s.Products)+len(s.Inventory))
	for _, p := range s.Inventory {
		if p.Product.ID != "" {
			idx[p.Product.ID] = p.Product
		}
	}
	for _, p := range s.Products {
		idx[p.ID] = p
	}
	return idx
}
