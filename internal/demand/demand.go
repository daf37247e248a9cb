// Package demand derives trailing-window demand rates from order history.
package demand

import (
	"sort"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Standard trailing windows, in days.
const (
	Window30 = 30
	Window90 = 90
)

const day = 24 * time.Hour

// Estimate is the demand of one product, optionally within one channel.
// A zero AvgDaily means no signal, not infinite cover.
type Estimate struct {
	ProductID     string         `json:"productId"`
	Channel       domain.Channel `json:"channel,omitempty"`
	TotalQuantity int            `json:"totalQuantity"`
	AvgDaily      float64        `json:"avgDaily"`
	StdDevDaily   float64        `json:"stdDevDaily"`
}

type channelKey struct {
	product string
	channel domain.Channel
}

// Table holds the demand estimates for one window.
type Table struct {
	WindowDays int
	AsOf       time.Time

	byProduct map[string]*Estimate
	byChannel map[channelKey]*Estimate
}

// Compute accumulates ordered quantity per product and per (product, channel)
// over orders placed within [asOf - windowDays, asOf]. Orders with a zero
// placement time are skipped. windowDays <= 0 yields an empty table.
func Compute(orders []domain.Order, windowDays int, asOf time.Time) *Table {
	t := &Table{
		WindowDays: windowDays,
		AsOf:       asOf,
		byProduct:  make(map[string]*Estimate),
		byChannel:  make(map[channelKey]*Estimate),
	}
	if windowDays <= 0 {
		return t
	}

	start := asOf.Add(-time.Duration(windowDays) * day)
	daily := make(map[string][]float64)

	for _, o := range orders {
		if o.PlacedAt.IsZero() || o.PlacedAt.Before(start) || o.PlacedAt.After(asOf) {
			continue
		}
		bucket := min(int(asOf.Sub(o.PlacedAt)/day), windowDays-1)

		for _, line := range o.Lines {
			qty := line.OrderedQuantity()
			if line.ProductID == "" || qty == 0 {
				continue
			}

			p := t.byProduct[line.ProductID]
			if p == nil {
				p = &Estimate{ProductID: line.ProductID}
				t.byProduct[line.ProductID] = p
				daily[line.ProductID] = make([]float64, windowDays)
			}
			p.TotalQuantity += qty
			daily[line.ProductID][bucket] += float64(qty)

			key := channelKey{product: line.ProductID, channel: o.Channel}
			c := t.byChannel[key]
			if c == nil {
				c = &Estimate{ProductID: line.ProductID, Channel: o.Channel}
				t.byChannel[key] = c
			}
			c.TotalQuantity += qty
		}
	}

	days := float64(windowDays)
	for id, p := range t.byProduct {
		p.AvgDaily = float64(p.TotalQuantity) / days
		if windowDays > 1 {
			_, p.StdDevDaily = stat.MeanStdDev(daily[id], nil)
		}
	}
	for _, c := range t.byChannel {
		c.AvgDaily = float64(c.TotalQuantity) / days
	}

	return t
}

// Product returns the aggregate estimate for a product; zero when unseen.
func (t *Table) Product(productID string) Estimate {
	if e, ok := t.byProduct[productID]; ok {
		return *e
	}
	return Estimate{ProductID: productID}
}

// ProductChannel returns the estimate for a product within one channel.
func (t *Table) ProductChannel(productID string, ch domain.Channel) Estimate {
	if e, ok := t.byChannel[channelKey{product: productID, channel: ch}]; ok {
		return *e
	}
	return Estimate{ProductID: productID, Channel: ch}
}

// products returns the product IDs with demand in the window, sorted.
func (t *Table) products() []string {
	ids := make([]string, 0, len(t.byProduct))
	for id := range t.byProduct {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of products with demand.
func (t *Table) Len() int {
	return len(t.byProduct)
}
