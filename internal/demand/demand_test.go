package demand

import (
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func order(id string, ch domain.Channel, daysAgo int, lines ...domain.OrderLine) domain.Order {
	return domain.Order{
		ID:       id,
		Status:   domain.StatusDelivered,
		Channel:  ch,
		PlacedAt: asOf.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		Lines:    lines,
	}
}

func line(productID string, qty int) domain.OrderLine {
	return domain.OrderLine{ProductID: productID, Quantity: qty}
}

func TestCompute(t *testing.T) {
	orders := []domain.Order{
		order("o1", domain.ChannelDirect, 1, line("p1", 10), line("p2", 3)),
		order("o2", domain.ChannelWholesale, 10, line("p1", 50)),
		order("o3", domain.ChannelDirect, 45, line("p1", 30)),
		order("o4", domain.ChannelBusiness, 120, line("p1", 999)),
	}

	t.Run("ThirtyDayWindow", func(t *testing.T) {
		table := Compute(orders, Window30, asOf)

		p1 := table.Product("p1")
		assert.Equal(t, 60, p1.TotalQuantity)
		assert.InDelta(t, 2.0, p1.AvgDaily, 1e-9)
		assert.Greater(t, p1.StdDevDaily, 0.0)

		p2 := table.Product("p2")
		assert.Equal(t, 3, p2.TotalQuantity)
		assert.InDelta(t, 0.1, p2.AvgDaily, 1e-9)

		assert.Equal(t, []string{"p1", "p2"}, table.products())
	})

	t.Run("NinetyDayWindowByChannel", func(t *testing.T) {
		table := Compute(orders, Window90, asOf)

		assert.Equal(t, 40, table.ProductChannel("p1", domain.ChannelDirect).TotalQuantity)
		assert.Equal(t, 50, table.ProductChannel("p1", domain.ChannelWholesale).TotalQuantity)
		assert.Equal(t, 0, table.ProductChannel("p1", domain.ChannelBusiness).TotalQuantity)
		assert.InDelta(t, 50.0/90.0, table.ProductChannel("p1", domain.ChannelWholesale).AvgDaily, 1e-9)
		assert.Equal(t, 90, table.Product("p1").TotalQuantity)
	})

	t.Run("NoMatchingOrders", func(t *testing.T) {
		table := Compute(orders, Window30, asOf.AddDate(1, 0, 0))

		p1 := table.Product("p1")
		assert.Equal(t, 0, p1.TotalQuantity)
		assert.Equal(t, 0.0, p1.AvgDaily)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("WindowBoundsInclusive", func(t *testing.T) {
		edge := []domain.Order{
			order("start", domain.ChannelDirect, 30, line("p1", 1)),
			order("now", domain.ChannelDirect, 0, line("p1", 1)),
			{ID: "future", Channel: domain.ChannelDirect, PlacedAt: asOf.Add(time.Hour), Lines: []domain.OrderLine{line("p1", 5)}},
		}
		assert.Equal(t, 2, Compute(edge, Window30, asOf).Product("p1").TotalQuantity)
	})

	t.Run("SkipsMalformedRecords", func(t *testing.T) {
		bad := []domain.Order{
			{ID: "undated", Channel: domain.ChannelDirect, Lines: []domain.OrderLine{line("p1", 5)}},
			order("negative", domain.ChannelDirect, 2, line("p1", -7), line("", 4)),
		}
		table := Compute(bad, Window30, asOf)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("NonPositiveWindow", func(t *testing.T) {
		table := Compute(orders, 0, asOf)
		require.NotNil(t, table)
		assert.Equal(t, 0.0, table.Product("p1").AvgDaily)
	})
}

func TestComputeIsDeterministic(t *testing.T) {
	orders := []domain.Order{
		order("o1", domain.ChannelDirect, 3, line("p1", 4), line("p3", 1)),
		order("o2", domain.ChannelBusiness, 7, line("p2", 9)),
	}
	a := Compute(orders, Window90, asOf)
	b := Compute(orders, Window90, asOf)

	assert.Equal(t, a.products(), b.products())
	for _, id := range a.products() {
		assert.Equal(t, a.Product(id), b.Product(id))
	}
}
