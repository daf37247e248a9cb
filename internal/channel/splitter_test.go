package channel

import (
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/demand"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func order(ch domain.Channel, daysAgo, qty int) domain.Order {
	return domain.Order{
		ID:       string(ch),
		Channel:  ch,
		Status:   domain.StatusDelivered,
		PlacedAt: asOf.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		Lines:    []domain.OrderLine{{ProductID: "p1", Quantity: qty}},
	}
}

func TestSplit(t *testing.T) {
	table := demand.Compute([]domain.Order{
		order(domain.ChannelDirect, 10, 90),     // 1/day
		order(domain.ChannelWholesale, 60, 45),  // 0.5/day
		order(domain.ChannelWholesale, 200, 99), // outside the window
	}, demand.Window90, asOf)

	w := domain.Warehouse{ID: "w1", Name: "Main"}

	t.Run("BelowReorderPoint", func(t *testing.T) {
		pos := domain.InventoryPosition{ID: "i1", Product: domain.Product{ID: "p1"}, WarehouseID: "w1", OnHand: 5, ReorderPoint: 20, SafetyStock: 10}
		s := Split(pos, w, table)
		require.Len(t, s.Channels, 3)

		assert.Equal(t, domain.ChannelDirect, s.Channels[0].Channel)
		assert.Equal(t, 40, s.Channel(domain.ChannelDirect).Quantity)
		assert.Equal(t, 10, s.Channel(domain.ChannelBusiness).Quantity)
		assert.Equal(t, 25, s.Channel(domain.ChannelWholesale).Quantity)
		assert.Equal(t, 75, s.TotalQuantity)
		for _, c := range s.Channels {
			assert.True(t, c.NeedsReplenishment, c.Channel)
		}
	})

	t.Run("WellStockedNeedsNothing", func(t *testing.T) {
		pos := domain.InventoryPosition{ID: "i2", Product: domain.Product{ID: "p1"}, WarehouseID: "w1", OnHand: 500, ReorderPoint: 20, SafetyStock: 10}
		s := Split(pos, w, table)
		for _, c := range s.Channels {
			assert.False(t, c.NeedsReplenishment, c.Channel)
		}
	})

	t.Run("ExactCover", func(t *testing.T) {
		exact := demand.Compute([]domain.Order{order(domain.ChannelDirect, 3, 186)}, demand.Window90, asOf)
		pos := domain.InventoryPosition{ID: "i4", Product: domain.Product{ID: "p1"}, WarehouseID: "w1", OnHand: 5, ReorderPoint: 20, SafetyStock: 10}
		s := Split(pos, w, exact)
		assert.Equal(t, 72, s.Channel(domain.ChannelDirect).Quantity)
		assert.Equal(t, 92, s.TotalQuantity)
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		pos := domain.InventoryPosition{ID: "i3", Product: domain.Product{ID: "nope"}, OnHand: 0}
		s := Split(pos, w, table)
		assert.Equal(t, 0, s.TotalQuantity)
		for _, c := range s.Channels {
			assert.False(t, c.NeedsReplenishment)
		}
	})
}

func TestQuantity(t *testing.T) {
	assert.Equal(t, 10, Quantity(0, 90, 5, 20, 10))
	assert.Equal(t, 41, Quantity(91, 90, 5, 20, 10))
	assert.Equal(t, 0, Quantity(-3, 90, 50, 20, 0))
	assert.Equal(t, 10, Quantity(40, 0, 5, 20, 10))

	t.Run("WholeCoverIsNotRoundedUp", func(t *testing.T) {
		assert.Equal(t, 62, Quantity(186, 90, 50, 10, 0))
		assert.Equal(t, 124, Quantity(372, 90, 50, 10, 0))
		assert.Equal(t, 125, Quantity(375, 90, 50, 10, 0))
		assert.Equal(t, 72, Quantity(186, 90, 5, 10, 10))
	})

	t.Run("MatchesExactCeiling", func(t *testing.T) {
		for total := 1; total <= 5000; total++ {
			want := (total*CoverDays + 89) / 90
			if got := Quantity(total, 90, 50, 10, 0); got != want {
				t.Fatalf("total=%d: got %d, want %d", total, got, want)
			}
		}
	})
}
