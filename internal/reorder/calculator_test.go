package reorder

import (
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	w := domain.Warehouse{ID: "w1", Name: "Main"}

	t.Run("WellStocked", func(t *testing.T) {
		s := Suggest(domain.InventoryPosition{ID: "i1", WarehouseID: "w1", OnHand: 50, ReorderPoint: 20, SafetyStock: 10}, w)
		assert.False(t, s.NeedsReorder)
		assert.Equal(t, 0, s.SuggestedQuantity)
		assert.Equal(t, 20, s.MinQuantity)
		assert.Equal(t, 50, s.MaxQuantity)
		assert.Equal(t, 30, s.DaysUntilReorder)
	})

	t.Run("BelowReorderPoint", func(t *testing.T) {
		s := Suggest(domain.InventoryPosition{ID: "i2", WarehouseID: "w1", OnHand: 12, Reserved: 2, ReorderPoint: 20, SafetyStock: 10}, w)
		assert.True(t, s.NeedsReorder)
		assert.Equal(t, 10, s.CurrentQuantity)
		assert.Equal(t, 20, s.SuggestedQuantity)
		assert.Equal(t, 0, s.DaysUntilReorder)
	})

	t.Run("AtReorderPoint", func(t *testing.T) {
		s := Suggest(domain.InventoryPosition{OnHand: 20, ReorderPoint: 20, SafetyStock: 10}, w)
		assert.True(t, s.NeedsReorder)
		assert.Equal(t, 10, s.SuggestedQuantity)
	})

	t.Run("NegativeInputsClamp", func(t *testing.T) {
		s := Suggest(domain.InventoryPosition{OnHand: -5, ReorderPoint: -3, SafetyStock: -1}, w)
		assert.Equal(t, 0, s.CurrentQuantity)
		assert.Equal(t, 0, s.SuggestedQuantity)
		assert.Equal(t, 0, s.MaxQuantity)
	})
}

func TestQuantity(t *testing.T) {
	assert.Equal(t, 31, Quantity(19, 20, 30))
	assert.Equal(t, 5, Quantity(25, 20, 10))
	for current := -10; current < 200; current++ {
		assert.GreaterOrEqual(t, Quantity(current, 40, 15), 0)
	}
}

func TestDaysUntilReorder(t *testing.T) {
	assert.Equal(t, 0, DaysUntilReorder(20, 20, 10))
	// rate floors at one unit per day
	assert.Equal(t, 15, DaysUntilReorder(35, 20, 10))
	// 90 safety stock depletes 3 per day
	assert.Equal(t, 10, DaysUntilReorder(50, 20, 90))
}
