package risk

import (
	"math/rand"
	"testing"

	"github.com/opensource-finance/heron/internal/demand"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position(onHand, reorderPoint, safetyStock int) domain.InventoryPosition {
	return domain.InventoryPosition{
		ID:           "pos",
		Product:      domain.Product{ID: "p1", SKU: "SKU-1", Name: "Widget"},
		WarehouseID:  "w1",
		OnHand:       onHand,
		ReorderPoint: reorderPoint,
		SafetyStock:  safetyStock,
	}
}

func TestScore(t *testing.T) {
	w := domain.Warehouse{ID: "w1", Name: "Main"}

	t.Run("EmptyPositionIsCritical", func(t *testing.T) {
		r := Score(position(0, 20, 10), w, demand.Estimate{AvgDaily: 0.1, TotalQuantity: 3})
		assert.Equal(t, 100, r.StockoutScore)
		assert.Equal(t, domain.RiskCritical, r.Level)
		assert.Equal(t, 100, r.OverallScore)
		assert.Equal(t, "Main", r.WarehouseName)
	})

	t.Run("NoDemandHasNoDaysOfStock", func(t *testing.T) {
		r := Score(position(40, 20, 10), w, demand.Estimate{})
		assert.Nil(t, r.DaysOfStock)
		assert.Equal(t, 0, r.StockoutScore)
		assert.Equal(t, 0, r.OverstockScore)
		assert.Equal(t, domain.RiskLow, r.Level)
	})

	t.Run("DaysOfStock", func(t *testing.T) {
		r := Score(position(40, 20, 10), w, demand.Estimate{AvgDaily: 4, TotalQuantity: 120})
		require.NotNil(t, r.DaysOfStock)
		assert.InDelta(t, 10.0, *r.DaysOfStock, 1e-9)
		assert.Equal(t, 40, r.StockoutScore)
		assert.Equal(t, domain.RiskMedium, r.Level)
	})

	t.Run("DeadStock", func(t *testing.T) {
		// max = 100 + 3*40 = 220
		r := Score(position(150, 100, 40), w, demand.Estimate{})
		assert.Equal(t, 80, r.OverstockScore)
		assert.Equal(t, domain.RiskOverstock, r.Level)
	})

	t.Run("ReservedReducesCurrent", func(t *testing.T) {
		p := position(30, 20, 10)
		p.Reserved = 25
		r := Score(p, w, demand.Estimate{})
		assert.Equal(t, 5, r.CurrentQuantity)
		assert.Equal(t, 90, r.StockoutScore)
	})
}

func TestStockout(t *testing.T) {
	cases := []struct {
		name    string
		current int
		avg     float64
		want    int
	}{
		{"Negative", -5, 1, 100},
		{"BelowSafety", 5, 1, 90},
		{"BelowReorder", 15, 1, 70},
		{"UnderWeek", 24, 4, 60},
		{"UnderTwoWeeks", 24, 2, 40},
		{"UnderMonth", 24, 1, 20},
		{"Covered", 90, 1, 0},
		{"NoSignal", 24, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Stockout(tc.current, 20, 10, tc.avg))
		})
	}
}

func TestOverstock(t *testing.T) {
	// max = 50
	assert.Equal(t, 90, Overstock(76, 50, 1, 30))
	assert.Equal(t, 60, Overstock(51, 50, 1, 30))
	assert.Equal(t, 70, Overstock(50, 50, 0.25, 8))
	assert.Equal(t, 50, Overstock(50, 50, 0.4, 12))
	assert.Equal(t, 30, Overstock(50, 50, 0.5, 15))
	assert.Equal(t, 0, Overstock(50, 50, 1, 30))
	assert.Equal(t, 0, Overstock(100, 200, 0, 0))
	assert.Equal(t, 80, Overstock(101, 200, 0, 0))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.RiskCritical, Classify(70, 90))
	assert.Equal(t, domain.RiskHigh, Classify(60, 90))
	assert.Equal(t, domain.RiskOverstock, Classify(40, 70))
	assert.Equal(t, domain.RiskMedium, Classify(30, 0))
	assert.Equal(t, domain.RiskMedium, Classify(0, 50))
	assert.Equal(t, domain.RiskLow, Classify(20, 30))
}

func TestScoreBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	w := domain.Warehouse{ID: "w1"}

	for i := 0; i < 2000; i++ {
		p := position(rng.Intn(400)-20, rng.Intn(60), rng.Intn(30))
		est := demand.Estimate{TotalQuantity: rng.Intn(300)}
		est.AvgDaily = float64(est.TotalQuantity) / demand.Window30

		r := Score(p, w, est)
		assert.GreaterOrEqual(t, r.StockoutScore, 0)
		assert.LessOrEqual(t, r.StockoutScore, 100)
		assert.GreaterOrEqual(t, r.OverstockScore, 0)
		assert.LessOrEqual(t, r.OverstockScore, 100)
		assert.GreaterOrEqual(t, r.CurrentQuantity, 0)
		assert.Equal(t, Classify(r.StockoutScore, r.OverstockScore), r.Level)
	}
}
