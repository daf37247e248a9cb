package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/filter"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return asOf.Add(-time.Duration(n) * 24 * time.Hour)
}

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Products: []domain.Product{
			{ID: "p1", SKU: "WID-1", Name: "Widget"},
			{ID: "p2", SKU: "GAD-2", Name: "Gadget"},
			{ID: "p3", SKU: "DUS-3", Name: "Dust Collector"},
		},
		Customers: []domain.Customer{
			{ID: "c1", Name: "Bulk Foods", Type: domain.CustomerWholesale, Location: domain.Geography{Country: "DE", City: "Berlin"}},
			{ID: "c2", Name: "Corner Shop", Type: domain.CustomerRetailer, Location: domain.Geography{Country: "US", City: "Austin"}},
		},
		Warehouses: []domain.Warehouse{
			{ID: "w1", Name: "Berlin DC", Location: domain.Geography{Country: "DE", City: "Berlin"}},
			{ID: "w2", Name: "Austin DC", Location: domain.Geography{Country: "US", City: "Austin"}},
		},
		Inventory: []domain.InventoryPosition{
			{ID: "i1", Product: domain.Product{ID: "p1"}, WarehouseID: "w1", OnHand: 0, ReorderPoint: 20, SafetyStock: 10},
			{ID: "i2", Product: domain.Product{ID: "p1"}, WarehouseID: "w2", OnHand: 60, ReorderPoint: 20, SafetyStock: 10},
			{ID: "i3", Product: domain.Product{ID: "p2"}, WarehouseID: "w1", OnHand: 15, ReorderPoint: 20, SafetyStock: 5},
			{ID: "i4", Product: domain.Product{ID: "p3"}, WarehouseID: "w2", OnHand: 150, ReorderPoint: 100, SafetyStock: 40},
		},
		Orders: []domain.Order{
			{ID: "o1", CustomerID: "c1", Status: domain.StatusPending, Channel: domain.ChannelWholesale, PlacedAt: daysAgo(40),
				Lines: []domain.OrderLine{{ID: "l1", ProductID: "p1", Quantity: 10, LineTotal: decimal.NewFromInt(15000)}}},
			{ID: "o2", CustomerID: "c2", Status: domain.StatusProcessing, Channel: domain.ChannelDirect, PlacedAt: daysAgo(3),
				Lines: []domain.OrderLine{
					{ID: "l2", ProductID: "p1", Quantity: 100, LineTotal: decimal.NewFromInt(800)},
					{ID: "l3", ProductID: "p2", Quantity: 4, LineTotal: decimal.NewFromInt(40)},
				}},
			{ID: "o3", CustomerID: "c2", Status: domain.StatusDelivered, Channel: domain.ChannelBusiness, PlacedAt: daysAgo(10),
				Lines: []domain.OrderLine{{ID: "l4", ProductID: "p2", Quantity: 30, LineTotal: decimal.NewFromInt(300)}}},
		},
	}
}

func TestNewWorkers(t *testing.T) {
	assert.Equal(t, DefaultWorkers, New(0).Workers())
	assert.Equal(t, DefaultWorkers, New(-2).Workers())
	assert.Equal(t, 3, New(3).Workers())
}

func TestRecommendAllocations(t *testing.T) {
	e := New(4)
	ctx := context.Background()

	recs, err := e.RecommendAllocations(ctx, testSnapshot(), asOf, AllocationFilters{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "l1", recs[0].LineID)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].PriorityScore, recs[i].PriorityScore)
	}

	t.Run("ProductDetailsFromCatalog", func(t *testing.T) {
		assert.Equal(t, "WID-1", recs[0].SKU)
		assert.Equal(t, "Widget", recs[0].ProductName)
	})

	t.Run("Availability", func(t *testing.T) {
		partial, err := e.RecommendAllocations(ctx, testSnapshot(), asOf, AllocationFilters{Availability: AvailabilityPartial})
		require.NoError(t, err)
		require.Len(t, partial, 1)
		assert.Equal(t, "l2", partial[0].LineID)
	})

	t.Run("Search", func(t *testing.T) {
		found, err := e.RecommendAllocations(ctx, testSnapshot(), asOf, AllocationFilters{Search: "corner"})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("Tier", func(t *testing.T) {
		high, err := e.RecommendAllocations(ctx, testSnapshot(), asOf, AllocationFilters{PriorityTier: domain.PriorityHigh})
		require.NoError(t, err)
		for _, r := range high {
			assert.Equal(t, domain.PriorityHigh, r.PriorityTier)
		}
	})

	t.Run("Expression", func(t *testing.T) {
		got, err := e.RecommendAllocations(ctx, testSnapshot(), asOf, AllocationFilters{Expr: `row.requestedQuantity > 50`})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "l2", got[0].LineID)
	})
}

func TestScoreRisk(t *testing.T) {
	e := New(2)
	ctx := context.Background()

	scores, err := e.ScoreRisk(ctx, testSnapshot(), asOf, RiskFilters{})
	require.NoError(t, err)
	require.Len(t, scores, 4)

	// empty Berlin widget sorts first
	assert.Equal(t, "i1", scores[0].PositionID)
	assert.Equal(t, domain.RiskCritical, scores[0].Level)
	assert.Equal(t, "Berlin DC", scores[0].WarehouseName)

	byID := make(map[string]domain.RiskScore)
	for _, s := range scores {
		byID[s.PositionID] = s
	}
	assert.Nil(t, byID["i4"].DaysOfStock)
	assert.Equal(t, 80, byID["i4"].OverstockScore)

	t.Run("Overstock", func(t *testing.T) {
		over, err := e.ScoreRisk(ctx, testSnapshot(), asOf, RiskFilters{RiskType: RiskTypeOverstock})
		require.NoError(t, err)
		// i2 sits above its max quantity, i4 is dead stock
		require.Len(t, over, 2)
		assert.Equal(t, "i4", over[0].PositionID)
		assert.Equal(t, "i2", over[1].PositionID)
	})

	t.Run("DaysSortPutsUnknownLast", func(t *testing.T) {
		sorted, err := e.ScoreRisk(ctx, testSnapshot(), asOf, RiskFilters{Sort: SortDays})
		require.NoError(t, err)
		last := sorted[len(sorted)-1]
		assert.Nil(t, last.DaysOfStock)
		for i := 1; i < len(sorted); i++ {
			a, b := sorted[i-1].DaysOfStock, sorted[i].DaysOfStock
			if a != nil && b != nil {
				assert.LessOrEqual(t, *a, *b)
			}
		}
	})
}

func TestSuggestReorders(t *testing.T) {
	e := New(3)
	got, err := e.SuggestReorders(context.Background(), testSnapshot(), ReorderFilters{Warehouse: "berlin dc"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "i1", got[0].PositionID)
	assert.Equal(t, 30, got[0].SuggestedQuantity)
	assert.True(t, got[0].NeedsReorder)

	days, err := e.SuggestReorders(context.Background(), testSnapshot(), ReorderFilters{Sort: SortDays})
	require.NoError(t, err)
	for i := 1; i < len(days); i++ {
		assert.LessOrEqual(t, days[i-1].DaysUntilReorder, days[i].DaysUntilReorder)
	}
}

func TestSplitChannels(t *testing.T) {
	e := New(3)
	got, err := e.SplitChannels(context.Background(), testSnapshot(), asOf, ChannelFilters{Channel: domain.ChannelWholesale})
	require.NoError(t, err)
	for _, s := range got {
		assert.True(t, s.Channel(domain.ChannelWholesale).NeedsReplenishment)
	}
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.PositionID
	}
	assert.Equal(t, []string{"i1", "i3"}, ids)
}

func TestSimulateScenarios(t *testing.T) {
	e := New(3)
	got, err := e.SimulateScenarios(context.Background(), testSnapshot(), ScenarioParams{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	recommended, err := e.SimulateScenarios(context.Background(), testSnapshot(), ScenarioParams{Expr: `row.recommended`})
	require.NoError(t, err)
	require.Len(t, recommended, 1)
}

func TestInvalidInput(t *testing.T) {
	e := New(1)
	ctx := context.Background()

	_, err := e.ScoreRisk(ctx, testSnapshot(), asOf, RiskFilters{RiskType: "volcanic"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = e.SuggestReorders(ctx, testSnapshot(), ReorderFilters{Sort: "alphabetical"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = e.SplitChannels(ctx, testSnapshot(), asOf, ChannelFilters{Channel: "marketplace"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = e.RecommendAllocations(ctx, testSnapshot(), asOf, AllocationFilters{Expr: "row.priorityScore +"})
	assert.ErrorIs(t, err, filter.ErrInvalidExpression)
}

func TestCancelledContext(t *testing.T) {
	e := New(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recs, err := e.RecommendAllocations(ctx, testSnapshot(), asOf, AllocationFilters{})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, recs)
}

func TestEmptySnapshot(t *testing.T) {
	e := New(2)
	ctx := context.Background()
	empty := &domain.Snapshot{}

	recs, err := e.RecommendAllocations(ctx, empty, asOf, AllocationFilters{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	scores, err := e.ScoreRisk(ctx, empty, asOf, RiskFilters{})
	require.NoError(t, err)
	assert.Empty(t, scores)

	results, err := e.SimulateScenarios(ctx, empty, ScenarioParams{})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestIdempotent(t *testing.T) {
	ctx := context.Background()
	snap := testSnapshot()

	run := func(workers int) string {
		e := New(workers)
		recs, err := e.RecommendAllocations(ctx, snap, asOf, AllocationFilters{})
		require.NoError(t, err)
		risk, err := e.ScoreRisk(ctx, snap, asOf, RiskFilters{})
		require.NoError(t, err)
		reorders, err := e.SuggestReorders(ctx, snap, ReorderFilters{})
		require.NoError(t, err)
		splits, err := e.SplitChannels(ctx, snap, asOf, ChannelFilters{})
		require.NoError(t, err)
		scenarios, err := e.SimulateScenarios(ctx, snap, ScenarioParams{})
		require.NoError(t, err)

		data, err := json.Marshal([]any{recs, risk, reorders, splits, scenarios})
		require.NoError(t, err)
		return string(data)
	}

	first := run(1)
	for _, workers := range []int{1, 4, 16} {
		assert.Equal(t, first, run(workers), fmt.Sprintf("workers=%d", workers))
	}
}
