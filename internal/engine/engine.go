// Package engine runs the allocation and replenishment computations over a
// snapshot on a bounded worker pool.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/opensource-finance/heron/internal/allocation"
	"github.com/opensource-finance/heron/internal/channel"
	"github.com/opensource-finance/heron/internal/demand"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/filter"
	"github.com/opensource-finance/heron/internal/reorder"
	"github.com/opensource-finance/heron/internal/risk"
	"github.com/opensource-finance/heron/internal/scenario"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("heron-engine")

// DefaultWorkers is used when no worker count is configured.
const DefaultWorkers = 8

// Engine computes recommendations. It holds no state between calls and is
// safe for concurrent use.
type Engine struct {
	workers int
}

// New creates an engine that scores items on at most workers goroutines.
func New(workers int) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{workers: workers}
}

// Workers returns the pool size.
func (e *Engine) Workers() int {
	return e.workers
}

// ScenarioParams scopes a simulation. A warehouseId narrows supply but not
// demand, which is scoped by productId alone.
type ScenarioParams struct {
	scenario.Params
	Expr string `json:"expr,omitempty"`
}

// RecommendAllocations ranks open order lines against available stock,
// highest priority first.
func (e *Engine) RecommendAllocations(ctx context.Context, snap *domain.Snapshot, asOf time.Time, f AllocationFilters) ([]domain.AllocationRecommendation, error) {
	ctx, span := e.start(ctx, "RecommendAllocations", snap)
	defer span.End()
	start := time.Now()

	if err := f.validate(); err != nil {
		return nil, err
	}
	x, err := filter.Compile(f.Expr)
	if err != nil {
		return nil, err
	}
	annotate(span, x)

	r := allocation.NewRecommender(normalize(snap), asOf)
	recs, err := mapParallel(ctx, e.workers, r.Items(), r.Recommend)
	if err != nil {
		return nil, err
	}
	allocation.Rank(recs)

	out := keep(recs, func(rec domain.AllocationRecommendation) bool {
		return f.match(rec) && x.MatchValue(rec)
	})

	e.finish(span, "allocations", len(out), start)
	return out, nil
}

// ScoreRisk scores every inventory position for stockout and overstock risk.
func (e *Engine) ScoreRisk(ctx context.Context, snap *domain.Snapshot, asOf time.Time, f RiskFilters) ([]domain.RiskScore, error) {
	ctx, span := e.start(ctx, "ScoreRisk", snap)
	defer span.End()
	start := time.Now()

	if err := f.validate(); err != nil {
		return nil, err
	}
	x, err := filter.Compile(f.Expr)
	if err != nil {
		return nil, err
	}
	annotate(span, x)

	snap = normalize(snap)
	table := demand.Compute(snap.Orders, demand.Window30, asOf)
	span.SetAttributes(attribute.Int("heron.demand_products", table.Len()))
	warehouses := snap.WarehouseIndex()

	scores, err := mapParallel(ctx, e.workers, snap.Inventory, func(p domain.InventoryPosition) (domain.RiskScore, bool) {
		return risk.Score(p, warehouses[p.WarehouseID], table.Product(p.Product.ID)), true
	})
	if err != nil {
		return nil, err
	}

	out := keep(scores, func(r domain.RiskScore) bool {
		return f.match(r) && x.MatchValue(r)
	})
	sortRisk(out, f.Sort)

	e.finish(span, "risk", len(out), start)
	return out, nil
}

// SuggestReorders computes a reorder suggestion for every inventory position.
func (e *Engine) SuggestReorders(ctx context.Context, snap *domain.Snapshot, f ReorderFilters) ([]domain.ReorderSuggestion, error) {
	ctx, span := e.start(ctx, "SuggestReorders", snap)
	defer span.End()
	start := time.Now()

	if err := f.validate(); err != nil {
		return nil, err
	}
	x, err := filter.Compile(f.Expr)
	if err != nil {
		return nil, err
	}
	annotate(span, x)

	snap = normalize(snap)
	warehouses := snap.WarehouseIndex()

	suggestions, err := mapParallel(ctx, e.workers, snap.Inventory, func(p domain.InventoryPosition) (domain.ReorderSuggestion, bool) {
		return reorder.Suggest(p, warehouses[p.WarehouseID]), true
	})
	if err != nil {
		return nil, err
	}

	out := keep(suggestions, func(s domain.ReorderSuggestion) bool {
		return f.match(s) && x.MatchValue(s)
	})
	sortReorders(out, f.Sort)

	e.finish(span, "reorders", len(out), start)
	return out, nil
}

// SplitChannels attributes replenishment for every position across channels
// using 90-day channel demand.
func (e *Engine) SplitChannels(ctx context.Context, snap *domain.Snapshot, asOf time.Time, f ChannelFilters) ([]domain.ChannelSplit, error) {
	ctx, span := e.start(ctx, "SplitChannels", snap)
	defer span.End()
	start := time.Now()

	if err := f.validate(); err != nil {
		return nil, err
	}
	x, err := filter.Compile(f.Expr)
	if err != nil {
		return nil, err
	}
	annotate(span, x)

	snap = normalize(snap)
	table := demand.Compute(snap.Orders, demand.Window90, asOf)
	span.SetAttributes(attribute.Int("heron.demand_products", table.Len()))
	warehouses := snap.WarehouseIndex()

	splits, err := mapParallel(ctx, e.workers, snap.Inventory, func(p domain.InventoryPosition) (domain.ChannelSplit, bool) {
		return channel.Split(p, warehouses[p.WarehouseID], table), true
	})
	if err != nil {
		return nil, err
	}

	out := keep(splits, func(s domain.ChannelSplit) bool {
		return f.match(s) && x.MatchValue(s)
	})

	e.finish(span, "channel_splits", len(out), start)
	return out, nil
}

// SimulateScenarios evaluates the fixed policy presets. The recommended flag
// is assigned before the expression filter runs.
func (e *Engine) SimulateScenarios(ctx context.Context, snap *domain.Snapshot, p ScenarioParams) ([]domain.ScenarioResult, error) {
	ctx, span := e.start(ctx, "SimulateScenarios", snap)
	defer span.End()
	start := time.Now()

	x, err := filter.Compile(p.Expr)
	if err != nil {
		return nil, err
	}
	annotate(span, x)

	totals := scenario.Aggregate(snap.Inventory, snap.Orders, p.Params)
	results, err := mapParallel(ctx, e.workers, scenario.Presets(), func(preset scenario.Preset) (domain.ScenarioResult, bool) {
		return scenario.Evaluate(preset, totals, p.Params), true
	})
	if err != nil {
		return nil, err
	}
	scenario.Recommend(results)

	out := keep(results, func(r domain.ScenarioResult) bool {
		return x.MatchValue(r)
	})

	e.finish(span, "scenarios", len(out), start)
	return out, nil
}

func (e *Engine) start(ctx context.Context, op string, snap *domain.Snapshot) (context.Context, trace.Span) {
	return tracer.Start(ctx, "engine."+op,
		trace.WithAttributes(
			attribute.Int("heron.orders", len(snap.Orders)),
			attribute.Int("heron.inventory", len(snap.Inventory)),
			attribute.Int("heron.workers", e.workers),
		),
	)
}

func annotate(span trace.Span, x *filter.Expr) {
	if x != nil {
		span.SetAttributes(attribute.String("heron.expr", x.String()))
	}
}

func (e *Engine) finish(span trace.Span, op string, count int, start time.Time) {
	span.SetAttributes(attribute.Int("heron.results", count))
	slog.Debug("engine operation complete",
		"op", op,
		"count", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// normalize returns a copy of snap whose positions carry full product details
// from the catalog when the nested reference only has an ID.
func normalize(snap *domain.Snapshot) *domain.Snapshot {
	if len(snap.Products) == 0 {
		return snap
	}
	products := snap.ProductIndex()
	out := *snap
	out.Inventory = make([]domain.InventoryPosition, len(snap.Inventory))
	for i, p := range snap.Inventory {
		if full, ok := products[p.Product.ID]; ok {
			if p.Product.SKU == "" {
				p.Product.SKU = full.SKU
			}
			if p.Product.Name == "" {
				p.Product.Name = full.Name
			}
		}
		out.Inventory[i] = p
	}
	return &out
}

func keep[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

func sortRisk(scores []domain.RiskScore, key string) {
	switch key {
	case SortStockout:
		sort.SliceStable(scores, func(i, j int) bool { return scores[i].StockoutScore > scores[j].StockoutScore })
	case SortOverstock:
		sort.SliceStable(scores, func(i, j int) bool { return scores[i].OverstockScore > scores[j].OverstockScore })
	case SortDays:
		// unknown cover sorts last
		sort.SliceStable(scores, func(i, j int) bool {
			a, b := scores[i].DaysOfStock, scores[j].DaysOfStock
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return *a < *b
		})
	default:
		sort.SliceStable(scores, func(i, j int) bool { return scores[i].OverallScore > scores[j].OverallScore })
	}
}

func sortReorders(s []domain.ReorderSuggestion, key string) {
	switch key {
	case SortDays:
		sort.SliceStable(s, func(i, j int) bool { return s[i].DaysUntilReorder < s[j].DaysUntilReorder })
	default:
		sort.SliceStable(s, func(i, j int) bool { return s[i].SuggestedQuantity > s[j].SuggestedQuantity })
	}
}
