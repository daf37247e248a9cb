// Package worker recomputes risk and reorder summaries when a tenant's
// snapshot changes.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/engine"
)

// SummaryKey is the cache key under which the latest RiskSummary of a
// tenant is kept.
const SummaryKey = "summary:risk"

// Worker consumes snapshot-updated events from the EventBus.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	engine *engine.Engine
	cache  domain.Cache
	now    func() time.Time

	mu            sync.Mutex
	subscriptions []domain.Subscription
	resultTTL     time.Duration
	processed     atomic.Int64
	failed        atomic.Int64
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = every tenant)
	TenantIDs []string

	// ResultTTL is how long the latest summary stays cached.
	ResultTTL time.Duration
}

// NewWorker creates a new async worker. c may be nil.
func NewWorker(bus domain.EventBus, repo domain.Repository, eng *engine.Engine, c domain.Cache) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if c == nil {
		c = cache.Noop{}
	}
	return &Worker{
		bus:    bus,
		repo:   repo,
		engine: eng,
		cache:  c,
		now:    func() time.Time { return time.Now().UTC() },
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to snapshot updates for the given tenants.
func (w *Worker) Start(cfg Config) error {
	w.resultTTL = cfg.ResultTTL

	tenants := cfg.TenantIDs
	if len(tenants) == 0 {
		tenants = []string{domain.AllTenants}
	}

	for _, tenantID := range tenants {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicSnapshotUpdated, w.handleEvent)
		if err != nil {
			return fmt.Errorf("failed to subscribe for tenant %s: %w", tenantID, err)
		}
		w.mu.Lock()
		w.subscriptions = append(w.subscriptions, sub)
		w.mu.Unlock()
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
		"topic", domain.TopicSnapshotUpdated,
	)

	return nil
}

func (w *Worker) handleEvent(ctx context.Context, ev *domain.Event) error {
	var msg domain.SnapshotUpdated
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		w.failed.Add(1)
		slog.Error("failed to parse snapshot event",
			"event_id", ev.ID,
			"error", err,
		)
		return err
	}

	tenantID := ev.TenantID
	if msg.TenantID != "" {
		tenantID = msg.TenantID
	}

	if _, err := w.Recompute(ctx, tenantID, msg.Reason); err != nil {
		w.failed.Add(1)
		return err
	}
	w.processed.Add(1)
	return nil
}

// Recompute scores the tenant's stored snapshot, publishes the summary and
// one alert per critical position, and caches the summary.
func (w *Worker) Recompute(ctx context.Context, tenantID, reason string) (*domain.RiskSummary, error) {
	start := time.Now()

	info, err := w.repo.SnapshotInfo(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot info: %w", err)
	}
	snap, err := w.repo.LoadSnapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	scores, err := w.engine.ScoreRisk(ctx, snap, w.now(), engine.RiskFilters{})
	if err != nil {
		return nil, fmt.Errorf("risk scoring failed: %w", err)
	}
	reorders, err := w.engine.SuggestReorders(ctx, snap, engine.ReorderFilters{})
	if err != nil {
		return nil, fmt.Errorf("reorder suggestion failed: %w", err)
	}

	suggested := make(map[string]domain.ReorderSuggestion, len(reorders))
	summary := &domain.RiskSummary{
		RunID:      uuid.New().String(),
		TenantID:   tenantID,
		Generation: info.Generation,
		Positions:  len(scores),
		Levels:     make(map[domain.RiskLevel]int),
	}
	for _, s := range reorders {
		suggested[s.PositionID] = s
		if s.NeedsReorder {
			summary.NeedsReorder++
		}
	}
	for _, s := range scores {
		summary.Levels[s.Level]++
	}
	summary.DurationMs = time.Since(start).Milliseconds()

	if err := cache.SetValue(ctx, w.cache, tenantID, SummaryKey, summary, w.resultTTL); err != nil {
		slog.Error("failed to cache risk summary",
			"tenant_id", tenantID,
			"error", err,
		)
	}

	w.publish(ctx, tenantID, domain.TopicRiskScored, summary)

	alerts := 0
	for _, s := range scores {
		if s.Level != domain.RiskCritical {
			continue
		}
		w.publish(ctx, tenantID, domain.TopicStockoutAlert, domain.StockoutAlert{
			RunID:             summary.RunID,
			TenantID:          tenantID,
			Risk:              s,
			SuggestedQuantity: suggested[s.PositionID].SuggestedQuantity,
		})
		alerts++
	}

	slog.Info("snapshot recomputed",
		"tenant_id", tenantID,
		"generation", info.Generation,
		"reason", reason,
		"positions", summary.Positions,
		"critical", summary.Levels[domain.RiskCritical],
		"alerts", alerts,
		"duration_ms", summary.DurationMs,
	)

	return summary, nil
}

func (w *Worker) publish(ctx context.Context, tenantID, topic string, v any) {
	payload, err := json.Marshal(v)
	if err == nil {
		err = w.bus.Publish(ctx, tenantID, topic, payload)
	}
	if err != nil {
		slog.Error("failed to publish",
			"tenant_id", tenantID,
			"topic", topic,
			"error", err,
		)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
