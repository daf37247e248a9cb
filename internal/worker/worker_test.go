package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/engine"
	"github.com/opensource-finance/heron/internal/repository"
)

type memRepo struct {
	mu    sync.Mutex
	snaps map[string]*domain.Snapshot
	gens  map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{snaps: make(map[string]*domain.Snapshot), gens: make(map[string]int64)}
}

func (r *memRepo) SaveSnapshot(ctx context.Context, tenantID string, snap *domain.Snapshot) (*domain.SnapshotInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[tenantID] = snap
	r.gens[tenantID]++
	return &domain.SnapshotInfo{TenantID: tenantID, Generation: r.gens[tenantID]}, nil
}

func (r *memRepo) LoadSnapshot(ctx context.Context, tenantID string) (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snaps[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return snap, nil
}

func (r *memRepo) SnapshotInfo(ctx context.Context, tenantID string) (*domain.SnapshotInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.snaps[tenantID]; !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.SnapshotInfo{TenantID: tenantID, Generation: r.gens[tenantID]}, nil
}

func (r *memRepo) ListTenants(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id := range r.snaps {
		out = append(out, id)
	}
	return out, nil
}

func (r *memRepo) Ping(ctx context.Context) error { return nil }

func (r *memRepo) Close() error { return nil }

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Warehouses: []domain.Warehouse{{ID: "w1", Name: "Main"}},
		Inventory: []domain.InventoryPosition{
			{ID: "i1", Product: domain.Product{ID: "p1", SKU: "WID-1"}, WarehouseID: "w1", OnHand: 0, ReorderPoint: 20, SafetyStock: 10},
			{ID: "i2", Product: domain.Product{ID: "p2", SKU: "GAD-2"}, WarehouseID: "w1", OnHand: 50, ReorderPoint: 20, SafetyStock: 10},
		},
	}
}

func collect[T any](t *testing.T, b domain.EventBus, tenantID, topic string) (<-chan T, func()) {
	t.Helper()
	ch := make(chan T, 10)
	sub, err := b.Subscribe(context.Background(), tenantID, topic, func(ctx context.Context, ev *domain.Event) error {
		var v T
		if err := json.Unmarshal(ev.Payload, &v); err != nil {
			return err
		}
		ch <- v
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	return ch, func() { sub.Unsubscribe() }
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	repo := newMemRepo()
	eng := engine.New(2)

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewWorker(eventBus, repo, eng, nil)

		if err := w.Start(Config{TenantIDs: []string{"tenant-001", "tenant-002"}}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions, got %d", stats.SubscriptionCount)
		}
		if stats.Topics[0] != domain.TopicSnapshotUpdated {
			t.Errorf("unexpected topic %s", stats.Topics[0])
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		if stats := w.GetStats(); stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("ProcessSnapshotUpdate", func(t *testing.T) {
		tenantID := "tenant-003"
		if _, err := repo.SaveSnapshot(context.Background(), tenantID, testSnapshot()); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		results := cache.NewLRUCache(10)
		w := NewWorker(eventBus, repo, eng, results)
		if err := w.Start(Config{ResultTTL: time.Minute}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		summaries, stopSummaries := collect[domain.RiskSummary](t, eventBus, tenantID, domain.TopicRiskScored)
		defer stopSummaries()
		alerts, stopAlerts := collect[domain.StockoutAlert](t, eventBus, tenantID, domain.TopicStockoutAlert)
		defer stopAlerts()

		time.Sleep(10 * time.Millisecond)

		payload, _ := json.Marshal(domain.SnapshotUpdated{TenantID: tenantID, Generation: 1, Reason: "upload"})
		if err := eventBus.Publish(context.Background(), tenantID, domain.TopicSnapshotUpdated, payload); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		var summary domain.RiskSummary
		select {
		case summary = <-summaries:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for risk summary")
		}

		if summary.Positions != 2 || summary.Generation != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
		if summary.Levels[domain.RiskCritical] != 1 || summary.Levels[domain.RiskLow] != 1 {
			t.Errorf("unexpected levels: %v", summary.Levels)
		}
		if summary.NeedsReorder != 1 {
			t.Errorf("expected 1 position needing reorder, got %d", summary.NeedsReorder)
		}
		if summary.RunID == "" {
			t.Error("expected a run id")
		}

		select {
		case alert := <-alerts:
			if alert.Risk.PositionID != "i1" || alert.SuggestedQuantity != 30 {
				t.Errorf("unexpected alert: %+v", alert)
			}
			if alert.RunID != summary.RunID {
				t.Error("alert should carry the summary's run id")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for stockout alert")
		}

		var cached domain.RiskSummary
		ok, err := cache.GetValue(context.Background(), results, tenantID, SummaryKey, &cached)
		if err != nil || !ok {
			t.Fatalf("expected cached summary, ok=%v err=%v", ok, err)
		}
		if cached.RunID != summary.RunID {
			t.Errorf("cached summary run id %s, want %s", cached.RunID, summary.RunID)
		}

		deadline := time.Now().Add(time.Second)
		for w.GetStats().Processed != 1 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if stats := w.GetStats(); stats.Processed != 1 {
			t.Errorf("expected 1 processed event, got %d", stats.Processed)
		}
	})

	t.Run("UnknownTenant", func(t *testing.T) {
		w := NewWorker(eventBus, repo, eng, nil)
		if _, err := w.Recompute(context.Background(), "missing", "sweep"); err == nil {
			t.Error("expected error for tenant without snapshot")
		}
	})
}

func TestMalformedEvent(t *testing.T) {
	w := NewWorker(bus.NewChannelBus(1), newMemRepo(), engine.New(1), nil)

	err := w.handleEvent(context.Background(), &domain.Event{ID: "e1", TenantID: "t", Payload: []byte("{not json")})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if stats := w.GetStats(); stats.Failed != 1 {
		t.Errorf("expected 1 failed event, got %d", stats.Failed)
	}
}
