package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// SweepTimeout bounds one sweep run.
const SweepTimeout = time.Minute

// TenantLister supplies the tenants to sweep when none are configured.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// SweepJob republishes a snapshot-updated event for each tenant so the
// worker rescores risk against the current clock.
type SweepJob struct {
	bus       domain.EventBus
	tenants   TenantLister
	tenantIDs []string
}

// NewSweepJob creates a sweep. An empty tenantIDs sweeps every tenant the
// lister returns.
func NewSweepJob(bus domain.EventBus, tenants TenantLister, tenantIDs []string) *SweepJob {
	return &SweepJob{bus: bus, tenants: tenants, tenantIDs: tenantIDs}
}

// Name implements Job.
func (j *SweepJob) Name() string {
	return "risk_sweep"
}

// Run implements Job.
func (j *SweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), SweepTimeout)
	defer cancel()

	tenantIDs := j.tenantIDs
	if len(tenantIDs) == 0 {
		var err error
		tenantIDs, err = j.tenants.ListTenants(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tenants: %w", err)
		}
	}

	published := 0
	for _, tenantID := range tenantIDs {
		payload, err := json.Marshal(domain.SnapshotUpdated{TenantID: tenantID, Reason: "sweep"})
		if err != nil {
			return err
		}
		if err := j.bus.Publish(ctx, tenantID, domain.TopicSnapshotUpdated, payload); err != nil {
			slog.Error("failed to publish sweep",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		published++
	}

	slog.Info("risk sweep published",
		"tenants", len(tenantIDs),
		"published", published,
	)
	return nil
}
