package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/engine"
	"github.com/opensource-finance/heron/internal/filter"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/worker"
)

// CacheHeader reports whether a response was served from the result cache.
const CacheHeader = "X-Heron-Cache"

var errNoRepository = errors.New("repository not available")

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *engine.Engine
	resultTTL time.Duration
	maxBody   int64
	version   string
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(opts Options) *Handler {
	c := opts.Cache
	if c == nil {
		c = cache.Noop{}
	}
	eng := opts.Engine
	if eng == nil {
		eng = engine.New(engine.DefaultWorkers)
	}
	return &Handler{
		repo:      opts.Repository,
		cache:     c,
		bus:       opts.Bus,
		engine:    eng,
		resultTTL: opts.ResultTTL,
		version:   opts.Version,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Request is the body of every engine operation. Without an inline snapshot
// the tenant's stored snapshot is used.
type Request[F any] struct {
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
	AsOf     *time.Time       `json:"asOf,omitempty"`
	Filters  F                `json:"filters"`
}

// ListResponse wraps the rows an operation produced.
type ListResponse[T any] struct {
	Items      []T       `json:"items"`
	Count      int       `json:"count"`
	AsOf       time.Time `json:"asOf"`
	Generation int64     `json:"generation,omitempty"`
}

// cacheKey is hashed into the result cache key. AsOf stays nil when the
// caller relied on the clock, so cached rows follow the TTL.
type cacheKey[F any] struct {
	Generation int64      `json:"generation"`
	AsOf       *time.Time `json:"asOf"`
	Filters    F          `json:"filters"`
}

// Allocations handles POST /allocations.
func (h *Handler) Allocations(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "allocations", h.engine.RecommendAllocations)
}

// Risk handles POST /risk.
func (h *Handler) Risk(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "risk", h.engine.ScoreRisk)
}

// Reorders handles POST /reorders.
func (h *Handler) Reorders(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "reorders", func(ctx context.Context, snap *domain.Snapshot, _ time.Time, f engine.ReorderFilters) ([]domain.ReorderSuggestion, error) {
		return h.engine.SuggestReorders(ctx, snap, f)
	})
}

// ChannelSplits handles POST /channel-splits.
func (h *Handler) ChannelSplits(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "channel-splits", h.engine.SplitChannels)
}

// Scenarios handles POST /scenarios. Filters carries the simulation params.
func (h *Handler) Scenarios(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "scenarios", func(ctx context.Context, snap *domain.Snapshot, _ time.Time, p engine.ScenarioParams) ([]domain.ScenarioResult, error) {
		return h.engine.SimulateScenarios(ctx, snap, p)
	})
}

func serve[F, T any](h *Handler, w http.ResponseWriter, r *http.Request, op string, run func(context.Context, *domain.Snapshot, time.Time, F) ([]T, error)) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req Request[F]
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	asOf := h.now()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	// Inline snapshots are computed directly.
	if req.Snapshot != nil {
		items, err := run(ctx, req.Snapshot, asOf, req.Filters)
		if err != nil {
			writeOperationError(w, op, tenantID, err)
			return
		}
		writeJSON(w, http.StatusOK, ListResponse[T]{Items: nonNil(items), Count: len(items), AsOf: asOf})
		return
	}

	if h.repo == nil {
		writeOperationError(w, op, tenantID, errNoRepository)
		return
	}

	info, err := h.repo.SnapshotInfo(ctx, tenantID)
	if err != nil {
		writeOperationError(w, op, tenantID, err)
		return
	}

	key, err := cache.RequestKey(op, cacheKey[F]{Generation: info.Generation, AsOf: req.AsOf, Filters: req.Filters})
	if err != nil {
		writeOperationError(w, op, tenantID, err)
		return
	}

	var cached ListResponse[T]
	if ok, err := cache.GetValue(ctx, h.cache, tenantID, key, &cached); err != nil {
		slog.Warn("result cache read failed", "op", op, "tenant_id", tenantID, "error", err)
	} else if ok {
		w.Header().Set(CacheHeader, "hit")
		cached.Items = nonNil(cached.Items)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	snap, err := h.repo.LoadSnapshot(ctx, tenantID)
	if err != nil {
		writeOperationError(w, op, tenantID, err)
		return
	}

	items, err := run(ctx, snap, asOf, req.Filters)
	if err != nil {
		writeOperationError(w, op, tenantID, err)
		return
	}

	resp := ListResponse[T]{Items: nonNil(items), Count: len(items), AsOf: asOf, Generation: info.Generation}
	if err := cache.SetValue(ctx, h.cache, tenantID, key, resp, h.resultTTL); err != nil {
		slog.Warn("result cache write failed", "op", op, "tenant_id", tenantID, "error", err)
	}

	w.Header().Set(CacheHeader, "miss")
	writeJSON(w, http.StatusOK, resp)
}

// PutSnapshot handles PUT /snapshot. It replaces the tenant's stored
// snapshot and announces the new generation on the bus.
func (h *Handler) PutSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeOperationError(w, "snapshot", tenantID, errNoRepository)
		return
	}

	var snap domain.Snapshot
	if err := h.decode(w, r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	info, err := h.repo.SaveSnapshot(ctx, tenantID, &snap)
	if err != nil {
		writeOperationError(w, "snapshot", tenantID, err)
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(domain.SnapshotUpdated{
			TenantID:   tenantID,
			Generation: info.Generation,
			Reason:     "upload",
		})
		if err := h.bus.Publish(ctx, tenantID, domain.TopicSnapshotUpdated, payload); err != nil {
			slog.Error("failed to publish snapshot update",
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}

	slog.Info("snapshot stored",
		"tenant_id", tenantID,
		"generation", info.Generation,
		"orders", info.Orders,
		"inventory", info.Inventory,
	)

	writeJSON(w, http.StatusOK, info)
}

// SummaryResponse is the response for GET /snapshot/summary.
type SummaryResponse struct {
	Snapshot *domain.SnapshotInfo `json:"snapshot"`
	Risk     *domain.RiskSummary  `json:"risk,omitempty"`
}

// SnapshotSummary handles GET /snapshot/summary. Risk holds the latest
// worker run when one is cached for the current generation.
func (h *Handler) SnapshotSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeOperationError(w, "summary", tenantID, errNoRepository)
		return
	}

	info, err := h.repo.SnapshotInfo(ctx, tenantID)
	if err != nil {
		writeOperationError(w, "summary", tenantID, err)
		return
	}

	resp := SummaryResponse{Snapshot: info}
	var risk domain.RiskSummary
	if ok, err := cache.GetValue(ctx, h.cache, tenantID, worker.SummaryKey, &risk); err != nil {
		slog.Warn("summary cache read failed", "tenant_id", tenantID, "error", err)
	} else if ok && risk.Generation == info.Generation {
		resp.Risk = &risk
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns the health status of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	ctx := r.Context()

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			status = "degraded"
		}
	}
	if err := h.cache.Ping(ctx); err != nil {
		status = "degraded"
	}
	if h.bus != nil {
		if err := h.bus.Ping(ctx); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "repository unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// decode reads a JSON body. An empty body decodes to the zero value.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeOperationError(w http.ResponseWriter, op, tenantID string, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidFilter),
		errors.Is(err, filter.ErrInvalidExpression),
		errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "no snapshot stored for tenant")
	case errors.Is(err, errNoRepository),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("operation failed",
			"op", op,
			"tenant_id", tenantID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
