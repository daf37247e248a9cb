package domain

import (
	"context"
)

// EventBus carries recompute triggers and their results between components.
// Supports Go channels (Community) or NATS (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type EventBus interface {
	// Publish sends an event to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic. tenantID may be AllTenants.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler EventHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// EventHandler processes incoming events.
type EventHandler func(ctx context.Context, ev *Event) error

// Event is the envelope published on the bus.
type Event struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving events.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds

	// NATSQueueGroup, when set, load-balances each subject across every
	// subscriber in the group, so replicated workers recompute a snapshot once.
	NATSQueueGroup string
}

// AllTenants subscribes to a topic for every tenant.
const AllTenants = "*"

// Topics for the recompute pipeline.
const (
	TopicSnapshotUpdated = "heron.snapshot.updated"
	TopicRiskScored      = "heron.risk.scored"
	TopicStockoutAlert   = "heron.alert.stockout"
)

// SnapshotUpdated is the payload of TopicSnapshotUpdated.
type SnapshotUpdated struct {
	TenantID   string `json:"tenantId"`
	Generation int64  `json:"generation"`
	Reason     string `json:"reason"` // "upload" or "sweep"
}

// RiskSummary is the payload of TopicRiskScored.
type RiskSummary struct {
	RunID        string            `json:"runId"`
	TenantID     string            `json:"tenantId"`
	Generation   int64             `json:"generation"`
	Positions    int               `json:"positions"`
	Levels       map[RiskLevel]int `json:"levels"`
	NeedsReorder int               `json:"needsReorder"`
	DurationMs   int64             `json:"durationMs"`
}

// StockoutAlert is the payload of TopicStockoutAlert.
type StockoutAlert struct {
	RunID             string    `json:"runId"`
	TenantID          string    `json:"tenantId"`
	Risk              RiskScore `json:"risk"`
	SuggestedQuantity int       `json:"suggestedQuantity"`
}
