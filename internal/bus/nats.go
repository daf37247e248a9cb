package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/opensource-finance/heron/internal/domain"
)

// NATSBus implements EventBus using NATS.
// Used as the Pro tier event bus so API replicas and workers can run
// as separate processes.
type NATSBus struct {
	mu            sync.RWMutex
	conn          *nats.Conn
	subscriptions map[string]*natsSubscription
	config        domain.EventBusConfig
}

type natsSubscription struct {
	id    string
	topic string
	sub   *nats.Subscription
	bus   *NATSBus
}

// NewNATSBus creates a new NATS-based event bus with resilience.
func NewNATSBus(cfg domain.EventBusConfig) (*NATSBus, error) {
	if cfg.NATSUrl == "" {
		cfg.NATSUrl = nats.DefaultURL
	}
	if cfg.NATSMaxReconnects == 0 {
		cfg.NATSMaxReconnects = 10
	}
	if cfg.NATSReconnectWait == 0 {
		cfg.NATSReconnectWait = 5
	}

	// Configure NATS connection with resilience
	opts := []nats.Option{
		nats.MaxReconnects(cfg.NATSMaxReconnects),
		nats.ReconnectWait(time.Duration(cfg.NATSReconnectWait) * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024), // 8MB buffer during reconnect
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected",
				"error", err,
				"will_reconnect", !nc.IsClosed(),
			)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected",
				"url", nc.ConnectedUrl(),
			)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("NATS error",
				"error", err,
				"subject", subject,
			)
		}),
	}

	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}

	// Connect with retry
	var conn *nats.Conn
	var err error
	for i := 0; i < cfg.NATSMaxReconnects; i++ {
		conn, err = nats.Connect(cfg.NATSUrl, opts...)
		if err == nil {
			break
		}
		slog.Warn("NATS connection attempt failed",
			"attempt", i+1,
			"max_attempts", cfg.NATSMaxReconnects,
			"error", err,
		)
		time.Sleep(time.Duration(cfg.NATSReconnectWait) * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", cfg.NATSMaxReconnects, err)
	}

	slog.Info("NATS connected",
		"url", conn.ConnectedUrl(),
		"server_id", conn.ConnectedServerId(),
	)

	return &NATSBus{
		conn:          conn,
		subscriptions: make(map[string]*natsSubscription),
		config:        cfg,
	}, nil
}

// Event headers let NATS tooling trace events without decoding the body.
const (
	HeaderEventID = "Heron-Event-Id"
	HeaderTenant  = "Heron-Tenant"
)

// Publish sends an event to the tenant's subject for topic.
func (b *NATSBus) Publish(ctx context.Context, tenantID string, topic string, payload []byte) error {
	if tenantID == domain.AllTenants {
		return fmt.Errorf("cannot publish to all tenants")
	}
	subject, err := makeSubject(tenantID, topic)
	if err != nil {
		return err
	}

	ev := newEvent(tenantID, topic, payload)
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderEventID, ev.ID)
	msg.Header.Set(HeaderTenant, tenantID)
	return b.conn.PublishMsg(msg)
}

// Subscribe registers a handler for a NATS subject.
func (b *NATSBus) Subscribe(ctx context.Context, tenantID string, topic string, handler domain.EventHandler) (domain.Subscription, error) {
	subject, err := makeSubject(tenantID, topic)
	if err != nil {
		return nil, err
	}

	cb := func(m *nats.Msg) {
		var ev domain.Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			slog.Error("failed to unmarshal NATS event",
				"subject", m.Subject,
				"error", err,
			)
			return
		}

		if err := handler(ctx, &ev); err != nil {
			slog.Error("handler error",
				"subject", m.Subject,
				"event_id", ev.ID,
				"tenant_id", ev.TenantID,
				"queue_group", b.config.NATSQueueGroup,
				"error", err,
			)
		}
	}

	var natsSub *nats.Subscription
	if b.config.NATSQueueGroup != "" {
		natsSub, err = b.conn.QueueSubscribe(subject, b.config.NATSQueueGroup, cb)
	} else {
		natsSub, err = b.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &natsSubscription{
		id:    uuid.New().String(),
		topic: topic,
		sub:   natsSub,
		bus:   b,
	}

	b.mu.Lock()
	b.subscriptions[sub.id] = sub
	b.mu.Unlock()

	return sub, nil
}

// Ping checks NATS connectivity.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}
	return b.conn.FlushWithContext(ctx)
}

// Close closes the NATS connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Unsubscribe all
	for _, sub := range b.subscriptions {
		_ = sub.sub.Unsubscribe()
	}
	b.subscriptions = make(map[string]*natsSubscription)

	// Close connection
	b.conn.Close()
	return nil
}

// makeSubject maps a tenant and topic onto heron.<tenant>.<topic>, dropping the
// topic's own heron. prefix. AllTenants maps onto the NATS single-token
// wildcard; any other tenant must be a single literal token.
func makeSubject(tenantID, topic string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenantID is required")
	}
	if tenantID != domain.AllTenants && strings.ContainsAny(tenantID, ".*> \t\r\n") {
		return "", fmt.Errorf("tenant %q is not a valid NATS subject token", tenantID)
	}
	topic = strings.TrimPrefix(topic, "heron.")
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	return "heron." + tenantID + "." + topic, nil
}

// Stats returns NATS connection statistics.
func (b *NATSBus) Stats() nats.Statistics {
	return b.conn.Stats()
}

// Unsubscribe removes the subscription.
func (s *natsSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subscriptions, s.id)
	s.bus.mu.Unlock()
	return s.sub.Unsubscribe()
}

// Topic returns the subscribed topic.
func (s *natsSubscription) Topic() string {
	return s.topic
}
