package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/opensource-finance/heron/internal/domain"
)

// ChannelBus implements EventBus using Go channels.
// Used as the Community tier event bus.
type ChannelBus struct {
	mu            sync.RWMutex
	bufferSize    int
	subscriptions map[string][]*channelSubscription
	dropped       atomic.Int64
	closed        bool
}

type channelSubscription struct {
	id      string
	key     string
	topic   string
	handler domain.EventHandler
	evCh    chan *domain.Event
	ctx     context.Context
	cancel  context.CancelFunc
	bus     *ChannelBus
}

// NewChannelBus creates a new channel-based event bus.
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &ChannelBus{
		bufferSize:    bufferSize,
		subscriptions: make(map[string][]*channelSubscription),
	}
}

// Publish sends an event to a topic. Subscribers of the tenant and
// AllTenants subscribers both receive it.
func (b *ChannelBus) Publish(ctx context.Context, tenantID string, topic string, payload []byte) error {
	if tenantID == "" || tenantID == domain.AllTenants {
		return fmt.Errorf("tenantID is required")
	}

	ev := newEvent(tenantID, topic, payload)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}

	for _, key := range []string{makeKey(tenantID, topic), makeKey(domain.AllTenants, topic)} {
		for _, sub := range b.subscriptions[key] {
			// Non-blocking; a full subscriber loses the event.
			select {
			case sub.evCh <- ev:
			default:
				b.dropped.Add(1)
				slog.Warn("event dropped",
					"tenant_id", tenantID,
					"topic", topic,
					"subscription", sub.id,
				)
			}
		}
	}

	return nil
}

// Subscribe registers a handler for a topic.
func (b *ChannelBus) Subscribe(ctx context.Context, tenantID string, topic string, handler domain.EventHandler) (domain.Subscription, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}

	subCtx, cancel := context.WithCancel(ctx)

	sub := &channelSubscription{
		id:      uuid.New().String(),
		key:     makeKey(tenantID, topic),
		topic:   topic,
		handler: handler,
		evCh:    make(chan *domain.Event, b.bufferSize),
		ctx:     subCtx,
		cancel:  cancel,
		bus:     b,
	}

	go sub.run()

	b.subscriptions[sub.key] = append(b.subscriptions[sub.key], sub)

	return sub, nil
}

// Ping checks bus health.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	return nil
}

// Close closes the event bus.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.cancel()
			close(sub.evCh)
		}
	}

	b.subscriptions = make(map[string][]*channelSubscription)
	return nil
}

// Dropped returns how many events were discarded because a subscriber's
// buffer was full.
func (b *ChannelBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *ChannelBus) remove(sub *channelSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscriptions[sub.key]
	for i, s := range subs {
		if s == sub {
			b.subscriptions[sub.key] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscriptions[sub.key]) == 0 {
		delete(b.subscriptions, sub.key)
	}
}

func (s *channelSubscription) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.evCh:
			if !ok {
				return
			}
			if err := s.handler(s.ctx, ev); err != nil {
				slog.Error("handler error",
					"topic", ev.Topic,
					"tenant_id", ev.TenantID,
					"event_id", ev.ID,
					"error", err,
				)
			}
		}
	}
}

// Unsubscribe stops receiving events.
func (s *channelSubscription) Unsubscribe() error {
	s.cancel()
	s.bus.remove(s)
	return nil
}

// Topic returns the subscribed topic.
func (s *channelSubscription) Topic() string {
	return s.topic
}

func makeKey(tenantID, topic string) string {
	return tenantID + ":" + topic
}
