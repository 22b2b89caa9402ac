package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// RedisEventBus spans engine instances over Redis Pub/Sub. Every publish
// goes to the local in-memory bus and onto the wire, so any instance's
// dashboard cache can be invalidated by another instance's progress write.
type RedisEventBus struct {
	client  RedisClient
	local   *InMemoryEventBus
	channel string
	self    string
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// RedisClient is the pub/sub surface RedisEventBus needs. GoRedisClient
// adapts go-redis to it; tests substitute an in-process fake.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one message off a Redis subscription.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig tunes the distributed bus.
type RedisEventBusConfig struct {
	// Client carries the pub/sub traffic. Required.
	Client RedisClient

	// ChannelName is the Redis channel (default "lifecycle:events").
	ChannelName string

	// InstanceID tags outgoing envelopes so this instance can drop its
	// own events when they come back over the wire.
	InstanceID string

	// LocalBusConfig configures the in-process delivery leg.
	LocalBusConfig InMemoryEventBusConfig

	// Logger receives wire-level failures.
	Logger *slog.Logger
}

// NewRedisEventBus opens the subscription and returns a running bus.
func NewRedisEventBus(cfg RedisEventBusConfig) (*RedisEventBus, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = "lifecycle:events"
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:  cfg.Client,
		local:   NewInMemoryEventBus(cfg.LocalBusConfig),
		channel: cfg.ChannelName,
		self:    cfg.InstanceID,
		log:     cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	messages, err := bus.client.Subscribe(ctx, bus.channel)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start subscriber: %w", err)
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		bus.listen(messages)
	}()

	return bus, nil
}

// Subscribe registers a handler for one event type on the local leg.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler that sees every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish delivers the event locally and broadcasts it to the other
// instances. A wire failure degrades to local-only delivery rather than
// failing the publish.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrEventBusClosed
	}
	b.mu.Unlock()

	data, err := json.Marshal(eventEnvelope{
		InstanceID:  b.self,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.Publish(b.ctx, b.channel, string(data)); err != nil {
		b.log.Error("redis publish failed, delivering locally only",
			"event_type", event.EventType(),
			"error", err,
		)
	}

	return b.local.Publish(event)
}

func (b *RedisEventBus) listen(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.log.Error("redis subscription error", "error", msg.Err)
				continue
			}
			b.dispatchRemote(msg.Payload)
		}
	}
}

func (b *RedisEventBus) dispatchRemote(payload string) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		b.log.Error("malformed event envelope", "error", err)
		return
	}

	// Our own events already ran through the local bus at publish time.
	if envelope.InstanceID == b.self {
		return
	}

	if err := b.local.Publish(remoteEvent{envelope}); err != nil {
		b.log.Error("remote event delivery failed",
			"event_type", envelope.EventType,
			"error", err,
		)
	}
}

// Close stops the subscription listener and drains the local bus.
// It is idempotent.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.local.Close()
}

// eventEnvelope is the wire form of an event.
type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent presents a decoded envelope as a shared.Event for local
// delivery. The concrete event type cannot be rebuilt from the wire, so
// handlers of remote events work off the payload map.
type remoteEvent struct {
	envelope eventEnvelope
}

func (e remoteEvent) EventType() shared.EventType     { return e.envelope.EventType }
func (e remoteEvent) AggregateID() string             { return e.envelope.AggregateID }
func (e remoteEvent) OccurredAt() time.Time           { return e.envelope.OccurredAt }
func (e remoteEvent) Payload() map[string]interface{} { return e.envelope.Payload }
