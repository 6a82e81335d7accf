// Package messaging implements the event bus. An in-memory bus serves a
// single instance; a Redis pub/sub wrapper fans events out across instances
// so every replica invalidates its caches.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

var (
	// ErrEventBusClosed is returned for operations on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers events to handlers within one process.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	logger      *slog.Logger
	closed      bool
}

// NewInMemoryEventBus creates a new in-memory bus. Delivery is synchronous:
// a command's cache invalidation has happened by the time Handle returns,
// which keeps read-after-write tests deterministic.
func NewInMemoryEventBus(logger *slog.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish delivers the event to all matching handlers. Handler errors are
// logged, not propagated; a broken subscriber must not fail the command
// that published.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.safeInvoke(event, handler); err != nil {
			b.logger.Error("event handler failed",
				slog.String("event_type", string(event.EventType())),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

func (b *InMemoryEventBus) safeInvoke(event shared.Event, handler shared.EventHandler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return handler(event)
}

// Close marks the bus closed. Subsequent publishes fail fast.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus layers Redis pub/sub over the in-memory bus. Local handlers
// run synchronously as usual; the event is additionally broadcast so other
// instances can run their handlers on a reconstructed copy.
type RedisEventBus struct {
	client     *redis.Client
	localBus   *InMemoryEventBus
	channel    string
	instanceID string
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// DefaultEventChannel is the pub/sub channel events travel on.
const DefaultEventChannel = "hacklabs:events"

// NewRedisEventBus creates the bus and starts the subscription listener.
func NewRedisEventBus(client *redis.Client, logger *slog.Logger) (*RedisEventBus, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:     client,
		localBus:   NewInMemoryEventBus(logger),
		channel:    DefaultEventChannel,
		instanceID: "instance-" + uuid.NewString(),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	sub := client.Subscribe(ctx, bus.channel)
	bus.wg.Add(1)
	go bus.listen(sub)

	return bus, nil
}

// Subscribe registers a handler for one event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish delivers locally and broadcasts to other instances. A Redis
// publish failure degrades to local-only delivery.
func (b *RedisEventBus) Publish(event shared.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	b.mu.RUnlock()

	envelope := eventEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	}
	if data, err := json.Marshal(envelope); err == nil {
		if err := b.client.Publish(b.ctx, b.channel, data).Err(); err != nil {
			b.logger.Error("redis publish failed", slog.Any("error", err))
		}
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) listen(sub *redis.PubSub) {
	defer b.wg.Done()
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleRemote(msg.Payload)
		}
	}
}

func (b *RedisEventBus) handleRemote(payload string) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		b.logger.Error("failed to unmarshal remote event", slog.Any("error", err))
		return
	}

	// Self-published events already ran locally.
	if envelope.InstanceID == b.instanceID {
		return
	}

	if err := b.localBus.Publish(&remoteEvent{envelope: envelope}); err != nil {
		b.logger.Error("failed to process remote event", slog.Any("error", err))
	}
}

// Close stops the listener and closes the local bus.
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
	return b.localBus.Close()
}

type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent reconstructs an event received over pub/sub.
type remoteEvent struct {
	envelope eventEnvelope
}

func (e *remoteEvent) EventType() shared.EventType          { return e.envelope.EventType }
func (e *remoteEvent) AggregateID() string                  { return e.envelope.AggregateID }
func (e *remoteEvent) OccurredAt() time.Time                { return e.envelope.OccurredAt }
func (e *remoteEvent) Payload() map[string]interface{}      { return e.envelope.Payload }
