// Package messaging implements the event bus carrying the engine's
// post-commit domain events. Certificate issuance itself is transactional and
// never rides the bus; the bus feeds notification and dashboard collaborators
// after the fact, so a lost event can delay a notification but never lose a
// certificate.
package messaging

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ErrEventBusClosed is returned when publishing or subscribing on a bus
// that has already been shut down.
var ErrEventBusClosed = errors.New("event bus is closed")

// InMemoryEventBus delivers events to handlers within one process. It is
// the whole bus in single-instance deployments and the local delivery leg
// of RedisEventBus in distributed ones.
type InMemoryEventBus struct {
	async bool
	slots chan struct{}
	log   *slog.Logger
	stats *BusStats

	mu     sync.RWMutex
	subs   map[shared.EventType][]shared.EventHandler
	global []shared.EventHandler
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// InMemoryEventBusConfig tunes the in-process bus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on the worker pool instead of the
	// publisher's goroutine.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent handler runs in async mode
	// (default 10).
	WorkerPoolSize int

	// Logger receives handler failures. Handlers are fire-and-forget, so
	// the log line is the only trace of a failed delivery.
	Logger *slog.Logger

	// EnableMetrics turns on delivery counters.
	EnableMetrics bool
}

// NewInMemoryEventBus builds an open bus from the config.
func NewInMemoryEventBus(cfg InMemoryEventBusConfig) *InMemoryEventBus {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 10
	}

	bus := &InMemoryEventBus{
		async: cfg.AsyncMode,
		slots: make(chan struct{}, cfg.WorkerPoolSize),
		log:   cfg.Logger,
		subs:  make(map[shared.EventType][]shared.EventHandler),
		done:  make(chan struct{}),
	}
	if cfg.EnableMetrics {
		bus.stats = &BusStats{}
	}
	return bus
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.subs[eventType] = append(b.subs[eventType], handler)
	return nil
}

// SubscribeAll registers a handler that sees every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.global = append(b.global, handler)
	return nil
}

// Publish fans the event out to every matching handler. In async mode it
// returns as soon as the deliveries are queued.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	targets := make([]shared.EventHandler, 0, len(b.subs[event.EventType()])+len(b.global))
	targets = append(targets, b.subs[event.EventType()]...)
	targets = append(targets, b.global...)
	b.mu.RUnlock()

	b.stats.recordPublish()
	if len(targets) == 0 {
		return nil
	}

	for _, h := range targets {
		if b.async {
			b.wg.Add(1)
			go b.deliverAsync(event, h)
		} else {
			b.deliver(event, h)
		}
	}
	return nil
}

func (b *InMemoryEventBus) deliverAsync(event shared.Event, h shared.EventHandler) {
	defer b.wg.Done()

	select {
	case b.slots <- struct{}{}:
		defer func() { <-b.slots }()
	case <-b.done:
		return
	}
	b.deliver(event, h)
}

func (b *InMemoryEventBus) deliver(event shared.Event, h shared.EventHandler) {
	err := h(event)
	b.stats.recordDelivery(err == nil)
	if err != nil {
		b.log.Error("event handler failed",
			"event_type", event.EventType(),
			"error", err,
		)
	}
}

// Close stops accepting events and waits for in-flight handlers.
// It is idempotent.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Metrics returns the delivery counters, or nil when disabled.
func (b *InMemoryEventBus) Metrics() *BusStats {
	return b.stats
}

// BusStats counts publishes and handler outcomes. All methods are safe on
// a nil receiver so the bus can record unconditionally.
type BusStats struct {
	published atomic.Int64
	handled   atomic.Int64
	failed    atomic.Int64
}

func (s *BusStats) recordPublish() {
	if s == nil {
		return
	}
	s.published.Add(1)
}

func (s *BusStats) recordDelivery(ok bool) {
	if s == nil {
		return
	}
	s.handled.Add(1)
	if !ok {
		s.failed.Add(1)
	}
}

// Snapshot reads the counters at one point in time.
func (s *BusStats) Snapshot() BusStatsSnapshot {
	snap := BusStatsSnapshot{
		Published: s.published.Load(),
		Handled:   s.handled.Load(),
	}
	failed := s.failed.Load()
	if snap.Handled > 0 {
		snap.SuccessRate = float64(snap.Handled-failed) / float64(snap.Handled)
	} else {
		snap.SuccessRate = 1.0
	}
	return snap
}

// BusStatsSnapshot is a point-in-time view of BusStats.
type BusStatsSnapshot struct {
	Published   int64
	Handled     int64
	SuccessRate float64
}
