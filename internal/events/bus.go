// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrBusClosed is returned by Publish after Shutdown.
var ErrBusClosed = errors.New("event bus is shutting down")

type registration struct {
	id      uint64
	handler Handler
}

// Bus delivers events to subscribers. Asynchronous events go through a
// single queue, so every subscriber sees them in publication order, and
// subscribers of one type are called in the order they subscribed.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[EventType][]registration
	nextID   uint64

	queue    chan Event
	closing  chan struct{}
	closeMu  sync.RWMutex
	closed   bool
	done     chan struct{}
	stopOnce sync.Once

	delivered atomic.Uint64
	failed    atomic.Uint64
}

// BusStats is a snapshot of the bus counters.
type BusStats struct {
	QueueSize       int
	Pending         int
	Delivered       uint64
	Failed          uint64
	HandlersPerType map[EventType]int
}

// NewBus starts a bus whose queue holds bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = 1
	}
	b := &Bus{
		logger:   logger.Named("event_bus"),
		handlers: make(map[EventType][]registration),
		queue:    make(chan Event, bufferSize),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe registers handler for eventType.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed", zap.String("event_type", string(eventType)), zap.Uint64("subscription_id", id))
	return &subscription{cancel: func() { b.remove(eventType, id) }}
}

// SubscribeFunc registers fn for eventType.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

func (b *Bus) remove(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[eventType]
	for i, r := range regs {
		if r.id == id {
			regs = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(b.handlers, eventType)
	} else {
		b.handlers[eventType] = regs
	}
	b.logger.Debug("Handler unsubscribed", zap.String("event_type", string(eventType)), zap.Uint64("subscription_id", id))
}

// Publish queues event for asynchronous delivery. It blocks while the queue
// is full or until ctx is done.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event not queued", zap.String("event_type", string(event.Type())), zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// PublishSync calls every handler of the event's type on the caller's
// goroutine and joins their errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	regs := b.handlers[event.Type()]
	b.mu.RUnlock()

	var errs []error
	for _, r := range regs {
		if err := r.handler.Handle(ctx, event); err != nil {
			b.failed.Add(1)
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.Uint64("subscription_id", r.id),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		b.delivered.Add(1)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handler(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (b *Bus) dispatch() {
	defer close(b.done)
	ctx := context.Background()
	for {
		select {
		case event := <-b.queue:
			_ = b.PublishSync(ctx, event)
		case <-b.closing:
			// очередь дочитывается до конца
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(ctx, event)
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops accepting events and waits until the queued ones are
// delivered or ctx is done. Calling it again only waits.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.logger.Info("Shutting down event bus", zap.Int("pending", len(b.queue)))
		// ждём, пока завершатся начатые Publish, потом дочитываем очередь
		b.closeMu.Lock()
		b.closed = true
		b.closeMu.Unlock()
		close(b.closing)
	})

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout", zap.Int("pending", len(b.queue)))
		return ctx.Err()
	}
}

// Stats returns the current counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	perType := make(map[EventType]int, len(b.handlers))
	for t, regs := range b.handlers {
		perType[t] = len(regs)
	}
	return BusStats{
		QueueSize:       cap(b.queue),
		Pending:         len(b.queue),
		Delivered:       b.delivered.Load(),
		Failed:          b.failed.Load(),
		HandlersPerType: perType,
	}
}
