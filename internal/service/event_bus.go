package service

import (
	"sync"

	"exposure-server/shared/models"

	"go.uber.org/zap"
)

const defaultSubscriberBuffer = 64

// EventBus fans session events out to subscribers.
// Publishing never blocks; a subscriber whose buffer is full misses the event.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan models.SessionEvent
	nextID uint64
	closed bool
	logger *zap.Logger
}

// NewEventBus creates an empty bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subs:   make(map[uint64]chan models.SessionEvent),
		logger: logger.Named("EventBus"),
	}
}

// Subscribe returns a channel of future events and a function that cancels the subscription.
func (b *EventBus) Subscribe(buffer int) (<-chan models.SessionEvent, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan models.SessionEvent, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers evt to every subscriber.
func (b *EventBus) Publish(evt models.SessionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("Subscriber buffer full, dropping event",
				zap.Uint64("subscriber", id),
				zap.String("type", string(evt.Type)),
				zap.String("patientID", evt.PatientID),
			)
		}
	}
}

// Close ends all subscriptions.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
