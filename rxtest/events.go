package rxtest

import "sync"

// EventEmitter is a fake event source with explicit register/unregister,
// shaped to plug into rxstream.FromEventPattern:
//
//	rxstream.FromEventPattern(em.AddHandler, em.RemoveHandler)
type EventEmitter[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []emitterHandler[T]
	removed  int
}

type emitterHandler[T any] struct {
	id int
	fn func(T)
}

// NewEventEmitter returns an EventEmitter with no handlers.
func NewEventEmitter[T any]() *EventEmitter[T] {
	return &EventEmitter[T]{}
}

// AddHandler registers fn and returns its token.
func (em *EventEmitter[T]) AddHandler(fn func(T)) int {
	em.mu.Lock()
	defer em.mu.Unlock()
	id := em.nextID
	em.nextID++
	em.handlers = append(em.handlers, emitterHandler[T]{id: id, fn: fn})
	return id
}

// RemoveHandler unregisters the handler identified by token.
func (em *EventEmitter[T]) RemoveHandler(_ func(T), token int) {
	em.mu.Lock()
	defer em.mu.Unlock()
	for i, h := range em.handlers {
		if h.id == token {
			em.handlers = append(em.handlers[:i], em.handlers[i+1:]...)
			em.removed++
			return
		}
	}
}

// Emit synchronously calls every registered handler with v, in registration order.
func (em *EventEmitter[T]) Emit(v T) {
	em.mu.Lock()
	handlers := make([]emitterHandler[T], len(em.handlers))
	copy(handlers, em.handlers)
	em.mu.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// HandlerCount returns the number of currently registered handlers.
func (em *EventEmitter[T]) HandlerCount() int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return len(em.handlers)
}

// Removed returns how many handlers have been unregistered.
func (em *EventEmitter[T]) Removed() int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.removed
}
