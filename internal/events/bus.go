package events

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Callback receives a published hook event. Callbacks run concurrently; a
// panic inside one is recovered and logged without affecting the others.
type Callback func(*HookEvent)

// Bus is a typed publish/subscribe fan-out for hook events. Adapters
// subscribe to one event type, or to all of them, without the registry or
// streaming engine knowing how many consumers exist.
//
// The bus is constructed once at the composition root and injected into every
// component that needs it.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Callback
	global      []Callback
	logger      *zap.Logger
}

// NewBus creates an event bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subscribers: make(map[Type][]Callback),
		logger:      logger,
	}
}

// Subscribe registers a callback for one event type. Registering the same
// callback twice for the same type is a no-op.
func (b *Bus) Subscribe(eventType Type, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if containsCallback(b.subscribers[eventType], cb) {
		return
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], cb)
}

// SubscribeAll registers a callback for every event type.
func (b *Bus) SubscribeAll(cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if containsCallback(b.global, cb) {
		return
	}
	b.global = append(b.global, cb)
}

// Unsubscribe removes a callback registered for one event type.
func (b *Bus) Unsubscribe(eventType Type, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = removeCallback(b.subscribers[eventType], cb)
}

// UnsubscribeAll removes a global callback.
func (b *Bus) UnsubscribeAll(cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.global = removeCallback(b.global, cb)
}

// Publish delivers the event to every callback registered for its type plus
// every global callback. Callbacks run concurrently; Publish returns once all
// of them have finished. A publish with zero subscribers completes
// immediately.
func (b *Bus) Publish(event *HookEvent) {
	b.mu.RLock()
	callbacks := make([]Callback, 0, len(b.subscribers[event.Type])+len(b.global))
	callbacks = append(callbacks, b.subscribers[event.Type]...)
	callbacks = append(callbacks, b.global...)
	b.mu.RUnlock()

	b.logger.Info("publishing event",
		zap.String("event_type", string(event.Type)),
		zap.String("session_id", event.SessionID),
		zap.Int("subscribers", len(callbacks)))

	if len(callbacks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, cb := range callbacks {
		wg.Add(1)
		go func(cb Callback) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event callback panicked",
						zap.String("event_type", string(event.Type)),
						zap.Any("panic", r))
				}
			}()
			cb(event)
		}(cb)
	}
	wg.Wait()
}

// SubscriberCount returns the total number of registered callbacks.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.global)
	for _, cbs := range b.subscribers {
		count += len(cbs)
	}
	return count
}

// Clear removes all subscribers.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = make(map[Type][]Callback)
	b.global = nil
}

// Callbacks are identified by function pointer, so the "same callback" means
// the same func value, not merely an equivalent closure.
func callbackPointer(cb Callback) uintptr {
	return reflect.ValueOf(cb).Pointer()
}

func containsCallback(list []Callback, cb Callback) bool {
	ptr := callbackPointer(cb)
	for _, existing := range list {
		if callbackPointer(existing) == ptr {
			return true
		}
	}
	return false
}

func removeCallback(list []Callback, cb Callback) []Callback {
	ptr := callbackPointer(cb)
	for i, existing := range list {
		if callbackPointer(existing) == ptr {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
