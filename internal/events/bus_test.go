package events

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func stopEvent(sessionID string) *HookEvent {
	return &HookEvent{Type: Stop, SessionID: sessionID, Timestamp: time.Now()}
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus(nil)

	var calls atomic.Int32
	bus.Subscribe(Stop, func(e *HookEvent) {
		calls.Add(1)
	})

	bus.Publish(stopEvent("sess_1"))

	assert.Equal(t, int32(1), calls.Load())
}

func TestDuplicateSubscribeIsNoOp(t *testing.T) {
	bus := NewBus(nil)

	var calls atomic.Int32
	cb := func(e *HookEvent) { calls.Add(1) }

	bus.Subscribe(Stop, cb)
	bus.Subscribe(Stop, cb)

	bus.Publish(stopEvent("sess_1"))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, bus.SubscriberCount())
}

func TestGlobalSubscriberSeesAllTypes(t *testing.T) {
	bus := NewBus(nil)

	var calls atomic.Int32
	bus.SubscribeAll(func(e *HookEvent) { calls.Add(1) })

	bus.Publish(stopEvent("sess_1"))
	bus.Publish(&HookEvent{Type: Notification, SessionID: "sess_1"})

	assert.Equal(t, int32(2), calls.Load())
}

func TestSubscriberOnlySeesOwnType(t *testing.T) {
	bus := NewBus(nil)

	var calls atomic.Int32
	bus.Subscribe(Notification, func(e *HookEvent) { calls.Add(1) })

	bus.Publish(stopEvent("sess_1"))

	assert.Equal(t, int32(0), calls.Load())
}

func TestPublishWithNoSubscribers(t *testing.T) {
	bus := NewBus(nil)

	done := make(chan struct{})
	go func() {
		bus.Publish(stopEvent("sess_1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish with zero subscribers should not block")
	}
}

func TestPanickingCallbackIsIsolated(t *testing.T) {
	bus := NewBus(nil)

	var calls atomic.Int32
	bus.Subscribe(Stop, func(e *HookEvent) { panic("broken consumer") })
	bus.Subscribe(Stop, func(e *HookEvent) { calls.Add(1) })

	bus.Publish(stopEvent("sess_1"))

	assert.Equal(t, int32(1), calls.Load())
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var calls atomic.Int32
	cb := func(e *HookEvent) { calls.Add(1) }

	bus.Subscribe(Stop, cb)
	bus.Unsubscribe(Stop, cb)

	bus.Publish(stopEvent("sess_1"))

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestClear(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(Stop, func(e *HookEvent) {})
	bus.SubscribeAll(func(e *HookEvent) {})
	bus.Clear()

	assert.Equal(t, 0, bus.SubscriberCount())
}
