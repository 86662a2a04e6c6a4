// Package events delivers offboarding lifecycle notifications to
// subscribers off the caller's goroutine.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/songzhibin97/offboarding/log"
)

var (
	// ErrBusClosed indicates the event bus has been closed.
	ErrBusClosed = errors.New("event bus is closed")
	// ErrChannelFull indicates the event queue cannot accept more events.
	ErrChannelFull = errors.New("event channel is full")
	// ErrNoHandler indicates no handlers are registered for the event type.
	ErrNoHandler = errors.New("no handlers registered for event type")
)

// Event types raised by the offboarding engine.
const (
	TypeInstanceCreated   = "instance_created"
	TypeTaskUpdated       = "task_updated"
	TypeStageCompleted    = "stage_completed"
	TypeWorkflowCompleted = "workflow_completed"
	TypeNoteAdded         = "note_added"
)

// DefaultBufferSize is the queue length of a bus built without
// WithBufferSize.
const DefaultBufferSize = 100

// Event represents something that happened to an offboarding instance.
type Event struct {
	Type       string
	InstanceID string
	Time       time.Time
	Data       map[string]any
}

// EventHandler defines the interface for handling events.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
}

// EventHandlerFunc is a function adapter for EventHandler.
type EventHandlerFunc func(ctx context.Context, event Event) error

// Handle implements the EventHandler interface.
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

type subscription struct {
	token   uint64
	handler EventHandler
}

// EventBus queues events and hands each one to the handlers of its type,
// in subscription order, on a single delivery goroutine.
type EventBus struct {
	mu         sync.RWMutex
	handlers   map[string][]subscription
	lastToken  uint64
	closed     bool
	queue      chan Event
	onError    func(event Event, err error)
	delivering sync.WaitGroup
}

// EventBusOption configures an EventBus.
type EventBusOption func(*EventBus)

// WithBufferSize sets the queue length.
func WithBufferSize(size int) EventBusOption {
	return func(eb *EventBus) {
		eb.queue = make(chan Event, size)
	}
}

// WithErrorHandler replaces the handler that receives delivery failures.
// The default logs them.
func WithErrorHandler(handler func(event Event, err error)) EventBusOption {
	return func(eb *EventBus) {
		if handler != nil {
			eb.onError = handler
		}
	}
}

// NewEventBus creates a bus and starts its delivery goroutine.
func NewEventBus(options ...EventBusOption) *EventBus {
	eb := &EventBus{
		handlers: make(map[string][]subscription),
		queue:    make(chan Event, DefaultBufferSize),
		onError:  logFailure,
	}
	for _, option := range options {
		option(eb)
	}

	eb.delivering.Add(1)
	go eb.deliver()
	return eb
}

// Subscribe registers a handler for an event type and returns the token
// that Unsubscribe takes.
func (eb *EventBus) Subscribe(eventType string, handler EventHandler) uint64 {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.lastToken++
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{
		token:   eb.lastToken,
		handler: handler,
	})
	return eb.lastToken
}

// SubscribeFunc registers a function as a handler for an event type.
func (eb *EventBus) SubscribeFunc(eventType string, fn func(ctx context.Context, event Event) error) uint64 {
	return eb.Subscribe(eventType, EventHandlerFunc(fn))
}

// Unsubscribe removes the subscription identified by token and reports
// whether it existed. Events already queued are not delivered to it.
func (eb *EventBus) Unsubscribe(eventType string, token uint64) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[eventType]
	for i, s := range subs {
		if s.token != token {
			continue
		}
		rest := append(subs[:i:i], subs[i+1:]...)
		if len(rest) == 0 {
			delete(eb.handlers, eventType)
		} else {
			eb.handlers[eventType] = rest
		}
		return true
	}
	return false
}

// HasSubscribers reports whether any handler is registered for eventType.
func (eb *EventBus) HasSubscribers(eventType string) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType]) > 0
}

// Publish queues an event without waiting for delivery. It fails when the
// context is done, the bus is closed, nobody listens or the queue is full.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrBusClosed
	}
	if len(eb.handlers[event.Type]) == 0 {
		return ErrNoHandler
	}

	select {
	case eb.queue <- event:
		return nil
	default:
		return ErrChannelFull
	}
}

// Stop closes the bus and waits until every queued event is delivered.
// It is safe to call more than once.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	if !eb.closed {
		eb.closed = true
		close(eb.queue)
	}
	eb.mu.Unlock()

	eb.delivering.Wait()
}

func (eb *EventBus) handlersFor(eventType string) []EventHandler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	subs := eb.handlers[eventType]
	res := make([]EventHandler, len(subs))
	for i, s := range subs {
		res[i] = s.handler
	}
	return res
}

func (eb *EventBus) deliver() {
	defer eb.delivering.Done()

	for event := range eb.queue {
		for _, handler := range eb.handlersFor(event.Type) {
			if err := handler.Handle(context.Background(), event); err != nil {
				eb.onError(event, err)
			}
		}
	}
}

func logFailure(event Event, err error) {
	slog.Error("Event handler failed",
		slog.String("event_type", event.Type),
		log.InstanceID(event.InstanceID),
		log.Error(err))
}
