package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Listener reacts to one kind of event.
type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event) error

func (f ListenerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Dispatcher delivers events to the listeners registered under their name,
// synchronously and in registration order. Listener failures are logged and
// never reach the caller.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    *zap.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]Listener),
		logger:    logger.With(zap.String("component", "event_dispatcher")),
	}
}

// Listen registers listener for events named name.
func (d *Dispatcher) Listen(name string, listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], listener)
	d.logger.Debug("registered listener", zap.String("event", name), zap.Int("listener_count", len(d.listeners[name])))
}

// Dispatch runs every listener registered for the event.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners[event.Name()]))
	copy(listeners, d.listeners[event.Name()])
	d.mu.RUnlock()

	d.logger.Debug("dispatching event",
		zap.String("event", event.Name()),
		zap.Int("listener_count", len(listeners)))

	for i, listener := range listeners {
		if err := d.invoke(ctx, listener, event); err != nil {
			d.logger.Error("listener failed to handle event",
				zap.Error(err),
				zap.String("event", event.Name()),
				zap.Int("listener_index", i))
		}
	}
}

func (d *Dispatcher) invoke(ctx context.Context, listener Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return listener.Handle(ctx, event)
}
