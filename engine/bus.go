package engine

import "sync"

type EventType int

type Event struct {
	Type    EventType
	Payload any
}

type handler struct {
	fn    func(Event)
	types map[EventType]bool
}

// EventBus dispatches events synchronously in subscription order.
type EventBus struct {
	mu       sync.RWMutex
	handlers []handler
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for every event.
func (b *EventBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler{fn: fn})
	b.mu.Unlock()
}

// SubscribeTypes registers a handler for specific event types.
func (b *EventBus) SubscribeTypes(fn func(Event), types ...EventType) {
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, handler{fn: fn, types: set})
	b.mu.Unlock()
}

func (b *EventBus) Emit(evt Event) {
	b.mu.RLock()
	handlers := make([]handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, h := range handlers {
		if h.types == nil || h.types[evt.Type] {
			h.fn(evt)
		}
	}
}
