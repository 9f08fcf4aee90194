package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"fieldcore/engine"
)

// EventHub fans engine notifications out to SSE clients. This is the toast
// channel: the core never throws at the UI, it streams severity-tagged
// messages here.
type EventHub struct {
	mu      sync.Mutex
	clients map[chan []byte]bool
	closed  bool
}

func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[chan []byte]bool)}
}

// Attach subscribes the hub to the engine's notification events.
func (h *EventHub) Attach(bus *engine.EventBus) {
	bus.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.NotificationEvent)
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		h.Broadcast(data)
	}, engine.EventNotification)
}

func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *EventHub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Slow client; drop the message rather than block the bus.
		}
	}
}

func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
}

func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := make(chan []byte, 16)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	h.clients[ch] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.clients[ch] {
			delete(h.clients, ch)
			close(ch)
		}
		h.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
