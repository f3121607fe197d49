// Package events implements a Server-Sent Events broker that pushes editor
// status changes and content updates to connected views.
package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is one SSE message to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type editEventReq struct {
	kind string
	slug string
}

// Broker fans events out to subscribed clients.
//
// Concurrency model: a single internal loop goroutine owns mutable state
// (clients + render throttle timestamp). Public methods communicate with the
// loop through channels, so no mutexes are required.
type Broker struct {
	renderMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	editEventCh   chan editEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. renderThrottle bounds how often the full
// "portfolio.updated" re-render hint is broadcast during bursts of edits.
func NewBroker(renderThrottle time.Duration) *Broker {
	if renderThrottle <= 0 {
		renderThrottle = time.Second
	}

	b := &Broker{
		renderMin:     renderThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		editEventCh:   make(chan editEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastRender time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.editEventCh:
			data := map[string]string{"slug": req.slug}
			switch req.kind {
			case "added":
				broadcast(Event{Type: "project.added", Data: data})
			case "updated":
				broadcast(Event{Type: "project.updated", Data: data})
			case "removed":
				broadcast(Event{Type: "project.removed", Data: data})
			}

			now := time.Now()
			if now.Sub(lastRender) >= b.renderMin {
				lastRender = now
				broadcast(Event{Type: "portfolio.updated", Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishStatus broadcasts the current editor status label and dirty flag.
func (b *Broker) PublishStatus(status string, dirty bool) {
	b.Publish(Event{Type: "status.changed", Data: map[string]any{
		"status": status,
		"dirty":  dirty,
	}})
}

// PublishEditEvent broadcasts a structural content change plus a throttled
// full re-render hint.
func (b *Broker) PublishEditEvent(kind, slug string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.editEventCh <- editEventReq{kind: kind, slug: slug}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
