// Package sse implements a Server-Sent Events broker that pushes document
// and graph changes to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types.
const (
	TypeDocumentCreated = "document.created"
	TypeDocumentUpdated = "document.updated"
	TypeDocumentDeleted = "document.deleted"
	TypeGraphUpdated    = "graph.updated"
)

// DocumentEvent is the payload of a document.* event.
type DocumentEvent struct {
	Path      string `json:"path"`
	SectionID string `json:"sectionId,omitempty"`
	Errors    int    `json:"errors"`
}

// GraphEvent is the payload of graph.updated: the documents changed since
// the previous graph event, sorted.
type GraphEvent struct {
	Changed []string `json:"changed"`
}

// heartbeatInterval keeps idle connections open through proxies.
const heartbeatInterval = 25 * time.Second

type documentEventReq struct {
	kind  string
	event DocumentEvent
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the event sequence and
// the graph throttle state. Public methods talk to it over channels.
//
// graph.updated is throttled: at most one per interval, and a change that
// arrives inside the window is flushed when the window closes.
type Broker struct {
	graphEvery time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	docEventCh    chan documentEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph throttle interval.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphEvery:    graphThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		docEventCh:    make(chan documentEventReq, 256),
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
	var seq uint64

	var (
		lastGraph time.Time
		pending   = map[string]struct{}{}
		flush     *time.Timer
		flushCh   <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		msg := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	emitGraph := func(now time.Time) {
		changed := make([]string, 0, len(pending))
		for p := range pending {
			changed = append(changed, p)
		}
		slices.Sort(changed)
		clear(pending)
		lastGraph = now
		broadcast(Event{Type: TypeGraphUpdated, Data: GraphEvent{Changed: changed}})
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
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

		case req := <-b.docEventCh:
			typ, ok := documentTypes[req.kind]
			if !ok {
				continue
			}
			broadcast(Event{Type: typ, Data: req.event})
			pending[req.event.Path] = struct{}{}

			now := time.Now()
			if wait := b.graphEvery - now.Sub(lastGraph); wait <= 0 {
				emitGraph(now)
			} else if flushCh == nil {
				flush = time.NewTimer(wait)
				flushCh = flush.C
			}

		case now := <-flushCh:
			flush, flushCh = nil, nil
			if len(pending) > 0 {
				emitGraph(now)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
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

var documentTypes = map[string]string{
	"created": TypeDocumentCreated,
	"updated": TypeDocumentUpdated,
	"deleted": TypeDocumentDeleted,
}

// PublishDocumentEvent publishes a document change of kind created,
// updated or deleted and schedules a graph.updated event. Unknown kinds are
// dropped.
func (b *Broker) PublishDocumentEvent(kind string, ev DocumentEvent) {
	if b.closed.Load() {
		return
	}
	select {
	case b.docEventCh <- documentEventReq{kind: kind, event: ev}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
