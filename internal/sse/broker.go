// Package sse implements a Server-Sent Events broker for skin reload
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/skinlens/internal/models"
)

// Event types.
const (
	EventIncludesUpdated = "includes.updated"
	EventColorsUpdated   = "colors.updated"
	EventFontsUpdated    = "fonts.updated"
	EventSkinUpdated     = "skin.updated"
)

// Event represents an SSE event to broadcast. A non-empty Folder limits
// delivery to clients watching that folder or every folder.
type Event struct {
	Type   string
	Folder string
	Data   any
}

// IncludesUpdated is the payload of includes.updated.
type IncludesUpdated struct {
	Folder     string `json:"folder"`
	Generation string `json:"generation"`
}

// FontsUpdated is the payload of fonts.updated.
type FontsUpdated struct {
	Folder string `json:"folder"`
}

// SkinUpdated is the payload of skin.updated.
type SkinUpdated struct {
	Path string `json:"path"`
}

// DefaultKeepAlive is the interval between comment pings on idle streams.
const DefaultKeepAlive = 15 * time.Second

// retryMillis is the reconnect delay sent to clients on connect.
const retryMillis = 3000

type client struct {
	ch     chan []byte
	folder string
}

type subscribeReq struct {
	folder string
	resp   chan chan []byte
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the event sequence and
// the skin.updated throttle timestamp. Public methods talk to it over
// channels.
type Broker struct {
	skinMin   time.Duration
	keepAlive time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	reloadCh      chan models.ReloadResult
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the ping interval of idle streams. Zero disables pings.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// NewBroker creates a new SSE broker. skin.updated is sent at most once per
// throttle interval.
func NewBroker(throttle time.Duration, opts ...Option) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		skinMin:       throttle,
		keepAlive:     DefaultKeepAlive,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		reloadCh:      make(chan models.ReloadResult, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// encode renders one event in text/event-stream framing.
func encode(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

// reloadEvents expands a reload outcome into the events it announces.
func reloadEvents(res models.ReloadResult) []Event {
	var out []Event
	for _, folder := range res.Folders {
		out = append(out, Event{
			Type:   EventIncludesUpdated,
			Folder: folder,
			Data:   IncludesUpdated{Folder: folder, Generation: res.Generations[folder]},
		})
	}
	if res.Colors {
		out = append(out, Event{Type: EventColorsUpdated, Data: struct{}{}})
	}
	for _, folder := range res.Fonts {
		out = append(out, Event{Type: EventFontsUpdated, Folder: folder, Data: FontsUpdated{Folder: folder}})
	}
	return out
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]client)
	var (
		seq      uint64
		lastSkin time.Time
	)

	broadcast := func(event Event) {
		seq++
		raw, err := encode(seq, event)
		if err != nil {
			return
		}
		for ch, c := range clients {
			if event.Folder != "" && c.folder != "" && c.folder != event.Folder {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
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

		case req := <-b.subscribeCh:
			ch := make(chan []byte, 64)
			clients[ch] = client{ch: ch, folder: req.folder}
			req.resp <- ch

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case res := <-b.reloadCh:
			for _, event := range reloadEvents(res) {
				broadcast(event)
			}
			if now := time.Now(); now.Sub(lastSkin) >= b.skinMin {
				lastSkin = now
				broadcast(Event{Type: EventSkinUpdated, Data: SkinUpdated{Path: res.Path}})
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

// Subscribe adds a client receiving the events of folder (every folder when
// empty) and returns its channel. The channel is closed when the broker
// stops.
func (b *Broker) Subscribe(folder string) chan []byte {
	closedCh := func() chan []byte {
		ch := make(chan []byte)
		close(ch)
		return ch
	}
	if b.closed.Load() {
		return closedCh()
	}

	req := subscribeReq{folder: folder, resp: make(chan chan []byte, 1)}
	select {
	case b.subscribeCh <- req:
		return <-req.resp
	case <-b.stopped:
		return closedCh()
	}
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

// PublishReload publishes one event per rebuilt table of res and a throttled
// skin.updated event. Results that changed nothing are dropped.
func (b *Broker) PublishReload(res models.ReloadResult) {
	if b.closed.Load() || !res.Changed() {
		return
	}
	select {
	case b.reloadCh <- res:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events[?folder=1080i]).
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
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe(strings.TrimSpace(r.URL.Query().Get("folder")))
	defer b.Unsubscribe(ch)

	var ping <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		ping = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping:
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
