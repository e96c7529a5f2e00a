package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"evpredict/internal/metrics"
	"evpredict/internal/predict"
)

// liveEvent is the summary pushed to dashboard clients after every
// successful prediction batch.
type liveEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ModelUsed string    `json:"model_used"`
	Records   int       `json:"records"`
	Suitable  int       `json:"suitable"`
}

// liveHub fans prediction summaries out to connected WebSocket clients.
// All connection writes happen on a single broadcaster goroutine fed by
// a buffered channel, since the websocket package forbids concurrent
// writers on one connection. Slow or dead clients are dropped rather
// than blocking a broadcast.
type liveHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	mw       *metrics.Wrapper
	events   chan liveEvent
	stop     chan struct{}
}

func newLiveHub(mw *metrics.Wrapper) *liveHub {
	h := &liveHub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// Same permissive origin policy as the REST endpoints.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mw:     mw,
		events: make(chan liveEvent, 64),
		stop:   make(chan struct{}),
	}
	go h.broadcaster()
	return h
}

func (h *liveHub) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	if h.mw != nil {
		h.mw.LiveClientsAdd(1)
	}
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("live client connected")

	// The feed is one-way; read until the client goes away.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *liveHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if present {
		conn.Close()
		if h.mw != nil {
			h.mw.LiveClientsAdd(-1)
		}
	}
}

// broadcast queues a batch summary for the broadcaster goroutine. When
// the channel is full the event is dropped; the feed is best-effort and
// must never slow down a prediction request.
func (h *liveHub) broadcast(result *predict.BatchResult) {
	suitable := 0
	for _, p := range result.Predictions {
		if p.Prediction == 1 {
			suitable++
		}
	}
	event := liveEvent{
		Timestamp: time.Now(),
		ModelUsed: result.ModelUsed,
		Records:   len(result.Predictions),
		Suitable:  suitable,
	}

	select {
	case h.events <- event:
	default:
		log.Debug().Msg("live feed backed up, dropping event")
	}
}

// broadcaster is the only goroutine that writes to client connections.
func (h *liveHub) broadcaster() {
	for {
		select {
		case event := <-h.events:
			h.writeToClients(event)
		case <-h.stop:
			return
		}
	}
}

func (h *liveHub) writeToClients(event liveEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.WriteJSON(event); err != nil {
			h.drop(c)
		}
	}
}

func (h *liveHub) closeAll() {
	close(h.stop)

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.drop(c)
	}
}
