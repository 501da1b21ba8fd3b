package sink

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/oestream/internal/protocol"
)

const (
	defaultFeedBuffer = 256
	feedWriteWait     = 5 * time.Second
)

// FeedHub streams records as JSON text frames to websocket clients. A
// client that falls behind loses records instead of stalling the sender.
type FeedHub struct {
	upgrader websocket.Upgrader
	buffer   int
	now      func() time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	dropped atomic.Uint64
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *feedClient) stop() {
	c.once.Do(func() { close(c.send) })
}

type FeedOption func(*FeedHub)

func WithFeedBuffer(n int) FeedOption {
	return func(h *FeedHub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithFeedLogger(l zerolog.Logger) FeedOption {
	return func(h *FeedHub) { h.log = l }
}

func NewFeedHub(opts ...FeedOption) *FeedHub {
	h := &FeedHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		buffer:  defaultFeedBuffer,
		now:     time.Now,
		log:     log.Logger.With().Str("component", "sink.feed").Logger(),
		clients: make(map[*feedClient]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *FeedHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("feed upgrade failed")
		return
	}
	c := &feedClient{conn: conn, send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info().Str("remote", r.RemoteAddr).Msg("feed client connected")

	go h.writeLoop(c)
	// Reads only detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
	h.log.Info().Str("remote", r.RemoteAddr).Msg("feed client disconnected")
}

func (h *FeedHub) writeLoop(c *feedClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(feedWriteWait))
}

func (h *FeedHub) drop(c *feedClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

func (h *FeedHub) broadcast(rec Record) {
	msg, err := json.Marshal(rec)
	if err != nil {
		h.dropped.Add(1)
		h.log.Debug().Err(err).Str("kind", string(rec.Kind)).Msg("feed record not encodable")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *FeedHub) adapter() recordAdapter {
	return recordAdapter{now: h.now, emit: h.broadcast}
}

func (h *FeedHub) UpdatePlot(samples []float32, sampleRate float64) {
	h.adapter().UpdatePlot(samples, sampleRate)
}

func (h *FeedHub) OnEvent(ev protocol.DigitalEvent) { h.adapter().OnEvent(ev) }

func (h *FeedHub) OnSpike(sp protocol.SpikeEvent) { h.adapter().OnSpike(sp) }

func (h *FeedHub) OnMessage(msg protocol.TextMessage) { h.adapter().OnMessage(msg) }

func (h *FeedHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts records a client never received.
func (h *FeedHub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every client.
func (h *FeedHub) Close() {
	h.mu.Lock()
	clients := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*feedClient]struct{})
	h.mu.Unlock()
	for _, c := range clients {
		c.stop()
	}
}
