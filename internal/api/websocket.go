package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"warlock-arena/internal/config"
	"warlock-arena/internal/game"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// wsClient is one connection. Writes happen only on its writer goroutine,
// in the order messages were queued.
type wsClient struct {
	id      game.ConnID
	conn    *websocket.Conn
	ip      string
	send    chan []byte
	limiter *rate.Limiter

	closeOnce sync.Once
	closeCode int
	closeText string
	done      chan struct{}
}

// shutdown flushes queued messages, sends a close frame and closes.
func (c *wsClient) shutdown(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = text
		close(c.done)
	})
}

func (c *wsClient) write(msg []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return err
	}
	wsMessagesTotal.WithLabelValues("out").Inc()
	return nil
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case msg := <-c.send:
					if err := c.write(msg); err != nil {
						return
					}
				default:
					c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(c.closeCode, c.closeText),
						time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

// WebSocketHub tracks connections and delivers replicated messages.
// It implements replication.Transport.
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[game.ConnID]*wsClient

	limits    config.ResourceLimits
	wsLimiter *WebSocketRateLimiter
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

// NewWebSocketHub creates a hub with connection limiting
func NewWebSocketHub(limits config.ResourceLimits, log *zap.Logger) *WebSocketHub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &WebSocketHub{
		clients:   make(map[game.ConnID]*wsClient),
		limits:    limits,
		wsLimiter: NewWebSocketRateLimiter(limits.MaxWSPerIP),
		log:       log.Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin) {
				return true
			}
			h.log.Warn("⚠️ websocket origin rejected", zap.String("origin", origin))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Broadcast queues msg on every connection.
func (h *WebSocketHub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, msg)
	}
}

// SendTo queues msg on one connection. It reports false when the
// connection is gone or could not keep up.
func (h *WebSocketHub) SendTo(conn game.ConnID, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[conn]
	if !ok {
		return false
	}
	return h.enqueue(c, msg)
}

// enqueue never blocks. A connection whose buffer is full has missed
// replicated state and is dropped.
func (h *WebSocketHub) enqueue(c *wsClient, msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		h.log.Warn("⚠️ slow websocket client dropped", zap.String("conn", string(c.id)))
		c.shutdown(websocket.CloseTryAgainLater, "send buffer full")
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// upgrade applies the connection limits, upgrades and registers r.
// The message from greet is queued before the connection becomes visible
// to Broadcast, so it is always the first one written.
func (h *WebSocketHub) upgrade(w http.ResponseWriter, r *http.Request, greet func(game.ConnID) []byte) (*wsClient, bool) {
	ip := GetClientIP(r)

	if n := h.ClientCount(); n >= h.limits.MaxWSConnections {
		h.log.Warn("⚠️ websocket rejected: total limit reached", zap.Int("connections", n))
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return nil, false
	}
	if !h.wsLimiter.Allow(ip) {
		h.log.Warn("⚠️ websocket rejected: per-IP limit reached", zap.String("ip", ip))
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return nil, false
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		h.wsLimiter.Release(ip)
		return nil, false
	}

	c := &wsClient{
		id:        game.ConnID(uuid.NewString()),
		conn:      conn,
		ip:        ip,
		send:      make(chan []byte, sendBufferSize),
		limiter:   rate.NewLimiter(rate.Limit(h.limits.CastRequestsPerSecond), h.limits.CastRequestBurst),
		closeCode: websocket.CloseNormalClosure,
		done:      make(chan struct{}),
	}
	if greet != nil {
		if msg := greet(c.id); msg != nil {
			c.send <- msg
		}
	}

	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	go c.writeLoop()

	wsConnectionsActive.Set(float64(count))
	h.log.Info("📱 client connected", zap.String("conn", string(c.id)), zap.String("ip", ip), zap.Int("total", count))
	return c, true
}

// remove unregisters c and closes it.
func (h *WebSocketHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	count := len(h.clients)
	h.mu.Unlock()

	c.shutdown(websocket.CloseNormalClosure, "")
	if !ok {
		return
	}
	h.wsLimiter.Release(c.ip)
	wsConnectionsActive.Set(float64(count))
	h.log.Info("📱 client disconnected", zap.String("conn", string(c.id)), zap.Int("remaining", count))
}

// Close disconnects every client.
func (h *WebSocketHub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.shutdown(websocket.CloseGoingAway, "server shutting down")
	}
}
