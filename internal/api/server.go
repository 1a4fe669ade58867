package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"warlock-arena/internal/config"
	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/game"
	"warlock-arena/internal/replication"
)

// GameEngine is everything the server needs from the authority.
type GameEngine interface {
	EngineInterface

	Welcome(conn game.ConnID, send func(game.PlayerView, game.WorldView)) (game.PlayerView, error)
	Leave(conn game.ConnID)
	Submit(cmd game.Command) bool
}

// ServerConfig wires a Server. Hub must be the transport the Replicator
// writes to.
type ServerConfig struct {
	Engine     GameEngine
	Hub        *WebSocketHub
	Replicator *replication.Replicator
	Limits     config.ResourceLimits
	AdminToken string
	Logger     *zap.Logger
}

// Server is the HTTP API server with WebSocket support.
type Server struct {
	engine      GameEngine
	hub         *WebSocketHub
	rep         *replication.Replicator
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	log         *zap.Logger
}

// NewServer builds the router. Nothing listens until Start.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		engine:      cfg.Engine,
		hub:         cfg.Hub,
		rep:         cfg.Replicator,
		rateLimiter: NewIPRateLimiter(RateLimitConfigFrom(cfg.Limits)),
		log:         log.Named("api"),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      cfg.Engine,
		RateLimiter: s.rateLimiter,
		AdminToken:  cfg.AdminToken,
		Logger:      log,
	})
	s.router.Get("/ws", s.handleWS)

	return s
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("🌐 API server starting", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown closes every websocket and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleWS runs one connection: hello, then the world snapshot from
// Welcome, then client messages until it disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var audioFP uint64
	if clips := s.engine.Clips(); clips != nil {
		audioFP = clips.Fingerprint()
	}
	abilitiesFP := s.engine.Abilities().Fingerprint()

	c, ok := s.hub.upgrade(w, r, func(conn game.ConnID) []byte {
		return s.rep.HelloMessage(conn, abilitiesFP, audioFP)
	})
	if !ok {
		return
	}
	defer s.hub.remove(c)

	if _, err := s.engine.Welcome(c.id, s.rep.Welcome(c.id)); err != nil {
		if apperrors.GetCode(err) == apperrors.CodeResourceExhausted {
			RecordConnectionRejected("lobby_full")
		}
		s.log.Info("connection refused by lobby", zap.String("conn", string(c.id)), zap.Error(err))
		c.shutdown(websocket.CloseTryAgainLater, "lobby full")
		return
	}
	defer s.engine.Leave(c.id)

	s.readLoop(c)
}

func (s *Server) readLoop(c *wsClient) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read error", zap.String("conn", string(c.id)), zap.Error(err))
			}
			return
		}
		wsMessagesTotal.WithLabelValues("in").Inc()

		if !c.limiter.Allow() {
			wsMessagesDropped.WithLabelValues("rate_limit").Inc()
			continue
		}

		env, err := replication.Decode(msg)
		if err != nil {
			wsMessagesDropped.WithLabelValues("invalid").Inc()
			if apperrors.IsFailedPrecondition(err) {
				s.log.Info("protocol mismatch, closing", zap.String("conn", string(c.id)), zap.Error(err))
				c.shutdown(websocket.CloseProtocolError, "protocol version mismatch")
				return
			}
			continue
		}

		cmd, err := replication.Command(c.id, env)
		if err != nil {
			wsMessagesDropped.WithLabelValues("invalid").Inc()
			continue
		}
		if cmd == nil {
			continue
		}
		if !s.engine.Submit(cmd) {
			wsMessagesDropped.WithLabelValues("inbox_full").Inc()
		}
	}
}
