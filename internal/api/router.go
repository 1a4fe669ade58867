package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/audio"
	"warlock-arena/internal/game"
)

// EngineInterface defines the engine methods used by the HTTP routes.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetState returns lobby, actors with per-slot timers, and lava
	GetState() game.GameState
	// Abilities returns the ability registry
	Abilities() *ability.Registry
	// Clips returns the audio registry (may be nil)
	Clips() *audio.Registry
	// StartMatch starts the match without waiting for ready flags
	StartMatch() error
	// RecentEvents returns up to n of the newest event log entries
	RecentEvents(n int) []game.Event
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine: engine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the authority (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins defaults to localhost on any port.
	CORSOrigins []string

	// AdminToken guards operator endpoints. Empty disables the check.
	AdminToken string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool

	Logger *zap.Logger
}

type routerHandlers struct {
	engine EngineInterface
	log    *zap.Logger
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It starts no listeners. A rate limiter created here runs its cleanup
// goroutine until the process exits; pass RateLimiter to control it.
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Middleware - Order matters!
	r.Use(middleware.RequestID)
	if !cfg.DisableLogging {
		r.Use(zapRequestLogger(log.Named("http")))
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	h := &routerHandlers{engine: cfg.Engine, log: log}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/abilities", h.handleGetAbilities)
		r.Get("/audio", h.handleGetAudio)
		r.Get("/events", h.handleGetEvents)

		r.With(RequireAdminToken(cfg.AdminToken)).Post("/match/start", h.handleMatchStart)
	})

	return r
}
