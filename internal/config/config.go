// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server, match and limit settings.
//
// Every section has a Default*() constructor and, where it makes sense,
// a *FromEnv() variant that applies environment overrides on top.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int
	MaxPlayers int    // Lobby slots
	AdminToken string // Bearer token for operator endpoints, empty disables them
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:       7777,
		MaxPlayers: 6, // One per default color
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mp := getEnvInt("MAX_PLAYERS", 0); mp > 0 {
		cfg.MaxPlayers = mp
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	return cfg
}

// =============================================================================
// TICK CONFIGURATION
// =============================================================================

// TickConfig controls the authority update loop.
type TickConfig struct {
	Rate int // Ticks per second
}

// DefaultTick returns the default tick configuration.
func DefaultTick() TickConfig {
	return TickConfig{Rate: 30}
}

// TickFromEnv returns tick configuration with environment variable overrides.
func TickFromEnv() TickConfig {
	cfg := DefaultTick()
	if r := getEnvInt("TICK_RATE", 0); r > 0 {
		cfg.Rate = r
	}
	return cfg
}

// Interval returns the duration of a single tick.
func (t TickConfig) Interval() time.Duration {
	if t.Rate <= 0 {
		return time.Second / time.Duration(DefaultTick().Rate)
	}
	return time.Second / time.Duration(t.Rate)
}

// =============================================================================
// MATCH CONFIGURATION
// =============================================================================

// LavaConfig holds the rising hazard settings.
type LavaConfig struct {
	DefaultHeight  float64       // Surface height when idle
	MaxHeight      float64       // Height added at full progress
	RaiseTime      time.Duration // Time until full progress
	Damage         float64       // Damage per interval
	DamageInterval time.Duration
	PlatformRadius float64 // Radius of the safe platform before lava rises
	MinSafeRadius  float64 // Safe radius at full progress
	BurnAudio      string
}

// MatchConfig holds lobby and match settings.
type MatchConfig struct {
	Loadout       []string // Ability names given to every actor, in slot order
	SpawnRadius   float64  // Actors spawn on a ring of this radius
	MaxHealth     float64
	MaxMoveReport float64 // Largest jump a client position report may make
	Lava          LavaConfig
}

// DefaultMatch returns the default match configuration.
func DefaultMatch() MatchConfig {
	return MatchConfig{
		Loadout:       []string{"Fireball", "Frostbolt", "Warp"},
		SpawnRadius:   6,
		MaxHealth:     100,
		MaxMoveReport: 3,
		Lava: LavaConfig{
			DefaultHeight:  0,
			MaxHeight:      1,
			RaiseTime:      30 * time.Second,
			Damage:         5,
			DamageInterval: time.Second,
			PlatformRadius: 10,
			MinSafeRadius:  2,
			BurnAudio:      "Burn",
		},
	}
}

// MatchFromEnv returns match configuration with environment variable overrides.
func MatchFromEnv() MatchConfig {
	cfg := DefaultMatch()

	if l := os.Getenv("LOADOUT"); l != "" {
		cfg.Loadout = splitList(l)
	}
	if v := getEnvFloat("MAX_HEALTH", 0); v > 0 {
		cfg.MaxHealth = v
	}
	if v := getEnvFloat("LAVA_DAMAGE", -1); v >= 0 {
		cfg.Lava.Damage = v
	}
	if v := getEnvDuration("LAVA_RAISE_TIME", 0); v > 0 {
		cfg.Lava.RaiseTime = v
	}
	if v := getEnvDuration("LAVA_DAMAGE_INTERVAL", 0); v > 0 {
		cfg.Lava.DamageInterval = v
	}
	if v := getEnvFloat("LAVA_PLATFORM_RADIUS", 0); v > 0 {
		cfg.Lava.PlatformRadius = v
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxActors             int     // Hard cap on live actors
	MaxProjectiles        int     // Maximum active projectiles
	InboxSize             int     // Buffered commands between ticks
	CastRequestsPerSecond float64 // Per-connection inbound message rate
	CastRequestBurst      int
	MaxWSConnections      int // Total websocket connections
	MaxWSPerIP            int
	HTTPRequestsPerSecond float64
	HTTPBurst             int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxActors:             64,
		MaxProjectiles:        128,
		InboxSize:             1024,
		CastRequestsPerSecond: 20,
		CastRequestBurst:      10,
		MaxWSConnections:      256,
		MaxWSPerIP:            8,
		HTTPRequestsPerSecond: 10,
		HTTPBurst:             20,
	}
}

// LimitsFromEnv returns limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if v := getEnvFloat("CAST_REQUESTS_PER_SEC", 0); v > 0 {
		cfg.CastRequestsPerSecond = v
	}
	if v := getEnvInt("MAX_WS_CONNECTIONS", 0); v > 0 {
		cfg.MaxWSConnections = v
	}
	if v := getEnvInt("MAX_WS_PER_IP", 0); v > 0 {
		cfg.MaxWSPerIP = v
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY & LOGGING
// =============================================================================

// ObservabilityConfig holds the debug server settings.
type ObservabilityConfig struct {
	DebugPort    int    // 0 disables the debug server
	EventLogPath string // Empty disables the JSONL event log
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugPort:    6060,
		EventLogPath: "",
	}
}

// ObservabilityFromEnv returns observability configuration with environment overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if v, ok := os.LookupEnv("DEBUG_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil && p >= 0 {
			cfg.DebugPort = p
		}
	}
	if v := os.Getenv("EVENT_LOG_PATH"); v != "" {
		cfg.EventLogPath = v
	}

	return cfg
}

// LoggingConfig selects the zap logger flavour.
type LoggingConfig struct {
	Level       string // debug, info, warn, error
	Development bool   // Console encoder, stack traces on warn
}

// DefaultLogging returns the default logging configuration.
func DefaultLogging() LoggingConfig {
	return LoggingConfig{Level: "info"}
}

// LoggingFromEnv returns logging configuration with environment overrides.
func LoggingFromEnv() LoggingConfig {
	cfg := DefaultLogging()
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = strings.ToLower(v)
	}
	if os.Getenv("LOG_DEV") == "true" {
		cfg.Development = true
	}
	return cfg
}

// CatalogConfig points at the resource namespace.
type CatalogConfig struct {
	Dir string // Empty uses the embedded catalogs
}

// CatalogFromEnv returns catalog configuration with environment overrides.
func CatalogFromEnv() CatalogConfig {
	return CatalogConfig{Dir: os.Getenv("CATALOG_DIR")}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server        ServerConfig
	Tick          TickConfig
	Match         MatchConfig
	Limits        ResourceLimits
	Observability ObservabilityConfig
	Logging       LoggingConfig
	Catalog       CatalogConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:        ServerFromEnv(),
		Tick:          TickFromEnv(),
		Match:         MatchFromEnv(),
		Limits:        LimitsFromEnv(),
		Observability: ObservabilityFromEnv(),
		Logging:       LoggingFromEnv(),
		Catalog:       CatalogFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
