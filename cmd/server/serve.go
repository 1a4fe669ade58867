package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warlock-arena/internal/api"
	"warlock-arena/internal/catalog"
	"warlock-arena/internal/config"
	"warlock-arena/internal/game"
	"warlock-arena/internal/logging"
	"warlock-arena/internal/pkg/clock"
	"warlock-arena/internal/replication"
)

var (
	port     int
	tickRate int
	catDir   string
	logLevel string
	devLog   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authority server",
	Long:  `Start the game loop, the HTTP API and the websocket endpoint at /ws.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides PORT)")
	serveCmd.Flags().IntVar(&tickRate, "tick-rate", 0, "Ticks per second (overrides TICK_RATE)")
	serveCmd.Flags().StringVar(&catDir, "catalog", "", "Catalog directory with abilities/ and audio/ (overrides CATALOG_DIR)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	serveCmd.Flags().BoolVar(&devLog, "dev", false, "Console logging for development")
}

// applyFlags lays explicitly set flags over the environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.AppConfig) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("tick-rate") {
		cfg.Tick.Rate = tickRate
	}
	if flags.Changed("catalog") {
		cfg.Catalog.Dir = catDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("dev") {
		cfg.Logging.Development = devLog
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyFlags(cmd, &cfg)

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("🎮 ================================")
	log.Info("🎮  WARLOCK ARENA - CAST AUTHORITY")
	log.Info("🎮 ================================")

	cat, err := catalog.Load(cfg.Catalog.Dir, log)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	hub := api.NewWebSocketHub(cfg.Limits, log)
	rep := replication.NewReplicator(hub, clock.New(), log)

	engine, err := game.NewEngine(game.EngineConfig{
		Tick:       cfg.Tick,
		Match:      cfg.Match,
		Limits:     cfg.Limits,
		MaxPlayers: cfg.Server.MaxPlayers,
		Abilities:  cat.Abilities,
		Clips:      cat.Clips,
		Outbound:   rep,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	log.Info("🛡️ Resource limits",
		zap.Int("players", cfg.Server.MaxPlayers),
		zap.Int("actors", cfg.Limits.MaxActors),
		zap.Int("projectiles", cfg.Limits.MaxProjectiles),
		zap.Int("tickRate", cfg.Tick.Rate))

	if err := engine.StartEventLog(cfg.Observability.EventLogPath); err != nil {
		log.Warn("⚠️ Event log disabled", zap.Error(err))
	} else if cfg.Observability.EventLogPath != "" {
		log.Info("📝 Event log", zap.String("path", cfg.Observability.EventLogPath))
	}

	debugServer := api.StartDebugServer(cfg.Observability, log)

	if cfg.Server.AdminToken == "" {
		log.Warn("⚠️ ADMIN_TOKEN not set, operator endpoints are disabled")
	}
	server := api.NewServer(api.ServerConfig{
		Engine:     engine,
		Hub:        hub,
		Replicator: rep,
		Limits:     cfg.Limits,
		AdminToken: cfg.Server.AdminToken,
		Logger:     log,
	})

	engine.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()
	log.Info("✅ Server ready! Press Ctrl+C to stop.",
		zap.String("ws", fmt.Sprintf("ws://localhost:%d/ws", cfg.Server.Port)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		log.Info("🛑 Shutting down...")
	case runErr = <-serveErr:
		if runErr != nil {
			log.Error("❌ API server stopped", zap.Error(runErr))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("⚠️ API shutdown", zap.Error(err))
	}
	if debugServer != nil {
		_ = debugServer.Shutdown(ctx)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Info("👋 Goodbye!")
	return runErr
}
