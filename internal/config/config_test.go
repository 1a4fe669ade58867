package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != DefaultServer().Port {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultServer().Port)
	}
	if len(cfg.Match.Loadout) != 3 {
		t.Fatalf("Loadout = %v, want 3 abilities", cfg.Match.Loadout)
	}
	if cfg.Tick.Interval() <= 0 {
		t.Error("tick interval must be positive")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TICK_RATE", "20")
	t.Setenv("LOADOUT", " Warp , Fireball,,")
	t.Setenv("LAVA_RAISE_TIME", "10s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DEBUG_PORT", "0")
	t.Setenv("ADMIN_TOKEN", "s3cret")

	cfg := Load()

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if got := cfg.Tick.Interval(); got != 50*time.Millisecond {
		t.Errorf("Interval = %v, want 50ms", got)
	}
	if len(cfg.Match.Loadout) != 2 || cfg.Match.Loadout[0] != "Warp" || cfg.Match.Loadout[1] != "Fireball" {
		t.Errorf("Loadout = %v", cfg.Match.Loadout)
	}
	if cfg.Match.Lava.RaiseTime != 10*time.Second {
		t.Errorf("RaiseTime = %v", cfg.Match.Lava.RaiseTime)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if cfg.Observability.DebugPort != 0 {
		t.Errorf("DebugPort = %d, want 0", cfg.Observability.DebugPort)
	}
	if cfg.Server.AdminToken != "s3cret" {
		t.Errorf("AdminToken = %q", cfg.Server.AdminToken)
	}
}

func TestInvalidEnvIgnored(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("LAVA_RAISE_TIME", "soon")

	cfg := Load()
	if cfg.Server.Port != DefaultServer().Port {
		t.Errorf("Port = %d, want default", cfg.Server.Port)
	}
	if cfg.Match.Lava.RaiseTime != DefaultMatch().Lava.RaiseTime {
		t.Errorf("RaiseTime = %v, want default", cfg.Match.Lava.RaiseTime)
	}
}
