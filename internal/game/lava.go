package game

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"warlock-arena/internal/config"
)

// Lava rises from the platform rim while a match runs, shrinking the safe
// area and burning actors standing outside it.
type Lava struct {
	cfg      config.LavaConfig
	moving   bool
	start    time.Time
	progress float64
	sent     float64 // Last progress sent to observers

	victims map[uuid.UUID]time.Time // Last damage (or entry) time
}

// NewLava returns an idle hazard.
func NewLava(cfg config.LavaConfig) *Lava {
	return &Lava{cfg: cfg, sent: -1, victims: make(map[uuid.UUID]time.Time)}
}

// Enable starts rising from now.
func (l *Lava) Enable(now time.Time) {
	l.moving = true
	l.start = now
	l.progress = 0
}

// Disable resets the hazard.
func (l *Lava) Disable() {
	l.moving = false
	l.progress = 0
	l.sent = -1
	clear(l.victims)
}

// Progress is the normalized rise in [0,1].
func (l *Lava) Progress() float64 { return l.progress }

// SafeRadius is the horizontal radius that is not covered.
func (l *Lava) SafeRadius() float64 {
	return l.cfg.PlatformRadius - (l.cfg.PlatformRadius-l.cfg.MinSafeRadius)*l.progress
}

// View returns the replicated state.
func (l *Lava) View() LavaView {
	return LavaView{
		Progress:   l.progress,
		Height:     l.cfg.DefaultHeight + l.progress*l.cfg.MaxHeight,
		SafeRadius: l.SafeRadius(),
	}
}

// update advances progress and burns victims. It reports whether the
// replicated view changed enough to resend.
func (l *Lava) update(now time.Time, actors []*Actor, burn func(a *Actor)) bool {
	if !l.moving {
		return false
	}

	if l.cfg.RaiseTime > 0 {
		l.progress = clamp01(float64(now.Sub(l.start)) / float64(l.cfg.RaiseTime))
	} else {
		l.progress = 1
	}

	safe := l.SafeRadius()
	inside := make(map[uuid.UUID]struct{}, len(l.victims))
	for _, a := range actors {
		if !a.Alive() || horizontalDistance(a.position, mgl64.Vec3{}) <= safe {
			continue
		}
		inside[a.id] = struct{}{}

		last, ok := l.victims[a.id]
		if !ok {
			l.victims[a.id] = now
			continue
		}
		if now.Sub(last) >= l.cfg.DamageInterval {
			l.victims[a.id] = now
			burn(a)
		}
	}
	for id := range l.victims {
		if _, ok := inside[id]; !ok {
			delete(l.victims, id)
		}
	}

	if l.progress-l.sent >= 0.01 || (l.progress == 1 && l.sent != 1) {
		l.sent = l.progress
		return true
	}
	return false
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
