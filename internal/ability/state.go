package ability

import (
	"time"

	"warlock-arena/internal/resource"
)

// State is the replicated per-slot record of one ability.
// Hash never changes after creation; only the authority moves the timers.
type State struct {
	Hash        resource.Hash `json:"hash"`
	CooldownEnd time.Time     `json:"cooldownEnd"`
	CastEnd     time.Time     `json:"castEnd"`
}

// NewState returns a ready-to-cast state for the ability with hash h.
func NewState(h resource.Hash, now time.Time) State {
	return State{Hash: h, CooldownEnd: now, CastEnd: now}
}

// CooldownRemaining returns the time until the cooldown ends, never negative.
func (s State) CooldownRemaining(now time.Time) time.Duration {
	return remaining(s.CooldownEnd, now)
}

// CastRemaining returns the time until the cast ends, never negative.
func (s State) CastRemaining(now time.Time) time.Duration {
	return remaining(s.CastEnd, now)
}

func (s State) IsOnCooldown(now time.Time) bool { return s.CooldownRemaining(now) > 0 }
func (s State) IsCasting(now time.Time) bool    { return s.CastRemaining(now) > 0 }

// Definition resolves the state's definition. A miss means the registry and
// the loadout disagree, which is a configuration error.
func (s State) Definition(r Resolver) (*Definition, error) {
	return r.Resolve(s.Hash)
}

// CanCast combines the definition predicate with both timers.
func (s State) CanCast(r Resolver, c Caster, now time.Time) (bool, error) {
	d, err := s.Definition(r)
	if err != nil {
		return false, err
	}
	return d.CanCast(c) && !s.IsOnCooldown(now) && !s.IsCasting(now), nil
}

func remaining(end, now time.Time) time.Duration {
	if d := end.Sub(now); d > 0 {
		return d
	}
	return 0
}
