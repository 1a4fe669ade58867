// Package cast implements the server-authoritative cast state machine.
//
// An Authority owns one actor's ability states and its active slot. Cast
// requests are validated against the authority clock, begin immediately
// when valid, and end on the first scheduler poll at or after the cast end.
// Invalid requests are dropped without feedback to the requester.
package cast

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/pkg/clock"
	"warlock-arena/internal/resource"
)

// Idle is the active slot of an actor that is not casting.
const Idle = -1

// Snapshot is the replicated cast state of one actor.
type Snapshot struct {
	Abilities  []ability.State `json:"abilities"`
	ActiveSlot int             `json:"activeSlot"`
}

// Notifier receives every replicated change an Authority makes.
type Notifier interface {
	StateChanged(actorID uuid.UUID, snap Snapshot)
	CastBegan(actorID uuid.UUID, slot int, target mgl64.Vec3)
	CastEnded(actorID uuid.UUID, slot int)
}

// Rejection explains why a cast request was dropped.
type Rejection uint8

const (
	Accepted Rejection = iota
	RejectSlotOutOfRange
	RejectAlreadyCasting
	RejectOnCooldown
	RejectPredicate
	RejectUnknownAbility
)

func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectSlotOutOfRange:
		return "slot_out_of_range"
	case RejectAlreadyCasting:
		return "already_casting"
	case RejectOnCooldown:
		return "on_cooldown"
	case RejectPredicate:
		return "predicate"
	case RejectUnknownAbility:
		return "unknown_ability"
	default:
		return "unknown"
	}
}

// Config wires an Authority.
type Config struct {
	ActorID   uuid.UUID
	Caster    ability.Caster
	Loadout   []resource.Hash
	Resolver  ability.Resolver
	Clock     clock.Clock
	Scheduler *Scheduler
	Notifier  Notifier
	Logger    *zap.Logger
}

// Authority is the cast state machine of one actor. It is driven by the
// tick loop and is not safe for concurrent use.
type Authority struct {
	id         uuid.UUID
	caster     ability.Caster
	abilities  []ability.State
	active     int
	generation uint64

	resolver  ability.Resolver
	clock     clock.Clock
	scheduler *Scheduler
	notifier  Notifier
	log       *zap.Logger
}

// NewAuthority creates the authority with every loadout slot ready to cast.
// Every hash must resolve.
func NewAuthority(cfg Config) (*Authority, error) {
	if cfg.Resolver == nil || cfg.Scheduler == nil {
		return nil, apperrors.InvalidArgumentf("cast authority needs a resolver and a scheduler")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	now := cfg.Clock.Now()
	states := make([]ability.State, 0, len(cfg.Loadout))
	for i, h := range cfg.Loadout {
		if _, err := cfg.Resolver.Resolve(h); err != nil {
			return nil, apperrors.Wrapf(err, "loadout slot %d", i)
		}
		states = append(states, ability.NewState(h, now))
	}

	return &Authority{
		id:        cfg.ActorID,
		caster:    cfg.Caster,
		abilities: states,
		active:    Idle,
		resolver:  cfg.Resolver,
		clock:     cfg.Clock,
		scheduler: cfg.Scheduler,
		notifier:  cfg.Notifier,
		log:       cfg.Logger.With(zap.String("actor", cfg.ActorID.String())),
	}, nil
}

// RequestCast validates and, if valid, begins casting slot at target.
// The returned reason is for logging and metrics only.
func (a *Authority) RequestCast(slot int, target mgl64.Vec3) Rejection {
	reason, def := a.validate(slot)
	castRequests.WithLabelValues(reason.String()).Inc()
	if reason != Accepted {
		a.log.Debug("cast request dropped",
			zap.Int("slot", slot),
			zap.Stringer("reason", reason))
		return reason
	}

	a.begin(slot, def, target)
	return Accepted
}

func (a *Authority) validate(slot int) (Rejection, *ability.Definition) {
	if slot < 0 || slot >= len(a.abilities) {
		return RejectSlotOutOfRange, nil
	}
	if a.active != Idle {
		return RejectAlreadyCasting, nil
	}

	now := a.clock.Now()
	st := a.abilities[slot]
	def, err := st.Definition(a.resolver)
	if err != nil {
		a.log.Error("ability hash missing from registry",
			zap.Int("slot", slot),
			zap.Uint32("hash", uint32(st.Hash)),
			zap.Error(err))
		return RejectUnknownAbility, nil
	}

	switch {
	case st.IsCasting(now):
		return RejectAlreadyCasting, nil
	case st.IsOnCooldown(now):
		return RejectOnCooldown, nil
	case !def.CanCast(a.caster):
		return RejectPredicate, nil
	}
	return Accepted, def
}

func (a *Authority) begin(slot int, def *ability.Definition, target mgl64.Vec3) {
	now := a.clock.Now()

	a.generation++
	gen := a.generation
	a.active = slot
	a.abilities[slot].CastEnd = now.Add(def.CastDuration())
	castEnd := a.abilities[slot].CastEnd

	if err := def.Cast(a.caster, target); err != nil {
		a.log.Warn("ability effect failed",
			zap.String("ability", def.Name),
			zap.Error(err))
	}

	a.notifier.StateChanged(a.id, a.Snapshot())
	a.notifier.CastBegan(a.id, slot, target)
	castsBegun.WithLabelValues(def.Name).Inc()

	a.log.Debug("cast begin",
		zap.String("ability", def.Name),
		zap.Int("slot", slot),
		zap.Time("castEnd", castEnd))

	a.scheduler.Schedule(a.id, gen, castEnd, func(now time.Time) {
		a.end(slot, gen, def, now)
	})
}

func (a *Authority) end(slot int, gen uint64, def *ability.Definition, now time.Time) {
	if gen != a.generation || a.active != slot {
		return
	}

	st := &a.abilities[slot]
	castResolveLag.Observe(now.Sub(st.CastEnd).Seconds())

	st.CooldownEnd = now.Add(def.Cooldown())
	a.active = Idle

	a.notifier.StateChanged(a.id, a.Snapshot())
	a.notifier.CastEnded(a.id, slot)
	castsResolved.WithLabelValues(def.Name).Inc()

	a.log.Debug("cast end",
		zap.String("ability", def.Name),
		zap.Int("slot", slot),
		zap.Time("cooldownEnd", st.CooldownEnd))
}

// Close cancels the actor's pending cast end. Call when the actor is removed.
func (a *Authority) Close() {
	a.scheduler.Cancel(a.id)
	a.generation++
}

// ID returns the actor ID.
func (a *Authority) ID() uuid.UUID { return a.id }

// ActiveSlot returns the slot being cast, or Idle.
func (a *Authority) ActiveSlot() int { return a.active }

// IsCasting reports whether a cast is in progress.
func (a *Authority) IsCasting() bool { return a.active != Idle }

// Len returns the number of ability slots.
func (a *Authority) Len() int { return len(a.abilities) }

// State returns a copy of one slot's state.
func (a *Authority) State(slot int) (ability.State, error) {
	if slot < 0 || slot >= len(a.abilities) {
		return ability.State{}, apperrors.InvalidArgumentf("slot %d out of range [0,%d)", slot, len(a.abilities))
	}
	return a.abilities[slot], nil
}

// Snapshot returns a copy of the replicated state.
func (a *Authority) Snapshot() Snapshot {
	states := make([]ability.State, len(a.abilities))
	copy(states, a.abilities)
	return Snapshot{Abilities: states, ActiveSlot: a.active}
}

// CheckInvariant verifies that the active slot and the cast timers agree at
// now. Between a cast end deadline and the tick that resolves it, the slot
// is still active; pass the time of the last completed poll.
func (a *Authority) CheckInvariant(now time.Time) error {
	for i, st := range a.abilities {
		if st.IsCasting(now) && a.active != i {
			return fmt.Errorf("slot %d casting but active slot is %d", i, a.active)
		}
	}
	if a.active != Idle && !a.abilities[a.active].IsCasting(now) && a.scheduler.PendingFor(a.id) == 0 {
		return fmt.Errorf("active slot %d has no pending cast end", a.active)
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) StateChanged(uuid.UUID, Snapshot)     {}
func (nopNotifier) CastBegan(uuid.UUID, int, mgl64.Vec3) {}
func (nopNotifier) CastEnded(uuid.UUID, int)             {}
