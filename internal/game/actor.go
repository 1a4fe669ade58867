package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/cast"
)

const (
	// ActorRadius is the horizontal hit radius of an actor.
	ActorRadius = 0.5

	// KnockbackDisplacement converts an impulse into a position change for
	// actors without an owning client to simulate it.
	KnockbackDisplacement = 0.1

	noOwner = -1
)

// Actor is a warlock in the arena. It implements ability.Caster.
// All fields are guarded by the engine lock.
type Actor struct {
	id         uuid.UUID
	owner      int // Lobby slot, noOwner once the player leaves
	name       string
	color      string
	position   mgl64.Vec3
	castOffset mgl64.Vec3

	health         float64
	maxHealth      float64
	dead           bool
	lastInstigator int

	cast   *cast.Authority
	engine *Engine
}

// ID returns the actor ID.
func (a *Actor) ID() uuid.UUID { return a.id }

// Alive reports whether the actor still has health.
func (a *Actor) Alive() bool { return !a.dead && a.health > 0 }

// Position returns the authoritative position.
func (a *Actor) Position() mgl64.Vec3 { return a.position }

// Aim returns the actor's cast origin.
func (a *Actor) Aim() ability.Aim { return actorAim{a} }

// Mover returns the actor itself.
func (a *Actor) Mover() ability.Mover { return a }

// World returns the engine.
func (a *Actor) World() ability.World { return a.engine }

// Owner returns the owning lobby slot, or -1.
func (a *Actor) Owner() int { return a.owner }

// Cast returns the actor's cast authority.
func (a *Actor) Cast() *cast.Authority { return a.cast }

type actorAim struct{ a *Actor }

func (aim actorAim) CastPosition() mgl64.Vec3 { return aim.a.position.Add(aim.a.castOffset) }
func (aim actorAim) CastOffset() mgl64.Vec3   { return aim.a.castOffset }

// Warp relocates the actor. The owning client gets a targeted correction.
func (a *Actor) Warp(pos mgl64.Vec3, forceGround bool) {
	if forceGround {
		pos[1] = 0
	}
	a.position = pos

	e := a.engine
	e.outbound.ActorMoved(a.id, pos)
	if conn, ok := e.ownerConn(a); ok {
		e.outbound.OwnerWarp(conn, a.id, pos, forceGround)
	}
	e.emit(EventTypeWarp, a.id.String(), WarpPayload{ActorID: a.id.String(), To: pos})
}

// Knockback pushes the actor. The owning client simulates the impulse;
// an unowned actor is displaced on the server.
func (a *Actor) Knockback(force mgl64.Vec3) {
	e := a.engine
	if conn, ok := e.ownerConn(a); ok {
		e.outbound.OwnerKnockback(conn, a.id, force)
		return
	}
	a.position = a.position.Add(force.Mul(KnockbackDisplacement))
	e.outbound.ActorMoved(a.id, a.position)
}

// Damage removes health. instigator is the lobby slot credited with a kill,
// or -1 to keep the previous one.
func (a *Actor) Damage(value float64, instigator int) {
	if value < 0 {
		a.engine.log.Warn("negative damage ignored, use Heal", zap.Float64("value", value))
		return
	}
	if a.dead {
		return
	}

	a.health = math.Max(0, a.health-value)
	if instigator >= 0 {
		a.lastInstigator = instigator
	}

	e := a.engine
	e.outbound.HealthChanged(a.id, a.health, a.maxHealth)
	e.emit(EventTypeDamage, a.id.String(), DamagePayload{
		ActorID:    a.id.String(),
		Instigator: instigator,
		Damage:     value,
		Health:     a.health,
	})

	if a.health <= 0 {
		a.Kill()
	}
}

// Heal restores health up to the maximum. Dead actors need resurrect.
func (a *Actor) Heal(value float64, resurrect bool) {
	if value < 0 {
		a.engine.log.Warn("negative heal ignored, use Damage", zap.Float64("value", value))
		return
	}
	if a.dead && !resurrect {
		return
	}
	a.dead = false
	a.health = math.Min(a.health+value, a.maxHealth)
	a.engine.outbound.HealthChanged(a.id, a.health, a.maxHealth)
}

// Kill zeroes health, credits the last instigator and marks the actor for
// removal at the end of the tick.
func (a *Actor) Kill() {
	if a.dead {
		return
	}
	a.health = 0
	a.dead = true

	e := a.engine
	e.playerKilled(a.lastInstigator)
	e.emit(EventTypeActorDeath, a.id.String(), ActorPayload{
		ActorID:    a.id.String(),
		Owner:      a.owner,
		Instigator: a.lastInstigator,
		X:          a.position.X(),
		Z:          a.position.Z(),
	})
	a.lastInstigator = noOwner
}

func (a *Actor) view() ActorView {
	snap := a.cast.Snapshot()
	return ActorView{
		ID:         a.id,
		Owner:      a.owner,
		Name:       a.name,
		Color:      a.color,
		Position:   a.position,
		Health:     a.health,
		MaxHealth:  a.maxHealth,
		Abilities:  snap.Abilities,
		ActiveSlot: snap.ActiveSlot,
	}
}

// horizontalDistance ignores height.
func horizontalDistance(a, b mgl64.Vec3) float64 {
	dx, dz := a.X()-b.X(), a.Z()-b.Z()
	return math.Hypot(dx, dz)
}
