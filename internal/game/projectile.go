package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/config"
	apperrors "warlock-arena/internal/errors"
)

// Projectile is a moving ability effect. It travels to its target and is
// removed on the tick after it arrives, so it still gets one collision check
// at its final position.
type Projectile struct {
	ID         uuid.UUID
	Caster     uuid.UUID // Actor that cast it; never hit by it
	Instigator int       // Lobby slot credited for damage
	Ability    string

	Position mgl64.Vec3
	Target   mgl64.Vec3
	Forward  mgl64.Vec3 // Unit direction of travel

	Spec  ability.ProjectileSpec
	dying bool
}

func (p *Projectile) view() ProjectileView {
	return ProjectileView{
		ID:       p.ID,
		Owner:    p.Caster,
		Ability:  p.Ability,
		Position: p.Position,
		Target:   p.Target,
		Speed:    p.Spec.Speed,
		Radius:   p.Spec.Radius,
	}
}

// SpawnProjectile implements ability.World.
func (e *Engine) SpawnProjectile(l ability.ProjectileLaunch) error {
	if len(e.projectiles) >= e.cfg.Limits.MaxProjectiles {
		return apperrors.ResourceExhaustedf("projectile limit %d reached", e.cfg.Limits.MaxProjectiles)
	}

	instigator := noOwner
	if caster := e.actorByID(l.Owner); caster != nil {
		instigator = caster.owner
	}

	forward := l.To.Sub(l.From)
	if forward.Len() > 0 {
		forward = forward.Normalize()
	}

	p := &Projectile{
		ID:         uuid.New(),
		Caster:     l.Owner,
		Instigator: instigator,
		Ability:    l.Ability,
		Position:   l.From,
		Target:     l.To,
		Forward:    forward,
		Spec:       l.Spec,
	}
	e.projectiles = append(e.projectiles, p)
	e.outbound.ProjectileSpawned(p.view())
	return nil
}

// PlayAudioAt implements ability.World.
func (e *Engine) PlayAudioAt(clip string, pos mgl64.Vec3) {
	e.audio.PlayAt(clip, pos)
}

// updateProjectiles removes projectiles that arrived last tick, then moves
// the rest and resolves hits.
func (e *Engine) updateProjectiles(dt float64) {
	alive := e.projectiles[:0]
	for _, p := range e.projectiles {
		if p.dying {
			e.outbound.ProjectileDespawned(p.ID)
			continue
		}
		alive = append(alive, p)
	}
	for i := len(alive); i < len(e.projectiles); i++ {
		e.projectiles[i] = nil
	}
	e.projectiles = alive
	e.gridStale = true

	kept := e.projectiles[:0]
	for _, p := range e.projectiles {
		e.moveProjectile(p, dt)
		if victim := e.projectileHit(p); victim != nil {
			e.applyProjectileHit(p, victim)
			e.gridStale = true
			e.outbound.ProjectileDespawned(p.ID)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(e.projectiles); i++ {
		e.projectiles[i] = nil
	}
	e.projectiles = kept
}

func (e *Engine) moveProjectile(p *Projectile, dt float64) {
	delta := p.Target.Sub(p.Position)
	dist := delta.Len()
	step := p.Spec.Speed * dt

	if dist <= step {
		p.dying = true
	}
	if dist > 0 {
		p.Position = p.Position.Add(delta.Normalize().Mul(math.Min(dist, step)))
	}
}

// arenaHalfExtent sizes the broad-phase grid to cover the spawn ring and
// the lava platform with room for knockback.
func arenaHalfExtent(m config.MatchConfig) float64 {
	r := math.Max(m.SpawnRadius, m.Lava.PlatformRadius)
	if r <= 0 {
		r = 10
	}
	return 2 * r
}

// indexActors rebuilds the broad-phase grid from current actor positions.
func (e *Engine) indexActors() {
	e.grid.Clear()
	for i, a := range e.actors {
		e.grid.Insert(uint32(i), a.position.X(), a.position.Z())
	}
	e.gridStale = false
}

// projectileHit returns the first actor, in spawn order, that p touches.
func (e *Engine) projectileHit(p *Projectile) *Actor {
	if e.gridStale {
		e.indexActors()
	}

	reach := p.Spec.Radius + ActorRadius
	var hit *Actor
	first := len(e.actors)
	for _, idx := range e.grid.QueryRadius(p.Position.X(), p.Position.Z(), reach) {
		i := int(idx)
		if i >= first {
			continue
		}
		a := e.actors[i]
		if a.id == p.Caster || !a.Alive() {
			continue
		}
		if horizontalDistance(a.position, p.Position) <= reach {
			hit, first = a, i
		}
	}
	return hit
}

func (e *Engine) applyProjectileHit(p *Projectile, victim *Actor) {
	dir := mgl64.Vec3{p.Forward.X(), 0, p.Forward.Z()}
	victim.Knockback(dir.Mul(p.Spec.Knockback))
	victim.Damage(p.Spec.Damage, p.Instigator)

	if p.Spec.ImpactAudio != "" {
		e.PlayAudioAt(p.Spec.ImpactAudio, victim.position)
	}

	e.log.Debug("projectile hit",
		zap.String("ability", p.Ability),
		zap.String("victim", victim.id.String()),
		zap.Float64("damage", p.Spec.Damage))
}
