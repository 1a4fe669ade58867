package ability

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Caster is the authority-side view of the actor an ability acts through.
// Aim, Mover and World may return nil when the actor lacks them.
type Caster interface {
	ID() uuid.UUID
	Alive() bool
	Position() mgl64.Vec3
	Aim() Aim
	Mover() Mover
	World() World
}

// Aim exposes where the caster launches from.
type Aim interface {
	CastPosition() mgl64.Vec3
	// CastOffset is CastPosition relative to the caster's position.
	CastOffset() mgl64.Vec3
}

// Mover relocates the caster.
type Mover interface {
	Warp(pos mgl64.Vec3, forceGround bool)
}

// World is the part of the simulation abilities spawn into.
type World interface {
	SpawnProjectile(l ProjectileLaunch) error
	PlayAudioAt(clip string, pos mgl64.Vec3)
}

// ProjectileLaunch describes a projectile to spawn.
type ProjectileLaunch struct {
	Owner   uuid.UUID
	Ability string
	From    mgl64.Vec3
	To      mgl64.Vec3 // Despawns on arrival
	Spec    ProjectileSpec
}

// Presenter receives observer-side cast cosmetics.
type Presenter interface {
	ChannelBegan(actorID uuid.UUID, d *Definition)
	ChannelEnded(actorID uuid.UUID, d *Definition)
}
