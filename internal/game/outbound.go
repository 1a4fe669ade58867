package game

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"warlock-arena/internal/audio"
	"warlock-arena/internal/cast"
)

// ConnID identifies a client connection.
type ConnID string

// Outbound is everything the engine tells observers. Calls happen on the
// tick goroutine with the engine lock held and must not block.
type Outbound interface {
	cast.Notifier
	audio.Sink

	ActorSpawned(v ActorView)
	ActorDespawned(id uuid.UUID)
	ActorMoved(id uuid.UUID, pos mgl64.Vec3)
	HealthChanged(id uuid.UUID, health, maxHealth float64)

	// Targeted at the owning connection only.
	OwnerWarp(conn ConnID, id uuid.UUID, pos mgl64.Vec3, forceGround bool)
	OwnerKnockback(conn ConnID, id uuid.UUID, force mgl64.Vec3)

	ProjectileSpawned(v ProjectileView)
	ProjectileDespawned(id uuid.UUID)
	LavaChanged(v LavaView)
	LobbyChanged(v LobbyView)
}

// NopOutbound drops everything.
type NopOutbound struct{}

func (NopOutbound) StateChanged(uuid.UUID, cast.Snapshot)         {}
func (NopOutbound) CastBegan(uuid.UUID, int, mgl64.Vec3)          {}
func (NopOutbound) CastEnded(uuid.UUID, int)                      {}
func (NopOutbound) AudioPlayed(*audio.Clip, mgl64.Vec3)           {}
func (NopOutbound) ActorSpawned(ActorView)                        {}
func (NopOutbound) ActorDespawned(uuid.UUID)                      {}
func (NopOutbound) ActorMoved(uuid.UUID, mgl64.Vec3)              {}
func (NopOutbound) HealthChanged(uuid.UUID, float64, float64)     {}
func (NopOutbound) OwnerWarp(ConnID, uuid.UUID, mgl64.Vec3, bool) {}
func (NopOutbound) OwnerKnockback(ConnID, uuid.UUID, mgl64.Vec3)  {}
func (NopOutbound) ProjectileSpawned(ProjectileView)              {}
func (NopOutbound) ProjectileDespawned(uuid.UUID)                 {}
func (NopOutbound) LavaChanged(LavaView)                          {}
func (NopOutbound) LobbyChanged(LobbyView)                        {}
