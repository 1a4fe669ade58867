package replication

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"warlock-arena/internal/audio"
	"warlock-arena/internal/cast"
	"warlock-arena/internal/game"
	"warlock-arena/internal/pkg/clock"
)

// Transport delivers encoded messages. Both calls must preserve per
// connection order and must not block.
type Transport interface {
	Broadcast(msg []byte)
	SendTo(conn game.ConnID, msg []byte) bool
}

// Replicator implements game.Outbound on top of a Transport.
type Replicator struct {
	transport Transport
	clock     clock.Clock
	log       *zap.Logger
}

var _ game.Outbound = (*Replicator)(nil)

// NewReplicator returns a Replicator stamping messages with c.
func NewReplicator(t Transport, c clock.Clock, log *zap.Logger) *Replicator {
	if c == nil {
		c = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Replicator{transport: t, clock: c, log: log.Named("replication")}
}

func (r *Replicator) encode(typ MessageType, data interface{}) []byte {
	msg, err := Encode(typ, r.clock.Now().UnixMilli(), data)
	if err != nil {
		encodeErrors.Inc()
		r.log.Error("encode failed", zap.String("type", string(typ)), zap.Error(err))
		return nil
	}
	return msg
}

func (r *Replicator) broadcast(typ MessageType, data interface{}) {
	if msg := r.encode(typ, data); msg != nil {
		r.transport.Broadcast(msg)
		messagesSent.WithLabelValues(string(typ)).Inc()
	}
}

func (r *Replicator) sendTo(conn game.ConnID, typ MessageType, data interface{}) bool {
	msg := r.encode(typ, data)
	if msg == nil {
		return false
	}
	if !r.transport.SendTo(conn, msg) {
		targetedMissed.WithLabelValues(string(typ)).Inc()
		r.log.Debug("targeted message dropped", zap.String("type", string(typ)), zap.String("conn", string(conn)))
		return false
	}
	messagesSent.WithLabelValues(string(typ)).Inc()
	return true
}

func hello(conn game.ConnID, abilitiesFP, audioFP uint64) Hello {
	return Hello{
		ConnectionID:         conn,
		Protocol:             ProtocolVersion,
		AbilitiesFingerprint: abilitiesFP,
		AudioFingerprint:     audioFP,
	}
}

// Hello greets conn with the protocol version and registry fingerprints.
func (r *Replicator) Hello(conn game.ConnID, abilitiesFP, audioFP uint64) bool {
	return r.sendTo(conn, TypeHello, hello(conn, abilitiesFP, audioFP))
}

// HelloMessage encodes the greeting for a transport to queue itself,
// ahead of anything broadcast once the connection is registered.
func (r *Replicator) HelloMessage(conn game.ConnID, abilitiesFP, audioFP uint64) []byte {
	msg := r.encode(TypeHello, hello(conn, abilitiesFP, audioFP))
	if msg != nil {
		messagesSent.WithLabelValues(string(TypeHello)).Inc()
	}
	return msg
}

// Welcome hands conn the world it joined. Pass it to Engine.Welcome.
func (r *Replicator) Welcome(conn game.ConnID) func(game.PlayerView, game.WorldView) {
	return func(you game.PlayerView, w game.WorldView) {
		r.sendTo(conn, TypeWorld, World{You: you, World: w})
	}
}

func (r *Replicator) StateChanged(id uuid.UUID, s cast.Snapshot) {
	r.broadcast(TypeActorState, ActorState{ActorID: id, Abilities: s.Abilities, ActiveSlot: s.ActiveSlot})
}

func (r *Replicator) CastBegan(id uuid.UUID, slot int, target mgl64.Vec3) {
	r.broadcast(TypeCastBegin, CastBegin{ActorID: id, Slot: slot, Target: target})
}

func (r *Replicator) CastEnded(id uuid.UUID, slot int) {
	r.broadcast(TypeCastEnd, CastEnd{ActorID: id, Slot: slot})
}

func (r *Replicator) AudioPlayed(c *audio.Clip, pos mgl64.Vec3) {
	r.broadcast(TypeAudio, Audio{Hash: c.Hash, Position: pos, Spatial: c.Spatial})
}

func (r *Replicator) ActorSpawned(v game.ActorView) {
	r.broadcast(TypeActorSpawn, ActorSpawn{Actor: v})
}

func (r *Replicator) ActorDespawned(id uuid.UUID) {
	r.broadcast(TypeActorDespawn, ActorDespawn{ActorID: id})
}

func (r *Replicator) ActorMoved(id uuid.UUID, pos mgl64.Vec3) {
	r.broadcast(TypeActorTransform, ActorTransform{ActorID: id, Position: pos})
}

func (r *Replicator) HealthChanged(id uuid.UUID, health, maxHealth float64) {
	r.broadcast(TypeHealth, Health{ActorID: id, Health: health, MaxHealth: maxHealth})
}

func (r *Replicator) OwnerWarp(conn game.ConnID, id uuid.UUID, pos mgl64.Vec3, forceGround bool) {
	r.sendTo(conn, TypeWarp, Warp{ActorID: id, Position: pos, ForceGround: forceGround})
}

func (r *Replicator) OwnerKnockback(conn game.ConnID, id uuid.UUID, force mgl64.Vec3) {
	r.sendTo(conn, TypeKnockback, Knockback{ActorID: id, Force: force})
}

func (r *Replicator) ProjectileSpawned(v game.ProjectileView) {
	r.broadcast(TypeProjectileSpawn, ProjectileSpawn{Projectile: v})
}

func (r *Replicator) ProjectileDespawned(id uuid.UUID) {
	r.broadcast(TypeProjectileDespawn, ProjectileDespawn{ID: id})
}

func (r *Replicator) LavaChanged(v game.LavaView) {
	r.broadcast(TypeLava, v)
}

func (r *Replicator) LobbyChanged(v game.LobbyView) {
	r.broadcast(TypeLobby, v)
}
