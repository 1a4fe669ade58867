// Package replication carries authority state to observers over a
// versioned JSON envelope protocol.
//
// The server side (Replicator) turns engine notifications into messages on
// a Transport. The client side (Observer) dispatches incoming messages into
// per-actor mirrors and presentation hooks.
package replication

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"warlock-arena/internal/ability"
	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/game"
	"warlock-arena/internal/resource"
)

// ProtocolVersion is bumped on any incompatible message change.
const ProtocolVersion = 1

// MessageType names a message kind.
type MessageType string

// Server → client.
const (
	TypeHello             MessageType = "hello"
	TypeWorld             MessageType = "world"
	TypeLobby             MessageType = "lobby"
	TypeActorSpawn        MessageType = "actorSpawn"
	TypeActorDespawn      MessageType = "actorDespawn"
	TypeActorState        MessageType = "actorState"
	TypeActorTransform    MessageType = "actorTransform"
	TypeHealth            MessageType = "health"
	TypeCastBegin         MessageType = "castBegin"
	TypeCastEnd           MessageType = "castEnd"
	TypeWarp              MessageType = "warp"
	TypeKnockback         MessageType = "knockback"
	TypeAudio             MessageType = "audio"
	TypeProjectileSpawn   MessageType = "projectileSpawn"
	TypeProjectileDespawn MessageType = "projectileDespawn"
	TypeLava              MessageType = "lava"
)

// Client → server.
const (
	TypeRequestCast MessageType = "requestCast"
	TypeReady       MessageType = "ready"
	TypeMove        MessageType = "move"
)

// Envelope wraps every message.
type Envelope struct {
	V    int             `json:"v"`
	Type MessageType     `json:"type"`
	T    int64           `json:"t"` // Sender clock, unix milliseconds
	Data json.RawMessage `json:"data,omitempty"`
}

// Hello is the first message on every connection.
type Hello struct {
	ConnectionID         game.ConnID `json:"connectionId"`
	Protocol             int         `json:"protocol"`
	AbilitiesFingerprint uint64      `json:"abilitiesFingerprint"`
	AudioFingerprint     uint64      `json:"audioFingerprint"`
}

// World is the full state handed to a connection after it joins.
type World struct {
	You   game.PlayerView `json:"you"`
	World game.WorldView  `json:"world"`
}

type ActorSpawn struct {
	Actor game.ActorView `json:"actor"`
}

type ActorDespawn struct {
	ActorID uuid.UUID `json:"actorId"`
}

// ActorState is the replicated cast state of one actor.
type ActorState struct {
	ActorID    uuid.UUID       `json:"actorId"`
	Abilities  []ability.State `json:"abilities"`
	ActiveSlot int             `json:"activeSlot"`
}

type ActorTransform struct {
	ActorID  uuid.UUID  `json:"actorId"`
	Position mgl64.Vec3 `json:"position"`
}

type Health struct {
	ActorID   uuid.UUID `json:"actorId"`
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"maxHealth"`
}

type CastBegin struct {
	ActorID uuid.UUID  `json:"actorId"`
	Slot    int        `json:"slot"`
	Target  mgl64.Vec3 `json:"target"`
}

type CastEnd struct {
	ActorID uuid.UUID `json:"actorId"`
	Slot    int       `json:"slot"`
}

// Warp is sent to the owning connection only.
type Warp struct {
	ActorID     uuid.UUID  `json:"actorId"`
	Position    mgl64.Vec3 `json:"position"`
	ForceGround bool       `json:"forceGround"`
}

// Knockback is sent to the owning connection only.
type Knockback struct {
	ActorID uuid.UUID  `json:"actorId"`
	Force   mgl64.Vec3 `json:"force"`
}

// Audio carries a clip hash; observers resolve it in their own registry.
type Audio struct {
	Hash     resource.Hash `json:"hash"`
	Position mgl64.Vec3    `json:"position"`
	Spatial  bool          `json:"spatial"`
}

type ProjectileSpawn struct {
	Projectile game.ProjectileView `json:"projectile"`
}

type ProjectileDespawn struct {
	ID uuid.UUID `json:"id"`
}

type RequestCast struct {
	Slot   int        `json:"slot"`
	Target mgl64.Vec3 `json:"target"`
}

type Ready struct{}

type Move struct {
	Position mgl64.Vec3 `json:"position"`
}

// Encode wraps data in a versioned envelope stamped with t (unix ms).
func Encode(typ MessageType, t int64, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, apperrors.Wrapf(err, "encode %s", typ)
	}
	return json.Marshal(Envelope{V: ProtocolVersion, Type: typ, T: t, Data: raw})
}

// Decode parses an envelope. A different protocol version is rejected
// with FailedPrecondition.
func Decode(msg []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return Envelope{}, &apperrors.Error{Code: apperrors.CodeInvalidArgument, Message: "decode envelope", Cause: err}
	}
	if env.V != ProtocolVersion {
		return env, apperrors.FailedPreconditionf("protocol version %d, want %d", env.V, ProtocolVersion).
			WithMeta("version", env.V)
	}
	if env.Type == "" {
		return env, apperrors.InvalidArgumentf("message without type")
	}
	return env, nil
}

// DecodeData unmarshals the envelope payload into v.
func DecodeData(env Envelope, v interface{}) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &apperrors.Error{Code: apperrors.CodeInvalidArgument, Message: "decode " + string(env.Type) + " payload", Cause: err}
	}
	return nil
}

// Command maps a client message to an engine command. Unknown or
// server-only types return nil without error.
func Command(conn game.ConnID, env Envelope) (game.Command, error) {
	switch env.Type {
	case TypeRequestCast:
		var m RequestCast
		if err := DecodeData(env, &m); err != nil {
			return nil, err
		}
		return game.CastCommand{Conn: conn, Slot: m.Slot, Target: m.Target}, nil
	case TypeReady:
		return game.ReadyCommand{Conn: conn}, nil
	case TypeMove:
		var m Move
		if err := DecodeData(env, &m); err != nil {
			return nil, err
		}
		return game.MoveCommand{Conn: conn, Position: m.Position}, nil
	default:
		return nil, nil
	}
}
