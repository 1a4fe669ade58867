package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeActorSpawn
	EventTypeActorDeath
	EventTypeCastBegin
	EventTypeCastEnd
	EventTypeCastRejected
	EventTypeDamage
	EventTypeWarp
	EventTypeMatchStart
	EventTypeMatchEnd
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Name      string          `json:"name"`
	Timestamp int64           `json:"timestamp"` // Unix nano, authority clock
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`
	SourceID  string          `json:"sourceId,omitempty"` // Rate limiting key
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeActorSpawn:
		return "actor_spawn"
	case EventTypeActorDeath:
		return "actor_death"
	case EventTypeCastBegin:
		return "cast_begin"
	case EventTypeCastEnd:
		return "cast_end"
	case EventTypeCastRejected:
		return "cast_rejected"
	case EventTypeDamage:
		return "damage"
	case EventTypeWarp:
		return "warp"
	case EventTypeMatchStart:
		return "match_start"
	case EventTypeMatchEnd:
		return "match_end"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// TickPayload contains tick boundary information
type TickPayload struct {
	ActorCount      int   `json:"actorCount"`
	ProjectileCount int   `json:"projectileCount"`
	PendingTimers   int   `json:"pendingTimers"`
	DeltaTimeNs     int64 `json:"deltaTimeNs"`
}

// PlayerPayload describes a lobby slot change
type PlayerPayload struct {
	Slot         int    `json:"slot"`
	Name         string `json:"name"`
	ConnectionID string `json:"connectionId"`
}

// ActorPayload describes an actor spawn or death
type ActorPayload struct {
	ActorID    string  `json:"actorId"`
	Owner      int     `json:"owner"`
	Instigator int     `json:"instigator,omitempty"`
	X          float64 `json:"x"`
	Z          float64 `json:"z"`
}

// CastPayload describes a cast transition or rejection
type CastPayload struct {
	ActorID string `json:"actorId"`
	Slot    int    `json:"slot"`
	Ability string `json:"ability,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	ActorID    string  `json:"actorId"`
	Instigator int     `json:"instigator"`
	Damage     float64 `json:"damage"`
	Health     float64 `json:"health"`
}

// WarpPayload records an authoritative relocation
type WarpPayload struct {
	ActorID string     `json:"actorId"`
	To      [3]float64 `json:"to"`
}

// MatchPayload records match transitions
type MatchPayload struct {
	Players int `json:"players"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event stamped at now
func NewEvent(eventType EventType, now time.Time, tickNum uint64, sourceID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Name:      eventType.String(),
		Timestamp: now.UnixNano(),
		TickNum:   tickNum,
		SourceID:  sourceID,
		Payload:   EncodePayload(payload),
	}
}
