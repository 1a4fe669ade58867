package game

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"warlock-arena/internal/ability"
)

// MatchState is the lobby/match phase.
type MatchState string

const (
	MatchLobby MatchState = "lobby"
	MatchGame  MatchState = "game"
)

// ActorView is an immutable copy of an actor's replicated state.
type ActorView struct {
	ID         uuid.UUID       `json:"id"`
	Owner      int             `json:"owner"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Position   mgl64.Vec3      `json:"position"`
	Health     float64         `json:"health"`
	MaxHealth  float64         `json:"maxHealth"`
	Abilities  []ability.State `json:"abilities"`
	ActiveSlot int             `json:"activeSlot"`
}

// ProjectileView is an immutable copy of a projectile.
type ProjectileView struct {
	ID       uuid.UUID  `json:"id"`
	Owner    uuid.UUID  `json:"owner"`
	Ability  string     `json:"ability"`
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
	Speed    float64    `json:"speed"`
	Radius   float64    `json:"radius"`
}

// PlayerView is a lobby slot.
type PlayerView struct {
	Slot         int    `json:"slot"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	Ready        bool   `json:"ready"`
	Score        int    `json:"score"`
	ConnectionID ConnID `json:"connectionId"`
}

// LobbyView is the replicated lobby.
type LobbyView struct {
	State      MatchState   `json:"state"`
	MaxPlayers int          `json:"maxPlayers"`
	Players    []PlayerView `json:"players"`
}

// LavaView is the replicated hazard progress.
type LavaView struct {
	Progress   float64 `json:"progress"`
	Height     float64 `json:"height"`
	SafeRadius float64 `json:"safeRadius"`
}

// SlotStatus is a human-readable view of one ability slot.
type SlotStatus struct {
	Slot              int     `json:"slot"`
	Ability           string  `json:"ability"`
	Casting           bool    `json:"casting"`
	CastRemaining     float64 `json:"castRemaining"`
	CooldownRemaining float64 `json:"cooldownRemaining"`
}

// ActorStatus pairs an actor with its slot timers.
type ActorStatus struct {
	ActorView
	Slots []SlotStatus `json:"slots"`
}

// GameState is the full HTTP-facing view of the engine.
type GameState struct {
	Tick        uint64                 `json:"tick"`
	ServerTime  time.Time              `json:"serverTime"`
	Lobby       LobbyView              `json:"lobby"`
	Actors      []ActorStatus          `json:"actors"`
	Projectiles []ProjectileView       `json:"projectiles"`
	Lava        LavaView               `json:"lava"`
	Scoreboard  []PlayerView           `json:"scoreboard"`
	EventLog    map[string]interface{} `json:"eventLog"`
}
