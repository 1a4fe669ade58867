package replication

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/audio"
	"warlock-arena/internal/cast"
	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/game"
	"warlock-arena/internal/pkg/clock"
)

// Presenter receives observer-side cosmetics. None of it feeds back into
// gameplay state.
type Presenter interface {
	ability.Presenter

	// ActiveSlotChanged fires from the replicated active slot alone,
	// whether or not the matching castBegin has arrived yet.
	ActiveSlotChanged(actorID uuid.UUID, prev, next int)
	PlayAudio(clip *audio.Clip, pos mgl64.Vec3)
	Warped(actorID uuid.UUID, pos mgl64.Vec3, forceGround bool)
	KnockedBack(actorID uuid.UUID, force mgl64.Vec3)
}

// NopPresenter ignores everything.
type NopPresenter struct{}

func (NopPresenter) ChannelBegan(uuid.UUID, *ability.Definition) {}
func (NopPresenter) ChannelEnded(uuid.UUID, *ability.Definition) {}
func (NopPresenter) ActiveSlotChanged(uuid.UUID, int, int)       {}
func (NopPresenter) PlayAudio(*audio.Clip, mgl64.Vec3)           {}
func (NopPresenter) Warped(uuid.UUID, mgl64.Vec3, bool)          {}
func (NopPresenter) KnockedBack(uuid.UUID, mgl64.Vec3)           {}

// Mirror is an observer's read-only copy of one actor.
type Mirror struct {
	ID         uuid.UUID
	Owner      int
	Name       string
	Position   mgl64.Vec3
	Health     float64
	MaxHealth  float64
	Abilities  []ability.State
	ActiveSlot int
}

func (m *Mirror) copy() Mirror {
	c := *m
	c.Abilities = append([]ability.State(nil), m.Abilities...)
	return c
}

// ObserverConfig wires an Observer.
type ObserverConfig struct {
	Abilities *ability.Registry
	Clips     *audio.Registry
	Presenter Presenter
	Send      func(msg []byte) error
	Clock     clock.Clock
	Logger    *zap.Logger
}

type handler func(o *Observer, env Envelope) error

// Observer mirrors authority state on a client. Feed every received
// message to Handle from a single goroutine.
type Observer struct {
	mu sync.Mutex

	abilities *ability.Registry
	clips     *audio.Registry
	presenter Presenter
	send      func(msg []byte) error
	local     clock.Clock
	clock     *ServerClock
	log       *zap.Logger
	handlers  map[MessageType]handler

	conn        game.ConnID
	helloSeen   bool
	you         game.PlayerView
	joined      bool
	actors      map[uuid.UUID]*Mirror
	projectiles map[uuid.UUID]game.ProjectileView
	lobby       game.LobbyView
	lava        game.LavaView
}

// NewObserver returns an Observer. The ability registry is required.
func NewObserver(cfg ObserverConfig) (*Observer, error) {
	if cfg.Abilities == nil {
		return nil, apperrors.InvalidArgumentf("observer needs an ability registry")
	}
	if cfg.Presenter == nil {
		cfg.Presenter = NopPresenter{}
	}
	if cfg.Send == nil {
		cfg.Send = func([]byte) error { return nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	o := &Observer{
		abilities:   cfg.Abilities,
		clips:       cfg.Clips,
		presenter:   cfg.Presenter,
		send:        cfg.Send,
		local:       cfg.Clock,
		clock:       NewServerClock(cfg.Clock),
		log:         cfg.Logger.Named("observer"),
		actors:      make(map[uuid.UUID]*Mirror),
		projectiles: make(map[uuid.UUID]game.ProjectileView),
	}
	o.handlers = map[MessageType]handler{
		TypeHello:             (*Observer).onHello,
		TypeWorld:             (*Observer).onWorld,
		TypeLobby:             (*Observer).onLobby,
		TypeActorSpawn:        (*Observer).onActorSpawn,
		TypeActorDespawn:      (*Observer).onActorDespawn,
		TypeActorState:        (*Observer).onActorState,
		TypeActorTransform:    (*Observer).onActorTransform,
		TypeHealth:            (*Observer).onHealth,
		TypeCastBegin:         (*Observer).onCastBegin,
		TypeCastEnd:           (*Observer).onCastEnd,
		TypeWarp:              (*Observer).onWarp,
		TypeKnockback:         (*Observer).onKnockback,
		TypeAudio:             (*Observer).onAudio,
		TypeProjectileSpawn:   (*Observer).onProjectileSpawn,
		TypeProjectileDespawn: (*Observer).onProjectileDespawn,
		TypeLava:              (*Observer).onLava,
	}
	return o, nil
}

// Handle decodes and dispatches one message. Unknown types are ignored;
// a protocol or registry mismatch is returned and the caller should
// disconnect.
func (o *Observer) Handle(msg []byte) error {
	env, err := Decode(msg)
	if err != nil {
		return err
	}
	if env.T > 0 {
		o.clock.Observe(time.UnixMilli(env.T))
	}

	h, ok := o.handlers[env.Type]
	if !ok {
		o.log.Debug("unknown message ignored", zap.String("type", string(env.Type)))
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return h(o, env)
}

func (o *Observer) onHello(env Envelope) error {
	var m Hello
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	if m.Protocol != ProtocolVersion {
		return apperrors.FailedPreconditionf("server protocol %d, want %d", m.Protocol, ProtocolVersion)
	}
	if fp := o.abilities.Fingerprint(); m.AbilitiesFingerprint != fp {
		return apperrors.FailedPreconditionf("ability registry mismatch").
			WithMeta("server", m.AbilitiesFingerprint).
			WithMeta("local", fp)
	}
	if o.clips != nil && m.AudioFingerprint != o.clips.Fingerprint() {
		return apperrors.FailedPreconditionf("audio registry mismatch").
			WithMeta("server", m.AudioFingerprint).
			WithMeta("local", o.clips.Fingerprint())
	}

	o.conn = m.ConnectionID
	o.helloSeen = true
	o.log.Info("🤝 connected", zap.String("conn", string(m.ConnectionID)))
	return nil
}

func (o *Observer) onWorld(env Envelope) error {
	var m World
	if err := DecodeData(env, &m); err != nil {
		return err
	}

	o.you = m.You
	o.joined = true
	o.lobby = m.World.Lobby
	o.lava = m.World.Lava

	clear(o.actors)
	for _, v := range m.World.Actors {
		o.spawn(v)
	}
	clear(o.projectiles)
	for _, p := range m.World.Projectiles {
		o.projectiles[p.ID] = p
	}
	return nil
}

func (o *Observer) onLobby(env Envelope) error {
	var m game.LobbyView
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	o.lobby = m
	for _, p := range m.Players {
		if p.ConnectionID == o.conn {
			o.you = p
		}
	}
	return nil
}

func (o *Observer) onActorSpawn(env Envelope) error {
	var m ActorSpawn
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	o.spawn(m.Actor)
	return nil
}

func (o *Observer) spawn(v game.ActorView) {
	m := &Mirror{
		ID:         v.ID,
		Owner:      v.Owner,
		Name:       v.Name,
		Position:   v.Position,
		Health:     v.Health,
		MaxHealth:  v.MaxHealth,
		Abilities:  append([]ability.State(nil), v.Abilities...),
		ActiveSlot: cast.Idle,
	}
	o.actors[v.ID] = m
	o.setActive(m, v.ActiveSlot)
}

func (o *Observer) onActorDespawn(env Envelope) error {
	var m ActorDespawn
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	delete(o.actors, m.ActorID)
	return nil
}

func (o *Observer) onActorState(env Envelope) error {
	var m ActorState
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	mirror, ok := o.actors[m.ActorID]
	if !ok {
		mirror = &Mirror{ID: m.ActorID, Owner: -1, ActiveSlot: cast.Idle}
		o.actors[m.ActorID] = mirror
	}
	mirror.Abilities = m.Abilities
	o.setActive(mirror, m.ActiveSlot)
	return nil
}

// setActive is the change hook on the replicated active slot.
func (o *Observer) setActive(m *Mirror, next int) {
	prev := m.ActiveSlot
	m.ActiveSlot = next
	if prev != next {
		o.presenter.ActiveSlotChanged(m.ID, prev, next)
	}
}

func (o *Observer) onActorTransform(env Envelope) error {
	var m ActorTransform
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	if mirror, ok := o.actors[m.ActorID]; ok {
		mirror.Position = m.Position
	}
	return nil
}

func (o *Observer) onHealth(env Envelope) error {
	var m Health
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	if mirror, ok := o.actors[m.ActorID]; ok {
		mirror.Health = m.Health
		mirror.MaxHealth = m.MaxHealth
	}
	return nil
}

// definitionFor resolves the ability in an actor's slot from the mirror.
func (o *Observer) definitionFor(id uuid.UUID, slot int) *ability.Definition {
	m, ok := o.actors[id]
	if !ok || slot < 0 || slot >= len(m.Abilities) {
		o.log.Debug("cast effect for unknown actor or slot",
			zap.String("actor", id.String()), zap.Int("slot", slot))
		return nil
	}
	def, err := m.Abilities[slot].Definition(o.abilities)
	if err != nil {
		o.log.Warn("cast effect for unknown ability", zap.Int("slot", slot), zap.Error(err))
		return nil
	}
	return def
}

func (o *Observer) onCastBegin(env Envelope) error {
	var m CastBegin
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	if def := o.definitionFor(m.ActorID, m.Slot); def != nil {
		def.OnCastBegin(o.presenter, m.ActorID)
	}
	return nil
}

func (o *Observer) onCastEnd(env Envelope) error {
	var m CastEnd
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	if def := o.definitionFor(m.ActorID, m.Slot); def != nil {
		def.OnCastEnd(o.presenter, m.ActorID)
	}
	return nil
}

func (o *Observer) onWarp(env Envelope) error {
	var m Warp
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	if mirror, ok := o.actors[m.ActorID]; ok {
		mirror.Position = m.Position
	}
	o.presenter.Warped(m.ActorID, m.Position, m.ForceGround)
	return nil
}

func (o *Observer) onKnockback(env Envelope) error {
	var m Knockback
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	o.presenter.KnockedBack(m.ActorID, m.Force)
	return nil
}

func (o *Observer) onAudio(env Envelope) error {
	var m Audio
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	if o.clips == nil {
		return nil
	}
	clip, err := o.clips.Resolve(m.Hash)
	if err != nil {
		o.log.Warn("unknown audio hash", zap.Uint32("hash", uint32(m.Hash)))
		return nil
	}
	o.presenter.PlayAudio(clip, m.Position)
	return nil
}

func (o *Observer) onProjectileSpawn(env Envelope) error {
	var m ProjectileSpawn
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	o.projectiles[m.Projectile.ID] = m.Projectile
	return nil
}

func (o *Observer) onProjectileDespawn(env Envelope) error {
	var m ProjectileDespawn
	if err := DecodeData(env, &m); err != nil {
		return err
	}
	delete(o.projectiles, m.ID)
	return nil
}

func (o *Observer) onLava(env Envelope) error {
	return DecodeData(env, &o.lava)
}

// own returns the mirror of the actor this connection controls.
func (o *Observer) own() *Mirror {
	if !o.joined {
		return nil
	}
	for _, m := range o.actors {
		if m.Owner == o.you.Slot {
			return m
		}
	}
	return nil
}

// CanCast is the advisory client-side check. The authority re-validates
// every request regardless.
func (o *Observer) CanCast(slot int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canCast(slot)
}

func (o *Observer) canCast(slot int) bool {
	m := o.own()
	if m == nil || m.ActiveSlot != cast.Idle || slot < 0 || slot >= len(m.Abilities) {
		return false
	}
	ok, err := m.Abilities[slot].CanCast(o.abilities, mirrorCaster{m}, o.clock.Now())
	return err == nil && ok
}

// mirrorCaster presents a replicated actor to the ability predicates.
// It has no aim, mover or world, so it must never reach Cast.
type mirrorCaster struct{ m *Mirror }

func (c mirrorCaster) ID() uuid.UUID        { return c.m.ID }
func (c mirrorCaster) Alive() bool          { return c.m.Health > 0 }
func (c mirrorCaster) Position() mgl64.Vec3 { return c.m.Position }
func (c mirrorCaster) Aim() ability.Aim     { return nil }
func (c mirrorCaster) Mover() ability.Mover { return nil }
func (c mirrorCaster) World() ability.World { return nil }

// TryCast sends requestCast when the advisory check passes. It reports
// whether a request was sent.
func (o *Observer) TryCast(slot int, target mgl64.Vec3) (bool, error) {
	o.mu.Lock()
	ok := o.canCast(slot)
	o.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := o.RequestCast(slot, target); err != nil {
		return false, err
	}
	return true, nil
}

// RequestCast sends requestCast without any local check.
func (o *Observer) RequestCast(slot int, target mgl64.Vec3) error {
	return o.sendMessage(TypeRequestCast, RequestCast{Slot: slot, Target: target})
}

// Ready toggles this connection's ready flag.
func (o *Observer) Ready() error {
	return o.sendMessage(TypeReady, Ready{})
}

// Move reports the locally simulated position of the own actor.
func (o *Observer) Move(pos mgl64.Vec3) error {
	return o.sendMessage(TypeMove, Move{Position: pos})
}

func (o *Observer) sendMessage(typ MessageType, data interface{}) error {
	msg, err := Encode(typ, o.local.Now().UnixMilli(), data)
	if err != nil {
		return err
	}
	return o.send(msg)
}

// Actor returns a copy of the mirror for id.
func (o *Observer) Actor(id uuid.UUID) (Mirror, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.actors[id]
	if !ok {
		return Mirror{}, false
	}
	return m.copy(), true
}

// Own returns a copy of the controlled actor's mirror.
func (o *Observer) Own() (Mirror, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m := o.own()
	if m == nil {
		return Mirror{}, false
	}
	return m.copy(), true
}

// Actors returns copies of every mirrored actor.
func (o *Observer) Actors() []Mirror {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Mirror, 0, len(o.actors))
	for _, m := range o.actors {
		out = append(out, m.copy())
	}
	return out
}

func (o *Observer) ConnID() game.ConnID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn
}

func (o *Observer) Connected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.helloSeen
}

func (o *Observer) You() game.PlayerView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.you
}

func (o *Observer) Lobby() game.LobbyView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lobby
}

func (o *Observer) Lava() game.LavaView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lava
}

func (o *Observer) ProjectileCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.projectiles)
}

// ServerClock returns the observer's estimate of the authority clock.
func (o *Observer) ServerClock() *ServerClock { return o.clock }
