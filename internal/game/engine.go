// Package game runs the authoritative arena simulation: lobby, actors,
// their cast authorities, projectiles and the lava hazard.
//
// Everything is mutated on the tick goroutine under Engine.mu. Client
// intents arrive through Submit and are applied at the start of the next
// tick; join, leave and match start take the lock directly.
package game

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/audio"
	"warlock-arena/internal/cast"
	"warlock-arena/internal/config"
	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/game/spatial"
	"warlock-arena/internal/pkg/clock"
	"warlock-arena/internal/resource"
)

// EngineConfig wires an Engine.
type EngineConfig struct {
	Tick       config.TickConfig
	Match      config.MatchConfig
	Limits     config.ResourceLimits
	MaxPlayers int

	Abilities *ability.Registry
	Clips     *audio.Registry
	Clock     clock.Clock
	Outbound  Outbound
	Logger    *zap.Logger
}

// WorldView is everything a newly connected observer needs.
type WorldView struct {
	ServerTime  time.Time        `json:"serverTime"`
	Lobby       LobbyView        `json:"lobby"`
	Actors      []ActorView      `json:"actors"`
	Projectiles []ProjectileView `json:"projectiles"`
	Lava        LavaView         `json:"lava"`
}

// Engine is the authority.
type Engine struct {
	mu sync.RWMutex

	cfg       EngineConfig
	clock     clock.Clock
	log       *zap.Logger
	abilities *ability.Registry
	loadout   []resource.Hash
	scheduler *cast.Scheduler
	outbound  Outbound
	audio     *audio.Relay
	eventLog  *EventLog

	players     []*Player // Indexed by lobby slot
	connSlots   map[ConnID]int
	actors      []*Actor
	projectiles []*Projectile
	grid        *spatial.Grid // Actor indices, rebuilt when stale
	gridStale   bool
	lava        *Lava
	state       MatchState

	inbox     chan Command
	tickCount uint64
	lastTick  time.Time

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}
}

// NewEngine validates the configuration and returns an idle engine.
// Every loadout name must be in the ability registry.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Abilities == nil {
		return nil, apperrors.InvalidArgumentf("engine needs an ability registry")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Outbound == nil {
		cfg.Outbound = NopOutbound{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = config.DefaultServer().MaxPlayers
	}
	if cfg.Tick.Rate <= 0 {
		cfg.Tick = config.DefaultTick()
	}
	if cfg.Limits.InboxSize <= 0 {
		cfg.Limits = config.DefaultLimits()
	}

	loadout := make([]resource.Hash, 0, len(cfg.Match.Loadout))
	for _, name := range cfg.Match.Loadout {
		_, h, ok := cfg.Abilities.Lookup(name)
		if !ok {
			return nil, apperrors.NotFoundf("loadout ability %q is not in the registry", name).
				WithMeta("hash", uint32(h))
		}
		loadout = append(loadout, h)
	}

	log := cfg.Logger.Named("engine")
	e := &Engine{
		cfg:       cfg,
		clock:     cfg.Clock,
		log:       log,
		abilities: cfg.Abilities,
		loadout:   loadout,
		scheduler: cast.NewScheduler(),
		outbound:  cfg.Outbound,
		audio:     audio.NewRelay(cfg.Clips, cfg.Outbound, log),
		eventLog:  NewEventLog(cfg.Logger),
		players:   make([]*Player, cfg.MaxPlayers),
		connSlots: make(map[ConnID]int),
		grid:      spatial.NewGrid(arenaHalfExtent(cfg.Match), 4*ActorRadius, cfg.Limits.MaxActors),
		lava:      NewLava(cfg.Match.Lava),
		state:     MatchLobby,
		inbox:     make(chan Command, cfg.Limits.InboxSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	return e, nil
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(e.cfg.Tick.Interval())
	e.mu.Unlock()

	go func() {
		defer close(e.done)
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	e.log.Info("🎮 engine started", zap.Int("tps", e.cfg.Tick.Rate))
}

// Stop stops the game loop and waits for the current tick to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	e.mu.Unlock()

	<-e.done
	e.log.Info("🛑 engine stopped")
}

// Step runs a single tick synchronously. It is meant for tools and tests
// driving a stopped engine with a manual clock.
func (e *Engine) Step() { e.tick() }

// tick runs one authority step at the clock's current time.
func (e *Engine) tick() {
	started := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var dt float64
	if e.lastTick.IsZero() {
		dt = e.cfg.Tick.Interval().Seconds()
	} else if d := now.Sub(e.lastTick); d > 0 {
		dt = d.Seconds()
	}
	e.lastTick = now
	e.tickCount++

	// Casts due by now end before new requests are looked at; the second
	// poll resolves casts with no cast time that began this tick.
	e.scheduler.Poll(now)
	e.drainInbox(now)
	e.scheduler.Poll(now)

	e.updateProjectiles(dt)
	if e.lava.update(now, e.actors, e.burn) {
		e.outbound.LavaChanged(e.lava.View())
	}
	e.cullDead()
	e.updateMatch()

	e.emit(EventTypeTick, "", TickPayload{
		ActorCount:      len(e.actors),
		ProjectileCount: len(e.projectiles),
		PendingTimers:   e.scheduler.Pending(),
		DeltaTimeNs:     int64(dt * 1e9),
	})

	actorCount.Set(float64(len(e.actors)))
	projectileCount.Set(float64(len(e.projectiles)))
	tickDuration.Observe(time.Since(started).Seconds())
}

func (e *Engine) burn(a *Actor) {
	e.PlayAudioAt(e.cfg.Match.Lava.BurnAudio, a.position)
	a.Damage(e.cfg.Match.Lava.Damage, noOwner)
}

func (e *Engine) spawnActor(owner int, name, color string, pos mgl64.Vec3) (*Actor, error) {
	if len(e.actors) >= e.cfg.Limits.MaxActors {
		return nil, apperrors.ResourceExhaustedf("actor limit %d reached", e.cfg.Limits.MaxActors)
	}

	maxHealth := e.cfg.Match.MaxHealth
	if maxHealth <= 0 {
		maxHealth = config.DefaultMatch().MaxHealth
	}

	a := &Actor{
		id:             uuid.New(),
		owner:          owner,
		name:           name,
		color:          color,
		position:       pos,
		castOffset:     mgl64.Vec3{0, 1, 0},
		health:         maxHealth,
		maxHealth:      maxHealth,
		lastInstigator: noOwner,
		engine:         e,
	}

	auth, err := cast.NewAuthority(cast.Config{
		ActorID:   a.id,
		Caster:    a,
		Loadout:   e.loadout,
		Resolver:  e.abilities,
		Clock:     e.clock,
		Scheduler: e.scheduler,
		Notifier:  castEvents{e},
		Logger:    e.log.Named("cast"),
	})
	if err != nil {
		return nil, err
	}
	a.cast = auth

	e.actors = append(e.actors, a)
	e.outbound.ActorSpawned(a.view())
	e.emit(EventTypeActorSpawn, a.id.String(), ActorPayload{
		ActorID: a.id.String(),
		Owner:   owner,
		X:       pos.X(),
		Z:       pos.Z(),
	})
	return a, nil
}

func (e *Engine) removeActor(a *Actor) {
	for i, other := range e.actors {
		if other != a {
			continue
		}
		copy(e.actors[i:], e.actors[i+1:])
		e.actors[len(e.actors)-1] = nil
		e.actors = e.actors[:len(e.actors)-1]
		break
	}
	a.cast.Close()
	e.outbound.ActorDespawned(a.id)
}

func (e *Engine) cullDead() {
	for i := 0; i < len(e.actors); {
		a := e.actors[i]
		if a.Alive() {
			i++
			continue
		}
		e.removeActor(a)
	}
}

func (e *Engine) actorByID(id uuid.UUID) *Actor {
	for _, a := range e.actors {
		if a.id == id {
			return a
		}
	}
	return nil
}

// actorFor returns the live actor owned by conn's player.
func (e *Engine) actorFor(conn ConnID) *Actor {
	slot, ok := e.connSlots[conn]
	if !ok {
		return nil
	}
	for _, a := range e.actors {
		if a.owner == slot && a.Alive() {
			return a
		}
	}
	return nil
}

func (e *Engine) ownerConn(a *Actor) (ConnID, bool) {
	if a.owner < 0 || a.owner >= len(e.players) || e.players[a.owner] == nil {
		return "", false
	}
	return e.players[a.owner].Conn, true
}

func (e *Engine) emit(t EventType, source string, payload interface{}) {
	e.eventLog.EmitSimple(t, e.clock.Now(), e.tickCount, source, payload)
}

func (e *Engine) abilityName(a *Actor, slot int) string {
	if a == nil {
		return ""
	}
	st, err := a.cast.State(slot)
	if err != nil {
		return ""
	}
	name, _ := e.abilities.NameOf(st.Hash)
	return name
}

// castEvents forwards cast transitions to observers and the event log.
type castEvents struct{ e *Engine }

func (c castEvents) StateChanged(id uuid.UUID, snap cast.Snapshot) {
	c.e.outbound.StateChanged(id, snap)
}

func (c castEvents) CastBegan(id uuid.UUID, slot int, target mgl64.Vec3) {
	c.e.outbound.CastBegan(id, slot, target)
	c.e.emit(EventTypeCastBegin, id.String(), CastPayload{
		ActorID: id.String(),
		Slot:    slot,
		Ability: c.e.abilityName(c.e.actorByID(id), slot),
	})
}

func (c castEvents) CastEnded(id uuid.UUID, slot int) {
	c.e.outbound.CastEnded(id, slot)
	c.e.emit(EventTypeCastEnd, id.String(), CastPayload{
		ActorID: id.String(),
		Slot:    slot,
		Ability: c.e.abilityName(c.e.actorByID(id), slot),
	})
}

// Welcome registers conn like Join and hands the current world to send
// while still holding the lock, so nothing broadcast afterwards can reach
// the connection ahead of it.
func (e *Engine) Welcome(conn ConnID, send func(PlayerView, WorldView)) (PlayerView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.join(conn)
	if err != nil {
		return p, err
	}
	send(p, e.worldView())
	return p, nil
}

func (e *Engine) worldView() WorldView {
	w := WorldView{
		ServerTime:  e.clock.Now(),
		Lobby:       e.lobbyView(),
		Actors:      make([]ActorView, 0, len(e.actors)),
		Projectiles: make([]ProjectileView, 0, len(e.projectiles)),
		Lava:        e.lava.View(),
	}
	for _, a := range e.actors {
		w.Actors = append(w.Actors, a.view())
	}
	for _, p := range e.projectiles {
		w.Projectiles = append(w.Projectiles, p.view())
	}
	return w
}

// GetState returns a consistent view of the engine for the HTTP API.
func (e *Engine) GetState() GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.clock.Now()
	w := e.worldView()

	actors := make([]ActorStatus, 0, len(e.actors))
	for i, a := range e.actors {
		status := ActorStatus{ActorView: w.Actors[i]}
		for slot, st := range status.Abilities {
			name, _ := e.abilities.NameOf(st.Hash)
			status.Slots = append(status.Slots, SlotStatus{
				Slot:              slot,
				Ability:           name,
				Casting:           a.cast.ActiveSlot() == slot,
				CastRemaining:     st.CastRemaining(now).Seconds(),
				CooldownRemaining: st.CooldownRemaining(now).Seconds(),
			})
		}
		actors = append(actors, status)
	}

	return GameState{
		Tick:        e.tickCount,
		ServerTime:  now,
		Lobby:       w.Lobby,
		Actors:      actors,
		Projectiles: w.Projectiles,
		Lava:        w.Lava,
		Scoreboard:  e.scoreboard(),
		EventLog:    e.eventLog.GetStats(),
	}
}

// Abilities returns the ability registry.
func (e *Engine) Abilities() *ability.Registry { return e.abilities }

// Clips returns the audio registry, which may be nil.
func (e *Engine) Clips() *audio.Registry { return e.cfg.Clips }

// Loadout returns the ability hashes every actor starts with.
func (e *Engine) Loadout() []resource.Hash {
	out := make([]resource.Hash, len(e.loadout))
	copy(out, e.loadout)
	return out
}

// StartEventLog starts the JSONL event log at filePath
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the event log
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// RecentEvents returns up to n of the newest logged events.
func (e *Engine) RecentEvents(n int) []Event {
	return e.eventLog.Recent(n)
}

// Now returns the authority clock's time.
func (e *Engine) Now() time.Time { return e.clock.Now() }
