package game

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/audio"
	"warlock-arena/internal/cast"
	"warlock-arena/internal/config"
	"warlock-arena/internal/pkg/clock"
	"warlock-arena/internal/resource"
)

type castCall struct {
	actor uuid.UUID
	slot  int
}

type ownerCall struct {
	conn  ConnID
	actor uuid.UUID
	vec   mgl64.Vec3
}

// recordingOutbound captures every observer-facing call.
type recordingOutbound struct {
	NopOutbound

	mu          sync.Mutex
	began       []castCall
	ended       []castCall
	snapshots   map[uuid.UUID]cast.Snapshot
	warps       []ownerCall
	knockbacks  []ownerCall
	audio       []string
	spawned     []ActorView
	despawned   []uuid.UUID
	health      map[uuid.UUID]float64
	lobbies     []LobbyView
	lava        []LavaView
	projectiles int
}

func newRecordingOutbound() *recordingOutbound {
	return &recordingOutbound{
		snapshots: make(map[uuid.UUID]cast.Snapshot),
		health:    make(map[uuid.UUID]float64),
	}
}

func (r *recordingOutbound) StateChanged(id uuid.UUID, s cast.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[id] = s
}

func (r *recordingOutbound) CastBegan(id uuid.UUID, slot int, _ mgl64.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.began = append(r.began, castCall{id, slot})
}

func (r *recordingOutbound) CastEnded(id uuid.UUID, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, castCall{id, slot})
}

func (r *recordingOutbound) AudioPlayed(c *audio.Clip, _ mgl64.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio = append(r.audio, c.Name)
}

func (r *recordingOutbound) ActorSpawned(v ActorView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawned = append(r.spawned, v)
}

func (r *recordingOutbound) ActorDespawned(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.despawned = append(r.despawned, id)
}

func (r *recordingOutbound) HealthChanged(id uuid.UUID, health, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health[id] = health
}

func (r *recordingOutbound) OwnerWarp(conn ConnID, id uuid.UUID, pos mgl64.Vec3, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warps = append(r.warps, ownerCall{conn, id, pos})
}

func (r *recordingOutbound) OwnerKnockback(conn ConnID, id uuid.UUID, force mgl64.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.knockbacks = append(r.knockbacks, ownerCall{conn, id, force})
}

func (r *recordingOutbound) ProjectileSpawned(ProjectileView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projectiles++
}

func (r *recordingOutbound) LobbyChanged(v LobbyView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies = append(r.lobbies, v)
}

func (r *recordingOutbound) LavaChanged(v LavaView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lava = append(r.lava, v)
}

type testEngine struct {
	*Engine
	t     *testing.T
	clock *clock.Manual
	out   *recordingOutbound
	epoch time.Time
}

func testAbilities(t *testing.T) *ability.Registry {
	t.Helper()

	bolt := ability.New("Bolt", ability.KindProjectile)
	bolt.CooldownSeconds = 5
	bolt.CastSeconds = 1
	bolt.Range = 10
	bolt.CastAudio = "Cast"
	bolt.Projectile = &ability.ProjectileSpec{Speed: 10, Damage: 10, Knockback: 15, Radius: 0.5, ImpactAudio: "Impact"}

	blink := ability.New("Blink", ability.KindMovement)
	blink.CooldownSeconds = 2
	blink.CastSeconds = 0
	blink.Range = 5

	reg, err := resource.Build("ability", []resource.Entry[*ability.Definition]{
		{Name: bolt.Name, Value: bolt},
		{Name: blink.Name, Value: blink},
	}, nil)
	if err != nil {
		t.Fatalf("build abilities: %v", err)
	}
	return reg
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	clips, err := audio.LoadRegistry(audio.EmbeddedClips(), audio.ClipsDir, nil)
	if err != nil {
		t.Fatalf("load clips: %v", err)
	}

	match := config.DefaultMatch()
	match.Loadout = []string{"Bolt", "Blink"}

	epoch := time.Unix(1_700_000_000, 0)
	mc := clock.NewManual(epoch)
	out := newRecordingOutbound()

	e, err := NewEngine(EngineConfig{
		Tick:       config.DefaultTick(),
		Match:      match,
		Limits:     config.DefaultLimits(),
		MaxPlayers: 6,
		Abilities:  testAbilities(t),
		Clips:      clips,
		Clock:      mc,
		Outbound:   out,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.StartEventLog(""); err != nil {
		t.Fatalf("StartEventLog: %v", err)
	}
	t.Cleanup(e.StopEventLog)

	return &testEngine{Engine: e, t: t, clock: mc, out: out, epoch: epoch}
}

// tickAt sets the clock to epoch+at and runs one tick.
func (te *testEngine) tickAt(at time.Duration) {
	te.clock.Set(te.epoch.Add(at))
	te.tick()
	for _, a := range te.actors {
		if err := a.cast.CheckInvariant(te.clock.Now()); err != nil {
			te.t.Fatalf("tick %v: %v", at, err)
		}
	}
}

// startMatchWith joins n connections and starts the match.
func (te *testEngine) startMatchWith(conns ...ConnID) []*Actor {
	te.t.Helper()
	for _, c := range conns {
		if _, err := te.Join(c); err != nil {
			te.t.Fatalf("Join(%s): %v", c, err)
		}
	}
	if err := te.StartMatch(); err != nil {
		te.t.Fatalf("StartMatch: %v", err)
	}
	actors := make([]*Actor, len(conns))
	for i, c := range conns {
		actors[i] = te.actorFor(c)
		if actors[i] == nil {
			te.t.Fatalf("no actor for %s", c)
		}
	}
	return actors
}
