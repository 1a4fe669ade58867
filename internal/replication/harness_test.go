package replication

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/audio"
	"warlock-arena/internal/cast"
	"warlock-arena/internal/config"
	"warlock-arena/internal/game"
	"warlock-arena/internal/pkg/clock"
	"warlock-arena/internal/resource"
)

type hookCall struct {
	kind  string
	actor uuid.UUID
	name  string
	a, b  int
}

// recordingPresenter captures observer-side hooks in arrival order.
type recordingPresenter struct {
	calls []hookCall
	audio []string
}

func (p *recordingPresenter) ChannelBegan(id uuid.UUID, d *ability.Definition) {
	p.calls = append(p.calls, hookCall{kind: "began", actor: id, name: d.Name})
}

func (p *recordingPresenter) ChannelEnded(id uuid.UUID, d *ability.Definition) {
	p.calls = append(p.calls, hookCall{kind: "ended", actor: id, name: d.Name})
}

func (p *recordingPresenter) ActiveSlotChanged(id uuid.UUID, prev, next int) {
	p.calls = append(p.calls, hookCall{kind: "active", actor: id, a: prev, b: next})
}

func (p *recordingPresenter) PlayAudio(c *audio.Clip, _ mgl64.Vec3) {
	p.audio = append(p.audio, c.Name)
}

func (p *recordingPresenter) Warped(id uuid.UUID, _ mgl64.Vec3, _ bool) {
	p.calls = append(p.calls, hookCall{kind: "warped", actor: id})
}

func (p *recordingPresenter) KnockedBack(id uuid.UUID, _ mgl64.Vec3) {
	p.calls = append(p.calls, hookCall{kind: "knockback", actor: id})
}

func (p *recordingPresenter) count(kind string) int {
	n := 0
	for _, c := range p.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

// loopback is an in-memory Transport queueing per connection until flush.
type loopback struct {
	mu      sync.Mutex
	order   []game.ConnID
	pending map[game.ConnID][][]byte
}

func newLoopback() *loopback {
	return &loopback{pending: make(map[game.ConnID][][]byte)}
}

func (l *loopback) add(conn game.ConnID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, conn)
	l.pending[conn] = nil
}

func (l *loopback) Broadcast(msg []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for conn := range l.pending {
		l.pending[conn] = append(l.pending[conn], msg)
	}
}

func (l *loopback) SendTo(conn game.ConnID, msg []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.pending[conn]; !ok {
		return false
	}
	l.pending[conn] = append(l.pending[conn], msg)
	return true
}

func (l *loopback) take(conn game.ConnID) [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := l.pending[conn]
	l.pending[conn] = nil
	return msgs
}

type client struct {
	conn      game.ConnID
	observer  *Observer
	presenter *recordingPresenter
}

type harness struct {
	t         *testing.T
	epoch     time.Time
	clock     *clock.Manual
	abilities *ability.Registry
	clips     *audio.Registry
	engine    *game.Engine
	rep       *Replicator
	wire      *loopback
	clients   map[game.ConnID]*client
}

func loadRegistries(t *testing.T) (*ability.Registry, *audio.Registry) {
	t.Helper()
	abilities, err := ability.LoadRegistry(ability.EmbeddedCatalog(), ability.CatalogDir, nil)
	require.NoError(t, err)
	clips, err := audio.LoadRegistry(audio.EmbeddedClips(), audio.ClipsDir, nil)
	require.NoError(t, err)
	return abilities, clips
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	abilities, clips := loadRegistries(t)
	epoch := time.Unix(1_700_000_000, 0)
	mc := clock.NewManual(epoch)
	wire := newLoopback()
	rep := NewReplicator(wire, mc, nil)

	engine, err := game.NewEngine(game.EngineConfig{
		Tick:      config.DefaultTick(),
		Match:     config.DefaultMatch(),
		Limits:    config.DefaultLimits(),
		Abilities: abilities,
		Clips:     clips,
		Clock:     mc,
		Outbound:  rep,
	})
	require.NoError(t, err)

	return &harness{
		t:         t,
		epoch:     epoch,
		clock:     mc,
		abilities: abilities,
		clips:     clips,
		engine:    engine,
		rep:       rep,
		wire:      wire,
		clients:   make(map[game.ConnID]*client),
	}
}

// connect runs the server-side connect sequence for conn.
func (h *harness) connect(conn game.ConnID) *client {
	h.t.Helper()

	p := &recordingPresenter{}
	o, err := NewObserver(ObserverConfig{
		Abilities: h.abilities,
		Clips:     h.clips,
		Presenter: p,
		Clock:     h.clock,
		Send: func(msg []byte) error {
			env, err := Decode(msg)
			if err != nil {
				return err
			}
			cmd, err := Command(conn, env)
			if err != nil || cmd == nil {
				return err
			}
			h.engine.Submit(cmd)
			return nil
		},
	})
	require.NoError(h.t, err)

	c := &client{conn: conn, observer: o, presenter: p}
	h.clients[conn] = c
	h.wire.add(conn)
	h.rep.Hello(conn, h.abilities.Fingerprint(), h.clips.Fingerprint())
	_, err = h.engine.Welcome(conn, h.rep.Welcome(conn))
	require.NoError(h.t, err)
	h.flush()
	return c
}

// flush delivers every queued message in order.
func (h *harness) flush() {
	h.t.Helper()
	for conn, c := range h.clients {
		for _, msg := range h.wire.take(conn) {
			require.NoError(h.t, c.observer.Handle(msg), "conn %s", conn)
		}
	}
}

// stepAt advances the shared clock, ticks the engine and delivers output.
func (h *harness) stepAt(at time.Duration) {
	h.t.Helper()
	h.clock.Set(h.epoch.Add(at))
	h.engine.Step()
	h.flush()
}

func mustEncode(t *testing.T, typ MessageType, data interface{}) []byte {
	t.Helper()
	msg, err := Encode(typ, 0, data)
	require.NoError(t, err)
	return msg
}

func gameActor(id uuid.UUID, h resource.Hash, now time.Time) game.ActorView {
	return game.ActorView{
		ID:         id,
		Owner:      0,
		Name:       "Warlock (Red)",
		Health:     100,
		MaxHealth:  100,
		Abilities:  []ability.State{ability.NewState(h, now)},
		ActiveSlot: cast.Idle,
	}
}
