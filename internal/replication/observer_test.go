package replication

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/cast"
	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/pkg/clock"
	"warlock-arena/internal/resource"
)

func TestObserverMirrorsCastTimeline(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	b := h.connect("b")
	require.NoError(t, h.engine.StartMatch())
	h.flush()

	own, ok := a.observer.Own()
	require.True(t, ok)
	require.Len(t, own.Abilities, 3)
	require.Len(t, b.observer.Actors(), 2)
	assert.True(t, a.observer.CanCast(0))

	sent, err := a.observer.TryCast(0, mgl64.Vec3{0, 1, 0})
	require.NoError(t, err)
	require.True(t, sent)
	h.stepAt(0)

	for _, c := range []*client{a, b} {
		assert.Equal(t, 1, c.presenter.count("began"), "conn %s", c.conn)
		assert.Equal(t, 1, c.presenter.count("active"), "conn %s", c.conn)
		assert.Contains(t, c.presenter.audio, "Cast")
	}
	mirror, _ := b.observer.Actor(own.ID)
	assert.Equal(t, 0, mirror.ActiveSlot)
	assert.False(t, a.observer.CanCast(1), "own actor is casting")

	h.stepAt(500 * time.Millisecond)
	for _, c := range []*client{a, b} {
		assert.Equal(t, 1, c.presenter.count("ended"), "conn %s", c.conn)
		assert.Equal(t, 2, c.presenter.count("active"), "conn %s", c.conn)
	}
	mirror, _ = b.observer.Actor(own.ID)
	assert.Equal(t, cast.Idle, mirror.ActiveSlot)
	assert.True(t, mirror.Abilities[0].CooldownEnd.Equal(h.epoch.Add(5500*time.Millisecond)))

	assert.False(t, a.observer.CanCast(0), "slot 0 on cooldown")
	assert.True(t, a.observer.CanCast(1))

	h.clock.Set(h.epoch.Add(5500 * time.Millisecond))
	assert.True(t, a.observer.CanCast(0))
}

func TestObserverCanCastNeedsLivingActor(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	require.NoError(t, h.engine.StartMatch())
	h.flush()

	own, ok := a.observer.Own()
	require.True(t, ok)
	require.True(t, a.observer.CanCast(0))

	require.NoError(t, a.observer.Handle(mustEncode(t, TypeHealth, Health{
		ActorID:   own.ID,
		Health:    0,
		MaxHealth: own.MaxHealth,
	})))
	assert.False(t, a.observer.CanCast(0))
	assert.False(t, a.observer.CanCast(2), "movement abilities need a living caster too")

	sent, err := a.observer.TryCast(0, mgl64.Vec3{0, 1, 0})
	require.NoError(t, err)
	assert.False(t, sent)
	h.stepAt(0)
	assert.Equal(t, 0, a.presenter.count("began"))
}

func TestObserverServerRevalidates(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	require.NoError(t, h.engine.StartMatch())
	h.flush()

	for i := 0; i < 3; i++ {
		require.NoError(t, a.observer.RequestCast(0, mgl64.Vec3{0, 1, 0}))
	}
	require.NoError(t, a.observer.RequestCast(9, mgl64.Vec3{0, 1, 0}))
	h.stepAt(0)

	assert.Equal(t, 1, a.presenter.count("began"))

	require.NoError(t, a.observer.RequestCast(0, mgl64.Vec3{0, 1, 0}))
	h.stepAt(time.Second)
	assert.Equal(t, 1, a.presenter.count("began"), "cooldown bypass")
	assert.Equal(t, 1, a.presenter.count("ended"))
}

func TestObserverWarpIsTargeted(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	b := h.connect("b")
	require.NoError(t, h.engine.StartMatch())
	h.flush()

	own, _ := a.observer.Own()
	sent, err := a.observer.TryCast(2, own.Position.Add(mgl64.Vec3{2, 1, 0}))
	require.NoError(t, err)
	require.True(t, sent)
	h.stepAt(0)

	assert.Equal(t, 1, a.presenter.count("warped"))
	assert.Equal(t, 0, b.presenter.count("warped"))

	moved, _ := b.observer.Actor(own.ID)
	assert.InDelta(t, own.Position.X()+2, moved.Position.X(), 1e-9)
}

func TestObserverOwnerLeavesMidCast(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a")
	b := h.connect("b")
	require.NoError(t, h.engine.StartMatch())
	h.flush()

	own, _ := a.observer.Own()
	_, err := a.observer.TryCast(1, mgl64.Vec3{0, 1, 0})
	require.NoError(t, err)
	h.stepAt(0)

	h.engine.Leave("a")
	h.stepAt(500 * time.Millisecond)
	assert.Equal(t, 0, b.presenter.count("ended"))

	h.stepAt(time.Second)
	assert.Equal(t, 1, b.presenter.count("ended"))
	mirror, _ := b.observer.Actor(own.ID)
	assert.Equal(t, cast.Idle, mirror.ActiveSlot)
	assert.True(t, mirror.Abilities[1].CooldownEnd.Equal(h.epoch.Add(9*time.Second)))
}

// Broadcast effects and replicated state may arrive in either order.
func TestObserverEitherArrivalOrder(t *testing.T) {
	abilities, _ := loadRegistries(t)
	_, fireball, _ := abilities.Lookup("Fireball")
	id := uuid.New()
	now := time.Unix(100, 0)

	spawn := mustEncode(t, TypeActorSpawn, ActorSpawn{Actor: gameActor(id, fireball, now)})
	state := mustEncode(t, TypeActorState, ActorState{
		ActorID:    id,
		Abilities:  []ability.State{{Hash: fireball, CooldownEnd: now, CastEnd: now.Add(time.Second)}},
		ActiveSlot: 0,
	})
	begin := mustEncode(t, TypeCastBegin, CastBegin{ActorID: id, Slot: 0})

	tests := []struct {
		name  string
		order [][]byte
	}{
		{"state first", [][]byte{spawn, state, begin}},
		{"broadcast first", [][]byte{spawn, begin, state}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPresenter{}
			o, err := NewObserver(ObserverConfig{Abilities: abilities, Presenter: p})
			require.NoError(t, err)

			for _, msg := range tt.order {
				require.NoError(t, o.Handle(msg))
			}
			assert.Equal(t, 1, p.count("began"))
			assert.Equal(t, 1, p.count("active"))

			m, ok := o.Actor(id)
			require.True(t, ok)
			assert.Equal(t, 0, m.ActiveSlot)
		})
	}
}

func TestObserverFingerprintMismatch(t *testing.T) {
	abilities, clips := loadRegistries(t)

	warpOnly, err := resource.Build("ability", []resource.Entry[*ability.Definition]{
		{Name: "Warp", Value: ability.New("Warp", ability.KindMovement)},
	}, nil)
	require.NoError(t, err)

	hello := mustEncode(t, TypeHello, Hello{
		ConnectionID:         "x",
		Protocol:             ProtocolVersion,
		AbilitiesFingerprint: abilities.Fingerprint(),
		AudioFingerprint:     clips.Fingerprint(),
	})

	o, err := NewObserver(ObserverConfig{Abilities: warpOnly})
	require.NoError(t, err)
	err = o.Handle(hello)
	assert.True(t, apperrors.IsFailedPrecondition(err), "got %v", err)
	assert.False(t, o.Connected())

	o, err = NewObserver(ObserverConfig{Abilities: abilities, Clips: clips})
	require.NoError(t, err)
	require.NoError(t, o.Handle(hello))
	assert.True(t, o.Connected())
	assert.EqualValues(t, "x", o.ConnID())
}

func TestObserverIgnoresUnknownTypes(t *testing.T) {
	abilities, _ := loadRegistries(t)
	o, err := NewObserver(ObserverConfig{Abilities: abilities})
	require.NoError(t, err)

	assert.NoError(t, o.Handle(mustEncode(t, "emote", map[string]string{"kind": "wave"})))
	assert.NoError(t, o.Handle(mustEncode(t, TypeCastBegin, CastBegin{ActorID: uuid.New(), Slot: 0})))

	err = o.Handle([]byte(`{"v":2,"type":"hello","t":0}`))
	assert.True(t, apperrors.IsFailedPrecondition(err), "got %v", err)
}

func TestServerClockConverges(t *testing.T) {
	local := clock.NewManual(time.Unix(1000, 0))
	c := NewServerClock(local)
	assert.False(t, c.Synced())

	c.Observe(time.Unix(1002, 0))
	assert.True(t, c.Synced())
	assert.Equal(t, 2*time.Second, c.Offset())
	assert.True(t, c.Now().Equal(time.Unix(1002, 0)))

	for i := 0; i < 200; i++ {
		c.Observe(local.Now().Add(time.Second))
	}
	assert.InDelta(t, float64(time.Second), float64(c.Offset()), float64(10*time.Millisecond))
}
