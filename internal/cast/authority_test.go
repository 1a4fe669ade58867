package cast

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"warlock-arena/internal/ability"
	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/pkg/clock"
	"warlock-arena/internal/resource"
)

type event struct {
	kind string
	slot int
}

type recordingNotifier struct {
	events    []event
	snapshots []Snapshot
}

func (n *recordingNotifier) StateChanged(_ uuid.UUID, s Snapshot) {
	n.snapshots = append(n.snapshots, s)
}

func (n *recordingNotifier) CastBegan(_ uuid.UUID, slot int, _ mgl64.Vec3) {
	n.events = append(n.events, event{"begin", slot})
}

func (n *recordingNotifier) CastEnded(_ uuid.UUID, slot int) {
	n.events = append(n.events, event{"end", slot})
}

func (n *recordingNotifier) count(kind string) int {
	c := 0
	for _, e := range n.events {
		if e.kind == kind {
			c++
		}
	}
	return c
}

type stubCaster struct {
	id    uuid.UUID
	alive bool
}

func (c *stubCaster) ID() uuid.UUID        { return c.id }
func (c *stubCaster) Alive() bool          { return c.alive }
func (c *stubCaster) Position() mgl64.Vec3 { return mgl64.Vec3{} }
func (c *stubCaster) Aim() ability.Aim     { return nil }
func (c *stubCaster) Mover() ability.Mover { return nil }
func (c *stubCaster) World() ability.World { return nil }

type AuthorityTestSuite struct {
	suite.Suite

	epoch     time.Time
	clock     *clock.Manual
	scheduler *Scheduler
	notifier  *recordingNotifier
	registry  *ability.Registry
	caster    *stubCaster
	auth      *Authority
}

func (s *AuthorityTestSuite) SetupTest() {
	s.epoch = time.Unix(1_700_000_000, 0)
	s.clock = clock.NewManual(s.epoch)
	s.scheduler = NewScheduler()
	s.notifier = &recordingNotifier{}

	bolt := ability.New("Bolt", ability.KindMovement)
	bolt.CooldownSeconds = 5
	bolt.CastSeconds = 1
	blink := ability.New("Blink", ability.KindMovement)
	blink.CooldownSeconds = 2
	blink.CastSeconds = 0

	reg, err := resource.Build("ability", []resource.Entry[*ability.Definition]{
		{Name: bolt.Name, Value: bolt},
		{Name: blink.Name, Value: blink},
	}, nil)
	s.Require().NoError(err)
	s.registry = reg

	s.caster = &stubCaster{id: uuid.New(), alive: true}
	s.auth = s.newAuthority(bolt.Hash, blink.Hash, resource.StableHash("Bolt"))
}

func (s *AuthorityTestSuite) newAuthority(loadout ...resource.Hash) *Authority {
	a, err := NewAuthority(Config{
		ActorID:   s.caster.id,
		Caster:    s.caster,
		Loadout:   loadout,
		Resolver:  s.registry,
		Clock:     s.clock,
		Scheduler: s.scheduler,
		Notifier:  s.notifier,
	})
	s.Require().NoError(err)
	return a
}

// tick advances to epoch+at and polls, like one authority tick.
func (s *AuthorityTestSuite) tick(at time.Duration) {
	now := s.epoch.Add(at)
	s.clock.Set(now)
	s.scheduler.Poll(now)
	s.Require().NoError(s.auth.CheckInvariant(now))
}

func (s *AuthorityTestSuite) TestCooldownAndCastTimeline() {
	s.Equal(Accepted, s.auth.RequestCast(0, mgl64.Vec3{1, 0, 0}))
	st, _ := s.auth.State(0)
	s.Equal(s.epoch.Add(time.Second), st.CastEnd)
	s.Equal(0, s.auth.ActiveSlot())

	s.tick(500 * time.Millisecond)
	s.True(s.auth.IsCasting(), "never ends early")

	s.tick(time.Second)
	s.Equal(Idle, s.auth.ActiveSlot())
	st, _ = s.auth.State(0)
	s.Equal(s.epoch.Add(6*time.Second), st.CooldownEnd)

	s.tick(3 * time.Second)
	s.Equal(RejectOnCooldown, s.auth.RequestCast(0, mgl64.Vec3{}))

	s.tick(7 * time.Second)
	s.Equal(Accepted, s.auth.RequestCast(0, mgl64.Vec3{}))

	s.Equal([]event{{"begin", 0}, {"end", 0}, {"begin", 0}}, s.notifier.events)
}

func (s *AuthorityTestSuite) TestEndFiresOnFirstTickPastDeadline() {
	s.Require().Equal(Accepted, s.auth.RequestCast(0, mgl64.Vec3{}))

	s.tick(1033 * time.Millisecond)
	s.False(s.auth.IsCasting())

	st, _ := s.auth.State(0)
	s.Equal(s.epoch.Add(1033*time.Millisecond+5*time.Second), st.CooldownEnd,
		"cooldown counts from the tick that resolved the cast")
}

func (s *AuthorityTestSuite) TestDuplicateRequestsBeginOnce() {
	s.Equal(Accepted, s.auth.RequestCast(0, mgl64.Vec3{}))
	s.Equal(RejectAlreadyCasting, s.auth.RequestCast(0, mgl64.Vec3{}))
	s.Equal(RejectAlreadyCasting, s.auth.RequestCast(1, mgl64.Vec3{}))

	s.tick(time.Second)
	s.tick(2 * time.Second)

	s.Equal(1, s.notifier.count("begin"))
	s.Equal(1, s.notifier.count("end"))
}

func (s *AuthorityTestSuite) TestOutOfRangeSlotIsDropped() {
	before := s.auth.Snapshot()

	s.Equal(RejectSlotOutOfRange, s.auth.RequestCast(5, mgl64.Vec3{}))
	s.Equal(RejectSlotOutOfRange, s.auth.RequestCast(-1, mgl64.Vec3{}))

	s.Equal(before, s.auth.Snapshot())
	s.Empty(s.notifier.events)
	s.Empty(s.notifier.snapshots)
}

func (s *AuthorityTestSuite) TestPredicateFailure() {
	s.caster.alive = false
	s.Equal(RejectPredicate, s.auth.RequestCast(0, mgl64.Vec3{}))
	s.Equal(Idle, s.auth.ActiveSlot())
}

func (s *AuthorityTestSuite) TestZeroCastTimeResolvesOnNextPoll() {
	s.Equal(Accepted, s.auth.RequestCast(1, mgl64.Vec3{}))
	s.Equal(1, s.auth.ActiveSlot())

	s.tick(0)
	s.Equal(Idle, s.auth.ActiveSlot())
	st, _ := s.auth.State(1)
	s.Equal(s.epoch.Add(2*time.Second), st.CooldownEnd)
}

func (s *AuthorityTestSuite) TestSlotsShareHashButNotTimers() {
	s.Equal(Accepted, s.auth.RequestCast(0, mgl64.Vec3{}))
	s.tick(time.Second)

	s.Equal(Accepted, s.auth.RequestCast(2, mgl64.Vec3{}), "slot 2 has its own cooldown")
}

func (s *AuthorityTestSuite) TestCloseCancelsPendingEnd() {
	s.Equal(Accepted, s.auth.RequestCast(0, mgl64.Vec3{}))
	s.Equal(1, s.scheduler.PendingFor(s.caster.id))

	s.auth.Close()
	s.Equal(0, s.scheduler.Pending())

	s.clock.Set(s.epoch.Add(2 * time.Second))
	s.scheduler.Poll(s.clock.Now())
	s.Equal(0, s.notifier.count("end"))
}

func (s *AuthorityTestSuite) TestSnapshotsTrackActiveSlot() {
	s.auth.RequestCast(0, mgl64.Vec3{})
	s.tick(time.Second)

	s.Require().Len(s.notifier.snapshots, 2)
	s.Equal(0, s.notifier.snapshots[0].ActiveSlot)
	s.Equal(Idle, s.notifier.snapshots[1].ActiveSlot)

	s.notifier.snapshots[0].Abilities[0].Hash = 0
	st, _ := s.auth.State(0)
	s.NotZero(st.Hash, "snapshots are copies")
}

func TestAuthoritySuite(t *testing.T) {
	suite.Run(t, new(AuthorityTestSuite))
}

func TestNewAuthorityRejectsUnknownHash(t *testing.T) {
	reg, err := resource.Build("ability", []resource.Entry[*ability.Definition]{
		{Name: "Warp", Value: ability.New("Warp", ability.KindMovement)},
	}, nil)
	require.NoError(t, err)

	_, err = NewAuthority(Config{
		ActorID:   uuid.New(),
		Loadout:   []resource.Hash{resource.StableHash("Warp"), resource.StableHash("Fireball")},
		Resolver:  reg,
		Scheduler: NewScheduler(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "loadout slot 1")

	_, err = NewAuthority(Config{})
	assert.True(t, apperrors.IsInvalidArgument(err))
}

type flakyResolver struct {
	reg  *ability.Registry
	miss bool
}

func (f *flakyResolver) Resolve(h resource.Hash) (*ability.Definition, error) {
	if f.miss {
		return nil, apperrors.NotFoundf("gone")
	}
	return f.reg.Resolve(h)
}

func TestUnknownHashAtRequestIsDropped(t *testing.T) {
	reg, err := resource.Build("ability", []resource.Entry[*ability.Definition]{
		{Name: "Warp", Value: ability.New("Warp", ability.KindMovement)},
	}, nil)
	require.NoError(t, err)

	res := &flakyResolver{reg: reg}
	n := &recordingNotifier{}
	a, err := NewAuthority(Config{
		ActorID:   uuid.New(),
		Caster:    &stubCaster{alive: true},
		Loadout:   []resource.Hash{resource.StableHash("Warp")},
		Resolver:  res,
		Scheduler: NewScheduler(),
		Notifier:  n,
	})
	require.NoError(t, err)

	res.miss = true
	assert.Equal(t, RejectUnknownAbility, a.RequestCast(0, mgl64.Vec3{}))
	assert.Equal(t, Idle, a.ActiveSlot())
	assert.Empty(t, n.events)
}

func TestRejectionStrings(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "on_cooldown", RejectOnCooldown.String())
	assert.Equal(t, "unknown", Rejection(99).String())
}
