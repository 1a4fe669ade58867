package ability

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type fakeAim struct{ pos, offset mgl64.Vec3 }

func (a *fakeAim) CastPosition() mgl64.Vec3 { return a.pos }
func (a *fakeAim) CastOffset() mgl64.Vec3   { return a.offset }

type warpCall struct {
	pos         mgl64.Vec3
	forceGround bool
}

type fakeMover struct{ warps []warpCall }

func (m *fakeMover) Warp(pos mgl64.Vec3, forceGround bool) {
	m.warps = append(m.warps, warpCall{pos, forceGround})
}

type audioCall struct {
	clip string
	pos  mgl64.Vec3
}

type fakeWorld struct {
	launches []ProjectileLaunch
	audio    []audioCall
	err      error
}

func (w *fakeWorld) SpawnProjectile(l ProjectileLaunch) error {
	w.launches = append(w.launches, l)
	return w.err
}

func (w *fakeWorld) PlayAudioAt(clip string, pos mgl64.Vec3) {
	w.audio = append(w.audio, audioCall{clip, pos})
}

type fakeCaster struct {
	id    uuid.UUID
	dead  bool
	pos   mgl64.Vec3
	aim   *fakeAim
	mover *fakeMover
	world *fakeWorld
}

func newFakeCaster() *fakeCaster {
	return &fakeCaster{
		id:    uuid.New(),
		aim:   &fakeAim{pos: mgl64.Vec3{0, 1, 0}, offset: mgl64.Vec3{0, 1, 0}},
		mover: &fakeMover{},
		world: &fakeWorld{},
	}
}

func (c *fakeCaster) ID() uuid.UUID        { return c.id }
func (c *fakeCaster) Alive() bool          { return !c.dead }
func (c *fakeCaster) Position() mgl64.Vec3 { return c.pos }

func (c *fakeCaster) Aim() Aim {
	if c.aim == nil {
		return nil
	}
	return c.aim
}

func (c *fakeCaster) Mover() Mover {
	if c.mover == nil {
		return nil
	}
	return c.mover
}

func (c *fakeCaster) World() World {
	if c.world == nil {
		return nil
	}
	return c.world
}
