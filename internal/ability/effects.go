package ability

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrMissingCollaborator is returned when the caster lacks a component
	// the effect needs. The cast still counts.
	ErrMissingCollaborator = errors.New("caster is missing a required collaborator")

	// ErrDegenerateTarget is returned when the target sits on the cast origin
	// and no direction can be derived from it.
	ErrDegenerateTarget = errors.New("target has no direction from caster")
)

type effect func(d *Definition, c Caster, target mgl64.Vec3) error

var effects = map[Kind]effect{
	KindProjectile: castProjectile,
	KindMovement:   castMovement,
}

const epsilon = 1e-9

func castProjectile(d *Definition, c Caster, target mgl64.Vec3) error {
	if c == nil || c.Aim() == nil || c.World() == nil {
		return fmt.Errorf("%s: %w (aim or world)", d.Name, ErrMissingCollaborator)
	}

	from := c.Aim().CastPosition()
	delta := target.Sub(from)
	if delta.Len() < epsilon {
		return fmt.Errorf("%s: %w", d.Name, ErrDegenerateTarget)
	}
	dir := delta.Normalize()

	if d.CastAudio != "" {
		c.World().PlayAudioAt(d.CastAudio, c.Position())
	}

	return c.World().SpawnProjectile(ProjectileLaunch{
		Owner:   c.ID(),
		Ability: d.Name,
		From:    from,
		To:      from.Add(dir.Mul(d.Range)),
		Spec:    *d.Projectile,
	})
}

func castMovement(d *Definition, c Caster, target mgl64.Vec3) error {
	if c == nil || c.Mover() == nil || c.Aim() == nil {
		return fmt.Errorf("%s: %w (movement or aim)", d.Name, ErrMissingCollaborator)
	}

	// Land the caster's feet on the target, not its cast point.
	aimPos := target.Sub(c.Aim().CastOffset())
	pos := c.Position()
	delta := aimPos.Sub(pos)
	dist := delta.Len()

	warp := pos
	if dist >= epsilon {
		warp = pos.Add(delta.Normalize().Mul(math.Min(dist, d.Range)))
	}

	if d.CastAudio != "" && c.World() != nil {
		c.World().PlayAudioAt(d.CastAudio, pos)
	}

	c.Mover().Warp(warp, true)
	return nil
}
