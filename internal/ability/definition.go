// Package ability holds immutable ability definitions and the per-slot
// replicated state an actor carries for each of them.
package ability

import (
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/resource"
)

// Kind selects the effect an ability applies when cast.
type Kind string

const (
	KindProjectile Kind = "projectile"
	KindMovement   Kind = "movement"
)

// ProjectileSpec configures the projectile a projectile ability launches.
type ProjectileSpec struct {
	Speed       float64 `yaml:"speed" json:"speed"`
	Damage      float64 `yaml:"damage" json:"damage"`
	Knockback   float64 `yaml:"knockback" json:"knockback"`
	Radius      float64 `yaml:"radius" json:"radius"`
	ImpactAudio string  `yaml:"impactAudio" json:"impactAudio,omitempty"`
}

// Definition is the immutable configuration of one ability.
// Definitions are shared by every actor and must not be mutated after the
// registry is built.
type Definition struct {
	Name string        `yaml:"-" json:"name"`
	Hash resource.Hash `yaml:"-" json:"hash"`

	Kind            Kind    `yaml:"kind" json:"kind"`
	CooldownSeconds float64 `yaml:"cooldown" json:"cooldown"`
	CastSeconds     float64 `yaml:"castTime" json:"castTime"`
	Range           float64 `yaml:"range" json:"range"`
	Icon            string  `yaml:"icon" json:"icon,omitempty"`
	CastAudio       string  `yaml:"castAudio" json:"castAudio,omitempty"`
	BeginEffect     string  `yaml:"beginEffect" json:"beginEffect,omitempty"`
	EndEffect       string  `yaml:"endEffect" json:"endEffect,omitempty"`

	Projectile *ProjectileSpec `yaml:"projectile" json:"projectile,omitempty"`
}

// Registry resolves ability hashes.
type Registry = resource.Registry[*Definition]

// Resolver is the read side of a Registry.
type Resolver interface {
	Resolve(h resource.Hash) (*Definition, error)
}

// New returns a definition with the stock values every catalog entry
// starts from.
func New(name string, kind Kind) *Definition {
	return &Definition{
		Name:            name,
		Hash:            resource.StableHash(name),
		Kind:            kind,
		CooldownSeconds: 1,
		CastSeconds:     1,
		Range:           1,
	}
}

// Cooldown returns the time before the ability can be cast again,
// counted from the end of the cast.
func (d *Definition) Cooldown() time.Duration {
	return seconds(d.CooldownSeconds)
}

// CastDuration returns how long the caster stays locked in the cast.
func (d *Definition) CastDuration() time.Duration {
	return seconds(d.CastSeconds)
}

// CanCast reports whether c may cast this ability, ignoring timers.
func (d *Definition) CanCast(c Caster) bool {
	return c != nil && c.Alive()
}

// Cast applies the ability's effect. Authority only.
func (d *Definition) Cast(c Caster, target mgl64.Vec3) error {
	fx, ok := effects[d.Kind]
	if !ok {
		return apperrors.Internalf("ability %s: unknown kind %q", d.Name, d.Kind)
	}
	return fx(d, c, target)
}

// OnCastBegin runs the observer-side begin cosmetics.
func (d *Definition) OnCastBegin(p Presenter, actorID uuid.UUID) {
	if p != nil {
		p.ChannelBegan(actorID, d)
	}
}

// OnCastEnd runs the observer-side end cosmetics.
func (d *Definition) OnCastEnd(p Presenter, actorID uuid.UUID) {
	if p != nil {
		p.ChannelEnded(actorID, d)
	}
}

// Validate checks the definition's invariants.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("ability has no name")
	}
	if !validSeconds(d.CooldownSeconds) || !validSeconds(d.CastSeconds) {
		return fmt.Errorf("ability %s: cooldown %v and castTime %v must be finite, >= 0 and at most %.0fs",
			d.Name, d.CooldownSeconds, d.CastSeconds, maxSeconds)
	}
	if !finite(d.Range) || d.Range < 0 {
		return fmt.Errorf("ability %s: range %v must be finite and >= 0", d.Name, d.Range)
	}
	switch d.Kind {
	case KindProjectile:
		if d.Projectile == nil {
			return fmt.Errorf("ability %s: projectile kind needs a projectile block", d.Name)
		}
		p := d.Projectile
		if !finite(p.Speed) || p.Speed <= 0 {
			return fmt.Errorf("ability %s: projectile speed must be finite and > 0", d.Name)
		}
		if !finite(p.Damage) || !finite(p.Knockback) || !finite(p.Radius) || p.Radius < 0 {
			return fmt.Errorf("ability %s: projectile damage, knockback and radius must be finite", d.Name)
		}
	case KindMovement:
	default:
		return fmt.Errorf("ability %s: unknown kind %q", d.Name, d.Kind)
	}
	return nil
}

// Decode parses one catalog file. The file name is the ability name.
func Decode(f resource.File) (*Definition, error) {
	d := New(f.Name, "")
	if err := yaml.Unmarshal(f.Data, d); err != nil {
		return nil, err
	}
	d.Name = f.Name
	d.Hash = resource.StableHash(f.Name)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadRegistry scans dir in fsys and builds the ability registry.
func LoadRegistry(fsys fs.FS, dir string, log *zap.Logger) (*Registry, error) {
	entries, err := resource.Load(fsys, dir, Decode)
	if err != nil {
		return nil, err
	}
	return resource.Build("ability", entries, log)
}

// maxSeconds is the longest duration a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// validSeconds rejects NaN, infinities and anything time.Duration would
// overflow on.
func validSeconds(v float64) bool { return finite(v) && v >= 0 && v < maxSeconds }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
