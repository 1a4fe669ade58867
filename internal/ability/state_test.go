package ability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "warlock-arena/internal/errors"
	"warlock-arena/internal/resource"
)

func testRegistry(t *testing.T, defs ...*Definition) *Registry {
	t.Helper()
	entries := make([]resource.Entry[*Definition], 0, len(defs))
	for _, d := range defs {
		entries = append(entries, resource.Entry[*Definition]{Name: d.Name, Value: d})
	}
	reg, err := resource.Build("ability", entries, nil)
	require.NoError(t, err)
	return reg
}

func TestNewStateIsReady(t *testing.T) {
	now := time.Unix(100, 0)
	s := NewState(resource.StableHash("Warp"), now)

	assert.False(t, s.IsCasting(now))
	assert.False(t, s.IsOnCooldown(now))
	assert.Zero(t, s.CastRemaining(now))
}

func TestRemainingClampsAtZero(t *testing.T) {
	now := time.Unix(100, 0)
	s := State{CooldownEnd: now.Add(2 * time.Second), CastEnd: now.Add(time.Second)}

	assert.Equal(t, 2*time.Second, s.CooldownRemaining(now))
	assert.Equal(t, time.Second, s.CastRemaining(now))

	later := now.Add(time.Hour)
	assert.Equal(t, time.Duration(0), s.CooldownRemaining(later))
	assert.Equal(t, time.Duration(0), s.CastRemaining(later))
	assert.False(t, s.IsCasting(now.Add(time.Second)), "cast ends exactly at castEnd")
}

func TestStateCanCast(t *testing.T) {
	reg := testRegistry(t, fireball(), warp())
	now := time.Unix(0, 0)
	c := newFakeCaster()

	s := NewState(resource.StableHash("Fireball"), now)
	ok, err := s.CanCast(reg, c, now)
	require.NoError(t, err)
	assert.True(t, ok)

	s.CooldownEnd = now.Add(time.Second)
	ok, _ = s.CanCast(reg, c, now)
	assert.False(t, ok, "on cooldown")

	s = NewState(resource.StableHash("Fireball"), now)
	s.CastEnd = now.Add(time.Second)
	ok, _ = s.CanCast(reg, c, now)
	assert.False(t, ok, "casting")

	s = NewState(resource.StableHash("Fireball"), now)
	c.dead = true
	ok, _ = s.CanCast(reg, c, now)
	assert.False(t, ok, "dead caster")
}

func TestStateDefinitionMiss(t *testing.T) {
	reg := testRegistry(t, warp())
	s := NewState(resource.StableHash("Fireball"), time.Now())

	_, err := s.Definition(reg)
	assert.True(t, apperrors.IsNotFound(err))

	ok, err := s.CanCast(reg, newFakeCaster(), time.Now())
	assert.False(t, ok)
	assert.Error(t, err)
}
