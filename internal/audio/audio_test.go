package audio

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"warlock-arena/internal/resource"
)

type recordingSink struct{ played []*Clip }

func (s *recordingSink) AudioPlayed(c *Clip, _ mgl64.Vec3) { s.played = append(s.played, c) }

func TestEmbeddedClipsLoad(t *testing.T) {
	reg, err := LoadRegistry(EmbeddedClips(), ClipsDir, nil)
	require.NoError(t, err)

	for _, name := range []string{"Cast", "Impact", "Burn", "Warp"} {
		c, h, ok := reg.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, h, c.Hash)
	}
}

func TestDecodeRejectsVolume(t *testing.T) {
	_, err := Decode(resource.File{Name: "Loud", Data: []byte("volume: 3\n")})
	assert.Error(t, err)

	c, err := Decode(resource.File{Name: "Quiet", Data: []byte("spatial: false\n")})
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Volume)
	assert.False(t, c.Spatial)
}

func TestRelayPlayAt(t *testing.T) {
	reg, err := LoadRegistry(EmbeddedClips(), ClipsDir, nil)
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	sink := &recordingSink{}
	r := NewRelay(reg, sink, zap.New(core))

	assert.True(t, r.PlayAt("Burn", mgl64.Vec3{1, 0, 1}))
	assert.False(t, r.PlayAt("Nope", mgl64.Vec3{}))
	assert.False(t, r.PlayAt("", mgl64.Vec3{}))

	require.Len(t, sink.played, 1)
	assert.Equal(t, "Burn", sink.played[0].Name)
	assert.Equal(t, 1, logs.FilterMessage("unknown audio clip").Len())

	var nilRelay *Relay
	assert.False(t, nilRelay.PlayAt("Burn", mgl64.Vec3{}))
}
