// Package audio keeps the clip registry and relays positional clip
// playback from the authority to observers by hash.
package audio

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"warlock-arena/internal/resource"
)

//go:embed clips/*.yaml
var clipsFS embed.FS

// ClipsDir is the namespace directory inside the embedded catalog.
const ClipsDir = "clips"

// EmbeddedClips returns the clip declarations shipped with the binary.
func EmbeddedClips() fs.FS { return clipsFS }

// Clip describes a sound observers can play.
type Clip struct {
	Name    string        `yaml:"-" json:"name"`
	Hash    resource.Hash `yaml:"-" json:"hash"`
	File    string        `yaml:"file" json:"file"`
	Volume  float64       `yaml:"volume" json:"volume"`
	Spatial bool          `yaml:"spatial" json:"spatial"`
}

// Registry resolves clip hashes.
type Registry = resource.Registry[*Clip]

// Decode parses one clip declaration.
func Decode(f resource.File) (*Clip, error) {
	c := &Clip{Volume: 1, Spatial: true}
	if err := yaml.Unmarshal(f.Data, c); err != nil {
		return nil, err
	}
	c.Name = f.Name
	c.Hash = resource.StableHash(f.Name)
	if c.Volume < 0 || c.Volume > 1 {
		return nil, fmt.Errorf("clip %s: volume %.2f outside [0,1]", c.Name, c.Volume)
	}
	return c, nil
}

// LoadRegistry scans dir in fsys and builds the clip registry.
func LoadRegistry(fsys fs.FS, dir string, log *zap.Logger) (*Registry, error) {
	entries, err := resource.Load(fsys, dir, Decode)
	if err != nil {
		return nil, err
	}
	return resource.Build("audio", entries, log)
}

// Sink receives resolved playback requests.
type Sink interface {
	AudioPlayed(clip *Clip, pos mgl64.Vec3)
}

// Relay turns clip names into replicated playback.
type Relay struct {
	clips *Registry
	sink  Sink
	log   *zap.Logger
}

// NewRelay returns a relay that resolves against clips and forwards to sink.
func NewRelay(clips *Registry, sink Sink, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{clips: clips, sink: sink, log: log}
}

// PlayAt plays clip at pos on every observer. Unknown clips are logged and
// skipped; an empty name is a no-op.
func (r *Relay) PlayAt(clip string, pos mgl64.Vec3) bool {
	if clip == "" || r == nil || r.clips == nil {
		return false
	}
	c, _, ok := r.clips.Lookup(clip)
	if !ok {
		r.log.Warn("unknown audio clip", zap.String("clip", clip))
		return false
	}
	if r.sink != nil {
		r.sink.AudioPlayed(c, pos)
	}
	return true
}
