// Package catalog loads the ability and audio registries that the server
// and every client must agree on.
package catalog

import (
	"io/fs"
	"os"

	"go.uber.org/zap"

	"warlock-arena/internal/ability"
	"warlock-arena/internal/audio"
	apperrors "warlock-arena/internal/errors"
)

// Subdirectories of a catalog directory.
const (
	AbilitiesDir = "abilities"
	AudioDir     = "audio"
)

// Catalog is a loaded resource namespace.
type Catalog struct {
	Abilities *ability.Registry
	Clips     *audio.Registry
}

// Load builds both registries from dir, or from the embedded defaults
// when dir is empty.
func Load(dir string, log *zap.Logger) (*Catalog, error) {
	if dir == "" {
		return load(ability.EmbeddedCatalog(), ability.CatalogDir, audio.EmbeddedClips(), audio.ClipsDir, log)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, apperrors.Wrapf(err, "catalog dir %s", dir)
	}
	if !info.IsDir() {
		return nil, apperrors.InvalidArgumentf("catalog %s is not a directory", dir)
	}
	fsys := os.DirFS(dir)
	return load(fsys, AbilitiesDir, fsys, AudioDir, log)
}

func load(abilityFS fs.FS, abilityDir string, audioFS fs.FS, audioDir string, log *zap.Logger) (*Catalog, error) {
	abilities, err := ability.LoadRegistry(abilityFS, abilityDir, log)
	if err != nil {
		return nil, apperrors.Wrap(err, "load abilities")
	}
	clips, err := audio.LoadRegistry(audioFS, audioDir, log)
	if err != nil {
		return nil, apperrors.Wrap(err, "load audio")
	}
	return &Catalog{Abilities: abilities, Clips: clips}, nil
}
