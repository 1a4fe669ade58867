package resource

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// File is one declaration found in a resource namespace.
type File struct {
	Name string // Base name without extension; this is what gets hashed
	Path string
	Data []byte
}

// Scan lists every .yaml/.yml file directly under dir in fsys, sorted by
// name so that builds are deterministic.
func Scan(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := path.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		p := path.Join(dir, e.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, File{
			Name: strings.TrimSuffix(e.Name(), ext),
			Path: p,
			Data: data,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Load scans dir and decodes every file into a registry entry.
func Load[T any](fsys fs.FS, dir string, decode func(File) (T, error)) ([]Entry[T], error) {
	files, err := Scan(fsys, dir)
	if err != nil {
		return nil, err
	}

	out := make([]Entry[T], 0, len(files))
	for _, f := range files {
		v, err := decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Path, err)
		}
		out = append(out, Entry[T]{Name: f.Name, Value: v})
	}
	return out, nil
}
