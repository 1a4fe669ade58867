// Package resource maps stable name hashes to immutable definitions.
//
// A Registry is built once during startup from a resource namespace and is
// read-only afterwards, so it can be shared by the authority loop and any
// number of readers without locking.
package resource

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	apperrors "warlock-arena/internal/errors"
)

// Entry is a named value to register.
type Entry[T any] struct {
	Name  string
	Value T
}

type record[T any] struct {
	name  string
	value T
}

// Registry resolves hashes to values of kind T.
type Registry[T any] struct {
	kind        string
	byHash      map[Hash]record[T]
	names       []string // sorted
	fingerprint uint64
}

// Build hashes every entry name and returns the registry.
// Two distinct names with the same hash, or the same name registered
// twice, fail the build: nothing downstream could tell them apart.
func Build[T any](kind string, entries []Entry[T], log *zap.Logger) (*Registry[T], error) {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Registry[T]{
		kind:   kind,
		byHash: make(map[Hash]record[T], len(entries)),
		names:  make([]string, 0, len(entries)),
	}

	for _, e := range entries {
		if e.Name == "" {
			return nil, apperrors.InvalidArgumentf("%s registry: empty resource name", kind)
		}

		h := StableHash(e.Name)
		if prev, ok := r.byHash[h]; ok {
			if prev.name == e.Name {
				return nil, apperrors.AlreadyExistsf("%s registry: %q registered twice", kind, e.Name).
					WithMeta("name", e.Name)
			}
			return nil, apperrors.AlreadyExistsf("%s registry: hash collision %d between %q and %q",
				kind, uint32(h), prev.name, e.Name).
				WithMeta("hash", uint32(h)).
				WithMeta("first", prev.name).
				WithMeta("second", e.Name)
		}

		r.byHash[h] = record[T]{name: e.Name, value: e.Value}
		r.names = append(r.names, e.Name)
	}

	sort.Strings(r.names)
	r.fingerprint = fingerprint(r.names)

	log.Info("📚 registry built",
		zap.String("kind", kind),
		zap.Int("count", len(r.names)),
		zap.Strings("names", r.names),
		zap.Uint64("fingerprint", r.fingerprint))

	return r, nil
}

// Resolve returns the value registered under h.
func (r *Registry[T]) Resolve(h Hash) (T, error) {
	rec, ok := r.byHash[h]
	if !ok {
		var zero T
		return zero, apperrors.NotFoundf("%s registry: no resource with hash %d", r.kind, uint32(h)).
			WithMeta("hash", uint32(h))
	}
	return rec.value, nil
}

// MustResolve is Resolve for callers where a miss is a programming error.
func (r *Registry[T]) MustResolve(h Hash) T {
	v, err := r.Resolve(h)
	if err != nil {
		panic(err)
	}
	return v
}

// Lookup resolves by name.
func (r *Registry[T]) Lookup(name string) (T, Hash, bool) {
	h := StableHash(name)
	rec, ok := r.byHash[h]
	if !ok || rec.name != name {
		var zero T
		return zero, h, false
	}
	return rec.value, h, true
}

// NameOf returns the registered name for h.
func (r *Registry[T]) NameOf(h Hash) (string, bool) {
	rec, ok := r.byHash[h]
	return rec.name, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered resources.
func (r *Registry[T]) Len() int { return len(r.names) }

// Kind returns the registry's resource kind label.
func (r *Registry[T]) Kind() string { return r.kind }

// Fingerprint identifies the registered name set. Two processes with the
// same fingerprint resolve every hash identically.
func (r *Registry[T]) Fingerprint() uint64 { return r.fingerprint }

func fingerprint(sortedNames []string) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for _, name := range sortedNames {
		_, _ = d.WriteString(name)
		binary.LittleEndian.PutUint32(buf[:], uint32(StableHash(name)))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
