package resource

import (
	"strconv"
	"unicode/utf16"
)

// Hash is the stable 32-bit key a resource is known by on both sides of
// the wire.
type Hash uint32

// StableHash hashes name the same way on every process and platform.
// It folds the UTF-16 code units of name into 23*31^n + ..., wrapping at
// 32 bits, which keeps hashes compatible with existing clients.
func StableHash(name string) Hash {
	h := uint32(23)
	for _, u := range utf16.Encode([]rune(name)) {
		h = h*31 + uint32(u)
	}
	return Hash(h)
}

func (h Hash) String() string {
	return strconv.FormatUint(uint64(h), 10)
}
