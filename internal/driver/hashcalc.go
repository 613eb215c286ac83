package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"tirc/internal/layout"
	"tirc/internal/version"
)

// Digest is a SHA-256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// CacheKey: H(version || triple || schema || content). Any change of the
// tool, the target or the payload format invalidates old entries.
func CacheKey(content []byte, target layout.Target) Digest {
	h := sha256.New()
	writeString := func(s string) {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s))) //nolint:gosec // short strings
		_, _ = h.Write(n[:])
		_, _ = h.Write([]byte(s))
	}
	writeString(version.Version)
	writeString(target.Triple)
	var schema [2]byte
	binary.LittleEndian.PutUint16(schema[:], cacheSchema)
	_, _ = h.Write(schema[:])
	_, _ = h.Write(content)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
