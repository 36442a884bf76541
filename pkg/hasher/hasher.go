// Package hasher provides the 16-byte digest collaborator the record codec
// consumes from its host. Any cryptographically strong digest returning a
// fixed 16 bytes would do; this implementation uses BLAKE2b-128, which
// natively supports a configurable output size and is deterministic across
// processes and platforms.
package hasher

import (
	"golang.org/x/crypto/blake2b"
)

// Size is the fixed digest length in bytes, matching the "digest" field of
// the on-disk Entry record.
const Size = 16

// Hasher computes a fixed-size digest over the concatenation of one or more
// byte runs, without requiring the caller to first concatenate them into a
// single buffer.
type Hasher interface {
	// Sum16 returns the 16-byte digest of the concatenation of parts, in
	// order, without mutating any of them.
	Sum16(parts ...[]byte) [Size]byte
}

// Blake2b128 is a Hasher backed by BLAKE2b configured for a 128-bit output.
type Blake2b128 struct{}

// New constructs the default Hasher used by the store.
func New() Blake2b128 {
	return Blake2b128{}
}

// Sum16 streams each part through a single BLAKE2b-128 hash state and
// returns the resulting digest.
func (Blake2b128) Sum16(parts ...[]byte) [Size]byte {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// Only returns an error for an out-of-range size or a too-long key,
		// neither of which applies to a fixed, keyless 16-byte digest.
		panic("hasher: unexpected blake2b construction failure: " + err.Error())
	}

	for _, p := range parts {
		_, _ = h.Write(p)
	}

	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
