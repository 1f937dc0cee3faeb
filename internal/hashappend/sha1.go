package hashappend

import "crypto/sha1"

// SHA1Hasher is a concrete Hasher backed by crypto/sha1, supplementing
// spec.md with the concrete hasher original_source/libvast/include/vast/hash/sha1.hpp
// provides next to the generic hash_append framework (§10.5).
type SHA1Hasher struct {
	h      [sha1.Size]byte // unused placeholder to keep the zero value self-documenting
	state  *shaState
	endian Endian
}

type shaState struct {
	buf []byte
}

// NewSHA1 returns a ready-to-use Hasher with the given declared endianness.
func NewSHA1(endian Endian) *SHA1Hasher {
	return &SHA1Hasher{state: &shaState{}, endian: endian}
}

// Add appends p to the pending byte stream.
func (s *SHA1Hasher) Add(p []byte) {
	s.state.buf = append(s.state.buf, p...)
}

// Endian reports the declared byte order, satisfying Hasher.
func (s *SHA1Hasher) Endian() Endian {
	return s.endian
}

// Finish returns the SHA-1 digest of every byte added so far. Finish does
// not reset the hasher; call NewSHA1 again for a fresh digest.
func (s *SHA1Hasher) Finish() [sha1.Size]byte {
	return sha1.Sum(s.state.buf)
}
