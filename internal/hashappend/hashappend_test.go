package hashappend

import (
	"bytes"
	"math"
	"testing"
)

// fakeHasher records every byte appended to it, mirroring the
// fake_hasher/tuple shape used to test hash_append without committing to a
// real digest algorithm.
type fakeHasher struct {
	buf    bytes.Buffer
	endian Endian
}

func (f *fakeHasher) Add(p []byte) { f.buf.Write(p) }
func (f *fakeHasher) Endian() Endian { return f.endian }

func digest(endian Endian, v any) []byte {
	h := &fakeHasher{endian: endian}
	HashAppend(h, v)
	return h.buf.Bytes()
}

func TestHashAppendIsDeterministic(t *testing.T) {
	type point struct{ X, Y int32 }
	a := digest(Little, point{X: 1, Y: 2})
	b := digest(Little, point{X: 1, Y: 2})
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical digests for identical values, got %x vs %x", a, b)
	}
}

func TestHashAppendDistinguishesFieldOrder(t *testing.T) {
	type point struct{ X, Y int32 }
	a := digest(Little, point{X: 1, Y: 2})
	b := digest(Little, point{X: 2, Y: 1})
	if bytes.Equal(a, b) {
		t.Fatal("expected different field values to hash differently")
	}
}

func TestHashAppendRespectsEndianness(t *testing.T) {
	little := digest(Little, uint32(0x01020304))
	big := digest(Big, uint32(0x01020304))
	if bytes.Equal(little, big) {
		t.Fatal("expected little and big endian digests of a multi-byte value to differ")
	}
}

func TestHashAppendCanonicalizesNegativeZero(t *testing.T) {
	pos := digest(Little, float64(0))
	neg := digest(Little, math.Copysign(0, -1))
	if !bytes.Equal(pos, neg) {
		t.Fatalf("expected -0.0 and +0.0 to hash identically, got %x vs %x", pos, neg)
	}
}

func TestHashAppendEmptyStructHashesAsSingleZero(t *testing.T) {
	type empty struct{}
	got := digest(Little, empty{})
	if !bytes.Equal(got, []byte{0}) {
		t.Fatalf("expected empty struct to hash as a single 0 byte, got %x", got)
	}
}

func TestHashAppendMapIsOrderIndependent(t *testing.T) {
	a := digest(Little, map[string]int{"a": 1, "b": 2, "c": 3})
	b := digest(Little, map[string]int{"c": 3, "b": 2, "a": 1})
	if !bytes.Equal(a, b) {
		t.Fatal("expected map digest to be independent of Go's randomized iteration order")
	}
}

func TestHashAppendDistinguishesStructTypeNames(t *testing.T) {
	type foo struct{ V int32 }
	type bar struct{ V int32 }
	a := digest(Little, foo{V: 1})
	b := digest(Little, bar{V: 1})
	if bytes.Equal(a, b) {
		t.Fatal("expected structurally identical but differently named types to hash differently")
	}
}

func TestSHA1HasherFinishProducesTwentyByteDigest(t *testing.T) {
	h := NewSHA1(Little)
	HashAppend(h, "hello")
	sum := h.Finish()
	if len(sum) != 20 {
		t.Fatalf("expected a 20-byte SHA-1 digest, got %d bytes", len(sum))
	}
}
