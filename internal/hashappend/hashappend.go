// Package hashappend implements the generic hash_append facility from
// spec.md §4.9: primitive values are byte-swapped to the hasher's declared
// endianness before their bytes are fed in, floats canonicalize -0.0 to
// +0.0, and composite types recurse field by field. It is grounded on
// original_source/libvast/test/concept/hashable/hash_append.cpp (the
// fake_hasher/tuple shape this package's own tests mirror) and
// original_source/libvast/include/vast/detail/byte_swap.hpp for the
// endian-swap helper that underlies encodeUint.
package hashappend

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Endian is the byte order a Hasher wants primitive values encoded in.
type Endian int

const (
	Native Endian = iota
	Little
	Big
)

// Hasher is the minimal interface hash_append needs: somewhere to append
// bytes, and a declared endianness (spec.md §6 "hasher trait exposes
// add(span<byte>), finish(), and a static endian constant").
type Hasher interface {
	Add(p []byte)
	Endian() Endian
}

// byteOrder resolves a Hasher's declared endianness to a concrete
// encoding/binary.ByteOrder, treating Native as little-endian since that is
// the only architecture family this module targets.
func byteOrder(e Endian) binary.ByteOrder {
	if e == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// HashAppend feeds v's byte representation into h, recursing into
// composite types. It panics on a kind it cannot traverse, such as a
// channel or a function (unexported struct fields are skipped, so only an
// exported field or the value itself can trigger this), since that
// indicates a caller asked to hash something that has no stable
// representation, not a recoverable runtime condition.
func HashAppend(h Hasher, v any) {
	hashValue(h, reflect.ValueOf(v))
}

func hashValue(h Hasher, v reflect.Value) {
	switch v.Kind() {
	case reflect.Invalid:
		// A nil interface{} passed to HashAppend; treat as the empty type.
		h.Add([]byte{0})
	case reflect.Bool:
		b := byte(0)
		if v.Bool() {
			b = 1
		}
		h.Add([]byte{b})
	case reflect.Int8:
		h.Add([]byte{byte(v.Int())})
	case reflect.Uint8:
		h.Add([]byte{byte(v.Uint())})
	case reflect.Int16:
		encodeUint(h, uint64(uint16(v.Int())), 2)
	case reflect.Uint16:
		encodeUint(h, v.Uint(), 2)
	case reflect.Int32:
		encodeUint(h, uint64(uint32(v.Int())), 4)
	case reflect.Uint32:
		encodeUint(h, v.Uint(), 4)
	case reflect.Int, reflect.Int64:
		encodeUint(h, uint64(v.Int()), 8)
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		encodeUint(h, v.Uint(), 8)
	case reflect.Float32:
		hashFloat32(h, float32(v.Float()))
	case reflect.Float64:
		hashFloat64(h, v.Float())
	case reflect.String:
		hashSized(h, []byte(v.String()))
	case reflect.Slice:
		if v.IsNil() {
			h.Add([]byte{0})
			return
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			hashSized(h, v.Bytes())
			return
		}
		for i := 0; i < v.Len(); i++ {
			hashValue(h, v.Index(i))
		}
		encodeUint(h, uint64(v.Len()), 8)
	case reflect.Array:
		// Fixed-size: no trailing length, per spec.md's "fixed-size ones do
		// not" rule.
		for i := 0; i < v.Len(); i++ {
			hashValue(h, v.Index(i))
		}
	case reflect.Map:
		hashMap(h, v)
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			h.Add([]byte{0})
			return
		}
		hashValue(h, v.Elem())
	case reflect.Struct:
		hashStruct(h, v)
	default:
		panic("hashappend: unsupported kind " + v.Kind().String())
	}
}

func encodeUint(h Hasher, x uint64, width int) {
	var buf [8]byte
	order := byteOrder(h.Endian())
	switch width {
	case 2:
		order.PutUint16(buf[:2], uint16(x))
		h.Add(buf[:2])
	case 4:
		order.PutUint32(buf[:4], uint32(x))
		h.Add(buf[:4])
	case 8:
		order.PutUint64(buf[:8], x)
		h.Add(buf[:8])
	}
}

// hashFloat32 canonicalizes -0.0 to +0.0 before reinterpreting the bits as
// an unsigned integer, per spec.md §4.9.
func hashFloat32(h Hasher, f float32) {
	if f == 0 {
		f = 0
	}
	encodeUint(h, uint64(math.Float32bits(f)), 4)
}

func hashFloat64(h Hasher, f float64) {
	if f == 0 {
		f = 0
	}
	encodeUint(h, math.Float64bits(f), 8)
}

// hashSized appends raw bytes followed by their length, matching "sized
// containers append the size after the elements".
func hashSized(h Hasher, b []byte) {
	h.Add(b)
	encodeUint(h, uint64(len(b)), 8)
}

// hashMap sorts keys by their formatted representation before hashing so
// the digest is reproducible: Go intentionally randomizes map iteration
// order at runtime, unlike the deterministic (if unordered, per the spec's
// own wording) containers the original assumes. This is a deliberate
// deviation from "unordered" iteration, documented because without it
// hash_append over a map would not be a pure function of its argument.
func hashMap(h Hasher, v reflect.Value) {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return formatKey(keys[i]) < formatKey(keys[j])
	})
	for _, k := range keys {
		hashValue(h, k)
		hashValue(h, v.MapIndex(k))
	}
	encodeUint(h, uint64(len(keys)), 8)
}

func formatKey(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%020d", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fmt.Sprintf("%020d", v.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%g", v.Float())
	case reflect.Bool:
		return fmt.Sprintf("%t", v.Bool())
	default:
		// v.Interface() panics on unexported fields, which map keys never
		// are, so this is safe for every kind reflect.Value.MapKeys yields.
		return fmt.Sprintf("%v", v.Interface())
	}
}

// hashStruct recurses into exported fields in declaration order, which
// plays the role the original's inspection-callback field walk plays; the
// struct's type name is fed first so two structurally identical but
// differently named types never collide, matching spec.md §4.9's
// disambiguation rule. A struct type with no fields at all hashes as a
// single 0, per the "empty types hash as a single 0" rule; a struct whose
// fields are all unexported still feeds its type name.
func hashStruct(h Hasher, v reflect.Value) {
	t := v.Type()
	if t.NumField() == 0 {
		h.Add([]byte{0})
		return
	}
	hashSized(h, []byte(t.Name()))
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			continue // unexported
		}
		hashValue(h, v.Field(i))
	}
}
