package codec

import (
	"encoding/binary"
	"fmt"
)

// ValueBits is the bit width of an encoded value.
const ValueBits = 64

// shiftTagBase is added to the shift to form the leading tag byte of a key.
// Starting above the ASCII control range keeps keys printable-ish in index
// dumps and guarantees the tag never collides with payload framing.
const shiftTagBase = 0x20

// signMask flips the sign bit so that unsigned comparison of the transformed
// bits matches signed comparison of the original values.
const signMask = uint64(1) << 63

// Key is an order-preserving, shift-tagged term key.
//
// For a fixed shift all keys have the same length and their natural
// (lexicographic) ordering equals the numeric ordering of the encoded
// values. The leading tag byte differs per shift, so keys of different
// shifts occupy disjoint regions of the key space.
type Key string

// ErrInvalidShift indicates a shift outside [0, ValueBits).
type ErrInvalidShift struct {
	Shift uint
}

func (e *ErrInvalidShift) Error() string {
	return fmt.Sprintf("invalid shift: %d (must be in [0,%d))", e.Shift, ValueBits)
}

// ErrInvalidKey indicates a malformed or unexpected key.
type ErrInvalidKey struct {
	Key    Key
	Reason string
}

func (e *ErrInvalidKey) Error() string {
	return fmt.Sprintf("invalid key %q: %s", string(e.Key), e.Reason)
}

// Sortable maps a signed value into the unsigned domain such that unsigned
// ordering of the results equals signed ordering of the inputs.
func Sortable(v int64) uint64 {
	return uint64(v) ^ signMask
}

// FromSortable is the inverse of Sortable.
func FromSortable(u uint64) int64 {
	return int64(u ^ signMask)
}

// keyLen returns the encoded length for a shift: one tag byte plus the
// minimal whole-byte payload holding the ValueBits-shift significant bits.
func keyLen(shift uint) int {
	return 1 + int(ValueBits-shift+7)/8
}

// Encode returns the key for value with the low shift bits cleared.
//
// The payload is the sortable form of the value, right-shifted by shift and
// written big-endian, so lexicographic ordering of equal-shift keys matches
// numeric ordering of the truncated values.
func Encode(value int64, shift uint) (Key, error) {
	if shift >= ValueBits {
		return "", &ErrInvalidShift{Shift: shift}
	}
	return EncodeSortable(Sortable(value), shift), nil
}

// EncodeSortable encodes a value already mapped into the sortable domain.
// The caller must guarantee shift < ValueBits.
func EncodeSortable(sortable uint64, shift uint) Key {
	payload := sortable >> shift

	buf := make([]byte, keyLen(shift))
	buf[0] = byte(shiftTagBase + shift)
	n := len(buf) - 1
	for i := n; i >= 1; i-- {
		buf[i] = byte(payload)
		payload >>= 8
	}
	return Key(buf)
}

// ShiftOf returns the shift level a key was encoded at.
func ShiftOf(k Key) (uint, error) {
	if len(k) == 0 {
		return 0, &ErrInvalidKey{Key: k, Reason: "empty"}
	}
	tag := k[0]
	if tag < shiftTagBase || tag >= shiftTagBase+ValueBits {
		return 0, &ErrInvalidKey{Key: k, Reason: "unknown shift tag"}
	}
	shift := uint(tag - shiftTagBase)
	if len(k) != keyLen(shift) {
		return 0, &ErrInvalidKey{Key: k, Reason: "length does not match shift tag"}
	}
	return shift, nil
}

// Decode recovers the exact value from a full-precision (shift 0) key.
//
// Keys with a non-zero shift are lossy and cannot be decoded; passing one
// returns an ErrInvalidKey.
func Decode(k Key) (int64, error) {
	shift, err := ShiftOf(k)
	if err != nil {
		return 0, err
	}
	if shift != 0 {
		return 0, &ErrInvalidKey{Key: k, Reason: "not a full-precision key"}
	}
	return FromSortable(binary.BigEndian.Uint64([]byte(k[1:]))), nil
}

// DecodeSortable recovers the sortable-domain truncated value from a key of
// any shift. The low shift bits of the result are zero.
func DecodeSortable(k Key) (uint64, uint, error) {
	shift, err := ShiftOf(k)
	if err != nil {
		return 0, 0, err
	}
	var payload uint64
	for i := 1; i < len(k); i++ {
		payload = payload<<8 | uint64(k[i])
	}
	return payload << shift, shift, nil
}
