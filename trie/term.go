package trie

import (
	"fmt"
	"iter"

	"github.com/hupe1980/numtrie/codec"
)

// MaxPrecisionStep is the largest legal precision step. A step of
// MaxPrecisionStep disables the trie entirely: every value is indexed as a
// single full-precision term and range queries enumerate individual values.
const MaxPrecisionStep = codec.ValueBits

// ErrInvalidPrecisionStep indicates a precision step outside [1, MaxPrecisionStep].
type ErrInvalidPrecisionStep struct {
	Step uint
}

func (e *ErrInvalidPrecisionStep) Error() string {
	return fmt.Sprintf("invalid precision step: %d (must be in [1,%d])", e.Step, MaxPrecisionStep)
}

// ErrShiftNotAligned indicates a shift that is not a multiple of the
// configured precision step.
type ErrShiftNotAligned struct {
	Shift uint
	Step  uint
}

func (e *ErrShiftNotAligned) Error() string {
	return fmt.Sprintf("shift %d is not a multiple of precision step %d", e.Shift, e.Step)
}

// Term is a single trie term: a value truncated to a precision level,
// realized as its concrete encoded key.
type Term struct {
	Shift uint
	Key   codec.Key
}

func validateStep(step uint) error {
	if step < 1 || step > MaxPrecisionStep {
		return &ErrInvalidPrecisionStep{Step: step}
	}
	return nil
}

// NumLevels returns the number of trie levels produced for a precision step.
func NumLevels(step uint) (int, error) {
	if err := validateStep(step); err != nil {
		return 0, err
	}
	return int((codec.ValueBits + step - 1) / step), nil
}

// Terms returns the finite sequence of trie terms for a value, one per
// precision level in increasing-shift order (level 0 first).
//
// The sequence is a pure function of its inputs: it can be restarted and
// consumed concurrently. Both the indexing side (one stored term per level
// per document) and the query side (realizing a coarse block as a key)
// consume it.
func Terms(value int64, step uint) (iter.Seq[Term], error) {
	if err := validateStep(step); err != nil {
		return nil, err
	}

	sortable := codec.Sortable(value)
	return func(yield func(Term) bool) {
		for shift := uint(0); shift < codec.ValueBits; shift += step {
			t := Term{
				Shift: shift,
				Key:   codec.EncodeSortable(sortable, shift),
			}
			if !yield(t) {
				return
			}
		}
	}, nil
}

// EncodeAligned encodes a value at a shift, enforcing that the shift is a
// level boundary of the given precision step.
func EncodeAligned(value int64, shift, step uint) (codec.Key, error) {
	if err := validateStep(step); err != nil {
		return "", err
	}
	if shift >= codec.ValueBits {
		return "", &codec.ErrInvalidShift{Shift: shift}
	}
	if shift%step != 0 {
		return "", &ErrShiftNotAligned{Shift: shift, Step: step}
	}
	return codec.EncodeSortable(codec.Sortable(value), shift), nil
}
