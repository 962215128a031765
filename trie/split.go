package trie

import (
	"iter"
	"math"

	"github.com/hupe1980/numtrie/codec"
)

// Span is a run of consecutive blocks at one precision level, in the
// sortable (order-preserving unsigned) domain.
//
// Min is the first leaf value of the first block (low Shift bits zero) and
// Max the last leaf value of the last block (low Shift bits one), so the
// span covers exactly the leaf interval [Min, Max].
type Span struct {
	Shift uint
	Min   uint64
	Max   uint64
}

// Blocks returns the number of trie terms the span expands to, saturating
// at MaxUint64.
func (s Span) Blocks() uint64 {
	delta := s.Max>>s.Shift - s.Min>>s.Shift
	if delta == math.MaxUint64 {
		return math.MaxUint64
	}
	return delta + 1
}

// Decomposition is the immutable result of splitting a range into trie
// terms. It carries its own term-count diagnostic, so concurrent queries
// never share mutable state.
type Decomposition struct {
	step  uint
	spans []Span
}

// Step returns the precision step the decomposition was computed for.
func (d *Decomposition) Step() uint {
	return d.step
}

// Empty reports whether the decomposed range covers no values.
func (d *Decomposition) Empty() bool {
	return len(d.spans) == 0
}

// Spans returns the disjoint per-level spans. The slice is shared with the
// decomposition and must not be modified.
func (d *Decomposition) Spans() []Span {
	return d.spans
}

// TermCount returns the total number of trie terms the decomposition
// produces, the primary tuning diagnostic for precision step choice. Fewer,
// coarser terms are cheaper to match but each carries more postings.
// Saturates at MaxUint64.
func (d *Decomposition) TermCount() uint64 {
	var total uint64
	for _, s := range d.spans {
		b := s.Blocks()
		if total+b < total {
			return math.MaxUint64
		}
		total += b
	}
	return total
}

// Terms lazily expands the spans into concrete (shift, key) terms. The
// sequence is restartable and, like every decomposition accessor, safe for
// concurrent use.
//
// Beware that a coarse step over a wide range can expand to a huge number
// of terms (TermCount reports how many); matching against an index via the
// spans directly avoids materializing them.
func (d *Decomposition) Terms() iter.Seq[Term] {
	return func(yield func(Term) bool) {
		for _, s := range d.spans {
			last := s.Max >> s.Shift
			for b := s.Min >> s.Shift; ; b++ {
				t := Term{
					Shift: s.Shift,
					Key:   codec.EncodeSortable(b<<s.Shift, s.Shift),
				}
				if !yield(t) {
					return
				}
				if b == last {
					break
				}
			}
		}
	}
}

// Covers reports whether a value falls inside the decomposed range.
func (d *Decomposition) Covers(v int64) bool {
	u := codec.Sortable(v)
	for _, s := range d.spans {
		if s.Min <= u && u <= s.Max {
			return true
		}
	}
	return false
}

// Decompose splits a range into the minimal set of trie spans whose leaf
// coverage is exactly the normalized inclusive range.
//
// The classic numeric-trie split: at each level the two misaligned boundary
// runs are emitted at the current shift, the aligned middle is handed to the
// next coarser level, and the recursion stops once the middle collapses or
// the value width is exhausted. Each level strictly shrinks the middle, so
// emitted spans never overlap.
func Decompose(r Range, step uint) (*Decomposition, error) {
	if err := validateStep(step); err != nil {
		return nil, err
	}

	d := &Decomposition{step: step}

	loInc, hiInc, empty := r.normalize()
	if empty {
		return d, nil
	}

	lo, hi := codec.Sortable(loInc), codec.Sortable(hiInc)
	for shift := uint(0); ; shift += step {
		if shift+step >= codec.ValueBits {
			// Lowest precision reached: the rest is one run of top-level blocks.
			d.emit(shift, lo, hi)
			return d, nil
		}

		diff := uint64(1) << (shift + step)
		mask := (uint64(1)<<step - 1) << shift

		hasLower := lo&mask != 0
		hasUpper := hi&mask != mask

		nextLo := lo
		if hasLower {
			nextLo += diff
		}
		nextLo &^= mask

		nextHi := hi
		if hasUpper {
			nextHi -= diff
		}
		nextHi &^= mask

		// A wrapped bound means the next coarser block would fall outside the
		// value domain; the middle also ends once the bounds cross.
		if nextLo < lo || nextHi > hi || nextLo > nextHi {
			d.emit(shift, lo, hi)
			return d, nil
		}

		if hasLower {
			d.emit(shift, lo, lo|mask)
		}
		if hasUpper {
			d.emit(shift, hi&^mask, hi)
		}

		lo, hi = nextLo, nextHi
	}
}

// emit records the span [min, max] at the given shift, widening max to the
// last leaf of its block.
func (d *Decomposition) emit(shift uint, min, max uint64) {
	if shift > 0 {
		max |= uint64(1)<<shift - 1
	}
	d.spans = append(d.spans, Span{Shift: shift, Min: min, Max: max})
}
