package index

import (
	"github.com/hupe1980/numtrie/trie"
)

// Matcher is the disjunctive predicate produced from a range decomposition:
// a document matches when any of its precomputed trie terms equals one of
// the decomposition's terms at the same shift level.
//
// Evaluated against a TermIndex over the same field and precision step, the
// matched document set is exactly the set whose value v satisfies the
// original range bounds.
//
// A matcher is immutable; its term-count diagnostic comes from the
// decomposition it wraps, not from shared per-query state.
type Matcher struct {
	field string
	d     *trie.Decomposition
}

// NewMatcher creates a matcher for a field from a decomposition.
func NewMatcher(field string, d *trie.Decomposition) *Matcher {
	return &Matcher{field: field, d: d}
}

// Field returns the field the matcher applies to.
func (m *Matcher) Field() string {
	return m.field
}

// TermCount returns the number of trie terms the underlying decomposition
// produces.
func (m *Matcher) TermCount() uint64 {
	return m.d.TermCount()
}

// Empty reports whether the matcher can never match.
func (m *Matcher) Empty() bool {
	return m.d.Empty()
}

// Evaluate returns the bitmap of documents matching the decomposition.
//
// An unknown field matches nothing. The returned bitmap comes from the
// package pool and ownership transfers to the caller; hand it back with
// PutBitmap once consumed. The index must be sealed.
func (m *Matcher) Evaluate(ti *TermIndex) (*Bitmap, error) {
	if !ti.IsSealed() {
		return nil, ErrNotSealed
	}

	result := GetBitmap()
	f := ti.fields[m.field]
	if f == nil {
		return result, nil
	}

	for _, span := range m.d.Spans() {
		lvl := f.levels[span.Shift]
		if lvl == nil {
			continue
		}
		// Keys are block starts; a block lies in the span iff its start does,
		// since span bounds are block-aligned at the span's shift.
		lvl.orRange(span.Min, span.Max, result)
	}
	return result, nil
}
