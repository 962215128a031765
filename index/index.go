package index

import (
	"errors"
	"slices"
	"sync"

	"github.com/hupe1980/numtrie/codec"
	"github.com/hupe1980/numtrie/trie"
)

var (
	// ErrSealed is returned when writing to a sealed index.
	ErrSealed = errors.New("index is sealed")

	// ErrNotSealed is returned when querying or serializing an unsealed index.
	ErrNotSealed = errors.New("index is not sealed")
)

// TermIndex is a presence-only inverted index over trie terms.
//
// Terms are shift-tagged, so the same coarse numeric prefix indexed at two
// different levels never collides. No term frequencies or positions are
// kept: a posting merely records that a document carries the term.
type TermIndex struct {
	mu     sync.RWMutex
	fields map[string]*termField
	sealed bool
}

// termField holds one columnar level per shift.
type termField struct {
	levels map[uint]*termLevel
}

// termLevel stores coarse keys and their postings for a single shift.
//
// Before Seal, writes accumulate in the pending columns. Seal sorts them,
// deduplicates into keys/postings and drops the pending storage. After Seal
// the exported columns are immutable and read lock-free.
//
// Invariant when sealed: keys is strictly ascending and postings[i] holds
// the documents carrying keys[i].
type termLevel struct {
	keys     []uint64
	postings []*Bitmap

	pendingKeys []uint64
	pendingDocs []uint32
}

// New creates an empty, unsealed term index.
func New() *TermIndex {
	return &TermIndex{fields: make(map[string]*termField)}
}

// Add indexes a single trie term for a document.
func (ti *TermIndex) Add(field string, doc uint32, term trie.Term) error {
	sortable, shift, err := codec.DecodeSortable(term.Key)
	if err != nil {
		return err
	}

	ti.mu.Lock()
	defer ti.mu.Unlock()

	if ti.sealed {
		return ErrSealed
	}

	f := ti.fields[field]
	if f == nil {
		f = &termField{levels: make(map[uint]*termLevel)}
		ti.fields[field] = f
	}

	lvl := f.levels[shift]
	if lvl == nil {
		lvl = &termLevel{}
		f.levels[shift] = lvl
	}

	lvl.pendingKeys = append(lvl.pendingKeys, sortable)
	lvl.pendingDocs = append(lvl.pendingDocs, doc)
	return nil
}

// AddValue indexes a value at every precision level of the given step, the
// write path a document field takes: one stored term per level.
func (ti *TermIndex) AddValue(field string, doc uint32, value int64, step uint) error {
	terms, err := trie.Terms(value, step)
	if err != nil {
		return err
	}
	for term := range terms {
		if err := ti.Add(field, doc, term); err != nil {
			return err
		}
	}
	return nil
}

// Seal sorts and freezes the index. After Seal, writes fail with ErrSealed
// and reads no longer take the lock on the frozen columns.
// Sealing an already sealed index is a no-op.
func (ti *TermIndex) Seal() {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	if ti.sealed {
		return
	}

	for _, f := range ti.fields {
		for _, lvl := range f.levels {
			lvl.seal()
		}
	}
	ti.sealed = true
}

// IsSealed reports whether the index has been sealed.
func (ti *TermIndex) IsSealed() bool {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return ti.sealed
}

// Fields returns the indexed field names in sorted order.
func (ti *TermIndex) Fields() []string {
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	names := make([]string, 0, len(ti.fields))
	for name := range ti.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TermCount returns the number of distinct terms indexed for a field across
// all levels. Only valid on a sealed index.
func (ti *TermIndex) TermCount(field string) (int, error) {
	if !ti.IsSealed() {
		return 0, ErrNotSealed
	}

	f := ti.fields[field]
	if f == nil {
		return 0, nil
	}
	n := 0
	for _, lvl := range f.levels {
		n += len(lvl.keys)
	}
	return n, nil
}

func (lvl *termLevel) seal() {
	n := len(lvl.pendingKeys)
	if n == 0 {
		lvl.pendingKeys, lvl.pendingDocs = nil, nil
		return
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		ka, kb := lvl.pendingKeys[a], lvl.pendingKeys[b]
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		default:
			return 0
		}
	})

	lvl.keys = make([]uint64, 0, n)
	lvl.postings = make([]*Bitmap, 0, n)
	for _, i := range order {
		k := lvl.pendingKeys[i]
		if len(lvl.keys) == 0 || lvl.keys[len(lvl.keys)-1] != k {
			lvl.keys = append(lvl.keys, k)
			lvl.postings = append(lvl.postings, NewBitmap())
		}
		lvl.postings[len(lvl.postings)-1].Add(lvl.pendingDocs[i])
	}

	lvl.pendingKeys, lvl.pendingDocs = nil, nil
}

// orRange ORs into dst the postings of every key in [min, max].
// Caller must guarantee the level is sealed.
func (lvl *termLevel) orRange(min, max uint64, dst *Bitmap) {
	lo, _ := slices.BinarySearch(lvl.keys, min)
	for i := lo; i < len(lvl.keys) && lvl.keys[i] <= max; i++ {
		dst.Or(lvl.postings[i])
	}
}
