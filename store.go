package numtrie

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/numtrie/index"
	"github.com/hupe1980/numtrie/internal/resource"
	"github.com/hupe1980/numtrie/trie"
)

// Store indexes numeric document fields as trie terms and answers range
// queries over them.
//
// A store has two phases. While open, Insert and BulkInsert accept writes.
// Seal freezes the index; after Seal, RangeSearch and SaveSnapshot are
// available and reads are lock-free.
type Store struct {
	opts   options
	logger *Logger
	rc     *resource.Controller

	mu     sync.RWMutex
	sealed bool
	idx    *index.TermIndex
	values map[string]map[uint32]int64
}

// New creates an empty store.
func New(optFns ...Option) *Store {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{
		opts:   opts,
		logger: opts.logger,
		rc:     resource.NewController(opts.resource),
		idx:    index.New(),
		values: make(map[string]map[uint32]int64),
	}
}

// StepFor returns the precision step used for a field.
func (s *Store) StepFor(field string) uint {
	if step, ok := s.opts.fieldSteps[field]; ok {
		return step
	}
	return s.opts.defaultStep
}

// Insert indexes one numeric field value for a document. A document may
// carry many fields; inserting the same field twice for a document makes
// both values match, but only the last one is kept as the sort key.
func (s *Store) Insert(ctx context.Context, field string, doc uint32, value int64) error {
	err := s.insert(field, doc, value)
	s.logger.LogInsert(ctx, field, doc, err)
	return err
}

func (s *Store) insert(field string, doc uint32, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}

	// Index first: the sort value is recorded only for documents the index
	// actually carries.
	if err := s.idx.AddValue(field, doc, value, s.StepFor(field)); err != nil {
		return err
	}

	vals := s.values[field]
	if vals == nil {
		vals = make(map[uint32]int64)
		s.values[field] = vals
	}
	vals[doc] = value
	return nil
}

// BulkInsert indexes one field for many documents, parallelized across
// CPUs. docs[i] carries values[i].
func (s *Store) BulkInsert(ctx context.Context, field string, docs []uint32, values []int64) error {
	err := s.bulkInsert(ctx, field, docs, values)
	s.logger.LogBulkInsert(ctx, field, len(docs), err)
	return err
}

func (s *Store) bulkInsert(ctx context.Context, field string, docs []uint32, values []int64) error {
	if len(docs) != len(values) {
		return &ErrDocCountMismatch{Docs: len(docs), Values: len(values)}
	}

	s.mu.RLock()
	sealed := s.sealed
	s.mu.RUnlock()
	if sealed {
		return ErrSealed
	}

	step := s.StepFor(field)

	g, ctx := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(docs) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}

	for start := 0; start < len(docs); start += chunk {
		end := min(start+chunk, len(docs))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				if err := s.idx.AddValue(field, docs[i], values[i], step); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Record sort values only after every index add succeeded.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return ErrSealed
	}
	vals := s.values[field]
	if vals == nil {
		vals = make(map[uint32]int64)
		s.values[field] = vals
	}
	for i, doc := range docs {
		vals[doc] = values[i]
	}
	return nil
}

// Seal freezes the store. Sealing twice is a no-op.
func (s *Store) Seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()

	s.idx.Seal()
}

// IsSealed reports whether the store has been sealed.
func (s *Store) IsSealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Value returns the stored sort value for a document field.
func (s *Store) Value(field string, doc uint32) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[field][doc]
	return v, ok
}

// Result holds the outcome of a range search.
type Result struct {
	// Docs are the matching document ids, in id order unless the search
	// requested value sorting.
	Docs []uint32

	// TermCount is the number of trie terms the range decomposed into,
	// a diagnostic for tuning the precision step.
	TermCount uint64
}

// RangeSearch returns the documents whose field value falls inside the
// range. A field that was never indexed matches nothing.
func (s *Store) RangeSearch(ctx context.Context, field string, r trie.Range, optFns ...SearchOption) (*Result, error) {
	res, err := s.rangeSearch(field, r, optFns...)
	if err != nil {
		s.logger.LogSearch(ctx, field, 0, 0, err)
		return nil, err
	}
	s.logger.LogSearch(ctx, field, res.TermCount, uint64(len(res.Docs)), nil)
	return res, nil
}

func (s *Store) rangeSearch(field string, r trie.Range, optFns ...SearchOption) (*Result, error) {
	if !s.IsSealed() {
		return nil, ErrNotSealed
	}

	var so searchOptions
	for _, fn := range optFns {
		fn(&so)
	}

	d, err := trie.Decompose(r, s.StepFor(field))
	if err != nil {
		return nil, err
	}

	m := index.NewMatcher(field, d)
	bm, err := m.Evaluate(s.idx)
	if err != nil {
		return nil, err
	}

	docs := bm.ToArray()
	index.PutBitmap(bm)

	if so.sortByValue {
		s.sortByValue(field, docs, so.descending)
	}
	if so.limit > 0 && so.limit < len(docs) {
		docs = docs[:so.limit]
	}

	return &Result{Docs: docs, TermCount: m.TermCount()}, nil
}

// sortByValue orders docs by their stored value, breaking ties by id.
func (s *Store) sortByValue(field string, docs []uint32, descending bool) {
	s.mu.RLock()
	vals := s.values[field]
	s.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		vi, vj := vals[docs[i]], vals[docs[j]]
		if vi != vj {
			if descending {
				return vi > vj
			}
			return vi < vj
		}
		return docs[i] < docs[j]
	})
}
