package numtrie

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/numtrie/trie"
)

// The fixture indexes documents with two flavors of fields at precision
// steps 8, 4 and 2: "fieldN" carries widely spaced values crossing the
// sign boundary, "ascfieldN" carries unit-distance ascending values so hit
// counts are exact range lengths.
const (
	testDistance    = int64(66666)
	testStartOffset = -(int64(1) << 31)
	testNumDocs     = 10000
)

var (
	fixtureOnce sync.Once
	fixtureErr  error
	fixture     *Store
)

func testStore(t *testing.T) *Store {
	t.Helper()

	fixtureOnce.Do(func() {
		s := New(
			WithFieldStep("field8", 8),
			WithFieldStep("field4", 4),
			WithFieldStep("field2", 2),
			WithFieldStep("ascfield8", 8),
			WithFieldStep("ascfield4", 4),
			WithFieldStep("ascfield2", 2),
		)

		ctx := context.Background()

		docs := make([]uint32, testNumDocs)
		spaced := make([]int64, testNumDocs)
		asc := make([]int64, testNumDocs)
		for l := range testNumDocs {
			docs[l] = uint32(l)
			spaced[l] = testDistance*int64(l) + testStartOffset
			asc[l] = int64(l) - testNumDocs/2
		}

		for _, field := range []string{"field8", "field4", "field2"} {
			if fixtureErr = s.BulkInsert(ctx, field, docs, spaced); fixtureErr != nil {
				return
			}
		}
		for _, field := range []string{"ascfield8", "ascfield4", "ascfield2"} {
			if fixtureErr = s.BulkInsert(ctx, field, docs, asc); fixtureErr != nil {
				return
			}
		}

		s.Seal()
		fixture = s
	})

	require.NoError(t, fixtureErr)
	return fixture
}

func fieldValue(t *testing.T, s *Store, field string, doc uint32) int64 {
	t.Helper()
	v, ok := s.Value(field, doc)
	require.True(t, ok)
	return v
}

func steps() []struct {
	name string
	step uint
} {
	return []struct {
		name string
		step uint
	}{
		{"8bit", 8},
		{"4bit", 4},
		{"2bit", 2},
	}
}

func TestRangeSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, tc := range steps() {
		t.Run(tc.name, func(t *testing.T) {
			field := "field" + tc.name[:1]
			count := int64(3000)
			lower := (testDistance * 3 / 2) + testStartOffset
			upper := lower + count*testDistance + (testDistance / 3)

			res, err := s.RangeSearch(ctx, field, trie.Between(lower, upper))
			require.NoError(t, err)
			require.Len(t, res.Docs, int(count))
			assert.Positive(t, res.TermCount)

			assert.Equal(t, 2*testDistance+testStartOffset, fieldValue(t, s, field, res.Docs[0]))
			assert.Equal(t, (1+count)*testDistance+testStartOffset, fieldValue(t, s, field, res.Docs[len(res.Docs)-1]))
		})
	}
}

func TestRangeSearch_LeftOpen(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, tc := range steps() {
		t.Run(tc.name, func(t *testing.T) {
			field := "field" + tc.name[:1]
			count := int64(3000)
			upper := (count-1)*testDistance + (testDistance / 3) + testStartOffset

			res, err := s.RangeSearch(ctx, field, trie.AtMost(upper))
			require.NoError(t, err)
			require.Len(t, res.Docs, int(count))

			assert.Equal(t, testStartOffset, fieldValue(t, s, field, res.Docs[0]))
			assert.Equal(t, (count-1)*testDistance+testStartOffset, fieldValue(t, s, field, res.Docs[len(res.Docs)-1]))
		})
	}
}

func TestRangeSearch_RightOpen(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, tc := range steps() {
		t.Run(tc.name, func(t *testing.T) {
			field := "field" + tc.name[:1]
			count := int64(3000)
			lower := (count-1)*testDistance + (testDistance / 3) + testStartOffset

			res, err := s.RangeSearch(ctx, field, trie.AtLeast(lower))
			require.NoError(t, err)
			require.Len(t, res.Docs, testNumDocs-int(count))

			assert.Equal(t, count*testDistance+testStartOffset, fieldValue(t, s, field, res.Docs[0]))
			assert.Equal(t, (testNumDocs-1)*testDistance+testStartOffset, fieldValue(t, s, field, res.Docs[len(res.Docs)-1]))
		})
	}
}

// TestRangeSearch_VsBruteForce compares decomposed range matches against a
// linear scan for random bounds and every inclusivity combination.
func TestRangeSearch_VsBruteForce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, tc := range steps() {
		t.Run(tc.name, func(t *testing.T) {
			field := "field" + tc.name[:1]
			rnd := rand.New(rand.NewSource(int64(tc.step)))

			for range 50 {
				lower := int64(rnd.Float64()*testNumDocs*float64(testDistance)) + testStartOffset
				upper := int64(rnd.Float64()*testNumDocs*float64(testDistance)) + testStartOffset
				if lower > upper {
					lower, upper = upper, lower
				}

				for _, inc := range [][2]bool{{true, true}, {false, false}, {false, true}, {true, false}} {
					r := trie.Range{
						Lower: &lower, Upper: &upper,
						LowerInclusive: inc[0], UpperInclusive: inc[1],
					}

					res, err := s.RangeSearch(ctx, field, r)
					require.NoError(t, err)

					want := 0
					for l := range testNumDocs {
						if r.Contains(testDistance*int64(l) + testStartOffset) {
							want++
						}
					}
					require.Len(t, res.Docs, want, "range %s", r)
				}
			}
		})
	}
}

// TestRangeSearch_SplitCounts checks exact hit counts on unit-distance
// data: inclusive b-a+1, exclusive max(b-a-1, 0), half-open b-a.
func TestRangeSearch_SplitCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, tc := range steps() {
		t.Run(tc.name, func(t *testing.T) {
			field := "ascfield" + tc.name[:1]
			rnd := rand.New(rand.NewSource(int64(tc.step) + 100))

			search := func(lowerInc, upperInc bool, lower, upper int64) int {
				res, err := s.RangeSearch(ctx, field, trie.Range{
					Lower: &lower, Upper: &upper,
					LowerInclusive: lowerInc, UpperInclusive: upperInc,
				})
				require.NoError(t, err)
				return len(res.Docs)
			}

			for range 50 {
				lower := int64(rnd.Float64()*testNumDocs) - testNumDocs/2
				upper := int64(rnd.Float64()*testNumDocs) - testNumDocs/2
				if lower > upper {
					lower, upper = upper, lower
				}

				assert.EqualValues(t, upper-lower+1, search(true, true, lower, upper))
				assert.EqualValues(t, max(upper-lower-1, 0), search(false, false, lower, upper))
				assert.EqualValues(t, upper-lower, search(false, true, lower, upper))
				assert.EqualValues(t, upper-lower, search(true, false, lower, upper))
			}
		})
	}
}

// TestRangeSearch_Sorting uses reverse value sorting, so results must come
// back strictly descending.
func TestRangeSearch_Sorting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, tc := range steps() {
		t.Run(tc.name, func(t *testing.T) {
			field := "field" + tc.name[:1]
			rnd := rand.New(rand.NewSource(int64(tc.step) + 200))

			for range 10 {
				lower := int64(rnd.Float64()*testNumDocs*float64(testDistance)) + testStartOffset
				upper := int64(rnd.Float64()*testNumDocs*float64(testDistance)) + testStartOffset
				if lower > upper {
					lower, upper = upper, lower
				}

				res, err := s.RangeSearch(ctx, field, trie.Between(lower, upper), WithSortByValue(true))
				require.NoError(t, err)
				if len(res.Docs) == 0 {
					continue
				}

				last := fieldValue(t, s, field, res.Docs[0])
				for _, doc := range res.Docs[1:] {
					v := fieldValue(t, s, field, doc)
					assert.Greater(t, last, v)
					last = v
				}
			}
		})
	}
}

func TestRangeSearch_EmptyAndUnknown(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Inverted bounds match nothing.
	res, err := s.RangeSearch(ctx, "field8", trie.Between(100, -100))
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
	assert.Zero(t, res.TermCount)

	// A field that was never indexed matches nothing.
	res, err = s.RangeSearch(ctx, "nosuchfield", trie.All())
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
}

func TestRangeSearch_Limit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	res, err := s.RangeSearch(ctx, "ascfield8", trie.Between(-100, 100), WithLimit(5), WithSortByValue(false))
	require.NoError(t, err)
	require.Len(t, res.Docs, 5)

	for i, doc := range res.Docs {
		assert.Equal(t, int64(-100+i), fieldValue(t, s, "ascfield8", doc))
	}
}

func TestStore_SealSemantics(t *testing.T) {
	ctx := context.Background()

	s := New()
	require.NoError(t, s.Insert(ctx, "n", 1, 42))

	// Searching before Seal fails.
	_, err := s.RangeSearch(ctx, "n", trie.All())
	require.ErrorIs(t, err, ErrNotSealed)

	s.Seal()
	require.True(t, s.IsSealed())

	// Writing after Seal fails.
	err = s.Insert(ctx, "n", 2, 43)
	require.ErrorIs(t, err, ErrSealed)
	err = s.BulkInsert(ctx, "n", []uint32{2}, []int64{43})
	require.ErrorIs(t, err, ErrSealed)

	res, err := s.RangeSearch(ctx, "n", trie.Between(42, 42))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, res.Docs)
}

func TestStore_BulkInsertMismatch(t *testing.T) {
	s := New()

	err := s.BulkInsert(context.Background(), "n", []uint32{1, 2}, []int64{1})

	var mismatch *ErrDocCountMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Docs)
	assert.Equal(t, 1, mismatch.Values)
}

func TestStore_InvalidStep(t *testing.T) {
	s := New(WithPrecisionStep(0))

	err := s.Insert(context.Background(), "n", 1, 42)

	var invalid *trie.ErrInvalidPrecisionStep
	require.ErrorAs(t, err, &invalid)

	// A failed insert leaves no trace: no sort value for the document.
	_, ok := s.Value("n", 1)
	assert.False(t, ok)

	err = s.BulkInsert(context.Background(), "n", []uint32{2}, []int64{43})
	require.ErrorAs(t, err, &invalid)
	_, ok = s.Value("n", 2)
	assert.False(t, ok)
}

func BenchmarkRangeSearch(b *testing.B) {
	s := New(WithFieldStep("bench", 4))
	ctx := context.Background()

	docs := make([]uint32, testNumDocs)
	vals := make([]int64, testNumDocs)
	for l := range testNumDocs {
		docs[l] = uint32(l)
		vals[l] = testDistance*int64(l) + testStartOffset
	}
	if err := s.BulkInsert(ctx, "bench", docs, vals); err != nil {
		b.Fatal(err)
	}
	s.Seal()

	lower := testStartOffset + 1000*testDistance
	upper := testStartOffset + 7000*testDistance
	r := trie.Between(lower, upper)

	b.ResetTimer()
	for b.Loop() {
		if _, err := s.RangeSearch(ctx, "bench", r); err != nil {
			b.Fatal(err)
		}
	}
}
