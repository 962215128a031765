package trie

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeNormalize(t *testing.T) {
	tests := []struct {
		name    string
		r       Range
		wantLo  int64
		wantHi  int64
		isEmpty bool
	}{
		{"Inclusive", Between(-5, 5), -5, 5, false},
		{"Exclusive", Between(-5, 5).Exclusive(), -4, 4, false},
		{"LeftExclusive", Range{Lower: ptr(int64(-5)), Upper: ptr(int64(5)), UpperInclusive: true}, -4, 5, false},
		{"SingleValue", Between(7, 7), 7, 7, false},
		{"Inverted", Between(5, -5), 0, 0, true},
		{"ExclusiveCollapse", Between(3, 4).Exclusive(), 0, 0, true},
		{"AdjacentExclusive", Between(3, 5).Exclusive(), 4, 4, false},
		{"FullyOpen", All(), math.MinInt64, math.MaxInt64, false},
		{"LeftOpen", AtMost(100), math.MinInt64, 100, false},
		{"RightOpen", AtLeast(100), 100, math.MaxInt64, false},
		{"ExclusiveMaxLower", Range{Lower: ptr(int64(math.MaxInt64))}, 0, 0, true},
		{"ExclusiveMinUpper", Range{Upper: ptr(int64(math.MinInt64))}, 0, 0, true},
		{"InclusiveExtremes", Between(math.MinInt64, math.MaxInt64), math.MinInt64, math.MaxInt64, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, empty := tt.r.normalize()
			require.Equal(t, tt.isEmpty, empty)
			if !empty {
				assert.Equal(t, tt.wantLo, lo)
				assert.Equal(t, tt.wantHi, hi)
			}
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := Between(-3, 3).Exclusive()
	assert.False(t, r.Contains(-3))
	assert.True(t, r.Contains(-2))
	assert.True(t, r.Contains(0))
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(3))

	assert.True(t, All().Contains(math.MinInt64))
	assert.True(t, All().Contains(math.MaxInt64))

	assert.False(t, Between(5, -5).Contains(0))
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "[1,9]", Between(1, 9).String())
	assert.Equal(t, "(1,9)", Between(1, 9).Exclusive().String())
	assert.Equal(t, "[-inf,+inf]", All().String())
	assert.Equal(t, "[7,+inf]", AtLeast(7).String())
}

func ptr(v int64) *int64 {
	return &v
}
