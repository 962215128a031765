package trie

import (
	"fmt"
	"math"
)

// Range describes a query interval over signed 64-bit values.
//
// A nil bound means the range is open on that side and extends to the
// respective extreme of the value domain; the inclusivity flag of an open
// side is ignored. The zero value is the fully open range.
type Range struct {
	Lower          *int64
	Upper          *int64
	LowerInclusive bool
	UpperInclusive bool
}

// Between returns the inclusive range [lower, upper].
func Between(lower, upper int64) Range {
	return Range{
		Lower:          &lower,
		Upper:          &upper,
		LowerInclusive: true,
		UpperInclusive: true,
	}
}

// AtLeast returns the left-bounded range [lower, +inf).
func AtLeast(lower int64) Range {
	return Range{Lower: &lower, LowerInclusive: true}
}

// AtMost returns the right-bounded range (-inf, upper].
func AtMost(upper int64) Range {
	return Range{Upper: &upper, UpperInclusive: true}
}

// All returns the fully open range.
func All() Range {
	return Range{}
}

// Exclusive returns a copy of the range with both present bounds excluded.
func (r Range) Exclusive() Range {
	r.LowerInclusive = false
	r.UpperInclusive = false
	return r
}

func (r Range) String() string {
	lb, rb := "[", "]"
	lo, hi := "-inf", "+inf"
	if r.Lower != nil {
		lo = fmt.Sprintf("%d", *r.Lower)
		if !r.LowerInclusive {
			lb = "("
		}
	}
	if r.Upper != nil {
		hi = fmt.Sprintf("%d", *r.Upper)
		if !r.UpperInclusive {
			rb = ")"
		}
	}
	return lb + lo + "," + hi + rb
}

// normalize folds the inclusivity flags into an inclusive [lo, hi] pair.
//
// Excluding a bound moves it by one in two's complement; moving MaxInt64 up
// or MinInt64 down cannot be represented and degenerates to the empty range,
// as does an inverted input.
func (r Range) normalize() (lo, hi int64, empty bool) {
	lo = math.MinInt64
	if r.Lower != nil {
		lo = *r.Lower
		if !r.LowerInclusive {
			if lo == math.MaxInt64 {
				return 0, 0, true
			}
			lo++
		}
	}

	hi = math.MaxInt64
	if r.Upper != nil {
		hi = *r.Upper
		if !r.UpperInclusive {
			if hi == math.MinInt64 {
				return 0, 0, true
			}
			hi--
		}
	}

	if lo > hi {
		return 0, 0, true
	}
	return lo, hi, false
}

// Contains reports whether a value lies in the range. It is the brute-force
// reference predicate the decomposed term set must agree with.
func (r Range) Contains(v int64) bool {
	lo, hi, empty := r.normalize()
	if empty {
		return false
	}
	return lo <= v && v <= hi
}
