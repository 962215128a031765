package numtrie

import (
	"github.com/hupe1980/numtrie/internal/resource"
)

// DefaultPrecisionStep is the per-level bit width used when no step is
// configured. Lower steps produce more terms per value but fewer terms per
// range query.
const DefaultPrecisionStep = uint(4)

type options struct {
	logger      *Logger
	defaultStep uint
	fieldSteps  map[string]uint
	resource    resource.Config
	compression Compression
}

func defaultOptions() options {
	return options{
		logger:      NoopLogger(),
		defaultStep: DefaultPrecisionStep,
		fieldSteps:  make(map[string]uint),
		compression: CompressionS2,
	}
}

// Option configures a Store.
type Option func(*options)

// WithLogger configures the logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithPrecisionStep configures the default per-level bit width for fields
// without an explicit step.
//
// The step trades index size against query cost: step 1 indexes 64 terms
// per value and decomposes any range into at most 127 terms, step 8 indexes
// 8 terms per value with up to 2295 terms per range. Steps in the 2..8
// range work well in practice.
func WithPrecisionStep(step uint) Option {
	return func(o *options) {
		o.defaultStep = step
	}
}

// WithFieldStep configures the precision step of a single field,
// overriding the default.
func WithFieldStep(field string, step uint) Option {
	return func(o *options) {
		o.fieldSteps[field] = step
	}
}

// WithResourceLimits bounds background snapshot work. The zero config
// means unlimited IO and a single background job.
func WithResourceLimits(cfg resource.Config) Option {
	return func(o *options) {
		o.resource = cfg
	}
}

// WithCompression configures the compression scheme for saved snapshots.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

type searchOptions struct {
	sortByValue bool
	descending  bool
	limit       int
}

// SearchOption configures a single RangeSearch call.
type SearchOption func(*searchOptions)

// WithSortByValue sorts results by their stored value, ascending or
// descending. Without it, results come back in document id order.
func WithSortByValue(descending bool) SearchOption {
	return func(o *searchOptions) {
		o.sortByValue = true
		o.descending = descending
	}
}

// WithLimit caps the number of returned documents. Applied after sorting.
func WithLimit(n int) SearchOption {
	return func(o *searchOptions) {
		o.limit = n
	}
}
