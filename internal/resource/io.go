package resource

import (
	"context"
	"io"
)

// LimitedWriter throttles writes through a Controller's IO limiter.
type LimitedWriter struct {
	w   io.Writer
	rc  *Controller
	ctx context.Context
}

// NewLimitedWriter wraps w so that every write waits for IO tokens.
func NewLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *LimitedWriter {
	return &LimitedWriter{w: w, rc: rc, ctx: ctx}
}

func (w *LimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// LimitedReader throttles reads through a Controller's IO limiter.
type LimitedReader struct {
	r   io.Reader
	rc  *Controller
	ctx context.Context
}

// NewLimitedReader wraps r so that every read waits for IO tokens.
func NewLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *LimitedReader {
	return &LimitedReader{r: r, rc: rc, ctx: ctx}
}

func (r *LimitedReader) Read(p []byte) (int, error) {
	// Tokens are charged for the buffer size, the upper bound of what
	// this read can consume.
	if err := r.rc.AcquireIO(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
