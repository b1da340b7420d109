package wire

import (
	"context"
	"errors"
	"io"
	"strconv"
)

// ReadHeader fills buf from r.
//
// Returns:
//   - nil: buf is full
//   - io.EOF: the stream ended cleanly before the first byte (header boundary)
//   - ctx.Err(): ctx was done before or during the read, unclassified
//   - *Error with KindTruncatedStream: any other failure, including a partial header
func ReadHeader(ctx context.Context, r io.Reader, buf []byte, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := io.ReadFull(NewContextReader(ctx, r), buf)
	if err == nil {
		return nil
	}
	if n == 0 && errors.Is(err, io.EOF) {
		return io.EOF
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return &Error{
		Kind: KindTruncatedStream,
		Op:   op,
		Msg:  "read " + strconv.Itoa(n) + " of " + strconv.Itoa(len(buf)) + " bytes",
		Err:  err,
	}
}

// ContextReader fails reads once its context is done.
// Reads already in progress on the inner reader are not interrupted.
type ContextReader struct {
	ctx   context.Context
	inner io.Reader
}

// NewContextReader wraps r so every Read first checks ctx.
func NewContextReader(ctx context.Context, r io.Reader) *ContextReader {
	if cr, ok := r.(*ContextReader); ok && cr.ctx == ctx {
		return cr
	}
	return &ContextReader{ctx: ctx, inner: r}
}

func (cr *ContextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.inner.Read(p)
}
