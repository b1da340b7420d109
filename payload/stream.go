package payload

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pithecene-io/ddmscope/wire"
)

type streamState int

const (
	stateIdle streamState = iota
	stateAcquired
	stateReleased
	stateClosed
)

// streamProvider exposes the next n bytes of a shared reader exactly once.
type streamProvider struct {
	mu        sync.Mutex
	src       io.Reader
	remaining int64
	state     streamState
	// cached holds the payload once materialized; the provider then serves
	// it like an in-memory payload.
	cached []byte
}

// FromStream returns a single-pass provider bound to the next n bytes of src.
// Nothing is read from src until the payload is acquired, materialized or
// shut down.
func FromStream(src io.Reader, n int64) Provider {
	return &streamProvider{src: src, remaining: n}
}

func (p *streamProvider) Acquire(ctx context.Context) (io.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateClosed {
		return nil, wire.Errorf(wire.KindUnavailable, "acquire payload", "provider closed")
	}
	if p.cached != nil {
		return FromBytes(p.cached).Acquire(ctx)
	}
	if p.state != stateIdle {
		return nil, wire.Errorf(wire.KindUnavailable, "acquire payload", "single-pass payload already consumed")
	}
	p.state = stateAcquired
	return &boundedReader{ctx: ctx, p: p}, nil
}

func (p *streamProvider) Release(io.Reader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateAcquired {
		p.state = stateReleased
	}
}

// Shutdown drains the unread bytes and invalidates the payload. A
// materialized copy stays readable through the provider.
func (p *streamProvider) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.drainLocked()
	if p.cached == nil && p.state != stateClosed {
		p.state = stateReleased
	}
	return err
}

// drainLocked discards the unread bytes straight from src, bypassing any
// acquisition context.
func (p *streamProvider) drainLocked() error {
	if p.remaining == 0 {
		return nil
	}
	n, err := io.CopyN(io.Discard, p.src, p.remaining)
	p.remaining -= n
	if err != nil {
		return &wire.Error{Kind: wire.KindTruncatedStream, Op: "drain payload", Err: err}
	}
	return nil
}

func (p *streamProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = stateClosed
	return nil
}

func (p *streamProvider) Materialize(ctx context.Context) (Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateClosed {
		return nil, wire.Errorf(wire.KindUnavailable, "materialize payload", "provider closed")
	}
	if p.cached != nil {
		return FromBytes(p.cached), nil
	}
	if p.state != stateIdle {
		return nil, wire.Errorf(wire.KindUnavailable, "materialize payload", "single-pass payload already consumed")
	}

	// The declared length comes from the peer; the buffer grows with the
	// bytes actually received instead of being allocated up front.
	want := p.remaining
	buf, err := io.ReadAll(io.LimitReader(wire.NewContextReader(ctx, p.src), want))
	p.remaining -= int64(len(buf))
	if err == nil && int64(len(buf)) < want {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		p.state = stateReleased
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return nil, &wire.Error{Kind: wire.KindTruncatedStream, Op: "materialize payload", Err: err}
	}
	p.cached = buf
	return FromBytes(buf), nil
}

func (p *streamProvider) Rewindable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cached != nil
}

// boundedReader reads at most the provider's remaining bytes from src.
type boundedReader struct {
	ctx context.Context
	p   *streamProvider
}

func (r *boundedReader) Read(b []byte) (int, error) {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateAcquired {
		return 0, wire.Errorf(wire.KindUnavailable, "read payload", "payload released")
	}
	if p.remaining == 0 {
		return 0, io.EOF
	}
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if int64(len(b)) > p.remaining {
		b = b[:p.remaining]
	}
	n, err := p.src.Read(b)
	p.remaining -= int64(n)
	if errors.Is(err, io.EOF) {
		if p.remaining > 0 {
			return n, &wire.Error{Kind: wire.KindTruncatedStream, Op: "read payload", Err: io.ErrUnexpectedEOF}
		}
		err = nil
	}
	return n, err
}
