package payload

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/pithecene-io/ddmscope/wire"
)

// bytesProvider serves an in-memory payload. The slice is never written after
// construction.
type bytesProvider struct {
	data   []byte
	closed atomic.Bool
}

// FromBytes returns a rewindable provider over data. The caller must not
// modify data afterwards.
func FromBytes(data []byte) Provider {
	return &bytesProvider{data: data}
}

// Empty returns a rewindable provider with no bytes.
func Empty() Provider {
	return &bytesProvider{}
}

func (p *bytesProvider) Acquire(ctx context.Context) (io.Reader, error) {
	if p.closed.Load() {
		return nil, wire.Errorf(wire.KindUnavailable, "acquire payload", "provider closed")
	}
	return wire.NewContextReader(ctx, bytes.NewReader(p.data)), nil
}

func (p *bytesProvider) Release(io.Reader) {}

func (p *bytesProvider) Shutdown() error { return nil }

func (p *bytesProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *bytesProvider) Materialize(context.Context) (Provider, error) {
	if p.closed.Load() {
		return nil, wire.Errorf(wire.KindUnavailable, "materialize payload", "provider closed")
	}
	return p, nil
}

func (p *bytesProvider) Rewindable() bool { return true }
