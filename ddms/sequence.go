package ddms

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"iter"

	"github.com/pithecene-io/ddmscope/jdwp"
	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

type seqState int

const (
	// stateAtHeader: the stream is positioned at a chunk header.
	stateAtHeader seqState = iota
	// stateHaveChunk: a chunk was yielded and may be partially consumed.
	stateHaveChunk
	// stateEnd: the sequence is exhausted, failed or abandoned.
	stateEnd
)

// Sequence yields the chunks of one packet payload in order, without
// buffering it. It is single-pass and forward-only.
//
// Before reading a chunk header, Next drains whatever the caller left unread
// of the previous chunk. Close abandons the sequence. A Sequence is not safe
// for concurrent use.
type Sequence struct {
	src   payload.Provider
	r     io.Reader
	cur   *Chunk
	state seqState
	err   error
}

// DecodeChunks starts decoding the chunks of p. Packets that cannot carry
// chunks fail with wire.ErrProtocolMismatch before any byte is read.
func DecodeChunks(ctx context.Context, p jdwp.View) (*Sequence, error) {
	if !jdwp.IsDDMSCommand(p) {
		return nil, wire.Errorf(wire.KindProtocolMismatch, "decode chunks", "packet %d is not a DDMS packet", p.ID())
	}
	return DecodePayload(ctx, p.Payload())
}

// DecodePayload starts decoding the chunks held by src.
func DecodePayload(ctx context.Context, src payload.Provider) (*Sequence, error) {
	// Chunk drains must run after ctx is done, so the shared reader is
	// acquired without cancellation. Header reads still honor ctx.
	r, err := src.Acquire(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	return &Sequence{src: src, r: r}, nil
}

// Next returns the next chunk, or io.EOF when the payload ends at a chunk
// boundary. A payload ending inside a header fails with
// wire.ErrTruncatedStream. Failures are sticky.
func (s *Sequence) Next(ctx context.Context) (*Chunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.state == stateEnd {
		return nil, io.EOF
	}
	if err := s.drain(); err != nil {
		return nil, s.fail(err)
	}

	var buf [HeaderLength]byte
	err := wire.ReadHeader(ctx, s.r, buf[:], "read chunk header")
	if errors.Is(err, io.EOF) {
		s.finish()
		return nil, io.EOF
	}
	if err != nil {
		return nil, s.fail(err)
	}

	length := binary.BigEndian.Uint32(buf[4:8])
	s.cur = NewChunk(ChunkType(binary.BigEndian.Uint32(buf[0:4])), length, payload.FromStream(s.r, int64(length)))
	s.state = stateHaveChunk
	return s.cur, nil
}

// Close abandons the sequence: the in-flight chunk is drained and closed and
// the packet payload is released. Chunks not yet read are left in the packet
// payload. Safe to call multiple times.
func (s *Sequence) Close() error {
	if s.state == stateEnd {
		return nil
	}
	err := s.drain()
	s.finish()
	return err
}

// All returns an iterator over the remaining chunks. The iteration stops at
// the first error, which is yielded with a nil chunk. Leaving the loop early
// closes the sequence.
func (s *Sequence) All(ctx context.Context) iter.Seq2[*Chunk, error] {
	return func(yield func(*Chunk, error) bool) {
		defer func() { _ = s.Close() }()
		for {
			c, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

// drain moves the stream past the current chunk.
func (s *Sequence) drain() error {
	if s.cur == nil {
		return nil
	}
	c := s.cur
	s.cur = nil
	s.state = stateAtHeader
	err := c.Shutdown()
	_ = c.Close()
	return err
}

func (s *Sequence) finish() {
	if s.cur != nil {
		_ = s.cur.Close()
		s.cur = nil
	}
	if s.state != stateEnd {
		s.src.Release(s.r)
		s.state = stateEnd
	}
}

func (s *Sequence) fail(err error) error {
	s.err = err
	s.finish()
	return err
}

// ForEachChunk calls fn for every chunk of p. The chunk passed to fn is only
// valid during the call. Iteration stops at the first error from decoding or
// from fn; the sequence is always cleaned up.
func ForEachChunk(ctx context.Context, p jdwp.View, fn func(c *Chunk) error) (err error) {
	seq, err := DecodeChunks(ctx, p)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := seq.Close(); err == nil {
			err = cerr
		}
	}()
	for c, err := range seq.All(ctx) {
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}
