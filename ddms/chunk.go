package ddms

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

// HeaderLength is the size of a chunk header.
const HeaderLength = 8

// View is read access to a chunk.
type View interface {
	Type() ChunkType
	// Length is the number of payload bytes, header excluded.
	Length() uint32
	Payload() payload.Provider
}

// Chunk is a chunk header bound to the payload provider it owns.
// A chunk yielded by a Sequence is only valid until the next call to Next;
// use Clone to keep it.
type Chunk struct {
	typ     ChunkType
	length  uint32
	payload payload.Provider
}

// NewChunk returns a chunk of type t whose payload holds length bytes.
func NewChunk(t ChunkType, length uint32, p payload.Provider) *Chunk {
	if p == nil {
		p = payload.Empty()
	}
	return &Chunk{typ: t, length: length, payload: p}
}

// NewBytesChunk returns an in-memory chunk holding data.
func NewBytesChunk(t ChunkType, data []byte) (*Chunk, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, wire.Errorf(wire.KindInvalidFormat, "new chunk", "payload of %d bytes exceeds chunk limit", len(data))
	}
	return NewChunk(t, uint32(len(data)), payload.FromBytes(data)), nil
}

func (c *Chunk) Type() ChunkType           { return c.typ }
func (c *Chunk) Length() uint32            { return c.length }
func (c *Chunk) Payload() payload.Provider { return c.payload }

// Immutable reports whether the payload is held in memory.
func (c *Chunk) Immutable() bool { return c.payload.Rewindable() }

// Clone returns a chunk with the same type and length over an in-memory copy
// of the payload. It can be called repeatedly, and the copy outlives c.
func (c *Chunk) Clone(ctx context.Context) (*Chunk, error) {
	p, err := c.payload.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return &Chunk{typ: c.typ, length: c.length, payload: p}, nil
}

// Shutdown consumes the unread payload bytes of c.
func (c *Chunk) Shutdown() error { return c.payload.Shutdown() }

// Close releases the payload. Safe to call multiple times.
func (c *Chunk) Close() error { return c.payload.Close() }

func (c *Chunk) String() string {
	return fmt.Sprintf("DdmsChunk(type=%s, length=%d)", c.typ, c.length)
}

func encodeHeader(t ChunkType, length uint32) []byte {
	buf := make([]byte, HeaderLength)
	binary.BigEndian.PutUint32(buf[0:4], uint32(t))
	binary.BigEndian.PutUint32(buf[4:8], length)
	return buf
}

// WriteChunk writes the header of c followed by exactly Length payload bytes.
// Any other payload size fails with wire.ErrLengthMismatch.
func WriteChunk(ctx context.Context, w io.Writer, c View) error {
	if _, err := w.Write(encodeHeader(c.Type(), c.Length())); err != nil {
		return err
	}
	_, err := payload.With(ctx, c.Payload(), func(r io.Reader) (struct{}, error) {
		return struct{}{}, wire.CopyExact(w, r, int64(c.Length()), "write chunk")
	})
	return err
}

// EncodeChunks returns the wire form of chunks written back to back.
func EncodeChunks(ctx context.Context, chunks ...View) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range chunks {
		if err := WriteChunk(ctx, &buf, c); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
