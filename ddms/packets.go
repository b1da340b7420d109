package ddms

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pithecene-io/ddmscope/jdwp"
	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

// ErrUnexpectedReply is returned by ReplyChunk when a reply holds no chunk or
// a chunk of another type than requested.
var ErrUnexpectedReply = errors.New("ddms: unexpected reply")

// errStop ends a ForEachChunk iteration early.
var errStop = errors.New("ddms: stop")

// NewDDMSPacket returns a DDMS command packet whose payload holds chunks.
func NewDDMSPacket(ctx context.Context, id int32, chunks ...View) (*jdwp.Packet, error) {
	data, err := encodePayload(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return jdwp.NewCommand(id, jdwp.HeaderLength+len(data), int(jdwp.SetDDMS), int(jdwp.CmdDDMS), payload.FromBytes(data))
}

// NewDDMSReply returns a reply packet whose payload holds chunks.
func NewDDMSReply(ctx context.Context, id int32, chunks ...View) (*jdwp.Packet, error) {
	data, err := encodePayload(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return jdwp.NewReply(id, jdwp.HeaderLength+len(data), 0, payload.FromBytes(data))
}

func encodePayload(ctx context.Context, chunks []View) ([]byte, error) {
	data, err := EncodeChunks(ctx, chunks...)
	if err != nil {
		return nil, err
	}
	if len(data) > math.MaxInt32-jdwp.HeaderLength {
		return nil, wire.Errorf(wire.KindInvalidFormat, "new DDMS packet", "payload of %d bytes exceeds packet limit", len(data))
	}
	return data, nil
}

// FindFail returns the decoded first FAIL chunk of p, or nil if p has none.
func FindFail(ctx context.Context, p jdwp.View) (*FailError, error) {
	var found *FailError
	err := ForEachChunk(ctx, p, func(c *Chunk) error {
		if c.Type() != FAIL {
			return nil
		}
		found = DecodeFail(ctx, c)
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return found, nil
}

// ReplyChunk returns an in-memory copy of the first chunk of the reply p.
//
// A FAIL chunk anywhere in p is returned as a *FailError. A reply without
// chunks, or whose first chunk is not of type want, fails with
// ErrUnexpectedReply.
func ReplyChunk(ctx context.Context, p jdwp.View, want ChunkType) (*Chunk, error) {
	var (
		first   *Chunk
		gotType ChunkType
		count   int
		fail    *FailError
	)
	err := ForEachChunk(ctx, p, func(c *Chunk) error {
		if c.Type() == FAIL {
			fail = DecodeFail(ctx, c)
			return errStop
		}
		count++
		if count > 1 {
			return nil
		}
		gotType = c.Type()
		if gotType != want {
			return nil
		}
		clone, err := c.Clone(ctx)
		if err != nil {
			return err
		}
		first = clone
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if fail != nil {
		return nil, fail
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: reply %d holds no chunk, want %s", ErrUnexpectedReply, p.ID(), want)
	}
	if first == nil {
		return nil, fmt.Errorf("%w: reply %d holds %s, want %s", ErrUnexpectedReply, p.ID(), gotType, want)
	}
	return first, nil
}
