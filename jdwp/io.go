package jdwp

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

// Handshake is exchanged verbatim by both peers before the first packet.
const Handshake = "JDWP-Handshake"

// ReadPacket reads one packet header from r and binds the remaining
// length-11 bytes to a single-pass payload. No payload byte is read.
//
// Returns:
//   - io.EOF: r ended cleanly at a packet boundary
//   - wire.ErrTruncatedStream: r ended inside the header
//   - wire.ErrMalformedHeader: the header violates a packet invariant
//
// The caller must Shutdown the packet before reading the next one from r.
func ReadPacket(ctx context.Context, r io.Reader) (*Packet, error) {
	var buf [HeaderLength]byte
	if err := wire.ReadHeader(ctx, r, buf[:], "read packet header"); err != nil {
		return nil, err
	}
	h, err := ParseHeader(buf[:])
	if err != nil {
		return nil, err
	}
	return newPacket(h, payload.FromStream(r, int64(h.Length)-HeaderLength))
}

// WritePacket writes the header of v followed by exactly length-11 payload
// bytes. A payload shorter or longer than declared fails with
// wire.ErrLengthMismatch; the bytes already written are not retracted.
func WritePacket(ctx context.Context, w io.Writer, v View) error {
	h := HeaderOf(v)
	if err := h.Validate(); err != nil {
		return err
	}
	if _, err := w.Write(h.Encode()); err != nil {
		return err
	}
	want := int64(PayloadLength(v))
	_, err := payload.With(ctx, v.Payload(), func(r io.Reader) (struct{}, error) {
		return struct{}{}, wire.CopyExact(w, r, want, "write packet")
	})
	return err
}

// Reader yields the packets of one stream in order. Each call to Next drains
// whatever the caller left unread of the previous packet.
type Reader struct {
	r         io.Reader
	handshake bool
	cur       *Packet
	err       error
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithHandshake makes the Reader consume and verify the JDWP handshake
// before the first packet.
func WithHandshake() ReaderOption {
	return func(r *Reader) { r.handshake = true }
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	pr := &Reader{r: r}
	for _, opt := range opts {
		opt(pr)
	}
	return pr
}

// Next returns the next packet, or io.EOF once the stream ends cleanly.
// A failure is sticky: every later call returns the same error.
func (pr *Reader) Next(ctx context.Context) (*Packet, error) {
	if pr.err != nil {
		return nil, pr.err
	}
	if err := pr.release(); err != nil {
		pr.err = err
		return nil, err
	}
	if pr.handshake {
		pr.handshake = false
		if err := ReadHandshake(ctx, pr.r); err != nil {
			pr.err = err
			return nil, err
		}
	}
	p, err := ReadPacket(ctx, pr.r)
	if err != nil {
		pr.err = err
		return nil, err
	}
	pr.cur = p
	return p, nil
}

// Close drains and closes the packet last returned by Next.
func (pr *Reader) Close() error {
	err := pr.release()
	if pr.err == nil {
		pr.err = wire.Errorf(wire.KindUnavailable, "read packet", "reader closed")
	}
	return err
}

func (pr *Reader) release() error {
	if pr.cur == nil {
		return nil
	}
	cur := pr.cur
	pr.cur = nil
	err := cur.Shutdown()
	_ = cur.Close()
	return err
}

// ReadHandshake consumes the handshake from r.
// A different prefix fails with wire.ErrMalformedHeader.
func ReadHandshake(ctx context.Context, r io.Reader) error {
	buf := make([]byte, len(Handshake))
	if err := wire.ReadHeader(ctx, r, buf, "read handshake"); err != nil {
		if errors.Is(err, io.EOF) {
			return wire.Wrap(wire.KindTruncatedStream, "read handshake", io.ErrUnexpectedEOF)
		}
		return err
	}
	if !bytes.Equal(buf, []byte(Handshake)) {
		return wire.Errorf(wire.KindMalformedHeader, "read handshake", "unexpected prefix %q", buf)
	}
	return nil
}

// WriteHandshake writes the handshake to w.
func WriteHandshake(w io.Writer) error {
	_, err := io.WriteString(w, Handshake)
	return err
}
