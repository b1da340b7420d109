package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/pithecene-io/ddmscope/types"
)

// Reader reads a capture: the header on Open, then data frames on demand.
type Reader struct {
	dec    *FrameDecoder
	header *Header

	// OnFrame, if set, is called for every data frame read.
	OnFrame func(*DataFrame)
}

// Open reads and validates the capture header.
func Open(r io.Reader) (*Reader, error) {
	dec := NewFrameDecoder(r)
	payload, err := dec.ReadFrame()
	if errors.Is(err, io.EOF) {
		return nil, &FrameError{Kind: FrameErrorHeader, Msg: "empty capture"}
	}
	if err != nil {
		return nil, err
	}
	v, err := DecodeFrame(payload)
	if err != nil {
		return nil, &FrameError{Kind: FrameErrorHeader, Msg: "unreadable header", Err: err}
	}
	h, ok := v.(*Header)
	if !ok {
		return nil, &FrameError{Kind: FrameErrorHeader, Msg: "capture does not start with a header"}
	}
	if h.Version != types.CaptureFormatVersion {
		return nil, &FrameError{
			Kind: FrameErrorHeader,
			Msg:  fmt.Sprintf("unsupported capture version %d (want %d)", h.Version, types.CaptureFormatVersion),
		}
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the capture header.
func (r *Reader) Header() *Header {
	return r.header
}

// Next returns the next data frame, or io.EOF at the end of the capture.
// A second header is a fatal FrameErrorHeader.
func (r *Reader) Next() (*DataFrame, error) {
	payload, err := r.dec.ReadFrame()
	if err != nil {
		return nil, err
	}
	v, err := DecodeFrame(payload)
	if err != nil {
		return nil, err
	}
	f, ok := v.(*DataFrame)
	if !ok {
		return nil, &FrameError{Kind: FrameErrorHeader, Msg: "unexpected header after start of capture"}
	}
	if r.OnFrame != nil {
		r.OnFrame(f)
	}
	return f, nil
}

// Stream returns the concatenated bytes of all data frames sent in
// direction dir, read lazily. Frames of the other direction are skipped.
// Any frame error ends the stream, since a lost frame would misalign the
// bytes that follow. The returned reader and Next share the underlying
// capture: use one or the other.
func (r *Reader) Stream(dir Direction) io.Reader {
	return &directionReader{r: r, dir: dir}
}

type directionReader struct {
	r   *Reader
	dir Direction
	buf []byte
	err error
}

func (d *directionReader) Read(p []byte) (int, error) {
	for len(d.buf) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		f, err := d.r.Next()
		if err != nil {
			d.err = err
			continue
		}
		if f.Direction == d.dir {
			d.buf = f.Data
		}
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}
