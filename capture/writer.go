package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/ddmscope/types"
)

// Writer appends frames to a capture. Not safe for concurrent use.
type Writer struct {
	w      io.Writer
	frames int64
	bytes  int64
}

// NewWriter writes the capture header for meta to w and returns a Writer
// for data frames.
func NewWriter(w io.Writer, meta *types.SessionMeta) (*Writer, error) {
	cw := &Writer{w: w}
	err := cw.write(&Header{
		Type:      HeaderType,
		Version:   types.CaptureFormatVersion,
		SessionID: meta.SessionID,
		Source:    meta.Source,
		StartedAt: meta.StartedAt.UnixNano(),
	})
	if err != nil {
		return nil, err
	}
	return cw, nil
}

// WriteData records data observed in direction dir at ts, split into frames
// of at most MaxDataSize bytes.
func (cw *Writer) WriteData(dir Direction, ts time.Time, data []byte) error {
	for len(data) > 0 {
		n := min(len(data), MaxDataSize)
		err := cw.write(&DataFrame{Type: DataType, Direction: dir, Ts: ts.UnixNano(), Data: data[:n]})
		if err != nil {
			return err
		}
		cw.bytes += int64(n)
		data = data[n:]
	}
	return nil
}

// ReadFrom copies src into data frames of direction dir until EOF.
func (cw *Writer) ReadFrom(src io.Reader, dir Direction, now func() time.Time) (int64, error) {
	buf := make([]byte, 64*1024)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := cw.WriteData(dir, now(), buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Frames returns the number of frames written, header included.
func (cw *Writer) Frames() int64 { return cw.frames }

// Bytes returns the number of data bytes written.
func (cw *Writer) Bytes() int64 { return cw.bytes }

func (cw *Writer) write(v any) error {
	frame, err := EncodeFrame(v)
	if err != nil {
		return err
	}
	if _, err := cw.w.Write(frame); err != nil {
		return fmt.Errorf("capture: write frame: %w", err)
	}
	cw.frames++
	return nil
}
