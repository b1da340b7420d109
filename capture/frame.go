// Package capture reads and writes JDWP traffic captures.
//
// A capture is a sequence of frames, each a 4-byte big-endian length prefix
// followed by a msgpack payload. The first frame is a header; every other
// frame carries raw bytes observed in one direction of the connection.
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
	// MaxPayloadSize is the maximum payload size.
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// MaxDataSize is the maximum raw byte count of one data frame. Larger
	// writes are split.
	MaxDataSize = 8 * 1024 * 1024
)

// Frame type discriminants.
const (
	HeaderType = "header"
	DataType   = "data"
)

// Direction is the side of the connection that sent the bytes.
type Direction string

const (
	// ToVM is traffic from the debugger to the VM.
	ToVM Direction = "to_vm"
	// FromVM is traffic from the VM to the debugger.
	FromVM Direction = "from_vm"
)

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case ToVM, FromVM:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q (want %s or %s)", s, ToVM, FromVM)
	}
}

// Header is the first frame of a capture.
type Header struct {
	Type      string `msgpack:"type"`
	Version   int    `msgpack:"version"`
	SessionID string `msgpack:"session_id"`
	Source    string `msgpack:"source"`
	// StartedAt is the capture start, Unix nanoseconds.
	StartedAt int64 `msgpack:"started_at"`
}

// DataFrame carries bytes observed in one direction.
type DataFrame struct {
	Type      string    `msgpack:"type"`
	Direction Direction `msgpack:"direction"`
	// Ts is the observation time, Unix nanoseconds.
	Ts   int64  `msgpack:"ts"`
	Data []byte `msgpack:"data"`
}

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
	// FrameErrorHeader indicates a missing, misplaced or unsupported header.
	FrameErrorHeader
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: %s: %v", e.Msg, e.Err)
	}
	return "capture: " + e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the capture cannot be read past this error.
// Only a single undecodable data frame is recoverable.
func (e *FrameError) IsFatal() bool {
	return e.Kind != FrameErrorDecode
}

// IsFatalFrameError returns true if err is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder decodes length-prefixed frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame and returns its msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}
	return payload, nil
}

// frameTypeProbe peeks at the type field without a full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload into a *Header or a *DataFrame.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}

	switch probe.Type {
	case HeaderType:
		var h Header
		if err := msgpack.Unmarshal(payload, &h); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode header", Err: err}
		}
		return &h, nil
	case DataType:
		var f DataFrame
		if err := msgpack.Unmarshal(payload, &f); err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode data frame", Err: err}
		}
		return &f, nil
	default:
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", probe.Type)}
	}
}

// EncodeFrame marshals v and prepends the length prefix.
func EncodeFrame(v any) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}
