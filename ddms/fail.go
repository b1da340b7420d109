package ddms

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"

	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

// InvalidFailMessage is the message of a FailError decoded from a malformed
// FAIL chunk.
const InvalidFailMessage = "Unknown error due to invalid FAIL packet format"

// FailError is the error reported by a VM through a FAIL chunk.
type FailError struct {
	Code    int32
	Message string
	// Cause is set when the FAIL chunk itself could not be decoded.
	Cause error
}

func (e *FailError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ddms: FAIL %d: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("ddms: FAIL %d: %s", e.Code, e.Message)
}

func (e *FailError) Unwrap() error {
	return e.Cause
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// DecodeFail decodes a FAIL chunk payload:
//
//	code       int32
//	charCount  uint32
//	message    charCount UTF-16BE code units
//
// It never fails: a malformed payload yields code -1 with InvalidFailMessage
// and the decoding failure as Cause.
func DecodeFail(ctx context.Context, c View) *FailError {
	fe, err := payload.With(ctx, c.Payload(), func(r io.Reader) (*FailError, error) {
		return readFail(r, c.Length())
	})
	if err != nil {
		return &FailError{Code: -1, Message: InvalidFailMessage, Cause: err}
	}
	return fe
}

func readFail(r io.Reader, length uint32) (*FailError, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, wire.Wrap(wire.KindInvalidFormat, "decode FAIL", err)
	}
	code := int32(binary.BigEndian.Uint32(hdr[0:4]))
	chars := uint64(binary.BigEndian.Uint32(hdr[4:8]))
	if length < 8 || chars*2 > uint64(length-8) {
		return nil, wire.Errorf(wire.KindInvalidFormat, "decode FAIL", "%d characters do not fit in a %d byte payload", chars, length)
	}
	raw := make([]byte, chars*2)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, wire.Wrap(wire.KindInvalidFormat, "decode FAIL", err)
	}
	msg, err := utf16be.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, wire.Wrap(wire.KindInvalidFormat, "decode FAIL", err)
	}
	return &FailError{Code: code, Message: string(msg)}, nil
}

// NewFailChunk returns an in-memory FAIL chunk carrying code and msg.
func NewFailChunk(code int32, msg string) (*Chunk, error) {
	text, err := utf16be.NewEncoder().Bytes([]byte(msg))
	if err != nil {
		return nil, wire.Wrap(wire.KindInvalidFormat, "encode FAIL", err)
	}
	buf := make([]byte, 8, 8+len(text))
	binary.BigEndian.PutUint32(buf[0:4], uint32(code))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(text)/2))
	return NewBytesChunk(FAIL, append(buf, text...))
}
