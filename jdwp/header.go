// Package jdwp implements JDWP packet framing.
//
// A packet is an 11-byte header followed by length-11 payload bytes:
//
//	length  uint32   4 bytes   (header included)
//	id      uint32   4 bytes
//	flags   uint8    1 byte    (0x80 = reply)
//	cmdSet  uint8    1 byte  } command
//	cmd     uint8    1 byte  }
//	errCode uint16   2 bytes } reply
//
// All integers are big-endian. The payload is never read eagerly: it is
// exposed through a payload.Provider owned by the packet.
package jdwp

import (
	"encoding/binary"
	"math"

	"github.com/pithecene-io/ddmscope/wire"
)

const (
	// HeaderLength is the size of the fixed packet header.
	HeaderLength = 11
	// FlagReply marks a reply packet. No other flag bit is defined.
	FlagReply uint8 = 0x80
)

// Header is the decoded fixed packet header.
// CmdSet and Cmd are meaningful for commands, ErrorCode for replies.
type Header struct {
	Length    int32
	ID        int32
	Flags     uint8
	CmdSet    uint8
	Cmd       uint8
	ErrorCode uint16
}

// IsReply reports whether the reply flag is set.
func (h Header) IsReply() bool {
	return h.Flags&FlagReply != 0
}

// Validate checks the header invariants.
func (h Header) Validate() error {
	if h.Length < HeaderLength {
		return wire.Errorf(wire.KindMalformedHeader, "validate header", "length %d is smaller than header length %d", h.Length, HeaderLength)
	}
	if h.Flags&^FlagReply != 0 {
		return wire.Errorf(wire.KindMalformedHeader, "validate header", "unsupported flags 0x%02x", h.Flags)
	}
	if h.IsReply() && (h.CmdSet != 0 || h.Cmd != 0) {
		return wire.Errorf(wire.KindMalformedHeader, "validate header", "reply carries command fields")
	}
	if !h.IsReply() && h.ErrorCode != 0 {
		return wire.Errorf(wire.KindMalformedHeader, "validate header", "command carries an error code")
	}
	return nil
}

// ParseHeader decodes and validates an 11-byte header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) != HeaderLength {
		return Header{}, wire.Errorf(wire.KindMalformedHeader, "parse header", "invalid header length %d", len(b))
	}
	length := binary.BigEndian.Uint32(b[0:4])
	if length > math.MaxInt32 {
		return Header{}, wire.Errorf(wire.KindMalformedHeader, "parse header", "length %d out of range", length)
	}
	h := Header{
		Length: int32(length),
		ID:     int32(binary.BigEndian.Uint32(b[4:8])),
		Flags:  b[8],
	}
	if h.IsReply() {
		h.ErrorCode = binary.BigEndian.Uint16(b[9:11])
	} else {
		h.CmdSet = b[9]
		h.Cmd = b[10]
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Encode returns the 11-byte wire form of h.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderLength)
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Length))
	binary.BigEndian.PutUint32(buf[4:8], uint32(h.ID))
	buf[8] = h.Flags
	if h.IsReply() {
		binary.BigEndian.PutUint16(buf[9:11], h.ErrorCode)
	} else {
		buf[9] = h.CmdSet
		buf[10] = h.Cmd
	}
	return buf
}
