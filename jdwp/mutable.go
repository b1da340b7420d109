package jdwp

import (
	"context"
	"math"

	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

// MutablePacket is a packet under construction. Its fields are set freely
// and only validated by Build.
type MutablePacket struct {
	ID        int32
	Length    int32
	Flags     uint8
	CmdSet    uint8
	Cmd       uint8
	ErrorCode uint16
	Payload   payload.Provider

	err error
}

// NewMutable returns a MutablePacket seeded from v. The payload of v is
// materialized, so v and the built packet each own a rewindable provider.
func NewMutable(ctx context.Context, v View) (*MutablePacket, error) {
	p, err := v.Payload().Materialize(ctx)
	if err != nil {
		return nil, err
	}
	h := HeaderOf(v)
	return &MutablePacket{
		ID:        h.ID,
		Length:    h.Length,
		Flags:     h.Flags,
		CmdSet:    h.CmdSet,
		Cmd:       h.Cmd,
		ErrorCode: h.ErrorCode,
		Payload:   p,
	}, nil
}

// SetCommand turns m into a command packet.
func (m *MutablePacket) SetCommand(cmdSet, cmd uint8) *MutablePacket {
	m.Flags &^= FlagReply
	m.CmdSet, m.Cmd, m.ErrorCode = cmdSet, cmd, 0
	return m
}

// SetReply turns m into a reply packet.
func (m *MutablePacket) SetReply(errorCode uint16) *MutablePacket {
	m.Flags |= FlagReply
	m.CmdSet, m.Cmd, m.ErrorCode = 0, 0, errorCode
	return m
}

// SetPayload replaces the payload with data and updates Length to match.
// A payload too large for the length field makes Build fail.
func (m *MutablePacket) SetPayload(data []byte) *MutablePacket {
	length, err := packetLength(len(data))
	if err != nil {
		m.err = err
		return m
	}
	m.Payload = payload.FromBytes(data)
	m.Length = length
	m.err = nil
	return m
}

// packetLength returns the header length of a packet carrying n payload bytes.
func packetLength(n int) (int32, error) {
	if n < 0 || n > math.MaxInt32-HeaderLength {
		return 0, wire.Errorf(wire.KindMalformedHeader, "set payload", "payload of %d bytes too large", n)
	}
	return int32(HeaderLength + n), nil
}

// Build validates m and returns the resulting packet.
func (m *MutablePacket) Build() (*Packet, error) {
	if m.err != nil {
		return nil, m.err
	}
	return newPacket(Header{
		Length:    m.Length,
		ID:        m.ID,
		Flags:     m.Flags,
		CmdSet:    m.CmdSet,
		Cmd:       m.Cmd,
		ErrorCode: m.ErrorCode,
	}, m.Payload)
}

// Encode builds m and returns its full wire form, header and payload.
// A payload whose size differs from Length-11 fails with wire.ErrLengthMismatch.
func (m *MutablePacket) Encode(ctx context.Context) ([]byte, error) {
	p, err := m.Build()
	if err != nil {
		return nil, err
	}
	data, err := payload.ReadAll(ctx, p.Payload())
	if err != nil {
		return nil, err
	}
	if len(data) != PayloadLength(p) {
		return nil, wire.Errorf(wire.KindLengthMismatch, "encode packet", "payload has %d bytes, header declares %d", len(data), PayloadLength(p))
	}
	return append(p.Header().Encode(), data...), nil
}
