package jdwp

import (
	"context"
	"fmt"
	"math"

	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

// View is read access to a JDWP packet.
//
// CmdSet and Cmd fail with wire.ErrInvalidStateAccess on a reply,
// ErrorCode fails the same way on a command.
type View interface {
	ID() int32
	Length() int32
	Flags() uint8
	IsCommand() bool
	IsReply() bool
	CmdSet() (uint8, error)
	Cmd() (uint8, error)
	ErrorCode() (uint16, error)
	// Payload returns the provider of the length-11 payload bytes.
	Payload() payload.Provider
}

// PayloadLength returns the number of payload bytes declared by v.
func PayloadLength(v View) int {
	return int(v.Length()) - HeaderLength
}

// IsCommandOf reports whether v is the command (cmdSet, cmd).
func IsCommandOf(v View, cmdSet, cmd uint8) bool {
	if !v.IsCommand() {
		return false
	}
	s, _ := v.CmdSet()
	c, _ := v.Cmd()
	return s == cmdSet && c == cmd
}

// IsDDMSCommand reports whether v may carry DDMS chunks: every reply does,
// and so does the (SetDDMS, CmdDDMS) command.
func IsDDMSCommand(v View) bool {
	return v.IsReply() || IsCommandOf(v, uint8(SetDDMS), CmdDDMS)
}

// HeaderOf returns the fixed header of v.
func HeaderOf(v View) Header {
	h := Header{Length: v.Length(), ID: v.ID(), Flags: v.Flags()}
	if v.IsReply() {
		h.ErrorCode, _ = v.ErrorCode()
	} else {
		h.CmdSet, _ = v.CmdSet()
		h.Cmd, _ = v.Cmd()
	}
	return h
}

// Packet is an immutable packet header bound to the payload provider it owns.
// A packet read from a stream is single-pass: call Shutdown before reading
// the next packet, or Materialize to keep the payload.
type Packet struct {
	header  Header
	payload payload.Provider
	// inMemory records whether the payload was rewindable at construction.
	inMemory bool
	// offline marks a packet produced by Materialize from a stream payload.
	offline bool
}

// NewCommand returns a command packet. Values outside their wire ranges fail
// with wire.ErrMalformedHeader.
func NewCommand(id int32, length int, cmdSet, cmd int, p payload.Provider) (*Packet, error) {
	if cmdSet < 0 || cmdSet > math.MaxUint8 {
		return nil, wire.Errorf(wire.KindMalformedHeader, "new command", "cmdSet %d out of range", cmdSet)
	}
	if cmd < 0 || cmd > math.MaxUint8 {
		return nil, wire.Errorf(wire.KindMalformedHeader, "new command", "cmd %d out of range", cmd)
	}
	if length < 0 || length > math.MaxInt32 {
		return nil, wire.Errorf(wire.KindMalformedHeader, "new command", "length %d out of range", length)
	}
	return newPacket(Header{Length: int32(length), ID: id, CmdSet: uint8(cmdSet), Cmd: uint8(cmd)}, p)
}

// NewReply returns a reply packet. Values outside their wire ranges fail
// with wire.ErrMalformedHeader.
func NewReply(id int32, length int, errorCode int, p payload.Provider) (*Packet, error) {
	if errorCode < 0 || errorCode > math.MaxUint16 {
		return nil, wire.Errorf(wire.KindMalformedHeader, "new reply", "errorCode %d out of range", errorCode)
	}
	if length < 0 || length > math.MaxInt32 {
		return nil, wire.Errorf(wire.KindMalformedHeader, "new reply", "length %d out of range", length)
	}
	return newPacket(Header{Length: int32(length), ID: id, Flags: FlagReply, ErrorCode: uint16(errorCode)}, p)
}

// FromView returns a packet with the header of v and payload p.
func FromView(v View, p payload.Provider) (*Packet, error) {
	return newPacket(HeaderOf(v), p)
}

// FromHeader returns a packet for a decoded header and payload p.
func FromHeader(h Header, p payload.Provider) (*Packet, error) {
	return newPacket(h, p)
}

func newPacket(h Header, p payload.Provider) (*Packet, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		p = payload.Empty()
	}
	return &Packet{header: h, payload: p, inMemory: p.Rewindable()}, nil
}

func (p *Packet) ID() int32     { return p.header.ID }
func (p *Packet) Length() int32 { return p.header.Length }
func (p *Packet) Flags() uint8  { return p.header.Flags }
func (p *Packet) IsReply() bool { return p.header.IsReply() }

func (p *Packet) IsCommand() bool { return !p.header.IsReply() }

func (p *Packet) CmdSet() (uint8, error) {
	if p.IsReply() {
		return 0, wire.Errorf(wire.KindInvalidStateAccess, "cmdSet", "reply packets have no command set")
	}
	return p.header.CmdSet, nil
}

func (p *Packet) Cmd() (uint8, error) {
	if p.IsReply() {
		return 0, wire.Errorf(wire.KindInvalidStateAccess, "cmd", "reply packets have no command")
	}
	return p.header.Cmd, nil
}

func (p *Packet) ErrorCode() (uint16, error) {
	if p.IsCommand() {
		return 0, wire.Errorf(wire.KindInvalidStateAccess, "errorCode", "command packets have no error code")
	}
	return p.header.ErrorCode, nil
}

func (p *Packet) Payload() payload.Provider { return p.payload }

// Header returns the fixed header of p.
func (p *Packet) Header() Header { return p.header }

// Immutable reports whether the payload is held in memory, making the packet
// safe to share between goroutines.
func (p *Packet) Immutable() bool { return p.payload.Rewindable() }

// Materialize returns a packet whose payload is an in-memory copy of p's.
// Packets built over an in-memory payload are returned as is.
func (p *Packet) Materialize(ctx context.Context) (*Packet, error) {
	if p.inMemory {
		return p, nil
	}
	m, err := p.payload.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return &Packet{header: p.header, payload: m, inMemory: true, offline: true}, nil
}

// Shutdown consumes unread payload bytes so the underlying stream is
// positioned at the next packet.
func (p *Packet) Shutdown() error {
	return p.payload.Shutdown()
}

// Close releases the payload. Safe to call multiple times.
func (p *Packet) Close() error {
	return p.payload.Close()
}

func (p *Packet) String() string {
	name := "Packet"
	if p.offline {
		name = "OfflinePacket"
	}
	return name + describe(p)
}

func describe(v View) string {
	if v.IsReply() {
		code, _ := v.ErrorCode()
		return fmt.Sprintf("(id=%d, length=%d, flags=0x%02x, isReply=true, errorCode=%s)",
			v.ID(), v.Length(), v.Flags(), ErrorCodeName(code))
	}
	cmdSet, _ := v.CmdSet()
	cmd, _ := v.Cmd()
	return fmt.Sprintf("(id=%d, length=%d, flags=0x%02x, isCommand=true, cmdSet=%s, cmd=%s)",
		v.ID(), v.Length(), v.Flags(), CmdSet(cmdSet), CmdName(cmdSet, cmd))
}

// Verify Packet implements View.
var _ View = (*Packet)(nil)
