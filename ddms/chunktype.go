// Package ddms decodes and encodes the DDMS chunks carried in the payload of
// DDMS JDWP packets.
//
// A chunk is an 8-byte header followed by length payload bytes:
//
//	type    uint32   4 ASCII bytes, first byte most significant
//	length  uint32   payload bytes following the header
//
// A packet payload holds zero or more chunks back to back. Chunks are read
// lazily from the packet payload; see Sequence.
package ddms

import (
	"encoding/binary"
	"slices"

	"github.com/pithecene-io/ddmscope/wire"
)

// ChunkType is the 4-byte tag of a chunk packed into a big-endian uint32.
type ChunkType uint32

// Chunk types exchanged with Android VMs.
const (
	HELO ChunkType = 0x48454C4F // client hello
	FEAT ChunkType = 0x46454154 // VM features
	APNM ChunkType = 0x41504E4D // application name
	WAIT ChunkType = 0x57414954 // waiting for debugger
	EXIT ChunkType = 0x45584954 // exit the VM
	FAIL ChunkType = 0x4641494C // command failure
	MPSS ChunkType = 0x4D505353 // method profiling streaming start
	MPSE ChunkType = 0x4D505345 // method profiling streaming end
	MPRS ChunkType = 0x4D505253 // method profiling start
	MPRE ChunkType = 0x4D505245 // method profiling end
	MPRQ ChunkType = 0x4D505251 // method profiling query
	SPSS ChunkType = 0x53505353 // sampling profiling start
	SPSE ChunkType = 0x53505345 // sampling profiling end
	VULW ChunkType = 0x56554C57 // list view roots
	VURT ChunkType = 0x56555254 // view root operation
	VUOP ChunkType = 0x56554F50 // view operation
	HPGC ChunkType = 0x48504743 // heap garbage collect
	HPIF ChunkType = 0x48504946 // heap info
	HPSG ChunkType = 0x48505347 // heap segment
	HPST ChunkType = 0x48505354 // heap segment start
	HPEN ChunkType = 0x4850454E // heap segment end
	HPDU ChunkType = 0x48504455 // heap dump
	HPDS ChunkType = 0x48504453 // heap dump streaming
	NHSG ChunkType = 0x4E485347 // native heap segment
	REAE ChunkType = 0x52454145 // allocation tracking enable
	REAQ ChunkType = 0x52454151 // allocation tracking query
	REAL ChunkType = 0x5245414C // allocation list
	THEN ChunkType = 0x5448454E // thread updates enable
	THST ChunkType = 0x54485354 // thread status
	THCR ChunkType = 0x54484352 // thread created
	THDE ChunkType = 0x54484445 // thread died
	THNM ChunkType = 0x54484E4D // thread name changed
	STKL ChunkType = 0x53544B4C // stack trace
)

var knownChunkTypes = []ChunkType{
	HELO, FEAT, APNM, WAIT, EXIT, FAIL,
	MPSS, MPSE, MPRS, MPRE, MPRQ, SPSS, SPSE,
	VULW, VURT, VUOP,
	HPGC, HPIF, HPSG, HPST, HPEN, HPDU, HPDS, NHSG,
	REAE, REAQ, REAL,
	THEN, THST, THCR, THDE, THNM, STKL,
}

// ParseChunkType packs a 4-character tag. Any other size fails with
// wire.ErrInvalidFormat.
func ParseChunkType(tag string) (ChunkType, error) {
	if len(tag) != 4 {
		return 0, wire.Errorf(wire.KindInvalidFormat, "parse chunk type", "tag %q must be exactly 4 bytes", tag)
	}
	return ChunkType(binary.BigEndian.Uint32([]byte(tag))), nil
}

// MustParseChunkType is ParseChunkType for tags known to be valid. It panics
// on error.
func MustParseChunkType(tag string) ChunkType {
	t, err := ParseChunkType(tag)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the 4 bytes of t. Bytes are not validated.
func (t ChunkType) String() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(t))
	return string(b[:])
}

// Known reports whether t is one of the registered chunk types.
func (t ChunkType) Known() bool {
	return slices.Contains(knownChunkTypes, t)
}

// KnownChunkTypes returns the registered chunk types.
func KnownChunkTypes() []ChunkType {
	return slices.Clone(knownChunkTypes)
}
