package ddms

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pithecene-io/ddmscope/jdwp"
)

// rawChunk returns the wire form of a chunk.
func rawChunk(tag string, data []byte) []byte {
	b := make([]byte, HeaderLength, HeaderLength+len(data))
	copy(b[0:4], tag)
	binary.BigEndian.PutUint32(b[4:8], uint32(len(data)))
	return append(b, data...)
}

// rawPacket returns the wire form of a DDMS command packet holding payload.
func rawPacket(id uint32, payload []byte) []byte {
	b := make([]byte, jdwp.HeaderLength, jdwp.HeaderLength+len(payload))
	binary.BigEndian.PutUint32(b[0:4], uint32(jdwp.HeaderLength+len(payload)))
	binary.BigEndian.PutUint32(b[4:8], id)
	b[9] = byte(jdwp.SetDDMS)
	b[10] = jdwp.CmdDDMS
	return append(b, payload...)
}

// streamPacket reads a packet over stream, leaving its payload unread.
func streamPacket(t *testing.T, stream []byte) (*jdwp.Packet, *bytes.Reader) {
	t.Helper()
	r := bytes.NewReader(stream)
	p, err := jdwp.ReadPacket(t.Context(), r)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	return p, r
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
