package types

// RecordKind discriminates decode records.
type RecordKind string

// Record kinds.
const (
	// RecordKindPacket describes one JDWP packet.
	RecordKindPacket RecordKind = "packet"
	// RecordKindChunk describes one DDMS chunk inside a packet.
	RecordKindChunk RecordKind = "chunk"
	// RecordKindFail carries a decoded FAIL chunk.
	RecordKindFail RecordKind = "fail"
)

// PacketRecord describes a decoded JDWP packet header.
type PacketRecord struct {
	// Seq is the position of the packet in the session, starting at 1.
	Seq       int64  `json:"seq" msgpack:"seq" yaml:"seq"`
	ID        int32  `json:"id" msgpack:"id" yaml:"id"`
	Length    int32  `json:"length" msgpack:"length" yaml:"length"`
	Flags     uint8  `json:"flags" msgpack:"flags" yaml:"flags"`
	IsReply   bool   `json:"is_reply" msgpack:"is_reply" yaml:"is_reply"`
	CmdSet    uint8  `json:"cmd_set,omitempty" msgpack:"cmd_set,omitempty" yaml:"cmd_set,omitempty"`
	Cmd       uint8  `json:"cmd,omitempty" msgpack:"cmd,omitempty" yaml:"cmd,omitempty"`
	ErrorCode uint16 `json:"error_code,omitempty" msgpack:"error_code,omitempty" yaml:"error_code,omitempty"`
	// Summary is the printable form of the packet.
	Summary string `json:"summary" msgpack:"summary" yaml:"summary"`
	// DDMS is set when the packet can carry DDMS chunks.
	DDMS bool `json:"ddms" msgpack:"ddms" yaml:"ddms"`
	// Chunks is the number of chunks decoded from the payload.
	Chunks int `json:"chunks" msgpack:"chunks" yaml:"chunks"`
	// ChunkError is set when the payload could not be split into chunks.
	ChunkError string `json:"chunk_error,omitempty" msgpack:"chunk_error,omitempty" yaml:"chunk_error,omitempty"`
}

// ChunkRecord describes one DDMS chunk header.
type ChunkRecord struct {
	PacketSeq int64  `json:"packet_seq" msgpack:"packet_seq" yaml:"packet_seq"`
	PacketID  int32  `json:"packet_id" msgpack:"packet_id" yaml:"packet_id"`
	Index     int    `json:"index" msgpack:"index" yaml:"index"`
	Type      string `json:"type" msgpack:"type" yaml:"type"`
	Length    uint32 `json:"length" msgpack:"length" yaml:"length"`
	Known     bool   `json:"known" msgpack:"known" yaml:"known"`
}

// FailRecord carries a FAIL chunk decoded into an error code and message.
type FailRecord struct {
	PacketSeq int64  `json:"packet_seq" msgpack:"packet_seq" yaml:"packet_seq"`
	PacketID  int32  `json:"packet_id" msgpack:"packet_id" yaml:"packet_id"`
	Index     int    `json:"index" msgpack:"index" yaml:"index"`
	Code      int32  `json:"code" msgpack:"code" yaml:"code"`
	Message   string `json:"message" msgpack:"message" yaml:"message"`
	// Malformed is set when the FAIL payload itself could not be decoded.
	Malformed bool `json:"malformed" msgpack:"malformed" yaml:"malformed"`
}

// Record is one decode output. Exactly one of Packet, Chunk or Fail is set,
// matching Kind.
type Record struct {
	Kind   RecordKind    `json:"kind" msgpack:"kind" yaml:"kind"`
	Packet *PacketRecord `json:"packet,omitempty" msgpack:"packet,omitempty" yaml:"packet,omitempty"`
	Chunk  *ChunkRecord  `json:"chunk,omitempty" msgpack:"chunk,omitempty" yaml:"chunk,omitempty"`
	Fail   *FailRecord   `json:"fail,omitempty" msgpack:"fail,omitempty" yaml:"fail,omitempty"`
}

// EstimatedSize is a rough in-memory size of r used for buffer accounting.
func (r *Record) EstimatedSize() int64 {
	const base = 64
	switch r.Kind {
	case RecordKindPacket:
		return base + int64(len(r.Packet.Summary))
	case RecordKindChunk:
		return base
	case RecordKindFail:
		return base + int64(len(r.Fail.Message))
	default:
		return base
	}
}
