package policy_test

import (
	"fmt"

	"github.com/pithecene-io/ddmscope/types"
)

func packetRecord(seq int64) *types.Record {
	return &types.Record{
		Kind: types.RecordKindPacket,
		Packet: &types.PacketRecord{
			Seq:     seq,
			ID:      int32(seq),
			Length:  11,
			Summary: fmt.Sprintf("Packet(id=%d)", seq),
		},
	}
}

func chunkRecord(seq int64, index int) *types.Record {
	return &types.Record{
		Kind:  types.RecordKindChunk,
		Chunk: &types.ChunkRecord{PacketSeq: seq, PacketID: int32(seq), Index: index, Type: "HELO"},
	}
}

func failRecord(seq int64) *types.Record {
	return &types.Record{
		Kind: types.RecordKindFail,
		Fail: &types.FailRecord{PacketSeq: seq, PacketID: int32(seq), Code: 5, Message: "abc"},
	}
}
