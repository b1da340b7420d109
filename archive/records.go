package archive

import (
	"time"

	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/types"
)

// RecordKindSummary marks the per-session metrics summary record.
// Decode records use the types.RecordKind values.
const RecordKindSummary = "summary"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "day", "session_id", "record_kind"}

// partition returns the partition fields every stored record carries.
func (c Config) partition(kind string) map[string]any {
	return map[string]any{
		"record_kind": kind,
		"source":      c.Source,
		"day":         c.Day,
		"session_id":  c.SessionID,
	}
}

// toRecordMap converts a decode record to its stored form.
// Lode HiveLayout requires records as map[string]any.
func toRecordMap(rec *types.Record, cfg Config) map[string]any {
	m := cfg.partition(string(rec.Kind))
	switch rec.Kind {
	case types.RecordKindPacket:
		p := rec.Packet
		m["seq"] = p.Seq
		m["packet_id"] = p.ID
		m["length"] = p.Length
		m["flags"] = p.Flags
		m["is_reply"] = p.IsReply
		if p.IsReply {
			m["error_code"] = p.ErrorCode
		} else {
			m["cmd_set"] = p.CmdSet
			m["cmd"] = p.Cmd
		}
		m["summary"] = p.Summary
		m["ddms"] = p.DDMS
		m["chunks"] = p.Chunks
		if p.ChunkError != "" {
			m["chunk_error"] = p.ChunkError
		}
	case types.RecordKindChunk:
		c := rec.Chunk
		m["packet_seq"] = c.PacketSeq
		m["packet_id"] = c.PacketID
		m["index"] = c.Index
		m["type"] = c.Type
		m["length"] = c.Length
		m["known"] = c.Known
	case types.RecordKindFail:
		f := rec.Fail
		m["packet_seq"] = f.PacketSeq
		m["packet_id"] = f.PacketID
		m["index"] = f.Index
		m["code"] = f.Code
		m["message"] = f.Message
		m["malformed"] = f.Malformed
	}
	return m
}

// toSummaryMap converts a metrics snapshot to the stored summary record.
func toSummaryMap(snap metrics.Snapshot, completedAt time.Time, cfg Config) map[string]any {
	m := cfg.partition(RecordKindSummary)
	m["completed_at"] = completedAt.UTC().Format(time.RFC3339Nano)
	m["packets"] = snap.Packets
	m["commands"] = snap.Commands
	m["replies"] = snap.Replies
	m["payload_bytes"] = snap.PayloadBytes
	m["chunks"] = snap.Chunks
	m["chunks_by_type"] = snap.ChunksByType
	m["fail_chunks"] = snap.FailChunks
	m["decode_errors"] = snap.DecodeErrors
	m["capture_frames"] = snap.CaptureFrames
	m["records_received"] = snap.RecordsReceived
	m["records_persisted"] = snap.RecordsPersisted
	m["records_dropped"] = snap.RecordsDropped
	m["archive_write_success"] = snap.ArchiveWriteSuccess
	m["archive_write_failure"] = snap.ArchiveWriteFailure
	m["policy"] = snap.Policy
	m["storage_backend"] = snap.StorageBackend
	return m
}
