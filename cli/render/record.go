package render

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/ddmscope/types"
)

// Record writes one decode record as soon as it is produced.
//
// Table output is a one-line human form per record, chunk and FAIL lines
// indented under their packet. json and jsonl write one compact document
// per line; yaml writes one document per record.
func (r *Renderer) Record(rec *types.Record) error {
	switch r.format {
	case FormatJSON, FormatJSONL:
		return json.NewEncoder(r.out).Encode(rec)
	case FormatYAML:
		data, err := yaml.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.out, "---\n%s", data)
		return err
	case FormatTable:
		_, err := fmt.Fprintln(r.out, r.recordLine(rec))
		return err
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RecordFunc adapts Record to a callback that reports the first write
// error through errp and drops later records.
func (r *Renderer) RecordFunc(errp *error) func(*types.Record) {
	return func(rec *types.Record) {
		if *errp != nil {
			return
		}
		*errp = r.Record(rec)
	}
}

func (r *Renderer) recordLine(rec *types.Record) string {
	switch rec.Kind {
	case types.RecordKindPacket:
		p := rec.Packet
		style := r.styles.command
		if p.IsReply {
			style = r.styles.reply
		}
		line := fmt.Sprintf("#%-5d %s", p.Seq, style.Render(p.Summary))
		if p.Chunks > 0 {
			line += r.styles.muted.Render(fmt.Sprintf(" chunks=%d", p.Chunks))
		}
		if p.ChunkError != "" {
			line += "\n       " + r.styles.warning.Render("chunk error: "+p.ChunkError)
		}
		return line
	case types.RecordKindChunk:
		c := rec.Chunk
		label := c.Type
		if !c.Known {
			label += "?"
		}
		return r.styles.chunk.Render(fmt.Sprintf("       [%d] %s length=%d", c.Index, label, c.Length))
	case types.RecordKindFail:
		f := rec.Fail
		text := fmt.Sprintf("       [%d] FAIL %d: %s", f.Index, f.Code, f.Message)
		if f.Malformed {
			text += " (malformed)"
		}
		return r.styles.fail.Render(text)
	default:
		return fmt.Sprintf("unknown record kind %q", rec.Kind)
	}
}
