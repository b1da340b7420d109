// Package session runs decode sessions: one pass over a JDWP byte stream,
// turning packets and their DDMS chunks into records handed to an archive
// policy.
package session

import (
	"context"
	"errors"
	"io"

	"github.com/pithecene-io/ddmscope/ddms"
	"github.com/pithecene-io/ddmscope/jdwp"
	"github.com/pithecene-io/ddmscope/log"
	"github.com/pithecene-io/ddmscope/metrics"
	"github.com/pithecene-io/ddmscope/policy"
	"github.com/pithecene-io/ddmscope/types"
)

// Error classifies decode session errors for outcome determination.
type Error struct {
	// Kind indicates whether this is a stream error, a policy error or a
	// cancellation.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
}

// ErrorKind classifies session errors.
type ErrorKind int

const (
	// ErrorStream indicates the packet stream could not be decoded.
	ErrorStream ErrorKind = iota
	// ErrorPolicy indicates the archive policy rejected a record.
	ErrorPolicy
	// ErrorCanceled indicates context cancellation.
	ErrorCanceled
)

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsPolicyError returns true if the error is a policy failure.
func IsPolicyError(err error) bool {
	return kindOf(err) == ErrorPolicy
}

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool {
	return kindOf(err) == ErrorCanceled
}

// IsStreamError returns true if the error is a packet stream error.
func IsStreamError(err error) bool {
	return kindOf(err) == ErrorStream
}

func kindOf(err error) ErrorKind {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Kind
	}
	return -1
}

// Options controls what the engine decodes.
type Options struct {
	// Handshake makes the engine consume the JDWP handshake before the
	// first packet.
	Handshake bool
	// ExpandChunks splits the payload of every packet that can carry DDMS
	// chunks and emits one record per chunk.
	ExpandChunks bool
	// MaxPackets stops the session after N packets. Zero means no limit.
	MaxPackets int64
}

// Observer is called with every record before it reaches the policy.
type Observer func(rec *types.Record)

// Counts are the per-session decode totals.
type Counts struct {
	Packets     int64 `json:"packets"`
	Chunks      int64 `json:"chunks"`
	FailChunks  int64 `json:"fail_chunks"`
	ChunkErrors int64 `json:"chunk_errors"`
}

// Engine decodes one JDWP stream.
//
//   - Packets are read in stream order and numbered from 1
//   - A malformed or truncated packet is fatal; there is no resync
//   - A payload that does not split into chunks is recorded on its packet
//     record and decoding continues at the next packet
//   - Policy failure terminates the session
type Engine struct {
	reader    *jdwp.Reader
	opts      Options
	policy    policy.Policy
	logger    *log.Logger
	collector *metrics.Collector
	observer  Observer
	counts    Counts
}

// NewEngine creates an engine over r.
func NewEngine(
	r io.Reader,
	opts Options,
	pol policy.Policy,
	logger *log.Logger,
	collector *metrics.Collector,
	observer Observer,
) *Engine {
	var readerOpts []jdwp.ReaderOption
	if opts.Handshake {
		readerOpts = append(readerOpts, jdwp.WithHandshake())
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		reader:    jdwp.NewReader(r, readerOpts...),
		opts:      opts,
		policy:    pol,
		logger:    logger,
		collector: collector,
		observer:  observer,
	}
}

// Counts returns the decode totals so far.
func (e *Engine) Counts() Counts {
	return e.counts
}

// Run decodes packets until EOF, the packet limit or a fatal error.
// Returns:
//   - nil: stream ended cleanly at a packet boundary, or the limit was hit
//   - *Error with Kind=ErrorStream: malformed or truncated packet
//   - *Error with Kind=ErrorPolicy: policy failure
//   - *Error with Kind=ErrorCanceled: context canceled
func (e *Engine) Run(ctx context.Context) error {
	defer func() { _ = e.reader.Close() }()

	for {
		select {
		case <-ctx.Done():
			return &Error{Kind: ErrorCanceled, Err: ctx.Err()}
		default:
		}

		if e.opts.MaxPackets > 0 && e.counts.Packets >= e.opts.MaxPackets {
			e.logger.Debug("packet limit reached", map[string]any{
				"limit": e.opts.MaxPackets,
			})
			return nil
		}

		pkt, err := e.reader.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if isContextErr(err) {
				return &Error{Kind: ErrorCanceled, Err: err}
			}
			e.collector.IncDecodeErrors()
			e.logger.Error("packet decode failed", map[string]any{
				"error":   err.Error(),
				"packets": e.counts.Packets,
			})
			return &Error{Kind: ErrorStream, Err: err}
		}

		records, err := e.decodePacket(ctx, pkt)
		if err != nil {
			return &Error{Kind: ErrorCanceled, Err: err}
		}
		for _, rec := range records {
			if err := e.emit(ctx, rec); err != nil {
				return err
			}
		}
	}
}

// decodePacket builds the packet record followed by its chunk and FAIL
// records. The only error returned is a context error.
func (e *Engine) decodePacket(ctx context.Context, pkt *jdwp.Packet) ([]*types.Record, error) {
	e.counts.Packets++
	h := pkt.Header()
	pr := &types.PacketRecord{
		Seq:       e.counts.Packets,
		ID:        h.ID,
		Length:    h.Length,
		Flags:     h.Flags,
		IsReply:   h.IsReply(),
		CmdSet:    h.CmdSet,
		Cmd:       h.Cmd,
		ErrorCode: h.ErrorCode,
		Summary:   pkt.String(),
		DDMS:      jdwp.IsDDMSCommand(pkt),
	}
	size := jdwp.PayloadLength(pkt)
	e.collector.IncPacket(pr.IsReply, size)
	debug := e.logger.DebugEnabled()
	plog := e.logger
	if debug {
		plog = e.logger.With(map[string]any{"packet_seq": pr.Seq, "packet_id": pr.ID})
		plog.Debug("packet", map[string]any{"summary": pr.Summary})
	}

	records := []*types.Record{{Kind: types.RecordKindPacket, Packet: pr}}
	if !e.opts.ExpandChunks || !pr.DDMS || size == 0 {
		return records, nil
	}

	err := ddms.ForEachChunk(ctx, pkt, func(c *ddms.Chunk) error {
		index := pr.Chunks
		pr.Chunks++
		e.counts.Chunks++
		e.collector.IncChunk(c.Type().String())

		records = append(records, &types.Record{
			Kind: types.RecordKindChunk,
			Chunk: &types.ChunkRecord{
				PacketSeq: pr.Seq,
				PacketID:  pr.ID,
				Index:     index,
				Type:      c.Type().String(),
				Length:    c.Length(),
				Known:     c.Type().Known(),
			},
		})
		if debug {
			plog.Debug("chunk", map[string]any{
				"index":  index,
				"type":   c.Type().String(),
				"length": c.Length(),
			})
		}

		if c.Type() == ddms.FAIL {
			records = append(records, e.failRecord(ctx, pr, index, c))
		}
		return nil
	})
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		pr.ChunkError = err.Error()
		e.counts.ChunkErrors++
		e.collector.IncDecodeErrors()
		e.logger.Warn("chunk decode failed", map[string]any{
			"seq":    pr.Seq,
			"id":     pr.ID,
			"chunks": pr.Chunks,
			"error":  err.Error(),
		})
	}
	return records, nil
}

func (e *Engine) failRecord(ctx context.Context, pr *types.PacketRecord, index int, c *ddms.Chunk) *types.Record {
	fe := ddms.DecodeFail(ctx, c)
	e.counts.FailChunks++
	e.collector.IncFailChunk()

	fields := map[string]any{
		"seq":     pr.Seq,
		"id":      pr.ID,
		"code":    fe.Code,
		"message": fe.Message,
	}
	if fe.Cause != nil {
		fields["cause"] = fe.Cause.Error()
	}
	e.logger.Info("vm reported failure", fields)

	return &types.Record{
		Kind: types.RecordKindFail,
		Fail: &types.FailRecord{
			PacketSeq: pr.Seq,
			PacketID:  pr.ID,
			Index:     index,
			Code:      fe.Code,
			Message:   fe.Message,
			Malformed: fe.Cause != nil,
		},
	}
}

func (e *Engine) emit(ctx context.Context, rec *types.Record) error {
	if e.observer != nil {
		e.observer(rec)
	}
	if err := e.policy.Ingest(ctx, rec); err != nil {
		e.logger.Error("policy ingest failed", map[string]any{
			"kind":  string(rec.Kind),
			"error": err.Error(),
		})
		return &Error{Kind: ErrorPolicy, Err: err}
	}
	return nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
