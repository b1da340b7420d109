package ddms

import (
	"bytes"
	"errors"
	"runtime"
	"testing"

	"github.com/pithecene-io/ddmscope/jdwp"
	"github.com/pithecene-io/ddmscope/payload"
	"github.com/pithecene-io/ddmscope/wire"
)

func mustChunk(t *testing.T, ct ChunkType, data []byte) *Chunk {
	t.Helper()
	c, err := NewBytesChunk(ct, data)
	if err != nil {
		t.Fatalf("NewBytesChunk: %v", err)
	}
	return c
}

func TestNewDDMSPacket(t *testing.T) {
	p, err := NewDDMSPacket(t.Context(), 12, mustChunk(t, HELO, []byte{0, 0, 0, 1}))
	if err != nil {
		t.Fatalf("NewDDMSPacket: %v", err)
	}
	if !jdwp.IsDDMSCommand(p) || p.IsReply() {
		t.Fatalf("packet %s is not a DDMS command", p)
	}

	var buf bytes.Buffer
	if err := jdwp.WritePacket(t.Context(), &buf, p); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	want := rawPacket(12, rawChunk("HELO", []byte{0, 0, 0, 1}))
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("wire bytes = % x\nwant         % x", buf.Bytes(), want)
	}
}

func TestFindFail(t *testing.T) {
	fail, err := NewFailChunk(3, "denied")
	if err != nil {
		t.Fatalf("NewFailChunk: %v", err)
	}
	p, err := NewDDMSReply(t.Context(), 1, mustChunk(t, THST, []byte{1}), fail)
	if err != nil {
		t.Fatalf("NewDDMSReply: %v", err)
	}
	fe, err := FindFail(t.Context(), p)
	if err != nil {
		t.Fatalf("FindFail: %v", err)
	}
	if fe == nil || fe.Code != 3 || fe.Message != "denied" {
		t.Fatalf("FindFail = %v", fe)
	}

	clean, _ := NewDDMSReply(t.Context(), 2, mustChunk(t, THST, []byte{1}))
	fe, err = FindFail(t.Context(), clean)
	if err != nil || fe != nil {
		t.Fatalf("FindFail on clean reply = %v, %v", fe, err)
	}
}

func TestReplyChunk(t *testing.T) {
	ctx := t.Context()
	fail, _ := NewFailChunk(7, "boom")

	t.Run("match", func(t *testing.T) {
		p, _ := NewDDMSReply(ctx, 1, mustChunk(t, MPRQ, []byte{1}))
		c, err := ReplyChunk(ctx, p, MPRQ)
		if err != nil {
			t.Fatalf("ReplyChunk: %v", err)
		}
		data, err := payload.ReadAll(ctx, c.Payload())
		if err != nil || !bytes.Equal(data, []byte{1}) {
			t.Fatalf("payload = %v, %v", data, err)
		}
	})

	t.Run("fail chunk", func(t *testing.T) {
		p, _ := NewDDMSReply(ctx, 2, mustChunk(t, MPRQ, nil), fail)
		_, err := ReplyChunk(ctx, p, MPRQ)
		var fe *FailError
		if !errors.As(err, &fe) || fe.Code != 7 || fe.Message != "boom" {
			t.Fatalf("expected FailError{7, boom}, got %v", err)
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		p, _ := NewDDMSReply(ctx, 3, mustChunk(t, VULW, nil))
		if _, err := ReplyChunk(ctx, p, MPRQ); !errors.Is(err, ErrUnexpectedReply) {
			t.Fatalf("expected ErrUnexpectedReply, got %v", err)
		}
	})

	t.Run("empty reply", func(t *testing.T) {
		p, _ := NewDDMSReply(ctx, 4)
		if _, err := ReplyChunk(ctx, p, MPRQ); !errors.Is(err, ErrUnexpectedReply) {
			t.Fatalf("expected ErrUnexpectedReply, got %v", err)
		}
	})

	t.Run("declared length beyond packet", func(t *testing.T) {
		// Header claims 512 MiB; the packet carries four bytes.
		body := []byte{'M', 'P', 'R', 'Q', 0x20, 0, 0, 0, 1, 2, 3, 4}
		p, _ := streamPacket(t, rawPacket(5, body))
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err := ReplyChunk(ctx, p, MPRQ)
		runtime.ReadMemStats(&after)
		if !errors.Is(err, wire.ErrTruncatedStream) {
			t.Fatalf("expected ErrTruncatedStream, got %v", err)
		}
		if grew := after.TotalAlloc - before.TotalAlloc; grew > 64<<20 {
			t.Errorf("ReplyChunk allocated %d bytes for a 4-byte chunk", grew)
		}
	})
}
