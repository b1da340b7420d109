package wire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestError_IsMatchesSentinelByKind(t *testing.T) {
	err := Errorf(KindMalformedHeader, "parse header", "length %d < 11", 5)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
	if errors.Is(err, ErrTruncatedStream) {
		t.Fatal("malformed header must not match truncated stream")
	}

	wrapped := fmt.Errorf("decode: %w", err)
	if !errors.Is(wrapped, ErrMalformedHeader) {
		t.Fatal("errors.Is must see through fmt wrapping")
	}
	if KindOf(wrapped) != KindMalformedHeader {
		t.Errorf("KindOf = %v, want %v", KindOf(wrapped), KindMalformedHeader)
	}
}

func TestError_UnwrapPreservesCause(t *testing.T) {
	err := Wrap(KindTruncatedStream, "read chunk header", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("cause lost")
	}
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatal("kind lost")
	}
	want := "read chunk header: truncated stream: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(errors.New("plain")) {
		t.Error("plain error is not a protocol error")
	}
	if !IsFatal(ErrUnavailable) {
		t.Error("protocol errors are fatal")
	}
}

func TestReadHeader_CleanEOF(t *testing.T) {
	buf := make([]byte, 8)
	err := ReadHeader(t.Context(), bytes.NewReader(nil), buf, "read chunk header")
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadHeader_PartialIsTruncated(t *testing.T) {
	buf := make([]byte, 8)
	err := ReadHeader(t.Context(), bytes.NewReader([]byte{1, 2, 3}), buf, "read chunk header")
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestReadHeader_Full(t *testing.T) {
	buf := make([]byte, 4)
	if err := ReadHeader(t.Context(), bytes.NewReader([]byte{1, 2, 3, 4, 5}), buf, "op"); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Errorf("buf = %v", buf)
	}
}

func TestReadHeader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := ReadHeader(ctx, bytes.NewReader([]byte{1, 2, 3, 4}), make([]byte, 4), "op")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTruncatedStream) || KindOf(err) != 0 {
		t.Errorf("cancellation must not be classified as a protocol error, got kind %v", KindOf(err))
	}
}

// cancelAfterRead cancels its context once the first read returns.
type cancelAfterRead struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelAfterRead) Read(p []byte) (int, error) {
	n, err := c.r.Read(p[:1])
	c.cancel()
	return n, err
}

func TestReadHeader_CanceledMidHeader(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	r := &cancelAfterRead{r: bytes.NewReader([]byte{1, 2, 3, 4}), cancel: cancel}
	err := ReadHeader(ctx, r, make([]byte, 4), "op")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTruncatedStream) {
		t.Error("cancellation mid-header must not match ErrTruncatedStream")
	}
}

func TestError_MessageUsesOp(t *testing.T) {
	if got := Errorf(KindUnavailable, "materialize payload", "provider closed").Error(); got != "materialize payload: payload unavailable: provider closed" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&Error{Kind: KindInvalidFormat}).Error(); got != "invalid format" {
		t.Errorf("Error() without Op = %q", got)
	}
}
