package payload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"testing"

	"github.com/pithecene-io/ddmscope/wire"
)

func TestFromBytes_AcquireIsRewindable(t *testing.T) {
	p := FromBytes([]byte{1, 2, 3, 4, 5})

	for i := range 3 {
		data, err := ReadAll(t.Context(), p)
		if err != nil {
			t.Fatalf("ReadAll #%d failed: %v", i, err)
		}
		if !bytes.Equal(data, []byte{1, 2, 3, 4, 5}) {
			t.Fatalf("ReadAll #%d = %v", i, data)
		}
	}
	if !p.Rewindable() {
		t.Error("in-memory provider must be rewindable")
	}
}

func TestFromBytes_CanceledPartialReadDoesNotLoseData(t *testing.T) {
	p := FromBytes([]byte{1, 2, 3, 4, 5})

	ctx, cancel := context.WithCancel(t.Context())
	_, err := With(ctx, p, func(r io.Reader) (struct{}, error) {
		buf := make([]byte, 2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return struct{}{}, err
		}
		cancel()
		_, err := r.Read(buf)
		return struct{}{}, err
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	data, err := ReadAll(t.Context(), p)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("ReadAll = %v, want all 5 bytes", data)
	}
}

func TestFromBytes_ConcurrentReaders(t *testing.T) {
	p := FromBytes([]byte("concurrent payload"))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := ReadAll(context.Background(), p)
			if err != nil {
				errs <- err
				return
			}
			if string(data) != "concurrent payload" {
				errs <- errors.New("payload mismatch: " + string(data))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestFromBytes_CloseIsIdempotent(t *testing.T) {
	p := FromBytes([]byte{1})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := p.Acquire(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}

func TestFromBytes_MaterializeReturnsSelf(t *testing.T) {
	p := FromBytes([]byte{9})
	m, err := p.Materialize(t.Context())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if m != p {
		t.Error("materializing an in-memory provider should return the same provider")
	}
}

func TestFromStream_IsBounded(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5, 6})
	p := FromStream(src, 4)

	data, err := ReadAll(t.Context(), p)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3, 4}) {
		t.Fatalf("ReadAll = %v", data)
	}
	if src.Len() != 2 {
		t.Errorf("shared stream has %d bytes left, want 2", src.Len())
	}
	if p.Rewindable() {
		t.Error("stream provider must not be rewindable")
	}
}

func TestFromStream_SinglePass(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1, 2, 3}), 3)

	if _, err := ReadAll(t.Context(), p); err != nil {
		t.Fatalf("first ReadAll: %v", err)
	}
	if _, err := p.Acquire(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on second acquire, got %v", err)
	}
}

func TestFromStream_ReadAfterReleaseFails(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1, 2, 3}), 3)
	r, err := p.Acquire(t.Context())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(r)
	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFromStream_ShutdownDrainsUnreadBytes(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7})
	p := FromStream(src, 5)

	_, err := With(t.Context(), p, func(r io.Reader) (int, error) {
		return r.Read(make([]byte, 2))
	})
	if err != nil {
		t.Fatalf("partial read: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("shared stream has %d bytes left, want 2", src.Len())
	}
	// Second shutdown is a no-op.
	if err := p.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("second Shutdown consumed bytes")
	}
}

func TestFromStream_ShutdownWithoutAcquire(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4})
	p := FromStream(src, 3)
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if src.Len() != 1 {
		t.Errorf("shared stream has %d bytes left, want 1", src.Len())
	}
}

func TestFromStream_ShutdownRunsAfterCancellation(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4, 5})
	p := FromStream(src, 5)

	ctx, cancel := context.WithCancel(t.Context())
	_, _ = With(ctx, p, func(r io.Reader) (int, error) {
		n, err := r.Read(make([]byte, 1))
		cancel()
		return n, err
	})
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown after cancel: %v", err)
	}
	if src.Len() != 0 {
		t.Errorf("shared stream has %d bytes left, want 0", src.Len())
	}
}

func TestFromStream_ShutdownTruncated(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1, 2}), 5)
	if err := p.Shutdown(); !errors.Is(err, wire.ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestFromStream_AcquireAfterShutdownFails(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 4})
	p := FromStream(src, 3)
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := p.Acquire(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after shutdown, got %v", err)
	}
	if src.Len() != 1 {
		t.Errorf("shared stream has %d bytes left, want 1", src.Len())
	}
}

func TestFromStream_MaterializeAfterShutdownFails(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1, 2, 3}), 3)
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := p.Materialize(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after shutdown, got %v", err)
	}
}

func TestFromStream_ShutdownKeepsMaterializedCopy(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{7, 8}), 2)
	if _, err := p.Materialize(t.Context()); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	data, err := ReadAll(t.Context(), p)
	if err != nil {
		t.Fatalf("ReadAll after shutdown: %v", err)
	}
	if !bytes.Equal(data, []byte{7, 8}) {
		t.Errorf("ReadAll = %v", data)
	}
}

func TestFromStream_MaterializeHugeDeclaredLength(t *testing.T) {
	const declared = 512 << 20
	p := FromStream(bytes.NewReader([]byte{1, 2, 3, 4}), declared)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := p.Materialize(t.Context())
	runtime.ReadMemStats(&after)

	if !errors.Is(err, wire.ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 64<<20 {
		t.Errorf("Materialize allocated %d bytes for a 4-byte stream", grew)
	}
	if _, err := p.Materialize(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable after failed materialize, got %v", err)
	}
}

func TestFromStream_MaterializeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	p := FromStream(bytes.NewReader([]byte{1, 2}), 2)
	_, err := p.Materialize(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, wire.ErrTruncatedStream) {
		t.Error("cancellation must not be reported as a truncated stream")
	}
}

func TestFromStream_ReadTruncated(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1, 2}), 5)
	_, err := ReadAll(t.Context(), p)
	if !errors.Is(err, wire.ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
}

func TestFromStream_MaterializeIsRepeatable(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3, 9})
	p := FromStream(src, 3)

	for i := range 3 {
		m, err := p.Materialize(t.Context())
		if err != nil {
			t.Fatalf("Materialize #%d: %v", i, err)
		}
		if !m.Rewindable() {
			t.Fatalf("materialized provider must be rewindable")
		}
		data, err := ReadAll(t.Context(), m)
		if err != nil {
			t.Fatalf("ReadAll #%d: %v", i, err)
		}
		if !bytes.Equal(data, []byte{1, 2, 3}) {
			t.Fatalf("ReadAll #%d = %v", i, data)
		}
	}
	if src.Len() != 1 {
		t.Errorf("shared stream has %d bytes left, want 1", src.Len())
	}
	if !p.Rewindable() {
		t.Error("source provider serves the cached copy after materializing")
	}
}

func TestFromStream_MaterializeSurvivesClose(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{4, 5}), 2)
	m, err := p.Materialize(t.Context())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := ReadAll(t.Context(), m)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, []byte{4, 5}) {
		t.Errorf("ReadAll = %v", data)
	}
}

func TestFromStream_MaterializeAfterConsumeFails(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1, 2}), 2)
	if _, err := ReadAll(t.Context(), p); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if _, err := p.Materialize(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFromStream_CloseIsIdempotent(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1}), 1)
	for range 3 {
		if err := p.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if _, err := p.Acquire(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}

func TestWith_ReleasesOnPanic(t *testing.T) {
	p := FromStream(bytes.NewReader([]byte{1, 2}), 2)

	func() {
		defer func() { _ = recover() }()
		_, _ = With(t.Context(), p, func(io.Reader) (int, error) {
			panic("boom")
		})
	}()

	// Released: acquiring again reports consumed, not a stuck acquisition.
	if _, err := p.Acquire(t.Context()); !errors.Is(err, wire.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
