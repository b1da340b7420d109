package iox

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type spyCloser struct{ closed bool }

func (s *spyCloser) Close() error { s.closed = true; return errors.New("ignored") }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestDiscardErr(t *testing.T) {
	called := false
	DiscardErr(func() error {
		called = true
		return errors.New("ignored")
	})
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestDrain(t *testing.T) {
	r := strings.NewReader("0123456789")
	n, err := Drain(r)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 10 {
		t.Errorf("drained %d bytes, want 10", n)
	}
	if r.Len() != 0 {
		t.Errorf("reader has %d bytes left", r.Len())
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &CountingWriter{W: &buf}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("de"))
	if cw.N != 5 {
		t.Errorf("N = %d, want 5", cw.N)
	}
	if buf.String() != "abcde" {
		t.Errorf("forwarded %q", buf.String())
	}
}
