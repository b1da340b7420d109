// Package iox provides I/O helpers for resource cleanup and byte accounting.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(packet))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
//
//	defer iox.DiscardErr(chunk.Shutdown)
func DiscardErr(fn func() error) { _ = fn() }

// Drain reads r until EOF and returns the number of bytes discarded.
func Drain(r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}

// CountingWriter counts the bytes forwarded to W.
type CountingWriter struct {
	W io.Writer
	N int64
}

func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.N += int64(n)
	return n, err
}
