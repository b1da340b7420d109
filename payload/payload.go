// Package payload manages access to the byte payload of a JDWP packet or a
// DDMS chunk.
//
// Two providers exist:
//   - in-memory (FromBytes, Empty): rewindable, may be acquired any number of
//     times, immutable and safe for concurrent readers
//   - stream (FromStream): a bounded single-pass slice of a shared reader,
//     acquirable once; Shutdown drains unread bytes so the shared reader is
//     positioned at the next logical unit
//
// A provider is owned by exactly one packet or chunk. To share the data, or to
// keep it past the lifetime of the shared stream, call Materialize.
package payload

import (
	"context"
	"io"
)

// Provider owns the lifecycle of one payload.
type Provider interface {
	// Acquire returns a reader over the payload.
	// Fails with wire.ErrUnavailable if the payload was consumed or closed.
	Acquire(ctx context.Context) (io.Reader, error)

	// Release ends an acquisition started by Acquire.
	Release(r io.Reader)

	// Shutdown consumes any unread bytes of a single-pass payload.
	// It runs even when the context of the last acquisition is done.
	Shutdown() error

	// Close releases held resources. Safe to call multiple times.
	Close() error

	// Materialize returns an independent rewindable copy of the payload.
	Materialize(ctx context.Context) (Provider, error)

	// Rewindable reports whether the payload is held in memory, i.e. whether
	// it can be acquired repeatedly and read concurrently.
	Rewindable() bool
}

// With acquires p, invokes fn and releases p on every exit path of fn,
// including errors, panics and context cancellation.
func With[T any](ctx context.Context, p Provider, fn func(r io.Reader) (T, error)) (T, error) {
	r, err := p.Acquire(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer p.Release(r)
	return fn(r)
}

// ReadAll acquires p and returns its remaining bytes.
func ReadAll(ctx context.Context, p Provider) ([]byte, error) {
	return With(ctx, p, io.ReadAll)
}
