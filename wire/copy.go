package wire

import (
	"errors"
	"io"
)

// CopyExact copies exactly n bytes from r to w and then checks that r has no
// byte left. Either difference fails with KindLengthMismatch; the bytes
// already written are not retracted.
func CopyExact(w io.Writer, r io.Reader, n int64, op string) error {
	copied, err := io.CopyN(w, r, n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Errorf(KindLengthMismatch, op, "payload has %d bytes, header declares %d", copied, n)
		}
		return err
	}
	var probe [1]byte
	m, err := io.ReadFull(r, probe[:])
	if m > 0 {
		return Errorf(KindLengthMismatch, op, "payload exceeds declared %d bytes", n)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
