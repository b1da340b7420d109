package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionMeta identifies one decode session: a single pass over a JDWP
// byte stream, raw or captured.
type SessionMeta struct {
	// SessionID is unique per session. Generated when not supplied.
	SessionID string
	// Source names where the stream came from (a file path, a device serial).
	Source string
	// StartedAt is the session start time.
	StartedAt time.Time
}

// NewSessionMeta returns session metadata for source, generating a session
// ID when id is empty.
func NewSessionMeta(id, source string, startedAt time.Time) *SessionMeta {
	if id == "" {
		id = uuid.NewString()
	}
	return &SessionMeta{SessionID: id, Source: source, StartedAt: startedAt}
}

// Day returns the partition day of the session (YYYY-MM-DD, UTC).
func (m *SessionMeta) Day() string {
	return m.StartedAt.UTC().Format("2006-01-02")
}
