// Package eventstream defines transport-neutral session lifecycle events
// and the Publisher interface backends implement.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionCompleted is emitted after a relay session reaches a
	// terminal state.
	EventTypeSessionCompleted = "coachrelay.session.completed"
)

// SessionSummary is the metadata recorded for one finished session.
// Stream content is deliberately absent; the relay never persists it.
type SessionSummary struct {
	SessionID  string `json:"session_id"`
	Model      string `json:"model"`
	Reason     string `json:"reason"` // done, error, or cancelled
	ChunkCount int    `json:"chunk_count"`
	ByteCount  int64  `json:"byte_count"`
	DurationMs int64  `json:"duration_ms"`
}

// SessionCompletedEvent is the versioned payload published for a finished
// session.
type SessionCompletedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Session       SessionSummary `json:"session"`
}

// NewSessionCompletedEvent wraps a summary in the current envelope.
func NewSessionCompletedEvent(summary SessionSummary) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Session:       summary,
	}
}
