package relay

import (
	"encoding/json"

	"github.com/adaptiveopslab/coachrelay/pkg/sse"
)

// EventKind tags an outbound event for the downstream client.
type EventKind int

const (
	// KindChunk carries an incremental content fragment. Repeats any
	// number of times before the terminal event.
	KindChunk EventKind = iota

	// KindDone marks normal completion. Terminal.
	KindDone

	// KindError carries a failure message. Terminal.
	KindError
)

// OutboundEvent is one event of the downstream protocol. Exactly one of
// done or error terminates a session; nothing follows a terminal event.
type OutboundEvent struct {
	Kind    EventKind
	Text    string // chunk content, for KindChunk
	Message string // failure description, for KindError
}

// Chunk builds a content event.
func Chunk(text string) OutboundEvent {
	return OutboundEvent{Kind: KindChunk, Text: text}
}

// Done builds the terminal success event.
func Done() OutboundEvent {
	return OutboundEvent{Kind: KindDone}
}

// Error builds the terminal failure event.
func Error(message string) OutboundEvent {
	return OutboundEvent{Kind: KindError, Message: message}
}

// Terminal reports whether the event ends its session.
func (e OutboundEvent) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

// chunkPayload and errorPayload are the downstream JSON envelopes.
type chunkPayload struct {
	Chunk string `json:"chunk"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Wire converts the event to its SSE representation:
//
//	chunk: data: {"chunk": "<text>"}
//	done:  event: done / data: [DONE]
//	error: data: {"error": "<message>"}
func (e OutboundEvent) Wire() sse.Event {
	switch e.Kind {
	case KindDone:
		return sse.Event{Type: "done", Data: doneSentinel}
	case KindError:
		data, _ := json.Marshal(errorPayload{Error: e.Message})
		return sse.Event{Data: string(data)}
	default:
		data, _ := json.Marshal(chunkPayload{Chunk: e.Text})
		return sse.Event{Data: string(data)}
	}
}
