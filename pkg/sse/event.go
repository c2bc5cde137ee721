// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// frame layer for the coachrelay server and client. The Parser operates in
// push mode: raw bytes are fed in as the transport delivers them, in
// arbitrary chunk sizes with no alignment to frame or character boundaries,
// and complete blank-line-delimited events come out. The Writer serializes
// events back onto the wire for downstream clients.
//
// This package intentionally does NOT provide an HTTP server or client;
// it only handles the byte-level framing.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
