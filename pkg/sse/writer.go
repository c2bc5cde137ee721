package sse

import (
	"fmt"
	"io"
	"strings"
)

// Writer serializes events onto an io.Writer in wire order. Writes are
// sequential per stream; the caller owns any flushing the transport needs.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent emits ev as one SSE frame: an "event:" line when the event is
// typed, one "data:" line per newline-separated data segment, and the
// terminating blank line.
func (s *Writer) WriteEvent(ev Event) error {
	var b strings.Builder
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Type)
	}
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(s.w, b.String())
	return err
}
