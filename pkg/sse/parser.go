package sse

import (
	"bytes"
	"fmt"
	"strings"
)

// DefaultMaxBuffer is the default ceiling for the unresolved frame tail.
const DefaultMaxBuffer = 1024 * 1024

var (
	crlfBoundary = []byte("\r\n\r\n")
	lfBoundary   = []byte("\n\n")
)

// Parser is a push-mode SSE frame parser. Raw transport chunks go in via
// Feed; complete events come out. The parser buffers raw bytes between
// calls, so a frame (or a multi-byte UTF-8 sequence inside one) split
// across chunk boundaries reassembles correctly: bytes are only converted
// to text once a complete frame has been delimited. A Parser is owned by
// exactly one stream and is not safe for concurrent use.
type Parser struct {
	buf       []byte
	maxBuffer int
}

// NewParser returns a Parser with the given buffer ceiling. A maxBuffer of
// zero or less applies DefaultMaxBuffer.
func NewParser(maxBuffer int) *Parser {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	return &Parser{maxBuffer: maxBuffer}
}

// Feed appends a raw chunk to the frame buffer and returns every event
// whose terminating blank line is now present, in stream order. Whitespace-
// only frames are discarded silently. Feed fails only when the unresolved
// tail exceeds the configured ceiling; frame content itself never errors.
func (p *Parser) Feed(chunk []byte) ([]Event, error) {
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		frame, rest, ok := nextFrame(p.buf)
		if !ok {
			break
		}
		p.buf = rest
		if ev, ok := parseFrame(frame); ok {
			events = append(events, ev)
		}
	}

	if len(p.buf) > p.maxBuffer {
		return events, fmt.Errorf("sse: frame exceeds %d byte buffer limit", p.maxBuffer)
	}
	return events, nil
}

// Flush yields the trailing unterminated frame, if the stream ended without
// a final blank line. Call once when the source is exhausted.
func (p *Parser) Flush() (Event, bool) {
	frame := bytes.TrimSpace(p.buf)
	p.buf = nil
	if len(frame) == 0 {
		return Event{}, false
	}
	return parseFrame(frame)
}

// Buffered reports how many unresolved bytes the parser is holding.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// nextFrame splits buf at the earliest blank-line boundary. Both separator
// forms are located and the one appearing first wins, so a stream mixing
// LF- and CRLF-terminated frames splits at every boundary instead of fusing
// frames across the later one.
func nextFrame(buf []byte) (frame, rest []byte, ok bool) {
	crlf := bytes.Index(buf, crlfBoundary)
	lf := bytes.Index(buf, lfBoundary)

	switch {
	case crlf < 0 && lf < 0:
		return nil, nil, false
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return buf[:crlf], buf[crlf+len(crlfBoundary):], true
	default:
		return buf[:lf], buf[lf+len(lfBoundary):], true
	}
}

// parseFrame accumulates the field lines of one complete frame into an
// Event. Returns false for frames that carry no fields (whitespace only,
// or comments only).
func parseFrame(frame []byte) (Event, bool) {
	var ev Event
	var data []string
	hasField := false

	for _, raw := range bytes.Split(frame, []byte("\n")) {
		line := strings.TrimRight(string(raw), "\r")
		if line == "" {
			continue
		}
		// Lines starting with ':' are comments. Skip them.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := cutField(line)
		switch field {
		case "data":
			data = append(data, value)
			hasField = true
		case "event":
			ev.Type = value
			hasField = true
		case "id":
			ev.ID = value
			hasField = true
		default:
			// "retry" and unknown fields are ignored per the SSE spec.
		}
	}

	if !hasField {
		return Event{}, false
	}
	ev.Data = strings.Join(data, "\n")
	return ev, true
}

// cutField splits an SSE line of the form "field:value". The first space
// after the colon is optional and stripped if present; a line with no colon
// is a field name with an empty value, per spec.
func cutField(line string) (field, value string) {
	before, after, ok := strings.Cut(line, ":")
	if !ok {
		return line, ""
	}
	return before, strings.TrimPrefix(after, " ")
}
