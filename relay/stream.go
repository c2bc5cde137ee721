package relay

import (
	"encoding/json"
	"strings"

	"github.com/adaptiveopslab/coachrelay/pkg/llm"
	"github.com/adaptiveopslab/coachrelay/pkg/sse"
)

// doneSentinel is the reserved payload value the upstream provider sends to
// signal normal end of stream, and the value the relay echoes downstream.
const doneSentinel = "[DONE]"

// streamState is the lifecycle of one relayed stream. accumulating is
// initial; each terminal state is reached at most once and no transition
// leaves a terminal state.
type streamState int

const (
	stateAccumulating streamState = iota
	stateDone
	stateError
	stateCancelled
)

// stream is the per-session state machine: it owns the session's frame
// parser, translates upstream frames into outbound events, and latches on
// the first terminal transition so nothing is ever emitted after done,
// error, or cancellation. Owned exclusively by one session's read loop.
type stream struct {
	parser *sse.Parser
	state  streamState
}

func newStream(maxBuffer int) *stream {
	return &stream{parser: sse.NewParser(maxBuffer)}
}

// Terminal reports whether the stream has reached done, error, or cancelled.
func (s *stream) Terminal() bool {
	return s.state != stateAccumulating
}

// Reason names the state the stream ended in, for session telemetry.
func (s *stream) Reason() string {
	switch s.state {
	case stateDone:
		return "done"
	case stateError:
		return "error"
	case stateCancelled:
		return "cancelled"
	default:
		return "accumulating"
	}
}

// Feed pushes one raw upstream chunk through the frame parser and returns
// the outbound events it resolves, in order. Once a terminal event is
// produced, remaining buffered frames are suppressed. The returned error
// reports only buffer-ceiling violations; malformed frame content never
// errors (it degrades to raw forwarding).
func (s *stream) Feed(chunk []byte) ([]OutboundEvent, error) {
	if s.Terminal() {
		return nil, nil
	}
	frames, err := s.parser.Feed(chunk)
	return s.translate(frames), err
}

// Flush drains the trailing unterminated frame when the upstream closes,
// then synthesizes done if no terminal signal was ever seen: a silent
// upstream close is success, not an error. First terminal signal wins.
func (s *stream) Flush() []OutboundEvent {
	if s.Terminal() {
		return nil
	}

	var events []OutboundEvent
	if frame, ok := s.parser.Flush(); ok {
		events = s.translate([]sse.Event{frame})
	}
	if !s.Terminal() {
		s.state = stateDone
		events = append(events, Done())
	}
	return events
}

// Fail transitions to the error state and returns the single terminal
// error event, or nothing if a terminal state was already reached.
func (s *stream) Fail(message string) []OutboundEvent {
	if s.Terminal() {
		return nil
	}
	s.state = stateError
	return []OutboundEvent{Error(message)}
}

// Cancel latches the cancelled state. Idempotent; a no-op after any
// terminal transition.
func (s *stream) Cancel() {
	if !s.Terminal() {
		s.state = stateCancelled
	}
}

// translate converts parsed frames into outbound events and applies the
// terminal sentinel.
func (s *stream) translate(frames []sse.Event) []OutboundEvent {
	var events []OutboundEvent
	for _, frame := range frames {
		if s.Terminal() {
			break
		}

		payload := strings.TrimSpace(frame.Data)
		if payload == "" {
			continue
		}

		if payload == doneSentinel {
			s.state = stateDone
			events = append(events, Done())
			break
		}

		switch kind, text := decodeDelta(payload); kind {
		case deltaParsed, deltaRaw:
			events = append(events, Chunk(text))
		case deltaEmpty:
			// Metadata-only frame (role announcement, finish marker):
			// nothing to forward.
		}
	}
	return events
}

// deltaKind classifies the result of payload extraction.
type deltaKind int

const (
	// deltaParsed: structured parse succeeded and yielded content.
	deltaParsed deltaKind = iota

	// deltaEmpty: structured parse succeeded but the chunk carries no
	// content field.
	deltaEmpty

	// deltaRaw: the payload is not a parseable record; the raw text is
	// forwarded verbatim rather than dropped.
	deltaRaw
)

// decodeDelta extracts the incremental content from one frame payload.
// Parse failure is not an error: better to forward possibly-unstructured
// text than to silently discard data.
func decodeDelta(payload string) (deltaKind, string) {
	var chunk llm.StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return deltaRaw, payload
	}
	if text := chunk.DeltaContent(); text != "" {
		return deltaParsed, text
	}
	return deltaEmpty, ""
}
