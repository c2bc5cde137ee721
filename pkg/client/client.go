// Package client provides a streaming consumer for a running coachrelay
// server. It issues the coaching request and exposes the relayed stream as
// an ordered channel of tagged events with an append-only transcript.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/adaptiveopslab/coachrelay/pkg/sse"
)

const (
	streamPath = "/api/coach/stream"

	doneSentinel = "[DONE]"

	// errorBodyLimit caps how much of a non-200 response body is read
	// for the error message.
	errorBodyLimit = 4096
)

// ErrStreamTruncated reports an upstream connection that closed before a
// done or error event arrived.
var ErrStreamTruncated = errors.New("stream closed without completion")

// Request is the coaching request sent to the relay.
type Request struct {
	Scenario string `json:"scenario"`
	Notes    string `json:"notes,omitempty"`
}

// EventKind tags an event delivered on a Stream.
type EventKind int

const (
	// KindChunk carries a fragment of coach text.
	KindChunk EventKind = iota

	// KindDone marks normal completion. Terminal.
	KindDone

	// KindError marks failed completion with an error. Terminal.
	KindError
)

// Event is one tagged occurrence on a Stream. Exactly one terminal event
// (KindDone or KindError) is delivered per stream, and nothing follows it.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Client connects to a coachrelay server.
type Client struct {
	target     string
	token      string
	httpClient *http.Client
}

// New creates a Client for the given relay URL and bearer token.
func New(target, token string) *Client {
	return &Client{
		target: strings.TrimRight(target, "/"),
		token:  token,
		httpClient: &http.Client{
			// Coaching sessions can run long; the relay's own idle
			// watchdog bounds a stalled stream.
			Timeout: 0,
		},
	}
}

// Stream represents one in-flight coaching session.
type Stream struct {
	events chan Event

	mu   sync.Mutex
	text strings.Builder
}

// Events returns the ordered event channel. The channel closes after the
// terminal event is delivered.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Text returns the transcript accumulated so far, in arrival order.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

func (s *Stream) appendText(chunk string) {
	s.mu.Lock()
	s.text.WriteString(chunk)
	s.mu.Unlock()
}

// Stream sends the coaching request and returns a Stream of relayed
// events. Connect failures (transport errors, non-200 status) are
// returned directly. Cancelling ctx tears down the connection and
// surfaces a terminal error event.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+streamPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("connecting to relay: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		resp.Body.Close()
		return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(diag)))
	}

	s := &Stream{events: make(chan Event)}
	go s.consume(ctx, resp.Body)

	return s, nil
}

// consume reads the SSE body, translating frames into tagged events until
// a terminal arrives or the connection ends.
func (s *Stream) consume(ctx context.Context, body io.ReadCloser) {
	defer close(s.events)
	defer body.Close()

	parser := sse.NewParser(sse.DefaultMaxBuffer)
	buf := make([]byte, 32*1024)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			events, feedErr := parser.Feed(buf[:n])
			if s.deliver(events) {
				return
			}
			if feedErr != nil {
				s.fail(feedErr)
				return
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			if ev, ok := parser.Flush(); ok {
				if s.deliver([]sse.Event{ev}) {
					return
				}
			}
			s.fail(ErrStreamTruncated)
			return
		case ctx.Err() != nil:
			s.fail(ctx.Err())
			return
		default:
			s.fail(fmt.Errorf("reading stream: %w", err))
			return
		}
	}
}

// deliver translates and emits the given frames. Returns true once a
// terminal event has been delivered.
func (s *Stream) deliver(events []sse.Event) bool {
	for _, ev := range events {
		payload := strings.TrimSpace(ev.Data)
		if payload == "" {
			continue
		}

		if ev.Type == "done" || payload == doneSentinel {
			s.events <- Event{Kind: KindDone}
			return true
		}

		var frame struct {
			Chunk *string `json:"chunk"`
			Error *string `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &frame); err == nil {
			switch {
			case frame.Error != nil:
				s.events <- Event{Kind: KindError, Err: errors.New(*frame.Error)}
				return true
			case frame.Chunk != nil:
				s.appendText(*frame.Chunk)
				s.events <- Event{Kind: KindChunk, Text: *frame.Chunk}
				continue
			}
		}

		// Unknown payloads pass through as text rather than being dropped.
		s.appendText(payload)
		s.events <- Event{Kind: KindChunk, Text: payload}
	}

	return false
}

func (s *Stream) fail(err error) {
	s.events <- Event{Kind: KindError, Err: err}
}

// Healthy reports whether the relay's health endpoint answers within the
// given timeout.
func (c *Client) Healthy(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target+"/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
