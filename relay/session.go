package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/adaptiveopslab/coachrelay/pkg/sse"
	"github.com/adaptiveopslab/coachrelay/relay/worker"
)

// session correlates one inbound request with one upstream connection and
// one stream state machine. Its run loop is the only mutator of that state,
// so no locking is needed. The session ends when a terminal event has been
// written downstream or the client cancels.
type session struct {
	id       string
	model    string
	stream   *stream
	settings Settings
	cancel   context.CancelFunc
	logger   *zap.Logger
	pool     *worker.Pool

	chunks    int
	bytesRead int64
	idleFired atomic.Bool
}

// run drives the upstream read loop: raw chunks feed the state machine,
// resolved outbound events are written to the pipe in production order.
// Returns only when the session has reached a terminal state.
func (s *session) run(body io.ReadCloser, pw *io.PipeWriter) {
	started := time.Now()
	defer body.Close()
	defer pw.Close()
	defer func() { s.finish(started) }()

	// Watchdog: a stalled upstream that sends nothing within the idle
	// window gets its connection cancelled, which fails the blocked Read.
	watchdog := time.AfterFunc(s.settings.IdleTimeout, func() {
		s.idleFired.Store(true)
		s.cancel()
	})
	defer watchdog.Stop()
	defer s.cancel()

	w := sse.NewWriter(pw)
	buf := make([]byte, 32*1024)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			watchdog.Reset(s.settings.IdleTimeout)
			s.bytesRead += int64(n)

			events, feedErr := s.stream.Feed(buf[:n])
			if !s.emit(w, events) {
				return
			}
			if s.stream.Terminal() {
				return
			}
			if feedErr != nil {
				s.emit(w, s.stream.Fail(fmt.Sprintf("aborting stream: %v", feedErr)))
				return
			}
		}

		switch {
		case err == nil:
			continue

		case errors.Is(err, io.EOF):
			// Silent close is success: flush the trailing frame and
			// synthesize done if no sentinel was ever seen.
			s.emit(w, s.stream.Flush())
			return

		case s.idleFired.Load():
			s.emit(w, s.stream.Fail("upstream idle timeout"))
			return

		case errors.Is(err, context.Canceled):
			// Our own cancellation coming back through the transport;
			// the cancelled state is already latched.
			s.stream.Cancel()
			return

		default:
			s.emit(w, s.stream.Fail(fmt.Sprintf("reading upstream stream: %v", err)))
			return
		}
	}
}

// emit writes events downstream in order. A write failure means the client
// is gone: the session latches cancelled, releases the upstream connection,
// and emits nothing further. Returns false once the client is gone.
func (s *session) emit(w *sse.Writer, events []OutboundEvent) bool {
	for _, ev := range events {
		if err := w.WriteEvent(ev.Wire()); err != nil {
			s.logger.Debug("client disconnected",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
			s.stream.Cancel()
			s.cancel()
			return false
		}
		if ev.Kind == KindChunk {
			s.chunks++
		}
	}
	return true
}

// finish records the session outcome and hands the summary to the worker
// pool for async publishing.
func (s *session) finish(started time.Time) {
	reason := s.stream.Reason()

	s.logger.Info("session finished",
		zap.String("session_id", s.id),
		zap.String("reason", reason),
		zap.Int("chunks", s.chunks),
		zap.Int64("bytes", s.bytesRead),
		zap.Duration("duration", time.Since(started)),
	)

	s.pool.Enqueue(worker.Job{
		SessionID: s.id,
		Model:     s.model,
		Reason:    reason,
		Chunks:    s.chunks,
		Bytes:     s.bytesRead,
		Duration:  time.Since(started),
	})
}
