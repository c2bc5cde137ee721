package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/adaptiveopslab/coachrelay/pkg/eventstream"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.SessionCompletedEvent
	err    error
}

func (c *capturePublisher) PublishSession(_ context.Context, event *eventstream.SessionCompletedEvent) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) published() []*eventstream.SessionCompletedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*eventstream.SessionCompletedEvent(nil), c.events...)
}

// newTestPool creates a worker pool backed by a capture publisher.
// Callers should "wp.Close()" to drain enqueued jobs before asserting.
func newTestPool() (*Pool, *capturePublisher) {
	publisher := &capturePublisher{}

	wp, err := NewPool(&Config{
		Publisher: publisher,
		Logger:    zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())

	return wp, publisher
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *Pool
		publisher *capturePublisher
	)

	BeforeEach(func() {
		wp, publisher = newTestPool()
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			ok := wp.Enqueue(Job{
				SessionID: "sess-1",
				Model:     "gpt-4o-mini",
				Reason:    "done",
				Chunks:    3,
				Bytes:     128,
				Duration:  time.Second,
			})
			Expect(ok).To(BeTrue())
			wp.Close()
		})

		It("drops jobs when the queue is full", func() {
			// Zero workers never drain, so a one-slot queue fills after one job.
			blocked := &Pool{
				config: &Config{Publisher: publisher},
				queue:  make(chan Job, 1),
				logger: zap.NewNop(),
			}

			Expect(blocked.Enqueue(Job{SessionID: "first"})).To(BeTrue())
			Expect(blocked.Enqueue(Job{SessionID: "second"})).To(BeFalse())
		})
	})

	Describe("publishing", func() {
		It("publishes one session-completed event per job", func() {
			wp.Enqueue(Job{
				SessionID: "sess-9",
				Model:     "gpt-4o-mini",
				Reason:    "done",
				Chunks:    12,
				Bytes:     4096,
				Duration:  1500 * time.Millisecond,
			})
			wp.Close()

			events := publisher.published()
			Expect(events).To(HaveLen(1))

			ev := events[0]
			Expect(ev.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(ev.EventType).To(Equal(eventstream.EventTypeSessionCompleted))
			Expect(ev.EventID).NotTo(BeEmpty())
			Expect(ev.Session.SessionID).To(Equal("sess-9"))
			Expect(ev.Session.Model).To(Equal("gpt-4o-mini"))
			Expect(ev.Session.Reason).To(Equal("done"))
			Expect(ev.Session.ChunkCount).To(Equal(12))
			Expect(ev.Session.ByteCount).To(Equal(int64(4096)))
			Expect(ev.Session.DurationMs).To(Equal(int64(1500)))
		})

		It("drains all queued jobs on Close", func() {
			for i := 0; i < 20; i++ {
				Expect(wp.Enqueue(Job{SessionID: "sess", Reason: "done"})).To(BeTrue())
			}
			wp.Close()

			Expect(publisher.published()).To(HaveLen(20))
		})

		It("swallows publish errors", func() {
			publisher.err = errors.New("broker unavailable")

			wp.Enqueue(Job{SessionID: "sess-err", Reason: "error"})
			wp.Close()

			Expect(publisher.published()).To(BeEmpty())
		})
	})
})
