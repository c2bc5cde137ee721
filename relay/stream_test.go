package relay

import (
	"fmt"
	"strings"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/adaptiveopslab/coachrelay/pkg/sse"
)

// chunkFrame builds an upstream completion chunk frame carrying the given
// delta content.
func chunkFrame(content string) string {
	return fmt.Sprintf("data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", content)
}

var _ = ginkgo.Describe("stream state machine", func() {
	var s *stream

	ginkgo.BeforeEach(func() {
		s = newStream(sse.DefaultMaxBuffer)
	})

	ginkgo.Describe("Feed", func() {
		ginkgo.It("translates completion chunks into chunk events in order", func() {
			events, err := s.Feed([]byte(chunkFrame("Hello") + chunkFrame(" world")))
			Expect(err).NotTo(HaveOccurred())

			Expect(events).To(HaveLen(2))
			Expect(events[0].Kind).To(Equal(KindChunk))
			Expect(events[0].Text).To(Equal("Hello"))
			Expect(events[1].Text).To(Equal(" world"))
			Expect(s.Terminal()).To(BeFalse())
		})

		ginkgo.It("latches done on the sentinel and suppresses later frames", func() {
			events, err := s.Feed([]byte(chunkFrame("a") + "data: [DONE]\n\n" + chunkFrame("after")))
			Expect(err).NotTo(HaveOccurred())

			Expect(events).To(HaveLen(2))
			Expect(events[0].Text).To(Equal("a"))
			Expect(events[1].Kind).To(Equal(KindDone))
			Expect(s.Terminal()).To(BeTrue())
			Expect(s.Reason()).To(Equal("done"))
		})

		ginkgo.It("returns nothing once terminal", func() {
			_, err := s.Feed([]byte("data: [DONE]\n\n"))
			Expect(err).NotTo(HaveOccurred())

			events, err := s.Feed([]byte(chunkFrame("late")))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
		})

		ginkgo.It("holds a partial frame until its terminator arrives", func() {
			frame := chunkFrame("reassembled")
			half := len(frame) / 2

			events, err := s.Feed([]byte(frame[:half]))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())

			events, err = s.Feed([]byte(frame[half:]))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Text).To(Equal("reassembled"))
		})

		ginkgo.It("reassembles a multi-byte rune split across reads", func() {
			frame := []byte(chunkFrame("café"))

			// Split inside the two-byte é sequence.
			splitAt := strings.Index(string(frame), "caf") + 4

			events, err := s.Feed(frame[:splitAt])
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())

			events, err = s.Feed(frame[splitAt:])
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Text).To(Equal("café"))
		})

		ginkgo.It("produces nothing for metadata-only chunks", func() {
			frame := "data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\"},\"finish_reason\":null}]}\n\n"
			events, err := s.Feed([]byte(frame))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
			Expect(s.Terminal()).To(BeFalse())
		})

		ginkgo.It("forwards unparseable payloads verbatim", func() {
			events, err := s.Feed([]byte("data: plain text, not json\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(KindChunk))
			Expect(events[0].Text).To(Equal("plain text, not json"))
		})

		ginkgo.It("skips empty payload frames", func() {
			events, err := s.Feed([]byte("data:\n\n" + chunkFrame("x")))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Text).To(Equal("x"))
		})

		ginkgo.It("errors when an unterminated frame exceeds the buffer ceiling", func() {
			tiny := newStream(64)

			payload := "data: " + strings.Repeat("x", 256)
			_, err := tiny.Feed([]byte(payload))
			Expect(err).To(MatchError(ContainSubstring("buffer limit")))
		})

		ginkgo.It("resolves complete frames before reporting a ceiling violation", func() {
			tiny := newStream(64)

			events, err := tiny.Feed([]byte("data: ok\n\ndata: " + strings.Repeat("y", 256)))
			Expect(err).To(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Text).To(Equal("ok"))
		})
	})

	ginkgo.Describe("Flush", func() {
		ginkgo.It("synthesizes done on a silent close", func() {
			_, err := s.Feed([]byte(chunkFrame("partial")))
			Expect(err).NotTo(HaveOccurred())

			events := s.Flush()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(KindDone))
			Expect(s.Reason()).To(Equal("done"))
		})

		ginkgo.It("drains a trailing unterminated frame before done", func() {
			_, err := s.Feed([]byte(strings.TrimSuffix(chunkFrame("tail"), "\n")))
			Expect(err).NotTo(HaveOccurred())

			events := s.Flush()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Text).To(Equal("tail"))
			Expect(events[1].Kind).To(Equal(KindDone))
		})

		ginkgo.It("is a no-op after a terminal state", func() {
			_, err := s.Feed([]byte("data: [DONE]\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Flush()).To(BeEmpty())
		})

		ginkgo.It("honors a sentinel hiding in the trailing frame", func() {
			_, err := s.Feed([]byte("data: [DONE]"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Terminal()).To(BeFalse())

			events := s.Flush()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(KindDone))
		})
	})

	ginkgo.Describe("Fail", func() {
		ginkgo.It("produces exactly one terminal error event", func() {
			events := s.Fail("upstream broke")
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(KindError))
			Expect(events[0].Message).To(Equal("upstream broke"))
			Expect(s.Reason()).To(Equal("error"))

			Expect(s.Fail("again")).To(BeEmpty())
		})

		ginkgo.It("does not override done", func() {
			_, err := s.Feed([]byte("data: [DONE]\n\n"))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Fail("too late")).To(BeEmpty())
			Expect(s.Reason()).To(Equal("done"))
		})
	})

	ginkgo.Describe("Cancel", func() {
		ginkgo.It("latches the cancelled state", func() {
			s.Cancel()
			Expect(s.Terminal()).To(BeTrue())
			Expect(s.Reason()).To(Equal("cancelled"))

			events, err := s.Feed([]byte(chunkFrame("ignored")))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
		})

		ginkgo.It("does not override an earlier terminal state", func() {
			s.Fail("broken")
			s.Cancel()
			Expect(s.Reason()).To(Equal("error"))
		})
	})

	ginkgo.Describe("Wire", func() {
		ginkgo.It("encodes chunk events as chunk JSON", func() {
			ev := Chunk("hi there").Wire()
			Expect(ev.Type).To(BeEmpty())
			Expect(ev.Data).To(MatchJSON(`{"chunk": "hi there"}`))
		})

		ginkgo.It("encodes done events with the done type and sentinel", func() {
			ev := Done().Wire()
			Expect(ev.Type).To(Equal("done"))
			Expect(ev.Data).To(Equal("[DONE]"))
		})

		ginkgo.It("encodes error events as error JSON", func() {
			ev := Error("it broke").Wire()
			Expect(ev.Data).To(MatchJSON(`{"error": "it broke"}`))
		})
	})
})
