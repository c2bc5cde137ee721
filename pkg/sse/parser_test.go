package sse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	var p *Parser

	BeforeEach(func() {
		p = NewParser(0)
	})

	Describe("Feed", func() {
		It("parses a single complete event", func() {
			events, err := p.Feed([]byte("data: hello world\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("hello world"))
			Expect(events[0].Type).To(BeEmpty())
		})

		It("parses multiple events from one chunk", func() {
			events, err := p.Feed([]byte("data: first\n\ndata: second\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].Data).To(Equal("first"))
			Expect(events[1].Data).To(Equal("second"))
		})

		It("holds back an incomplete frame until its blank line arrives", func() {
			events, err := p.Feed([]byte("data: par"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
			Expect(p.Buffered()).To(BeNumerically(">", 0))

			events, err = p.Feed([]byte("tial\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("partial"))
			Expect(p.Buffered()).To(BeZero())
		})

		It("reassembles a frame split at every possible byte offset", func() {
			wire := []byte("data: {\"delta\":\"chunked\"}\n\n")
			for split := 1; split < len(wire); split++ {
				p := NewParser(0)
				events, err := p.Feed(wire[:split])
				Expect(err).NotTo(HaveOccurred())

				rest, err := p.Feed(wire[split:])
				Expect(err).NotTo(HaveOccurred())

				all := append(events, rest...)
				Expect(all).To(HaveLen(1), "split at %d", split)
				Expect(all[0].Data).To(Equal(`{"delta":"chunked"}`))
			}
		})

		It("decodes a multi-byte rune whose bytes straddle a chunk boundary", func() {
			// "héllo" with the é (0xC3 0xA9) split across two feeds.
			first := []byte{'d', 'a', 't', 'a', ':', ' ', 'h', 0xC3}
			second := []byte{0xA9, 'l', 'l', 'o', '\n', '\n'}

			events, err := p.Feed(first)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())

			events, err = p.Feed(second)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("héllo"))
		})

		It("parses event type and id fields", func() {
			events, err := p.Feed([]byte("event: done\nid: 7\ndata: [DONE]\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal("done"))
			Expect(events[0].ID).To(Equal("7"))
			Expect(events[0].Data).To(Equal("[DONE]"))
		})

		It("joins multiple data lines with a newline", func() {
			events, err := p.Feed([]byte("data: line one\ndata: line two\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("line one\nline two"))
		})

		It("handles CRLF frame boundaries", func() {
			events, err := p.Feed([]byte("data: windows\r\n\r\ndata: next\r\n\r\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].Data).To(Equal("windows"))
			Expect(events[1].Data).To(Equal("next"))
		})

		It("splits mixed LF and CRLF boundaries at the earliest one", func() {
			events, err := p.Feed([]byte("data: a\n\ndata: b\r\n\r\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].Data).To(Equal("a"))
			Expect(events[1].Data).To(Equal("b"))
		})

		It("does not swallow a CRLF-terminated sentinel behind an LF frame", func() {
			events, err := p.Feed([]byte("data: chunk\n\ndata: [DONE]\r\n\r\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].Data).To(Equal("chunk"))
			Expect(events[1].Data).To(Equal("[DONE]"))
		})

		It("discards whitespace-only frames silently", func() {
			events, err := p.Feed([]byte("\n\n  \n\ndata: real\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("real"))
		})

		It("skips comment lines", func() {
			events, err := p.Feed([]byte(": keep-alive\n\ndata: after\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("after"))
		})

		It("errors once the unresolved tail exceeds the ceiling", func() {
			p = NewParser(16)
			_, err := p.Feed([]byte("data: this line never terminates"))
			Expect(err).To(MatchError(ContainSubstring("buffer limit")))
		})

		It("produces identical event sequences for identical byte sequences", func() {
			wire := []byte("data: a\n\nevent: done\ndata: [DONE]\n\ndata: late\n\n")

			run := func() []Event {
				p := NewParser(0)
				var all []Event
				for _, b := range wire {
					events, err := p.Feed([]byte{b})
					Expect(err).NotTo(HaveOccurred())
					all = append(all, events...)
				}
				return all
			}

			Expect(run()).To(Equal(run()))
		})
	})

	Describe("Flush", func() {
		It("yields a trailing frame that ended without a blank line", func() {
			events, err := p.Feed([]byte("data: truncated"))
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())

			ev, ok := p.Flush()
			Expect(ok).To(BeTrue())
			Expect(ev.Data).To(Equal("truncated"))
		})

		It("reports nothing when the buffer is empty", func() {
			_, ok := p.Flush()
			Expect(ok).To(BeFalse())
		})

		It("reports nothing for a whitespace-only tail", func() {
			_, err := p.Feed([]byte("\n \n"))
			Expect(err).NotTo(HaveOccurred())

			_, ok := p.Flush()
			Expect(ok).To(BeFalse())
		})
	})
})
