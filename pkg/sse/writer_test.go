package sse

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Writer", func() {
	var buf *bytes.Buffer
	var w *Writer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		w = NewWriter(buf)
	})

	It("writes a bare data event", func() {
		Expect(w.WriteEvent(Event{Data: `{"chunk": "hi"}`})).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"chunk\": \"hi\"}\n\n"))
	})

	It("writes a typed event with its data line", func() {
		Expect(w.WriteEvent(Event{Type: "done", Data: "[DONE]"})).To(Succeed())
		Expect(buf.String()).To(Equal("event: done\ndata: [DONE]\n\n"))
	})

	It("splits multi-line data across data fields", func() {
		Expect(w.WriteEvent(Event{Data: "one\ntwo"})).To(Succeed())
		Expect(buf.String()).To(Equal("data: one\ndata: two\n\n"))
	})

	It("round-trips through the parser", func() {
		Expect(w.WriteEvent(Event{Type: "done", ID: "3", Data: "[DONE]"})).To(Succeed())

		p := NewParser(0)
		events, err := p.Feed(buf.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0]).To(Equal(Event{Type: "done", ID: "3", Data: "[DONE]"}))
	})
})
