package events

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decode", func() {
	It("should build a typed low stock event", func() {
		e, err := Decode(EventTypePartLowStock, []byte(`{"part_id":"P004","part_name":"Hydraulic Fluid (5L)","stock":3,"threshold":20}`))
		Expect(err).ToNot(HaveOccurred())

		low, ok := e.(*PartLowStockEvent)
		Expect(ok).To(BeTrue())
		Expect(low.Stock).To(Equal(3))
		Expect(low.EventID()).ToNot(BeEmpty())
		Expect(low.Payload()).To(HaveKeyWithValue("part_id", "P004"))
	})

	It("should keep unknown types as generic events", func() {
		e, err := Decode("ops.ping", []byte(`{"message":"hello"}`))
		Expect(err).ToNot(HaveOccurred())
		Expect(e.EventType()).To(Equal("ops.ping"))
		Expect(e.Payload()).To(HaveKeyWithValue("message", "hello"))
	})

	It("should accept an empty payload", func() {
		e, err := Decode(EventTypeTaskAssigned, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(e.EventType()).To(Equal(EventTypeTaskAssigned))
	})

	It("should reject malformed JSON", func() {
		_, err := Decode(EventTypeTaskCompleted, []byte(`{`))
		Expect(err).To(MatchError(ContainSubstring("decode task.completed payload")))
	})
})
