package inventory

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestInventory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Inventory Suite")
}

var _ = Describe("ApplyCompletion", func() {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	It("should decrement stock and floor at zero", func() {
		stock := map[string]int{"P1": 8, "P2": 2}
		consumptions := []Consumption{{PartID: "P1", Quantity: 5}, {PartID: "P2", Quantity: 4}}

		updates, skipped := ApplyCompletion(consumptions, stock, now)

		Expect(skipped).To(BeEmpty())
		Expect(updates).To(Equal([]PartUpdate{
			{PartID: "P1", PreviousStock: 8, NewStock: 3, UpdatedAt: now},
			{PartID: "P2", PreviousStock: 2, NewStock: 0, UpdatedAt: now},
		}))
	})

	It("should skip unknown parts", func() {
		updates, skipped := ApplyCompletion([]Consumption{{PartID: "ghost", Quantity: 1}, {PartID: "P1", Quantity: 1}}, map[string]int{"P1": 1}, now)

		Expect(skipped).To(Equal([]string{"ghost"}))
		Expect(updates).To(HaveLen(1))
		Expect(updates[0].NewStock).To(Equal(0))
	})

	It("should accumulate repeated lines against running stock", func() {
		updates, _ := ApplyCompletion([]Consumption{{PartID: "P1", Quantity: 3}, {PartID: "P1", Quantity: 4}}, map[string]int{"P1": 10}, now)

		Expect(updates).To(HaveLen(1))
		Expect(updates[0].PreviousStock).To(Equal(10))
		Expect(updates[0].NewStock).To(Equal(3))
	})

	It("should not mutate the input stock map", func() {
		stock := map[string]int{"P1": 5}
		ApplyCompletion([]Consumption{{PartID: "P1", Quantity: 5}}, stock, now)
		Expect(stock["P1"]).To(Equal(5))
	})

	It("should return nothing for no consumptions", func() {
		updates, skipped := ApplyCompletion(nil, map[string]int{"P1": 5}, now)
		Expect(updates).To(BeEmpty())
		Expect(skipped).To(BeEmpty())
	})

	DescribeTable("Decrement never goes negative",
		func(stock, quantity, expected int) {
			Expect(Decrement(stock, quantity)).To(Equal(expected))
		},
		Entry("partial", 8, 5, 3),
		Entry("exact", 5, 5, 0),
		Entry("overdraw", 2, 4, 0),
		Entry("from zero", 0, 1, 0),
		Entry("zero quantity", 7, 0, 7),
		Entry("negative quantity", 7, -3, 7),
	)
})

var _ = Describe("Merge", func() {
	It("should sum duplicate lines in first-seen order", func() {
		merged := Merge([]Consumption{{PartID: "B", Quantity: 1}, {PartID: "A", Quantity: 2}, {PartID: "B", Quantity: 3}})
		Expect(merged).To(Equal([]Consumption{{PartID: "B", Quantity: 4}, {PartID: "A", Quantity: 2}}))
		Expect(PartIDs(merged)).To(Equal([]string{"B", "A"}))
	})
})

var _ = Describe("IsLow", func() {
	It("should flag stock at or below the threshold", func() {
		Expect(IsLow(10, 10)).To(BeTrue())
		Expect(IsLow(11, 10)).To(BeFalse())
		Expect(IsLow(0, 0)).To(BeFalse())
	})
})
