package scan

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Filter", func() {
	var records []ScanRecord

	BeforeEach(func() {
		records = []ScanRecord{
			{ID: "newest", Title: "Invoice", OCRText: "total due"},
			{ID: "middle", Title: "Lease Agreement", OCRText: "monthly rent"},
			{ID: "oldest", Title: "Warranty Card", OCRText: "TOTAL coverage"},
		}
	})

	When("the query is empty", func() {
		It("should match every record", func() {
			Expect(Filter(records, "")).To(HaveLen(3))
		})

		It("should also match on whitespace-only queries", func() {
			Expect(Filter(records, "   ")).To(HaveLen(3))
		})
	})

	When("the query matches a title", func() {
		It("should match case-insensitively", func() {
			matched := Filter(records, "INVOICE")
			Expect(matched).To(HaveLen(1))
			Expect(matched[0].ID).To(Equal("newest"))
		})
	})

	When("the query matches OCR text", func() {
		It("should include records matched on either field", func() {
			matched := Filter(records, "total")
			Expect(matched).To(HaveLen(2))
		})
	})

	When("the query matches a substring", func() {
		It("should match partial words", func() {
			matched := Filter(records, "agree")
			Expect(matched).To(HaveLen(1))
			Expect(matched[0].ID).To(Equal("middle"))
		})
	})

	When("nothing matches", func() {
		It("should return an empty result", func() {
			Expect(Filter(records, "zzz")).To(BeEmpty())
		})
	})

	It("should preserve store ordering", func() {
		matched := Filter(records, "total")
		Expect(matched[0].ID).To(Equal("newest"))
		Expect(matched[1].ID).To(Equal("oldest"))
	})

	It("should not mutate the input", func() {
		Filter(records, "invoice")
		Expect(records).To(HaveLen(3))
		Expect(records[0].ID).To(Equal("newest"))
	})
})
