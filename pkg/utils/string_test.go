package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate(`"Seattle"`, 10)).To(Equal(`"Seattle"`))
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		Expect(Truncate(`{"city":"Seattle"}`, 8)).To(Equal(`{"city":...`))
	})

	It("does not split multi-byte characters", func() {
		// "é" is two bytes; a cut at byte 2 would land inside it.
		Expect(Truncate("aébc", 2)).To(Equal("a..."))
	})
})
