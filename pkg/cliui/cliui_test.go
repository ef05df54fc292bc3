package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docq/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("returns the error from fn and prints the message", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			err := cliui.Step(&buf, "Loading documents", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("Loading documents"))
			Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
		})

		It("marks success", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "ok", func() error { return nil })).To(Succeed())
			Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
		})
	})

	Describe("FormatDuration", func() {
		It("formats sub-second durations in milliseconds", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("formats longer durations in seconds", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Table", func() {
		It("prints every row", func() {
			var buf bytes.Buffer
			cliui.Table(&buf, [][2]string{{"collection", "addresses"}, {"count", "4"}})
			Expect(buf.String()).To(ContainSubstring("addresses"))
			Expect(buf.String()).To(ContainSubstring("count"))
		})
	})
})
