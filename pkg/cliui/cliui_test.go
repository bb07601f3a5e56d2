package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/cliui"
)

var _ = Describe("FormatDuration", func() {
	DescribeTable("formats",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("zero", time.Duration(0), "0ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)
})

var _ = Describe("Step", func() {
	It("returns the error from fn and marks the line", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "reconciling", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("reconciling"))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("marks success", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "done", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
	})
})
