package utils

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Retry", func() {
	It("returns nil on first success", func() {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("retries until success", func() {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(3))
	})

	It("returns the last error after exhausting attempts", func() {
		calls := 0
		last := errors.New("still broken")
		err := Retry(context.Background(), 2, time.Millisecond, func() error {
			calls++
			return last
		})
		Expect(err).To(MatchError(last))
		Expect(calls).To(Equal(2))
	})

	It("stops waiting when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Retry(ctx, 3, time.Minute, func() error {
			return errors.New("transient")
		})
		Expect(err).To(MatchError(context.Canceled))
	})
})
