package semantic

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("chunk", func() {
	It("returns nothing for empty text", func() {
		Expect(chunk("", 500, 50)).To(BeEmpty())
	})

	It("returns short text as a single chunk", func() {
		chunks := chunk("short text", 500, 50)
		Expect(chunks).To(Equal([]string{"short text"}))
	})

	It("returns text exactly at the size as a single chunk", func() {
		text := strings.Repeat("a", 500)
		Expect(chunk(text, 500, 50)).To(HaveLen(1))
	})

	It("splits long text into overlapping windows", func() {
		text := strings.Repeat("a", 450) + strings.Repeat("b", 450)
		chunks := chunk(text, 500, 50)
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0]).To(HaveLen(500))

		// The second window starts 50 runes before the first ends
		Expect(chunks[0][450:]).To(Equal(chunks[1][:50]))
	})

	It("keeps every chunk within the size limit", func() {
		text := strings.Repeat("x", 2350)
		for _, c := range chunk(text, 500, 50) {
			Expect(len([]rune(c))).To(BeNumerically("<=", 500))
		}
	})

	It("covers the whole text", func() {
		text := strings.Repeat("abcdefghij", 200)
		chunks := chunk(text, 500, 50)

		var rebuilt strings.Builder
		rebuilt.WriteString(chunks[0])
		for _, c := range chunks[1:] {
			rebuilt.WriteString(c[50:])
		}
		Expect(rebuilt.String()).To(Equal(text))
	})

	It("counts runes, not bytes", func() {
		text := strings.Repeat("日", 600)
		chunks := chunk(text, 500, 50)
		Expect(chunks).To(HaveLen(2))
		Expect([]rune(chunks[0])).To(HaveLen(500))
	})
})
