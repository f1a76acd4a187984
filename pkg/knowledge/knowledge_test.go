package knowledge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paideialabs/paideia/pkg/knowledge"
	"github.com/paideialabs/paideia/pkg/logger"
)

func TestKnowledge(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Knowledge Suite")
}

var _ = Describe("Static", func() {
	It("returns the fixed text", func() {
		r := knowledge.NewStatic("flask uses the application factory pattern")
		text, err := r.Retrieve(context.Background(), "anything", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("flask uses the application factory pattern"))
	})

	It("bounds the text to maxChars", func() {
		r := knowledge.NewStatic("0123456789")
		text, err := r.Retrieve(context.Background(), "anything", 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("0123"))
	})
})

var _ = Describe("DirRetriever", func() {
	var (
		dir       string
		retriever *knowledge.DirRetriever
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		Expect(os.WriteFile(filepath.Join(dir, "recursion.md"),
			[]byte("# Recursion\nEvery recursive function needs a base case."), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "slices.md"),
			[]byte("# Slices\nA slice is a window over an underlying array."), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"),
			[]byte("not markdown, should be ignored"), 0o644)).To(Succeed())

		var err error
		retriever, err = knowledge.NewDirRetriever(dir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(retriever.Close()).To(Succeed())
	})

	It("returns documents matching the query terms", func() {
		text, err := retriever.Retrieve(context.Background(), "why does my recursive function loop forever", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("base case"))
		Expect(text).NotTo(ContainSubstring("underlying array"))
	})

	It("returns empty for a query with no overlap", func() {
		text, err := retriever.Retrieve(context.Background(), "quaternion interpolation", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(BeEmpty())
	})

	It("respects the character budget by dropping whole documents", func() {
		text, err := retriever.Retrieve(context.Background(), "recursive base case slice array", 30)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(text)).To(BeNumerically("<=", 30))
	})

	It("ignores non-markdown files", func() {
		text, err := retriever.Retrieve(context.Background(), "markdown ignored", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).NotTo(ContainSubstring("not markdown"))
	})

	It("picks up new files without a restart", func() {
		Expect(os.WriteFile(filepath.Join(dir, "maps.md"),
			[]byte("# Maps\nIterating a map in Go visits keys in random order."), 0o644)).To(Succeed())

		Eventually(func() string {
			text, _ := retriever.Retrieve(context.Background(), "map iteration order", 0)
			return text
		}).Should(ContainSubstring("random order"))
	})

	It("errors on a missing directory", func() {
		_, err := knowledge.NewDirRetriever(filepath.Join(dir, "missing"), logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})
