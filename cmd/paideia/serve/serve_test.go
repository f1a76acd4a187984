package servecmder_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/paideialabs/paideia/cmd/paideia/serve"
)

func TestServeCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Serve Command Suite")
}

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers the listen flag with the config default", func() {
		cmd := servecmder.NewServeCmd()
		flag := cmd.Flags().Lookup("listen")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("l"))
		Expect(flag.DefValue).To(Equal(":8080"))
	})

	It("registers completion flags with config defaults", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("provider").DefValue).To(Equal("ollama"))
		Expect(cmd.Flags().Lookup("upstream").DefValue).To(Equal("http://localhost:11434"))
		Expect(cmd.Flags().Lookup("model").DefValue).To(Equal("llama3.1"))
	})

	It("registers memory tuning flags with config defaults", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("token-budget").DefValue).To(Equal("2000"))
		Expect(cmd.Flags().Lookup("keep-recent").DefValue).To(Equal("4"))
		Expect(cmd.Flags().Lookup("char-budget").DefValue).To(Equal("8000"))
	})

	It("registers storage flags", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("cache").DefValue).To(Equal("badger"))
		Expect(cmd.Flags().Lookup("docstore").DefValue).To(Equal("sqlite"))
		Expect(cmd.Flags().Lookup("vector-store").DefValue).To(Equal("sqlitevec"))
		Expect(cmd.Flags().Lookup("sqlite")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("postgres")).NotTo(BeNil())
	})

	It("registers event stream flags with defaults", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("events").DefValue).To(Equal("none"))
		Expect(cmd.Flags().Lookup("events-topic").DefValue).To(Equal("paideia.memory.events"))
		Expect(cmd.Flags().Lookup("events-brokers")).NotTo(BeNil())
	})

	It("registers embedding flags with defaults", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("embedding-provider").DefValue).To(Equal("ollama"))
		Expect(cmd.Flags().Lookup("embedding-model").DefValue).To(Equal("nomic-embed-text"))
		Expect(cmd.Flags().Lookup("embedding-dimensions").DefValue).To(Equal("768"))
	})
})
