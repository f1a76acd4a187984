package persona_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paideialabs/paideia/pkg/persona"
)

func TestPersona(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Persona Suite")
}

var _ = Describe("Roster", func() {
	It("provides a built-in default roster with socrates as fallback", func() {
		roster := persona.DefaultRoster()
		Expect(roster.Default().ID).To(Equal("socrates"))
		Expect(len(roster.All())).To(BeNumerically(">=", 2))
	})

	It("looks up personas case-insensitively", func() {
		roster := persona.DefaultRoster()

		p, ok := roster.Get("SOCRATES")
		Expect(ok).To(BeTrue())
		Expect(p.ID).To(Equal("socrates"))

		p, ok = roster.Get("  Ada ")
		Expect(ok).To(BeTrue())
		Expect(p.ID).To(Equal("ada"))
	})

	It("reports unknown personas", func() {
		_, ok := persona.DefaultRoster().Get("archimedes")
		Expect(ok).To(BeFalse())
	})

	It("rejects a default that is not in the roster", func() {
		_, err := persona.NewRoster("missing", []persona.Persona{{ID: "only"}})
		Expect(err).To(HaveOccurred())
	})

	It("rejects duplicate persona ids", func() {
		_, err := persona.NewRoster("a", []persona.Persona{{ID: "a"}, {ID: "A"}})
		Expect(err).To(HaveOccurred())
	})

	Describe("LoadRoster", func() {
		It("loads personas from a TOML file", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "personas.toml")
			content := `
default = "mentor"

[[personas]]
id = "mentor"
name = "Mentor"
description = "General guidance"
system_prompt = "You are a supportive mentor."

[[personas]]
id = "reviewer"
name = "Reviewer"
description = "Code review"
system_prompt = "You review code rigorously."
`
			Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

			roster, err := persona.LoadRoster(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(roster.Default().ID).To(Equal("mentor"))

			p, ok := roster.Get("reviewer")
			Expect(ok).To(BeTrue())
			Expect(p.Name).To(Equal("Reviewer"))
		})

		It("falls back to the first persona when no default is named", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "personas.toml")
			content := `
[[personas]]
id = "first"
system_prompt = "p"
`
			Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

			roster, err := persona.LoadRoster(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(roster.Default().ID).To(Equal("first"))
		})

		It("errors on a missing file", func() {
			_, err := persona.LoadRoster("/nonexistent/personas.toml")
			Expect(err).To(HaveOccurred())
		})
	})
})
