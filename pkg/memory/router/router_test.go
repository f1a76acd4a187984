package router_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paideialabs/paideia/pkg/logger"
	"github.com/paideialabs/paideia/pkg/memory/router"
	"github.com/paideialabs/paideia/pkg/persona"
	testutils "github.com/paideialabs/paideia/pkg/utils/test"
)

func TestRouter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Persona Router Suite")
}

type stubTaskCatalog struct {
	descriptions map[string]string
	err          error
	lookups      []string
}

func (s *stubTaskCatalog) DescribeTask(_ context.Context, taskID string) (string, error) {
	s.lookups = append(s.lookups, taskID)
	if s.err != nil {
		return "", s.err
	}
	return s.descriptions[taskID], nil
}

var _ = Describe("Router", func() {
	var (
		ctx       context.Context
		roster    *persona.Roster
		completer *testutils.MockCompleter
		catalog   *stubTaskCatalog
	)

	BeforeEach(func() {
		ctx = context.Background()
		roster = persona.DefaultRoster()
		completer = testutils.NewMockCompleter()
		catalog = &stubTaskCatalog{descriptions: map[string]string{
			"algebra": "Solving quadratic equations by factoring",
		}}
	})

	newRouter := func() *router.Router {
		return router.NewRouter(roster, completer, catalog, router.Config{Model: "test-model"}, logger.Nop())
	}

	It("honors a valid explicit preference without classifying", func() {
		p := newRouter().Route(ctx, "review my code", "algebra", "ada")
		Expect(p.ID).To(Equal("ada"))
		Expect(completer.Requests).To(BeEmpty())
		Expect(catalog.lookups).To(BeEmpty())
	})

	It("matches preferences case-insensitively", func() {
		p := newRouter().Route(ctx, "review my code", "algebra", "  FEYNMAN ")
		Expect(p.ID).To(Equal("feynman"))
		Expect(completer.Requests).To(BeEmpty())
	})

	It("classifies when the preference is unknown", func() {
		completer.Responses = []string{"ada"}
		p := newRouter().Route(ctx, "why is my slice nil", "algebra", "archimedes")
		Expect(p.ID).To(Equal("ada"))
		Expect(completer.Requests).To(HaveLen(1))
	})

	It("sends every roster description to the classifier", func() {
		completer.Responses = []string{"socrates"}
		newRouter().Route(ctx, "help me debug", "", "")

		Expect(completer.Requests).To(HaveLen(1))
		req := completer.Requests[0]
		Expect(req.Model).To(Equal("test-model"))
		Expect(req.System).To(ContainSubstring("exactly one tutor id"))

		prompt := req.Messages[0].GetText()
		for _, p := range roster.All() {
			Expect(prompt).To(ContainSubstring(p.ID))
			Expect(prompt).To(ContainSubstring(p.Description))
		}
		Expect(prompt).To(ContainSubstring("help me debug"))
	})

	It("sends the task description to the classifier", func() {
		completer.Responses = []string{"socrates"}
		newRouter().Route(ctx, "help me debug", "algebra", "")

		Expect(catalog.lookups).To(Equal([]string{"algebra"}))
		Expect(completer.Requests).To(HaveLen(1))
		prompt := completer.Requests[0].Messages[0].GetText()
		Expect(prompt).To(ContainSubstring("Solving quadratic equations by factoring"))
	})

	It("omits the task section when the catalog has no description", func() {
		completer.Responses = []string{"socrates"}
		newRouter().Route(ctx, "help me debug", "geometry", "")

		prompt := completer.Requests[0].Messages[0].GetText()
		Expect(prompt).NotTo(ContainSubstring("Task the learner is working on"))
	})

	It("classifies without the description when the catalog fails", func() {
		catalog.err = errors.New("catalog unreachable")
		completer.Responses = []string{"ada"}

		p := newRouter().Route(ctx, "help me debug", "algebra", "")
		Expect(p.ID).To(Equal("ada"))
		prompt := completer.Requests[0].Messages[0].GetText()
		Expect(prompt).NotTo(ContainSubstring("Task the learner is working on"))
	})

	It("routes without a catalog", func() {
		completer.Responses = []string{"ada"}
		r := router.NewRouter(roster, completer, nil, router.Config{}, logger.Nop())

		p := r.Route(ctx, "help me debug", "algebra", "")
		Expect(p.ID).To(Equal("ada"))
	})

	It("parses a classifier reply case-insensitively", func() {
		completer.Responses = []string{"  ADA \n"}
		p := newRouter().Route(ctx, "fix this", "", "")
		Expect(p.ID).To(Equal("ada"))
	})

	It("finds the persona inside a chatty reply", func() {
		completer.Responses = []string{"I would pick feynman for this one."}
		p := newRouter().Route(ctx, "what even is a pointer", "", "")
		Expect(p.ID).To(Equal("feynman"))
	})

	It("falls back to the default on gibberish", func() {
		completer.Responses = []string{"hmm, none of these apply"}
		p := newRouter().Route(ctx, "hello", "", "")
		Expect(p.ID).To(Equal(roster.Default().ID))
	})

	It("falls back to the default when classification fails", func() {
		completer.FailAll = true
		p := newRouter().Route(ctx, "hello", "", "")
		Expect(p.ID).To(Equal(roster.Default().ID))
	})

	It("routes an empty message to the default without classifying", func() {
		p := newRouter().Route(ctx, "   ", "", "")
		Expect(p.ID).To(Equal(roster.Default().ID))
		Expect(completer.Requests).To(BeEmpty())
		Expect(catalog.lookups).To(BeEmpty())
	})
})
