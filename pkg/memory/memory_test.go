package memory_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paideialabs/paideia/pkg/memory"
)

func TestMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memory Types Suite")
}

var _ = Describe("StepKey", func() {
	key := memory.StepKey{
		UserID:    "alice",
		TaskID:    "algebra",
		SubtaskID: "quadratics",
		StepID:    "3",
	}

	It("renders the composite cache key", func() {
		Expect(key.String()).To(Equal("alice:algebra:quadratics:3"))
	})

	It("renders the document-store context identifier without the user", func() {
		Expect(key.ContextID()).To(Equal("algebra_quadratics_3"))
	})

	It("produces distinct keys for sibling steps", func() {
		sibling := key
		sibling.StepID = "4"
		Expect(sibling.String()).NotTo(Equal(key.String()))
		Expect(sibling.ContextID()).NotTo(Equal(key.ContextID()))
	})
})

var _ = Describe("StepMemoryState phase", func() {
	It("reports empty for the zero value", func() {
		state := &memory.StepMemoryState{}
		Expect(state.Phase()).To(Equal(memory.PhaseEmpty))
	})

	It("reports active once turns exist", func() {
		state := &memory.StepMemoryState{
			RecentTurns: []memory.ConversationTurn{
				{Role: memory.RoleUser, Content: "hello"},
			},
		}
		Expect(state.Phase()).To(Equal(memory.PhaseActive))
	})

	It("reports summarized once a rolling summary exists", func() {
		state := &memory.StepMemoryState{
			RollingSummary: "covered the discriminant",
			RecentTurns: []memory.ConversationTurn{
				{Role: memory.RoleAgent, Content: "recall the discriminant"},
			},
		}
		Expect(state.Phase()).To(Equal(memory.PhaseSummarized))
	})
})

var _ = Describe("EstimateTokens", func() {
	It("returns zero for the empty string", func() {
		Expect(memory.EstimateTokens("")).To(Equal(0))
	})

	It("rounds partial tokens up", func() {
		Expect(memory.EstimateTokens("abcde")).To(Equal(2))
	})

	It("scales with length", func() {
		Expect(memory.EstimateTokens("abcdefgh")).To(Equal(2))
		Expect(memory.EstimateTokens("abcdefghi")).To(Equal(3))
	})
})

var _ = Describe("EstimateTurnTokens", func() {
	It("adds per-turn overhead for role framing", func() {
		turns := []memory.ConversationTurn{
			{Role: memory.RoleUser, Content: "abcd"},
			{Role: memory.RoleAgent, Content: "efgh"},
		}
		// 1 token of content per turn plus 4 overhead each.
		Expect(memory.EstimateTurnTokens(turns)).To(Equal(10))
	})

	It("returns zero for no turns", func() {
		Expect(memory.EstimateTurnTokens(nil)).To(Equal(0))
	})
})
