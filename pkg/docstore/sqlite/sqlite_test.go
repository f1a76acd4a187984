package sqlite_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paideialabs/paideia/pkg/docstore"
	"github.com/paideialabs/paideia/pkg/docstore/sqlite"
	"github.com/paideialabs/paideia/pkg/memory"
)

func TestSQLiteDocstore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Docstore Suite")
}

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *sqlite.Store
		key   memory.StepKey
	)

	BeforeEach(func() {
		ctx = context.Background()
		key = memory.StepKey{UserID: "u1", TaskID: "t1", SubtaskID: "s1", StepID: "st1"}

		var err error
		store, err = sqlite.NewStore(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("turns", func() {
		It("appends and reads back turns in order", func() {
			first := memory.ConversationTurn{
				ID: "turn-1", Role: memory.RoleUser, Content: "what is a slice?",
				Timestamp: time.Now(),
			}
			second := memory.ConversationTurn{
				ID: "turn-2", Role: memory.RoleAgent, PersonaID: "socrates",
				Content: "what do you already know about arrays?", Timestamp: time.Now(),
			}

			Expect(store.AppendTurn(ctx, key, first)).To(Succeed())
			Expect(store.AppendTurn(ctx, key, second)).To(Succeed())

			turns, err := store.TurnsByStep(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].ID).To(Equal("turn-1"))
			Expect(turns[0].Role).To(Equal(memory.RoleUser))
			Expect(turns[1].ID).To(Equal("turn-2"))
			Expect(turns[1].PersonaID).To(Equal("socrates"))
		})

		It("scopes step reads to the exact step key", func() {
			other := key
			other.StepID = "st2"

			Expect(store.AppendTurn(ctx, key, memory.ConversationTurn{ID: "a", Role: memory.RoleUser, Content: "x"})).To(Succeed())
			Expect(store.AppendTurn(ctx, other, memory.ConversationTurn{ID: "b", Role: memory.RoleUser, Content: "y"})).To(Succeed())

			turns, err := store.TurnsByStep(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].ID).To(Equal("a"))
		})

		It("returns all turns for a user across steps", func() {
			other := key
			other.TaskID = "t2"

			Expect(store.AppendTurn(ctx, key, memory.ConversationTurn{ID: "a", Role: memory.RoleUser, Content: "x"})).To(Succeed())
			Expect(store.AppendTurn(ctx, other, memory.ConversationTurn{ID: "b", Role: memory.RoleUser, Content: "y"})).To(Succeed())

			records, err := store.TurnsByUser(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Key.TaskID).To(Equal("t1"))
			Expect(records[1].Key.TaskID).To(Equal("t2"))
		})
	})

	Describe("progress", func() {
		It("appends and reads back progress records", func() {
			rec := docstore.ProgressRecord{
				ID: "p1", Key: key, Submission: "implemented binary search", Status: "passed",
			}
			Expect(store.AppendProgress(ctx, rec)).To(Succeed())

			records, err := store.ProgressByUser(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Submission).To(Equal("implemented binary search"))
			Expect(records[0].Status).To(Equal("passed"))
			Expect(records[0].WrittenAt).NotTo(BeZero())
		})
	})

	Describe("insights", func() {
		It("appends and reads back insight notes", func() {
			rec := docstore.InsightRecord{
				ID: "i1", UserID: "u1", PersonaID: "socrates",
				Note: "prefers concrete examples over definitions",
			}
			Expect(store.AppendInsight(ctx, rec)).To(Succeed())

			records, err := store.InsightsByUser(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].PersonaID).To(Equal("socrates"))
			Expect(records[0].Note).To(ContainSubstring("concrete examples"))
		})
	})

	Describe("ModifiedSince", func() {
		It("reports false for a user with no records", func() {
			modified, err := store.ModifiedSince(ctx, "nobody", time.Now().Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(modified).To(BeFalse())
		})

		It("reports true after a write past the cutoff", func() {
			cutoff := time.Now().Add(-time.Minute)
			Expect(store.AppendTurn(ctx, key, memory.ConversationTurn{ID: "a", Role: memory.RoleUser, Content: "x"})).To(Succeed())

			modified, err := store.ModifiedSince(ctx, "u1", cutoff)
			Expect(err).NotTo(HaveOccurred())
			Expect(modified).To(BeTrue())
		})

		It("reports false when all writes predate the cutoff", func() {
			Expect(store.AppendTurn(ctx, key, memory.ConversationTurn{ID: "a", Role: memory.RoleUser, Content: "x"})).To(Succeed())

			modified, err := store.ModifiedSince(ctx, "u1", time.Now().Add(time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(modified).To(BeFalse())
		})

		It("sees writes from any record family", func() {
			cutoff := time.Now().Add(-time.Minute)
			Expect(store.AppendInsight(ctx, docstore.InsightRecord{
				ID: "i1", UserID: "u1", PersonaID: "socrates", Note: "n",
			})).To(Succeed())

			modified, err := store.ModifiedSince(ctx, "u1", cutoff)
			Expect(err).NotTo(HaveOccurred())
			Expect(modified).To(BeTrue())
		})
	})
})
