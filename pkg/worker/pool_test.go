package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/pkg/docstore/inmemory"
	"github.com/paideialabs/paideia/pkg/eventstream"
	"github.com/paideialabs/paideia/pkg/memory"
)

// captureRecorder records RecordInteraction calls for assertions.
type captureRecorder struct {
	mu    sync.Mutex
	calls []memory.StepKey
	fail  bool
}

func (r *captureRecorder) RecordInteraction(_ context.Context, key memory.StepKey, _, _ memory.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return context.DeadlineExceeded
	}
	r.calls = append(r.calls, key)
	return nil
}

func (r *captureRecorder) Calls() []memory.StepKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]memory.StepKey(nil), r.calls...)
}

// capturePublisher records published interaction events.
type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.InteractionRecordedEvent
}

func (p *capturePublisher) PublishInteraction(_ context.Context, event *eventstream.InteractionRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) PublishRefresh(context.Context, *eventstream.MemoryRefreshedEvent) error {
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) Events() []*eventstream.InteractionRecordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.InteractionRecordedEvent(nil), p.events...)
}

// gatedStore blocks AppendTurn until its gate closes, so tests can hold a
// worker mid-job.
type gatedStore struct {
	*inmemory.Store
	gate    chan struct{}
	started atomic.Int32
}

func (s *gatedStore) AppendTurn(ctx context.Context, key memory.StepKey, turn memory.ConversationTurn) error {
	s.started.Add(1)
	<-s.gate
	return s.Store.AppendTurn(ctx, key, turn)
}

func (s *gatedStore) Started() int32 {
	return s.started.Load()
}

func testJob(key memory.StepKey) Job {
	now := time.Now()
	return Job{
		Key:       key,
		PersonaID: "socrates",
		UserTurn: memory.ConversationTurn{
			ID: "turn-u", Role: memory.RoleUser, Content: "what is a pointer?",
		},
		AgentTurn: memory.ConversationTurn{
			ID: "turn-a", Role: memory.RoleAgent, PersonaID: "socrates", Content: "what does a variable hold?",
		},
		StartedAt:   now.Add(-time.Second),
		CompletedAt: now,
		Model:       "test-model",
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		ctx       context.Context
		store     *inmemory.Store
		recorder  *captureRecorder
		publisher *capturePublisher
		key       memory.StepKey
	)

	newTestPool := func() *Pool {
		wp, err := NewPool(&Config{
			Store:     store,
			Recorder:  recorder,
			Publisher: publisher,
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return wp
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
		recorder = &captureRecorder{}
		publisher = &capturePublisher{}
		key = memory.StepKey{UserID: "u1", TaskID: "t1", SubtaskID: "s1", StepID: "st1"}
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp := newTestPool()
			Expect(wp.Enqueue(testJob(key))).To(BeTrue())
			wp.Close()
		})

		It("drops jobs once the queue is full", func() {
			// A gated store holds the single worker mid-job so the queue
			// fills deterministically.
			gated := &gatedStore{Store: store, gate: make(chan struct{})}
			wp, err := NewPool(&Config{
				Store:      gated,
				NumWorkers: 1,
				QueueSize:  1,
				Logger:     zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(testJob(key))).To(BeTrue())

			// Wait for the worker to pull the first job off the queue
			Eventually(gated.Started).Should(BeNumerically(">=", 1))

			Expect(wp.Enqueue(testJob(key))).To(BeTrue())
			Expect(wp.Enqueue(testJob(key))).To(BeFalse())

			close(gated.gate)
			wp.Close()
		})
	})

	Describe("processing", func() {
		It("persists both turns of the exchange in order", func() {
			wp := newTestPool()
			wp.Enqueue(testJob(key))
			wp.Close()

			turns, err := store.TurnsByStep(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].Role).To(Equal(memory.RoleUser))
			Expect(turns[1].Role).To(Equal(memory.RoleAgent))
			Expect(turns[1].PersonaID).To(Equal("socrates"))
		})

		It("indexes the exchange into semantic memory", func() {
			wp := newTestPool()
			wp.Enqueue(testJob(key))
			wp.Close()

			Expect(recorder.Calls()).To(Equal([]memory.StepKey{key}))
		})

		It("publishes an interaction event with timing metadata", func() {
			wp := newTestPool()
			wp.Enqueue(testJob(key))
			wp.Close()

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			event := events[0]
			Expect(event.EventType).To(Equal(eventstream.EventTypeInteractionRecorded))
			Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(event.EventID).NotTo(BeEmpty())
			Expect(event.Key).To(Equal(key))
			Expect(event.UserTurnID).To(Equal("turn-u"))
			Expect(event.AgentTurnID).To(Equal("turn-a"))
			Expect(event.Meta.DurationMs).To(BeNumerically(">=", 1000))
		})

		It("still persists turns when the recorder fails", func() {
			recorder.fail = true
			wp := newTestPool()
			wp.Enqueue(testJob(key))
			wp.Close()

			turns, err := store.TurnsByStep(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))

			// The publisher still hears about the exchange
			Expect(publisher.Events()).To(HaveLen(1))
		})

		It("works without a recorder or publisher configured", func() {
			wp, err := NewPool(&Config{
				Store:  store,
				Logger: zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(testJob(key))
			wp.Close()

			turns, err := store.TurnsByStep(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
		})

		It("drains all enqueued jobs on Close", func() {
			wp := newTestPool()
			for i := range 20 {
				k := key
				k.StepID = k.StepID + string(rune('a'+i))
				Expect(wp.Enqueue(testJob(k))).To(BeTrue())
			}
			wp.Close()

			records, err := store.TurnsByUser(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(40))
		})
	})
})
