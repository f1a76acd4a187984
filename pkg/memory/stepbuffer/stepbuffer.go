// Package stepbuffer implements Tier-1 conversational memory: a rolling
// window of verbatim turns per curriculum step, folded into a running
// summary once the window outgrows its token budget.
package stepbuffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/paideialabs/paideia/pkg/cache"
	"github.com/paideialabs/paideia/pkg/llm"
	"github.com/paideialabs/paideia/pkg/memory"
)

const (
	// KeyPrefix namespaces step buffer entries in the cache.
	KeyPrefix = "stepmem:"

	// DefaultTokenBudget is the window size that triggers summarization.
	DefaultTokenBudget = 2000

	// DefaultKeepRecent is how many verbatim turns survive a fold.
	DefaultKeepRecent = 4
)

// Config holds configuration for the step buffer.
type Config struct {
	// TokenBudget is the estimated-token ceiling for the verbatim window.
	// Defaults to DefaultTokenBudget if zero.
	TokenBudget int

	// KeepRecent is how many of the newest turns stay verbatim when the
	// rest are folded into the summary. Defaults to DefaultKeepRecent if
	// zero.
	KeepRecent int

	// TTL is the cache lifetime of a step's buffer, refreshed on every
	// access. Defaults to cache.TTLConversation if zero.
	TTL time.Duration

	// SummaryModel overrides the completer's default model for folds.
	SummaryModel string
}

// Buffer is the Tier-1 step memory manager. All methods are safe for
// concurrent use; writes to the same step are serialized.
type Buffer struct {
	cache     cache.Store
	completer llm.Completer
	config    Config
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewBuffer creates a step buffer over the given cache and completer.
func NewBuffer(store cache.Store, completer llm.Completer, config Config, logger *slog.Logger) *Buffer {
	if config.TokenBudget <= 0 {
		config.TokenBudget = DefaultTokenBudget
	}
	if config.KeepRecent <= 0 {
		config.KeepRecent = DefaultKeepRecent
	}
	if config.TTL <= 0 {
		config.TTL = cache.TTLConversation
	}

	return &Buffer{
		cache:     store,
		completer: completer,
		config:    config,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing writes for one step key.
func (b *Buffer) lockFor(key memory.StepKey) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key.String()
	l, ok := b.locks[k]
	if !ok {
		l = &sync.Mutex{}
		b.locks[k] = l
	}
	return l
}

// Load returns the step's buffered state. A missing or expired entry loads
// as the empty state, never an error. A successful load refreshes the
// entry's TTL.
func (b *Buffer) Load(ctx context.Context, key memory.StepKey) (*memory.StepMemoryState, error) {
	data, err := b.cache.Get(ctx, cacheKey(key))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return emptyState(key), nil
		}
		return nil, fmt.Errorf("loading step buffer: %w", err)
	}

	var state memory.StepMemoryState
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt entry reads as empty rather than wedging the step.
		b.logger.Warn("discarding corrupt step buffer entry",
			"step", key.String(),
			"error", err,
		)
		return emptyState(key), nil
	}
	state.Key = key

	// Sliding expiration: touching the buffer keeps it alive.
	state.LastAccessed = time.Now()
	if err := b.save(ctx, &state); err != nil {
		b.logger.Warn("refreshing step buffer ttl failed",
			"step", key.String(),
			"error", err,
		)
	}

	return &state, nil
}

// AppendTurn adds a turn to the step's window, folding the oldest turns
// into the rolling summary if the window exceeds the token budget. The
// updated state is returned.
func (b *Buffer) AppendTurn(ctx context.Context, key memory.StepKey, turn memory.ConversationTurn) (*memory.StepMemoryState, error) {
	lock := b.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	state, err := b.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	state.RecentTurns = append(state.RecentTurns, turn)

	if b.windowTokens(state) > b.config.TokenBudget && len(state.RecentTurns) > b.config.KeepRecent {
		b.fold(ctx, state)
	}

	state.LastAccessed = time.Now()
	if err := b.save(ctx, state); err != nil {
		return nil, fmt.Errorf("saving step buffer: %w", err)
	}

	return state, nil
}

// Clear removes the step's buffer entirely.
func (b *Buffer) Clear(ctx context.Context, key memory.StepKey) error {
	lock := b.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if err := b.cache.Delete(ctx, cacheKey(key)); err != nil {
		return fmt.Errorf("clearing step buffer: %w", err)
	}
	return nil
}

// ClearUser removes every step buffer belonging to the user.
func (b *Buffer) ClearUser(ctx context.Context, userID string) (int, error) {
	keys, err := b.cache.KeysByPrefix(ctx, KeyPrefix+userID+":")
	if err != nil {
		return 0, fmt.Errorf("listing step buffers: %w", err)
	}

	for _, key := range keys {
		if err := b.cache.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("clearing step buffer %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// windowTokens estimates the token footprint of the verbatim window plus
// the rolling summary.
func (b *Buffer) windowTokens(state *memory.StepMemoryState) int {
	total := memory.EstimateTokens(state.RollingSummary)
	for _, turn := range state.RecentTurns {
		total += memory.EstimateTurnTokens([]memory.ConversationTurn{turn})
	}
	return total
}

// fold summarizes everything but the newest KeepRecent turns into the
// rolling summary. On summarization failure the state is left untouched:
// verbatim turns are never dropped without being captured in the summary.
func (b *Buffer) fold(ctx context.Context, state *memory.StepMemoryState) {
	keep := b.config.KeepRecent
	folded := state.RecentTurns[:len(state.RecentTurns)-keep]
	remaining := state.RecentTurns[len(state.RecentTurns)-keep:]

	summary, err := b.summarize(ctx, state.RollingSummary, folded)
	if err != nil {
		b.logger.Warn("summarization failed, keeping verbatim turns",
			"step", state.Key.String(),
			"turns", len(state.RecentTurns),
			"error", err,
		)
		return
	}

	state.RollingSummary = summary
	state.RecentTurns = append([]memory.ConversationTurn(nil), remaining...)

	b.logger.Debug("folded step buffer",
		"step", state.Key.String(),
		"folded_turns", len(folded),
		"kept_turns", len(remaining),
	)
}

// summarize asks the completer to merge the prior summary and the folded
// turns into one updated summary.
func (b *Buffer) summarize(ctx context.Context, priorSummary string, turns []memory.ConversationTurn) (string, error) {
	var transcript strings.Builder
	for _, turn := range turns {
		speaker := string(turn.Role)
		if turn.Role == memory.RoleAgent && turn.PersonaID != "" {
			speaker = turn.PersonaID
		}
		fmt.Fprintf(&transcript, "%s: %s\n", speaker, turn.Content)
	}

	var prompt strings.Builder
	prompt.WriteString("Summarize this tutoring conversation segment. Preserve what the learner was working on, what they struggled with, and any conclusions reached. Be concise.\n\n")
	if priorSummary != "" {
		prompt.WriteString("Summary of the conversation so far:\n")
		prompt.WriteString(priorSummary)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("New conversation segment:\n")
	prompt.WriteString(transcript.String())
	prompt.WriteString("\nRespond with the updated summary only.")

	resp, err := b.completer.Complete(ctx, &llm.ChatRequest{
		Model:    b.config.SummaryModel,
		Messages: []llm.Message{llm.NewTextMessage("user", prompt.String())},
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Message.GetText())
	if summary == "" {
		return "", llm.ErrEmptyResponse
	}
	return summary, nil
}

func (b *Buffer) save(ctx context.Context, state *memory.StepMemoryState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling step buffer: %w", err)
	}
	return b.cache.Set(ctx, cacheKey(state.Key), data, b.config.TTL)
}

func cacheKey(key memory.StepKey) string {
	return KeyPrefix + key.String()
}

func emptyState(key memory.StepKey) *memory.StepMemoryState {
	return &memory.StepMemoryState{Key: key}
}
