// Package memory defines the shared types of the tiered conversational
// memory engine.
//
// Tier 1 (stepbuffer) owns the rolling window and summary of the current
// curriculum step's conversation. Tier 2 (semantic) owns embedding freshness
// over a learner's full history and performs similarity retrieval. The
// assembler merges both tiers with domain knowledge into one bounded block,
// and the router picks the persona that should answer.
package memory

import (
	"fmt"
	"time"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ContentType classifies a memory chunk by the kind of artifact it was
// built from.
type ContentType string

const (
	ContentProgress     ContentType = "progress"
	ContentConversation ContentType = "conversation"
	ContentInsight      ContentType = "insight"
)

// ConversationTurn is a single message in a step conversation.
// Turns are immutable once written and append-only per step key.
type ConversationTurn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	PersonaID string    `json:"persona_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StepKey scopes Tier-1 memory to a single curriculum step of a single
// learner.
type StepKey struct {
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	SubtaskID string `json:"subtask_id"`
	StepID    string `json:"step_id"`
}

// String renders the composite key used for cache entries and per-key locks.
func (k StepKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.UserID, k.TaskID, k.SubtaskID, k.StepID)
}

// ContextID renders the document-store context identifier for the step.
func (k StepKey) ContextID() string {
	return fmt.Sprintf("%s_%s_%s", k.TaskID, k.SubtaskID, k.StepID)
}

// StepMemoryState is the Tier-1 state for one step: the verbatim recent
// turns plus the rolling summary of everything folded out of the window.
// The zero value (no turns, empty summary) is the valid empty state.
type StepMemoryState struct {
	Key            StepKey            `json:"key"`
	RecentTurns    []ConversationTurn `json:"recent_turns"`
	RollingSummary string             `json:"rolling_summary"`
	LastAccessed   time.Time          `json:"last_accessed"`
}

// Phase describes where a step's buffer sits in its lifecycle.
type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseActive     Phase = "active"
	PhaseSummarized Phase = "summarized"
)

// Phase reports the buffer lifecycle phase. Expiry is not a phase of the
// state itself: an expired entry reads back as the empty state.
func (s *StepMemoryState) Phase() Phase {
	switch {
	case s.RollingSummary != "":
		return PhaseSummarized
	case len(s.RecentTurns) > 0:
		return PhaseActive
	default:
		return PhaseEmpty
	}
}

// MemoryChunk is a bounded span of embedded text owned by the semantic
// index. Chunks for a user are superseded wholesale on every refresh.
type MemoryChunk struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Content     string            `json:"content"`
	ContentType ContentType       `json:"content_type"`
	PersonaID   string            `json:"persona_id,omitempty"`
	StepID      string            `json:"step_id,omitempty"`
	Embedding   []float32         `json:"embedding,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Score       float32           `json:"score,omitempty"`
}

// FreshnessMarker records when a user's semantic memory was last embedded
// and which step the user was on at the time. Only the semantic index
// updates it, and only after a successful refresh.
type FreshnessMarker struct {
	UserID         string    `json:"user_id"`
	LastEmbeddedAt time.Time `json:"last_embedded_at"`
	LastSeenStepID string    `json:"last_seen_step_id"`
}

// AssembledContext is the transient merge of all knowledge sources for one
// inbound message. It is serialized to a single bounded string and never
// persisted.
type AssembledContext struct {
	ProjectKnowledge     string
	ProgressSnippets     []string
	ConversationSnippets []string
	InsightSnippets      []string

	// Degraded is set when semantic search failed and only domain
	// knowledge is present.
	Degraded bool
}
