// Package docstore provides the durable record of raw conversation turns,
// task-progress submissions, and per-persona insight notes.
//
// Records are hierarchical: keyed by userID, then by the step context id
// (taskId_subtaskId_stepId). All writes are appends; the staleness probe
// ModifiedSince drives the semantic index's refresh decision.
package docstore

import (
	"context"
	"time"

	"github.com/paideialabs/paideia/pkg/memory"
)

// TurnRecord is a stored conversation turn with its step context.
type TurnRecord struct {
	Key       memory.StepKey          `json:"key"`
	Turn      memory.ConversationTurn `json:"turn"`
	WrittenAt time.Time               `json:"written_at"`
}

// ProgressRecord is a stored task-progress submission.
type ProgressRecord struct {
	ID         string         `json:"id"`
	Key        memory.StepKey `json:"key"`
	Submission string         `json:"submission"`
	Status     string         `json:"status,omitempty"`
	WrittenAt  time.Time      `json:"written_at"`
}

// InsightRecord is a persona's stored note about a learner.
type InsightRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PersonaID string    `json:"persona_id"`
	Note      string    `json:"note"`
	WrittenAt time.Time `json:"written_at"`
}

// Store is the document store backend.
type Store interface {
	// AppendTurn appends a conversation turn under the step key.
	AppendTurn(ctx context.Context, key memory.StepKey, turn memory.ConversationTurn) error

	// TurnsByStep returns the turns for one step in append order.
	TurnsByStep(ctx context.Context, key memory.StepKey) ([]memory.ConversationTurn, error)

	// TurnsByUser returns every stored turn for a user in append order.
	TurnsByUser(ctx context.Context, userID string) ([]TurnRecord, error)

	// AppendProgress appends a progress submission.
	AppendProgress(ctx context.Context, rec ProgressRecord) error

	// ProgressByUser returns every progress record for a user in append order.
	ProgressByUser(ctx context.Context, userID string) ([]ProgressRecord, error)

	// AppendInsight appends a persona insight note.
	AppendInsight(ctx context.Context, rec InsightRecord) error

	// InsightsByUser returns every insight note for a user in append order.
	InsightsByUser(ctx context.Context, userID string) ([]InsightRecord, error)

	// ModifiedSince reports whether any record family for the user has a
	// write after the given instant.
	ModifiedSince(ctx context.Context, userID string, since time.Time) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}
