package eventstream

import (
	"time"

	"github.com/paideialabs/paideia/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeInteractionRecorded is emitted after a learner/tutor exchange
	// is persisted and indexed.
	EventTypeInteractionRecorded = "paideia.interaction.recorded"

	// EventTypeMemoryRefreshed is emitted after a user's semantic index is
	// rebuilt.
	EventTypeMemoryRefreshed = "paideia.memory.refreshed"
)

// InteractionRecordedEvent is a transport-neutral event payload for a
// persisted learner/tutor exchange.
type InteractionRecordedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Key           memory.StepKey  `json:"key"`
	PersonaID     string          `json:"persona_id"`
	UserTurnID    string          `json:"user_turn_id"`
	AgentTurnID   string          `json:"agent_turn_id"`
	Meta          InteractionMeta `json:"meta"`
}

// InteractionMeta captures request lifecycle metadata for the event.
type InteractionMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Degraded    bool      `json:"degraded"`
	Model       string    `json:"model,omitempty"`
}

// MemoryRefreshedEvent is emitted when a user's semantic index is rebuilt
// from the document store.
type MemoryRefreshedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	UserID        string    `json:"user_id"`
	StepID        string    `json:"step_id"`
	ChunkCount    int       `json:"chunk_count"`
	Reason        string    `json:"reason,omitempty"`
}
