package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/paideialabs/paideia/pkg/memory"
)

var (
	stepRecallToolName    = "step_recall"
	stepRecallDescription = "Recall the active conversation state for one curriculum step: the rolling summary of everything discussed so far plus the most recent verbatim turns. Use this to resume a tutoring session exactly where it left off."
)

// StepRecallInput represents the input arguments for the step_recall tool.
type StepRecallInput struct {
	UserID    string `json:"user_id" jsonschema:"the learner whose step to recall"`
	TaskID    string `json:"task_id" jsonschema:"the task the step belongs to"`
	SubtaskID string `json:"subtask_id" jsonschema:"the subtask the step belongs to"`
	StepID    string `json:"step_id" jsonschema:"the curriculum step to recall"`
}

// RecalledTurn is one verbatim turn from the step buffer.
type RecalledTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	PersonaID string `json:"persona_id,omitempty"`
}

// StepRecallOutput represents the structured output of a step recall.
type StepRecallOutput struct {
	Summary     string         `json:"summary,omitempty"`
	RecentTurns []RecalledTurn `json:"recent_turns"`
	Phase       string         `json:"phase"`
}

// handleStepRecall processes a step recall request via MCP.
func (s *Server) handleStepRecall(ctx context.Context, _ *mcp.CallToolRequest, input StepRecallInput) (*mcp.CallToolResult, StepRecallOutput, error) {
	if input.UserID == "" || input.TaskID == "" || input.SubtaskID == "" || input.StepID == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "user_id, task_id, subtask_id, and step_id are required"},
			},
		}, StepRecallOutput{}, nil
	}

	key := memory.StepKey{
		UserID:    input.UserID,
		TaskID:    input.TaskID,
		SubtaskID: input.SubtaskID,
		StepID:    input.StepID,
	}

	state, err := s.config.Buffer.Load(ctx, key)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Step recall failed: %v", err)},
			},
		}, StepRecallOutput{}, nil
	}

	turns := make([]RecalledTurn, 0, len(state.RecentTurns))
	for _, turn := range state.RecentTurns {
		turns = append(turns, RecalledTurn{
			Role:      string(turn.Role),
			Content:   turn.Content,
			PersonaID: turn.PersonaID,
		})
	}

	output := StepRecallOutput{
		Summary:     state.RollingSummary,
		RecentTurns: turns,
		Phase:       string(state.Phase()),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, StepRecallOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
