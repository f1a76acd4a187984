package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paideialabs/paideia/pkg/llm"
	"github.com/paideialabs/paideia/pkg/memory"
	"github.com/paideialabs/paideia/pkg/worker"
)

// ErrorResponse is the JSON error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatRequest is an inbound learner message with its step coordinates.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	SubtaskID string `json:"subtask_id"`
	StepID    string `json:"step_id"`
	Message   string `json:"message"`

	// PersonaID optionally pins the responding persona.
	PersonaID string `json:"persona_id,omitempty"`
}

// ChatResponse is the tutor's reply.
type ChatResponse struct {
	Reply       string `json:"reply"`
	PersonaID   string `json:"persona_id"`
	UserTurnID  string `json:"user_turn_id"`
	AgentTurnID string `json:"agent_turn_id"`

	// Degraded reports that semantic memory was unavailable and the reply
	// was produced from domain knowledge and the step buffer only.
	Degraded bool `json:"degraded,omitempty"`
}

// MemorySearchRequest queries a user's semantic memory.
type MemorySearchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// MemorySearchResult is one retrieved memory chunk.
type MemorySearchResult struct {
	Content     string  `json:"content"`
	ContentType string  `json:"content_type"`
	PersonaID   string  `json:"persona_id,omitempty"`
	StepID      string  `json:"step_id,omitempty"`
	Score       float32 `json:"score"`
}

// MemorySearchResponse is the search result set.
type MemorySearchResponse struct {
	Query   string               `json:"query"`
	Results []MemorySearchResult `json:"results"`
	Count   int                  `json:"count"`
}

// StepsClearRequest clears step buffers. With all four coordinates it
// clears one step; with only user_id it clears every step of the user.
type StepsClearRequest struct {
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id,omitempty"`
	SubtaskID string `json:"subtask_id,omitempty"`
	StepID    string `json:"step_id,omitempty"`
}

// StepsClearResponse reports how many step buffers were dropped.
type StepsClearResponse struct {
	Cleared int `json:"cleared"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat runs the full tutoring pipeline for one learner message:
// persona routing, Tier-1 buffer load, Tier-2 freshness, context assembly,
// completion, and asynchronous persistence.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.UserID == "" || req.TaskID == "" || req.SubtaskID == "" || req.StepID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user_id, task_id, subtask_id, and step_id are required"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	ctx := c.Context()
	startedAt := time.Now()
	key := memory.StepKey{
		UserID:    req.UserID,
		TaskID:    req.TaskID,
		SubtaskID: req.SubtaskID,
		StepID:    req.StepID,
	}

	persona := s.components.Router.Route(ctx, req.Message, req.TaskID, req.PersonaID)

	state, err := s.components.Buffer.Load(ctx, key)
	if err != nil {
		s.logger.Warn("step buffer load failed, continuing with empty window",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		state = &memory.StepMemoryState{Key: key}
	}

	if err := s.components.Index.EnsureFresh(ctx, req.UserID, req.StepID); err != nil {
		s.logger.Warn("semantic index refresh failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
	}

	assembled := s.components.Assembler.Assemble(ctx, req.UserID, req.Message)
	contextBlock := s.components.Assembler.Render(assembled)

	completion, err := s.components.Completer.Complete(ctx, s.buildPrompt(persona.SystemPrompt, contextBlock, state, req.Message))
	if err != nil {
		s.logger.Error("completion failed",
			zap.String("user_id", req.UserID),
			zap.String("persona_id", persona.ID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "completion failed"})
	}

	reply := completion.Message.GetText()
	completedAt := time.Now()

	userTurn := memory.ConversationTurn{
		ID:        uuid.NewString(),
		Role:      memory.RoleUser,
		Content:   req.Message,
		Timestamp: startedAt,
	}
	agentTurn := memory.ConversationTurn{
		ID:        uuid.NewString(),
		Role:      memory.RoleAgent,
		Content:   reply,
		PersonaID: persona.ID,
		Timestamp: completedAt,
	}

	// The reply is already in hand; buffer updates must not fail the request.
	if _, err := s.components.Buffer.AppendTurn(ctx, key, userTurn); err != nil {
		s.logger.Warn("appending user turn to step buffer failed", zap.Error(err))
	}
	if _, err := s.components.Buffer.AppendTurn(ctx, key, agentTurn); err != nil {
		s.logger.Warn("appending agent turn to step buffer failed", zap.Error(err))
	}

	s.components.Pool.Enqueue(worker.Job{
		Key:         key,
		PersonaID:   persona.ID,
		UserTurn:    userTurn,
		AgentTurn:   agentTurn,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Degraded:    assembled.Degraded,
		Model:       completion.Model,
	})

	return c.JSON(ChatResponse{
		Reply:       reply,
		PersonaID:   persona.ID,
		UserTurnID:  userTurn.ID,
		AgentTurnID: agentTurn.ID,
		Degraded:    assembled.Degraded,
	})
}

// buildPrompt merges the persona voice, assembled context, rolling summary,
// and recent turns into one completion request.
func (s *Server) buildPrompt(systemPrompt, contextBlock string, state *memory.StepMemoryState, message string) *llm.ChatRequest {
	var system strings.Builder
	system.WriteString(systemPrompt)
	if contextBlock != "" {
		system.WriteString("\n\n")
		system.WriteString(contextBlock)
	}
	if state.RollingSummary != "" {
		system.WriteString("\n\nSummary of the conversation so far:\n")
		system.WriteString(state.RollingSummary)
	}

	messages := make([]llm.Message, 0, len(state.RecentTurns)+1)
	for _, turn := range state.RecentTurns {
		role := "user"
		if turn.Role == memory.RoleAgent {
			role = "assistant"
		}
		messages = append(messages, llm.NewTextMessage(role, turn.Content))
	}
	messages = append(messages, llm.NewTextMessage("user", message))

	return &llm.ChatRequest{
		Model:    s.components.Model,
		System:   system.String(),
		Messages: messages,
	}
}

// handleMemorySearch runs a semantic search over a user's memory.
func (s *Server) handleMemorySearch(c *fiber.Ctx) error {
	var req MemorySearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user_id is required"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query is required"})
	}

	chunks, err := s.components.Index.Search(c.Context(), req.UserID, req.Query)
	if err != nil {
		s.logger.Error("memory search failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "memory search failed"})
	}

	results := make([]MemorySearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, MemorySearchResult{
			Content:     chunk.Content,
			ContentType: string(chunk.ContentType),
			PersonaID:   chunk.PersonaID,
			StepID:      chunk.StepID,
			Score:       chunk.Score,
		})
	}

	return c.JSON(MemorySearchResponse{
		Query:   req.Query,
		Results: results,
		Count:   len(results),
	})
}

// handleStepsClear drops step buffers for a step or a whole user.
func (s *Server) handleStepsClear(c *fiber.Ctx) error {
	var req StepsClearRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user_id is required"})
	}

	ctx := c.Context()

	if req.TaskID != "" || req.SubtaskID != "" || req.StepID != "" {
		if req.TaskID == "" || req.SubtaskID == "" || req.StepID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "clearing one step needs task_id, subtask_id, and step_id"})
		}

		key := memory.StepKey{
			UserID:    req.UserID,
			TaskID:    req.TaskID,
			SubtaskID: req.SubtaskID,
			StepID:    req.StepID,
		}
		if err := s.components.Buffer.Clear(ctx, key); err != nil {
			s.logger.Error("clearing step buffer failed",
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "clearing step buffer failed"})
		}
		return c.JSON(StepsClearResponse{Cleared: 1})
	}

	cleared, err := s.components.Buffer.ClearUser(ctx, req.UserID)
	if err != nil {
		s.logger.Error("clearing user step buffers failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "clearing step buffers failed"})
	}

	return c.JSON(StepsClearResponse{Cleared: cleared})
}
