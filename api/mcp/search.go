package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	memorySearchToolName    = "memory_search"
	memorySearchDescription = "Search a learner's long-term tutoring memory using semantic search. Returns the most relevant conversation excerpts, progress records, and tutor insights for the query text."
)

// MemorySearchInput represents the input arguments for the memory_search tool.
type MemorySearchInput struct {
	UserID string `json:"user_id" jsonschema:"the learner whose memory to search"`
	Query  string `json:"query" jsonschema:"the search query text to find relevant memories"`
}

// MemorySearchResult represents a single search result.
type MemorySearchResult struct {
	Content     string  `json:"content"`
	ContentType string  `json:"content_type"`
	PersonaID   string  `json:"persona_id,omitempty"`
	StepID      string  `json:"step_id,omitempty"`
	Score       float32 `json:"score"`
}

// MemorySearchOutput represents the output of the memory_search tool.
type MemorySearchOutput struct {
	Query   string               `json:"query"`
	Results []MemorySearchResult `json:"results"`
	Count   int                  `json:"count"`
}

// handleMemorySearch processes a memory search request.
func (s *Server) handleMemorySearch(ctx context.Context, _ *mcp.CallToolRequest, input MemorySearchInput) (*mcp.CallToolResult, MemorySearchOutput, error) {
	logger := s.config.Logger

	if input.UserID == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "user_id is required"},
			},
		}, MemorySearchOutput{}, nil
	}
	if input.Query == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "query is required"},
			},
		}, MemorySearchOutput{}, nil
	}

	logger.Debug("MCP memory search request",
		zap.String("user_id", input.UserID),
		zap.String("query", input.Query),
	)

	chunks, err := s.config.Searcher.Search(ctx, input.UserID, input.Query)
	if err != nil {
		logger.Error("failed to search memory", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Memory search failed: %v", err)},
			},
		}, MemorySearchOutput{}, nil
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

	output := MemorySearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, MemorySearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
