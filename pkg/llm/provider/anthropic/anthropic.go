// Package anthropic implements pkg/llm's Completer client for Anthropic's
// Messages API
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paideialabs/paideia/pkg/llm"
	"github.com/paideialabs/paideia/pkg/utils"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultBaseURL is the default Anthropic API URL.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultMaxTokens bounds responses when the request doesn't set one;
	// the Messages API requires max_tokens.
	DefaultMaxTokens = 4096

	// apiVersion is the required anthropic-version header value.
	apiVersion = "2023-06-01"
)

// Completer wraps Anthropic's Messages API.
type Completer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Anthropic completer.
type Config struct {
	// APIKey is the Anthropic API key. Required.
	APIKey string

	// BaseURL overrides the API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// NewCompleter creates a new completer using Anthropic's Messages API.
func NewCompleter(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Completer{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Complete sends the chat request and returns the full response.
// A transient failure is retried once before giving up.
func (c *Completer) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	maxTokens := DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	messages := make([]messageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		// The Messages API only accepts user/assistant roles
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, messageParam{Role: role, Content: m.GetText()})
	}

	body := messagesRequest{
		Model:         model,
		MaxTokens:     maxTokens,
		System:        req.System,
		Messages:      messages,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.Stop,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	var msgResp messagesResponse
	err = utils.Retry(ctx, 2, time.Second, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", apiVersion)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(respBody))
		}

		return json.NewDecoder(resp.Body).Decode(&msgResp)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrCompletion, err)
	}

	var text string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.ChatResponse{
		Model:      msgResp.Model,
		Message:    llm.NewTextMessage("assistant", text),
		Done:       true,
		StopReason: msgResp.StopReason,
		Usage: &llm.Usage{
			PromptTokens:             msgResp.Usage.InputTokens,
			CompletionTokens:         msgResp.Usage.OutputTokens,
			TotalTokens:              msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
			CacheCreationInputTokens: msgResp.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msgResp.Usage.CacheReadInputTokens,
		},
	}, nil
}

// Close releases resources held by the completer.
func (c *Completer) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ llm.Completer = (*Completer)(nil)
