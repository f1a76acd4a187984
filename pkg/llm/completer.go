package llm

import "context"

// Completer produces a single chat completion. Implementations wrap a
// provider's completion API; the summarizer, persona router, and chat
// pipeline all speak through this interface.
type Completer interface {
	// Complete sends the request and returns the full response.
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Close releases any resources held by the completer.
	Close() error
}
