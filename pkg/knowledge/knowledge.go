// Package knowledge provides curriculum and domain knowledge retrieval for
// context assembly.
package knowledge

import "context"

// Retriever returns domain knowledge relevant to a query. Retrieval is
// best-effort background material, not learner memory; it carries no
// per-user state.
type Retriever interface {
	// Retrieve returns a knowledge block for the query, bounded to
	// maxChars. An empty string means nothing relevant was found.
	Retrieve(ctx context.Context, query string, maxChars int) (string, error)

	// Close releases any resources held by the retriever.
	Close() error
}

// Static is a fixed-text retriever. Useful as a fallback and in tests.
type Static struct {
	Text string
}

// NewStatic creates a retriever that always returns the given text.
func NewStatic(text string) *Static {
	return &Static{Text: text}
}

func (s *Static) Retrieve(_ context.Context, _ string, maxChars int) (string, error) {
	if maxChars > 0 && len(s.Text) > maxChars {
		return s.Text[:maxChars], nil
	}
	return s.Text, nil
}

func (s *Static) Close() error {
	return nil
}

var _ Retriever = (*Static)(nil)
