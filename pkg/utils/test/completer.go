package testutils

import (
	"context"
	"fmt"

	"github.com/paideialabs/paideia/pkg/llm"
)

// MockCompleter is a test completer with scripted responses.
type MockCompleter struct {
	// Responses is returned in order; the last response repeats once the
	// script runs out.
	Responses []string

	// Requests accumulates every request passed to Complete.
	Requests []*llm.ChatRequest

	// FailAll causes every Complete call to return an error.
	FailAll bool

	next int
}

func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{Responses: responses}
}

func (m *MockCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.Requests = append(m.Requests, req)

	if m.FailAll {
		return nil, fmt.Errorf("mock completion failure")
	}

	text := "mock response"
	if len(m.Responses) > 0 {
		if m.next < len(m.Responses) {
			text = m.Responses[m.next]
			m.next++
		} else {
			text = m.Responses[len(m.Responses)-1]
		}
	}

	return &llm.ChatResponse{
		Model:   "mock-model",
		Message: llm.NewTextMessage("assistant", text),
		Done:    true,
	}, nil
}

func (m *MockCompleter) Close() error {
	return nil
}

var _ llm.Completer = (*MockCompleter)(nil)
