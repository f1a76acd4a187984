package testutils

import (
	"context"
	"fmt"

	"github.com/paideialabs/paideia/pkg/vector"
)

// MockVectorDriver is a test vector driver that records calls and returns
// configurable results.
type MockVectorDriver struct {
	// Documents accumulates everything passed to Add.
	Documents []vector.Document

	// Results is returned by Query, capped at topK and filtered by the
	// threshold.
	Results []vector.QueryResult

	// AddCalls counts invocations of Add.
	AddCalls int

	// DeletedUsers accumulates userIDs passed to DeleteUser.
	DeletedUsers []string

	// FailAdd causes Add to return an error.
	FailAdd bool

	// FailQuery causes Query to return an error.
	FailQuery bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.AddCalls++
	if m.FailAdd {
		return fmt.Errorf("mock add failure")
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ string, _ []float32, threshold float32, topK int) ([]vector.QueryResult, error) {
	if m.FailQuery {
		return nil, fmt.Errorf("mock query failure")
	}

	var results []vector.QueryResult
	for _, r := range m.Results {
		if threshold > 0 && r.Score < threshold {
			continue
		}
		results = append(results, r)
		if len(results) == topK {
			break
		}
	}
	return results, nil
}

func (m *MockVectorDriver) DeleteUser(_ context.Context, userID string) error {
	m.DeletedUsers = append(m.DeletedUsers, userID)

	kept := m.Documents[:0]
	for _, doc := range m.Documents {
		if doc.UserID != userID {
			kept = append(kept, doc)
		}
	}
	m.Documents = kept
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
