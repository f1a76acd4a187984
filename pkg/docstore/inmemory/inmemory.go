// Package inmemory provides a map-backed document store for tests and
// ephemeral single-process runs.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/paideialabs/paideia/pkg/docstore"
	"github.com/paideialabs/paideia/pkg/memory"
)

// Store implements docstore.Store with in-process slices. Append order is
// preserved per record family.
type Store struct {
	mu       sync.RWMutex
	turns    []docstore.TurnRecord
	progress []docstore.ProgressRecord
	insights []docstore.InsightRecord
	now      func() time.Time
}

// NewStore creates an empty in-memory document store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// NewStoreWithClock creates a store whose write timestamps come from the
// given clock. Used by tests that need deterministic ModifiedSince behavior.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

func (s *Store) AppendTurn(_ context.Context, key memory.StepKey, turn memory.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, docstore.TurnRecord{
		Key:       key,
		Turn:      turn,
		WrittenAt: s.now(),
	})
	return nil
}

func (s *Store) TurnsByStep(_ context.Context, key memory.StepKey) ([]memory.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var turns []memory.ConversationTurn
	for _, rec := range s.turns {
		if rec.Key == key {
			turns = append(turns, rec.Turn)
		}
	}
	return turns, nil
}

func (s *Store) TurnsByUser(_ context.Context, userID string) ([]docstore.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []docstore.TurnRecord
	for _, rec := range s.turns {
		if rec.Key.UserID == userID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *Store) AppendProgress(_ context.Context, rec docstore.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.WrittenAt.IsZero() {
		rec.WrittenAt = s.now()
	}
	s.progress = append(s.progress, rec)
	return nil
}

func (s *Store) ProgressByUser(_ context.Context, userID string) ([]docstore.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []docstore.ProgressRecord
	for _, rec := range s.progress {
		if rec.Key.UserID == userID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *Store) AppendInsight(_ context.Context, rec docstore.InsightRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.WrittenAt.IsZero() {
		rec.WrittenAt = s.now()
	}
	s.insights = append(s.insights, rec)
	return nil
}

func (s *Store) InsightsByUser(_ context.Context, userID string) ([]docstore.InsightRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []docstore.InsightRecord
	for _, rec := range s.insights {
		if rec.UserID == userID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *Store) ModifiedSince(_ context.Context, userID string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.turns {
		if rec.Key.UserID == userID && rec.WrittenAt.After(since) {
			return true, nil
		}
	}
	for _, rec := range s.progress {
		if rec.Key.UserID == userID && rec.WrittenAt.After(since) {
			return true, nil
		}
	}
	for _, rec := range s.insights {
		if rec.UserID == userID && rec.WrittenAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Close() error {
	return nil
}

var _ docstore.Store = (*Store)(nil)
