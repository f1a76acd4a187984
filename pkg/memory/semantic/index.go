// Package semantic implements Tier-2 conversational memory: an embedded
// index over a learner's full history (conversations, progress, insights)
// with freshness tracking and similarity search.
//
// Freshness is tracked per user by a marker recording when the index was
// last rebuilt and which step the user was on. A refresh supersedes the
// user's chunks wholesale; the marker only advances after the new chunks
// are in place, so a failed refresh leaves the previous index searchable.
package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/paideialabs/paideia/pkg/cache"
	"github.com/paideialabs/paideia/pkg/docstore"
	"github.com/paideialabs/paideia/pkg/embeddings"
	"github.com/paideialabs/paideia/pkg/memory"
	"github.com/paideialabs/paideia/pkg/vector"
)

const (
	// MarkerPrefix namespaces freshness markers in the cache. Markers
	// carry no TTL: losing one only costs an extra refresh, but an
	// expired marker would force rebuilds on every cache eviction.
	MarkerPrefix = "semfresh:"

	// Aggregated-history cache keys. A refresh may only reuse these when
	// ModifiedSince reported no new writes; the TTLs bound how long a
	// prior document-store read stays eligible for reuse.
	historyPrefix = "semhist:"
	insightPrefix = "seminsight:"

	// DefaultSimilarityFloor drops weakly related chunks from results.
	DefaultSimilarityFloor = 0.3

	// DefaultMaxResults caps a single search.
	DefaultMaxResults = 20

	// DefaultRefreshParallelism bounds concurrent embedding calls during
	// a refresh.
	DefaultRefreshParallelism = 10
)

// Config holds configuration for the semantic index.
type Config struct {
	// SimilarityFloor is the minimum score a chunk needs to be returned.
	// Defaults to DefaultSimilarityFloor if zero.
	SimilarityFloor float32

	// MaxResults caps search results. Defaults to DefaultMaxResults if
	// zero.
	MaxResults int

	// RefreshParallelism bounds concurrent embeddings during a refresh.
	// Defaults to DefaultRefreshParallelism if zero.
	RefreshParallelism int

	// ChunkSize is the rune length of embedded chunks. Defaults to
	// DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the rune overlap between chunks. Defaults to
	// DefaultChunkOverlap if zero.
	ChunkOverlap int
}

// Index is the Tier-2 semantic memory manager. Refreshes for the same user
// are serialized; a second caller blocks until the first finishes and then
// finds the index fresh.
type Index struct {
	cache    cache.Store
	docs     docstore.Store
	driver   vector.Driver
	embedder embeddings.Embedder
	config   Config
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIndex creates a semantic index over the given stores.
func NewIndex(store cache.Store, docs docstore.Store, driver vector.Driver, embedder embeddings.Embedder, config Config, logger *slog.Logger) *Index {
	if config.SimilarityFloor <= 0 {
		config.SimilarityFloor = DefaultSimilarityFloor
	}
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultMaxResults
	}
	if config.RefreshParallelism <= 0 {
		config.RefreshParallelism = DefaultRefreshParallelism
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkOverlap <= 0 {
		config.ChunkOverlap = DefaultChunkOverlap
	}

	return &Index{
		cache:    store,
		docs:     docs,
		driver:   driver,
		embedder: embedder,
		config:   config,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (idx *Index) lockFor(userID string) *sync.Mutex {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	l, ok := idx.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		idx.locks[userID] = l
	}
	return l
}

// EnsureFresh rebuilds the user's index if it is stale. The index is stale
// when no freshness marker exists, when the user has navigated to a
// different step since the last refresh, or when the document store has
// writes newer than the marker. A fresh index is a no-op.
func (idx *Index) EnsureFresh(ctx context.Context, userID, currentStepID string) error {
	lock := idx.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	marker, err := idx.loadMarker(ctx, userID)
	if err != nil {
		return err
	}

	reason := ""
	reuseHistory := false
	if marker == nil {
		reason = "no freshness marker"
	} else {
		modified, err := idx.docs.ModifiedSince(ctx, userID, marker.LastEmbeddedAt)
		if err != nil {
			return fmt.Errorf("checking staleness: %w", err)
		}
		switch {
		case marker.LastSeenStepID != currentStepID:
			// Step navigation forces a rebuild regardless of timestamps:
			// the just-finished step's conversation must become
			// searchable. When nothing new landed, the cached history
			// corpus is still valid and the document store is not re-read.
			reason = "step navigation"
			reuseHistory = !modified
		case modified:
			reason = "new records"
		}
	}

	if reason == "" {
		return nil
	}

	idx.logger.Debug("refreshing semantic index",
		"user_id", userID,
		"reason", reason,
	)
	return idx.refresh(ctx, userID, currentStepID, reuseHistory)
}

// refresh rebuilds the user's index from the document store. All chunks
// are embedded before the old index is touched; the marker advances last.
func (idx *Index) refresh(ctx context.Context, userID, currentStepID string, reuseHistory bool) error {
	started := time.Now()

	chunks, err := idx.collectChunks(ctx, userID, reuseHistory)
	if err != nil {
		return err
	}

	docs := make([]vector.Document, len(chunks))
	p := pool.New().WithMaxGoroutines(idx.config.RefreshParallelism).WithErrors().WithContext(ctx)
	for i, c := range chunks {
		p.Go(func(ctx context.Context) error {
			embedding, err := idx.embedder.Embed(ctx, c.Content)
			if err != nil {
				return fmt.Errorf("embedding chunk: %w", err)
			}
			docs[i] = vector.Document{
				ID:          c.ID,
				UserID:      userID,
				Content:     c.Content,
				ContentType: string(c.ContentType),
				PersonaID:   c.PersonaID,
				StepID:      c.StepID,
				Embedding:   embedding,
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("%w: refresh aborted, previous index kept: %v", vector.ErrEmbedding, err)
	}

	if err := idx.driver.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("superseding old chunks: %w", err)
	}
	if err := idx.driver.Add(ctx, docs); err != nil {
		return fmt.Errorf("storing new chunks: %w", err)
	}

	if err := idx.saveMarker(ctx, &memory.FreshnessMarker{
		UserID:         userID,
		LastEmbeddedAt: time.Now(),
		LastSeenStepID: currentStepID,
	}); err != nil {
		return err
	}

	idx.logger.Info("semantic index refreshed",
		"user_id", userID,
		"chunks", len(docs),
		"duration", time.Since(started).String(),
	)
	return nil
}

// collectChunks loads the user's three record families and chunks them
// into embeddable spans. When reuseCached is set (the document store is
// known unchanged) the conversation-and-progress corpus and the insight
// notes come from cache, held for cache.TTLUserData and cache.TTLInsight
// respectively.
func (idx *Index) collectChunks(ctx context.Context, userID string, reuseCached bool) ([]memory.MemoryChunk, error) {
	history, ok := idx.cachedChunks(ctx, historyPrefix+userID, reuseCached)
	if !ok {
		var err error
		history, err = idx.collectHistory(ctx, userID)
		if err != nil {
			return nil, err
		}
		idx.storeChunks(ctx, historyPrefix+userID, history, cache.TTLUserData)
	}

	insights, ok := idx.cachedChunks(ctx, insightPrefix+userID, reuseCached)
	if !ok {
		var err error
		insights, err = idx.collectInsights(ctx, userID)
		if err != nil {
			return nil, err
		}
		idx.storeChunks(ctx, insightPrefix+userID, insights, cache.TTLInsight)
	}

	return append(history, insights...), nil
}

// collectHistory gathers the user's conversation transcripts and progress
// submissions as embeddable chunks.
func (idx *Index) collectHistory(ctx context.Context, userID string) ([]memory.MemoryChunk, error) {
	var chunks []memory.MemoryChunk

	turns, err := idx.docs.TurnsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}
	for key, text := range stepTranscripts(turns) {
		chunks = idx.appendChunks(chunks, userID, text, memory.ContentConversation, "", key.StepID)
	}

	progress, err := idx.docs.ProgressByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	for _, rec := range progress {
		text := rec.Submission
		if rec.Status != "" {
			text = fmt.Sprintf("%s (%s)", rec.Submission, rec.Status)
		}
		chunks = idx.appendChunks(chunks, userID, text, memory.ContentProgress, "", rec.Key.StepID)
	}

	return chunks, nil
}

// collectInsights gathers the user's persona insight notes as embeddable
// chunks.
func (idx *Index) collectInsights(ctx context.Context, userID string) ([]memory.MemoryChunk, error) {
	var chunks []memory.MemoryChunk

	insights, err := idx.docs.InsightsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading insights: %w", err)
	}
	for _, rec := range insights {
		chunks = idx.appendChunks(chunks, userID, rec.Note, memory.ContentInsight, rec.PersonaID, "")
	}

	return chunks, nil
}

func (idx *Index) appendChunks(chunks []memory.MemoryChunk, userID, text string, contentType memory.ContentType, personaID, stepID string) []memory.MemoryChunk {
	for _, span := range chunk(text, idx.config.ChunkSize, idx.config.ChunkOverlap) {
		chunks = append(chunks, memory.MemoryChunk{
			ID:          uuid.NewString(),
			UserID:      userID,
			Content:     span,
			ContentType: contentType,
			PersonaID:   personaID,
			StepID:      stepID,
		})
	}
	return chunks
}

func (idx *Index) cachedChunks(ctx context.Context, key string, allow bool) ([]memory.MemoryChunk, bool) {
	if !allow {
		return nil, false
	}

	data, err := idx.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var chunks []memory.MemoryChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		// A corrupt entry just forces a fresh read.
		return nil, false
	}
	return chunks, true
}

func (idx *Index) storeChunks(ctx context.Context, key string, chunks []memory.MemoryChunk, ttl time.Duration) {
	data, err := json.Marshal(chunks)
	if err != nil {
		return
	}
	if err := idx.cache.Set(ctx, key, data, ttl); err != nil {
		idx.logger.Warn("caching collected chunks failed",
			"key", key,
			"error", err,
		)
	}
}

// stepTranscripts groups turns by step and renders each step's transcript,
// iterating steps in first-seen order.
func stepTranscripts(records []docstore.TurnRecord) func(func(memory.StepKey, string) bool) {
	type transcript struct {
		key memory.StepKey
		b   strings.Builder
	}
	byStep := make(map[memory.StepKey]*transcript)
	var order []memory.StepKey

	for _, rec := range records {
		t, ok := byStep[rec.Key]
		if !ok {
			t = &transcript{key: rec.Key}
			byStep[rec.Key] = t
			order = append(order, rec.Key)
		}
		speaker := string(rec.Turn.Role)
		if rec.Turn.Role == memory.RoleAgent && rec.Turn.PersonaID != "" {
			speaker = rec.Turn.PersonaID
		}
		fmt.Fprintf(&t.b, "%s: %s\n", speaker, rec.Turn.Content)
	}

	return func(yield func(memory.StepKey, string) bool) {
		for _, key := range order {
			if !yield(key, byStep[key].b.String()) {
				return
			}
		}
	}
}

// Search embeds the query and returns the user's most similar chunks,
// best first, filtered by the similarity floor.
func (idx *Index) Search(ctx context.Context, userID, query string) ([]memory.MemoryChunk, error) {
	embedding, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", vector.ErrEmbedding, err)
	}

	results, err := idx.driver.Query(ctx, userID, embedding, idx.config.SimilarityFloor, idx.config.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	chunks := make([]memory.MemoryChunk, len(results))
	for i, r := range results {
		chunks[i] = memory.MemoryChunk{
			ID:          r.ID,
			UserID:      r.UserID,
			Content:     r.Content,
			ContentType: memory.ContentType(r.ContentType),
			PersonaID:   r.PersonaID,
			StepID:      r.StepID,
			Score:       r.Score,
		}
	}
	return chunks, nil
}

// RecordInteraction incrementally indexes one exchange so it is
// retrievable before the next full refresh. The freshness marker is left
// alone: the authoritative rebuild still happens on the usual triggers.
func (idx *Index) RecordInteraction(ctx context.Context, key memory.StepKey, userTurn, agentTurn memory.ConversationTurn) error {
	speaker := string(agentTurn.Role)
	if agentTurn.PersonaID != "" {
		speaker = agentTurn.PersonaID
	}
	text := fmt.Sprintf("%s: %s\n%s: %s\n", memory.RoleUser, userTurn.Content, speaker, agentTurn.Content)

	var docs []vector.Document
	for _, span := range chunk(text, idx.config.ChunkSize, idx.config.ChunkOverlap) {
		embedding, err := idx.embedder.Embed(ctx, span)
		if err != nil {
			return fmt.Errorf("%w: embedding interaction: %v", vector.ErrEmbedding, err)
		}
		docs = append(docs, vector.Document{
			ID:          uuid.NewString(),
			UserID:      key.UserID,
			Content:     span,
			ContentType: string(memory.ContentConversation),
			PersonaID:   agentTurn.PersonaID,
			StepID:      key.StepID,
			Embedding:   embedding,
		})
	}

	if err := idx.driver.Add(ctx, docs); err != nil {
		return fmt.Errorf("storing interaction chunks: %w", err)
	}
	return nil
}

func (idx *Index) loadMarker(ctx context.Context, userID string) (*memory.FreshnessMarker, error) {
	data, err := idx.cache.Get(ctx, MarkerPrefix+userID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading freshness marker: %w", err)
	}

	var marker memory.FreshnessMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		// A corrupt marker is treated as absent; the index rebuilds.
		idx.logger.Warn("discarding corrupt freshness marker",
			"user_id", userID,
			"error", err,
		)
		return nil, nil
	}
	return &marker, nil
}

func (idx *Index) saveMarker(ctx context.Context, marker *memory.FreshnessMarker) error {
	data, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("marshaling freshness marker: %w", err)
	}
	if err := idx.cache.Set(ctx, MarkerPrefix+marker.UserID, data, 0); err != nil {
		return fmt.Errorf("saving freshness marker: %w", err)
	}
	return nil
}
