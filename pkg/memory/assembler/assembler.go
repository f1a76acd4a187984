// Package assembler merges domain knowledge and semantic memory into one
// bounded context block for prompt construction.
//
// The block layout is fixed: domain knowledge, then progress, conversation,
// and insight snippets, each section fenced by BEGIN/END markers. Assembly
// is deterministic for a given set of inputs.
package assembler

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paideialabs/paideia/pkg/cache"
	"github.com/paideialabs/paideia/pkg/knowledge"
	"github.com/paideialabs/paideia/pkg/memory"
)

const (
	// DefaultCharBudget bounds the rendered context block.
	DefaultCharBudget = 8000

	// Per-type snippet caps keep one noisy record family from crowding
	// out the others.
	DefaultProgressCap     = 10
	DefaultConversationCap = 15
	DefaultInsightCap      = 5

	truncationNotice = "[older context omitted to fit the context budget]"

	// contextPrefix namespaces cached assemblies; entries live for
	// cache.TTLContext.
	contextPrefix = "asmctx:"
)

// section markers; truncation drops whole snippets, never a marker.
const (
	domainBegin       = "=== BEGIN DOMAIN KNOWLEDGE ==="
	domainEnd         = "=== END DOMAIN KNOWLEDGE ==="
	progressBegin     = "=== BEGIN LEARNER PROGRESS ==="
	progressEnd       = "=== END LEARNER PROGRESS ==="
	conversationBegin = "=== BEGIN PAST CONVERSATIONS ==="
	conversationEnd   = "=== END PAST CONVERSATIONS ==="
	insightBegin      = "=== BEGIN TUTOR INSIGHTS ==="
	insightEnd        = "=== END TUTOR INSIGHTS ==="
)

// Searcher is the slice of the semantic index the assembler needs.
type Searcher interface {
	Search(ctx context.Context, userID, query string) ([]memory.MemoryChunk, error)
}

// Config holds configuration for the assembler.
type Config struct {
	// CharBudget bounds the rendered block. Defaults to
	// DefaultCharBudget if zero.
	CharBudget int

	// ProgressCap, ConversationCap, and InsightCap bound snippets per
	// record family. Each defaults if zero.
	ProgressCap     int
	ConversationCap int
	InsightCap      int
}

// Assembler builds bounded context blocks.
type Assembler struct {
	knowledge knowledge.Retriever
	searcher  Searcher
	cache     cache.Store
	config    Config
	logger    *slog.Logger
}

// NewAssembler creates an assembler over the given knowledge retriever and
// semantic searcher. A non-nil store short-circuits repeated assemblies of
// the same user and query for cache.TTLContext; nil disables caching.
func NewAssembler(retriever knowledge.Retriever, searcher Searcher, store cache.Store, config Config, logger *slog.Logger) *Assembler {
	if config.CharBudget <= 0 {
		config.CharBudget = DefaultCharBudget
	}
	if config.ProgressCap <= 0 {
		config.ProgressCap = DefaultProgressCap
	}
	if config.ConversationCap <= 0 {
		config.ConversationCap = DefaultConversationCap
	}
	if config.InsightCap <= 0 {
		config.InsightCap = DefaultInsightCap
	}

	return &Assembler{
		knowledge: retriever,
		searcher:  searcher,
		cache:     store,
		config:    config,
		logger:    logger,
	}
}

// Assemble gathers domain knowledge and the user's most relevant memory
// for the query. A semantic search failure degrades to domain knowledge
// only rather than failing the request. Complete assemblies are cached per
// user and query; degraded ones are not, so recovery is retried on the
// next request.
func (a *Assembler) Assemble(ctx context.Context, userID, query string) *memory.AssembledContext {
	if cached := a.loadCached(ctx, userID, query); cached != nil {
		return cached
	}

	assembled := &memory.AssembledContext{}

	// Domain knowledge gets at most half the budget so memory is never
	// squeezed out entirely.
	projectKnowledge, err := a.knowledge.Retrieve(ctx, query, a.config.CharBudget/2)
	if err != nil {
		a.logger.Warn("knowledge retrieval failed",
			"user_id", userID,
			"error", err,
		)
	} else {
		assembled.ProjectKnowledge = projectKnowledge
	}

	chunks, err := a.searcher.Search(ctx, userID, query)
	if err != nil {
		a.logger.Warn("semantic search failed, assembling degraded context",
			"user_id", userID,
			"error", err,
		)
		assembled.Degraded = true
		return assembled
	}

	for _, c := range chunks {
		switch c.ContentType {
		case memory.ContentProgress:
			if len(assembled.ProgressSnippets) < a.config.ProgressCap {
				assembled.ProgressSnippets = append(assembled.ProgressSnippets, c.Content)
			}
		case memory.ContentConversation:
			if len(assembled.ConversationSnippets) < a.config.ConversationCap {
				assembled.ConversationSnippets = append(assembled.ConversationSnippets, c.Content)
			}
		case memory.ContentInsight:
			if len(assembled.InsightSnippets) < a.config.InsightCap {
				assembled.InsightSnippets = append(assembled.InsightSnippets, c.Content)
			}
		}
	}

	a.storeCached(ctx, userID, query, assembled)
	return assembled
}

func contextKey(userID, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s%s:%x", contextPrefix, userID, sum[:8])
}

func (a *Assembler) loadCached(ctx context.Context, userID, query string) *memory.AssembledContext {
	if a.cache == nil {
		return nil
	}

	data, err := a.cache.Get(ctx, contextKey(userID, query))
	if err != nil {
		return nil
	}

	var assembled memory.AssembledContext
	if err := json.Unmarshal(data, &assembled); err != nil {
		// A corrupt entry just forces a fresh assembly.
		return nil
	}
	return &assembled
}

func (a *Assembler) storeCached(ctx context.Context, userID, query string, assembled *memory.AssembledContext) {
	if a.cache == nil {
		return
	}

	data, err := json.Marshal(assembled)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, contextKey(userID, query), data, cache.TTLContext); err != nil {
		a.logger.Warn("caching assembled context failed",
			"user_id", userID,
			"error", err,
		)
	}
}

// Render serializes the assembled context into the fenced block, enforcing
// the character budget by dropping whole snippets from the end (insights
// first, then conversations, then progress). Markers are never cut; if
// anything was dropped a truncation notice is appended.
func (a *Assembler) Render(assembled *memory.AssembledContext) string {
	progress := assembled.ProgressSnippets
	conversations := assembled.ConversationSnippets
	insights := assembled.InsightSnippets

	truncated := false
	for {
		block := render(assembled.ProjectKnowledge, progress, conversations, insights, truncated)
		if len(block) <= a.config.CharBudget {
			return block
		}

		switch {
		case len(insights) > 0:
			insights = insights[:len(insights)-1]
		case len(conversations) > 0:
			conversations = conversations[:len(conversations)-1]
		case len(progress) > 0:
			progress = progress[:len(progress)-1]
		default:
			// Only knowledge is left; it was already bounded to half the
			// budget, so this is unreachable in practice.
			return block
		}
		truncated = true
	}
}

func render(projectKnowledge string, progress, conversations, insights []string, truncated bool) string {
	var b strings.Builder

	section := func(begin, end string, snippets []string) {
		if len(snippets) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(begin)
		b.WriteString("\n")
		for _, s := range snippets {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(s))
		}
		b.WriteString(end)
		b.WriteString("\n")
	}

	if projectKnowledge != "" {
		b.WriteString(domainBegin)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(projectKnowledge))
		b.WriteString("\n")
		b.WriteString(domainEnd)
		b.WriteString("\n")
	}

	section(progressBegin, progressEnd, progress)
	section(conversationBegin, conversationEnd, conversations)
	section(insightBegin, insightEnd, insights)

	if truncated {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(truncationNotice)
		b.WriteString("\n")
	}

	return b.String()
}
