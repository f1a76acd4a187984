// Package router picks which persona should answer an inbound message.
//
// A valid explicit preference wins outright. Otherwise a short classification
// completion chooses from the roster, and anything the classifier gets wrong
// falls back to the roster default rather than failing the request.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paideialabs/paideia/pkg/llm"
	"github.com/paideialabs/paideia/pkg/persona"
)

const classifierSystemPrompt = "You route messages from a learner to the best-suited tutor. " +
	"Reply with exactly one tutor id from the list and nothing else."

// TaskDescriber resolves a task id to its curriculum description. The
// catalog itself lives outside this service; a nil describer routes on the
// message alone.
type TaskDescriber interface {
	DescribeTask(ctx context.Context, taskID string) (string, error)
}

// Config holds configuration for the router.
type Config struct {
	// Model used for classification completions. Empty uses the
	// completer's default.
	Model string

	// MaxTokens bounds the classification reply. Defaults to 16.
	MaxTokens int
}

// Router assigns a persona to each inbound message.
type Router struct {
	roster    *persona.Roster
	completer llm.Completer
	tasks     TaskDescriber
	config    Config
	logger    *slog.Logger
}

// NewRouter creates a router over the given roster and completer. tasks may
// be nil when no curriculum catalog is wired.
func NewRouter(roster *persona.Roster, completer llm.Completer, tasks TaskDescriber, config Config, logger *slog.Logger) *Router {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 16
	}

	return &Router{
		roster:    roster,
		completer: completer,
		tasks:     tasks,
		config:    config,
		logger:    logger,
	}
}

// Route returns the persona that should answer the message. preferredID is
// honored when it names a roster persona; otherwise the message is
// classified against the roster and the task's description, and any
// classification problem resolves to the default.
func (r *Router) Route(ctx context.Context, message, taskID, preferredID string) persona.Persona {
	if preferredID != "" {
		if p, ok := r.roster.Get(preferredID); ok {
			return p
		}
		r.logger.Warn("unknown preferred persona, classifying instead",
			"persona_id", preferredID,
		)
	}

	if strings.TrimSpace(message) == "" {
		return r.roster.Default()
	}

	taskDescription := ""
	if taskID != "" && r.tasks != nil {
		desc, err := r.tasks.DescribeTask(ctx, taskID)
		if err != nil {
			r.logger.Warn("task description lookup failed, classifying without it",
				"task_id", taskID,
				"error", err,
			)
		} else {
			taskDescription = desc
		}
	}

	maxTokens := r.config.MaxTokens
	req := &llm.ChatRequest{
		Model:     r.config.Model,
		System:    classifierSystemPrompt,
		MaxTokens: &maxTokens,
		Messages: []llm.Message{
			llm.NewTextMessage("user", r.classifierPrompt(message, taskDescription)),
		},
	}

	resp, err := r.completer.Complete(ctx, req)
	if err != nil {
		r.logger.Warn("persona classification failed, using default",
			"error", err,
		)
		return r.roster.Default()
	}

	reply := resp.Message.GetText()
	if p, ok := r.parseChoice(reply); ok {
		return p
	}

	r.logger.Warn("classifier returned no roster persona, using default",
		"reply", reply,
	)
	return r.roster.Default()
}

func (r *Router) classifierPrompt(message, taskDescription string) string {
	var b strings.Builder
	b.WriteString("Tutors:\n")
	for _, p := range r.roster.All() {
		fmt.Fprintf(&b, "- %s: %s\n", p.ID, p.Description)
	}
	if taskDescription != "" {
		fmt.Fprintf(&b, "\nTask the learner is working on:\n%s\n", taskDescription)
	}
	fmt.Fprintf(&b, "\nLearner message:\n%s\n\nBest tutor id:", message)
	return b.String()
}

// parseChoice extracts a roster persona from the classifier's reply. The
// whole trimmed reply is tried first, then each word, so replies like
// "I'd pick ada." still resolve.
func (r *Router) parseChoice(reply string) (persona.Persona, bool) {
	trimmed := strings.TrimSpace(reply)
	if p, ok := r.roster.Get(trimmed); ok {
		return p, true
	}

	for _, word := range strings.FieldsFunc(trimmed, func(c rune) bool {
		return !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '-' || c == '_')
	}) {
		if p, ok := r.roster.Get(word); ok {
			return p, true
		}
	}

	return persona.Persona{}, false
}
