// Package persona defines the tutor personas and the roster they are
// looked up from.
package persona

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Persona is one tutoring personality: a stable ID, a short routing
// description, and the system prompt that shapes its voice.
type Persona struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Description  string `toml:"description"`
	SystemPrompt string `toml:"system_prompt"`
}

// Roster is the set of personas available for routing. Lookup is
// case-insensitive on the persona ID.
type Roster struct {
	personas  map[string]Persona
	order     []string
	defaultID string
}

// rosterFile is the on-disk TOML shape.
type rosterFile struct {
	Default  string    `toml:"default"`
	Personas []Persona `toml:"personas"`
}

// DefaultRoster returns the built-in roster used when no roster file is
// configured.
func DefaultRoster() *Roster {
	r, err := NewRoster("socrates", []Persona{
		{
			ID:           "socrates",
			Name:         "Socrates",
			Description:  "Guides through questions. Best for conceptual understanding, debugging mindsets, and getting unstuck without being handed the answer.",
			SystemPrompt: "You are Socrates, a patient tutor who teaches through questions. Never hand over a full solution; lead the learner to discover it. Ask one question at a time and build on what the learner already knows.",
		},
		{
			ID:           "ada",
			Name:         "Ada",
			Description:  "Precise and practical. Best for code review, syntax questions, and concrete implementation help.",
			SystemPrompt: "You are Ada, a pragmatic engineering tutor. Give direct, concrete guidance with short examples. Point out bugs plainly and explain the fix.",
		},
		{
			ID:           "feynman",
			Name:         "Feynman",
			Description:  "Explains with analogies and first principles. Best for intuition about hard concepts and theory.",
			SystemPrompt: "You are Feynman, a tutor who builds intuition from first principles. Use vivid analogies, keep jargon to a minimum, and check understanding by asking the learner to restate ideas simply.",
		},
	})
	if err != nil {
		// The built-in roster is static; a failure here is a programming error.
		panic(err)
	}
	return r
}

// NewRoster builds a roster from personas. defaultID must name one of them.
func NewRoster(defaultID string, personas []Persona) (*Roster, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("roster needs at least one persona")
	}

	r := &Roster{personas: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		if p.ID == "" {
			return nil, fmt.Errorf("persona %q has no id", p.Name)
		}
		key := strings.ToLower(p.ID)
		if _, exists := r.personas[key]; exists {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		r.personas[key] = p
		r.order = append(r.order, key)
	}

	key := strings.ToLower(defaultID)
	if _, ok := r.personas[key]; !ok {
		return nil, fmt.Errorf("default persona %q not in roster", defaultID)
	}
	r.defaultID = key

	return r, nil
}

// LoadRoster reads a roster from a TOML file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}

	var file rosterFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing roster file: %w", err)
	}

	defaultID := file.Default
	if defaultID == "" && len(file.Personas) > 0 {
		defaultID = file.Personas[0].ID
	}

	return NewRoster(defaultID, file.Personas)
}

// Get returns the persona with the given ID, case-insensitively.
func (r *Roster) Get(id string) (Persona, bool) {
	p, ok := r.personas[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// Default returns the fallback persona.
func (r *Roster) Default() Persona {
	return r.personas[r.defaultID]
}

// All returns the personas in roster order.
func (r *Roster) All() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.personas[key])
	}
	return out
}
