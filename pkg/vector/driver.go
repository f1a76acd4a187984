// Package vector provides interfaces and implementations for user-scoped
// vector storage and similarity retrieval.
package vector

import "context"

// Document represents an embedded memory chunk with its retrieval metadata.
// All documents belong to exactly one user; queries never cross users.
type Document struct {
	// ID is a unique identifier for the document.
	ID string

	// UserID is the learner the chunk belongs to.
	UserID string

	// Content is the chunk text that was embedded.
	Content string

	// ContentType classifies the chunk ("progress", "conversation", "insight").
	ContentType string

	// PersonaID is the persona that produced the content, if any.
	PersonaID string

	// StepID is the curriculum step the content came from, if any.
	StepID string

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is the similarity score (higher = more similar), normalized
	// to (0, 1] regardless of the backend's native distance metric.
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings. If a document with the
	// same ID already exists, implementers should update the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds up to topK documents belonging to userID whose
	// similarity to the embedding is at least threshold, most similar
	// first. A threshold of zero disables the floor.
	Query(ctx context.Context, userID string, embedding []float32, threshold float32, topK int) ([]QueryResult, error)

	// DeleteUser removes every document belonging to userID.
	DeleteUser(ctx context.Context, userID string) error

	// Close releases any resources held by the driver.
	Close() error
}
