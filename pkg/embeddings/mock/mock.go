// Package mock provides a deterministic offline embedder for development
// and testing without an embedding service.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/paideialabs/paideia/pkg/embeddings"
)

// DefaultDimensions matches the dimensionality of common small embedding
// models so the mock can stand in for them against a real vector store.
const DefaultDimensions = 384

// Embedder produces deterministic pseudo-embeddings. Texts sharing words
// land near each other, which is enough structure for similarity plumbing
// to behave sensibly end to end.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a mock embedder. A dimensions value of zero uses
// DefaultDimensions.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed maps each word onto a deterministic direction and sums them, so
// overlapping vocabularies yield high cosine similarity.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dimensions)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(word))
		seed := h.Sum64()

		for i := range vec {
			// xorshift over the word seed gives a stable per-dimension value
			seed ^= seed << 13
			seed ^= seed >> 7
			seed ^= seed << 17
			vec[i] += float64(int64(seed%2000)-1000) / 1000.0
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, e.dimensions)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
