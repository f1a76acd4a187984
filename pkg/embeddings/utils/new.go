// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/paideialabs/paideia/pkg/embeddings"
	"github.com/paideialabs/paideia/pkg/embeddings/mock"
	"github.com/paideialabs/paideia/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   int
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "mock":
		return mock.NewEmbedder(o.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
