// Package retrieval runs the semantic search that proposes candidate
// elements for a statement request.
package retrieval

import (
	"context"

	"statement_extraction/pkg/models"
)

// DefaultTopK is the number of candidates requested when the caller gives none.
const DefaultTopK = 5

// Hit is one match returned by a vector index.
type Hit struct {
	ID         string
	SourceName string
	Score      float32
	Preview    string
	Metadata   map[string]any
}

// VectorIndex is the nearest-neighbour search capability the retriever needs.
// Results are expected in descending score order.
type VectorIndex interface {
	Search(ctx context.Context, queryText string, topK int) ([]Hit, error)
}

// Embedder turns query text into a vector comparable with element embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Candidate is a retrieved hit resolved to its element in the run's document array.
type Candidate struct {
	Element *models.Element
	Score   float32
	Preview string
}
