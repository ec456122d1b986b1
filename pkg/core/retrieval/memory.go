package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"statement_extraction/pkg/models"
)

type memoryEntry struct {
	hit    Hit
	vector []float32
}

// MemoryIndex is an exact cosine-similarity index over element embeddings
// held in memory. It is built per document array and never mutated after.
type MemoryIndex struct {
	embedder  Embedder
	entries   []memoryEntry
	dimension int
}

// NewMemoryIndex indexes every element that carries an embedding.
// Elements whose embedding length differs from the embedder's dimension
// are rejected.
func NewMemoryIndex(embedder Embedder, elements []models.Element) (*MemoryIndex, error) {
	idx := &MemoryIndex{embedder: embedder, dimension: embedder.Dimension()}
	for i := range elements {
		el := &elements[i]
		if len(el.Embedding) == 0 {
			continue
		}
		if idx.dimension > 0 && len(el.Embedding) != idx.dimension {
			return nil, fmt.Errorf("element %s: embedding length %d does not match dimension %d",
				el.ElementID, len(el.Embedding), idx.dimension)
		}
		idx.entries = append(idx.entries, memoryEntry{
			hit: Hit{
				ID:         el.ElementID,
				SourceName: el.SourceName,
				Preview:    el.Preview(),
				Metadata:   el.Metadata,
			},
			vector: el.Embedding,
		})
	}
	return idx, nil
}

// Len is the number of indexed elements.
func (m *MemoryIndex) Len() int { return len(m.entries) }

// Search embeds queryText and returns the topK most similar elements.
func (m *MemoryIndex) Search(ctx context.Context, queryText string, topK int) ([]Hit, error) {
	queryVec, err := m.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits := make([]Hit, 0, len(m.entries))
	for _, e := range m.entries {
		h := e.hit
		h.Score = CosineSimilarity(queryVec, e.vector)
		hits = append(hits, h)
	}

	// Stable so equal scores keep document order
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK > 0 && topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// CosineSimilarity computes the cosine similarity between two vectors
// Returns a value between -1 and 1, where 1 means identical direction
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
