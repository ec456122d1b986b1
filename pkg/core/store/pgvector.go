package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/pgvector/pgvector-go"

	"statement_extraction/pkg/core/retrieval"
	"statement_extraction/pkg/models"
)

// Schema assumption (managed by the ingestion side):
// CREATE TABLE IF NOT EXISTS statement_elements (
//   element_id    TEXT NOT NULL,
//   document_name TEXT NOT NULL,
//   source_name   TEXT NOT NULL,
//   position      INT  NOT NULL,
//   raw_content   TEXT NOT NULL,
//   metadata      JSONB,
//   embedding     vector(1536)
// );

// DefaultElementsTable is used when no table is configured.
const DefaultElementsTable = "statement_elements"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PgVectorIndex searches element embeddings stored in Postgres with the
// pgvector extension. Scores are cosine similarity (1 - cosine distance).
type PgVectorIndex struct {
	db       Querier
	embedder retrieval.Embedder
	table    string
	document string
}

// NewPgVectorIndex creates an index over table restricted to one document.
func NewPgVectorIndex(db Querier, embedder retrieval.Embedder, table, documentName string) (*PgVectorIndex, error) {
	if table == "" {
		table = DefaultElementsTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PgVectorIndex{db: db, embedder: embedder, table: table, document: documentName}, nil
}

func (p *PgVectorIndex) searchSQL() string {
	return fmt.Sprintf(`
		SELECT element_id, source_name, COALESCE(metadata, '{}'::jsonb),
		       1 - (embedding <=> $1) AS score
		FROM %s
		WHERE document_name = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1, position
		LIMIT $3`, p.table)
}

func (p *PgVectorIndex) elementsSQL() string {
	return fmt.Sprintf(`
		SELECT element_id, source_name, raw_content, COALESCE(metadata, '{}'::jsonb), embedding
		FROM %s
		WHERE document_name = $1
		ORDER BY position, element_id`, p.table)
}

// Search embeds queryText and returns the topK nearest elements.
func (p *PgVectorIndex) Search(ctx context.Context, queryText string, topK int) ([]retrieval.Hit, error) {
	vec, err := p.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := p.db.Query(ctx, p.searchSQL(), pgvector.NewVector(vec), p.document, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search on %s: %w", p.table, err)
	}
	defer rows.Close()

	var hits []retrieval.Hit
	for rows.Next() {
		var (
			h        retrieval.Hit
			metaJSON []byte
			score    float64
		)
		if err := rows.Scan(&h.ID, &h.SourceName, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		h.Score = float32(score)
		if h.Metadata, err = decodeMetadata(metaJSON); err != nil {
			return nil, fmt.Errorf("element %s: %w", h.ID, err)
		}
		h.Preview = (&models.Element{Metadata: h.Metadata}).Preview()
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// LoadElements returns the document array for the index's document, in
// ingestion order.
func (p *PgVectorIndex) LoadElements(ctx context.Context) ([]models.Element, error) {
	rows, err := p.db.Query(ctx, p.elementsSQL(), p.document)
	if err != nil {
		return nil, fmt.Errorf("load elements from %s: %w", p.table, err)
	}
	defer rows.Close()

	var elements []models.Element
	for rows.Next() {
		var (
			el       models.Element
			metaJSON []byte
			emb      *pgvector.Vector
		)
		if err := rows.Scan(&el.ElementID, &el.SourceName, &el.RawContent, &metaJSON, &emb); err != nil {
			return nil, fmt.Errorf("scan element row: %w", err)
		}
		if el.Metadata, err = decodeMetadata(metaJSON); err != nil {
			return nil, fmt.Errorf("element %s: %w", el.ElementID, err)
		}
		if emb != nil {
			el.Embedding = emb.Slice()
		}
		elements = append(elements, el)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("no elements stored for document %q", p.document)
	}
	return elements, nil
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return meta, nil
}
