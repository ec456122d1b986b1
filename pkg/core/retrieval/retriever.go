package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"statement_extraction/pkg/core/failure"
	"statement_extraction/pkg/models"
)

// Retriever issues queries against a VectorIndex and checks the result.
type Retriever struct {
	index   VectorIndex
	timeout time.Duration
	logger  *zap.Logger
}

// NewRetriever wraps index. A zero timeout disables the per-call deadline.
func NewRetriever(index VectorIndex, timeout time.Duration, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{index: index, timeout: timeout, logger: logger}
}

// Retrieve returns at most topK candidates in descending score order, each
// resolved against docs. Zero hits, an index error, or a hit whose id is not
// in docs fail with RETRIEVAL_FAILED. The index is called exactly once.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, topK int, docs *models.DocumentIndex) ([]Candidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	start := time.Now()
	hits, err := r.index.Search(callCtx, queryText, topK)
	if err != nil {
		classified := failure.Classify(ctx, err, "vector search")
		if failure.KindOf(classified) == failure.KindCancelled {
			return nil, classified
		}
		return nil, failure.Wrap(failure.KindRetrievalFailed, classified, "vector index search")
	}
	if ctx.Err() != nil {
		return nil, failure.Wrap(failure.KindCancelled, ctx.Err(), "vector search interrupted")
	}

	hits = Normalize(hits, topK)
	r.logger.Debug("retrieval complete",
		zap.Int("hits", len(hits)),
		zap.Int("top_k", topK),
		zap.Duration("elapsed", time.Since(start)))

	if len(hits) == 0 {
		return nil, failure.New(failure.KindRetrievalFailed, "vector index returned no candidates")
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		el, ok := docs.Lookup(h.ID)
		if !ok {
			return nil, failure.New(failure.KindRetrievalFailed,
				"candidate %q from %q is not present in the document array", h.ID, h.SourceName)
		}
		candidates = append(candidates, Candidate{Element: el, Score: h.Score, Preview: h.Preview})
	}
	return candidates, nil
}

func (r *Retriever) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Normalize enforces the result contract: descending score, index order kept
// among equal scores, at most topK entries. Input is not modified.
func Normalize(hits []Hit, topK int) []Hit {
	out := make([]Hit, len(hits))
	copy(out, hits)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
