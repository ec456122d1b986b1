package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"statement_extraction/pkg/core/failure"
	"statement_extraction/pkg/core/query"
	"statement_extraction/pkg/core/retrieval"
	"statement_extraction/pkg/core/store"
	"statement_extraction/pkg/models"
)

// State is a step of the linear run state machine.
type State string

const (
	StateFormatQuery    State = "FORMAT_QUERY"
	StateRetrieve       State = "RETRIEVE"
	StateSelect         State = "SELECT"
	StateResolveContent State = "RESOLVE_CONTENT"
	StateReformat       State = "REFORMAT"
	StateDone           State = "DONE"
)

// Retriever proposes candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, queryText string, topK int, docs *models.DocumentIndex) ([]retrieval.Candidate, error)
}

// Selector picks one candidate.
type Selector interface {
	Select(ctx context.Context, candidates []retrieval.Candidate, docs *models.DocumentIndex, cfg models.DocConfig) (*models.SelectionDecision, error)
}

// Reformatter cleans the selected element's markup.
type Reformatter interface {
	Reformat(ctx context.Context, raw string) (string, error)
}

// Orchestrator sequences query formatting, retrieval, selection, content
// resolution and reformatting. It holds no per-run state, so one
// Orchestrator may serve concurrent runs.
type Orchestrator struct {
	retriever   Retriever
	selector    Selector
	reformatter Reformatter
	topK        int
	recorder    store.RunRecorder
	logger      *zap.Logger
}

// NewOrchestrator creates an orchestrator with all required stages.
func NewOrchestrator(retriever Retriever, selector Selector, reformatter Reformatter, topK int, logger *zap.Logger) *Orchestrator {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		retriever:   retriever,
		selector:    selector,
		reformatter: reformatter,
		topK:        topK,
		logger:      logger,
	}
}

// SetRecorder allows injecting an audit recorder. Recording failures are
// logged and never change the result.
func (o *Orchestrator) SetRecorder(recorder store.RunRecorder) {
	o.recorder = recorder
}

type run struct {
	id     string
	start  time.Time
	state  State
	logger *zap.Logger
}

func (r *run) enter(s State) {
	r.state = s
	r.logger.Debug("state", zap.String("state", string(s)), zap.Duration("elapsed", time.Since(r.start)))
}

// Run executes the pipeline for one request over documents. It returns the
// first stage error unchanged and never a partial result.
func (o *Orchestrator) Run(ctx context.Context, documents []models.Element, cfg models.DocConfig) (*models.PipelineResult, error) {
	r := &run{id: uuid.NewString(), start: time.Now()}
	r.logger = o.logger.With(zap.String("run_id", r.id))
	r.logger.Info("pipeline started",
		zap.String("company", cfg.CompanyName),
		zap.String("document", cfg.DocumentName),
		zap.String("document_type", cfg.DocumentType),
		zap.String("report_type", cfg.ReportType),
		zap.Int("elements", len(documents)))

	result, rec, err := o.run(ctx, r, documents, cfg)
	if err != nil {
		r.logger.Warn("pipeline failed",
			zap.String("state", string(r.state)),
			zap.String("kind", string(failure.KindOf(err))),
			zap.Duration("elapsed", time.Since(r.start)),
			zap.Error(err))
		return nil, err
	}

	r.enter(StateDone)
	r.logger.Info("pipeline complete",
		zap.String("element_id", rec.ElementID),
		zap.Duration("elapsed", rec.Duration))

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, rec); err != nil {
			r.logger.Warn("failed to record run", zap.Error(err))
		}
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, r *run, documents []models.Element, cfg models.DocConfig) (*models.PipelineResult, *models.RunRecord, error) {
	if missing := cfg.MissingFields(); len(missing) > 0 {
		return nil, nil, failure.New(failure.KindConfigInvalid, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if len(documents) == 0 {
		return nil, nil, failure.New(failure.KindConfigInvalid, "document array is empty")
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, nil, err
	}
	docs := models.NewDocumentIndex(documents)

	// 1. Query
	r.enter(StateFormatQuery)
	q := query.Format(cfg)

	// 2. Retrieval
	r.enter(StateRetrieve)
	candidates, err := o.retriever.Retrieve(ctx, q, o.topK, docs)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Element.ElementID
	}
	r.logger.Debug("candidates retrieved", zap.Strings("element_ids", ids))

	// 3. Selection
	r.enter(StateSelect)
	decision, err := o.selector.Select(ctx, candidates, docs, cfg)
	if err != nil {
		return nil, nil, err
	}

	// 4. Resolution
	r.enter(StateResolveContent)
	el, ok := docs.Lookup(decision.ElementID)
	if !ok {
		return nil, nil, failure.New(failure.KindSelectionUnresolved,
			"element_id %q is not in the document array", decision.ElementID)
	}
	if strings.TrimSpace(el.RawContent) == "" {
		return nil, nil, failure.New(failure.KindMissingSourceContent,
			"element %s has no raw content", el.ElementID)
	}

	// 5. Reformat
	r.enter(StateReformat)
	reformatted, err := o.reformatter.Reformat(ctx, el.RawContent)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(reformatted) == "" {
		return nil, nil, failure.New(failure.KindReformatParseFailed, "reformatted content is empty")
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, nil, err
	}

	result := &models.PipelineResult{
		OriginalContent:    el.RawContent,
		ReformattedContent: reformatted,
	}
	rec := &models.RunRecord{
		RunID:              r.id,
		Config:             cfg,
		ElementID:          el.ElementID,
		SourceName:         el.SourceName,
		Candidates:         ids,
		OriginalContent:    result.OriginalContent,
		ReformattedContent: result.ReformattedContent,
		StartedAt:          r.start,
		Duration:           time.Since(r.start),
	}
	return result, rec, nil
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return failure.Wrap(failure.KindCancelled, err, "run cancelled")
	}
	return nil
}
