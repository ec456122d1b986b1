// Package selection asks a language model which retrieved element holds the
// requested statement and resolves its answer against the document array.
package selection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"statement_extraction/pkg/core/failure"
	"statement_extraction/pkg/core/llm"
	"statement_extraction/pkg/core/prompt"
	"statement_extraction/pkg/core/retrieval"
	"statement_extraction/pkg/core/utils"
	"statement_extraction/pkg/models"
)

// decision is the wire shape of the model's answer. filename is
// informational only; resolution uses element_id.
type decision struct {
	ElementID string `json:"element_id"`
	Filename  string `json:"filename,omitempty"`
}

// Options tunes a Selector.
type Options struct {
	Retry   bool          // one extra attempt with a stricter prompt after a parse failure
	Timeout time.Duration // per model call, zero disables
}

// Selector runs the disambiguation step.
type Selector struct {
	model   llm.LanguageModel
	prompts *prompt.Registry
	opts    Options
	logger  *zap.Logger
}

// NewSelector creates a selector. A nil registry means prompt.Default().
func NewSelector(model llm.LanguageModel, prompts *prompt.Registry, opts Options, logger *zap.Logger) *Selector {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{model: model, prompts: prompts, opts: opts, logger: logger}
}

// Select picks exactly one element for cfg among candidates.
// The model's element_id is resolved against docs, not only the candidate
// set. An unparseable answer is never replaced by the top-ranked candidate.
func (s *Selector) Select(ctx context.Context, candidates []retrieval.Candidate, docs *models.DocumentIndex, cfg models.DocConfig) (*models.SelectionDecision, error) {
	if len(candidates) == 0 {
		return nil, failure.New(failure.KindRetrievalFailed, "no candidates to select from")
	}

	pctx := prompt.NewContext().
		Set("CompanyName", cfg.CompanyName).
		Set("DocumentType", cfg.DocumentType).
		Set("DocumentName", cfg.DocumentName).
		Set("ReportType", cfg.ReportType).
		Set("Candidates", RenderCandidates(candidates))

	system, user, err := s.prompts.Render(prompt.PromptIDs.SelectionDisambiguate, pctx)
	if err != nil {
		return nil, failure.Wrap(failure.KindConfigInvalid, err, "render disambiguation prompt")
	}

	raw, err := s.ask(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var d decision
	parseErr := utils.DecodeModelJSON(raw, &d)

	if parseErr != nil && s.opts.Retry {
		s.logger.Warn("selection reply unparseable, retrying with reminder",
			zap.Error(parseErr))

		rsys, ruser, err := s.prompts.Render(prompt.PromptIDs.SelectionReminder,
			prompt.NewContext().Set("Prompt", user))
		if err != nil {
			return nil, failure.Wrap(failure.KindConfigInvalid, err, "render reminder prompt")
		}
		raw, err = s.ask(ctx, rsys, ruser)
		if err != nil {
			return nil, err
		}
		d = decision{}
		parseErr = utils.DecodeModelJSON(raw, &d)
	}
	if parseErr != nil {
		return nil, failure.Wrap(failure.KindSelectionParseFailed, parseErr, "disambiguation reply")
	}

	el, ok := docs.Lookup(d.ElementID)
	if !ok {
		return nil, failure.New(failure.KindSelectionUnresolved,
			"element_id %q is not in the document array", d.ElementID)
	}
	if !inCandidates(candidates, d.ElementID) {
		s.logger.Warn("selected element was not among retrieved candidates",
			zap.String("element_id", d.ElementID),
			zap.Int("candidates", len(candidates)))
	}
	if d.Filename != "" && d.Filename != el.SourceName {
		s.logger.Debug("model filename differs from element source",
			zap.String("filename", d.Filename),
			zap.String("source_name", el.SourceName))
	}

	return &models.SelectionDecision{ElementID: el.ElementID, SourceName: el.SourceName}, nil
}

// ask makes one model call and returns the raw reply.
func (s *Selector) ask(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.model.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: system,
		Prompt:       user,
		Temperature:  0,
		JSON:         true,
	})
	if err != nil {
		return "", failure.Classify(ctx, err, "selection model call")
	}
	if ctx.Err() != nil {
		return "", failure.Wrap(failure.KindCancelled, ctx.Err(), "selection interrupted")
	}

	s.logger.Debug("selection reply", zap.String("raw", utils.Truncate(raw, 200)))
	return raw, nil
}

func inCandidates(candidates []retrieval.Candidate, id string) bool {
	for _, c := range candidates {
		if c.Element != nil && c.Element.ElementID == id {
			return true
		}
	}
	return false
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
