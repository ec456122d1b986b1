// Package reformat asks a language model to repair the markup of a selected
// statement table and verifies that no figure was lost on the way.
package reformat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"statement_extraction/pkg/core/failure"
	"statement_extraction/pkg/core/fidelity"
	"statement_extraction/pkg/core/llm"
	"statement_extraction/pkg/core/prompt"
	"statement_extraction/pkg/core/utils"
)

type response struct {
	ReformattedContent string `json:"reformatted_content"`
}

// Options tunes a Reformatter.
type Options struct {
	OutputFormat           fidelity.Format // html (default) or markdown
	EnforceNumericFidelity bool
	Timeout                time.Duration // per model call, zero disables
}

// Reformatter runs the cleanup step.
type Reformatter struct {
	model   llm.LanguageModel
	prompts *prompt.Registry
	opts    Options
	logger  *zap.Logger
}

// NewReformatter creates a reformatter. A nil registry means prompt.Default().
func NewReformatter(model llm.LanguageModel, prompts *prompt.Registry, opts Options, logger *zap.Logger) *Reformatter {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = fidelity.FormatHTML
	}
	return &Reformatter{model: model, prompts: prompts, opts: opts, logger: logger}
}

// Reformat returns cleaned markup for raw. The model is called once.
func (r *Reformatter) Reformat(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", failure.New(failure.KindMissingSourceContent, "nothing to reformat")
	}

	pctx := prompt.NewContext().
		Set("RawContent", raw).
		Set("OutputFormat", formatLabel(r.opts.OutputFormat))
	system, user, err := r.prompts.Render(prompt.PromptIDs.ReformatTable, pctx)
	if err != nil {
		return "", failure.Wrap(failure.KindConfigInvalid, err, "render reformat prompt")
	}

	callCtx, cancel := withTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := r.model.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: system,
		Prompt:       user,
		Temperature:  0,
		JSON:         true,
	})
	if err != nil {
		return "", failure.Classify(ctx, err, "reformat model call")
	}
	if ctx.Err() != nil {
		return "", failure.Wrap(failure.KindCancelled, ctx.Err(), "reformat interrupted")
	}
	r.logger.Debug("reformat reply",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("reply_chars", len(reply)))

	var resp response
	if err := utils.DecodeModelJSON(reply, &resp); err != nil {
		return "", failure.Wrap(failure.KindReformatParseFailed, err, "reformat reply")
	}

	content, err := r.finish(resp.ReformattedContent)
	if err != nil {
		return "", err
	}
	if fidelity.HasTable(raw, fidelity.FormatHTML) && !fidelity.HasTable(content, r.opts.OutputFormat) {
		return "", failure.New(failure.KindReformatParseFailed, "reformatted content lost its table structure")
	}

	if r.opts.EnforceNumericFidelity {
		report, err := fidelity.CompareNumeric(raw, content, r.opts.OutputFormat)
		if err != nil {
			return "", failure.Wrap(failure.KindReformatParseFailed, err, "inspect reformatted content")
		}
		if !report.OK() {
			r.logger.Warn("reformatted content lost figures",
				zap.Strings("missing", report.Missing),
				zap.Int("source_tokens", len(report.SourceTokens)))
			return "", failure.New(failure.KindNumericDrift,
				"figures missing from reformatted content: %s", strings.Join(report.Missing, ", "))
		}
	}
	return content, nil
}

// finish normalises model content for the configured format.
func (r *Reformatter) finish(content string) (string, error) {
	switch r.opts.OutputFormat {
	case fidelity.FormatMarkdown:
		content = utils.CleanMarkdown(content)
	default:
		content = strings.TrimSpace(fidelity.SanitizeHTML(utils.StripCodeFence(content)))
	}
	if content == "" {
		return "", failure.New(failure.KindReformatParseFailed, "reformatted_content is empty after cleanup")
	}
	return content, nil
}

func formatLabel(f fidelity.Format) string {
	switch f {
	case fidelity.FormatMarkdown:
		return "Markdown"
	case fidelity.FormatHTML:
		return "HTML"
	default:
		return string(f)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
