package reformat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"statement_extraction/pkg/core/failure"
	"statement_extraction/pkg/core/fidelity"
	"statement_extraction/pkg/core/llm"
)

type MockModel struct {
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (string, error)
	Requests     []llm.CompletionRequest
}

func (m *MockModel) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

func replyWith(content string) func(context.Context, llm.CompletionRequest) (string, error) {
	return func(context.Context, llm.CompletionRequest) (string, error) {
		b, _ := json.Marshal(map[string]string{"reformatted_content": content})
		return string(b), nil
	}
}

const scenarioTable = "<table><tr><td>Total Assets</td><td>500</td></tr></table>"

func TestReformat(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		opts     Options
		reply    func(context.Context, llm.CompletionRequest) (string, error)
		want     string
		wantKind failure.Kind
	}{
		{
			name:  "clean table passes through",
			raw:   scenarioTable,
			opts:  Options{EnforceNumericFidelity: true},
			reply: replyWith(scenarioTable),
			want:  scenarioTable,
		},
		{
			name:  "malformed table repaired",
			raw:   "<table><tr><td>Cash<td>1,234.56<tr><td>Margin<td>42%</table>",
			opts:  Options{EnforceNumericFidelity: true},
			reply: replyWith("<table><tr><td>Cash</td><td>1,234.56</td></tr><tr><td>Margin</td><td>42%</td></tr></table>"),
			want:  "<table><tr><td>Cash</td><td>1,234.56</td></tr><tr><td>Margin</td><td>42%</td></tr></table>",
		},
		{
			name:  "script removed from output",
			raw:   scenarioTable,
			reply: replyWith(scenarioTable + "<script>alert(1)</script>"),
			want:  scenarioTable,
		},
		{
			name:  "markdown output",
			raw:   scenarioTable,
			opts:  Options{OutputFormat: fidelity.FormatMarkdown, EnforceNumericFidelity: true},
			reply: replyWith("```markdown\n| Item | Value |\n|---|---|\n| Total Assets | 500 |\n```"),
			want:  "| Item | Value |\n|---|---|\n| Total Assets | 500 |",
		},
		{
			name:     "rounded figure rejected",
			raw:      "<table><tr><td>Cash</td><td>1,234.56</td></tr></table>",
			opts:     Options{EnforceNumericFidelity: true},
			reply:    replyWith("<table><tr><td>Cash</td><td>1,235</td></tr></table>"),
			wantKind: failure.KindNumericDrift,
		},
		{
			name:     "sign dropped rejected",
			raw:      "<table><tr><td>Net loss</td><td>-500</td></tr></table>",
			opts:     Options{EnforceNumericFidelity: true},
			reply:    replyWith("<table><tr><td>Net loss</td><td>500</td></tr></table>"),
			wantKind: failure.KindNumericDrift,
		},
		{
			name:     "accounting parentheses dropped rejected",
			raw:      "<table><tr><td>Net loss</td><td>(500)</td></tr></table>",
			opts:     Options{EnforceNumericFidelity: true},
			reply:    replyWith("<table><tr><td>Net loss</td><td>500</td></tr></table>"),
			wantKind: failure.KindNumericDrift,
		},
		{
			name:     "leading-dot decimal rewritten rejected",
			raw:      "<table><tr><td>EPS</td><td>.75</td></tr></table>",
			opts:     Options{EnforceNumericFidelity: true},
			reply:    replyWith("<table><tr><td>EPS</td><td>75</td></tr></table>"),
			wantKind: failure.KindNumericDrift,
		},
		{
			name:     "duplicate row dropped rejected",
			raw:      "<table><tr><td>Q1</td><td>500</td></tr><tr><td>Q2</td><td>500</td></tr></table>",
			opts:     Options{EnforceNumericFidelity: true},
			reply:    replyWith("<table><tr><td>Q1</td><td>500</td></tr></table>"),
			wantKind: failure.KindNumericDrift,
		},
		{
			name:  "negative figures kept",
			raw:   "<table><tr><td>Net loss</td><td>(500)</td><td>-12.5%</td></tr></table>",
			opts:  Options{EnforceNumericFidelity: true},
			reply: replyWith("<table><tr><td>Net loss</td><td>(500)</td><td>-12.5%</td></tr></table>"),
			want:  "<table><tr><td>Net loss</td><td>(500)</td><td>-12.5%</td></tr></table>",
		},
		{
			name:     "table flattened to paragraph",
			raw:      scenarioTable,
			opts:     Options{EnforceNumericFidelity: true},
			reply:    replyWith("<p>500</p>"),
			wantKind: failure.KindReformatParseFailed,
		},
		{
			name:     "markdown reply without a table",
			raw:      scenarioTable,
			opts:     Options{OutputFormat: fidelity.FormatMarkdown},
			reply:    replyWith("Total Assets: 500"),
			wantKind: failure.KindReformatParseFailed,
		},
		{
			name:  "drift tolerated when enforcement off",
			raw:   "<table><tr><td>Cash</td><td>1,234.56</td></tr></table>",
			reply: replyWith("<table><tr><td>Cash</td><td>1,235</td></tr></table>"),
			want:  "<table><tr><td>Cash</td><td>1,235</td></tr></table>",
		},
		{
			name: "prose reply",
			raw:  scenarioTable,
			reply: func(context.Context, llm.CompletionRequest) (string, error) {
				return "Here is the cleaned table: <table></table>", nil
			},
			wantKind: failure.KindReformatParseFailed,
		},
		{
			name: "missing reformatted_content",
			raw:  scenarioTable,
			reply: func(context.Context, llm.CompletionRequest) (string, error) {
				return `{"content":"<table></table>"}`, nil
			},
			wantKind: failure.KindReformatParseFailed,
		},
		{
			name:     "content empty after sanitising",
			raw:      scenarioTable,
			reply:    replyWith("<script>alert(1)</script>"),
			wantKind: failure.KindReformatParseFailed,
		},
		{
			name: "upstream failure",
			raw:  scenarioTable,
			reply: func(context.Context, llm.CompletionRequest) (string, error) {
				return "", errors.New("503 service unavailable")
			},
			wantKind: failure.KindUpstreamUnavailable,
		},
		{
			name:     "empty input",
			raw:      "  ",
			reply:    replyWith(scenarioTable),
			wantKind: failure.KindMissingSourceContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &MockModel{CompleteFunc: tt.reply}
			r := NewReformatter(model, nil, tt.opts, nil)

			got, err := r.Reformat(context.Background(), tt.raw)
			if tt.wantKind != "" {
				if failure.KindOf(err) != tt.wantKind {
					t.Fatalf("error kind = %s, want %s (err=%v)", failure.KindOf(err), tt.wantKind, err)
				}
				if got != "" {
					t.Errorf("no content expected on failure, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reformat() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Reformat() = %q, want %q", got, tt.want)
			}
			if len(model.Requests) != 1 {
				t.Errorf("model called %d times, want 1", len(model.Requests))
			}
		})
	}
}

func TestReformatRequest(t *testing.T) {
	model := &MockModel{CompleteFunc: replyWith(scenarioTable)}
	r := NewReformatter(model, nil, Options{}, nil)

	if _, err := r.Reformat(context.Background(), scenarioTable); err != nil {
		t.Fatal(err)
	}
	req := model.Requests[0]
	if req.Temperature != 0 || !req.JSON {
		t.Errorf("request must be temperature 0 JSON mode: %+v", req)
	}
	for _, want := range []string{scenarioTable, "HTML", "critically accurate", `"reformatted_content"`} {
		if !strings.Contains(req.Prompt+req.SystemPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestReformatTimeout(t *testing.T) {
	model := &MockModel{CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	r := NewReformatter(model, nil, Options{Timeout: 10 * time.Millisecond}, nil)

	_, err := r.Reformat(context.Background(), scenarioTable)
	if !errors.Is(err, failure.ErrUpstreamTimeout) {
		t.Fatalf("expected UPSTREAM_TIMEOUT, got %v", err)
	}
}

// A faithful model (echoing the source rows in clean markup) must keep
// every numeric token of the raw input.
func TestRoundTripPreservesNumericTokens(t *testing.T) {
	inputs := []string{
		scenarioTable,
		"<table><tr><th>As of</th><th>September 28, 2024</th></tr><tr><td>Cash</td><td>$ 29,943</td></tr><tr><td>Debt</td><td>(1,234.56)</td></tr></table>",
		"<table><tr><td>Gross margin<td>46.2%<tr><td>Shares<td>15,204,137</table>",
		"<div><table><tr><td>Total</td><td>0.5</td><td>100</td></tr></table></div>",
		"<table><tr><td>Net loss</td><td>(500)</td><td>-42</td><td>.75</td><td>500</td></tr></table>",
	}

	for _, raw := range inputs {
		t.Run(raw[:20], func(t *testing.T) {
			model := &MockModel{CompleteFunc: func(_ context.Context, req llm.CompletionRequest) (string, error) {
				return echoReply(t, raw)
			}}
			r := NewReformatter(model, nil, Options{EnforceNumericFidelity: true}, nil)

			got, err := r.Reformat(context.Background(), raw)
			if err != nil {
				t.Fatalf("Reformat() error = %v", err)
			}

			srcText, _ := fidelity.VisibleText(raw)
			outText, _ := fidelity.VisibleText(got)
			outTokens := map[string]bool{}
			for _, tok := range fidelity.NumericTokens(outText) {
				outTokens[tok] = true
			}
			for _, tok := range fidelity.NumericTokens(srcText) {
				if !outTokens[tok] {
					t.Errorf("numeric token %q lost in %q", tok, got)
				}
			}
		})
	}
}

// echoReply rebuilds raw as well-formed HTML through its visible text,
// the way a faithful model would.
func echoReply(t *testing.T, raw string) (string, error) {
	t.Helper()
	text, err := fidelity.VisibleText(raw)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<table><tbody>")
	for _, cell := range strings.Split(text, " ") {
		b.WriteString("<tr><td>" + cell + "</td></tr>")
	}
	b.WriteString("</tbody></table>")
	out, err := json.Marshal(map[string]string{"reformatted_content": b.String()})
	return string(out), err
}
