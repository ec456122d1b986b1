// Package fidelity checks that cleaned statement markup still carries every
// figure of its source.
package fidelity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"statement_extraction/pkg/core/utils"
)

// numericToken matches maximal figures such as 500, -500, (1,234.56), .75
// and 42%. Unbalanced parentheses are dropped by normalizeToken.
var numericToken = regexp.MustCompile(`(?:\(|[-−])?(?:\d[\d,]*(?:\.\d+)?|\.\d+)%?\)?`)

// Format of the markup being inspected.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// NumericTokens returns the distinct numeric tokens of text in first-seen order.
func NumericTokens(text string) []string {
	order, _ := tokenCounts(text)
	return order
}

// tokenCounts returns the distinct tokens of text in first-seen order and
// how often each occurs.
func tokenCounts(text string) ([]string, map[string]int) {
	var order []string
	counts := make(map[string]int)
	for _, loc := range numericToken.FindAllStringIndex(text, -1) {
		tok := text[loc[0]:loc[1]]
		// Digits glued to a word (h1, Q3, FY2024) are not figures. A sign or
		// parenthesis glued to one (2023-2024) is punctuation, not part of
		// the figure that follows it.
		if prev, _ := utf8.DecodeLastRuneInString(text[:loc[0]]); isWordRune(prev) {
			lead, size := utf8.DecodeRuneInString(tok)
			if !strings.ContainsRune("(-−", lead) {
				continue
			}
			tok = tok[size:]
		}
		tok = normalizeToken(tok)
		if tok == "" {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	return order, counts
}

// normalizeToken folds the unicode minus into '-', drops trailing commas and
// keeps parentheses only when both are present.
func normalizeToken(tok string) string {
	tok = strings.Replace(tok, "−", "-", 1)
	open := strings.HasPrefix(tok, "(")
	closed := strings.HasSuffix(tok, ")")
	body := strings.TrimSuffix(strings.TrimPrefix(tok, "("), ")")
	body = strings.TrimRight(body, ",")
	if body == "" {
		return ""
	}
	if open && closed {
		return "(" + body + ")"
	}
	return body
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// VisibleText returns the text nodes of an HTML fragment joined by spaces,
// skipping script and style bodies. Attribute values are not included.
func VisibleText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}

	var parts []string
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "#text" {
			return
		}
		switch goquery.NodeName(s.Parent()) {
		case "script", "style":
			return
		}
		if txt := strings.TrimSpace(s.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})
	return strings.Join(parts, " "), nil
}

// TextOf returns the visible text of markup in the given format.
func TextOf(markup string, format Format) (string, error) {
	if format == FormatMarkdown {
		html, err := utils.RenderMarkdown(markup)
		if err != nil {
			return "", fmt.Errorf("failed to render markdown: %w", err)
		}
		markup = html
	}
	return VisibleText(markup)
}

// HasTable reports whether markup contains at least one table.
func HasTable(markup string, format Format) bool {
	if format == FormatMarkdown {
		html, err := utils.RenderMarkdown(markup)
		if err != nil {
			return false
		}
		markup = html
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return doc.Find("table").Length() > 0
}

// Report is the outcome of a numeric comparison.
type Report struct {
	SourceTokens []string
	Missing      []string
}

// OK is true when no source figure went missing.
func (r Report) OK() bool { return len(r.Missing) == 0 }

// CompareNumeric checks that every numeric token in source's visible text
// occurs in output's visible text at least as often. The raw source is always
// read as HTML; output is read in outputFormat.
func CompareNumeric(source string, output string, outputFormat Format) (Report, error) {
	srcText, err := VisibleText(source)
	if err != nil {
		return Report{}, err
	}
	outText, err := TextOf(output, outputFormat)
	if err != nil {
		return Report{}, err
	}

	_, have := tokenCounts(outText)
	order, want := tokenCounts(srcText)

	report := Report{SourceTokens: order}
	for _, tok := range order {
		if have[tok] < want[tok] {
			report.Missing = append(report.Missing, tok)
		}
	}
	return report, nil
}
