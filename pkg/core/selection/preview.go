package selection

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"statement_extraction/pkg/core/retrieval"
	"statement_extraction/pkg/core/utils"
)

// PreviewLength caps a candidate preview, in runes.
const PreviewLength = 300

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// candidatePreview picks the index preview, then the element's metadata
// preview, then a markdown rendering of the raw markup.
func candidatePreview(c retrieval.Candidate) string {
	text := c.Preview
	if strings.TrimSpace(text) == "" {
		text = c.Element.Preview()
	}
	if strings.TrimSpace(text) == "" && c.Element != nil {
		text = markupPreview(c.Element.RawContent)
	}
	return utils.Truncate(collapseSpace(text), PreviewLength)
}

func markupPreview(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	md, err := mdConverter.ConvertString(raw)
	if err != nil {
		// malformed markup still makes a usable preview
		return raw
	}
	return md
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RenderCandidates formats candidates as fixed text blocks in candidate
// order, separated by blank lines.
func RenderCandidates(candidates []retrieval.Candidate) string {
	blocks := make([]string, 0, len(candidates))
	for _, c := range candidates {
		var b strings.Builder
		b.WriteString("Element ID: ")
		b.WriteString(c.Element.ElementID)
		b.WriteString("\nSource: ")
		b.WriteString(c.Element.SourceName)
		b.WriteString("\nPreview: ")
		b.WriteString(candidatePreview(c))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
