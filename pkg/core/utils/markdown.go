package utils

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// StripCodeFence trims whitespace and removes one outer code fence
// (```json ... ``` or ``` ... ```) when it wraps the whole string.
func StripCodeFence(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") || len(cleaned) < 6 {
		return cleaned
	}

	inner := strings.TrimSuffix(cleaned, "```")
	// drop the opening fence line including any language tag
	if nl := strings.Index(inner, "\n"); nl >= 0 {
		inner = inner[nl+1:]
	} else {
		inner = strings.TrimPrefix(inner, "```")
	}
	return strings.TrimSpace(inner)
}

// CleanMarkdown strips conversational filler and outer markdown code blocks.
// It ensures the output is pure Markdown ready for rendering.
func CleanMarkdown(input string) string {
	return StripCodeFence(input)
}

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderMarkdown converts GitHub-flavoured markdown (tables included) to HTML.
func RenderMarkdown(input string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(input), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
