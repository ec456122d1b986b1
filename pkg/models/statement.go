package models

import (
	"fmt"
	"strings"
)

// DocConfig describes the statement a caller wants extracted from one filing.
// All four fields are required.
type DocConfig struct {
	DocumentName string `json:"document_name" yaml:"document_name"` // e.g. "aapl-10q-2024q3.pdf"
	CompanyName  string `json:"company_name" yaml:"company_name"`   // e.g. "Apple Inc."
	DocumentType string `json:"document_type" yaml:"document_type"` // e.g. "10-Q"
	ReportType   string `json:"report_type" yaml:"report_type"`     // e.g. "Balance Sheet"
}

// MissingFields returns the JSON names of empty fields, in declaration order.
func (c DocConfig) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(c.DocumentName) == "" {
		missing = append(missing, "document_name")
	}
	if strings.TrimSpace(c.CompanyName) == "" {
		missing = append(missing, "company_name")
	}
	if strings.TrimSpace(c.DocumentType) == "" {
		missing = append(missing, "document_type")
	}
	if strings.TrimSpace(c.ReportType) == "" {
		missing = append(missing, "report_type")
	}
	return missing
}

// String is used in log fields.
func (c DocConfig) String() string {
	return fmt.Sprintf("%s %s %s (%s)", c.CompanyName, c.DocumentType, c.ReportType, c.DocumentName)
}

// Element is one indexed content chunk of a parsed filing.
// Elements are produced upstream and treated as read-only here.
type Element struct {
	ElementID  string         `json:"element_id"`
	SourceName string         `json:"source_name"` // originating file name
	RawContent string         `json:"raw_content"` // original markup, possibly malformed
	Embedding  []float32      `json:"embedding,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Preview returns the short text preview carried in metadata, if any.
func (e *Element) Preview() string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	for _, key := range []string{"preview", "text_preview", "text_as_html_preview"} {
		if v, ok := e.Metadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SelectionDecision is the model's choice of the element holding the statement.
type SelectionDecision struct {
	ElementID  string `json:"element_id"`
	SourceName string `json:"filename"`
}

// PipelineResult is the only value a successful run produces.
type PipelineResult struct {
	OriginalContent    string `json:"original_content"`
	ReformattedContent string `json:"reformatted_content"`
}
