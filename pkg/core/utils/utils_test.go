package utils

import (
	"strings"
	"testing"
)

type decision struct {
	ElementID string `json:"element_id"`
	Filename  string `json:"filename,omitempty"`
}

func TestDecodeModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  string
		wantErr string
	}{
		{name: "bare object", input: `{"element_id":"e1","filename":"f.pdf"}`, wantID: "e1"},
		{name: "surrounding whitespace", input: "\n  {\"element_id\": \"e2\"}  \n", wantID: "e2"},
		{name: "json code fence", input: "```json\n{\"element_id\":\"e3\"}\n```", wantID: "e3"},
		{name: "extra keys tolerated", input: `{"element_id":"e4","confidence":0.9}`, wantID: "e4"},
		{name: "empty", input: "   ", wantErr: "JSON_EMPTY_RESPONSE"},
		{name: "prose", input: "The balance sheet is element e1.", wantErr: "JSON_NOT_OBJECT"},
		{name: "prose before object", input: `Sure! {"element_id":"e1"}`, wantErr: "JSON_NOT_OBJECT"},
		{name: "invalid json", input: `{"element_id": e1}`, wantErr: "JSON_STRUCTURAL_ERROR"},
		{name: "two objects", input: `{"element_id":"e1"} {"element_id":"e2"}`, wantErr: "JSON_TRAILING_DATA"},
		{name: "missing required", input: `{"filename":"f.pdf"}`, wantErr: "JSON_SCHEMA_VIOLATION"},
		{name: "blank required", input: `{"element_id":"  "}`, wantErr: "JSON_SCHEMA_VIOLATION"},
		{name: "wrong type", input: `{"element_id": 7}`, wantErr: "JSON_STRUCTURAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d decision
			err := DecodeModelJSON(tt.input, &d)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("DecodeModelJSON() error = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeModelJSON() unexpected error = %v", err)
			}
			if d.ElementID != tt.wantID {
				t.Errorf("ElementID = %q, want %q", d.ElementID, tt.wantID)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```markdown\n| a | b |\n```": "| a | b |",
		"```\n{}\n```":               "{}",
		"  plain  ":                  "plain",
		"```":                        "```",
	}
	for in, want := range tests {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderMarkdownTable(t *testing.T) {
	md := "| Item | 2024 |\n|---|---|\n| Total Assets | 1,234.56 |\n"
	html, err := RenderMarkdown(md)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "1,234.56") {
		t.Errorf("expected rendered table, got %s", html)
	}
}
