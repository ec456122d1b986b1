package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	r := Default()

	for _, id := range []string{PromptIDs.SelectionDisambiguate, PromptIDs.SelectionReminder, PromptIDs.ReformatTable} {
		if _, err := r.GetPrompt(id); err != nil {
			t.Errorf("missing builtin %s: %v", id, err)
		}
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}

func TestRenderDisambiguation(t *testing.T) {
	r := Default()
	ctx := NewContext().
		Set("CompanyName", "Acme Corp").
		Set("DocumentType", "10-Q").
		Set("DocumentName", "acme-q3.pdf").
		Set("ReportType", "Balance Sheet").
		Set("Candidates", "Element ID: e1")

	system, user, err := r.Render(PromptIDs.SelectionDisambiguate, ctx)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if system == "" {
		t.Error("expected a system prompt")
	}
	for _, want := range []string{"Acme Corp's 10-Q", "Balance Sheet", "Element ID: e1", `"element_id"`, `"filename"`} {
		if !strings.Contains(user, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, user)
		}
	}
}

func TestRenderMissingVariable(t *testing.T) {
	r := Default()
	ctx := NewContext().Set("RawContent", "<table></table>")

	if _, _, err := r.Render(PromptIDs.ReformatTable, ctx); err == nil {
		t.Fatal("expected error for missing OutputFormat")
	}
}

func TestLoadFromDirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "reformat")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	hjsonPrompt := `{
  # comments are allowed in hjson prompt files
  system_prompt: Be exact.
  user_prompt_template: "Clean {{.RawContent}} as {{.OutputFormat}}"
}`
	if err := os.WriteFile(filepath.Join(sub, "table.hjson"), []byte(hjsonPrompt), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := Default()
	n, err := LoadFromDirectory(r, dir)
	if err != nil {
		t.Fatalf("LoadFromDirectory() error = %v", err)
	}
	if n != 1 {
		t.Errorf("loaded %d prompts, want 1", n)
	}

	pt, err := r.GetPrompt("reformat.table")
	if err != nil {
		t.Fatalf("override not registered: %v", err)
	}
	if pt.SystemPrompt != "Be exact." || pt.Category != "reformat" {
		t.Errorf("unexpected override: %+v", pt)
	}

	_, user, err := r.Render("reformat.table", NewContext().Set("RawContent", "<td>1</td>").Set("OutputFormat", "HTML"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if user != "Clean <td>1</td> as HTML" {
		t.Errorf("user prompt = %q", user)
	}
}

func TestLoadFromDirectoryMissing(t *testing.T) {
	if _, err := LoadFromDirectory(NewRegistry(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}
