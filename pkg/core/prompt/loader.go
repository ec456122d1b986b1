package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	hjson "github.com/hjson/hjson-go/v4"
)

// LoadFromDirectory registers every .json and .hjson prompt file under dir,
// overriding templates with the same ID.
// Expected structure:
//
//	dir/
//	  selection/
//	    disambiguate.hjson
//	  reformat/
//	    table.json
func LoadFromDirectory(r *Registry, dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("prompts directory not found: %s", dir)
	}

	loaded := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		ext := filepath.Ext(path)
		if info.IsDir() || (ext != ".json" && ext != ".hjson") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		// Hjson is a superset of JSON, so one decoder covers both.
		var pt PromptTemplate
		if err := hjson.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		if pt.ID == "" {
			pt.ID = generateIDFromPath(path, dir)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(path, dir)
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		loaded++
		return nil
	})
	return loaded, err
}

// generateIDFromPath creates a prompt ID from the file path
// e.g., "prompts/selection/disambiguate.hjson" -> "selection.disambiguate"
func generateIDFromPath(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}

// detectCategory extracts the category from the folder structure
func detectCategory(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context.
// Referencing a variable that was not set is an error.
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	for _, v := range pt.Variables {
		if !v.Required {
			continue
		}
		if _, ok := ctx.Variables[v.Name]; !ok {
			return "", fmt.Errorf("prompt %s: missing required variable %s", pt.ID, v.Name)
		}
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// Render looks up id and renders its user prompt, returning the system
// prompt alongside.
func (r *Registry) Render(id string, ctx *PromptExecutionContext) (system string, user string, err error) {
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", "", err
	}
	user, err = RenderUserPrompt(pt, ctx)
	if err != nil {
		return "", "", err
	}
	return pt.SystemPrompt, user, nil
}
