package prompt

// PromptIDs contains all known prompt identifiers
var PromptIDs = struct {
	SelectionDisambiguate string
	SelectionReminder     string
	ReformatTable         string
}{
	SelectionDisambiguate: "selection.disambiguate",
	SelectionReminder:     "selection.reminder",
	ReformatTable:         "reformat.table",
}

func builtins() []*PromptTemplate {
	return []*PromptTemplate{
		{
			ID:          PromptIDs.SelectionDisambiguate,
			Name:        "Statement element disambiguation",
			Category:    "selection",
			Description: "Pick the one retrieved element that holds the requested statement.",
			SystemPrompt: `You are a Senior Financial Analyst reviewing elements extracted from an SEC filing.
You identify which single element contains a requested financial statement table.
You answer with JSON only.`,
			UserPromptTmpl: `The following candidate elements were retrieved from {{.CompanyName}}'s {{.DocumentType}} ({{.DocumentName}}).

{{.Candidates}}

Pick exactly one candidate that contains the {{.ReportType}} for {{.CompanyName}}'s {{.DocumentType}}.
Prefer the primary statement table over notes, footnotes, or tables of contents that merely mention it.

Respond ONLY with a JSON object of this exact form:
{"element_id": "<element id of the chosen candidate>", "filename": "<source name of the chosen candidate>"}
Do not add prose, explanations, or code fences.`,
			Variables: []PromptVariable{
				{Name: "CompanyName", Required: true},
				{Name: "DocumentType", Required: true},
				{Name: "DocumentName", Required: true},
				{Name: "ReportType", Required: true},
				{Name: "Candidates", Required: true, Description: "rendered candidate blocks"},
			},
			Version: "1",
		},
		{
			ID:          PromptIDs.SelectionReminder,
			Name:        "Statement element disambiguation (strict retry)",
			Category:    "selection",
			Description: "Second and last attempt after an unparseable disambiguation answer.",
			SystemPrompt: `You are a Senior Financial Analyst reviewing elements extracted from an SEC filing.
You answer with a single JSON object and nothing else.`,
			UserPromptTmpl: `{{.Prompt}}

IMPORTANT: your previous reply could not be parsed. Reply with exactly one JSON object
{"element_id": "...", "filename": "..."} and no other characters before or after it.`,
			Variables: []PromptVariable{
				{Name: "Prompt", Required: true, Description: "the original disambiguation prompt"},
			},
			Version: "1",
		},
		{
			ID:          PromptIDs.ReformatTable,
			Name:        "Statement table reformatting",
			Category:    "reformat",
			Description: "Repair malformed statement markup without changing any value.",
			SystemPrompt: `You are an expert Financial Analyst and Auditor (CPA) who cleans up financial statement tables.
You must be critically accurate to the underlying data.`,
			UserPromptTmpl: `Below is the raw {{.OutputFormat}} markup of a financial statement table extracted from a filing.
The markup may be malformed: unclosed tags, missing cells, broken rows, or inconsistent spacing.

RAW CONTENT:
{{.RawContent}}

Rewrite it as clean, well-formed {{.OutputFormat}} with proper rows, header cells, and indentation of line items.
Rules:
1. Stay critically accurate to the underlying data.
2. Do not alter, round, invent, reorder, or drop any number, label, date, or currency sign.
3. Keep every row and every column of the original.
4. Only fix structure and formatting.

Respond ONLY with a JSON object of this exact form:
{"reformatted_content": "<the cleaned {{.OutputFormat}}>"}
Do not add prose, explanations, or code fences.`,
			Variables: []PromptVariable{
				{Name: "RawContent", Required: true},
				{Name: "OutputFormat", Required: true, Description: "HTML or Markdown"},
			},
			Version: "1",
		},
	}
}
