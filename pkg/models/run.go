package models

import "time"

// RunRecord is the audit entry written after a successful pipeline run.
type RunRecord struct {
	RunID              string        `json:"run_id"`
	Config             DocConfig     `json:"config"`
	ElementID          string        `json:"element_id"`
	SourceName         string        `json:"source_name"`
	Candidates         []string      `json:"candidates"` // retrieved element ids in rank order
	OriginalContent    string        `json:"original_content"`
	ReformattedContent string        `json:"reformatted_content"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration_ns"`
}
