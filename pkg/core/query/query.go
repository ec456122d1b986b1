// Package query renders the semantic search question for a statement request.
package query

import (
	"fmt"

	"statement_extraction/pkg/models"
)

// Format returns the natural-language question used for retrieval.
// It does not validate cfg.
func Format(cfg models.DocConfig) string {
	return fmt.Sprintf("What is the %s of %s reported in the %s filing %s?",
		cfg.ReportType, cfg.CompanyName, cfg.DocumentType, cfg.DocumentName)
}
