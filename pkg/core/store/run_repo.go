package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"statement_extraction/pkg/models"
)

// RunRecorder persists the audit entry of a successful run.
type RunRecorder interface {
	Record(ctx context.Context, rec *models.RunRecord) error
}

// Schema assumption:
// CREATE TABLE IF NOT EXISTS extraction_runs (
//   run_id        TEXT PRIMARY KEY,
//   document_name TEXT,
//   company_name  TEXT,
//   document_type TEXT,
//   report_type   TEXT,
//   element_id    TEXT,
//   record        JSONB,
//   created_at    TIMESTAMPTZ DEFAULT NOW()
// );
const insertRunSQL = `
	INSERT INTO extraction_runs (
		run_id, document_name, company_name, document_type, report_type, element_id, record
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (run_id) DO NOTHING`

const selectRunSQL = `SELECT record FROM extraction_runs WHERE run_id = $1`

var safeRunID = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// RunRepository stores run audits.
// Supports Hybrid Vault: DB (Primary) + File System (Fallback/Local)
type RunRepository struct {
	db      Querier
	fileDir string
	logger  *zap.Logger
}

// NewRunRepository creates a repository. With a nil db only the file
// directory is used; with neither, Record is a no-op.
func NewRunRepository(db Querier, dir string, logger *zap.Logger) *RunRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("audit directory unavailable", zap.String("dir", dir), zap.Error(err))
		}
	}
	return &RunRepository{db: db, fileDir: dir, logger: logger}
}

// Record writes rec to every configured backend.
func (r *RunRepository) Record(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil || rec.RunID == "" {
		return errors.New("run record without run_id")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	// 1. Save to DB
	if r.db != nil {
		_, err := r.db.Exec(ctx, insertRunSQL,
			rec.RunID, rec.Config.DocumentName, rec.Config.CompanyName,
			rec.Config.DocumentType, rec.Config.ReportType, rec.ElementID, data)
		if err != nil {
			return fmt.Errorf("failed to save run to db: %w", err)
		}
	}

	// 2. Save to File
	if r.fileDir != "" {
		if err := os.WriteFile(r.runPath(rec.RunID), data, 0o644); err != nil {
			return fmt.Errorf("failed to save run to file: %w", err)
		}
	}
	return nil
}

// Load reads a run back, from the DB when configured, else from file.
// A missing run returns nil, nil.
func (r *RunRepository) Load(ctx context.Context, runID string) (*models.RunRecord, error) {
	var data []byte
	switch {
	case r.db != nil:
		err := r.db.QueryRow(ctx, selectRunSQL, runID).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
		}
	case r.fileDir != "":
		b, err := os.ReadFile(r.runPath(runID))
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		data = b
	default:
		return nil, nil
	}

	var rec models.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	return &rec, nil
}

func (r *RunRepository) runPath(runID string) string {
	return filepath.Join(r.fileDir, safeRunID.ReplaceAllString(runID, "_")+".json")
}
