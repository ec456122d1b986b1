package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"statement_extraction/pkg/models"
)

// MockQuerier records Exec calls; Query and QueryRow are not expected.
type MockQuerier struct {
	ExecFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Execs    []string
}

func (m *MockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (m *MockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

func (m *MockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.Execs = append(m.Execs, sql)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

type errRow struct{}

func (errRow) Scan(dest ...any) error { return pgx.ErrNoRows }

func sampleRun() *models.RunRecord {
	return &models.RunRecord{
		RunID:              "run-1",
		Config:             models.DocConfig{DocumentName: "f.pdf", CompanyName: "Acme", DocumentType: "10-Q", ReportType: "Balance Sheet"},
		ElementID:          "e1",
		SourceName:         "f.pdf",
		Candidates:         []string{"e1"},
		OriginalContent:    "<table><tr><td>Total Assets</td><td>500</td></tr></table>",
		ReformattedContent: "<table><tr><td>Total Assets</td><td>500</td></tr></table>",
		StartedAt:          time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC),
		Duration:           1500 * time.Millisecond,
	}
}

func TestRunRepositoryFileRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audit")
	repo := NewRunRepository(nil, dir, nil)

	if err := repo.Record(context.Background(), sampleRun()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run-1.json")); err != nil {
		t.Fatalf("audit file not written: %v", err)
	}

	got, err := repo.Load(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil || got.ElementID != "e1" || got.Duration != 1500*time.Millisecond || got.Config.CompanyName != "Acme" {
		t.Errorf("Load() = %+v", got)
	}

	missing, err := repo.Load(context.Background(), "run-2")
	if err != nil || missing != nil {
		t.Errorf("Load(missing) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestRunRepositoryDB(t *testing.T) {
	db := &MockQuerier{}
	repo := NewRunRepository(db, "", nil)

	if err := repo.Record(context.Background(), sampleRun()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(db.Execs) != 1 || !strings.Contains(db.Execs[0], "INSERT INTO extraction_runs") {
		t.Errorf("unexpected statements: %v", db.Execs)
	}

	got, err := repo.Load(context.Background(), "run-1")
	if err != nil || got != nil {
		t.Errorf("Load() on empty table = %+v, %v", got, err)
	}

	db.ExecFunc = func(context.Context, string, ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("connection reset")
	}
	if err := repo.Record(context.Background(), sampleRun()); err == nil {
		t.Error("expected db error")
	}
}

func TestRunRepositoryRejectsMissingID(t *testing.T) {
	repo := NewRunRepository(nil, t.TempDir(), nil)
	if err := repo.Record(context.Background(), &models.RunRecord{}); err == nil {
		t.Error("expected error for record without run_id")
	}
}

func TestRunPathSanitized(t *testing.T) {
	repo := &RunRepository{fileDir: "/audit"}
	if got := repo.runPath("../etc/passwd"); got != filepath.Join("/audit", "___etc_passwd.json") {
		t.Errorf("runPath() = %s", got)
	}
}

func TestNewPgVectorIndexTableName(t *testing.T) {
	tests := []struct {
		table   string
		wantErr bool
	}{
		{"", false},
		{"statement_elements", false},
		{"filings.statement_elements", false},
		{"elements; DROP TABLE x", true},
		{"1elements", true},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			idx, err := NewPgVectorIndex(&MockQuerier{}, nil, tt.table, "f.pdf")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPgVectorIndex(%q) error = %v, wantErr %v", tt.table, err, tt.wantErr)
			}
			if err == nil && tt.table == "" && idx.table != DefaultElementsTable {
				t.Errorf("default table = %s", idx.table)
			}
		})
	}
}

func TestPgVectorSQL(t *testing.T) {
	idx, err := NewPgVectorIndex(&MockQuerier{}, nil, "filings.elements", "f.pdf")
	if err != nil {
		t.Fatal(err)
	}
	search := idx.searchSQL()
	for _, want := range []string{"FROM filings.elements", "1 - (embedding <=> $1) AS score", "ORDER BY embedding <=> $1, position", "LIMIT $3"} {
		if !strings.Contains(search, want) {
			t.Errorf("search SQL missing %q:\n%s", want, search)
		}
	}
	if !strings.Contains(idx.elementsSQL(), "ORDER BY position, element_id") {
		t.Errorf("elements SQL must keep ingestion order")
	}
}

func TestDecodeMetadata(t *testing.T) {
	meta, err := decodeMetadata([]byte(`{"preview":"Total Assets","page":3}`))
	if err != nil {
		t.Fatal(err)
	}
	if meta["preview"] != "Total Assets" || meta["page"] != float64(3) {
		t.Errorf("decodeMetadata() = %v", meta)
	}
	if m, _ := decodeMetadata([]byte(`{}`)); m != nil {
		t.Errorf("empty object should decode to nil, got %v", m)
	}
	if _, err := decodeMetadata([]byte(`{`)); err == nil {
		t.Error("expected error for broken json")
	}
}
