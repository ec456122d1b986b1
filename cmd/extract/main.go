// Command extract pulls one financial statement out of a parsed filing and
// prints the original and cleaned markup as JSON.
//
//	extract --config config/models.yaml --elements elements.json \
//	    --company "Apple Inc." --statement "Balance Sheet" --doc-type 10-Q --name aapl-10q.pdf
//	extract --show-run 3f2c...   # print a recorded run
//	extract --list-prompts       # print prompt ids after overrides
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"statement_extraction/pkg/config"
	"statement_extraction/pkg/core/agent"
	"statement_extraction/pkg/core/failure"
	"statement_extraction/pkg/core/fidelity"
	"statement_extraction/pkg/core/pipeline"
	"statement_extraction/pkg/core/prompt"
	"statement_extraction/pkg/core/reformat"
	"statement_extraction/pkg/core/retrieval"
	"statement_extraction/pkg/core/selection"
	"statement_extraction/pkg/core/store"
	"statement_extraction/pkg/core/utils"
	"statement_extraction/pkg/models"
)

type options struct {
	configPath   string
	elementsPath string
	document     string
	company      string
	statement    string
	docType      string
	name         string
	debug        bool
	listPrompts  bool
	showRun      string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "config/models.yaml", "Path to config file")
	fs.StringVar(&o.elementsPath, "elements", "", "JSON file holding the document array")
	fs.StringVar(&o.document, "document", "", "Document name to load from the pgvector table")
	fs.StringVar(&o.company, "company", "", "Company name, e.g. \"Apple Inc.\"")
	fs.StringVar(&o.statement, "statement", "", "Statement to extract, e.g. \"Balance Sheet\"")
	fs.StringVar(&o.docType, "doc-type", "", "Filing type, e.g. 10-Q")
	fs.StringVar(&o.name, "name", "", "Document name (defaults to --document)")
	fs.BoolVar(&o.debug, "debug", false, "Development logging at debug level")
	fs.BoolVar(&o.listPrompts, "list-prompts", false, "Print registered prompt ids and exit")
	fs.StringVar(&o.showRun, "show-run", "", "Print the recorded run with this id and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.name == "" {
		o.name = o.document
	}
	if o.listPrompts || o.showRun != "" {
		return o, nil
	}
	if o.elementsPath == "" && o.document == "" {
		return nil, fmt.Errorf("one of --elements or --document is required")
	}
	return o, nil
}

func (o *options) docConfig() models.DocConfig {
	return models.DocConfig{
		DocumentName: o.name,
		CompanyName:  o.company,
		DocumentType: o.docType,
		ReportType:   o.statement,
	}
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, assuming environment variables are set.")
	}

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := utils.NewLogger(opts.debug, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.listPrompts:
		prompts, err := loadPrompts(cfg, logger)
		if err != nil {
			logger.Error("failed to load prompts", zap.Error(err))
			os.Exit(1)
		}
		writePromptIDs(os.Stdout, prompts)
		return
	case opts.showRun != "":
		rec, err := showRun(ctx, cfg, opts.showRun, logger)
		if err != nil {
			logger.Error("failed to load run", zap.String("run_id", opts.showRun), zap.Error(err))
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(out))
		return
	}

	result, err := run(ctx, cfg, opts, logger)
	if err != nil {
		logger.Error("extraction failed", zap.String("kind", string(failure.KindOf(err))), zap.Error(err))
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func loadPrompts(cfg *config.Config, logger *zap.Logger) (*prompt.Registry, error) {
	prompts := prompt.Default()
	if cfg.Prompts.Dir != "" {
		n, err := prompt.LoadFromDirectory(prompts, cfg.Prompts.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		logger.Info("prompt overrides loaded", zap.Int("count", n), zap.String("dir", cfg.Prompts.Dir))
	}
	return prompts, nil
}

func writePromptIDs(w io.Writer, prompts *prompt.Registry) {
	for _, id := range prompts.ListPrompts() {
		fmt.Fprintln(w, id)
	}
}

// showRun reads a recorded run from the database when one is configured,
// else from the audit directory.
func showRun(ctx context.Context, cfg *config.Config, runID string, logger *zap.Logger) (*models.RunRecord, error) {
	var db store.Querier
	if cfg.Database.URL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL()); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()
		db = store.GetPool()
	}
	if db == nil && cfg.Audit.Dir == "" {
		return nil, failure.New(failure.KindConfigInvalid, "--show-run needs database.url or audit.dir")
	}

	rec, err := store.NewRunRepository(db, cfg.Audit.Dir, logger.Named("audit")).Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return rec, nil
}

func run(ctx context.Context, cfg *config.Config, opts *options, logger *zap.Logger) (*models.PipelineResult, error) {
	prompts, err := loadPrompts(cfg, logger)
	if err != nil {
		return nil, err
	}

	manager := agent.NewManager(cfg.LLM, nil, logger)
	if err := manager.Validate(); err != nil {
		return nil, failure.Wrap(failure.KindConfigInvalid, err, "llm config")
	}
	logger.Info("llm provider ready", zap.String("active", manager.GetActiveProvider()))

	embedder, err := retrieval.NewOpenAIEmbedder("", cfg.Retrieval.EmbeddingURL, cfg.Retrieval.EmbeddingModel)
	if err != nil {
		return nil, failure.Wrap(failure.KindConfigInvalid, err, "embedder")
	}

	// Postgres is needed for the pgvector backend, for --document, or for a DB audit trail
	var db store.Querier
	needDB := cfg.Retrieval.Backend == config.BackendPgVector || opts.document != "" || cfg.Database.URL != ""
	if needDB {
		if err := store.InitDB(ctx, cfg.DatabaseURL()); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()
		db = store.GetPool()
	}

	var pgIndex *store.PgVectorIndex
	if db != nil {
		pgIndex, err = store.NewPgVectorIndex(db, embedder, cfg.Retrieval.Table, opts.name)
		if err != nil {
			return nil, failure.Wrap(failure.KindConfigInvalid, err, "vector index")
		}
	}

	documents, err := loadDocuments(ctx, opts, pgIndex)
	if err != nil {
		return nil, err
	}
	logger.Info("documents loaded", zap.Int("elements", len(documents)))

	var index retrieval.VectorIndex
	switch cfg.Retrieval.Backend {
	case config.BackendPgVector:
		index = pgIndex
	default:
		mem, err := retrieval.NewMemoryIndex(embedder, documents)
		if err != nil {
			return nil, failure.Wrap(failure.KindConfigInvalid, err, "memory index")
		}
		index = mem
	}

	orch := pipeline.NewOrchestrator(
		retrieval.NewRetriever(index, cfg.Timeouts.Retrieval, logger.Named("retrieval")),
		selection.NewSelector(manager.Model(agent.StageSelector), prompts, selection.Options{
			Retry:   cfg.Selection.RetryOrDefault(),
			Timeout: cfg.Timeouts.Selection,
		}, logger.Named("selection")),
		reformat.NewReformatter(manager.Model(agent.StageReformatter), prompts, reformat.Options{
			OutputFormat:           fidelity.Format(cfg.Reformat.OutputFormat),
			EnforceNumericFidelity: cfg.Reformat.EnforceOrDefault(),
			Timeout:                cfg.Timeouts.Reformat,
		}, logger.Named("reformat")),
		cfg.Retrieval.TopK,
		logger.Named("pipeline"),
	)
	if db != nil || cfg.Audit.Dir != "" {
		orch.SetRecorder(store.NewRunRepository(db, cfg.Audit.Dir, logger.Named("audit")))
	}

	return orch.Run(ctx, documents, opts.docConfig())
}

func loadDocuments(ctx context.Context, opts *options, pgIndex *store.PgVectorIndex) ([]models.Element, error) {
	if opts.elementsPath != "" {
		data, err := os.ReadFile(opts.elementsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read elements: %w", err)
		}
		var elements []models.Element
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, fmt.Errorf("failed to parse elements %s: %w", opts.elementsPath, err)
		}
		return elements, nil
	}
	if pgIndex == nil {
		return nil, fmt.Errorf("--document requires a database connection")
	}
	return pgIndex.LoadElements(ctx)
}
