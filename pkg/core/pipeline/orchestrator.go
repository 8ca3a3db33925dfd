package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "tidyxbrl/pkg/common/errors"
	"tidyxbrl/pkg/core/store"
	"tidyxbrl/pkg/core/validate"
	"tidyxbrl/pkg/core/xbrl"
)

// DocumentLoader retrieves and parses an XBRL document.
// Implementations may read from:
// - Live SEC EDGAR or any HTTP server (ingest.Loader)
// - Local files
// - In-memory fixtures in tests
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*xbrl.Node, error)
}

// RunRepository persists flattened runs.
type RunRepository interface {
	Save(ctx context.Context, run *store.Run) error
}

// Request describes one flattening run.
type Request struct {
	Path string
	// Keep only rows for these context ids. Empty keeps everything.
	Contexts []string
	Save     bool
}

// Result is the outcome of a run.
type Result struct {
	ID      uuid.UUID
	Source  string
	Table   *xbrl.Table
	Checks  *validate.Report
	Elapsed time.Duration
	Saved   bool
}

// Orchestrator manages the data flow: Load -> Flatten -> Validate -> Filter -> Store.
// Nothing is cached; every run fetches and flattens again.
type Orchestrator struct {
	loader    DocumentLoader
	flattener *xbrl.Flattener
	repo      RunRepository
}

// NewOrchestrator creates an orchestrator. A nil flattener uses defaults.
func NewOrchestrator(loader DocumentLoader, flattener *xbrl.Flattener) *Orchestrator {
	if flattener == nil {
		flattener = xbrl.NewFlattener(xbrl.Options{})
	}
	return &Orchestrator{loader: loader, flattener: flattener}
}

// SetRepository enables Request.Save.
func (o *Orchestrator) SetRepository(repo RunRepository) {
	o.repo = repo
}

// Run executes the pipeline for one document.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", apperrors.ErrInvalidInput)
	}
	if req.Save && o.repo == nil {
		return nil, fmt.Errorf("%w: no run store configured", apperrors.ErrInvalidInput)
	}

	start := time.Now()
	res := &Result{ID: uuid.New(), Source: path}
	log.Printf("[Pipeline] Run %s: loading %s", res.ID, path)

	// 1. Load
	root, err := o.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	// 2. Flatten
	table, err := o.flattener.Flatten(root)
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", path, err)
	}

	// 3. Validate
	res.Checks = validate.CheckTable(table, false)
	for _, c := range res.Checks.Failures() {
		log.Printf("[Pipeline] WARNING: run %s: check %s failed: %s", res.ID, c.Name, c.Detail)
	}

	// 4. Filter
	if len(req.Contexts) > 0 {
		table = table.FilterContext(req.Contexts...)
	}
	res.Table = table

	// 5. Store
	if req.Save {
		run := &store.Run{ID: res.ID, Source: path, Table: table}
		if err := o.repo.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("save run %s: %w", res.ID, err)
		}
		res.Saved = true
	}

	res.Elapsed = time.Since(start)
	log.Printf("[Pipeline] Run %s: %d rows, %d columns in %s (orphans: %d)",
		res.ID, table.Len(), len(table.Columns), res.Elapsed.Round(time.Millisecond), table.Stats.Orphans)
	return res, nil
}
