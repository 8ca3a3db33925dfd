package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "tidyxbrl/pkg/common/errors"
	"tidyxbrl/pkg/core/xbrl"
)

// Run is one persisted flattening result.
type Run struct {
	ID        uuid.UUID   `json:"id"`
	Source    string      `json:"source"`
	CreatedAt time.Time   `json:"created_at"`
	Table     *xbrl.Table `json:"table"`
}

// RunSummary describes a run without its rows.
type RunSummary struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Rows      int       `json:"rows"`
}

const schema = `
CREATE TABLE IF NOT EXISTS xbrl_runs (
	id         UUID PRIMARY KEY,
	source     TEXT NOT NULL,
	columns    TEXT[] NOT NULL,
	stats      JSONB NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS xbrl_facts (
	run_id    UUID NOT NULL REFERENCES xbrl_runs(id) ON DELETE CASCADE,
	row_num   INTEGER NOT NULL,
	context   TEXT,
	datacode  TEXT,
	datavalue TEXT,
	fields    JSONB NOT NULL,
	PRIMARY KEY (run_id, row_num)
);
CREATE INDEX IF NOT EXISTS xbrl_facts_datacode_idx ON xbrl_facts (datacode);
`

// TableRepo persists flattened tables.
// Supports Hybrid Vault: DB (Primary) + File System (Fallback/Local)
type TableRepo struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewTableRepo creates a repository. If pool is nil, runs are written as JSON
// files under dir (default .cache/tidyxbrl/runs).
func NewTableRepo(pool *pgxpool.Pool, dir string) *TableRepo {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "tidyxbrl", "runs")
	}
	return &TableRepo{pool: pool, fileDir: dir}
}

// EnsureSchema creates the run tables, or the run directory in file mode.
func (r *TableRepo) EnsureSchema(ctx context.Context) error {
	if r.pool == nil {
		if err := os.MkdirAll(r.fileDir, 0755); err != nil {
			return fmt.Errorf("failed to create run dir: %w", err)
		}
		return nil
	}
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save persists run. A zero ID or CreatedAt is filled in.
func (r *TableRepo) Save(ctx context.Context, run *Run) error {
	if run == nil || run.Table == nil {
		return fmt.Errorf("%w: run has no table", apperrors.ErrInvalidInput)
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if r.pool != nil {
		return r.saveDB(ctx, run)
	}
	return r.saveFile(run)
}

func (r *TableRepo) saveDB(ctx context.Context, run *Run) error {
	stats, err := json.Marshal(run.Table.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	rows := make([][]any, 0, run.Table.Len())
	for i, row := range run.Table.Rows {
		fields, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row %d: %w", i, err)
		}
		rows = append(rows, []any{
			run.ID, i,
			nullable(row, xbrl.ColumnContext),
			nullable(row, xbrl.ColumnDataCode),
			nullable(row, xbrl.ColumnDataValue),
			fields,
		})
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO xbrl_runs (id, source, columns, stats, row_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Source, run.Table.Columns, stats, run.Table.Len(), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"xbrl_facts"},
		[]string{"run_id", "row_num", "context", "datacode", "datavalue", "fields"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy facts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	log.Printf("[Store] Saved run %s (%d rows) to database", run.ID, n)
	return nil
}

func (r *TableRepo) saveFile(run *Run) error {
	if err := os.MkdirAll(r.fileDir, 0755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	path := r.runPath(run.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	log.Printf("[Store] Saved run %s (%d rows) to %s", run.ID, run.Table.Len(), path)
	return nil
}

// Load returns a saved run. Unknown ids wrap errors.ErrNotFound.
func (r *TableRepo) Load(ctx context.Context, id uuid.UUID) (*Run, error) {
	if r.pool != nil {
		return r.loadDB(ctx, id)
	}

	data, err := os.ReadFile(r.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: run %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

func (r *TableRepo) loadDB(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := &Run{ID: id, Table: &xbrl.Table{}}
	var stats []byte
	err := r.pool.QueryRow(ctx,
		`SELECT source, columns, stats, created_at FROM xbrl_runs WHERE id = $1`, id).
		Scan(&run.Source, &run.Table.Columns, &stats, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: run %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if err := json.Unmarshal(stats, &run.Table.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT fields FROM xbrl_facts WHERE run_id = $1 ORDER BY row_num`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fields []byte
		if err := rows.Scan(&fields); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		row := xbrl.Row{}
		if err := json.Unmarshal(fields, &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fact: %w", err)
		}
		run.Table.Rows = append(run.Table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facts: %w", err)
	}
	return run, nil
}

// List returns saved runs, newest first.
func (r *TableRepo) List(ctx context.Context) ([]RunSummary, error) {
	if r.pool != nil {
		return r.listDB(ctx)
	}

	entries, err := os.ReadDir(r.fileDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var out []RunSummary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		run, err := r.Load(ctx, id)
		if err != nil {
			log.Printf("[Store] WARNING: skipping unreadable run %s: %v", name, err)
			continue
		}
		out = append(out, RunSummary{ID: run.ID, Source: run.Source, CreatedAt: run.CreatedAt, Rows: run.Table.Len()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *TableRepo) listDB(ctx context.Context) ([]RunSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, source, created_at, row_count FROM xbrl_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.Source, &s.CreatedAt, &s.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *TableRepo) runPath(id uuid.UUID) string {
	return filepath.Join(r.fileDir, id.String()+".json")
}

func nullable(row xbrl.Row, col string) *string {
	if v, ok := row.Get(col); ok {
		return &v
	}
	return nil
}
