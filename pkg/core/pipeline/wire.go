package pipeline

import (
	"context"
	"log"

	"tidyxbrl/pkg/core/config"
	"tidyxbrl/pkg/core/ingest"
	"tidyxbrl/pkg/core/store"
	"tidyxbrl/pkg/core/xbrl"
)

// NewFromConfig wires the HTTP/file loader and the flattener from settings.
// Extra client options (e.g. ingest.WithFileRoot) are applied last.
func NewFromConfig(cfg config.Config, extra ...ingest.ClientOption) *Orchestrator {
	opts := []ingest.ClientOption{
		ingest.WithUserAgent(cfg.Fetch.UserAgent),
		ingest.WithTimeout(cfg.Timeout()),
		ingest.WithRateLimit(cfg.Fetch.RateLimit),
	}
	client := ingest.NewClient(append(opts, extra...)...)

	var decodeOpts []xbrl.DecodeOption
	if len(cfg.Flatten.Unqualify) > 0 {
		decodeOpts = append(decodeOpts, xbrl.WithUnqualified(cfg.Flatten.Unqualify...))
	}

	flattener := xbrl.NewFlattener(xbrl.Options{MaxSearchDepth: cfg.Flatten.MaxSearchDepth})
	return NewOrchestrator(ingest.NewLoader(client, decodeOpts...), flattener)
}

// OpenRepository returns the run store. Postgres is used when a database URL
// is configured and reachable; otherwise runs go to files under cfg.Dir.
func OpenRepository(ctx context.Context, cfg config.StoreConfig) (*store.TableRepo, error) {
	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			log.Printf("[Store] WARNING: database unavailable (%v), using %s", err, cfg.Dir)
		}
	}

	repo := store.NewTableRepo(store.GetPool(), cfg.Dir)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}
