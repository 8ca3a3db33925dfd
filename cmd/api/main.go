package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"tidyxbrl/pkg/api/config"
	"tidyxbrl/pkg/api/xbrl"
	coreconfig "tidyxbrl/pkg/core/config"
	"tidyxbrl/pkg/core/ingest"
	"tidyxbrl/pkg/core/pipeline"
	"tidyxbrl/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	cfg, err := coreconfig.Load(coreconfig.DefaultPath)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}

	mux, err := newServer(context.Background(), cfg)
	if err != nil {
		fmt.Printf("[FATAL] Run store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if store.GetPool() != nil {
		fmt.Println("[STORE] Using Postgres run store")
	} else {
		fmt.Printf("[STORE] Using file run store at %s\n", cfg.Store.Dir)
	}
	if cfg.Server.DataDir == "" {
		fmt.Println("[INGEST] Local files disabled, accepting http(s) URLs only")
	} else {
		fmt.Printf("[INGEST] Local files limited to %s\n", cfg.Server.DataDir)
	}

	addr := ":" + cfg.Server.Port
	fmt.Printf("API server starting on %s...\n", addr)
	fmt.Println("  - GET  /health")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - GET  /api/xbrl/parse?path=<url-or-file>&context=<id>")
	fmt.Println("  - POST /api/xbrl/parse  {\"path\": ..., \"contexts\": [...], \"save\": true}")
	fmt.Println("  - GET  /api/xbrl/runs")
	fmt.Println("  - GET  /api/xbrl/runs/{id}")

	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}

// newServer opens the run store and mounts every route. Parse requests save
// into the same store the run endpoints read from, and local paths are
// confined to cfg.Server.DataDir.
func newServer(ctx context.Context, cfg coreconfig.Config) (*http.ServeMux, error) {
	repo, err := pipeline.OpenRepository(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	orch := pipeline.NewFromConfig(cfg, ingest.WithFileRoot(cfg.Server.DataDir))
	orch.SetRepository(repo)

	mux := http.NewServeMux()

	// Config endpoints
	configHandler := config.NewHandler(cfg)
	mux.HandleFunc("GET /api/config", configHandler.HandleConfig)

	// XBRL endpoints
	xbrl.NewHandler(orch, repo).Register(mux)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux, nil
}
