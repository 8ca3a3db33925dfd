package xbrl

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "tidyxbrl/pkg/common/errors"
	"tidyxbrl/pkg/core/pipeline"
	"tidyxbrl/pkg/core/store"
	"tidyxbrl/pkg/core/validate"
	corexbrl "tidyxbrl/pkg/core/xbrl"
)

// ParseRequest is the POST body of /api/xbrl/parse.
type ParseRequest struct {
	Path     string   `json:"path"`
	Contexts []string `json:"contexts,omitempty"`
	Save     bool     `json:"save,omitempty"`
}

type ParseResponse struct {
	RunID     string           `json:"run_id"`
	Source    string           `json:"source"`
	ElapsedMS int64            `json:"elapsed_ms"`
	Saved     bool             `json:"saved"`
	Table     *corexbrl.Table  `json:"table"`
	Checks    *validate.Report `json:"checks"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// RunStore reads persisted runs.
type RunStore interface {
	Load(ctx context.Context, id uuid.UUID) (*store.Run, error)
	List(ctx context.Context) ([]store.RunSummary, error)
}

// Handler holds dependencies for XBRL endpoints
type Handler struct {
	orchestrator *pipeline.Orchestrator
	runs         RunStore
}

// NewHandler creates a new XBRL handler. runs may be nil when no store is
// configured; the run endpoints then answer 404.
func NewHandler(orchestrator *pipeline.Orchestrator, runs RunStore) *Handler {
	return &Handler{orchestrator: orchestrator, runs: runs}
}

// Register mounts the XBRL routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/xbrl/parse", h.HandleParse)
	mux.HandleFunc("GET /api/xbrl/runs", h.HandleListRuns)
	mux.HandleFunc("GET /api/xbrl/runs/{id}", h.HandleGetRun)
}

// HandleParse flattens a document.
// GET  /api/xbrl/parse?path=<url-or-file>&context=<id>&context=<id>&save=true
// POST /api/xbrl/parse {"path": "...", "contexts": [...], "save": true}
func (h *Handler) HandleParse(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	var req ParseRequest
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
		q := r.URL.Query()
		req.Path = q.Get("path")
		for _, c := range q["context"] {
			for _, id := range strings.Split(c, ",") {
				if id = strings.TrimSpace(id); id != "" {
					req.Contexts = append(req.Contexts, id)
				}
			}
		}
		req.Save = q.Get("save") == "true" || q.Get("save") == "1"
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: invalid request body: %v", apperrors.ErrInvalidInput, err))
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.orchestrator.Run(r.Context(), pipeline.Request{
		Path:     req.Path,
		Contexts: req.Contexts,
		Save:     req.Save,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ParseResponse{
		RunID:     res.ID.String(),
		Source:    res.Source,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Saved:     res.Saved,
		Table:     res.Table,
		Checks:    res.Checks,
	})
}

// HandleListRuns returns summaries of persisted runs.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if h.runs == nil {
		writeJSON(w, http.StatusOK, []store.RunSummary{})
		return
	}
	runs, err := h.runs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleGetRun returns one persisted run.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: bad run id %q", apperrors.ErrInvalidInput, r.PathValue("id")))
		return
	}
	if h.runs == nil {
		writeError(w, fmt.Errorf("%w: no run store configured", apperrors.ErrNotFound))
		return
	}

	run, err := h.runs.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperrors.MapError(err)
	if appErr.Code >= http.StatusInternalServerError {
		log.Printf("[API] ERROR: %v", err)
	}
	writeJSON(w, appErr.Code, ErrorResponse{Error: appErr.Message, Detail: err.Error()})
}
