package config

import (
	"encoding/json"
	"net/http"
	"net/url"

	coreconfig "tidyxbrl/pkg/core/config"
)

type Response struct {
	UserAgent      string   `json:"user_agent"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	RateLimit      float64  `json:"rate_limit"`
	Unqualify      []string `json:"unqualify"`
	MaxSearchDepth int      `json:"max_search_depth"`
	Store          string   `json:"store"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Config coreconfig.Config
}

// NewHandler creates a new config handler
func NewHandler(cfg coreconfig.Config) *Handler {
	return &Handler{
		Config: cfg,
	}
}

// HandleConfig reports the effective settings. Database credentials are
// never echoed.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	unq := h.Config.Flatten.Unqualify
	if unq == nil {
		unq = []string{}
	}
	resp := Response{
		UserAgent:      h.Config.Fetch.UserAgent,
		TimeoutSeconds: h.Config.Fetch.TimeoutSeconds,
		RateLimit:      h.Config.Fetch.RateLimit,
		Unqualify:      unq,
		MaxSearchDepth: h.Config.Flatten.MaxSearchDepth,
		Store:          describeStore(h.Config.Store),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func describeStore(s coreconfig.StoreConfig) string {
	if s.DatabaseURL == "" {
		return "file://" + s.Dir
	}
	u, err := url.Parse(s.DatabaseURL)
	if err != nil {
		return "postgres"
	}
	return u.Scheme + "://" + u.Host + u.Path
}
