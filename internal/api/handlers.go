package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coursepilot/coursepilot/internal/sanitize"
	"github.com/coursepilot/coursepilot/internal/types"
	"github.com/coursepilot/coursepilot/internal/validation"
)

// QueryService is the orchestrator surface the HTTP layer depends on.
// *rag.System satisfies it.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (string, []sanitize.Citation, string, error)
	Analytics(ctx context.Context) (types.CourseStatsResponse, error)
	AddCourseFolder(ctx context.Context, dir string, clear bool) (types.IngestResult, error)
	ChunkCount(ctx context.Context) (int64, error)
}

// Handler implements the API handlers
type Handler struct {
	svc        QueryService
	embedModel string
	docsDir    string
	adminKey   string
	version    string
}

// NewHandler creates a new Handler.
func NewHandler(svc QueryService, embedModel, docsDir, adminKey, version string) *Handler {
	return &Handler{
		svc:        svc,
		embedModel: embedModel,
		docsDir:    docsDir,
		adminKey:   adminKey,
		version:    version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Analytics(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	chunks, err := h.svc.ChunkCount(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := types.HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		EmbeddingModel: h.embedModel,
		CourseCount:    stats.TotalCourses,
		ChunkCount:     chunks,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Query handles POST /api/v1/query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateQueryRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	answer, citations, sessionID, err := h.svc.Query(r.Context(), req.Query, req.SessionID)
	if err != nil {
		slog.Error("query failed", "error", err, "session_id", sessionID)
		MapStoreError(w, r, err)
		return
	}
	if citations == nil {
		citations = []sanitize.Citation{}
	}

	resp := types.QueryResponse{
		Answer:    answer,
		Sources:   citations,
		SessionID: sessionID,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Courses handles GET /api/v1/courses
func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Analytics(r.Context())
	if err != nil {
		slog.Error("course analytics failed", "error", err)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Ingest handles POST /api/v1/ingest. It re-reads the configured docs
// folder; ?clear=true rebuilds the catalog from scratch.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	clear := r.URL.Query().Get("clear") == "true"

	result, err := h.svc.AddCourseFolder(r.Context(), h.docsDir, clear)
	if err != nil {
		slog.Error("ingest failed", "error", err, "clear", clear)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
