package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ringsight/ringsight/internal/domain"
	"github.com/ringsight/ringsight/internal/engine"
	"github.com/ringsight/ringsight/internal/graphexport"
	"github.com/ringsight/ringsight/internal/repository"
	"github.com/ringsight/ringsight/internal/store"
	"github.com/ringsight/ringsight/internal/validate"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	cfg      domain.ServerConfig
	engine   *engine.Engine
	store    domain.ResultStore
	repo     domain.Repository
	bus      domain.EventBus
	exporter *graphexport.Exporter

	alertThreshold float64
	version        string
}

// NewHandler creates a new API handler. exporter may be nil when graph
// export is not configured.
func NewHandler(cfg domain.ServerConfig, eng *engine.Engine, st domain.ResultStore, repo domain.Repository, bus domain.EventBus, exporter *graphexport.Exporter, alertThreshold float64, version string) *Handler {
	return &Handler{
		cfg:            cfg,
		engine:         eng,
		store:          st,
		repo:           repo,
		bus:            bus,
		exporter:       exporter,
		alertThreshold: alertThreshold,
		version:        version,
	}
}

// AnalyzeResponse is the response for POST /analyze.
type AnalyzeResponse struct {
	SessionToken string                    `json:"session_token"`
	Validation   *domain.ValidationSummary `json:"validation"`
	Result       *domain.ForensicResult    `json:"result"`
}

// Analyze handles POST /analyze: a multipart CSV upload that runs the
// full pipeline and stores the result under a fresh session token.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	maxBytes := int64(h.cfg.MaxUploadSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "upload exceeds size limit",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "expected multipart form data",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "file field is required",
		})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{
			"error": "file must be a CSV (.csv)",
		})
		return
	}

	txs, summary, err := validate.Validate(file, h.cfg.MaxRows)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, validate.ErrTooManyRows) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	includeGraph := r.URL.Query().Get("include_graph") == "true"

	result, err := h.engine.Analyze(ctx, txs, engine.Options{IncludeGraph: includeGraph})
	if err != nil {
		slog.Error("analysis failed",
			"error", err,
			"trace_id", GetTraceID(ctx),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	token, err := h.store.Put(ctx, summary, result)
	if err != nil {
		slog.Error("failed to store result", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to store result",
		})
		return
	}

	h.publishEvents(token, result, summary)
	h.exportGraph(token, result)

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		SessionToken: token,
		Validation:   summary,
		Result:       result,
	})
}

// publishEvents emits the lifecycle events for one completed analysis.
// Publish failures are logged and swallowed; the result is already
// stored and the caller has their token.
func (h *Handler) publishEvents(token string, result *domain.ForensicResult, summary *domain.ValidationSummary) {
	ctx := context.Background()

	completed := domain.AnalysisCompletedEvent{
		Token:             token,
		RowsAccepted:      summary.RowsAccepted,
		TotalAccounts:     result.Summary.TotalAccountsAnalyzed,
		FlaggedAccounts:   result.Summary.SuspiciousAccountsFlagged,
		Rings:             result.Summary.FraudRingsDetected,
		ProcessingSeconds: result.Summary.ProcessingTimeSeconds,
		Partial:           result.Partial,
	}
	if payload, err := json.Marshal(completed); err == nil {
		if err := h.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
			slog.Warn("failed to publish analysis event", "token", token, "error", err)
		}
	}

	for _, ring := range result.FraudRings {
		if ring.RiskScore < h.alertThreshold {
			continue
		}
		alert := domain.RingAlertEvent{
			Token:       token,
			RingID:      ring.RingID,
			PatternType: ring.PatternType,
			RiskScore:   ring.RiskScore,
			Members:     ring.MemberAccounts,
		}
		if payload, err := json.Marshal(alert); err == nil {
			if err := h.bus.Publish(ctx, domain.TopicRingAlert, payload); err != nil {
				slog.Warn("failed to publish ring alert", "ring", ring.RingID, "error", err)
			}
		}
	}
}

// exportGraph pushes the snapshot to Neo4j when an exporter is wired.
func (h *Handler) exportGraph(token string, result *domain.ForensicResult) {
	if h.exporter == nil || result.Graph == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.exporter.Export(ctx, token, result.Graph, result.SuspiciousAccounts); err != nil {
			slog.Warn("graph export failed", "token", token, "error", err)
		}
	}()
}

// Results handles GET /results: retrieval by session token with
// optional conjunctive filters.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(SessionTokenHeader)
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "X-Session-Token header is required",
		})
		return
	}

	entry, err := h.store.Get(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "session not found or expired",
		})
		return
	}
	if err != nil {
		slog.Error("failed to load session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load session",
		})
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, store.ApplyFilters(entry.Result, filters))
}

func parseFilters(r *http.Request) (domain.ResultFilters, error) {
	q := r.URL.Query()
	f := domain.ResultFilters{
		AccountID: q.Get("account_id"),
		RingID:    q.Get("ring_id"),
		Pattern:   q.Get("pattern"),
	}
	if raw := q.Get("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, errors.New("min_score must be a number")
		}
		f.MinScore = &v
	}
	return f, nil
}

// Runs handles GET /runs: the persisted run history, newest first.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = v
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list runs",
		})
		return
	}
	if runs == nil {
		runs = []*domain.AnalysisRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GetRun handles GET /runs/{token}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	run, err := h.repo.GetRun(r.Context(), token)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	if err != nil {
		slog.Error("failed to get run", "token", token, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get run",
		})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready: dependency health.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		healthy = false
	} else {
		checks["store"] = "ok"
	}
	if err := h.repo.Ping(ctx); err != nil {
		checks["repository"] = err.Error()
		healthy = false
	} else {
		checks["repository"] = "ok"
	}
	if err := h.bus.Ping(ctx); err != nil {
		checks["bus"] = err.Error()
		healthy = false
	} else {
		checks["bus"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"checks": checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
