package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/kirillkom/writing-assistant/internal/config"
	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/core/ports"
	"github.com/kirillkom/writing-assistant/internal/core/usecase"
	"github.com/kirillkom/writing-assistant/internal/observability/metrics"
)

const (
	serviceName     = "api"
	maxRequestBytes = 1 << 20
)

// SessionRegistry is the part of usecase.SessionManager the API needs.
type SessionRegistry interface {
	Create(mode domain.WritingMode) (*usecase.EditingSession, error)
	Get(ctx context.Context, id string) (*usecase.EditingSession, error)
	Close(id string) error
}

type Router struct {
	cfg         config.Config
	sessions    SessionRegistry
	suggestions ports.SuggestionService
	analyses    ports.AnalysisReader
	metrics     *metrics.HTTPServerMetrics
	logger      *slog.Logger
}

// NewRouter wires the API. analyses and httpMetrics may be nil.
func NewRouter(
	cfg config.Config,
	sessions SessionRegistry,
	suggestions ports.SuggestionService,
	analyses ports.AnalysisReader,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:         cfg,
		sessions:    sessions,
		suggestions: suggestions,
		analyses:    analyses,
		metrics:     httpMetrics,
		logger:      logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/text/metrics", rt.textMetrics)
	mux.HandleFunc("POST /v1/text/suggestions", rt.textSuggestions)
	mux.HandleFunc("POST /v1/text/analysis", rt.textAnalysis)

	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.deleteSession)
	mux.HandleFunc("PUT /v1/sessions/{id}/text", rt.editSession)
	mux.HandleFunc("POST /v1/sessions/{id}/suggestions/fetch", rt.fetchSuggestions)
	mux.HandleFunc("POST /v1/sessions/{id}/suggestions/retry", rt.retrySuggestions)
	mux.HandleFunc("POST /v1/sessions/{id}/suggestions/clear", rt.clearSuggestions)
	mux.HandleFunc("POST /v1/sessions/{id}/suggestions/{sid}/apply", rt.applySuggestion)
	mux.HandleFunc("POST /v1/sessions/{id}/suggestions/{sid}/dismiss", rt.dismissSuggestion)
	mux.HandleFunc("GET /v1/sessions/{id}/analysis", rt.sessionAnalysis)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.OverloadWait)
	handler = bearerAuthMiddleware(rt.cfg.APIKey, handler)
	handler = rateLimitMiddleware(rt.limiter(), rt.onRateLimited, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) limiter() *rate.Limiter {
	if rt.cfg.RateLimitRPS <= 0 {
		return nil
	}
	burst := rt.cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rt.cfg.RateLimitRPS), burst)
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) session(w http.ResponseWriter, r *http.Request) (*usecase.EditingSession, bool) {
	session, err := rt.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return session, true
}

// decodeJSON accepts an empty body as the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func parseMode(raw string, fallback domain.WritingMode) (domain.WritingMode, bool) {
	if raw == "" {
		if _, ok := domain.ParseWritingMode(string(fallback)); !ok {
			return domain.ModeBusiness, true
		}
		return fallback, true
	}
	return domain.ParseWritingMode(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
