package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/cameroon-legal-assistant/internal/config"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/metrics"
)

const maxAskBodyBytes = 64 << 10

type Router struct {
	cfg       config.Config
	resolver  ports.QuestionResolver
	inspector ports.SearchInspector
	status    ports.ServiceStatus
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
}

// NewRouter wires the public surface. httpMetrics and logger may be nil.
func NewRouter(
	cfg config.Config,
	resolver ports.QuestionResolver,
	inspector ports.SearchInspector,
	status ports.ServiceStatus,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:       cfg,
		resolver:  resolver,
		inspector: inspector,
		status:    status,
		metrics:   httpMetrics,
		logger:    logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.serviceInfo)
	mux.HandleFunc("/ask", rt.ask)
	mux.HandleFunc("/test-search", rt.testSearch)
	mux.HandleFunc("/healthz", rt.healthz)

	var onReject rejectionRecorder
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		onReject = rt.metrics.RecordRejection
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIQueueWait, onReject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	handler = corsMiddleware(rt.cfg.CORSAllowedOrigins, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) serviceInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	degraded := rt.status == nil || rt.status.Degraded()
	status := "Model is loaded and ready"
	if degraded {
		status = "Limited functionality - Model not loaded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "Cameroonian Legal Assistant API",
		"description": "API for providing information about Cameroonian law and legal system",
		"endpoints": map[string]string{
			"/ask":         "POST - Ask a question about Cameroonian law",
			"/test-search": "GET - Test the search functionality directly",
		},
		"status":       status,
		"model_loaded": !degraded,
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		Language string `json:"language"`
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required")))
		return
	}
	language, err := domain.ParseLanguage(req.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	result := rt.resolver.Resolve(r.Context(), domain.NewQuestion(req.Question, language))
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) testSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "test search", errors.New("query parameter is required")))
		return
	}
	language, err := domain.ParseLanguage(r.URL.Query().Get("language"))
	if err != nil {
		writeError(w, err)
		return
	}

	preview := rt.inspector.PreviewSearch(r.Context(), query, language)
	if rt.metrics != nil {
		rt.metrics.RecordSearchPreview(preview.Success)
	}
	writeJSON(w, http.StatusOK, preview)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
