package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/cameroon-legal-assistant/internal/config"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/metrics"
)

type resolverFake struct {
	got       domain.Question
	requestID string
}

func (f *resolverFake) Resolve(ctx context.Context, question domain.Question) domain.ResolutionResult {
	f.got = question
	f.requestID = domain.RequestIDFromContext(ctx)
	return domain.ResolutionResult{Answer: "## Cameroon Legal Information\n\nok", Source: "Cameroonian Law"}
}

type inspectorFake struct {
	results int
}

func (f inspectorFake) PreviewSearch(_ context.Context, query string, _ domain.Language) domain.SearchPreview {
	return domain.SearchPreview{
		Query:           query,
		Success:         f.results > 0,
		ResultCount:     f.results,
		FormattedAnswer: "No results found",
	}
}

type statusFake bool

func (s statusFake) Degraded() bool { return bool(s) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(cfg config.Config, resolver *resolverFake, degraded bool) http.Handler {
	return NewRouter(cfg, resolver, inspectorFake{}, statusFake(degraded), nil, quietLogger()).Handler()
}

func postAsk(t *testing.T, handler http.Handler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAskReturnsAnswerAndSource(t *testing.T) {
	resolver := &resolverFake{}
	handler := newTestHandler(config.Config{}, resolver, false)

	res := postAsk(t, handler, map[string]string{"question": "What is bail?", "language": "fr-CM"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var result domain.ResolutionResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Source != "Cameroonian Law" || result.Answer == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if resolver.got.Language != domain.LanguageFrench || resolver.got.Text != "What is bail?" {
		t.Fatalf("unexpected question %+v", resolver.got)
	}
	if resolver.requestID == "" || resolver.requestID != res.Header().Get(requestIDHeader) {
		t.Fatalf("request id not propagated: ctx=%q header=%q", resolver.requestID, res.Header().Get(requestIDHeader))
	}
}

func TestAskDefaultsToEnglish(t *testing.T) {
	resolver := &resolverFake{}
	handler := newTestHandler(config.Config{}, resolver, false)

	res := postAsk(t, handler, map[string]string{"question": "hello"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if resolver.got.Language != domain.LanguageEnglish {
		t.Fatalf("expected english default, got %q", resolver.got.Language)
	}
}

func TestAskRejectsBadRequests(t *testing.T) {
	cases := []struct {
		name    string
		payload any
	}{
		{name: "blank question", payload: map[string]string{"question": "   "}},
		{name: "unsupported language", payload: map[string]string{"question": "bail", "language": "de"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &resolverFake{}
			res := postAsk(t, newTestHandler(config.Config{}, resolver, false), tc.payload)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
			if resolver.got.Text != "" {
				t.Fatalf("resolver must not be called")
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("{"))
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, &resolverFake{}, false).ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", res.Code)
	}
}

func TestAskRejectsGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, &resolverFake{}, false).ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestServiceInfoReportsModelStatus(t *testing.T) {
	for _, degraded := range []bool{false, true} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		res := httptest.NewRecorder()
		newTestHandler(config.Config{}, &resolverFake{}, degraded).ServeHTTP(res, req)

		var body map[string]any
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["model_loaded"] != !degraded {
			t.Fatalf("degraded=%v: unexpected model_loaded %v", degraded, body["model_loaded"])
		}
		wantStatus := "Model is loaded and ready"
		if degraded {
			wantStatus = "Limited functionality - Model not loaded"
		}
		if body["status"] != wantStatus {
			t.Fatalf("unexpected status %v", body["status"])
		}
	}
}

func TestTestSearchReturnsPreview(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test-search?query=penal+code", nil)
	res := httptest.NewRecorder()
	newTestHandler(config.Config{}, &resolverFake{}, false).ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var preview domain.SearchPreview
	if err := json.NewDecoder(res.Body).Decode(&preview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if preview.Query != "penal code" || preview.Success || preview.FormattedAnswer != "No results found" {
		t.Fatalf("unexpected preview %+v", preview)
	}

	missing := httptest.NewRecorder()
	newTestHandler(config.Config{}, &resolverFake{}, false).ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/test-search", nil))
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", missing.Code)
	}
}

func TestMetricsEndpointServedWhenConfigured(t *testing.T) {
	httpMetrics := metrics.NewHTTPServerMetrics("api")
	handler := NewRouter(config.Config{}, &resolverFake{}, inspectorFake{}, statusFake(false), httpMetrics, quietLogger()).Handler()

	_ = postAsk(t, handler, map[string]string{"question": "bail"})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `legal_http_requests_total{method="POST",path="/ask",service="api",status="200"} 1`) {
		t.Fatalf("expected ask request counted:\n%s", res.Body.String())
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: domain.WrapError(domain.ErrInvalidInput, "op", io.EOF), want: http.StatusBadRequest},
		{err: domain.WrapError(domain.ErrTemporary, "op", io.EOF), want: http.StatusServiceUnavailable},
		{err: io.EOF, want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
