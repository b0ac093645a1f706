package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

func TestObserveResolutionCountsStageAndQuality(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveResolution(context.Background(), domain.ResolutionEvent{
		Stage:         domain.StageSearch,
		Origin:        domain.OriginSearched,
		Language:      domain.LanguageEnglish,
		QualityReason: domain.QualityReasonTooShort,
		Duration:      200 * time.Millisecond,
	})
	m.ObserveResolution(context.Background(), domain.ResolutionEvent{
		Stage:    domain.StageCatalog,
		Origin:   domain.OriginCatalog,
		Language: domain.LanguageEnglish,
	})

	if got := testutil.ToFloat64(m.resolutionsTotal.WithLabelValues("api", "search", "searched", "en")); got != 1 {
		t.Fatalf("expected one search resolution, got %v", got)
	}
	if got := testutil.ToFloat64(m.qualityRejectionsTotal.WithLabelValues("api", "too_short")); got != 1 {
		t.Fatalf("expected one quality rejection, got %v", got)
	}
	if got := testutil.CollectAndCount(m.qualityRejectionsTotal); got != 1 {
		t.Fatalf("catalog hit must not record a rejection, got %d series", got)
	}
}

func TestMiddlewareRecordsNormalizedPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for _, path := range []string{"/ask", "/wp-admin/setup.php"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodPost, "/ask", "418")); got != 1 {
		t.Fatalf("expected /ask counted once, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodPost, "other", "418")); got != 1 {
		t.Fatalf("expected unknown path folded into other, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestInFlight); got != 0 {
		t.Fatalf("expected in-flight gauge back to 0, got %v", got)
	}
}

func TestHandlerExposesDegradedGauge(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.SetDegraded(true)
	m.RecordRejection("rate_limited")
	m.RecordSearchPreview(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`legal_resolution_degraded_mode{service="api"} 1`,
		`legal_http_rejected_total{reason="rate_limited",service="api"} 1`,
		`legal_search_previews_total{outcome="empty",service="api"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestWorkerMetricsTrackEvents(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartEvent()
	m.FinishEvent("worker", 10*time.Millisecond, nil)
	m.StartEvent()
	m.FinishEvent("worker", 10*time.Millisecond, errors.New("db down"))
	m.ObserveQueueLag("worker", -time.Second)

	if got := testutil.ToFloat64(m.journalTotal.WithLabelValues("worker", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := testutil.ToFloat64(m.journalTotal.WithLabelValues("worker", "error")); got != 1 {
		t.Fatalf("expected one error, got %v", got)
	}
	if got := testutil.ToFloat64(m.journalInFlight); got != 0 {
		t.Fatalf("expected in-flight back to 0, got %v", got)
	}
	if got := testutil.CollectAndCount(m.queueLag); got != 0 {
		t.Fatalf("negative lag must be ignored, got %d series", got)
	}
}
