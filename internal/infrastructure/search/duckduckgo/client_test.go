package duckduckgo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/resilience"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

const resultsPage = `<html><body>
<div class="result results_links">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="https://example.cm/penal">Penal Code of Cameroon</a></h2>
    <a class="result__snippet">Law No. 2016/007 of 12 July 2016 relating to the Penal Code.</a>
  </div>
</div>
<div class="result results_links">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="https://example.cm/labour">Labour Code</a></h2>
    <a class="result__snippet">Law No. 92/007 of 14 August 1992 instituting the Labour Code.</a>
  </div>
</div>
<div class="result results_links">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="https://example.cm/ad">Sponsored</a></h2>
  </div>
</div>
</body></html>`

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestSearchParsesResultBlocks(t *testing.T) {
	var gotQuery, gotAgent string
	client := New("https://html.duckduckgo.com/html/", Options{
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotQuery = req.URL.Query().Get("q")
			gotAgent = req.Header.Get("User-Agent")
			return htmlResponse(http.StatusOK, resultsPage), nil
		})},
	})

	results, err := client.Search(context.Background(), "penal code Cameroon law legal", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotQuery != "penal code Cameroon law legal" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotAgent != DefaultUserAgent {
		t.Fatalf("expected browser user agent, got %q", gotAgent)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results with title and snippet, got %+v", results)
	}
	if results[0].Title != "Penal Code of Cameroon" || !strings.HasPrefix(results[0].Snippet, "Law No. 2016/007") {
		t.Fatalf("unexpected first result %+v", results[0])
	}
}

func TestSearchLimitsContainers(t *testing.T) {
	client := New("", Options{
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return htmlResponse(http.StatusOK, resultsPage), nil
		})},
	})
	results, err := client.Search(context.Background(), "code", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Penal Code of Cameroon" {
		t.Fatalf("expected only the first result, got %+v", results)
	}
}

func TestSearchFallsBackToAlternateLayout(t *testing.T) {
	page := `<html><body>
<div class="web-result"><h2>Constitution of Cameroon</h2><div class="snippet">Law No. 96/06 of 18 January 1996 to amend the Constitution.</div></div>
</body></html>`
	client := New("", Options{
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return htmlResponse(http.StatusOK, page), nil
		})},
	})
	results, err := client.Search(context.Background(), "constitution", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Constitution of Cameroon" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestSearchDecodesLatin1Pages(t *testing.T) {
	page := "<html><body><div class=\"result\"><a class=\"result__a\">Code p\xe9nal</a>" +
		"<a class=\"result__snippet\">Loi n\xb0 2016/007 du 12 juillet 2016 portant Code p\xe9nal.</a></div></body></html>"
	client := New("", Options{
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			resp := htmlResponse(http.StatusOK, page)
			resp.Header.Set("Content-Type", "text/html; charset=iso-8859-1")
			return resp, nil
		})},
	})
	results, err := client.Search(context.Background(), "code penal", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Code pénal" {
		t.Fatalf("expected decoded title, got %+v", results)
	}
}

func TestSearchNonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.Config{BreakerEnabled: false}),
	})
	_, err := client.Search(context.Background(), "constitution", 5)
	var statusErr *resilience.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 status error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 429 to be temporary, got %v", err)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client := New("", Options{})
	if _, err := client.Search(context.Background(), "  ", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSearchRateLimitHonoursContext(t *testing.T) {
	calls := 0
	client := New("", Options{
		RateLimit: 0.001,
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return htmlResponse(http.StatusOK, resultsPage), nil
		})},
	})
	if _, err := client.Search(context.Background(), "constitution", 5); err != nil {
		t.Fatalf("first search should use the burst token: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Search(ctx, "constitution", 5); err == nil {
		t.Fatalf("expected limiter wait to fail on cancelled context")
	}
	if calls != 1 {
		t.Fatalf("expected a single outbound call, got %d", calls)
	}
}
