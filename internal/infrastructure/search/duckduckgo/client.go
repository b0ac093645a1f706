package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/resilience"
)

const (
	DefaultEndpoint  = "https://html.duckduckgo.com/html/"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// The HTML endpoint has shipped several layouts. Container selectors are tried
// in order and the first one present on the page wins; within a container the
// first matching title and snippet selector is used.
var (
	containerSelectors = []string{".result__body", ".result", ".results_links", ".web-result"}
	titleSelectors     = []string{".result__title", ".result__a", "h2", ".title"}
	snippetSelectors   = []string{".result__snippet", ".snippet", ".result__body", ".result-snippet"}
)

type Options struct {
	HTTPClient *http.Client
	UserAgent  string
	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit          float64
	RateBurst          int
	ResilienceExecutor *resilience.Executor
}

// Client scrapes the DuckDuckGo HTML endpoint. It implements
// ports.SearchProvider.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(endpoint string, options Options) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	userAgent := strings.TrimSpace(options.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	var limiter *rate.Limiter
	if options.RateLimit > 0 {
		burst := options.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.RateLimit), burst)
	}
	return &Client{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: httpClient,
		limiter:    limiter,
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "duckduckgo search", fmt.Errorf("query is empty"))
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("duckduckgo rate limit: %w", err)
		}
	}
	results, err := resilience.Call(ctx, c.executor, "duckduckgo.search", func(callCtx context.Context) ([]domain.SearchResult, error) {
		return c.fetch(callCtx, query, limit)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("duckduckgo search", err, resilience.ClassifyHTTPError)
	}
	return results, nil
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse search endpoint: %w", err)
	}
	params := target.Query()
	params.Set("q", query)
	target.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewHTTPStatusError("duckduckgo", "search", resp)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode search page charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	return parseResults(doc, limit), nil
}

func parseResults(doc *goquery.Document, limit int) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, limit)
	for _, selector := range containerSelectors {
		containers := doc.Find(selector)
		if containers.Length() == 0 {
			continue
		}
		if limit > 0 && containers.Length() > limit {
			containers = containers.Slice(0, limit)
		}
		containers.Each(func(_ int, container *goquery.Selection) {
			title, ok := firstText(container, titleSelectors)
			if !ok {
				return
			}
			snippet, ok := firstText(container, snippetSelectors)
			if !ok {
				return
			}
			results = append(results, domain.SearchResult{Title: title, Snippet: snippet})
		})
		break
	}
	return results
}

func firstText(container *goquery.Selection, selectors []string) (string, bool) {
	for _, selector := range selectors {
		found := container.Find(selector).First()
		if found.Length() > 0 {
			return strings.TrimSpace(found.Text()), true
		}
	}
	return "", false
}
