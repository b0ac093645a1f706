package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/classify"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
)

const (
	DefaultSearchSuffix     = "Cameroon law legal"
	DefaultSearchMaxResults = 5
	defaultSearchTimeout    = 10 * time.Second

	// Snippets of this many characters or fewer carry no usable content.
	minSnippetRunes = 20
)

type SearchOptions struct {
	Suffix     string
	Timeout    time.Duration
	MaxResults int
	Logger     *slog.Logger
}

// SearchSource wraps a SearchProvider so that every failure degrades to an
// empty result set.
type SearchSource struct {
	provider   ports.SearchProvider
	suffix     string
	timeout    time.Duration
	maxResults int
	logger     *slog.Logger
}

func NewSearchSource(provider ports.SearchProvider, opts SearchOptions) *SearchSource {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSearchTimeout
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultSearchMaxResults
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SearchSource{
		provider:   provider,
		suffix:     strings.TrimSpace(opts.Suffix),
		timeout:    opts.Timeout,
		maxResults: opts.MaxResults,
		logger:     opts.Logger,
	}
}

// Query returns the text dispatched to the provider for question.
func (s *SearchSource) Query(question string) string {
	query := classify.Normalize(question)
	if s.suffix == "" {
		return query
	}
	return strings.TrimSpace(query + " " + s.suffix)
}

// Search returns at most MaxResults filtered results in provider order.
func (s *SearchSource) Search(ctx context.Context, question string) (results []domain.SearchResult) {
	if s.provider == nil {
		return nil
	}
	query := s.Query(question)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("search_source_failed", "query", query, "error", fmt.Sprintf("panic: %v", r))
			results = nil
		}
	}()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	raw, err := s.provider.Search(callCtx, query, s.maxResults)
	if err != nil {
		s.logger.Warn("search_source_failed", "query", query, "error", err)
		return nil
	}

	results = make([]domain.SearchResult, 0, len(raw))
	for _, item := range raw {
		if len(results) == s.maxResults {
			break
		}
		snippet := strings.TrimSpace(item.Snippet)
		if utf8.RuneCountInString(snippet) <= minSnippetRunes {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:   strings.TrimSpace(item.Title),
			Snippet: snippet,
		})
	}
	if len(results) == 0 {
		s.logger.Info("search_source_empty", "query", query, "raw_results", len(raw))
		return nil
	}
	return results
}
