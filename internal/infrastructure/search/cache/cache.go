package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
)

// Provider memoizes a SearchProvider. Empty result sets and errors are never
// cached so a transient outage is not remembered.
type Provider struct {
	next  ports.SearchProvider
	store *gocache.Cache
}

// Wrap returns next unchanged when ttl is not positive.
func Wrap(next ports.SearchProvider, ttl time.Duration) ports.SearchProvider {
	if next == nil || ttl <= 0 {
		return next
	}
	return &Provider{
		next:  next,
		store: gocache.New(ttl, 2*ttl),
	}
}

func (p *Provider) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	key := cacheKey(query, limit)
	if cached, ok := p.store.Get(key); ok {
		return cloneResults(cached.([]domain.SearchResult)), nil
	}

	results, err := p.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		p.store.SetDefault(key, cloneResults(results))
	}
	return results, nil
}

func (p *Provider) Len() int {
	return p.store.ItemCount()
}

func cacheKey(query string, limit int) string {
	return strconv.Itoa(limit) + "|" + strings.ToLower(strings.Join(strings.Fields(query), " "))
}

func cloneResults(results []domain.SearchResult) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	copy(out, results)
	return out
}
