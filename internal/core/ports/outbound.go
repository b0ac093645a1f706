package ports

import (
	"context"
	"time"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

// InferenceHandle is the process-wide generative capability. It is loaded once
// at startup and only read afterwards.
type InferenceHandle interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	IsAvailable(ctx context.Context) error
}

// SearchProvider runs a raw web search and returns results in ranked order.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// GenerativeAnswerSource turns a question into a generated candidate.
type GenerativeAnswerSource interface {
	Available() bool
	Generate(ctx context.Context, question domain.Question) (domain.AnswerCandidate, error)
}

// SearchAnswerSource returns filtered search results; an empty slice is the
// only failure signal.
type SearchAnswerSource interface {
	Search(ctx context.Context, query string) []domain.SearchResult
}

// ResolutionObserver is notified once per resolved request.
type ResolutionObserver interface {
	ObserveResolution(ctx context.Context, event domain.ResolutionEvent)
}

// EventPublisher ships resolution events to the journal transport.
type EventPublisher interface {
	PublishResolution(ctx context.Context, event domain.ResolutionEvent) error
}

// EventSubscriber consumes resolution events until ctx is cancelled.
type EventSubscriber interface {
	SubscribeResolutions(ctx context.Context, handler func(context.Context, domain.ResolutionEvent) error) error
}

// ResolutionJournal persists resolution events.
type ResolutionJournal interface {
	Save(ctx context.Context, event domain.ResolutionEvent) error
	SourceCounts(ctx context.Context, since time.Time) ([]domain.SourceCount, error)
}
