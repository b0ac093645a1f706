package ports

import (
	"context"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

// QuestionResolver is the inbound contract consumed by every transport. It
// always yields a non-empty answer and source.
type QuestionResolver interface {
	Resolve(ctx context.Context, question domain.Question) domain.ResolutionResult
}

// SearchInspector is the inbound contract for diagnostic search previews.
type SearchInspector interface {
	PreviewSearch(ctx context.Context, query string, language domain.Language) domain.SearchPreview
}

// ServiceStatus reports whether the pipeline runs without the generative capability.
type ServiceStatus interface {
	Degraded() bool
}
