package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/catalog"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/classify"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/format"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
)

type ResolveOptions struct {
	Logger    *slog.Logger
	Observers []ports.ResolutionObserver
	// RecordQuestions copies the question text into resolution events.
	RecordQuestions bool
}

// ResolveUseCase is the resolution orchestrator. It holds no per-request
// state and is safe for concurrent use.
type ResolveUseCase struct {
	classifier      *classify.Classifier
	catalog         *catalog.Catalog
	formatter       *format.Formatter
	generative      ports.GenerativeAnswerSource
	search          ports.SearchAnswerSource
	observers       []ports.ResolutionObserver
	recordQuestions bool
	logger          *slog.Logger
}

func NewResolveUseCase(
	classifier *classify.Classifier,
	catalog *catalog.Catalog,
	formatter *format.Formatter,
	generative ports.GenerativeAnswerSource,
	search ports.SearchAnswerSource,
	opts ResolveOptions,
) *ResolveUseCase {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ResolveUseCase{
		classifier:      classifier,
		catalog:         catalog,
		formatter:       formatter,
		generative:      generative,
		search:          search,
		observers:       opts.Observers,
		recordQuestions: opts.RecordQuestions,
		logger:          opts.Logger,
	}
}

// Degraded reports whether the generative capability is absent.
func (uc *ResolveUseCase) Degraded() bool {
	return uc.generative == nil || !uc.generative.Available()
}

// resolution is the state of one request while it moves through the stages.
type resolution struct {
	question       domain.Question
	requestID      string
	classification domain.Classification
	// generated keeps a low-quality candidate for last-resort reuse.
	generated *domain.AnswerCandidate
	quality   domain.QualityVerdict
}

// Resolve always returns a non-empty answer and source. Faults raised by any
// stage are converted into the system notice.
func (uc *ResolveUseCase) Resolve(ctx context.Context, question domain.Question) (result domain.ResolutionResult) {
	started := time.Now()
	question = domain.NewQuestion(classify.Normalize(question.Text), question.Language)
	degraded := uc.Degraded()
	state := &resolution{
		question:  question,
		requestID: domain.RequestIDFromContext(ctx),
	}

	stage := domain.StageSystemNotice
	var candidate domain.AnswerCandidate
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("resolution_panic",
				"request_id", state.requestID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			stage = domain.StageSystemNotice
			candidate = uc.catalog.SystemNotice(question.Language)
			result = toResult(candidate)
		}
		uc.observe(ctx, state, stage, candidate, degraded, time.Since(started))
	}()

	order := domain.ResolutionOrder
	if degraded {
		order = domain.DegradedOrder
	}
	stage, candidate = uc.run(ctx, state, order)
	if strings.TrimSpace(candidate.Body) == "" || strings.TrimSpace(candidate.SourceLabel) == "" {
		uc.logger.Error("resolution_empty_candidate", "request_id", state.requestID, "stage", stage)
		stage = domain.StageSystemNotice
		candidate = uc.catalog.SystemNotice(question.Language)
	}
	return toResult(candidate)
}

func (uc *ResolveUseCase) run(ctx context.Context, state *resolution, order []domain.Stage) (domain.Stage, domain.AnswerCandidate) {
	state.classification = uc.classifier.Classify(state.question.Text)
	for _, stage := range order {
		if candidate, ok := uc.runStage(ctx, stage, state); ok {
			return stage, candidate
		}
	}
	return domain.StageFallback, uc.catalog.InformationFallback(state.question.Language)
}

func (uc *ResolveUseCase) runStage(ctx context.Context, stage domain.Stage, state *resolution) (domain.AnswerCandidate, bool) {
	language := state.question.Language
	switch stage {
	case domain.StageGreeting:
		if state.classification.Kind == domain.ClassGreeting {
			return uc.catalog.Greeting(language), true
		}
	case domain.StageSafetyGate:
		if state.classification.Kind == domain.ClassHarmful {
			uc.logger.Warn("safety_override", "request_id", state.requestID, "gate", "question")
			return uc.catalog.SafetyOverride(language), true
		}
	case domain.StageDomainScope:
		if state.classification.Kind == domain.ClassOutOfDomain {
			return uc.catalog.OutOfScope(state.classification.OutOfDomain, language), true
		}
	case domain.StageCatalog:
		return uc.catalog.Lookup(state.question)
	case domain.StageGenerative:
		return uc.generate(ctx, state)
	case domain.StageSearch:
		return uc.searchAnswer(ctx, state)
	case domain.StageLastResort:
		if state.generated != nil {
			candidate := *state.generated
			candidate.Body = uc.formatter.Format(candidate.Body, language)
			return candidate, true
		}
	case domain.StageFallback:
		return uc.catalog.InformationFallback(language), true
	case domain.StageTechnicalNotice:
		return uc.catalog.TechnicalDifficulty(language), true
	}
	return domain.AnswerCandidate{}, false
}

func (uc *ResolveUseCase) generate(ctx context.Context, state *resolution) (domain.AnswerCandidate, bool) {
	if uc.generative == nil {
		return domain.AnswerCandidate{}, false
	}
	question := state.question
	candidate, err := uc.generative.Generate(ctx, question)
	if err != nil {
		return domain.AnswerCandidate{}, false
	}

	if uc.classifier.IsHarmfulAnswer(question.Text, candidate.Body) {
		uc.logger.Warn("safety_override", "request_id", state.requestID, "gate", "answer")
		return uc.catalog.SafetyOverride(question.Language), true
	}

	state.quality = uc.classifier.AssessQuality(question.Text, candidate.Body)
	if !state.quality.Acceptable {
		uc.logger.Info("generated_answer_rejected", "request_id", state.requestID, "reason", state.quality.Reason)
		state.generated = &candidate
		return domain.AnswerCandidate{}, false
	}

	candidate.Body = uc.formatter.Format(candidate.Body, question.Language)
	if label, ok := uc.classifier.TopicLabel(question.Text, question.Language); ok {
		candidate.SourceLabel = label
	}
	return candidate, true
}

func (uc *ResolveUseCase) searchAnswer(ctx context.Context, state *resolution) (domain.AnswerCandidate, bool) {
	if uc.search == nil {
		return domain.AnswerCandidate{}, false
	}
	language := state.question.Language
	body := uc.formatter.RenderSearch(uc.search.Search(ctx, state.question.Text), language)
	if body == "" {
		return domain.AnswerCandidate{}, false
	}
	return domain.AnswerCandidate{
		Body:        body,
		SourceLabel: uc.catalog.SearchLabel(language),
		Origin:      domain.OriginSearched,
	}, true
}

// PreviewSearch runs the search source alone and reports what the search
// stage would have produced.
func (uc *ResolveUseCase) PreviewSearch(ctx context.Context, query string, language domain.Language) domain.SearchPreview {
	preview := domain.SearchPreview{
		Query:           query,
		FormattedAnswer: uc.catalog.NoSearchResults(language),
	}
	if uc.search == nil {
		return preview
	}
	results := uc.search.Search(ctx, query)
	preview.ResultCount = len(results)
	preview.Success = len(results) > 0
	if preview.Success {
		preview.FormattedAnswer = uc.formatter.RenderSearch(results, language)
	}
	return preview
}

func (uc *ResolveUseCase) observe(
	ctx context.Context,
	state *resolution,
	stage domain.Stage,
	candidate domain.AnswerCandidate,
	degraded bool,
	elapsed time.Duration,
) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("resolution_observer_panic", "request_id", state.requestID, "panic", fmt.Sprint(r))
		}
	}()

	event := domain.ResolutionEvent{
		ID:            uuid.NewString(),
		RequestID:     state.requestID,
		Language:      state.question.Language,
		Stage:         stage,
		Source:        candidate.SourceLabel,
		Origin:        candidate.Origin,
		Degraded:      degraded,
		QualityReason: state.quality.Reason,
		Duration:      elapsed,
		CreatedAt:     time.Now().UTC(),
	}
	if uc.recordQuestions {
		event.Question = state.question.Text
	}

	uc.logger.Info("resolution_completed",
		"request_id", event.RequestID,
		"stage", event.Stage,
		"source", event.Source,
		"degraded", event.Degraded,
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)
	for _, observer := range uc.observers {
		observer.ObserveResolution(ctx, event)
	}
}

func toResult(candidate domain.AnswerCandidate) domain.ResolutionResult {
	return domain.ResolutionResult{
		Answer: candidate.Body,
		Source: candidate.SourceLabel,
	}
}
