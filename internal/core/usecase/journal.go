package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
)

const defaultPublishTimeout = 2 * time.Second

// JournalObserver forwards resolution events to the journal transport in the
// background. A failed publish is logged and never reaches the caller of
// Resolve. Wait blocks until pending publishes finish.
type JournalObserver struct {
	publisher ports.EventPublisher
	timeout   time.Duration
	logger    *slog.Logger
	pending   sync.WaitGroup
}

func NewJournalObserver(publisher ports.EventPublisher, logger *slog.Logger) *JournalObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalObserver{
		publisher: publisher,
		timeout:   defaultPublishTimeout,
		logger:    logger,
	}
}

func (o *JournalObserver) ObserveResolution(ctx context.Context, event domain.ResolutionEvent) {
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		defer cancel()
		o.publish(publishCtx, event)
	}()
}

func (o *JournalObserver) publish(ctx context.Context, event domain.ResolutionEvent) {
	if err := o.publisher.PublishResolution(ctx, event); err != nil {
		o.logger.Warn("journal_publish_failed",
			"request_id", event.RequestID,
			"event_id", event.ID,
			"temporary", domain.IsKind(err, domain.ErrTemporary),
			"error", err,
		)
	}
}

func (o *JournalObserver) Wait() {
	o.pending.Wait()
}

// JournalUseCase persists resolution events and answers usage questions
// about them.
type JournalUseCase struct {
	journal ports.ResolutionJournal
}

func NewJournalUseCase(journal ports.ResolutionJournal) *JournalUseCase {
	return &JournalUseCase{journal: journal}
}

func (uc *JournalUseCase) Record(ctx context.Context, event domain.ResolutionEvent) error {
	if event.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record resolution", errors.New("event id is empty"))
	}
	if event.Stage == "" || event.Source == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record resolution", fmt.Errorf("event %s has no stage or source", event.ID))
	}
	if err := uc.journal.Save(ctx, event); err != nil {
		return fmt.Errorf("save resolution event: %w", err)
	}
	return nil
}

// Stats reports per-source counts over the trailing window.
func (uc *JournalUseCase) Stats(ctx context.Context, window time.Duration) ([]domain.SourceCount, error) {
	if window <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "journal stats", fmt.Errorf("window must be positive, got %s", window))
	}
	counts, err := uc.journal.SourceCounts(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("load source counts: %w", err)
	}
	return counts, nil
}
