package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

type publisherFake struct {
	mu          sync.Mutex
	events      []domain.ResolutionEvent
	err         error
	hadDeadline bool
	release     chan struct{}
}

func (p *publisherFake) PublishResolution(ctx context.Context, event domain.ResolutionEvent) error {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, p.hadDeadline = ctx.Deadline()
	p.events = append(p.events, event)
	return p.err
}

type journalFake struct {
	saved []domain.ResolutionEvent
	since time.Time
	err   error
}

func (j *journalFake) Save(_ context.Context, event domain.ResolutionEvent) error {
	if j.err != nil {
		return j.err
	}
	j.saved = append(j.saved, event)
	return nil
}

func (j *journalFake) SourceCounts(_ context.Context, since time.Time) ([]domain.SourceCount, error) {
	j.since = since
	return []domain.SourceCount{{Source: "Cameroonian Law", Stage: domain.StageGenerative, Count: 3}}, j.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJournalObserverPublishesDetachedFromCaller(t *testing.T) {
	publisher := &publisherFake{}
	observer := NewJournalObserver(publisher, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	observer.ObserveResolution(ctx, domain.ResolutionEvent{ID: "evt-1"})
	observer.Wait()

	if len(publisher.events) != 1 || publisher.events[0].ID != "evt-1" {
		t.Fatalf("expected event published, got %+v", publisher.events)
	}
	if !publisher.hadDeadline {
		t.Fatalf("expected bounded publish context")
	}
}

func TestJournalObserverSwallowsPublishErrors(t *testing.T) {
	publisher := &publisherFake{err: domain.WrapError(domain.ErrTemporary, "nats publish", errors.New("no servers"))}
	observer := NewJournalObserver(publisher, quietLogger())
	observer.ObserveResolution(context.Background(), domain.ResolutionEvent{ID: "evt-1"})
	observer.Wait()
	if len(publisher.events) != 1 {
		t.Fatalf("expected one publish attempt")
	}
}

func TestJournalObserverDoesNotBlockResolve(t *testing.T) {
	publisher := &publisherFake{release: make(chan struct{})}
	observer := NewJournalObserver(publisher, quietLogger())

	returned := make(chan struct{})
	go func() {
		observer.ObserveResolution(context.Background(), domain.ResolutionEvent{ID: "evt-1"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("ObserveResolution blocked on a slow publisher")
	}

	close(publisher.release)
	observer.Wait()
	if len(publisher.events) != 1 {
		t.Fatalf("expected pending publish to complete, got %+v", publisher.events)
	}
}

func TestJournalUseCaseRecordValidatesEvents(t *testing.T) {
	journal := &journalFake{}
	uc := NewJournalUseCase(journal)

	if err := uc.Record(context.Background(), domain.ResolutionEvent{Stage: domain.StageCatalog, Source: "Judiciary"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing id, got %v", err)
	}
	if err := uc.Record(context.Background(), domain.ResolutionEvent{ID: "evt-1"}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing stage, got %v", err)
	}
	if err := uc.Record(context.Background(), domain.ResolutionEvent{ID: "evt-2", Stage: domain.StageCatalog, Source: "Judiciary"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(journal.saved) != 1 || journal.saved[0].ID != "evt-2" {
		t.Fatalf("unexpected saved events %+v", journal.saved)
	}
}

func TestJournalUseCaseStatsUsesTrailingWindow(t *testing.T) {
	journal := &journalFake{}
	uc := NewJournalUseCase(journal)

	before := time.Now().UTC()
	counts, err := uc.Stats(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(counts) != 1 || counts[0].Count != 3 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if journal.since.After(before.Add(-24*time.Hour+time.Minute)) || journal.since.Before(before.Add(-25*time.Hour)) {
		t.Fatalf("unexpected window start %v", journal.since)
	}

	if _, err := uc.Stats(context.Background(), 0); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty window, got %v", err)
	}
}
