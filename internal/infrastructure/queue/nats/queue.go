package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/resilience"
)

const DefaultQueueGroup = "journal-workers"

const (
	eventHandleTimeout = 30 * time.Second
	drainTimeout       = 30 * time.Second
)

// Queue carries resolution events from the API to the journal workers.
type Queue struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	queueGroup := options.QueueGroup
	if queueGroup == "" {
		queueGroup = DefaultQueueGroup
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("cameroon-legal-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:       conn,
		subject:    subject,
		queueGroup: queueGroup,
		executor:   options.ResilienceExecutor,
		logger:     logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishResolution(ctx context.Context, event domain.ResolutionEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeResolutions blocks until ctx is cancelled, then drains the
// subscription and waits until every buffered event has been handled.
func (q *Queue) SubscribeResolutions(ctx context.Context, handler func(context.Context, domain.ResolutionEvent) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		q.handleMessage(ctx, handler, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	closed := sub.StatusChanged(nats.SubscriptionClosed)

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	select {
	case <-closed:
	case <-time.After(drainTimeout):
		q.logger.Warn("journal_drain_timeout", "subject", q.subject, "timeout", drainTimeout)
	}
	return nil
}

// handleMessage runs handler on a context detached from the subscription
// lifetime, so events delivered while draining are still recorded.
func (q *Queue) handleMessage(ctx context.Context, handler func(context.Context, domain.ResolutionEvent) error, data []byte) {
	event, err := decodeEvent(data)
	if err != nil {
		q.logger.Warn("journal_event_rejected", "error", err)
		return
	}

	handlerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventHandleTimeout)
	defer cancel()
	if err := handler(handlerCtx, event); err != nil {
		q.logger.Error("journal_handler_failed", "event_id", event.ID, "error", err)
	}
}

func encodeEvent(event domain.ResolutionEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode resolution event", err)
	}
	return payload, nil
}

func decodeEvent(data []byte) (domain.ResolutionEvent, error) {
	var event domain.ResolutionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.ResolutionEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode resolution event", err)
	}
	if event.ID == "" {
		return domain.ResolutionEvent{}, domain.WrapError(domain.ErrInvalidInput, "decode resolution event", errors.New("event id is empty"))
	}
	return event, nil
}
