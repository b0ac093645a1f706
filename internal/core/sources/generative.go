package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/classify"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/knowledge"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
)

const defaultGenerateTimeout = 60 * time.Second

type GenerativeOptions struct {
	Timeout time.Duration
	// Serialize guards the handle with a mutex for capabilities that cannot
	// serve concurrent calls.
	Serialize bool
	Logger    *slog.Logger
}

// GenerativeSource adapts the shared inference handle to the answer pipeline.
// A nil handle puts the source, and the pipeline, in degraded mode.
type GenerativeSource struct {
	handle  ports.InferenceHandle
	notices knowledge.Notices
	timeout time.Duration
	mu      *sync.Mutex
	logger  *slog.Logger
}

func NewGenerativeSource(handle ports.InferenceHandle, notices knowledge.Notices, opts GenerativeOptions) *GenerativeSource {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultGenerateTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &GenerativeSource{
		handle:  handle,
		notices: notices,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if opts.Serialize {
		s.mu = &sync.Mutex{}
	}
	return s
}

func (s *GenerativeSource) Available() bool {
	return s.handle != nil
}

// Generate never propagates a fault of the handle: panics, transport errors,
// timeouts and empty output all come back as ErrSourceFailure. Caller
// cancellation does not abort an in-flight call; only the source timeout does.
func (s *GenerativeSource) Generate(ctx context.Context, question domain.Question) (candidate domain.AnswerCandidate, err error) {
	if s.handle == nil {
		return domain.AnswerCandidate{}, domain.WrapError(domain.ErrResourceUnavailable, "generate answer", errors.New("inference handle is not loaded"))
	}
	defer func() {
		if r := recover(); r != nil {
			candidate = domain.AnswerCandidate{}
			err = domain.WrapError(domain.ErrSourceFailure, "generate answer", fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			s.logger.Warn("generative_source_failed", "handle", s.handle.Name(), "error", err)
		}
	}()

	notices := s.notices.For(question.Language)
	prompt := BuildPrompt(notices.GenerationInstruction, question.Text)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	text, genErr := s.handle.Generate(callCtx, prompt)
	if genErr != nil {
		return domain.AnswerCandidate{}, domain.WrapError(domain.ErrSourceFailure, "generate answer", genErr)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.AnswerCandidate{}, domain.WrapError(domain.ErrSourceFailure, "generate answer", errors.New("empty generation"))
	}

	return domain.AnswerCandidate{
		Body:        text,
		SourceLabel: notices.GeneratedLabel,
		Origin:      domain.OriginGenerated,
	}, nil
}

// BuildPrompt renders the text sent to the inference handle.
func BuildPrompt(instruction string, question string) string {
	body := "question: " + classify.Normalize(question)
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return body
	}
	return instruction + "\n\n" + body
}
