package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/resilience"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

type Config struct {
	Provider string

	OllamaURL   string
	OllamaModel string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	Executor *resilience.Executor
}

// NewEngine builds the configured inference handle. Provider "none" returns a
// nil handle, which runs the pipeline in degraded mode.
func NewEngine(cfg Config) (ports.InferenceHandle, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOllama, "":
		return ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaModel, ollama.Options{
			ResilienceExecutor: cfg.Executor,
		}), nil
	case ProviderOpenAI:
		engine, err := openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}, cfg.Executor)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case ProviderNone:
		return nil, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "new inference engine", fmt.Errorf("unknown provider %q (supported: ollama, openai, none)", cfg.Provider))
	}
}

// ProbeHandle checks handle once at startup. It returns nil when the handle is
// absent or unusable so that the caller switches to degraded mode for the
// process lifetime.
func ProbeHandle(ctx context.Context, handle ports.InferenceHandle, timeout time.Duration, logger *slog.Logger) ports.InferenceHandle {
	if logger == nil {
		logger = slog.Default()
	}
	if handle == nil {
		logger.Warn("inference_handle_disabled")
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := handle.IsAvailable(probeCtx); err != nil {
		logger.Warn("inference_handle_unavailable", "handle", handle.Name(), "error", err)
		return nil
	}
	logger.Info("inference_handle_loaded", "handle", handle.Name())
	return handle
}
