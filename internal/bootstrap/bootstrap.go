package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kirillkom/cameroon-legal-assistant/internal/config"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/catalog"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/classify"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/format"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/knowledge"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/sources"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/usecase"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/search/cache"
	"github.com/kirillkom/cameroon-legal-assistant/internal/infrastructure/search/duckduckgo"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/metrics"
)

type Options struct {
	Logger *slog.Logger
	// Metrics, when set, observes every resolution and tracks degraded mode.
	Metrics *metrics.HTTPServerMetrics
	// Handle overrides the configured inference handle. Tests use it to run
	// the pipeline without a model server.
	Handle ports.InferenceHandle
	// Search overrides the configured search provider.
	Search ports.SearchProvider
}

type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Knowledge *knowledge.Bundle
	Executor  *resilience.Executor

	ResolveUC *usecase.ResolveUseCase

	closeFn func()
}

// New builds the resolution pipeline. The inference handle is probed once
// here; when it is absent or unusable the pipeline runs degraded for the
// lifetime of the process.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bundle, err := knowledge.Load(cfg.KnowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("load knowledge: %w", err)
	}

	executor := resilience.NewExecutorWithLogger(ResilienceConfig(cfg), logger)

	handle := opts.Handle
	if handle == nil {
		handle, err = llm.NewEngine(llm.Config{
			Provider:      cfg.GeneratorProvider,
			OllamaURL:     cfg.OllamaURL,
			OllamaModel:   cfg.OllamaGenModel,
			OpenAIAPIKey:  cfg.OpenAIAPIKey,
			OpenAIBaseURL: cfg.OpenAIBaseURL,
			OpenAIModel:   cfg.OpenAIModel,
			Executor:      executor,
		})
		if err != nil {
			logger.Error("inference_handle_misconfigured", "provider", cfg.GeneratorProvider, "error", err)
			handle = nil
		}
	}
	handle = llm.ProbeHandle(ctx, handle, cfg.GeneratorProbeTimeout, logger)

	generative := sources.NewGenerativeSource(handle, bundle.Notices, sources.GenerativeOptions{
		Timeout:   cfg.GeneratorTimeout,
		Serialize: cfg.GeneratorSerialize,
		Logger:    logger,
	})

	provider := opts.Search
	if provider == nil {
		provider = duckduckgo.New(cfg.SearchURL, duckduckgo.Options{
			HTTPClient:         &http.Client{Timeout: cfg.SearchTimeout},
			UserAgent:          cfg.SearchUserAgent,
			RateLimit:          cfg.SearchRateLimitRPS,
			ResilienceExecutor: executor,
		})
	}
	search := sources.NewSearchSource(cache.Wrap(provider, cfg.SearchCacheTTL), sources.SearchOptions{
		Suffix:     cfg.SearchContextSuffix,
		Timeout:    cfg.SearchTimeout,
		MaxResults: cfg.SearchMaxResults,
		Logger:     logger,
	})

	var (
		observers []ports.ResolutionObserver
		closers   []func()
	)
	if opts.Metrics != nil {
		observers = append(observers, opts.Metrics)
	}
	if cfg.JournalEnabled {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init journal queue: %w", err)
		}
		journal := usecase.NewJournalObserver(queue, logger)
		observers = append(observers, journal)
		closers = append(closers, func() {
			journal.Wait()
			queue.Close()
		})
	}

	resolveUC := usecase.NewResolveUseCase(
		classify.New(bundle.Terms),
		catalog.New(bundle.Catalog, bundle.Notices),
		format.New(bundle.Notices),
		generative,
		search,
		usecase.ResolveOptions{
			Logger:          logger,
			Observers:       observers,
			RecordQuestions: cfg.JournalRecordQuestions,
		},
	)
	if opts.Metrics != nil {
		opts.Metrics.SetDegraded(resolveUC.Degraded())
	}
	logger.Info("pipeline_ready", "degraded", resolveUC.Degraded(), "journal", cfg.JournalEnabled)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Knowledge: bundle,
		Executor:  executor,
		ResolveUC: resolveUC,
		closeFn: func() {
			for _, closeFn := range closers {
				closeFn()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Worker holds the journal consumer side: the queue subscription and the
// Postgres-backed journal.
type Worker struct {
	Config    config.Config
	Queue     ports.EventSubscriber
	JournalUC *usecase.JournalUseCase

	closeFn func()
}

func NewWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Worker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	journalUC, closeJournal, err := OpenJournal(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{Logger: logger})
	if err != nil {
		closeJournal()
		return nil, fmt.Errorf("init journal queue: %w", err)
	}

	return &Worker{
		Config:    cfg,
		Queue:     queue,
		JournalUC: journalUC,
		closeFn: func() {
			queue.Close()
			closeJournal()
		},
	}, nil
}

func (w *Worker) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// OpenJournal connects to Postgres and bootstraps the journal schema.
func OpenJournal(ctx context.Context, cfg config.Config) (*usecase.JournalUseCase, func(), error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewResolutionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return usecase.NewJournalUseCase(repo), func() { _ = db.Close() }, nil
}

func ResilienceConfig(cfg config.Config) resilience.Config {
	minRequests := cfg.ResilienceBreakerMinRequests
	if minRequests < 0 {
		minRequests = 0
	}
	return resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: cfg.ResilienceRetryInitialBackoff,
		RetryMaxBackoff:     cfg.ResilienceRetryMaxBackoff,

		BreakerEnabled:      cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:  uint32(minRequests),
		BreakerFailureRatio: cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:  cfg.ResilienceBreakerOpenTimeout,
	}
}
