package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kirillkom/cameroon-legal-assistant/internal/bootstrap"
	"github.com/kirillkom/cameroon-legal-assistant/internal/config"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/ports"
	"github.com/kirillkom/cameroon-legal-assistant/internal/observability/logging"
)

// Pipeline is the part of the resolution service the CLI drives.
type Pipeline interface {
	ports.QuestionResolver
	ports.SearchInspector
}

// JournalStats reads aggregated journal counts.
type JournalStats interface {
	Stats(ctx context.Context, window time.Duration) ([]domain.SourceCount, error)
}

type PipelineFactory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Pipeline, func(), error)

type JournalFactory func(ctx context.Context, cfg config.Config) (JournalStats, func(), error)

type Options struct {
	Version     string
	NewPipeline PipelineFactory
	OpenJournal JournalFactory
}

type app struct {
	opts    Options
	v       *viper.Viper
	cfgFile string
}

// NewRootCommand builds legalctl. Configuration is layered: flags, LEGAL_*
// environment variables, the --config file, then the service environment.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.NewPipeline == nil {
		opts.NewPipeline = defaultPipeline
	}
	if opts.OpenJournal == nil {
		opts.OpenJournal = defaultJournal
	}
	a := &app{opts: opts, v: viper.New()}

	root := &cobra.Command{
		Use:   "legalctl",
		Short: "Cameroon legal assistant command line",
		Long: `legalctl runs the legal question pipeline locally.

It answers questions about Cameroonian law, previews the legal web search
and reports journal statistics. Answers are informational and are not
legal advice.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml)")
	flags.String("provider", "", "generator provider (ollama, openai, none)")
	flags.String("knowledge-dir", "", "directory overriding the embedded term tables, catalog and notices")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("generator_provider", flags.Lookup("provider"))
	_ = a.v.BindPFlag("knowledge_dir", flags.Lookup("knowledge-dir"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(
		a.newAskCommand(),
		a.newSearchCommand(),
		a.newConfigCommand(),
		a.newJournalCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Execute runs legalctl with process arguments.
func Execute(version string) error {
	return NewRootCommand(Options{Version: version}).Execute()
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}
	a.v.SetEnvPrefix("LEGAL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()
	return nil
}

// config merges viper overrides into the environment-derived service config.
func (a *app) config() config.Config {
	cfg := config.Load()
	str := func(key string, dst *string) {
		if a.v.IsSet(key) {
			*dst = a.v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if a.v.IsSet(key) {
			*dst = a.v.GetInt(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if a.v.IsSet(key) {
			*dst = a.v.GetDuration(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if a.v.IsSet(key) {
			*dst = a.v.GetBool(key)
		}
	}

	str("log_level", &cfg.LogLevel)
	str("generator_provider", &cfg.GeneratorProvider)
	dur("generator_timeout", &cfg.GeneratorTimeout)
	boolean("generator_serialize", &cfg.GeneratorSerialize)
	dur("generator_probe_timeout", &cfg.GeneratorProbeTimeout)
	str("ollama_url", &cfg.OllamaURL)
	str("ollama_gen_model", &cfg.OllamaGenModel)
	str("openai_api_key", &cfg.OpenAIAPIKey)
	str("openai_base_url", &cfg.OpenAIBaseURL)
	str("openai_model", &cfg.OpenAIModel)
	str("search_url", &cfg.SearchURL)
	dur("search_timeout", &cfg.SearchTimeout)
	num("search_max_results", &cfg.SearchMaxResults)
	str("search_context_suffix", &cfg.SearchContextSuffix)
	dur("search_cache_ttl", &cfg.SearchCacheTTL)
	str("knowledge_dir", &cfg.KnowledgeDir)
	str("postgres_dsn", &cfg.PostgresDSN)

	// The CLI never journals its own requests.
	cfg.JournalEnabled = false
	return cfg
}

func (a *app) logger(cfg config.Config) *slog.Logger {
	return logging.NewJSONLoggerTo(os.Stderr, "legalctl", cfg.LogLevel)
}

func (a *app) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "legalctl %s\n", a.opts.Version)
			return err
		},
	}
}

func defaultPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (Pipeline, func(), error) {
	svc, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return svc.ResolveUC, svc.Close, nil
}

func defaultJournal(ctx context.Context, cfg config.Config) (JournalStats, func(), error) {
	journal, closeFn, err := bootstrap.OpenJournal(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return journal, closeFn, nil
}
