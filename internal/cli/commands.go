package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

func (a *app) newAskCommand() *cobra.Command {
	var (
		language string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about Cameroonian law",
		Example: `  legalctl ask "What is the role of the Prime Minister?"
  legalctl ask --language fr "Qui est le président ?"
  legalctl ask --provider none "What are the rules on bail?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is empty"))
			}
			lang, err := domain.ParseLanguage(language)
			if err != nil {
				return err
			}

			cfg := a.config()
			pipeline, closeFn, err := a.opts.NewPipeline(cmd.Context(), cfg, a.logger(cfg))
			if err != nil {
				return fmt.Errorf("start pipeline: %w", err)
			}
			defer closeFn()

			result := pipeline.Resolve(cmd.Context(), domain.NewQuestion(question, lang))
			if asJSON {
				return writeJSON(cmd, result)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nSource: %s\n", result.Answer, result.Source)
			return err
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "en", "answer language (en, fr)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer and source as JSON")
	return cmd
}

func (a *app) newSearchCommand() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Preview the legal web search for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			lang, err := domain.ParseLanguage(language)
			if err != nil {
				return err
			}

			cfg := a.config()
			pipeline, closeFn, err := a.opts.NewPipeline(cmd.Context(), cfg, a.logger(cfg))
			if err != nil {
				return fmt.Errorf("start pipeline: %w", err)
			}
			defer closeFn()

			return writeJSON(cmd, pipeline.PreviewSearch(cmd.Context(), query, lang))
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "en", "heading language (en, fr)")
	return cmd
}

func (a *app) newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect legalctl configuration",
		Long: `Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (LEGAL_*)
3. Config file (--config)
4. Service environment (API_PORT, GENERATOR_PROVIDER, ...) and defaults`,
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if used := a.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n", used)
			}
			data, err := yaml.Marshal(a.config().Redacted())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return configCmd
}

func (a *app) newJournalCommand() *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the resolution journal",
	}

	var window time.Duration
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Count answered requests per stage and source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			journal, closeFn, err := a.opts.OpenJournal(cmd.Context(), a.config())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer closeFn()

			counts, err := journal.Stats(cmd.Context(), window)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tSOURCE\tCOUNT")
			total := 0
			for _, count := range counts {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", count.Stage, count.Source, count.Count)
				total += count.Count
			}
			fmt.Fprintf(tw, "\t\t\nTOTAL\t\t%d\n", total)
			return tw.Flush()
		},
	}
	statsCmd.Flags().DurationVar(&window, "since", 24*time.Hour, "trailing window to aggregate")
	journalCmd.AddCommand(statsCmd)
	return journalCmd
}

func writeJSON(cmd *cobra.Command, payload any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(payload)
}

// ExitCode maps an execution error onto a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case domain.IsKind(err, domain.ErrInvalidInput):
		return 2
	default:
		return 1
	}
}

// Fail prints err to stderr and exits.
func Fail(err error) {
	fmt.Fprintf(os.Stderr, "legalctl: %v\n", err)
	os.Exit(ExitCode(err))
}
