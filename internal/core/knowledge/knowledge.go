package knowledge

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
)

const (
	termsFile   = "terms.yaml"
	catalogFile = "catalog.yaml"
	noticesFile = "notices.yaml"
)

//go:embed data/*.yaml
var embedded embed.FS

type Terms struct {
	Greetings               []string         `yaml:"greetings"`
	ViolencePreGate         []string         `yaml:"violence_pre_gate"`
	ViolencePostHoc         []string         `yaml:"violence_post_hoc"`
	AffirmativePrefixes     []string         `yaml:"affirmative_prefixes"`
	DangerousAnswerPatterns []string         `yaml:"dangerous_answer_patterns"`
	Geography               []string         `yaml:"geography"`
	NonLegalTopics          []string         `yaml:"non_legal_topics"`
	ForeignCountries        []string         `yaml:"foreign_countries"`
	LegalTerms              []string         `yaml:"legal_terms"`
	HomeJurisdiction        []string         `yaml:"home_jurisdiction"`
	Quality                 QualityRules     `yaml:"quality"`
	TopicLabels             []TopicLabelRule `yaml:"topic_labels"`
}

type QualityRules struct {
	MinWords               int           `yaml:"min_words"`
	TerseAffirmativePrefix string        `yaml:"terse_affirmative_prefix"`
	TerseAffirmativeWords  int           `yaml:"terse_affirmative_words"`
	Boilerplate            []string      `yaml:"boilerplate"`
	TopicAnchors           []TopicAnchor `yaml:"topic_anchors"`
}

// TopicAnchor requires an answer to mention one of Accept whenever the
// question mentions Term.
type TopicAnchor struct {
	Term   string   `yaml:"term"`
	Accept []string `yaml:"accept"`
}

type TopicLabelRule struct {
	Terms  []string                   `yaml:"terms"`
	Labels map[domain.Language]string `yaml:"labels"`
}

type CatalogEntry struct {
	Key    string `yaml:"key"`
	Source string `yaml:"source"`
	Body   string `yaml:"body"`
}

type Catalog struct {
	Languages map[domain.Language][]CatalogEntry `yaml:"languages"`
}

// Entries returns the ordered catalog for language, or nil when the language
// has no curated answers.
func (c Catalog) Entries(language domain.Language) []CatalogEntry {
	return c.Languages[language]
}

type Notice struct {
	Source string `yaml:"source"`
	Body   string `yaml:"body"`
}

type LanguageNotices struct {
	DefaultHeading        string `yaml:"default_heading"`
	SearchHeading         string `yaml:"search_heading"`
	GeneratedLabel        string `yaml:"generated_label"`
	SearchLabel           string `yaml:"search_label"`
	NoSearchResults       string `yaml:"no_search_results"`
	GenerationInstruction string `yaml:"generation_instruction"`
	Greeting              Notice `yaml:"greeting"`
	OutOfDomain           Notice `yaml:"out_of_domain"`
	ForeignJurisdiction   Notice `yaml:"foreign_jurisdiction"`
	SafetyOverride        Notice `yaml:"safety_override"`
	TechnicalDifficulty   Notice `yaml:"technical_difficulty"`
	InformationFallback   Notice `yaml:"information_fallback"`
	SystemNotice          Notice `yaml:"system_notice"`
}

type Notices struct {
	Disclaimers []string                            `yaml:"disclaimers"`
	Languages   map[domain.Language]LanguageNotices `yaml:"languages"`
}

// For returns the notices of language, falling back to English.
func (n Notices) For(language domain.Language) LanguageNotices {
	if notices, ok := n.Languages[language]; ok {
		return notices
	}
	return n.Languages[domain.LanguageEnglish]
}

// Bundle is the complete declarative knowledge of the pipeline. It is loaded
// once at startup and read-only afterwards.
type Bundle struct {
	Terms   Terms
	Catalog Catalog
	Notices Notices
}

// LoadEmbedded returns the knowledge compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded knowledge: %w", err)
	}
	return load(sub, nil)
}

// Load reads knowledge files from dir. Files missing from dir fall back to the
// embedded copy.
func Load(dir string) (*Bundle, error) {
	if strings.TrimSpace(dir) == "" {
		return LoadEmbedded()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat knowledge dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge dir %s is not a directory", dir)
	}
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded knowledge: %w", err)
	}
	return load(os.DirFS(dir), sub)
}

func load(primary fs.FS, fallback fs.FS) (*Bundle, error) {
	bundle := &Bundle{}
	if err := decodeFile(primary, fallback, termsFile, &bundle.Terms); err != nil {
		return nil, err
	}
	if err := decodeFile(primary, fallback, catalogFile, &bundle.Catalog); err != nil {
		return nil, err
	}
	if err := decodeFile(primary, fallback, noticesFile, &bundle.Notices); err != nil {
		return nil, err
	}
	bundle.normalize()
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func decodeFile(primary fs.FS, fallback fs.FS, name string, out any) error {
	raw, err := fs.ReadFile(primary, name)
	if errors.Is(err, fs.ErrNotExist) && fallback != nil {
		raw, err = fs.ReadFile(fallback, name)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// normalize lower-cases every vocabulary entry so classifiers can match
// against lower-cased text only.
func (b *Bundle) normalize() {
	t := &b.Terms
	for _, list := range []*[]string{
		&t.Greetings, &t.ViolencePreGate, &t.ViolencePostHoc, &t.AffirmativePrefixes,
		&t.DangerousAnswerPatterns, &t.Geography, &t.NonLegalTopics, &t.ForeignCountries,
		&t.LegalTerms, &t.HomeJurisdiction, &t.Quality.Boilerplate,
	} {
		*list = lowerAll(*list)
	}
	t.Quality.TerseAffirmativePrefix = strings.ToLower(t.Quality.TerseAffirmativePrefix)
	for i := range t.Quality.TopicAnchors {
		t.Quality.TopicAnchors[i].Term = strings.ToLower(strings.TrimSpace(t.Quality.TopicAnchors[i].Term))
		t.Quality.TopicAnchors[i].Accept = lowerAll(t.Quality.TopicAnchors[i].Accept)
	}
	for i := range t.TopicLabels {
		t.TopicLabels[i].Terms = lowerAll(t.TopicLabels[i].Terms)
	}
	for language, entries := range b.Catalog.Languages {
		for i := range entries {
			entries[i].Key = strings.ToLower(strings.TrimSpace(entries[i].Key))
		}
		b.Catalog.Languages[language] = entries
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}

// Validate rejects bundles that would leave a pipeline stage without data.
func (b *Bundle) Validate() error {
	t := b.Terms
	required := map[string][]string{
		"greetings":                 t.Greetings,
		"violence_pre_gate":         t.ViolencePreGate,
		"violence_post_hoc":         t.ViolencePostHoc,
		"affirmative_prefixes":      t.AffirmativePrefixes,
		"dangerous_answer_patterns": t.DangerousAnswerPatterns,
		"geography":                 t.Geography,
		"non_legal_topics":          t.NonLegalTopics,
		"foreign_countries":         t.ForeignCountries,
		"legal_terms":               t.LegalTerms,
		"home_jurisdiction":         t.HomeJurisdiction,
	}
	for name, list := range required {
		if len(list) == 0 {
			return invalid(termsFile, "%s is empty", name)
		}
	}
	if t.Quality.MinWords <= 0 {
		return invalid(termsFile, "quality.min_words must be positive")
	}
	if t.Quality.TerseAffirmativeWords < 0 {
		return invalid(termsFile, "quality.terse_affirmative_words must not be negative")
	}
	for i, anchor := range t.Quality.TopicAnchors {
		if anchor.Term == "" || len(anchor.Accept) == 0 {
			return invalid(termsFile, "quality.topic_anchors[%d] needs a term and accepted words", i)
		}
	}
	for i, rule := range t.TopicLabels {
		if len(rule.Terms) == 0 || strings.TrimSpace(rule.Labels[domain.LanguageEnglish]) == "" {
			return invalid(termsFile, "topic_labels[%d] needs terms and an english label", i)
		}
	}

	for language, entries := range b.Catalog.Languages {
		for i, entry := range entries {
			if entry.Key == "" || strings.TrimSpace(entry.Body) == "" || strings.TrimSpace(entry.Source) == "" {
				return invalid(catalogFile, "%s[%d] needs key, source and body", language, i)
			}
		}
	}

	if _, ok := b.Notices.Languages[domain.LanguageEnglish]; !ok {
		return invalid(noticesFile, "english notices are missing")
	}
	for language, notices := range b.Notices.Languages {
		if err := notices.validate(); err != nil {
			return invalid(noticesFile, "%s: %v", language, err)
		}
	}
	return nil
}

func (n LanguageNotices) validate() error {
	texts := map[string]string{
		"default_heading":   n.DefaultHeading,
		"search_heading":    n.SearchHeading,
		"generated_label":   n.GeneratedLabel,
		"search_label":      n.SearchLabel,
		"no_search_results": n.NoSearchResults,
	}
	for name, text := range texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%s is empty", name)
		}
	}
	if !strings.HasPrefix(n.DefaultHeading, "## ") || !strings.HasPrefix(n.SearchHeading, "## ") {
		return fmt.Errorf("headings must start with \"## \"")
	}
	notices := map[string]Notice{
		"greeting":             n.Greeting,
		"out_of_domain":        n.OutOfDomain,
		"foreign_jurisdiction": n.ForeignJurisdiction,
		"safety_override":      n.SafetyOverride,
		"technical_difficulty": n.TechnicalDifficulty,
		"information_fallback": n.InformationFallback,
		"system_notice":        n.SystemNotice,
	}
	for name, notice := range notices {
		if strings.TrimSpace(notice.Body) == "" || strings.TrimSpace(notice.Source) == "" {
			return fmt.Errorf("%s needs body and source", name)
		}
	}
	return nil
}

func invalid(file string, format string, args ...any) error {
	return domain.WrapError(domain.ErrInvalidInput, "load knowledge "+path.Base(file), fmt.Errorf(format, args...))
}
