package format

import (
	"strings"
	"testing"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/knowledge"
)

const disclaimer = "This is for academic purposes; please verify information with official sources."

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	bundle, err := knowledge.LoadEmbedded()
	if err != nil {
		t.Fatalf("load knowledge: %v", err)
	}
	return New(bundle.Notices)
}

func TestFormatPrependsLocalizedHeading(t *testing.T) {
	f := newFormatter(t)

	got := f.Format("  The Senate has 100 members.  ", domain.LanguageEnglish)
	want := "## Cameroon Legal Information\n\nThe Senate has 100 members."
	if got != want {
		t.Fatalf("unexpected english body %q", got)
	}

	got = f.Format("Le Sénat compte 100 membres.", domain.LanguageFrench)
	if !strings.HasPrefix(got, "## Informations Juridiques du Cameroun\n\n") {
		t.Fatalf("unexpected french body %q", got)
	}
}

func TestFormatKeepsExistingHeading(t *testing.T) {
	f := newFormatter(t)
	got := f.Format("## Senate\n\nThe Senate has 100 members.", domain.LanguageEnglish)
	if got != "## Senate\n\nThe Senate has 100 members." {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestFormatStripsDisclaimer(t *testing.T) {
	f := newFormatter(t)
	got := f.Format("## Senate\n\nThe Senate has 100 members. "+disclaimer, domain.LanguageEnglish)
	if strings.Contains(got, "academic purposes") {
		t.Fatalf("expected disclaimer removed, got %q", got)
	}
	if got != "## Senate\n\nThe Senate has 100 members." {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestFormatStripsNestedDisclaimer(t *testing.T) {
	f := newFormatter(t)
	half := len(disclaimer) / 2
	nested := disclaimer[:half] + disclaimer + disclaimer[half:]
	got := f.Format(nested, domain.LanguageEnglish)
	if strings.Contains(got, disclaimer) {
		t.Fatalf("expected nested disclaimer removed, got %q", got)
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	f := newFormatter(t)
	inputs := []string{
		"",
		"   ",
		"plain answer",
		"## Heading\n\nbody",
		"#Heading without space",
		disclaimer,
		"  " + disclaimer + " answer after disclaimer \n",
		"##\tNot quite a heading",
	}
	for _, language := range []domain.Language{domain.LanguageEnglish, domain.LanguageFrench} {
		for _, input := range inputs {
			once := f.Format(input, language)
			twice := f.Format(once, language)
			if once != twice {
				t.Fatalf("format not idempotent for %q (%s): %q != %q", input, language, once, twice)
			}
			if once == "" {
				t.Fatalf("format produced empty body for %q", input)
			}
		}
	}
}

func TestRenderSearch(t *testing.T) {
	f := newFormatter(t)
	results := []domain.SearchResult{
		{Title: "Penal Code of Cameroon", Snippet: "Law No. 2016/007 of 12 July 2016 relating to the Penal Code."},
		{Title: "Labour Code", Snippet: "Law No. 92/007 of 14 August 1992 instituting the Labour Code."},
	}

	got := f.RenderSearch(results, domain.LanguageEnglish)
	want := "## Cameroon Legal Information\n\n" +
		"### Penal Code of Cameroon\nLaw No. 2016/007 of 12 July 2016 relating to the Penal Code.\n\n" +
		"### Labour Code\nLaw No. 92/007 of 14 August 1992 instituting the Labour Code."
	if got != want {
		t.Fatalf("unexpected rendering:\n%s", got)
	}

	fr := f.RenderSearch(results, domain.LanguageFrench)
	if !strings.HasPrefix(fr, "## Informations Juridiques du Cameroun\n\n### Penal Code") {
		t.Fatalf("unexpected french rendering:\n%s", fr)
	}
}

func TestRenderSearchEmpty(t *testing.T) {
	f := newFormatter(t)
	if got := f.RenderSearch(nil, domain.LanguageEnglish); got != "" {
		t.Fatalf("expected empty rendering, got %q", got)
	}
}
