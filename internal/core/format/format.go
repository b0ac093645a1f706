package format

import (
	"strings"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/knowledge"
)

const headingPrefix = "## "

// Formatter applies the presentation rules shared by every answer body.
type Formatter struct {
	notices knowledge.Notices
}

func New(notices knowledge.Notices) *Formatter {
	return &Formatter{notices: notices}
}

// Format strips disclaimers, trims the body and guarantees a leading heading.
// Format(Format(x)) == Format(x).
func (f *Formatter) Format(body string, language domain.Language) string {
	body = f.stripDisclaimers(body)
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, headingPrefix) {
		body = f.notices.For(language).DefaultHeading + "\n\n" + body
	}
	return strings.TrimSpace(body)
}

// stripDisclaimers repeats until no disclaimer is left, since removing one
// occurrence can join two fragments into a new one.
func (f *Formatter) stripDisclaimers(body string) string {
	for {
		stripped := body
		for _, disclaimer := range f.notices.Disclaimers {
			if disclaimer == "" {
				continue
			}
			stripped = strings.ReplaceAll(stripped, disclaimer, "")
		}
		if stripped == body {
			return body
		}
		body = stripped
	}
}

// RenderSearch concatenates results as titled sections under the localized
// search heading. It returns "" for an empty result set.
func (f *Formatter) RenderSearch(results []domain.SearchResult, language domain.Language) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(f.notices.For(language).SearchHeading)
	b.WriteString("\n\n")
	for _, result := range results {
		b.WriteString("### ")
		b.WriteString(result.Title)
		b.WriteString("\n")
		b.WriteString(result.Snippet)
		b.WriteString("\n\n")
	}
	return f.Format(b.String(), language)
}
