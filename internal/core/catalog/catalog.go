package catalog

import (
	"strings"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/classify"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/knowledge"
)

// Catalog serves curated answers and canned notices. It is read-only after
// construction.
type Catalog struct {
	entries knowledge.Catalog
	notices knowledge.Notices
}

func New(entries knowledge.Catalog, notices knowledge.Notices) *Catalog {
	return &Catalog{entries: entries, notices: notices}
}

// Lookup returns the first curated entry whose key occurs in the question.
// Enumeration order decides ties, not match length.
func (c *Catalog) Lookup(question domain.Question) (domain.AnswerCandidate, bool) {
	folded := strings.ToLower(classify.Normalize(question.Text))
	for _, entry := range c.entries.Entries(question.Language) {
		if strings.Contains(folded, entry.Key) {
			return domain.AnswerCandidate{
				Body:        entry.Body,
				SourceLabel: entry.Source,
				Origin:      domain.OriginCatalog,
			}, true
		}
	}
	return domain.AnswerCandidate{}, false
}

func (c *Catalog) Greeting(language domain.Language) domain.AnswerCandidate {
	return synthetic(c.notices.For(language).Greeting)
}

func (c *Catalog) SafetyOverride(language domain.Language) domain.AnswerCandidate {
	return synthetic(c.notices.For(language).SafetyOverride)
}

// OutOfScope returns the notice matching the out-of-domain kind.
func (c *Catalog) OutOfScope(kind domain.OutOfDomainKind, language domain.Language) domain.AnswerCandidate {
	notices := c.notices.For(language)
	if kind == domain.OutOfDomainForeignJurisdiction {
		return synthetic(notices.ForeignJurisdiction)
	}
	return synthetic(notices.OutOfDomain)
}

func (c *Catalog) TechnicalDifficulty(language domain.Language) domain.AnswerCandidate {
	return synthetic(c.notices.For(language).TechnicalDifficulty)
}

func (c *Catalog) InformationFallback(language domain.Language) domain.AnswerCandidate {
	return synthetic(c.notices.For(language).InformationFallback)
}

func (c *Catalog) SystemNotice(language domain.Language) domain.AnswerCandidate {
	return synthetic(c.notices.For(language).SystemNotice)
}

func synthetic(notice knowledge.Notice) domain.AnswerCandidate {
	return domain.AnswerCandidate{
		Body:        notice.Body,
		SourceLabel: notice.Source,
		Origin:      domain.OriginSynthetic,
	}
}

// SearchLabel is the source label attached to answers built from search results.
func (c *Catalog) SearchLabel(language domain.Language) string {
	return c.notices.For(language).SearchLabel
}

func (c *Catalog) NoSearchResults(language domain.Language) string {
	return c.notices.For(language).NoSearchResults
}
