package classify

import (
	"strings"
	"unicode"

	"github.com/kirillkom/cameroon-legal-assistant/internal/core/domain"
	"github.com/kirillkom/cameroon-legal-assistant/internal/core/knowledge"
)

// Normalize trims text and collapses every internal whitespace run to a
// single space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func fold(text string) string {
	return strings.ToLower(Normalize(text))
}

// Classifier holds the lexical detectors. All methods are pure functions of
// the loaded vocabularies and are safe for concurrent use.
type Classifier struct {
	terms knowledge.Terms
}

func New(terms knowledge.Terms) *Classifier {
	return &Classifier{terms: terms}
}

// Classify applies the detectors in pipeline order: greeting, harmful,
// out-of-domain, in-domain.
func (c *Classifier) Classify(question string) domain.Classification {
	switch {
	case c.IsGreeting(question):
		return domain.Classification{Kind: domain.ClassGreeting}
	case c.IsHarmfulQuestion(question):
		return domain.Classification{Kind: domain.ClassHarmful}
	default:
		return c.Scope(question)
	}
}

// IsGreeting reports whether text is a greeting token, alone or followed
// only by whitespace or punctuation.
func (c *Classifier) IsGreeting(text string) bool {
	folded := fold(text)
	for _, token := range c.terms.Greetings {
		rest, ok := strings.CutPrefix(folded, token)
		if !ok {
			continue
		}
		if strings.TrimFunc(rest, isSpaceOrPunct) == "" {
			return true
		}
	}
	return false
}

func isSpaceOrPunct(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// IsHarmfulQuestion is the pre-generation safety gate.
func (c *Classifier) IsHarmfulQuestion(question string) bool {
	return containsAny(fold(question), c.terms.ViolencePreGate)
}

// IsHarmfulAnswer is the post-hoc safety check over a generated answer.
func (c *Classifier) IsHarmfulAnswer(question string, answer string) bool {
	answerFolded := fold(answer)
	if containsAny(answerFolded, c.terms.DangerousAnswerPatterns) {
		return true
	}
	if !containsAny(fold(question), c.terms.ViolencePostHoc) {
		return false
	}
	for _, prefix := range c.terms.AffirmativePrefixes {
		if strings.HasPrefix(answerFolded, prefix) {
			return true
		}
	}
	return false
}

// Scope decides whether question belongs to the home jurisdiction's legal
// domain. A foreign jurisdiction match wins over a general out-of-domain match.
func (c *Classifier) Scope(question string) domain.Classification {
	folded := fold(question)
	if c.isForeignJurisdiction(folded) {
		return domain.Classification{Kind: domain.ClassOutOfDomain, OutOfDomain: domain.OutOfDomainForeignJurisdiction}
	}
	if containsAny(folded, c.terms.Geography) || containsAny(folded, c.terms.NonLegalTopics) {
		return domain.Classification{Kind: domain.ClassOutOfDomain, OutOfDomain: domain.OutOfDomainGeneral}
	}
	return domain.Classification{Kind: domain.ClassInDomain}
}

func (c *Classifier) isForeignJurisdiction(folded string) bool {
	if containsAny(folded, c.terms.HomeJurisdiction) {
		return false
	}
	return containsAny(folded, c.terms.ForeignCountries) && containsAny(folded, c.terms.LegalTerms)
}

// AssessQuality is a lexical heuristic. It can both accept wrong answers and
// reject correct ones; it never checks meaning.
func (c *Classifier) AssessQuality(question string, answer string) domain.QualityVerdict {
	rules := c.terms.Quality
	answerFolded := fold(answer)
	questionFolded := fold(question)

	if containsAny(answerFolded, rules.Boilerplate) {
		return domain.QualityVerdict{Reason: domain.QualityReasonBoilerplate}
	}
	words := len(strings.Fields(answer))
	if words < rules.MinWords {
		return domain.QualityVerdict{Reason: domain.QualityReasonTooShort}
	}
	if rules.TerseAffirmativePrefix != "" &&
		strings.HasPrefix(answerFolded, rules.TerseAffirmativePrefix) &&
		words < rules.TerseAffirmativeWords {
		return domain.QualityVerdict{Reason: domain.QualityReasonTerseAffirmative}
	}
	for _, anchor := range rules.TopicAnchors {
		if strings.Contains(questionFolded, anchor.Term) && !containsAny(answerFolded, anchor.Accept) {
			return domain.QualityVerdict{Reason: domain.QualityReasonTopicAnchorMissed}
		}
	}
	return domain.QualityVerdict{Acceptable: true, Reason: domain.QualityReasonOK}
}

// TopicLabel infers a source label from the question. The first rule with a
// matching term wins; ok is false when no rule matches.
func (c *Classifier) TopicLabel(question string, language domain.Language) (string, bool) {
	folded := fold(question)
	for _, rule := range c.terms.TopicLabels {
		if !containsAny(folded, rule.Terms) {
			continue
		}
		if label := rule.Labels[language]; label != "" {
			return label, true
		}
		return rule.Labels[domain.LanguageEnglish], true
	}
	return "", false
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
