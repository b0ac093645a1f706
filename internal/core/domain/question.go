package domain

import (
	"fmt"
	"strings"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

// ParseLanguage maps a client language tag onto the two supported languages.
// An empty tag selects English.
func ParseLanguage(raw string) (Language, error) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case tag == "" || tag == "en" || strings.HasPrefix(tag, "en-") || strings.HasPrefix(tag, "en_"):
		return LanguageEnglish, nil
	case tag == "fr" || strings.HasPrefix(tag, "fr-") || strings.HasPrefix(tag, "fr_"):
		return LanguageFrench, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse language", fmt.Errorf("unsupported language %q", raw))
	}
}

func (l Language) IsPrimary() bool {
	return l != LanguageFrench
}

type Question struct {
	Text     string   `json:"question"`
	Language Language `json:"language"`
}

func NewQuestion(text string, language Language) Question {
	if language == "" {
		language = LanguageEnglish
	}
	return Question{Text: text, Language: language}
}

type ClassificationKind string

const (
	ClassInDomain    ClassificationKind = "in_domain"
	ClassGreeting    ClassificationKind = "greeting"
	ClassHarmful     ClassificationKind = "harmful"
	ClassOutOfDomain ClassificationKind = "out_of_domain"
)

type OutOfDomainKind string

const (
	OutOfDomainNone                OutOfDomainKind = ""
	OutOfDomainGeneral             OutOfDomainKind = "general"
	OutOfDomainForeignJurisdiction OutOfDomainKind = "foreign_jurisdiction"
)

// Classification is derived once per question. OutOfDomain is set only when
// Kind is ClassOutOfDomain.
type Classification struct {
	Kind        ClassificationKind `json:"kind"`
	OutOfDomain OutOfDomainKind    `json:"out_of_domain,omitempty"`
}

func (c Classification) String() string {
	if c.Kind == ClassOutOfDomain {
		return string(c.Kind) + ":" + string(c.OutOfDomain)
	}
	return string(c.Kind)
}
