package domain

type OriginKind string

const (
	OriginCatalog   OriginKind = "catalog"
	OriginGenerated OriginKind = "generated"
	OriginSearched  OriginKind = "searched"
	OriginSynthetic OriginKind = "synthetic"
)

type AnswerCandidate struct {
	Body        string     `json:"body"`
	SourceLabel string     `json:"source_label"`
	Origin      OriginKind `json:"origin"`
}

type QualityVerdict struct {
	Acceptable bool   `json:"acceptable"`
	Reason     string `json:"reason"`
}

const (
	QualityReasonOK                = "ok"
	QualityReasonBoilerplate       = "boilerplate"
	QualityReasonTooShort          = "too_short"
	QualityReasonTerseAffirmative  = "terse_affirmative"
	QualityReasonTopicAnchorMissed = "topic_anchor_missing"
)

// ResolutionResult is the only externally observable output of the pipeline.
type ResolutionResult struct {
	Answer string `json:"answer"`
	Source string `json:"source"`
}

type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchPreview is the diagnostic view of one search round trip.
type SearchPreview struct {
	Query           string `json:"query"`
	Success         bool   `json:"success"`
	ResultCount     int    `json:"result_count"`
	FormattedAnswer string `json:"formatted_answer"`
}
