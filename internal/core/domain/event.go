package domain

import "time"

// ResolutionEvent is the journal record emitted once per resolved request.
type ResolutionEvent struct {
	ID            string        `json:"id"`
	RequestID     string        `json:"request_id,omitempty"`
	Question      string        `json:"question,omitempty"`
	Language      Language      `json:"language"`
	Stage         Stage         `json:"stage"`
	Source        string        `json:"source"`
	Origin        OriginKind    `json:"origin"`
	Degraded      bool          `json:"degraded"`
	QualityReason string        `json:"quality_reason,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	CreatedAt     time.Time     `json:"created_at"`
}

type SourceCount struct {
	Source string `json:"source"`
	Stage  Stage  `json:"stage"`
	Count  int    `json:"count"`
}
