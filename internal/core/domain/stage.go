package domain

type Stage string

const (
	StageGreeting        Stage = "greeting"
	StageSafetyGate      Stage = "safety_gate"
	StageDomainScope     Stage = "domain_scope"
	StageCatalog         Stage = "catalog"
	StageGenerative      Stage = "generative"
	StageSearch          Stage = "search"
	StageLastResort      Stage = "last_resort"
	StageFallback        Stage = "fallback"
	StageTechnicalNotice Stage = "technical_notice"
	StageSystemNotice    Stage = "system_notice"
)

// ResolutionOrder is the precedence order applied when the inference handle is
// loaded. The first stage producing an answer terminates the request.
var ResolutionOrder = []Stage{
	StageGreeting,
	StageSafetyGate,
	StageDomainScope,
	StageCatalog,
	StageGenerative,
	StageSearch,
	StageLastResort,
	StageFallback,
}

// DegradedOrder is the reduced chain used while the inference handle is absent.
var DegradedOrder = []Stage{
	StageGreeting,
	StageCatalog,
	StageSearch,
	StageTechnicalNotice,
}
