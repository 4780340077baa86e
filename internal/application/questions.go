package application

// Answer names in interview order. Card rendering and gating look
// answers up by these keys, so they are shared here.
const (
	AnswerAge         = "age"
	AnswerReadRules   = "read rules"
	AnswerPunishment  = "punishment"
	AnswerBanHistory  = "ban"
	AnswerReferral    = "referal"
	AnswerPersonality = "personality"
)
