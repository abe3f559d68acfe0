package refunds

import "strings"

// DefaultFraudPhrases are reasons that indicate the visit never happened
// through no fault of the visitor.
var DefaultFraudPhrases = []string{
	"fraud",
	"scam",
	"organizer_no_show",
	"organizer no-show",
	"organizer no show",
	"organizer never showed",
	"property does not exist",
	"property doesn't exist",
	"false information",
	"misleading listing",
}

// Verdict is a heuristic's assessment of a refund reason.
type Verdict struct {
	Fraud   bool
	Matched []string
}

// FraudHeuristic decides whether a refund reason qualifies for the
// automatic refund path.
type FraudHeuristic interface {
	Evaluate(reason string) Verdict
}

// KeywordHeuristic flags reasons containing any configured phrase,
// case-insensitively.
type KeywordHeuristic struct {
	phrases []string
}

// NewKeywordHeuristic uses DefaultFraudPhrases when phrases is empty.
func NewKeywordHeuristic(phrases []string) *KeywordHeuristic {
	if len(phrases) == 0 {
		phrases = DefaultFraudPhrases
	}
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &KeywordHeuristic{phrases: normalized}
}

func (h *KeywordHeuristic) Evaluate(reason string) Verdict {
	text := strings.ToLower(reason)
	var v Verdict
	for _, p := range h.phrases {
		if strings.Contains(text, p) {
			v.Matched = append(v.Matched, p)
		}
	}
	v.Fraud = len(v.Matched) > 0
	return v
}
