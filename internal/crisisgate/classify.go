// Package crisisgate classifies user text for self-harm and trauma risk
// and drives the consent-based interaction loop. Nothing in this package
// contacts an external service or escalates on its own; the only outputs
// are risk levels, canned prompts, and interpreted reply actions.
package crisisgate

import (
	"strings"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// Assessment is the per-turn classification outcome.
type Assessment struct {
	Level             types.RiskLevel
	MatchedCategories []string
}

type Gate struct {
	lexicon Lexicon
	locale  string
}

func New(lexicon Lexicon, locale string) *Gate {
	if strings.TrimSpace(locale) == "" {
		locale = "US"
	}
	return &Gate{lexicon: lexicon, locale: strings.ToUpper(locale)}
}

// Classify is total: any input, including empty, yields a level.
//
// high   — an explicit self-harm phrase matches
// medium — a trauma-category term and a high-affect term both match
// low    — only a trauma-category term matches
// none   — otherwise
func (g *Gate) Classify(text string) Assessment {
	lower := strings.ToLower(text)
	if lower == "" {
		return Assessment{Level: types.RiskNone}
	}
	for _, phrase := range g.lexicon.SelfHarmPhrases {
		if strings.Contains(lower, phrase) {
			return Assessment{Level: types.RiskHigh, MatchedCategories: []string{"self_harm"}}
		}
	}
	trauma := matchAny(lower, g.lexicon.TraumaTerms)
	affect := matchAny(lower, g.lexicon.HighAffectTerms)
	switch {
	case trauma && affect:
		return Assessment{Level: types.RiskMedium, MatchedCategories: []string{"trauma", "high_affect"}}
	case trauma:
		return Assessment{Level: types.RiskLow, MatchedCategories: []string{"trauma"}}
	default:
		return Assessment{Level: types.RiskNone}
	}
}

func matchAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
