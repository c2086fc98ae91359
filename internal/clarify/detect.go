package clarify

import (
	"regexp"
	"strings"
)

// defaultPatterns are the correction prefixes recognized out of the box.
// CLARIFICATION_TRIGGER_PATTERNS replaces the whole set.
var defaultPatterns = []string{
	`(?i)^no,?\s+i meant`,
	`(?i)^actually`,
	`(?i)^not that`,
	`(?i)^i mean`,
	`(?i)^sorry,?\s+i`,
	`(?i)^that'?s not what i`,
}

func compilePatterns(overrides []string) ([]*regexp.Regexp, error) {
	raw := overrides
	if len(raw) == 0 {
		raw = defaultPatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Detect reports whether the input looks like a correction of a prior
// exchange.
func (s *Store) Detect(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	for _, re := range s.patterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

var (
	punctRe = regexp.MustCompile(`[^\pL\pN\s]`)
	wsRe    = regexp.MustCompile(`\s+`)
)

// NormalizeTrigger lowercases, strips punctuation, and collapses
// whitespace. Deduplication keys are always the normalized form.
func NormalizeTrigger(trigger string) string {
	out := strings.ToLower(strings.TrimSpace(trigger))
	out = punctRe.ReplaceAllString(out, "")
	out = wsRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
