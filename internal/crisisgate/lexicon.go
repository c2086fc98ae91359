package crisisgate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the closed phrase and term sets the classifier matches
// against. All matching is case-insensitive substring.
type Lexicon struct {
	SelfHarmPhrases []string `yaml:"self_harm_phrases"`
	TraumaTerms     []string `yaml:"trauma_terms"`
	HighAffectTerms []string `yaml:"high_affect_terms"`
}

// DefaultLexicon returns the built-in phrase and term sets.
func DefaultLexicon() Lexicon {
	return Lexicon{
		SelfHarmPhrases: []string{
			"kill myself",
			"end my life",
			"end it all",
			"want to die",
			"wish i was dead",
			"better off dead",
			"no reason to live",
			"hurt myself",
			"harm myself",
			"self harm",
			"self-harm",
			"suicide",
			"suicidal",
		},
		TraumaTerms: []string{
			"abuse",
			"abused",
			"assault",
			"assaulted",
			"trauma",
			"traumatic",
			"flashback",
			"flashbacks",
			"nightmare",
			"nightmares",
			"ptsd",
			"panic attack",
			"violated",
			"molested",
		},
		HighAffectTerms: []string{
			"terrified",
			"can't breathe",
			"cant breathe",
			"shaking",
			"unbearable",
			"hopeless",
			"desperate",
			"drowning",
			"falling apart",
			"out of control",
		},
	}
}

// LoadLexiconFile reads a YAML override file. Lists present in the file
// replace the corresponding defaults; absent lists keep the defaults.
func LoadLexiconFile(path string) (Lexicon, error) {
	lex := DefaultLexicon()
	raw, err := os.ReadFile(path)
	if err != nil {
		return lex, fmt.Errorf("crisisgate: read lexicon file: %w", err)
	}
	var override Lexicon
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return lex, fmt.Errorf("crisisgate: parse lexicon file: %w", err)
	}
	if len(override.SelfHarmPhrases) > 0 {
		lex.SelfHarmPhrases = override.SelfHarmPhrases
	}
	if len(override.TraumaTerms) > 0 {
		lex.TraumaTerms = override.TraumaTerms
	}
	if len(override.HighAffectTerms) > 0 {
		lex.HighAffectTerms = override.HighAffectTerms
	}
	return lex, nil
}
