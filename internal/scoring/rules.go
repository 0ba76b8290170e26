package scoring

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules is the versioned heuristic data used by the text scorers.
type Rules struct {
	Version    string          `yaml:"version"`
	Grammar    GrammarRules    `yaml:"grammar"`
	Fillers    FillerRules     `yaml:"fillers"`
	Vocabulary VocabularyRules `yaml:"vocabulary"`
}

type GrammarRules struct {
	MinStructuralTokens int           `yaml:"min_structural_tokens"`
	RepeatedWords       bool          `yaml:"repeated_words"`
	RepeatExceptions    []string      `yaml:"repeat_exceptions"`
	VerbTags            []string      `yaml:"verb_tags"`
	NominalTags         []string      `yaml:"nominal_tags"`
	Patterns            []PatternRule `yaml:"patterns"`
}

// PatternRule is a single regular-expression check. Every match counts as
// one grammar error unless the word right before it is in NotAfter.
type PatternRule struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Pattern  string   `yaml:"pattern"`
	NotAfter []string `yaml:"not_after,omitempty"`
}

type FillerRules struct {
	Phrases []string `yaml:"phrases"`
}

type VocabularyRules struct {
	MaxBonus      int      `yaml:"max_bonus"`
	AdvancedWords []string `yaml:"advanced_words"`
}

// DefaultRules returns the rule table compiled into the binary.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRulesYAML)
}

// MustDefaultRules is DefaultRules for call sites that cannot recover from a
// broken embedded table (tests, CLI wiring).
func MustDefaultRules() *Rules {
	r, err := DefaultRules()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRules reads a rule table from path. An empty path yields the
// embedded table.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks that the table is usable: a version is set and every
// pattern compiles.
func (r *Rules) Validate() error {
	if strings.TrimSpace(r.Version) == "" {
		return fmt.Errorf("rules: version is required")
	}
	for _, p := range r.Grammar.Patterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("rules: pattern %q: %w", p.Name, err)
		}
	}
	for _, phrase := range r.Fillers.Phrases {
		if strings.TrimSpace(phrase) == "" {
			return fmt.Errorf("rules: empty filler phrase")
		}
	}
	if r.Vocabulary.MaxBonus < 0 {
		return fmt.Errorf("rules: vocabulary max_bonus must not be negative")
	}
	return nil
}

func toSet(items []string, lower bool) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if lower {
			item = strings.ToLower(item)
		}
		set[strings.TrimSpace(item)] = struct{}{}
	}
	return set
}
