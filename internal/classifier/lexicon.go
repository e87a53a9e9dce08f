package classifier

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

var (
	ErrEmptyLexicon      = errors.New("lexicon has no categories")
	ErrInvalidCategory   = errors.New("invalid lexicon category")
	ErrDuplicateCategory = errors.New("duplicate lexicon category")
)

// Category is a named group of trigger phrases sharing a weight.
type Category struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label"`
	Weight  float64  `yaml:"weight"`
	Phrases []string `yaml:"phrases"`
}

// Lexicon is the immutable keyword table the classifier scores against.
type Lexicon struct {
	Categories []Category `yaml:"categories"`
	Amplifiers []string   `yaml:"amplifiers"`
	Mitigators []string   `yaml:"mitigators"`
}

// DefaultLexicon returns the lexicon compiled into the binary.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}

// LoadLexicon reads a lexicon from a YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes and normalizes a YAML lexicon. Phrases are lower-cased and
// trimmed; blank entries are dropped.
func ParseLexicon(data []byte) (*Lexicon, error) {
	lex := &Lexicon{}
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("failed to decode lexicon: %w", err)
	}
	if len(lex.Categories) == 0 {
		return nil, ErrEmptyLexicon
	}

	seen := make(map[string]bool, len(lex.Categories))
	for i := range lex.Categories {
		cat := &lex.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" || cat.Weight <= 0 {
			return nil, fmt.Errorf("%w: %q (weight %v)", ErrInvalidCategory, cat.Name, cat.Weight)
		}
		if seen[cat.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCategory, cat.Name)
		}
		seen[cat.Name] = true
		if cat.Label == "" {
			cat.Label = cat.Name
		}
		cat.Phrases = normalizePhrases(cat.Phrases)
	}
	lex.Amplifiers = normalizePhrases(lex.Amplifiers)
	lex.Mitigators = normalizePhrases(lex.Mitigators)

	return lex, nil
}

// Label returns the display label of a category, or the name itself when unknown.
func (l *Lexicon) Label(category string) string {
	for _, cat := range l.Categories {
		if cat.Name == category {
			return cat.Label
		}
	}
	return category
}

func normalizePhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
