// Package classifier scores text for harassment with a weighted keyword lexicon.
package classifier

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Scoring constants.
const (
	MinTextLength = 3

	baseScore        = 0.4
	contextWindow    = 30
	amplifierBoost   = 0.15
	mitigatorPenalty = 0.2
	exclamationBoost = 0.1
	capsBoost        = 0.1
	categoryBonus    = 0.05
	maxConfidence    = 0.99

	toxicThreshold  = 0.3
	mediumThreshold = 0.5
	highThreshold   = 0.7

	maxFlaggedPatterns = 5
)

// Severity buckets a confidence value.
type Severity string

const (
	SeveritySafe   Severity = "safe"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities from safe (0) to high (3).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// SeverityFor maps a confidence to its severity bucket.
func SeverityFor(confidence float64) Severity {
	switch {
	case confidence > highThreshold:
		return SeverityHigh
	case confidence > mediumThreshold:
		return SeverityMedium
	case confidence > toxicThreshold:
		return SeverityLow
	default:
		return SeveritySafe
	}
}

// Result is the verdict for a single text.
type Result struct {
	IsToxic         bool               `json:"isToxic"`
	Confidence      float64            `json:"confidence"`
	Categories      map[string]float64 `json:"categories"`
	FlaggedPatterns []string           `json:"flaggedPatterns"`
	Severity        Severity           `json:"severity"`
	PrimaryCategory string             `json:"primaryCategory,omitempty"`
}

var (
	exclamationRun = regexp.MustCompile(`!{2,}`)
	capsRun        = regexp.MustCompile(`[A-Z]{5,}`)
)

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	lexicon *Lexicon
	phrases []string
	matcher *ahocorasick.Matcher
}

// New builds a classifier over lex. The lexicon must not be modified afterwards.
func New(lex *Lexicon) *Classifier {
	seen := make(map[string]bool)
	phrases := make([]string, 0)
	for _, cat := range lex.Categories {
		for _, p := range cat.Phrases {
			if !seen[p] {
				seen[p] = true
				phrases = append(phrases, p)
			}
		}
	}

	c := &Classifier{lexicon: lex, phrases: phrases}
	if len(phrases) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(phrases)
	}
	return c
}

// Lexicon returns the lexicon the classifier scores against.
func (c *Classifier) Lexicon() *Lexicon {
	return c.lexicon
}

// Classify scores text. Texts shorter than MinTextLength runes are safe.
func (c *Classifier) Classify(text string) Result {
	if utf8.RuneCountInString(text) < MinTextLength || c.matcher == nil {
		return safeResult()
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	present := c.matchPhrases(normalized)
	if len(present) == 0 {
		return safeResult()
	}

	intensity := 0.0
	if exclamationRun.MatchString(text) {
		intensity += exclamationBoost
	}
	if capsRun.MatchString(text) {
		intensity += capsBoost
	}

	result := safeResult()
	flagged := make(map[string]bool)
	maxScore := 0.0

	for _, cat := range c.lexicon.Categories {
		catScore := 0.0
		for _, phrase := range cat.Phrases {
			if !present[phrase] {
				continue
			}
			if !flagged[phrase] {
				flagged[phrase] = true
				if len(result.FlaggedPatterns) < maxFlaggedPatterns {
					result.FlaggedPatterns = append(result.FlaggedPatterns, phrase)
				}
			}

			score := baseScore*cat.Weight + c.contextAdjustment(normalized, phrase) + intensity
			catScore = math.Max(catScore, clamp(score))
		}
		if catScore <= 0 {
			continue
		}

		result.Categories[cat.Name] = round2(catScore)
		if result.PrimaryCategory == "" {
			result.PrimaryCategory = cat.Name
		}
		maxScore = math.Max(maxScore, catScore)
	}

	if len(result.Categories) == 0 {
		return result
	}

	confidence := math.Min(maxScore+categoryBonus*float64(len(result.Categories)), maxConfidence)
	result.IsToxic = confidence > toxicThreshold
	result.Severity = SeverityFor(confidence)
	result.Confidence = round2(confidence)

	return result
}

// ClassifyBatch classifies each text independently, preserving order.
func (c *Classifier) ClassifyBatch(texts []string) []Result {
	results := make([]Result, len(texts))
	for i, text := range texts {
		results[i] = c.Classify(text)
	}
	return results
}

func (c *Classifier) matchPhrases(text string) map[string]bool {
	hits := c.matcher.MatchThreadSafe([]byte(text))
	present := make(map[string]bool, len(hits))
	for _, idx := range hits {
		if idx < len(c.phrases) {
			present[c.phrases[idx]] = true
		}
	}
	return present
}

// contextAdjustment looks for amplifiers and mitigators within contextWindow
// runes of the first occurrence of phrase.
func (c *Classifier) contextAdjustment(text, phrase string) float64 {
	idx := strings.Index(text, phrase)
	if idx < 0 {
		return 0
	}

	start := idx
	for n := 0; n < contextWindow && start > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	end := idx + len(phrase)
	for n := 0; n < contextWindow && end < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	window := text[start:end]

	adjustment := 0.0
	if containsAny(window, c.lexicon.Amplifiers) {
		adjustment += amplifierBoost
	}
	if containsAny(window, c.lexicon.Mitigators) {
		adjustment -= mitigatorPenalty
	}
	return adjustment
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func safeResult() Result {
	return Result{
		Categories:      map[string]float64{},
		FlaggedPatterns: []string{},
		Severity:        SeveritySafe,
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
