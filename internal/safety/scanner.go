package safety

import (
	"strings"

	"github.com/af-corp/scribe/internal/config"
	"github.com/af-corp/scribe/internal/types"
)

// Detection records a matched pattern span.
type Detection struct {
	Kind  string // "pii" or "boundary"
	Name  string
	Start int // byte offset
	End   int // byte offset
}

// Scanner evaluates text against personal-information patterns and
// professional-boundary rules, and computes an appropriateness confidence
// score. Classification is local pattern matching; there is no network
// dependency at this layer.
type Scanner struct {
	pii        []Pattern
	boundaries []BoundaryRule
	positive   []string
	negative   []string
	cfg        func() config.SafetyConfig
}

// NewScanner creates a scanner with the built-in pattern tables.
func NewScanner(cfg func() config.SafetyConfig) *Scanner {
	return &Scanner{
		pii:        PIIPatterns(),
		boundaries: BoundaryRules(),
		positive:   PositiveTerms(),
		negative:   NegativeTerms(),
		cfg:        cfg,
	}
}

// Scan evaluates the text and returns a SafetyResult. Each detection
// category is evaluated independently; the confidence score is computed
// regardless of violations and cannot override them.
func (s *Scanner) Scan(text string) types.SafetyResult {
	var reasons, edits []string

	for _, p := range s.pii {
		if p.Regex.MatchString(text) {
			reasons = append(reasons, PIIReason)
			edits = append(edits, "Remove personal identifying information")
			break
		}
	}

	for _, r := range s.boundaries {
		if r.Regex.MatchString(text) {
			reasons = append(reasons, r.Reason)
			edits = append(edits, r.Edit)
		}
	}

	result := types.SafetyResult{
		Confidence:     s.confidence(text),
		Reasons:        reasons,
		SuggestedEdits: edits,
	}
	result.Finalize()
	return result
}

// Detect returns every matched span. The neutralizer uses this to decide
// what to rewrite.
func (s *Scanner) Detect(text string) []Detection {
	var detections []Detection
	for _, p := range s.pii {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			detections = append(detections, Detection{Kind: "pii", Name: p.Name, Start: loc[0], End: loc[1]})
		}
	}
	for _, r := range s.boundaries {
		for _, loc := range r.Regex.FindAllStringIndex(text, -1) {
			detections = append(detections, Detection{Kind: "boundary", Name: r.Name, Start: loc[0], End: loc[1]})
		}
	}
	return detections
}

// confidence starts at 1.0, adds the positive weight per constructive term
// occurrence, subtracts the negative weight per pejorative occurrence, and
// clamps to [0, 1].
func (s *Scanner) confidence(text string) float64 {
	cfg := s.cfg()
	lower := strings.ToLower(text)
	score := 1.0
	for _, term := range s.positive {
		score += cfg.PositiveWeight * float64(strings.Count(lower, term))
	}
	for _, term := range s.negative {
		score -= cfg.NegativeWeight * float64(strings.Count(lower, term))
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
