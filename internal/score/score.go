// Package score turns the detectors' pattern tags into per-account
// suspicion scores. Scoring is additive over distinct tags: repeating
// evidence of the same kind never raises a score, but independent
// kinds of evidence compound.
package score

import (
	"math"
	"sort"
	"strings"

	"github.com/ringsight/ringsight/internal/domain"
)

// Scorer maps an account's pattern tags to a suspicion score in
// [0, 100].
type Scorer struct {
	cfg         domain.ScoringConfig
	ruleWeights map[string]float64
}

func NewScorer(cfg domain.ScoringConfig, rules []domain.RuleConfig) *Scorer {
	rw := make(map[string]float64, len(rules))
	for _, r := range rules {
		rw["rule_"+r.ID] = r.Weight
	}
	return &Scorer{cfg: cfg, ruleWeights: rw}
}

// Score sums the weight of each distinct tag, adds the overlap bonus
// when two or more distinct tags are present, and caps at 100.
func (s *Scorer) Score(tags []string) float64 {
	distinct := make(map[string]bool, len(tags))
	total := 0.0
	for _, tag := range tags {
		if distinct[tag] {
			continue
		}
		distinct[tag] = true
		total += s.weightFor(tag)
	}
	if len(distinct) >= 2 {
		total += s.cfg.OverlapBonus
	}
	return math.Min(total, 100)
}

// Flagged reports whether a score crosses the suspicion threshold.
// The threshold is inclusive.
func (s *Scorer) Flagged(score float64) bool {
	return score >= s.cfg.SuspiciousScoreThreshold
}

func (s *Scorer) weightFor(tag string) float64 {
	switch {
	case strings.HasPrefix(tag, "cycle_length_"):
		return s.cfg.WeightCycle
	case tag == domain.PatternFanIn || tag == domain.PatternFanOut:
		return s.cfg.WeightFan
	case tag == domain.PatternShellChain:
		return s.cfg.WeightShell
	case tag == domain.PatternHighVelocity:
		return s.cfg.WeightVelocity
	default:
		return s.ruleWeights[tag]
	}
}

// SortTags orders an account's tags for stable output.
func SortTags(tags []string) []string {
	out := append([]string(nil), tags...)
	sort.Strings(out)
	return out
}
