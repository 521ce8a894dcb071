package recommend

import (
	"fmt"

	"github.com/kailas-cloud/cosmerec/internal/domain/product"
)

// Bonus tags attached to candidates that received a rule-based score adjustment.
const (
	TagConditionMatch = "condition-match"
	tagSkinTypeMatch  = "skin-type-match:"
)

// SkinTypeTag returns the tag for a skin-type bonus earned by the given preference token.
func SkinTypeTag(token string) string { return tagSkinTypeMatch + token }

// Scoring holds the re-rank constants. They are tied to the similarity scale of the
// index (cosine in [-1, 1]), so they live in configuration rather than in code.
type Scoring struct {
	ConditionBonus float64
	SkinTypeBonus  float64
	RecallFactor   int
}

// DefaultScoring returns +0.3 for a condition match, +0.2 for a skin-type match and
// a ×10 recall widening.
func DefaultScoring() Scoring {
	return Scoring{ConditionBonus: 0.3, SkinTypeBonus: 0.2, RecallFactor: 10}
}

// Validate rejects negative bonuses, which would break the additive-only ranking.
func (s Scoring) Validate() error {
	if s.ConditionBonus < 0 {
		return fmt.Errorf("condition bonus must be non-negative, got %v", s.ConditionBonus)
	}
	if s.SkinTypeBonus < 0 {
		return fmt.Errorf("skin type bonus must be non-negative, got %v", s.SkinTypeBonus)
	}
	if s.RecallFactor < 1 {
		return fmt.Errorf("recall factor must be at least 1, got %d", s.RecallFactor)
	}
	return nil
}

// Candidate is a search hit being re-ranked. It copies the product; the stored record
// is never touched.
type Candidate struct {
	product   product.Product
	baseScore float64
	score     float64
	bonuses   []string
}

// NewCandidate starts a candidate at its raw similarity.
func NewCandidate(m product.Match) Candidate {
	return Candidate{product: m.Product, baseScore: m.Score, score: m.Score}
}

// Product returns the candidate product.
func (c *Candidate) Product() product.Product { return c.product }

// BaseScore returns the similarity reported by the index, before bonuses.
func (c *Candidate) BaseScore() float64 { return c.baseScore }

// Score returns the adjusted score.
func (c *Candidate) Score() float64 { return c.score }

// Bonuses returns the tags of applied bonuses in the order they were applied.
func (c *Candidate) Bonuses() []string {
	out := make([]string, len(c.bonuses))
	copy(out, c.bonuses)
	return out
}

// HasBonus reports whether a bonus with the given tag was applied.
func (c *Candidate) HasBonus(tag string) bool {
	for _, b := range c.bonuses {
		if b == tag {
			return true
		}
	}
	return false
}

// AddBonus increases the adjusted score and records the tag.
// Negative amounts are ignored so the adjusted score never drops below the base score.
func (c *Candidate) AddBonus(amount float64, tag string) {
	if amount < 0 {
		return
	}
	c.score += amount
	c.bonuses = append(c.bonuses, tag)
}

// Input echoes what a recommendation was computed from.
type Input struct {
	Condition    string
	SkinType     string
	PriceCeiling int
	Query        string
}

// Result is the ordered outcome of one recommendation call.
// An empty Candidates slice is a successful call that found nothing.
type Result struct {
	Input      Input
	Candidates []Candidate
}

// Count returns the number of recommended products.
func (r Result) Count() int { return len(r.Candidates) }
