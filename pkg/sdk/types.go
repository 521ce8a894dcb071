package cosmerec

import (
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
	cataloguc "github.com/kailas-cloud/cosmerec/internal/usecase/catalog"
)

// DefaultTopK is used when Request.TopK is zero.
const DefaultTopK = 5

// Scoring holds the re-rank constants. Bonuses are added to the similarity score.
type Scoring struct {
	ConditionBonus float64
	SkinTypeBonus  float64
	RecallFactor   int // candidates fetched per requested product
}

// DefaultScoring returns +0.3 for a condition match, +0.2 for a skin-type match
// and a recall factor of 10.
func DefaultScoring() Scoring {
	d := domrec.DefaultScoring()
	return Scoring{ConditionBonus: d.ConditionBonus, SkinTypeBonus: d.SkinTypeBonus, RecallFactor: d.RecallFactor}
}

// Request describes one recommendation.
// DiagnosisReply, when set, is parsed for the condition and description and
// replaces Condition and Description.
type Request struct {
	Condition      string
	Description    string
	DiagnosisReply string
	SkinType       string // e.g. "건성, 민감성"
	PriceCeiling   int    // won; 0 means no limit
	TopK           int    // 0 means DefaultTopK; negative returns no products
}

// Product is an indexed cosmetic product.
type Product struct {
	ID          string
	Name        string
	Brand       string
	Price       int
	ProductType string
	SkinType    string
	Conditions  []string
	Description string
}

// Recommendation is one ranked product.
type Recommendation struct {
	Product   Product
	Score     float64  // similarity plus bonuses
	BaseScore float64  // similarity reported by the index
	Bonuses   []string // applied bonus tags, e.g. "condition-match"
}

// Result echoes the interpreted input and lists products best first.
type Result struct {
	Condition    string
	SkinType     string
	PriceCeiling int
	Query        string
	Products     []Recommendation
}

// IndexReport summarises a corpus import.
type IndexReport struct {
	Loaded                 int
	Indexed                int
	Rejected               int
	ConditionParseFailures int
	EmbeddingTokens        int
	Dimension              int
}

func toResult(r domrec.Result) Result {
	out := Result{
		Condition:    r.Input.Condition,
		SkinType:     r.Input.SkinType,
		PriceCeiling: r.Input.PriceCeiling,
		Query:        r.Input.Query,
		Products:     make([]Recommendation, 0, len(r.Candidates)),
	}
	for i := range r.Candidates {
		c := &r.Candidates[i]
		p := c.Product()
		out.Products = append(out.Products, Recommendation{
			Product: Product{
				ID:          p.ID(),
				Name:        p.Name(),
				Brand:       p.Brand(),
				Price:       p.Price(),
				ProductType: p.ProductType(),
				SkinType:    p.SkinType(),
				Conditions:  p.Conditions().Names(),
				Description: p.Description(),
			},
			Score:     c.Score(),
			BaseScore: c.BaseScore(),
			Bonuses:   c.Bonuses(),
		})
	}
	return out
}

func toIndexReport(r cataloguc.Report) IndexReport {
	return IndexReport{
		Loaded:                 r.Loaded,
		Indexed:                r.Indexed,
		Rejected:               r.Rejected,
		ConditionParseFailures: r.ConditionParseFailures,
		EmbeddingTokens:        r.EmbeddingTokens,
		Dimension:              r.Dimension,
	}
}
