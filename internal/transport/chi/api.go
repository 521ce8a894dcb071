package chi

import (
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
)

// ErrorCode is the machine-readable error code returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeIndexUnavailable       ErrorCode = "index_unavailable"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RecommendationRequest is the body of POST /v1/recommendations.
// Either condition/description or diagnosis_reply may be given; a reply wins.
type RecommendationRequest struct {
	Condition      string `json:"condition"`
	Description    string `json:"description"`
	DiagnosisReply string `json:"diagnosis_reply,omitempty"`
	SkinType       string `json:"skin_type"`
	PriceCeiling   int    `json:"price_ceiling"`
	TopK           *int   `json:"top_k,omitempty"`
}

// RecommendationParams are the query parameters of GET /v1/recommendations.
type RecommendationParams struct {
	Condition    *string
	Description  *string
	SkinType     *string
	PriceCeiling *int
	TopK         *int
}

// InputEcho repeats what the recommendation was computed from.
type InputEcho struct {
	Condition    string `json:"condition"`
	SkinType     string `json:"skin_type"`
	PriceCeiling int    `json:"price_ceiling"`
	Query        string `json:"query"`
}

// ProductItem is one recommended product.
type ProductItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Price       int      `json:"price"`
	ProductType string   `json:"product_type"`
	SkinType    string   `json:"skin_type"`
	Conditions  []string `json:"conditions"`
	Description string   `json:"description"`
	Score       float64  `json:"score"`
	BaseScore   float64  `json:"base_score"`
	Bonuses     []string `json:"bonuses"`
}

// RecommendationResponse is the body of a successful recommendation.
type RecommendationResponse struct {
	Input    InputEcho     `json:"input"`
	Products []ProductItem `json:"products"`
	Count    int           `json:"count"`
}

// QueryResponse is the body of POST /v1/queries.
type QueryResponse struct {
	Query string `json:"query"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Products int               `json:"products"`
	Version  string            `json:"version"`
}

// NewRecommendationResponse converts an engine result to its wire form.
// Products is never nil so an empty result encodes as [].
func NewRecommendationResponse(res domrec.Result) RecommendationResponse {
	items := make([]ProductItem, len(res.Candidates))
	for i := range res.Candidates {
		c := &res.Candidates[i]
		p := c.Product()
		items[i] = ProductItem{
			ID:          p.ID(),
			Name:        p.Name(),
			Brand:       p.Brand(),
			Price:       p.Price(),
			ProductType: p.ProductType(),
			SkinType:    p.SkinType(),
			Conditions:  p.Conditions().Names(),
			Description: p.Description(),
			Score:       c.Score(),
			BaseScore:   c.BaseScore(),
			Bonuses:     c.Bonuses(),
		}
	}

	return RecommendationResponse{
		Input: InputEcho{
			Condition:    res.Input.Condition,
			SkinType:     res.Input.SkinType,
			PriceCeiling: res.Input.PriceCeiling,
			Query:        res.Input.Query,
		},
		Products: items,
		Count:    len(items),
	}
}
