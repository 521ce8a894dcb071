package product

import (
	"fmt"
	"strings"
)

// MaxIDLength bounds product identifiers so they fit in storage keys.
const MaxIDLength = 256

// Attributes are the descriptive fields of a product as they arrive from the corpus.
type Attributes struct {
	Name          string
	Brand         string
	Price         int // 0 when absent
	ProductType   string
	SkinType      string // free text, comma-separated semantics
	Conditions    Conditions
	Description   string
	EmbeddingText string // the only text embedded at index-build time
}

// Product is an indexed cosmetic product. Read-only once built.
type Product struct {
	id     string
	attrs  Attributes
	vector []float32
}

// New validates and creates a Product without a vector.
func New(id string, attrs Attributes) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, fmt.Errorf("product ID is required")
	}
	if len(id) > MaxIDLength {
		return Product{}, fmt.Errorf("product ID too long (max %d)", MaxIDLength)
	}
	if strings.TrimSpace(attrs.Name) == "" {
		return Product{}, fmt.Errorf("product %q: name is required", id)
	}
	if attrs.Price < 0 {
		return Product{}, fmt.Errorf("product %q: price must be non-negative, got %d", id, attrs.Price)
	}
	return Product{id: id, attrs: attrs}, nil
}

// Reconstruct creates a Product without validation (storage hydration).
func Reconstruct(id string, attrs Attributes, vector []float32) Product {
	return Product{id: id, attrs: attrs, vector: vector}
}

// ID returns the product identifier.
func (p *Product) ID() string { return p.id }

// Name returns the product name.
func (p *Product) Name() string { return p.attrs.Name }

// Brand returns the brand.
func (p *Product) Brand() string { return p.attrs.Brand }

// Price returns the price in won. Absent prices are 0.
func (p *Product) Price() int { return p.attrs.Price }

// ProductType returns the product category (toner, cream, ...).
func (p *Product) ProductType() string { return p.attrs.ProductType }

// SkinType returns the free-text skin-type field.
func (p *Product) SkinType() string { return p.attrs.SkinType }

// Conditions returns the parsed set of associated skin conditions.
func (p *Product) Conditions() Conditions { return p.attrs.Conditions }

// Description returns the marketing description.
func (p *Product) Description() string { return p.attrs.Description }

// EmbeddingText returns the text used to build the product vector.
func (p *Product) EmbeddingText() string { return p.attrs.EmbeddingText }

// Attributes returns a copy of the descriptive fields.
func (p *Product) Attributes() Attributes { return p.attrs }

// Vector returns the embedding vector.
func (p *Product) Vector() []float32 { return p.vector }

// WithVector returns a copy with the given vector set.
func (p *Product) WithVector(v []float32) Product {
	return Product{id: p.id, attrs: p.attrs, vector: v}
}

// Match is a product returned by a vector index together with its raw similarity.
type Match struct {
	Product Product
	Score   float64
}
