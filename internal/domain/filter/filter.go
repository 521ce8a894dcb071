package filter

// FieldPrice is the payload field holding the product price.
const FieldPrice = "price"

// Expression is a conjunction of upper bounds applied before ranking.
// The zero value filters nothing.
type Expression struct {
	must []Condition
}

// PriceAtMost returns an expression keeping products with price <= ceiling.
// A non-positive ceiling yields the empty expression.
func PriceAtMost(ceiling int) Expression {
	if ceiling <= 0 {
		return Expression{}
	}
	return Expression{must: []Condition{{key: FieldPrice, max: float64(ceiling)}}}
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Matches evaluates the expression against numeric fields. A missing field counts as 0,
// the same default the index applies to an absent price.
func (e Expression) Matches(numerics map[string]float64) bool {
	for _, c := range e.must {
		if !c.Contains(numerics[c.key]) {
			return false
		}
	}
	return true
}

// Condition is an inclusive upper bound on one numeric field.
type Condition struct {
	key string
	max float64
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Max returns the inclusive upper bound.
func (c Condition) Max() float64 { return c.max }

// Contains reports whether v is at or below the bound.
func (c Condition) Contains(v float64) bool { return v <= c.max }
