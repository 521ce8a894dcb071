package filter

import "testing"

func TestCondition_Contains(t *testing.T) {
	c := PriceAtMost(30000).Must()[0]
	tests := []struct {
		name string
		v    float64
		want bool
	}{
		{"below", 18000, true},
		{"at bound", 30000, true},
		{"above", 30001, false},
		{"zero price", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Contains(tc.v); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestPriceAtMost(t *testing.T) {
	if !PriceAtMost(0).IsEmpty() {
		t.Error("zero ceiling must not filter")
	}
	if !PriceAtMost(-5).IsEmpty() {
		t.Error("negative ceiling must not filter")
	}

	e := PriceAtMost(30000)
	if len(e.Must()) != 1 || e.Must()[0].Key() != FieldPrice {
		t.Fatalf("unexpected conditions: %+v", e.Must())
	}
	if got := e.Must()[0].Max(); got != 30000 {
		t.Errorf("max = %v, want 30000", got)
	}

	if e.Matches(map[string]float64{FieldPrice: 50000}) {
		t.Error("50000 must not pass a 30000 ceiling")
	}
	if !e.Matches(map[string]float64{FieldPrice: 30000}) {
		t.Error("30000 must pass a 30000 ceiling")
	}
	if !e.Matches(map[string]float64{}) {
		t.Error("absent price counts as 0 and passes")
	}
}

func TestExpression_ZeroValueMatchesAll(t *testing.T) {
	var e Expression
	if !e.IsEmpty() || !e.Matches(map[string]float64{FieldPrice: 1e9}) {
		t.Error("zero expression must match everything")
	}
}
