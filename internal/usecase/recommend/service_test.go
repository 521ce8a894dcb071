package recommend

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	"github.com/kailas-cloud/cosmerec/internal/domain/product"
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
)

const eps = 1e-9

type mockEmbedder struct {
	fn    func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls int
	last  string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.last = text
	if m.fn != nil {
		return m.fn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: 4}, nil
}

type mockSearcher struct {
	searchFn  func(ctx context.Context, vector []float32, limit int, f filter.Expression) ([]product.Match, error)
	calls     int
	lastLimit int
	lastF     filter.Expression
}

func (m *mockSearcher) Search(
	ctx context.Context, vector []float32, limit int, f filter.Expression,
) ([]product.Match, error) {
	m.calls++
	m.lastLimit = limit
	m.lastF = f
	return m.searchFn(ctx, vector, limit, f)
}

// fixedIndex returns the given matches, applying the filter and limit like a real index.
func fixedIndex(matches ...product.Match) *mockSearcher {
	return &mockSearcher{
		searchFn: func(_ context.Context, _ []float32, limit int, f filter.Expression) ([]product.Match, error) {
			out := []product.Match{}
			for _, m := range matches {
				if !f.Matches(map[string]float64{filter.FieldPrice: float64(m.Product.Price())}) {
					continue
				}
				out = append(out, m)
				if len(out) == limit {
					break
				}
			}
			return out, nil
		},
	}
}

func match(id string, score float64, attrs product.Attributes) product.Match {
	if attrs.Name == "" {
		attrs.Name = "제품 " + id
	}
	return product.Match{Product: product.Reconstruct(id, attrs, nil), Score: score}
}

func newService(s Searcher, e Embedder) *Service {
	return New(s, e, domrec.DefaultScoring(), zap.NewNop())
}

func ids(cs []domrec.Candidate) []string {
	out := make([]string, len(cs))
	for i := range cs {
		p := cs[i].Product()
		out[i] = p.ID()
	}
	return out
}

func find(t *testing.T, cs []domrec.Candidate, id string) domrec.Candidate {
	t.Helper()
	for i := range cs {
		p := cs[i].Product()
		if p.ID() == id {
			return cs[i]
		}
	}
	t.Fatalf("candidate %q not in result %v", id, ids(cs))
	return domrec.Candidate{}
}

func TestRecommend_TopKNonPositive(t *testing.T) {
	for _, k := range []int{0, -3} {
		idx := fixedIndex(match("a", 0.9, product.Attributes{}))
		emb := &mockEmbedder{}
		res, err := newService(idx, emb).Recommend(
			context.Background(), diagnosis.New("건선", ""), preference.New("", 0), k)
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if res.Candidates == nil || len(res.Candidates) != 0 {
			t.Errorf("k=%d: candidates = %v, want empty non-nil", k, res.Candidates)
		}
		if idx.calls != 0 || emb.calls != 0 {
			t.Errorf("k=%d: collaborators called (index=%d, embed=%d)", k, idx.calls, emb.calls)
		}
	}
}

func TestRecommend_RecallWideningAndQuery(t *testing.T) {
	idx := fixedIndex()
	emb := &mockEmbedder{}
	svc := newService(idx, emb)

	d := diagnosis.New("여드름", "농포")
	p := preference.New("지성", 0)
	res, err := svc.Recommend(context.Background(), d, p, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastLimit != 30 {
		t.Errorf("search limit = %d, want 30", idx.lastLimit)
	}
	if !idx.lastF.IsEmpty() {
		t.Error("no price filter expected without a ceiling")
	}
	if emb.last != svc.Query(d, p) {
		t.Errorf("embedded %q, want synthesized query %q", emb.last, svc.Query(d, p))
	}
	if res.Input.Query != emb.last || res.Input.Condition != "여드름" || res.Input.SkinType != "지성" {
		t.Errorf("input echo = %+v", res.Input)
	}
}

func TestRecommend_ConditionBonus_ScenarioA(t *testing.T) {
	idx := fixedIndex(
		match("plain", 0.70, product.Attributes{}),
		match("psoriasis", 0.60, product.Attributes{Conditions: product.NewConditions("아토피", "건선")}),
	)

	res, err := newService(idx, &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("건선", ""), preference.New("", 0), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := find(t, res.Candidates, "psoriasis")
	if !c.HasBonus(domrec.TagConditionMatch) {
		t.Errorf("bonuses = %v, want condition-match", c.Bonuses())
	}
	if math.Abs(c.Score()-c.BaseScore()-0.3) > eps {
		t.Errorf("score - base = %v, want 0.3", c.Score()-c.BaseScore())
	}
	if got := ids(res.Candidates); got[0] != "psoriasis" {
		t.Errorf("order = %v, condition match should be promoted", got)
	}

	plain := find(t, res.Candidates, "plain")
	if plain.Score() != plain.BaseScore() || len(plain.Bonuses()) != 0 {
		t.Errorf("plain candidate got bonus: %v", plain.Bonuses())
	}
}

func TestRecommend_ConditionBonus_OnlyForNonEmptyMember(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		conds     product.Conditions
		want      bool
	}{
		{"member", "주사", product.NewConditions("주사"), true},
		{"not member", "주사", product.NewConditions("여드름"), false},
		{"empty condition", "", product.NewConditions("주사"), false},
		{"unknown condition", "psoriasis", product.NewConditions("건선"), false},
		{"substring is not membership", "건", product.NewConditions("건선"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx := fixedIndex(match("p", 0.5, product.Attributes{Conditions: tc.conds}))
			res, err := newService(idx, &mockEmbedder{}).Recommend(
				context.Background(), diagnosis.New(tc.condition, ""), preference.New("", 0), 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c := res.Candidates[0]
			if c.HasBonus(domrec.TagConditionMatch) != tc.want {
				t.Errorf("condition-match = %v, want %v", !tc.want, tc.want)
			}
			wantDelta := 0.0
			if tc.want {
				wantDelta = 0.3
			}
			if math.Abs(c.Score()-c.BaseScore()-wantDelta) > eps {
				t.Errorf("delta = %v, want %v", c.Score()-c.BaseScore(), wantDelta)
			}
		})
	}
}

func TestRecommend_SkinTypeBonus_ScenarioB(t *testing.T) {
	idx := fixedIndex(match("p", 0.5, product.Attributes{SkinType: "sensitive type, dry skin"}))

	res, err := newService(idx, &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("", ""), preference.New("dry, sensitive", 0), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := res.Candidates[0]
	bonuses := c.Bonuses()
	if len(bonuses) != 1 {
		t.Fatalf("bonuses = %v, want exactly one", bonuses)
	}
	if bonuses[0] != "skin-type-match:dry" {
		t.Errorf("tag = %q, want first preference token", bonuses[0])
	}
	if math.Abs(c.Score()-c.BaseScore()-0.2) > eps {
		t.Errorf("delta = %v, want 0.2", c.Score()-c.BaseScore())
	}
}

func TestRecommend_SkinTypeBonus_FirstMatchingTokenInPreferenceOrder(t *testing.T) {
	idx := fixedIndex(match("p", 0.5, product.Attributes{SkinType: "sensitive type"}))

	res, err := newService(idx, &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("", ""), preference.New("dry, sensitive", 0), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bonuses := res.Candidates[0].Bonuses()
	if len(bonuses) != 1 || bonuses[0] != "skin-type-match:sensitive" {
		t.Errorf("bonuses = %v, want [skin-type-match:sensitive]", bonuses)
	}
}

func TestRecommend_SkinTypeContainmentDirection(t *testing.T) {
	tests := []struct {
		name       string
		preference string
		field      string
		want       bool
	}{
		{"token inside field", "건성", "건성, 복합성", true},
		{"field inside token gets nothing", "민감성 건성", "건성", false},
		{"partial word overlap gets nothing", "oily", "oil-free", false},
		{"korean multi-type field", "민감", "모든 피부 (민감성 포함)", true},
		{"empty field", "건성", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx := fixedIndex(match("p", 0.5, product.Attributes{SkinType: tc.field}))
			res, err := newService(idx, &mockEmbedder{}).Recommend(
				context.Background(), diagnosis.New("", ""), preference.New(tc.preference, 0), 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := len(res.Candidates[0].Bonuses()) == 1
			if got != tc.want {
				t.Errorf("bonus applied = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRecommend_PriceCeiling_ScenarioC(t *testing.T) {
	idx := fixedIndex(
		match("expensive", 0.99, product.Attributes{Price: 50000, Conditions: product.NewConditions("건선")}),
		match("cheap", 0.40, product.Attributes{Price: 25000}),
		match("unpriced", 0.30, product.Attributes{}),
	)

	res, err := newService(idx, &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("건선", ""), preference.New("", 30000), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if must := idx.lastF.Must(); len(must) != 1 || must[0].Max() != 30000 {
		t.Fatalf("filter = %+v, want price <= 30000", must)
	}
	for _, id := range ids(res.Candidates) {
		if id == "expensive" {
			t.Fatal("product above the ceiling must never be returned")
		}
	}
	if len(res.Candidates) != 2 {
		t.Errorf("candidates = %v, want cheap and unpriced", ids(res.Candidates))
	}
}

func TestRecommend_MalformedConditionsKept_ScenarioD(t *testing.T) {
	broken := product.MustParseConditions(product.ConditionsFromText("['건선'"))
	idx := fixedIndex(
		match("broken", 0.95, product.Attributes{Conditions: broken}),
		match("other", 0.10, product.Attributes{}),
	)

	res, err := newService(idx, &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("건선", ""), preference.New("", 0), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("candidates = %v", ids(res.Candidates))
	}
	c := res.Candidates[0]
	p := c.Product()
	if p.ID() != "broken" {
		t.Errorf("top = %q, want broken", p.ID())
	}
	if len(c.Bonuses()) != 0 {
		t.Errorf("malformed conditions must not earn a bonus, got %v", c.Bonuses())
	}
}

func TestRecommend_OrderingLengthAndAdditivity(t *testing.T) {
	idx := fixedIndex(
		match("a", 0.90, product.Attributes{SkinType: "지성"}),
		match("b", 0.80, product.Attributes{Conditions: product.NewConditions("여드름"), SkinType: "지성"}),
		match("c", 0.85, product.Attributes{}),
		match("d", 0.60, product.Attributes{Conditions: product.NewConditions("여드름")}),
		match("e", 0.10, product.Attributes{}),
	)
	svc := newService(idx, &mockEmbedder{})
	d := diagnosis.New("여드름", "")
	p := preference.New("지성", 0)

	for _, k := range []int{1, 2, 4, 5, 10} {
		res, err := svc.Recommend(context.Background(), d, p, k)
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		want := min(k, 5)
		if len(res.Candidates) != want {
			t.Errorf("k=%d: len = %d, want %d", k, len(res.Candidates), want)
		}
		for i := range res.Candidates {
			c := res.Candidates[i]
			if c.Score() < c.BaseScore() {
				t.Errorf("k=%d: score %v below base %v", k, c.Score(), c.BaseScore())
			}
			if i > 0 && res.Candidates[i-1].Score() < c.Score() {
				t.Errorf("k=%d: not descending at %d", k, i)
			}
		}
	}

	res, err := svc.Recommend(context.Background(), d, p, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := ids(res.Candidates)
	want := []string{"b", "a", "d", "c", "e"} // 1.3, 1.1, 0.9, 0.85, 0.1
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRecommend_StableTies(t *testing.T) {
	idx := fixedIndex(
		match("first", 0.5, product.Attributes{}),
		match("second", 0.5, product.Attributes{}),
		match("third", 0.3, product.Attributes{SkinType: "건성"}),
	)
	res, err := newService(idx, &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("", ""), preference.New("건성", 0), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := ids(res.Candidates)
	// third: 0.3 + 0.2 == 0.5 only up to float error; first/second must keep index order.
	var firstPos, secondPos int
	for i, id := range got {
		switch id {
		case "first":
			firstPos = i
		case "second":
			secondPos = i
		}
	}
	if firstPos > secondPos {
		t.Errorf("order = %v, equal scores must keep index order", got)
	}
}

func TestRecommend_Idempotent(t *testing.T) {
	idx := fixedIndex(
		match("a", 0.7, product.Attributes{Conditions: product.NewConditions("지루")}),
		match("b", 0.9, product.Attributes{SkinType: "지성"}),
		match("c", 0.8, product.Attributes{}),
	)
	svc := newService(idx, &mockEmbedder{})
	d := diagnosis.New("지루", "T존")
	p := preference.New("지성", 0)

	first, err := svc.Recommend(context.Background(), d, p, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Recommend(context.Background(), d, p, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, b := ids(first.Candidates), ids(second.Candidates)
	for i := range a {
		if a[i] != b[i] || first.Candidates[i].Score() != second.Candidates[i].Score() {
			t.Fatalf("run 1 %v != run 2 %v", a, b)
		}
	}
}

func TestRecommend_EmptyIndexIsNotAnError(t *testing.T) {
	res, err := newService(fixedIndex(), &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("정상", ""), preference.New("", 1000), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Candidates == nil || res.Count() != 0 {
		t.Errorf("candidates = %v, want empty non-nil", res.Candidates)
	}
}

func TestRecommend_EmbedderError(t *testing.T) {
	idx := fixedIndex(match("a", 0.9, product.Attributes{}))
	emb := &mockEmbedder{fn: func(context.Context, string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProviderError
	}}

	res, err := newService(idx, emb).Recommend(
		context.Background(), diagnosis.New("건선", ""), preference.New("", 0), 3)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v, want ErrEmbeddingProviderError", err)
	}
	if res.Candidates != nil {
		t.Error("no partial results on error")
	}
	if idx.calls != 0 {
		t.Error("index must not be queried after an embedding failure")
	}
}

func TestRecommend_IndexError(t *testing.T) {
	idx := &mockSearcher{searchFn: func(context.Context, []float32, int, filter.Expression) ([]product.Match, error) {
		return nil, domain.ErrIndexUnavailable
	}}

	res, err := newService(idx, &mockEmbedder{}).Recommend(
		context.Background(), diagnosis.New("건선", ""), preference.New("", 0), 3)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable", err)
	}
	if res.Candidates != nil {
		t.Error("no partial results on error")
	}
}

func TestRecommend_RecordsEmbeddingUsage(t *testing.T) {
	ctx, usage := domain.NewContextWithUsage(context.Background())
	_, err := newService(fixedIndex(), &mockEmbedder{}).Recommend(
		ctx, diagnosis.New("", ""), preference.New("", 0), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usage.Used || usage.TotalTokens != 4 {
		t.Errorf("usage = %+v, want {4 true}", *usage)
	}
}

func TestRecommend_CustomScoring(t *testing.T) {
	idx := fixedIndex(
		match("similar", 0.9, product.Attributes{}),
		match("matched", 0.5, product.Attributes{Conditions: product.NewConditions("건선")}),
	)
	scoring := domrec.Scoring{ConditionBonus: 0.1, SkinTypeBonus: 0, RecallFactor: 2}
	svc := New(idx, &mockEmbedder{}, scoring, nil)

	res, err := svc.Recommend(context.Background(), diagnosis.New("건선", ""), preference.New("", 0), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastLimit != 4 {
		t.Errorf("limit = %d, want 4", idx.lastLimit)
	}
	if got := ids(res.Candidates); got[0] != "similar" {
		t.Errorf("order = %v, small bonus should not overtake", got)
	}
}
