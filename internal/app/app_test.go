package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/config"
	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	chiTransport "github.com/kailas-cloud/cosmerec/internal/transport/chi"
	healthuc "github.com/kailas-cloud/cosmerec/internal/usecase/health"
)

const corpusCSV = `제품명,브랜드,가격,제품유형,피부타입,관련_피부질환,제품설명,임베딩_텍스트
건선 크림,브랜드A,"25,000",크림,"건성, 민감성",['건선'],진정 크림,건선 진정 보습 크림
건선 로션,브랜드B,30000,로션,지성,[],각질 케어,건선 각질 로션
아토피 밤,브랜드C,18000,밤,건성,['아토피'],장벽 강화,아토피 장벽 밤
`

// fakeOllama embeds by keyword: 건선 -> x axis, 아토피 -> y axis, anything else -> z axis.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		vecs := make([][]float32, len(req.Input))
		for i, text := range req.Input {
			switch {
			case strings.Contains(text, "건선"):
				vecs[i] = []float32{1, 0, 0}
			case strings.Contains(text, "아토피"):
				vecs[i] = []float32{0, 1, 0}
			default:
				vecs[i] = []float32{0, 0, 1}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "test-embed",
			"embeddings":        vecs,
			"prompt_eval_count": len(req.Input),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, ollamaURL string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cosmetics.csv")
	if err := os.WriteFile(path, []byte(corpusCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Embedding: config.EmbeddingConfig{
			Provider:            "local",
			Model:               "test-embed",
			QueryInstruction:    "query: ",
			DocumentInstruction: "passage: ",
			Providers: map[string]config.ProviderConfig{
				"local": {Type: config.ProviderOllama, BaseURL: ollamaURL},
			},
		},
		Catalog: config.CatalogConfig{Path: path, BatchSize: 2},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

func TestBuild_EndToEnd(t *testing.T) {
	cfg := testConfig(t, fakeOllama(t).URL)
	ctx := context.Background()

	a, err := Build(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if rep := a.Health.Check(ctx); rep.Checks["index"] != healthuc.CheckEmpty {
		t.Errorf("index check before load = %q, want empty", rep.Checks["index"])
	}

	if err := a.EnsureIndexed(ctx); err != nil {
		t.Fatalf("EnsureIndexed: %v", err)
	}
	if n, _ := a.Index.Count(ctx); n != 3 {
		t.Fatalf("indexed = %d, want 3", n)
	}

	res, err := a.Engine.Recommend(ctx,
		diagnosis.New("건선", ""), preference.New("건성", 0), 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Count() != 2 {
		t.Fatalf("count = %d, want 2", res.Count())
	}
	top := res.Candidates[0]
	if p := top.Product(); p.Name() != "건선 크림" {
		t.Errorf("top product = %q, want 건선 크림", p.Name())
	}
	if len(top.Bonuses()) != 2 {
		t.Errorf("top bonuses = %v, want condition and skin type", top.Bonuses())
	}
	if res.Candidates[0].Score() <= res.Candidates[1].Score() {
		t.Errorf("results not ordered by score")
	}

	rep := a.Health.Check(ctx)
	if rep.Status != healthuc.Healthy || rep.Products != 3 {
		t.Errorf("health = %+v, want ok with 3 products", rep)
	}
}

func TestAPI_NonPositiveTopKReturnsNoProducts(t *testing.T) {
	cfg := testConfig(t, fakeOllama(t).URL)
	ctx := context.Background()

	a, err := Build(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()
	if err := a.EnsureIndexed(ctx); err != nil {
		t.Fatalf("EnsureIndexed: %v", err)
	}

	srv := chiTransport.NewServer(a.Engine, a.Health, chiTransport.Limits{}, zap.NewNop())
	router := chiTransport.NewRouter(srv, nil, zap.NewNop())

	for _, body := range []string{`{"condition":"건선","top_k":0}`, `{"condition":"건선","top_k":-1}`} {
		t.Run(body, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/recommendations", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 (%s)", rr.Code, rr.Body.String())
			}
			var resp struct {
				Products []json.RawMessage `json:"products"`
				Count    int               `json:"count"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Products == nil || len(resp.Products) != 0 || resp.Count != 0 {
				t.Errorf("products = %v count = %d, want empty list", resp.Products, resp.Count)
			}
		})
	}
}

func TestBuild_PriceCeiling(t *testing.T) {
	cfg := testConfig(t, fakeOllama(t).URL)
	ctx := context.Background()

	a, err := Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if _, err := a.Rebuild(ctx, cfg.Catalog.Path, cfg.Catalog.Table); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	res, err := a.Engine.Recommend(ctx,
		diagnosis.New("건선", ""), preference.New("", 20000), 5)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.Count() != 1 {
		t.Fatalf("count = %d, want 1", res.Count())
	}
	if p := res.Candidates[0].Product(); p.Price() > 20000 {
		t.Errorf("price %d exceeds ceiling", p.Price())
	}
}

func TestEnsureIndexed_NoCatalog(t *testing.T) {
	cfg := testConfig(t, fakeOllama(t).URL)
	cfg.Catalog.Path = ""

	a, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if err := a.EnsureIndexed(context.Background()); err != nil {
		t.Fatalf("EnsureIndexed: %v", err)
	}
	if n, _ := a.Index.Count(context.Background()); n != 0 {
		t.Errorf("indexed = %d, want 0", n)
	}
}

func TestRebuild_MissingFile(t *testing.T) {
	cfg := testConfig(t, fakeOllama(t).URL)
	a, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if _, err := a.Rebuild(context.Background(), filepath.Join(t.TempDir(), "none.csv"), ""); err == nil {
		t.Fatal("expected error for missing corpus")
	}
}

func TestNewCacheStore(t *testing.T) {
	tests := []struct {
		kind    string
		wantNil bool
		wantErr bool
	}{
		{kind: config.CacheNone, wantNil: true},
		{kind: config.CacheLRU},
		{kind: config.CacheStore, wantErr: true},
		{kind: "disk", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s, err := newCacheStore(config.CacheConfig{Kind: tt.kind, Size: 4}, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (s == nil) != tt.wantNil {
				t.Errorf("store = %v, wantNil %v", s, tt.wantNil)
			}
		})
	}
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "http://localhost:11434")
	cfg.Database.Driver = "mongo"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
