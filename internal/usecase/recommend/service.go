package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/filter"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	"github.com/kailas-cloud/cosmerec/internal/domain/product"
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
	logpkg "github.com/kailas-cloud/cosmerec/internal/logger"
	"github.com/kailas-cloud/cosmerec/internal/metrics"
	"github.com/kailas-cloud/cosmerec/internal/usecase/query"
)

// Service is the recommendation engine: hard price filter, wide semantic recall,
// rule-based re-rank. It holds no per-call state and is safe for concurrent use.
type Service struct {
	index   Searcher
	embed   Embedder
	scoring domrec.Scoring
	logger  *zap.Logger
}

// New creates a Service.
func New(index Searcher, embed Embedder, scoring domrec.Scoring, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, embed: embed, scoring: scoring, logger: logger}
}

// Query returns the embedding query that Recommend would use.
func (s *Service) Query(d diagnosis.Diagnosis, p preference.Preference) string {
	return query.Build(d, p)
}

// Recommend returns up to topK products for a diagnosis and preference.
// topK <= 0 gives an empty result without touching the index. Embedding and index
// failures are returned as errors; a search that finds nothing is a result with no
// candidates and a nil error.
func (s *Service) Recommend(
	ctx context.Context, d diagnosis.Diagnosis, p preference.Preference, topK int,
) (domrec.Result, error) {
	q := query.Build(d, p)
	result := domrec.Result{
		Input: domrec.Input{
			Condition:    d.Condition().String(),
			SkinType:     p.SkinType(),
			PriceCeiling: p.PriceCeiling(),
			Query:        q,
		},
		Candidates: []domrec.Candidate{},
	}

	if topK <= 0 {
		metrics.RecommendRequestsTotal.WithLabelValues("empty").Inc()
		return result, nil
	}

	log := logpkg.FromContextOr(ctx, s.logger)

	emb, err := s.embed.Embed(ctx, q)
	if err != nil {
		metrics.RecommendRequestsTotal.WithLabelValues("error").Inc()
		return domrec.Result{}, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	var filters filter.Expression
	if p.HasPriceCeiling() {
		filters = filter.PriceAtMost(p.PriceCeiling())
	}

	limit := topK * s.scoring.RecallFactor
	matches, err := s.index.Search(ctx, emb.Embedding, limit, filters)
	if err != nil {
		metrics.RecommendRequestsTotal.WithLabelValues("error").Inc()
		return domrec.Result{}, fmt.Errorf("search candidates: %w", err)
	}
	metrics.RecommendCandidates.Observe(float64(len(matches)))

	candidates := s.rerank(log, d.Condition().String(), p.SkinTypes(), matches)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score() > candidates[j].Score()
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	result.Candidates = candidates

	outcome := "ok"
	if len(candidates) == 0 {
		outcome = "empty"
	}
	metrics.RecommendRequestsTotal.WithLabelValues(outcome).Inc()

	return result, nil
}

// rerank applies the condition and skin-type bonuses. Candidates keep index order.
func (s *Service) rerank(
	log *zap.Logger, condition string, skinTypes []string, matches []product.Match,
) []domrec.Candidate {
	log.Debug("Re-ranking candidates",
		zap.String("condition", condition),
		zap.Strings("skin_types", skinTypes),
		zap.Int("candidates", len(matches)),
	)

	candidates := make([]domrec.Candidate, 0, len(matches))
	conditionMatches := 0

	for _, m := range matches {
		c := domrec.NewCandidate(m)
		p := m.Product
		conds := p.Conditions()

		matched := condition != "" && conds.Has(condition)
		log.Debug("Candidate checked",
			zap.String("product", shortName(p.Name())),
			zap.Strings("conditions", conds.Names()),
			zap.Bool("condition_match", matched),
		)

		if matched {
			c.AddBonus(s.scoring.ConditionBonus, domrec.TagConditionMatch)
			conditionMatches++
			metrics.RecommendBonusesTotal.WithLabelValues("condition").Inc()
			log.Debug("Condition match",
				zap.String("product", shortName(p.Name())),
				zap.Float64("base_score", c.BaseScore()),
				zap.Float64("score", c.Score()),
			)
		}

		skin := p.SkinType()
		for _, token := range skinTypes {
			if strings.Contains(skin, token) {
				c.AddBonus(s.scoring.SkinTypeBonus, domrec.SkinTypeTag(token))
				metrics.RecommendBonusesTotal.WithLabelValues("skin_type").Inc()
				break
			}
		}

		candidates = append(candidates, c)
	}

	log.Debug("Re-rank finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("condition_matches", conditionMatches),
	)

	return candidates
}

// shortName truncates long product names for log lines.
func shortName(name string) string {
	const maxRunes = 20
	if utf8.RuneCountInString(name) <= maxRunes {
		return name
	}
	return string([]rune(name)[:maxRunes]) + "..."
}
