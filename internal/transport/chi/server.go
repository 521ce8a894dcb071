// Package chi serves the recommendation HTTP API on a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cosmerec/internal/domain"
	"github.com/kailas-cloud/cosmerec/internal/domain/diagnosis"
	"github.com/kailas-cloud/cosmerec/internal/domain/preference"
	domrec "github.com/kailas-cloud/cosmerec/internal/domain/recommend"
	logpkg "github.com/kailas-cloud/cosmerec/internal/logger"
	healthuc "github.com/kailas-cloud/cosmerec/internal/usecase/health"
	"github.com/kailas-cloud/cosmerec/internal/version"
)

// Defaults for Limits fields left at zero.
const (
	DefaultTopK = 5
	MaxTopK     = 50
)

// Recommender is the engine as seen by the HTTP layer.
type Recommender interface {
	Recommend(ctx context.Context, d diagnosis.Diagnosis, p preference.Preference, topK int) (domrec.Result, error)
	Query(d diagnosis.Diagnosis, p preference.Preference) string
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Limits bound the top_k request parameter.
type Limits struct {
	DefaultTopK int
	MaxTopK     int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	engine        Recommender
	health        HealthChecker
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(engine Recommender, health HealthChecker, limits Limits, logger *zap.Logger) *Server {
	if limits.DefaultTopK <= 0 {
		limits.DefaultTopK = DefaultTopK
	}
	if limits.MaxTopK <= 0 {
		limits.MaxTopK = MaxTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: engine,
		health: health,
		limits: limits,
		logger: logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
			sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
			sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
		},
	}
}

// PostRecommendations handles POST /v1/recommendations.
func (s *Server) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	d := diagnosis.New(req.Condition, req.Description)
	if req.DiagnosisReply != "" {
		d = diagnosis.ParseReply(req.DiagnosisReply)
	}
	s.recommend(w, r, d, req.SkinType, req.PriceCeiling, req.TopK)
}

// GetRecommendations handles GET /v1/recommendations.
func (s *Server) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	params, err := bindRecommendationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	d := diagnosis.New(deref(params.Condition), deref(params.Description))
	s.recommend(w, r, d, deref(params.SkinType), deref(params.PriceCeiling), params.TopK)
}

func (s *Server) recommend(
	w http.ResponseWriter, r *http.Request,
	d diagnosis.Diagnosis, skinType string, priceCeiling int, topKParam *int,
) {
	if priceCeiling < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "price_ceiling must not be negative")
		return
	}
	topK, ok := s.resolveTopK(w, topKParam)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.engine.Recommend(ctx, d, preference.New(skinType, priceCeiling), topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, NewRecommendationResponse(res))
}

// resolveTopK applies the default and the upper bound. Zero and negative values
// reach the engine, which answers them with an empty list. It writes the error
// response itself.
func (s *Server) resolveTopK(w http.ResponseWriter, p *int) (int, bool) {
	if p == nil {
		return s.limits.DefaultTopK, true
	}
	if *p > s.limits.MaxTopK {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("top_k must be at most %d", s.limits.MaxTopK))
		return 0, false
	}
	return *p, true
}

// PostQueries handles POST /v1/queries: the search query the engine would embed.
func (s *Server) PostQueries(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	d := diagnosis.New(req.Condition, req.Description)
	if req.DiagnosisReply != "" {
		d = diagnosis.ParseReply(req.DiagnosisReply)
	}
	q := s.engine.Query(d, preference.New(req.SkinType, req.PriceCeiling))
	writeJSON(w, http.StatusOK, QueryResponse{Query: q})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Products: report.Products,
		Version:  version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func bindRecommendationParams(r *http.Request) (RecommendationParams, error) {
	var p RecommendationParams
	q := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"condition", &p.Condition},
		{"description", &p.Description},
		{"skin_type", &p.SkinType},
		{"price_ceiling", &p.PriceCeiling},
		{"top_k", &p.TopK},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return RecommendationParams{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return p, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrEmbeddingProviderError,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("Domain error", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
