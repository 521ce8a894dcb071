package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckEmpty indicates a reachable index with no products.
	CheckEmpty CheckResult = "empty"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Products int
}

// Service coordinates health checks.
type Service struct {
	index     IndexCounter
	db        Pinger
	embedding EmbeddingChecker
}

// New creates a Service. db and embedding can be nil.
func New(index IndexCounter, db Pinger, embedding EmbeddingChecker) *Service {
	return &Service{index: index, db: db, embedding: embedding}
}

// Check runs all checks. Any non-ok check degrades the status.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	var products int

	n, err := s.index.Count(ctx)
	switch {
	case err != nil:
		checks["index"] = CheckError
	case n == 0:
		checks["index"] = CheckEmpty
	default:
		checks["index"] = CheckOK
		products = n
	}

	if s.db != nil {
		checks["database"] = result(s.db.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Products: products}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
