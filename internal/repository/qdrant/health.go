package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

type healthClient interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
}

// Pinger reports whether the Qdrant server answers its health endpoint.
type Pinger struct {
	client healthClient
}

// NewPinger wraps a Qdrant client for the health service.
func NewPinger(c healthClient) *Pinger {
	return &Pinger{client: c}
}

// Ping calls the server health check.
func (p *Pinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}
