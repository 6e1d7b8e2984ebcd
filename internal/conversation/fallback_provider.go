package conversation

import (
	"context"
	"fmt"

	"github.com/carewell/scheduling-agent/pkg/logging"
)

// FallbackProvider tries the primary provider and falls back to a secondary
// on any error. The secondary sees the identical request.
type FallbackProvider struct {
	primary  ModelProvider
	fallback ModelProvider
	logger   *logging.Logger
}

// NewFallbackProvider composes two providers. fallback may be nil, in which
// case this is a transparent passthrough.
func NewFallbackProvider(primary, fallback ModelProvider, logger *logging.Logger) *FallbackProvider {
	if primary == nil {
		panic("conversation: primary provider cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackProvider{primary: primary, fallback: fallback, logger: logger}
}

// Name identifies the composed chain.
func (p *FallbackProvider) Name() string {
	if p.fallback == nil {
		return p.primary.Name()
	}
	return fmt.Sprintf("%s+%s", p.primary.Name(), p.fallback.Name())
}

// Complete tries primary, then fallback.
func (p *FallbackProvider) Complete(ctx context.Context, req Request) (Reply, error) {
	reply, err := p.primary.Complete(ctx, req)
	if err == nil {
		return reply, nil
	}
	if p.fallback == nil {
		return Reply{}, err
	}
	p.logger.Warn("primary model provider failed, trying fallback",
		"primary", p.primary.Name(),
		"fallback", p.fallback.Name(),
		"error", err)
	reply, fbErr := p.fallback.Complete(ctx, req)
	if fbErr != nil {
		return Reply{}, fmt.Errorf("conversation: primary failed (%v); fallback failed: %w", err, fbErr)
	}
	return reply, nil
}
