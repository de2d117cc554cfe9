package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// Backend converts text to a fixed-dimension dense vector.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cache stores vectors keyed by input text. Failures degrade to a backend
// call, never to a request failure.
type Cache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Set(ctx context.Context, text string, vector []float32)
}

// Provider wraps a Backend with input validation, an optional cache, and a
// dimension pinned on first successful call. Safe for concurrent use; the
// dimension never changes for the process lifetime.
type Provider struct {
	backend Backend
	cache   Cache
	logger  *zap.Logger

	mu  sync.Mutex
	dim int
}

// NewProvider constructs a Provider. cache may be nil.
func NewProvider(backend Backend, cache Cache, logger *zap.Logger) *Provider {
	return &Provider{backend: backend, cache: cache, logger: logger}
}

// Embed returns the vector for text. Empty input after trimming is rejected
// before any external call.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperrors.NewInvalidInput("text to embed must not be empty")
	}

	if p.cache != nil {
		if vector, ok := p.cache.Get(ctx, trimmed); ok {
			return vector, nil
		}
	}

	vector, err := p.backend.Embed(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if err := p.checkDimension(len(vector)); err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Set(ctx, trimmed, vector)
	}
	return vector, nil
}

// Dimension returns the pinned vector dimensionality, or 0 before first use.
func (p *Provider) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dim
}

// checkDimension pins the dimension on first success and rejects any later
// drift, which would indicate a backend model swap mid-process.
func (p *Provider) checkDimension(got int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dim == 0 {
		p.dim = got
		p.logger.Info("embedding model ready", zap.Int("dimension", got))
		return nil
	}
	if got != p.dim {
		return fmt.Errorf("embedding dimension changed: got %d, expected %d", got, p.dim)
	}
	return nil
}
