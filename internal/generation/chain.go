package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Chain tries the resolved backends in order and stops at the first answer
// that is not degraded. The mock backend is the last resort: an answer it
// gives in place of another backend is marked degraded.
type Chain struct {
	selector    *Selector
	backends    map[entity.BackendKind]Backend
	mock        Backend
	streamDelay time.Duration
	logger      *zap.Logger
}

func NewChain(selector *Selector, mock Backend, streamDelay time.Duration, logger *zap.Logger, backends ...Backend) *Chain {
	byKind := make(map[entity.BackendKind]Backend, len(backends)+1)
	for _, b := range backends {
		if b != nil {
			byKind[b.Kind()] = b
		}
	}
	byKind[entity.BackendMock] = mock

	return &Chain{
		selector:    selector,
		backends:    byKind,
		mock:        mock,
		streamDelay: streamDelay,
		logger:      logger,
	}
}

func (c *Chain) Kind() entity.BackendKind {
	return c.selector.Selected()
}

// IsReady is always true since the mock backend can answer
func (c *Chain) IsReady() bool {
	return true
}

func (c *Chain) Generate(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult {
	order := c.selector.Resolve(req.Category)
	primary := order[0]

	for _, kind := range order {
		if ctx.Err() != nil {
			break
		}

		b, ok := c.backends[kind]
		if !ok {
			ctxzap.Warn(ctx, "generation backend not configured, skipping", zap.String("backend", string(kind)))
			continue
		}
		if !b.IsReady() {
			ctxzap.Warn(ctx, "generation backend not ready, skipping", zap.String("backend", string(kind)))
			continue
		}

		res, err := safeGenerate(ctx, b, req)
		if err != nil {
			ctxzap.Error(ctx, "generation backend panicked", zap.String("backend", string(kind)), zap.Error(err))
			continue
		}
		if res.Degraded {
			ctxzap.Warn(ctx, "generation backend degraded, trying next", zap.String("backend", string(kind)))
			continue
		}

		res.BackendUsed = kind
		res.Degraded = kind == entity.BackendMock && primary != entity.BackendMock
		return res
	}

	ctxzap.Warn(ctx, "generation chain exhausted, answering with mock backend",
		zap.String("primary", string(primary)),
	)
	return c.Fallback(ctx, req)
}

// Fallback answers with the mock backend, marked degraded
func (c *Chain) Fallback(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult {
	res, err := safeGenerate(ctx, c.mock, req)
	if err != nil || res.Text == "" {
		ctxzap.Error(ctx, "mock backend failed", zap.Error(err))
		return DegradedResult(entity.BackendMock)
	}
	res.BackendUsed = entity.BackendMock
	res.Degraded = true
	return res
}

func (c *Chain) StreamGenerate(ctx context.Context, req entity.GenerationRequest) <-chan string {
	return StreamWords(ctx, c.Generate(ctx, req).Text, c.streamDelay)
}

// Statuses reports every known backend in chain order
func (c *Chain) Statuses() []entity.BackendStatus {
	out := make([]entity.BackendStatus, 0, len(entity.BackendOrder))
	for _, kind := range entity.BackendOrder {
		b, ok := c.backends[kind]
		if !ok {
			out = append(out, entity.BackendStatus{Kind: kind, Detail: "not configured"})
			continue
		}

		status := entity.BackendStatus{Kind: kind, Ready: b.IsReady()}
		if d, ok := b.(Describer); ok {
			status.Detail = d.Describe()
		}
		out = append(out, status)
	}
	return out
}

// Backend returns the configured backend of kind
func (c *Chain) Backend(kind entity.BackendKind) (Backend, bool) {
	b, ok := c.backends[kind]
	return b, ok
}

func (c *Chain) FallbackEnabled() bool {
	return c.selector.FallbackEnabled()
}

func safeGenerate(ctx context.Context, b Backend, req entity.GenerationRequest) (res entity.GenerationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend %s panicked: %v", b.Kind(), r)
		}
	}()
	return b.Generate(ctx, req), nil
}
