package generation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	pkgRetry "github.com/futig/advisor-backend/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Engine runs inference over locally stored model weights
type Engine interface {
	Load(ctx context.Context) error
	Infer(ctx context.Context, req entity.GenerationRequest) (string, error)
	Name() string
}

// Submitter schedules work on a bounded pool, waiting for a free slot no
// longer than ctx allows
type Submitter interface {
	Submit(ctx context.Context, task func()) error
}

type inferResult struct {
	text string
	err  error
}

// LocalBackend runs engine inference on the worker pool. The caller waits for
// a slot and then for the answer only as long as its own context allows; an
// inference that has already been dispatched keeps running until the engine
// timeout.
type LocalBackend struct {
	engine      Engine
	pool        Submitter
	ready       atomic.Bool
	timeout     time.Duration
	retry       pkgRetry.RetryConfig
	streamDelay time.Duration
	logger      *zap.Logger
}

// NewLocalBackend tries to load the engine once. A failed load leaves the
// backend not ready; Reload can be called later.
func NewLocalBackend(
	ctx context.Context,
	cfg config.LocalBackendConfig,
	engine Engine,
	pool Submitter,
	streamDelay time.Duration,
	logger *zap.Logger,
) *LocalBackend {
	b := &LocalBackend{
		engine:      engine,
		pool:        pool,
		timeout:     cfg.InferenceTimeout,
		retry:       cfg.Retry,
		streamDelay: streamDelay,
		logger:      logger,
	}

	if err := b.Reload(ctx); err != nil {
		logger.Warn("local model not loaded, backend disabled until reload",
			zap.String("model", engine.Name()),
			zap.Error(err),
		)
	}

	return b
}

// Reload retries loading the engine and updates readiness
func (b *LocalBackend) Reload(ctx context.Context) error {
	err := b.retry.Do(ctx, b.engine.Load)
	b.ready.Store(err == nil)
	if err != nil {
		return fmt.Errorf("load local model %s: %w", b.engine.Name(), err)
	}

	b.logger.Info("local model loaded", zap.String("model", b.engine.Name()))
	return nil
}

func (b *LocalBackend) Kind() entity.BackendKind {
	return entity.BackendLocal
}

func (b *LocalBackend) IsReady() bool {
	return b.ready.Load()
}

func (b *LocalBackend) Describe() string {
	return b.engine.Name()
}

func (b *LocalBackend) Generate(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult {
	if !b.ready.Load() {
		return b.fail(ctx, entity.ErrBackendNotReady)
	}

	done := make(chan inferResult, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- inferResult{err: fmt.Errorf("inference panicked: %v", r)}
			}
		}()

		inferCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()

		text, err := b.engine.Infer(inferCtx, req)
		done <- inferResult{text: text, err: err}
	}

	if err := b.pool.Submit(ctx, task); err != nil {
		return b.fail(ctx, err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			return b.fail(ctx, res.err)
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			return b.fail(ctx, entity.ErrEmptyCompletion)
		}
		return entity.GenerationResult{
			Text:        text,
			BackendUsed: entity.BackendLocal,
		}
	case <-ctx.Done():
		return b.fail(ctx, ctx.Err())
	}
}

func (b *LocalBackend) StreamGenerate(ctx context.Context, req entity.GenerationRequest) <-chan string {
	return StreamWords(ctx, b.Generate(ctx, req).Text, b.streamDelay)
}

func (b *LocalBackend) fail(ctx context.Context, err error) entity.GenerationResult {
	ctxzap.Warn(ctx, "local generation failed",
		zap.String("model", b.engine.Name()),
		zap.Error(err),
	)
	return DegradedResult(entity.BackendLocal)
}
