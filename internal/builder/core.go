package builder

import (
	"context"
	"fmt"

	"github.com/futig/advisor-backend/internal/classifier"
	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/embedding"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/generation"
	"github.com/futig/advisor-backend/internal/integration/encoder"
	"github.com/futig/advisor-backend/internal/integration/llamacpp"
	"github.com/futig/advisor-backend/internal/integration/llm"
	"github.com/futig/advisor-backend/internal/pipeline"
	"github.com/futig/advisor-backend/internal/pkg/workerpool"
	"github.com/futig/advisor-backend/internal/seed"
	"github.com/futig/advisor-backend/internal/vectorindex"
	"go.uber.org/zap"
)

// Core holds the components that answer questions, shared by every binary
type Core struct {
	Classifier *classifier.Classifier
	Embedder   *embedding.Provider
	Index      *vectorindex.Index
	Pipeline   *pipeline.Pipeline

	// Local is nil unless a local model is configured
	Local *generation.LocalBackend

	pool    *workerpool.Pool
	watcher *seed.Watcher
}

// BuildCore creates the embedder, the seeded index, the generation chain and
// the pipeline. It fails only on configuration errors.
func BuildCore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Core, error) {
	cls := classifier.NewDefault()

	var enc embedding.Encoder
	if cfg.EmbeddingCfg.Enabled() {
		enc = encoder.NewConnector(cfg.EmbeddingCfg, logger)
	}
	provider := embedding.NewProvider(ctx, cfg.EmbeddingCfg, enc, logger)

	index, err := vectorindex.New(cfg.IndexCfg, provider.Dimension(), logger)
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}

	docs, err := seed.LoadOrBuiltin(cfg.SeedCfg.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load seed documents: %w", err)
	}
	if err := seed.Ingest(ctx, docs, provider, index); err != nil {
		return nil, fmt.Errorf("ingest seed documents: %w", err)
	}
	logger.Info("seed documents indexed",
		zap.Int("documents", index.Size()),
		zap.String("embedding_mode", provider.Mode()),
	)

	pool, err := workerpool.New(cfg.WorkerPoolCfg.Size, cfg.WorkerPoolCfg.MaxBlocking, logger)
	if err != nil {
		return nil, err
	}

	core := &Core{
		Classifier: cls,
		Embedder:   provider,
		Index:      index,
		pool:       pool,
	}

	var backends []generation.Backend
	var configured []entity.BackendKind

	if cfg.LocalBackendCfg.Enabled() {
		engine := llamacpp.NewConnector(cfg.LocalBackendCfg, logger)
		core.Local = generation.NewLocalBackend(ctx, cfg.LocalBackendCfg, engine, pool, cfg.GenerationCfg.StreamDelay, logger)
		backends = append(backends, core.Local)
		configured = append(configured, entity.BackendLocal)
	}
	if cfg.RemoteBackendCfg.Enabled() {
		backends = append(backends, llm.NewConnector(cfg.RemoteBackendCfg, cfg.GenerationCfg.StreamDelay, logger))
		configured = append(configured, entity.BackendRemote)
	}

	selector, err := generation.NewSelector(cfg.GenerationCfg, configured...)
	if err != nil {
		closeCore(ctx, core, logger)
		return nil, fmt.Errorf("create backend selector: %w", err)
	}

	mock := llm.NewMockConnector(cls, cfg.GenerationCfg.StreamDelay, logger)
	chain := generation.NewChain(selector, mock, cfg.GenerationCfg.StreamDelay, logger, backends...)

	core.Pipeline, err = pipeline.New(cfg.PipelineCfg, cfg.GenerationCfg, cls, provider, index, chain, logger)
	if err != nil {
		closeCore(ctx, core, logger)
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	if cfg.SeedCfg.Watch && cfg.SeedCfg.Path != "" {
		core.watcher = seed.NewWatcher(cfg.SeedCfg.Path, provider, index, logger)
	}

	return core, nil
}

// RunBackground starts the seed watcher, if any, until ctx is done
func (c *Core) RunBackground(ctx context.Context, logger *zap.Logger) {
	if c.watcher == nil {
		return
	}
	go func() {
		if err := c.watcher.Run(ctx); err != nil {
			logger.Error("seed watcher stopped", zap.Error(err))
		}
	}()
}

// Close waits for in-flight inference up to the ctx deadline
func (c *Core) Close(ctx context.Context) error {
	return c.pool.Release(ctx)
}
