package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const probeText = "임베딩 모델 상태 확인 문장입니다."

// Encoder is a trained text encoder reachable by the provider
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Provider turns text into unit-length vectors. It starts in capable mode
// when the encoder answers a probe with a 384 or 768 wide vector and
// otherwise hashes text. Once the
// encoder fails at call time the provider stays degraded for good.
type Provider struct {
	encoder     Encoder
	capable     atomic.Bool
	dimension   int
	batchSize   int
	concurrency int
	cache       *cache.Cache
	logger      *zap.Logger
}

// NewProvider never fails: an unusable encoder only selects degraded mode
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig, encoder Encoder, logger *zap.Logger) *Provider {
	p := &Provider{
		encoder:     encoder,
		dimension:   cfg.Dimension,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		cache:       cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:      logger,
	}

	if encoder == nil {
		logger.Warn("no embedding encoder configured, using hash-based vectors",
			zap.Int("dimension", p.dimension),
		)
		return p
	}

	var probe [][]float32
	err := cfg.Retry.Do(ctx, func(ctx context.Context) error {
		vectors, err := encoder.Encode(ctx, []string{probeText})
		if err != nil {
			return err
		}
		if len(vectors) != 1 || len(vectors[0]) == 0 {
			return fmt.Errorf("%w: empty probe vector", entity.ErrEncoderUnavailable)
		}
		probe = vectors
		return nil
	})
	if err != nil {
		logger.Warn("embedding encoder unavailable, using hash-based vectors",
			zap.String("encoder", encoder.Name()),
			zap.Int("dimension", p.dimension),
			zap.Error(err),
		)
		return p
	}

	if width := len(probe[0]); !config.SupportedDimension(width) {
		logger.Warn("embedding encoder width unsupported, using hash-based vectors",
			zap.String("encoder", encoder.Name()),
			zap.Int("encoder_dimension", width),
			zap.Int("dimension", p.dimension),
		)
		return p
	}

	p.dimension = len(probe[0])
	p.capable.Store(true)

	logger.Info("embedding encoder loaded",
		zap.String("encoder", encoder.Name()),
		zap.Int("dimension", p.dimension),
	)

	return p
}

// Encode returns one vector per text. Only a cancelled ctx produces an error.
func (p *Provider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if p.capable.Load() {
		vectors, err := p.encodeCapable(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if p.capable.CompareAndSwap(true, false) {
			ctxzap.Warn(ctx, "embedding encoder failed, switching to hash-based vectors",
				zap.String("encoder", p.encoder.Name()),
				zap.Error(err),
			)
		}
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = HashVector(text, p.dimension)
	}
	return out, nil
}

func (p *Provider) encodeCapable(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []int
	for i, text := range texts {
		if cached, ok := p.cache.Get(text); ok {
			out[i] = clone(cached.([]float32))
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batchSize := p.batchSize
	if batchSize <= 0 {
		batchSize = len(missing)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.concurrency, 1))

	for start := 0; start < len(missing); start += batchSize {
		batch := missing[start:min(start+batchSize, len(missing))]

		g.Go(func() error {
			inputs := make([]string, len(batch))
			for j, idx := range batch {
				inputs[j] = texts[idx]
			}

			vectors, err := p.encoder.Encode(gctx, inputs)
			if err != nil {
				return err
			}
			if len(vectors) != len(inputs) {
				return fmt.Errorf("encoder returned %d vectors for %d texts", len(vectors), len(inputs))
			}

			for j, idx := range batch {
				if len(vectors[j]) != p.dimension {
					return fmt.Errorf("%w: got %d, want %d", entity.ErrDimensionMismatch, len(vectors[j]), p.dimension)
				}
				v := clone(vectors[j])
				Normalize(v)
				out[idx] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, idx := range missing {
		p.cache.SetDefault(texts[idx], clone(out[idx]))
	}

	return out, nil
}

func (p *Provider) Dimension() int {
	return p.dimension
}

func (p *Provider) IsCapable() bool {
	return p.capable.Load()
}

// Mode describes the active mode for status reporting
func (p *Provider) Mode() string {
	if p.capable.Load() {
		return "capable:" + p.encoder.Name()
	}
	return "degraded:sha256"
}
