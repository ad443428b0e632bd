package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/generation"
	"github.com/futig/advisor-backend/internal/knowledge"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Classifier interface {
	Classify(text string) entity.Category
}

type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	IsCapable() bool
	Dimension() int
	Mode() string
}

type Retriever interface {
	SearchCategory(ctx context.Context, query []float32, k int, category entity.Category) ([]entity.RetrievalResult, error)
	Search(ctx context.Context, query []float32, k int) ([]entity.RetrievalResult, error)
	Size() int
	Backend() string
}

// statusReporter is implemented by the generation chain
type statusReporter interface {
	Statuses() []entity.BackendStatus
	FallbackEnabled() bool
}

// fallbackGenerator answers without the primary backends; implemented by the
// generation chain
type fallbackGenerator interface {
	Fallback(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult
}

// Pipeline answers a query: classify, retrieve, compose, generate. No stage
// failure leaves ProcessQuery; each one is replaced by its degraded form.
type Pipeline struct {
	topK        int
	maxTokens   int
	temperature float64
	topP        float64
	streamDelay time.Duration

	classifier Classifier
	embedder   Embedder
	retriever  Retriever
	generator  generation.Backend
	logger     *zap.Logger
}

// New fails only when the pipeline has nothing to generate with or no
// collaborator at all
func New(
	cfg config.PipelineConfig,
	genCfg config.GenerationConfig,
	classifier Classifier,
	embedder Embedder,
	retriever Retriever,
	generator generation.Backend,
	logger *zap.Logger,
) (*Pipeline, error) {
	if classifier == nil && embedder == nil && retriever == nil && generator == nil {
		return nil, entity.ErrPipelineNotConfigured
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: no generation backend", entity.ErrPipelineNotConfigured)
	}

	if classifier == nil {
		logger.Warn("no classifier configured, every query uses the default category")
	}
	if embedder == nil || retriever == nil {
		logger.Warn("retrieval disabled, answers are generated without references")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}

	return &Pipeline{
		topK:        topK,
		maxTokens:   genCfg.MaxTokens,
		temperature: genCfg.Temperature,
		topP:        genCfg.TopP,
		streamDelay: genCfg.StreamDelay,
		classifier:  classifier,
		embedder:    embedder,
		retriever:   retriever,
		generator:   generator,
		logger:      logger,
	}, nil
}

func (p *Pipeline) ProcessQuery(ctx context.Context, q entity.Query) entity.PipelineResult {
	start := time.Now()

	category := guard(ctx, "classify", entity.DefaultCategory, func() entity.Category {
		return p.classify(ctx, q)
	})

	sources := guard(ctx, "retrieve", []entity.RetrievalResult{}, func() []entity.RetrievalResult {
		return p.retrieve(ctx, q.Question, category)
	})

	prompt := guard(ctx, "compose", NoReferenceMarker+"\n\n"+knowledge.QuestionLabel+" "+q.Question, func() string {
		return ComposePrompt(category, q.Question, sources)
	})

	req := entity.GenerationRequest{
		Prompt:      prompt,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		TopP:        p.topP,
		Category:    category,
	}
	gen := p.generate(ctx, req)

	result := entity.PipelineResult{
		Response:               gen.Text,
		Category:               category,
		RetrievedCount:         len(sources),
		UsingCapableEmbeddings: p.embedder != nil && p.embedder.IsCapable(),
		Degraded:               gen.Degraded,
		BackendUsed:            gen.BackendUsed,
		Sources:                sources,
		Suggestion:             knowledge.Suggestion(category),
		ProcessingTime:         time.Since(start),
		Prompt:                 prompt,
	}

	ctxzap.Info(ctx, "query processed",
		zap.String("question", trimmed(q.Question, 50)),
		zap.String("category", string(category)),
		zap.Int("retrieved_count", result.RetrievedCount),
		zap.String("backend", string(result.BackendUsed)),
		zap.Bool("degraded", result.Degraded),
		zap.Duration("processing_time", result.ProcessingTime),
	)

	return result
}

// StreamQuery processes q and streams the answer as word chunks. The chunks
// concatenate to the returned Response.
func (p *Pipeline) StreamQuery(ctx context.Context, q entity.Query) (entity.PipelineResult, <-chan string) {
	result := p.ProcessQuery(ctx, q)
	return result, generation.StreamWords(ctx, result.Response, p.streamDelay)
}

func (p *Pipeline) classify(ctx context.Context, q entity.Query) entity.Category {
	if q.Category != "" {
		if err := q.Category.Validate(); err == nil {
			return q.Category
		}
		ctxzap.Warn(ctx, "unknown category requested, using default",
			zap.String("category", string(q.Category)),
		)
		return entity.DefaultCategory
	}

	if p.classifier == nil {
		return entity.DefaultCategory
	}
	return p.classifier.Classify(q.Question)
}

// retrieve searches within category first and over the whole index when the
// category has no documents
func (p *Pipeline) retrieve(ctx context.Context, question string, category entity.Category) []entity.RetrievalResult {
	empty := []entity.RetrievalResult{}
	if p.embedder == nil || p.retriever == nil || p.retriever.Size() == 0 {
		return empty
	}

	vectors, err := p.embedder.Encode(ctx, []string{question})
	if err != nil || len(vectors) != 1 {
		ctxzap.Warn(ctx, "query embedding failed, answering without references", zap.Error(err))
		return empty
	}

	results, err := p.retriever.SearchCategory(ctx, vectors[0], p.topK, category)
	if err == nil && len(results) == 0 {
		results, err = p.retriever.Search(ctx, vectors[0], p.topK)
	}
	if err != nil {
		ctxzap.Warn(ctx, "vector search failed, answering without references", zap.Error(err))
		return empty
	}

	return results
}

// Status reports the state of every collaborator
func (p *Pipeline) Status() entity.ComponentStatus {
	status := entity.ComponentStatus{
		EmbeddingMode: "disabled",
		IndexBackend:  "disabled",
		ActiveBackend: p.generator.Kind(),
	}

	if p.embedder != nil {
		status.EmbeddingMode = p.embedder.Mode()
		status.EmbeddingDimension = p.embedder.Dimension()
		status.CapableEmbeddings = p.embedder.IsCapable()
	}
	if p.retriever != nil {
		status.IndexBackend = p.retriever.Backend()
		status.IndexSize = p.retriever.Size()
	}
	if r, ok := p.generator.(statusReporter); ok {
		status.Backends = r.Statuses()
		status.FallbackEnabled = r.FallbackEnabled()
	} else {
		status.Backends = []entity.BackendStatus{{Kind: p.generator.Kind(), Ready: p.generator.IsReady()}}
	}

	return status
}

// generate substitutes the mock answer when the generator itself panics
func (p *Pipeline) generate(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult {
	res, ok := recovered(ctx, "generate", func() entity.GenerationResult {
		return p.generator.Generate(ctx, req)
	})
	if ok {
		return res
	}

	apology := generation.DegradedResult(entity.BackendMock)
	f, ok := p.generator.(fallbackGenerator)
	if !ok {
		return apology
	}
	return guard(ctx, "generate fallback", apology, func() entity.GenerationResult {
		return f.Fallback(ctx, req)
	})
}

func guard[T any](ctx context.Context, stage string, fallback T, fn func() T) T {
	out, ok := recovered(ctx, stage, fn)
	if !ok {
		return fallback
	}
	return out
}

// recovered runs fn and reports false if it panicked
func recovered[T any](ctx context.Context, stage string, fn func() T) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ctxzap.Error(ctx, "pipeline stage panicked, using fallback",
				zap.String("stage", stage),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return fn(), true
}

// trimmed keeps log lines short
func trimmed(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
