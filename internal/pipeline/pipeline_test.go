package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futig/advisor-backend/internal/classifier"
	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/embedding"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/generation"
	"github.com/futig/advisor-backend/internal/integration/llm"
	"github.com/futig/advisor-backend/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sampleDocs = []entity.Document{
	{Text: "고혈압 관리를 위해서는 저염식 식단을 유지하고 규칙적인 운동을 하는 것이 중요합니다.", Category: entity.CategoryHealth, Topic: "혈압관리"},
	{Text: "당뇨병 예방을 위해 당분 섭취를 줄이고 식이섬유가 풍부한 음식을 섭취하세요.", Category: entity.CategoryHealth, Topic: "당뇨예방"},
	{Text: "제주도 여행 시 성산일출봉과 한라산, 우도 등을 방문하는 것을 추천합니다.", Category: entity.CategoryTravel, Topic: "제주도여행"},
	{Text: "부산 여행에서는 해운대, 광안리, 감천문화마을을 꼭 방문해보세요.", Category: entity.CategoryTravel, Topic: "부산여행"},
	{Text: "안전한 투자를 위해서는 분산투자와 장기투자 원칙을 지키는 것이 중요합니다.", Category: entity.CategoryInvestment, Topic: "투자원칙"},
	{Text: "계약서 작성 시에는 조건과 책임을 명확히 하고 전문가의 검토를 받으세요.", Category: entity.CategoryLegal, Topic: "계약법"},
}

type fixture struct {
	pipeline *Pipeline
	provider *embedding.Provider
	index    *vectorindex.Index
}

func newFixture(t *testing.T, generator generation.Backend, seed bool) fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	provider := embedding.NewProvider(ctx, config.EmbeddingConfig{Dimension: 384, CacheTTL: time.Minute}, nil, logger)
	index, err := vectorindex.New(config.VectorIndexConfig{Backend: config.IndexBackendFlat}, provider.Dimension(), logger)
	require.NoError(t, err)

	if seed {
		texts := make([]string, len(sampleDocs))
		for i, d := range sampleDocs {
			texts[i] = d.Text
		}
		vectors, err := provider.Encode(ctx, texts)
		require.NoError(t, err)
		require.NoError(t, index.Add(ctx, vectors, sampleDocs))
	}

	if generator == nil {
		generator = mockChain(t, "mock")
	}

	p, err := New(
		config.PipelineConfig{TopK: 3},
		config.GenerationConfig{MaxTokens: 256, Temperature: 0.7, TopP: 0.9},
		classifier.NewDefault(),
		provider,
		index,
		generator,
		logger,
	)
	require.NoError(t, err)

	return fixture{pipeline: p, provider: provider, index: index}
}

func mockChain(t *testing.T, backend string, backends ...generation.Backend) *generation.Chain {
	t.Helper()

	var configured []entity.BackendKind
	for _, b := range backends {
		configured = append(configured, b.Kind())
	}
	selector, err := generation.NewSelector(config.GenerationConfig{Backend: backend, FallbackEnabled: true}, configured...)
	require.NoError(t, err)

	mock := llm.NewMockConnector(classifier.NewDefault(), 0, zap.NewNop())
	return generation.NewChain(selector, mock, 0, zap.NewNop(), backends...)
}

func TestProcessQuery_BloodPressureScenario(t *testing.T) {
	f := newFixture(t, nil, true)

	res := f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "혈압 관리 방법"})

	assert.Equal(t, entity.CategoryHealth, res.Category)
	assert.LessOrEqual(t, res.RetrievedCount, 3)
	assert.Positive(t, res.RetrievedCount)
	for _, s := range res.Sources {
		assert.Equal(t, entity.CategoryHealth, s.Category)
	}
	assert.NotEmpty(t, res.Response)
	assert.True(t, strings.HasPrefix(res.Prompt, SystemInstruction(entity.CategoryHealth)))
	assert.Contains(t, res.Prompt, "사용자 질문: 혈압 관리 방법")
	assert.False(t, res.UsingCapableEmbeddings)
	assert.False(t, res.Degraded)
	assert.Equal(t, entity.BackendMock, res.BackendUsed)
	assert.NotEmpty(t, res.Suggestion)
}

func TestProcessQuery_EmptyIndex(t *testing.T) {
	f := newFixture(t, nil, false)

	res := f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "제주도 여행 추천"})

	assert.Equal(t, 0, res.RetrievedCount)
	assert.Empty(t, res.Sources)
	assert.Contains(t, res.Prompt, NoReferenceMarker)
	assert.Equal(t, entity.CategoryTravel, res.Category)
	assert.NotEmpty(t, res.Response)
}

func TestProcessQuery_ExplicitCategory(t *testing.T) {
	f := newFixture(t, nil, true)

	res := f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "혈압 관리 방법", Category: entity.CategoryLegal})
	assert.Equal(t, entity.CategoryLegal, res.Category)
	assert.True(t, strings.HasPrefix(res.Prompt, SystemInstruction(entity.CategoryLegal)))

	res = f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "제주도 여행", Category: "cooking"})
	assert.Equal(t, entity.DefaultCategory, res.Category)
}

type failingBackend struct {
	kind  entity.BackendKind
	panic bool
}

func (f failingBackend) Kind() entity.BackendKind { return f.kind }
func (f failingBackend) IsReady() bool            { return true }

func (f failingBackend) Generate(context.Context, entity.GenerationRequest) entity.GenerationResult {
	if f.panic {
		panic("inference engine crashed")
	}
	return generation.DegradedResult(f.kind)
}

func (f failingBackend) StreamGenerate(ctx context.Context, req entity.GenerationRequest) <-chan string {
	return generation.StreamWords(ctx, f.Generate(ctx, req).Text, 0)
}

func TestProcessQuery_AllBackendsDisabled(t *testing.T) {
	chain := mockChain(t, "local",
		failingBackend{kind: entity.BackendLocal},
		failingBackend{kind: entity.BackendRemote, panic: true},
	)
	f := newFixture(t, chain, true)

	res := f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "혈압 관리 방법"})

	assert.True(t, res.Degraded)
	assert.Equal(t, entity.BackendMock, res.BackendUsed)
	assert.NotEmpty(t, res.Response)
}

func TestProcessQuery_GeneratorPanics(t *testing.T) {
	f := newFixture(t, failingBackend{kind: entity.BackendLocal, panic: true}, true)

	res := f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "혈압 관리 방법"})

	assert.True(t, res.Degraded)
	assert.Equal(t, generation.Apology, res.Response)
}

// crashingChain panics in Generate but keeps the chain's mock fallback
type crashingChain struct {
	*generation.Chain
}

func (crashingChain) Generate(context.Context, entity.GenerationRequest) entity.GenerationResult {
	panic("chain state corrupted")
}

func TestProcessQuery_GeneratorPanicUsesMockAnswer(t *testing.T) {
	f := newFixture(t, crashingChain{Chain: mockChain(t, "mock")}, true)

	res := f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "혈압 관리 방법"})

	assert.True(t, res.Degraded)
	assert.Equal(t, entity.BackendMock, res.BackendUsed)
	assert.NotEqual(t, generation.Apology, res.Response)
	assert.True(t, strings.HasPrefix(res.Response, "["), "mock answers start with the expert title")
}

type brokenEmbedder struct{}

func (brokenEmbedder) Encode(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("encoder gone")
}
func (brokenEmbedder) IsCapable() bool { return false }
func (brokenEmbedder) Dimension() int  { return 384 }
func (brokenEmbedder) Mode() string    { return "broken" }

func TestProcessQuery_RetrievalFailureIsNotAnError(t *testing.T) {
	f := newFixture(t, nil, true)
	f.pipeline.embedder = brokenEmbedder{}

	res := f.pipeline.ProcessQuery(context.Background(), entity.Query{Question: "혈압 관리 방법"})

	assert.Equal(t, 0, res.RetrievedCount)
	assert.Contains(t, res.Prompt, NoReferenceMarker)
	assert.NotEmpty(t, res.Response)
}

func TestStreamQuery_ChunksMatchResponse(t *testing.T) {
	f := newFixture(t, nil, true)

	res, chunks := f.pipeline.StreamQuery(context.Background(), entity.Query{Question: "부산 여행"})

	var sb strings.Builder
	for c := range chunks {
		sb.WriteString(c)
	}
	assert.Equal(t, res.Response, sb.String())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(config.PipelineConfig{}, config.GenerationConfig{}, nil, nil, nil, nil, zap.NewNop())
	assert.ErrorIs(t, err, entity.ErrPipelineNotConfigured)

	_, err = New(config.PipelineConfig{}, config.GenerationConfig{}, classifier.NewDefault(), nil, nil, nil, zap.NewNop())
	assert.ErrorIs(t, err, entity.ErrPipelineNotConfigured)

	p, err := New(config.PipelineConfig{}, config.GenerationConfig{}, nil, nil, nil, mockChain(t, "mock"), zap.NewNop())
	require.NoError(t, err)

	res := p.ProcessQuery(context.Background(), entity.Query{Question: "제주도"})
	assert.Equal(t, entity.DefaultCategory, res.Category)
	assert.Equal(t, 0, res.RetrievedCount)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil, true)

	status := f.pipeline.Status()

	assert.Equal(t, "degraded:sha256", status.EmbeddingMode)
	assert.Equal(t, 384, status.EmbeddingDimension)
	assert.Equal(t, config.IndexBackendFlat, status.IndexBackend)
	assert.Equal(t, len(sampleDocs), status.IndexSize)
	assert.Equal(t, entity.BackendMock, status.ActiveBackend)
	assert.True(t, status.FallbackEnabled)
	assert.Len(t, status.Backends, 3)
}
