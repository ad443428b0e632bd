package generation

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	kind     entity.BackendKind
	ready    bool
	text     string
	degraded bool
	panics   bool
	calls    atomic.Int32
}

func (f *fakeBackend) Kind() entity.BackendKind { return f.kind }
func (f *fakeBackend) IsReady() bool            { return f.ready }

func (f *fakeBackend) Generate(_ context.Context, _ entity.GenerationRequest) entity.GenerationResult {
	f.calls.Add(1)
	if f.panics {
		panic("backend exploded")
	}
	if f.degraded {
		return DegradedResult(f.kind)
	}
	return entity.GenerationResult{Text: f.text, BackendUsed: f.kind}
}

func (f *fakeBackend) StreamGenerate(ctx context.Context, req entity.GenerationRequest) <-chan string {
	return StreamWords(ctx, f.Generate(ctx, req).Text, 0)
}

func newChain(t *testing.T, backend string, fallback bool, backends ...*fakeBackend) (*Chain, *fakeBackend) {
	t.Helper()

	mock := &fakeBackend{kind: entity.BackendMock, ready: true, text: "mock answer"}

	var configured []entity.BackendKind
	var list []Backend
	for _, b := range backends {
		configured = append(configured, b.kind)
		list = append(list, b)
	}

	selector, err := NewSelector(config.GenerationConfig{Backend: backend, FallbackEnabled: fallback}, configured...)
	require.NoError(t, err)

	return NewChain(selector, mock, 0, zap.NewNop(), list...), mock
}

func TestChain_PrimaryAnswers(t *testing.T) {
	local := &fakeBackend{kind: entity.BackendLocal, ready: true, text: "local answer"}
	remote := &fakeBackend{kind: entity.BackendRemote, ready: true, text: "remote answer"}
	chain, _ := newChain(t, "local", true, local, remote)

	res := chain.Generate(context.Background(), entity.GenerationRequest{Prompt: "p"})

	assert.Equal(t, "local answer", res.Text)
	assert.Equal(t, entity.BackendLocal, res.BackendUsed)
	assert.False(t, res.Degraded)
	assert.Zero(t, remote.calls.Load())
}

func TestChain_FallsBackToRemote(t *testing.T) {
	local := &fakeBackend{kind: entity.BackendLocal, ready: true, degraded: true}
	remote := &fakeBackend{kind: entity.BackendRemote, ready: true, text: "remote answer"}
	chain, _ := newChain(t, "local", true, local, remote)

	res := chain.Generate(context.Background(), entity.GenerationRequest{Prompt: "p"})

	assert.Equal(t, "remote answer", res.Text)
	assert.Equal(t, entity.BackendRemote, res.BackendUsed)
	assert.False(t, res.Degraded)
}

func TestChain_SkipsNotReadyAndRecoversPanics(t *testing.T) {
	local := &fakeBackend{kind: entity.BackendLocal, ready: false}
	remote := &fakeBackend{kind: entity.BackendRemote, ready: true, panics: true}
	chain, mock := newChain(t, "local", true, local, remote)

	res := chain.Generate(context.Background(), entity.GenerationRequest{Prompt: "p"})

	assert.Zero(t, local.calls.Load())
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, "mock answer", res.Text)
	assert.Equal(t, entity.BackendMock, res.BackendUsed)
	assert.True(t, res.Degraded)
	assert.Equal(t, int32(1), mock.calls.Load())
}

func TestChain_ExhaustedWithoutFallbackUsesMock(t *testing.T) {
	local := &fakeBackend{kind: entity.BackendLocal, ready: true, degraded: true}
	remote := &fakeBackend{kind: entity.BackendRemote, ready: true, text: "unused"}
	chain, _ := newChain(t, "local", false, local, remote)

	res := chain.Generate(context.Background(), entity.GenerationRequest{Prompt: "p"})

	assert.Zero(t, remote.calls.Load())
	assert.Equal(t, "mock answer", res.Text)
	assert.True(t, res.Degraded)
}

func TestChain_MockAsPrimaryIsNotDegraded(t *testing.T) {
	chain, _ := newChain(t, "mock", true)

	res := chain.Generate(context.Background(), entity.GenerationRequest{Prompt: "p"})

	assert.Equal(t, entity.BackendMock, res.BackendUsed)
	assert.False(t, res.Degraded)
}

func TestChain_EverythingFails(t *testing.T) {
	local := &fakeBackend{kind: entity.BackendLocal, ready: true, panics: true}
	selector, err := NewSelector(config.GenerationConfig{Backend: "local", FallbackEnabled: true}, entity.BackendLocal)
	require.NoError(t, err)

	mock := &fakeBackend{kind: entity.BackendMock, ready: true, panics: true}
	chain := NewChain(selector, mock, 0, zap.NewNop(), local)

	res := chain.Generate(context.Background(), entity.GenerationRequest{Prompt: "p"})

	assert.Equal(t, Apology, res.Text)
	assert.True(t, res.Degraded)
}

func TestChain_FallbackSkipsPrimaryBackends(t *testing.T) {
	local := &fakeBackend{kind: entity.BackendLocal, ready: true, text: "local answer"}
	chain, mock := newChain(t, "local", true, local)

	res := chain.Fallback(context.Background(), entity.GenerationRequest{Prompt: "p"})

	assert.Equal(t, "mock answer", res.Text)
	assert.Equal(t, entity.BackendMock, res.BackendUsed)
	assert.True(t, res.Degraded)
	assert.Zero(t, local.calls.Load())
	assert.Equal(t, int32(1), mock.calls.Load())
}

func TestChain_StreamMatchesGenerate(t *testing.T) {
	remote := &fakeBackend{kind: entity.BackendRemote, ready: true, text: "하나 둘 셋"}
	chain, _ := newChain(t, "remote", true, remote)

	chunks := collect(chain.StreamGenerate(context.Background(), entity.GenerationRequest{Prompt: "p"}))
	assert.Equal(t, []string{"하나 ", "둘 ", "셋"}, chunks)
}

func TestChain_Statuses(t *testing.T) {
	local := &fakeBackend{kind: entity.BackendLocal, ready: false}
	chain, _ := newChain(t, "local", true, local)

	statuses := chain.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, entity.BackendStatus{Kind: entity.BackendLocal}, statuses[0])
	assert.Equal(t, entity.BackendStatus{Kind: entity.BackendRemote, Detail: "not configured"}, statuses[1])
	assert.True(t, statuses[2].Ready)
}
