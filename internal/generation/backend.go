package generation

import (
	"context"

	"github.com/futig/advisor-backend/internal/entity"
)

// Apology is returned as text whenever a backend cannot produce an answer
const Apology = "죄송합니다. 지금은 답변을 생성할 수 없습니다. 잠시 후 다시 시도해 주세요."

// Backend produces completions. Generate never returns an error: a failure
// is reported through GenerationResult.Degraded.
type Backend interface {
	Kind() entity.BackendKind
	IsReady() bool
	Generate(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult
	StreamGenerate(ctx context.Context, req entity.GenerationRequest) <-chan string
}

// Describer is implemented by backends that can explain their setup
type Describer interface {
	Describe() string
}

// DegradedResult is the apology answer of kind
func DegradedResult(kind entity.BackendKind) entity.GenerationResult {
	return entity.GenerationResult{
		Text:        Apology,
		BackendUsed: kind,
		Degraded:    true,
	}
}
