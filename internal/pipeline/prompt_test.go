package pipeline

import (
	"strings"
	"testing"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestComposePrompt_WithReferences(t *testing.T) {
	sources := []entity.RetrievalResult{
		{Text: "첫 번째 자료", Rank: 1},
		{Text: "두 번째 자료", Rank: 2},
	}

	prompt := ComposePrompt(entity.CategoryTravel, "제주도 여행 코스", sources)

	want := SystemInstruction(entity.CategoryTravel) + "\n\n" +
		"참고 정보:\n1. 첫 번째 자료\n2. 두 번째 자료\n\n" +
		"사용자 질문: 제주도 여행 코스\n\n답변:"
	assert.Equal(t, want, prompt)
	assert.NotContains(t, prompt, NoReferenceMarker)
}

func TestComposePrompt_NoReferences(t *testing.T) {
	prompt := ComposePrompt(entity.CategoryLegal, "상속 준비", nil)

	assert.Contains(t, prompt, NoReferenceMarker)
	assert.True(t, strings.HasSuffix(prompt, "사용자 질문: 상속 준비\n\n답변:"))
}

func TestSystemInstruction_UnknownCategoryUsesHealth(t *testing.T) {
	assert.Equal(t, SystemInstruction(entity.CategoryHealth), SystemInstruction("cooking"))
	for _, c := range entity.Categories {
		assert.NotEmpty(t, SystemInstruction(c))
	}
}
