package pipeline

import (
	"fmt"
	"strings"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/knowledge"
)

const (
	referenceHeader = "참고 정보:"
	answerLabel     = "답변:"

	// NoReferenceMarker replaces the reference block when nothing was retrieved
	NoReferenceMarker = referenceHeader + " 관련 참고 자료가 없습니다."
)

var systemInstructions = map[entity.Category]string{
	entity.CategoryHealth: `당신은 중장년층을 위한 건강 상담 전문 AI입니다.
안전하고 신뢰할 수 있는 건강 정보를 제공하되, 의학적 진단은 하지 마세요.
항상 전문의 상담을 권하고, 이해하기 쉽게 설명해주세요.`,

	entity.CategoryTravel: `당신은 중장년층을 위한 여행 상담 전문 AI입니다.
안전하고 편안한 여행을 위한 실용적인 조언을 제공해주세요.
국내외 여행지 정보와 준비사항을 친절하게 안내해주세요.`,

	entity.CategoryInvestment: `당신은 중장년층을 위한 투자 상담 전문 AI입니다.
안전하고 보수적인 투자 방법을 우선으로 조언하고,
리스크를 충분히 설명하며 전문가 상담을 권해주세요.`,

	entity.CategoryLegal: `당신은 중장년층을 위한 법률 상담 전문 AI입니다.
일반적인 법률 정보를 제공하되, 구체적인 법적 조언은 하지 마세요.
항상 변호사 상담을 권하고, 이해하기 쉽게 설명해주세요.`,
}

// SystemInstruction returns the instruction block for c, or the default
// category's block when c is unknown
func SystemInstruction(c entity.Category) string {
	if s, ok := systemInstructions[c]; ok {
		return s
	}
	return systemInstructions[entity.DefaultCategory]
}

// ComposePrompt lays out instruction, numbered references and question
func ComposePrompt(category entity.Category, question string, sources []entity.RetrievalResult) string {
	var sb strings.Builder

	sb.WriteString(SystemInstruction(category))
	sb.WriteString("\n\n")

	if len(sources) == 0 {
		sb.WriteString(NoReferenceMarker)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(referenceHeader)
		sb.WriteString("\n")
		for i, s := range sources {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.TrimSpace(s.Text))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(knowledge.QuestionLabel)
	sb.WriteString(" ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\n")
	sb.WriteString(answerLabel)

	return sb.String()
}
