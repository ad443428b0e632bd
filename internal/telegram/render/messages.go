package render

import (
	"fmt"
	"strings"

	"github.com/futig/advisor-backend/internal/entity"
)

const (
	MsgWelcome = `👋 안녕하세요! 건강, 여행, 투자, 법률 분야의 질문에 답해 드리는 AI 상담사입니다.

질문을 그대로 보내 주시면 분야를 자동으로 분류해서 답변해 드려요.
특정 분야로 고정하고 싶다면 아래에서 선택해 주세요.`

	MsgHelp = `🤖 사용 방법

/start - 분야 선택 화면 보기
/auto - 분야 고정 해제 (자동 분류)
/help - 도움말 보기

질문을 메시지로 보내면 답변과 함께 참고 자료 수가 표시됩니다.
답변 아래의 별점으로 평가를 남길 수 있어요.`

	MsgAuto          = "🔎 이제 질문 내용에 따라 분야를 자동으로 분류합니다."
	MsgCategoryFixed = "📌 %s 분야로 고정했습니다. 질문을 보내 주세요."
	MsgThanks        = "감사합니다! 평가가 저장되었습니다."

	ErrGeneric         = "❌ 문제가 발생했습니다. 잠시 후 다시 시도하거나 /start 를 눌러 주세요."
	ErrRateLimited     = "⚠️ 요청이 너무 많습니다. 잠시 후 다시 시도해 주세요."
	ErrUnknownCommand  = "❌ 알 수 없는 명령어입니다. /help 를 확인해 주세요."
	ErrEmptyQuestion   = "질문을 텍스트로 보내 주세요."
	ErrQuestionTooLong = "질문이 너무 깁니다. 조금 더 짧게 보내 주세요."
	ErrFeedbackFailed  = "평가를 저장하지 못했습니다."
)

// CategoryFixed confirms a pinned category
func CategoryFixed(c entity.Category) string {
	return fmt.Sprintf(MsgCategoryFixed, c.Info().Name)
}

// Answer formats a pipeline result for a chat message
func Answer(res entity.PipelineResult) string {
	var b strings.Builder

	b.WriteString(res.Response)
	fmt.Fprintf(&b, "\n\n📂 %s · 참고 자료 %d건", res.Category.Info().Name, res.RetrievedCount)
	if res.Degraded {
		b.WriteString(" · ⚠️ 제한 모드")
	}
	if res.Suggestion != "" {
		fmt.Fprintf(&b, "\n💡 %s", res.Suggestion)
	}

	return b.String()
}
