// Package knowledge holds the static advice snippets and per-category
// wording shared by the mock backend, the seed data and the prompt builder.
package knowledge

import (
	"strings"

	"github.com/futig/advisor-backend/internal/entity"
)

// QuestionLabel prefixes the user question inside a composed prompt
const QuestionLabel = "사용자 질문:"

// Topic is a keyword with the canned snippets answering it
type Topic struct {
	Keyword  string
	Snippets []string
}

// Base lists topics per category in matching order
var Base = map[entity.Category][]Topic{
	entity.CategoryHealth: {
		{Keyword: "운동", Snippets: []string{
			"중장년층에게 권장하는 운동은 걷기, 수영, 요가, 태극권입니다. 주 3-4회, 30분씩 꾸준히 하는 것이 중요해요.",
			"무릎에 부담이 적은 수중운동이나 실버체조를 추천해요. 운동 전후 스트레칭은 필수입니다.",
			"계단 오르기, 가벼운 근력운동도 좋아요. 본인의 체력에 맞춰 점진적으로 강도를 높이세요.",
		}},
		{Keyword: "식단", Snippets: []string{
			"균형 잡힌 식단이 중요해요. 야채, 과일, 단백질을 골고루 섭취하시고, 나트륨 섭취는 줄이세요.",
			"칼슘과 비타민D가 풍부한 음식을 드세요. 멸치, 두부, 달걀 등이 좋습니다.",
			"하루 8잔 이상 충분한 수분 섭취를 하시고, 과도한 음주는 피하세요.",
		}},
		{Keyword: "혈압", Snippets: []string{
			"정기적인 혈압 측정이 중요해요. 가정용 혈압계로 매일 같은 시간에 측정하세요.",
			"저염식, 금연, 절주, 규칙적인 운동이 혈압 관리에 도움이 됩니다.",
			"스트레스 관리도 중요해요. 명상이나 취미활동으로 마음의 안정을 찾으세요.",
		}},
		{Keyword: "건강검진", Snippets: []string{
			"년 1-2회 정기 건강검진을 받으세요. 국가건강검진을 꼭 활용하시구요.",
			"40세 이후엔 위내시경, 대장내시경도 정기적으로 받는 것이 좋습니다.",
			"혈당, 콜레스테롤, 혈압 등 기본 수치는 주기적으로 확인하세요.",
		}},
	},
	entity.CategoryTravel: {
		{Keyword: "제주도", Snippets: []string{
			"제주도는 중장년층께 최고의 여행지예요! 한라산 둘레길, 올레길을 편안하게 걸으실 수 있어요.",
			"성산일출봉, 우도, 만장굴 등을 여유롭게 둘러보세요. 렌터카보다는 관광버스 투어를 추천해요.",
			"제주 흑돼지, 갈치조림, 전복죽 등 맛있는 음식도 놓치지 마세요!",
		}},
		{Keyword: "부산", Snippets: []string{
			"부산은 바다와 온천을 함께 즐길 수 있어요. 해운대, 광안리에서 산책하시고 동래온천에서 휴식을!",
			"감천문화마을, 태종대, 용두산공원은 꼭 가보세요. 지하철로 이동이 편리해요.",
			"자갈치시장에서 신선한 해산물을 드시고, 부산국제영화제 거리도 구경하세요.",
		}},
		{Keyword: "경주", Snippets: []string{
			"경주는 역사와 문화를 체험할 수 있는 최고의 여행지예요. 불국사, 석굴암은 필수 코스입니다.",
			"천마총, 첨성대, 안압지를 천천히 둘러보세요. 걷기 편한 신발을 꼭 준비하세요.",
			"경주 한정식과 황남빵도 맛보시고, 보문관광단지에서 숙박하시면 편리해요.",
		}},
		{Keyword: "준비물", Snippets: []string{
			"편한 신발이 가장 중요해요. 상비약, 개인 의료용품도 꼭 챙기세요.",
			"여행자보험 가입을 권해드리고, 만성질환이 있으시면 충분한 약물을 준비하세요.",
			"날씨에 맞는 옷차림과 우산, 선크림도 필수입니다.",
		}},
	},
	entity.CategoryInvestment: {
		{Keyword: "안전투자", Snippets: []string{
			"중장년층께는 안전성이 최우선이에요. 예금, 적금, 국채 등 원금보장 상품을 기본으로 하세요.",
			"투자 비중은 나이에 따라 조절하세요. 60세라면 주식 40%, 채권 60% 정도가 적당해요.",
			"절대 고수익을 약속하는 투자는 피하세요. '원금보장'이라는 말도 의심해보세요.",
		}},
		{Keyword: "연금", Snippets: []string{
			"국민연금 외에 개인연금(IRP, 연금저축)도 고려해보세요. 세제혜택이 있어요.",
			"은퇴 후 생활비를 미리 계산해서 필요한 연금액을 준비하세요.",
			"연금 수령 시기와 방법도 미리 계획하는 것이 좋습니다.",
		}},
		{Keyword: "재테크", Snippets: []string{
			"분산투자의 원칙을 지키세요. 한 곳에 모든 돈을 투자하면 위험해요.",
			"투자 전에 상품을 완전히 이해하고, 본인의 위험감수능력을 정확히 파악하세요.",
			"정기적으로 포트폴리오를 점검하고 리밸런싱하는 것이 중요해요.",
		}},
		{Keyword: "부동산", Snippets: []string{
			"부동산 투자 시 입지, 교통, 개발계획 등을 꼼꼼히 확인하세요.",
			"대출 투자는 신중하게! 이자 부담과 리스크를 충분히 고려하세요.",
			"세금, 관리비, 중개수수료 등 부대비용도 미리 계산해두세요.",
		}},
	},
	entity.CategoryLegal: {
		{Keyword: "계약", Snippets: []string{
			"계약서의 모든 조항을 꼼꼼히 읽어보세요. 이해되지 않는 부분은 반드시 질문하세요.",
			"중요한 계약은 가족과 상의하고, 필요시 변호사의 도움을 받으세요.",
			"계약 해지 조건, 위약금, 쿨링오프 기간 등을 확인하세요.",
		}},
		{Keyword: "상속", Snippets: []string{
			"상속은 미리 준비하는 것이 좋아요. 유언장 작성과 재산 정리를 해두세요.",
			"상속세 절약 방법과 가족 간 분쟁 방지를 위해 전문가와 상담하세요.",
			"부동산, 금융자산, 부채 등을 명확히 정리해두세요.",
		}},
		{Keyword: "소비자", Snippets: []string{
			"전화 권유 판매, 방문 판매는 특히 주의하세요. 쿨링오프 제도를 활용하세요.",
			"피해를 당했다면 소비자분쟁조정위원회나 소비자보호원에 신고하세요.",
			"계약 전에 사업자등록증, 약관을 확인하고 계약서 사본을 받으세요.",
		}},
		{Keyword: "사기예방", Snippets: []string{
			"높은 수익을 보장한다는 투자 권유는 대부분 사기예요. 절대 현혹되지 마세요.",
			"개인정보, 금융정보를 함부로 알려주지 마세요. 공인인증서 관리도 주의하세요.",
			"의심스러우면 가족, 전문가와 상의하고, 경찰서나 금융감독원에 신고하세요.",
		}},
	},
}

var defaultAnswers = map[entity.Category]string{
	entity.CategoryHealth:     "건강 관련 질문을 더 구체적으로 말씀해 주시면 맞춤 정보를 제공해드릴 수 있어요. 운동, 식단, 건강검진 등에 대해 물어보세요!",
	entity.CategoryTravel:     "어떤 여행지나 여행 스타일에 관심이 있으신가요? 제주도, 부산, 경주 등 구체적인 지역이나 준비물에 대해 질문해보세요!",
	entity.CategoryInvestment: "투자 관련 구체적인 질문을 해주세요. 안전한 투자, 연금, 부동산 등에 대해 일반적인 정보를 제공해드릴 수 있어요.",
	entity.CategoryLegal:      "법률 관련 질문을 더 구체적으로 해주세요. 계약, 상속, 소비자 보호 등에 대한 기본 정보를 알려드릴 수 있어요.",
}

var expertTitles = map[entity.Category]string{
	entity.CategoryHealth:     "건강 전문 상담사",
	entity.CategoryTravel:     "여행 전문 가이드",
	entity.CategoryInvestment: "투자 상담 전문가",
	entity.CategoryLegal:      "법률 정보 전문가",
}

var disclaimers = map[entity.Category]string{
	entity.CategoryHealth:     "※ 구체적인 건강 문제는 반드시 전문의와 상담하세요.",
	entity.CategoryTravel:     "※ 여행 전 최신 정보를 확인하고 안전에 주의하세요.",
	entity.CategoryInvestment: "※ 투자에는 위험이 따르므로 전문가와 상담 후 결정하세요.",
	entity.CategoryLegal:      "※ 법률 문제는 변호사나 법무사와 상담하시기 바랍니다.",
}

var suggestions = map[entity.Category]string{
	entity.CategoryHealth:     "다른 건강 관련 질문: 혈압 관리, 당뇨 예방, 건강한 식단, 운동법",
	entity.CategoryTravel:     "다른 여행 관련 질문: 여행지 추천, 준비물, 숙박, 교통편",
	entity.CategoryInvestment: "다른 투자 관련 질문: 연금 준비, 안전한 투자, 부동산, 세금",
	entity.CategoryLegal:      "다른 법률 관련 질문: 계약서 작성, 상속 준비, 사기 예방, 소비자 권익",
}

// MatchTopic returns the first topic of category whose keyword occurs in text
func MatchTopic(category entity.Category, text string) (Topic, bool) {
	lowered := strings.ToLower(text)
	for _, topic := range Base[category] {
		if strings.Contains(lowered, topic.Keyword) {
			return topic, true
		}
	}
	return Topic{}, false
}

// QuestionOf extracts the user question from a composed prompt. A prompt
// without the label is returned trimmed as is.
func QuestionOf(prompt string) string {
	i := strings.LastIndex(prompt, QuestionLabel)
	if i < 0 {
		return strings.TrimSpace(prompt)
	}

	q := prompt[i+len(QuestionLabel):]
	if j := strings.IndexByte(q, '\n'); j >= 0 {
		q = q[:j]
	}
	return strings.TrimSpace(q)
}

func DefaultAnswer(c entity.Category) string {
	if s, ok := defaultAnswers[c]; ok {
		return s
	}
	return defaultAnswers[entity.DefaultCategory]
}

func ExpertTitle(c entity.Category) string {
	if s, ok := expertTitles[c]; ok {
		return s
	}
	return expertTitles[entity.DefaultCategory]
}

func Disclaimer(c entity.Category) string {
	if s, ok := disclaimers[c]; ok {
		return s
	}
	return disclaimers[entity.DefaultCategory]
}

// Suggestion is the follow-up question hint shown after an answer
func Suggestion(c entity.Category) string {
	if s, ok := suggestions[c]; ok {
		return s
	}
	return suggestions[entity.DefaultCategory]
}
