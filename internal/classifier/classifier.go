package classifier

import (
	"strings"

	"github.com/futig/advisor-backend/internal/entity"
)

// Keywords holds the static keyword table per category
type Keywords map[entity.Category][]string

// DefaultKeywords is the built-in keyword table
var DefaultKeywords = Keywords{
	entity.CategoryHealth: {
		"건강", "병원", "의사", "치료", "약", "증상", "아픔", "아프", "진료", "검진",
		"혈압", "당뇨", "콜레스테롤", "운동", "다이어트", "영양", "비타민", "감기",
		"두통", "복통", "발열", "기침", "몸살", "피로", "스트레스", "수면", "불면증",
	},
	entity.CategoryTravel: {
		"여행", "관광", "휴가", "여행지", "숙박", "호텔", "펜션", "항공", "기차", "버스",
		"제주도", "부산", "경주", "강릉", "전주", "해외여행", "국내여행", "패키지",
		"자유여행", "맛집", "카페", "박물관", "놀이공원", "해변", "산", "등산",
	},
	entity.CategoryInvestment: {
		"투자", "주식", "펀드", "적금", "예금", "부동산", "재테크", "금융", "은행",
		"수익", "손실", "배당", "이자", "대출", "보험", "연금", "퇴직", "노후",
		"세금", "절세", "ISA", "IRP", "연말정산", "cryptocurrency", "비트코인",
	},
	entity.CategoryLegal: {
		"법률", "변호사", "소송", "계약", "상속", "유언", "이혼", "재산분할", "양육비",
		"임대차", "전세", "월세", "부동산계약", "매매", "사기", "피해", "손해배상",
		"교통사고", "의료사고", "노동", "해고", "퇴직금", "임금", "근로계약",
	},
}

// Classifier assigns a category by counting keyword hits.
// A category wins only with a strictly highest count; no hits or a tie
// for the maximum yields the default category.
type Classifier struct {
	keywords Keywords
	fallback entity.Category
}

func New(keywords Keywords) *Classifier {
	lowered := make(Keywords, len(keywords))
	for category, words := range keywords {
		out := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				out = append(out, w)
			}
		}
		lowered[category] = out
	}

	return &Classifier{
		keywords: lowered,
		fallback: entity.DefaultCategory,
	}
}

// NewDefault creates a classifier over the built-in keyword table
func NewDefault() *Classifier {
	return New(DefaultKeywords)
}

// Scores returns the number of matching keywords per category
func (c *Classifier) Scores(text string) map[entity.Category]int {
	lowered := strings.ToLower(text)
	scores := make(map[entity.Category]int, len(c.keywords))
	for category, words := range c.keywords {
		score := 0
		for _, w := range words {
			if strings.Contains(lowered, w) {
				score++
			}
		}
		scores[category] = score
	}
	return scores
}

func (c *Classifier) Classify(text string) entity.Category {
	if strings.TrimSpace(text) == "" {
		return c.fallback
	}

	best := c.fallback
	bestScore := 0
	tied := false
	for category, score := range c.Scores(text) {
		switch {
		case score > bestScore:
			best, bestScore, tied = category, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	if bestScore == 0 || tied {
		return c.fallback
	}
	return best
}
