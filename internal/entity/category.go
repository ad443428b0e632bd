package entity

import (
	"fmt"
	"strings"
)

// Category is the closed set of advice domains a question is routed to
type Category string

const (
	CategoryHealth     Category = "health"
	CategoryTravel     Category = "travel"
	CategoryInvestment Category = "investment"
	CategoryLegal      Category = "legal"

	// DefaultCategory is used whenever classification is ambiguous
	DefaultCategory = CategoryHealth
)

// Categories lists every category in registration order
var Categories = []Category{
	CategoryHealth,
	CategoryTravel,
	CategoryInvestment,
	CategoryLegal,
}

func (c Category) Validate() error {
	switch c {
	case CategoryHealth, CategoryTravel, CategoryInvestment, CategoryLegal:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCategory, c)
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory normalizes user input into a Category
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

type CategoryInfo struct {
	ID          Category `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

var categoryInfos = map[Category]CategoryInfo{
	CategoryHealth:     {ID: CategoryHealth, Name: "건강 상담", Description: "건강 관리 및 의료 정보"},
	CategoryTravel:     {ID: CategoryTravel, Name: "여행 상담", Description: "여행 계획 및 정보"},
	CategoryInvestment: {ID: CategoryInvestment, Name: "투자 상담", Description: "투자 및 재테크 정보"},
	CategoryLegal:      {ID: CategoryLegal, Name: "법률 상담", Description: "법률 상담 및 정보"},
}

// CategoryInfos returns display metadata for all categories
func CategoryInfos() []CategoryInfo {
	infos := make([]CategoryInfo, 0, len(Categories))
	for _, c := range Categories {
		infos = append(infos, categoryInfos[c])
	}
	return infos
}

// Info returns display metadata, falling back to the default category
func (c Category) Info() CategoryInfo {
	if info, ok := categoryInfos[c]; ok {
		return info
	}
	return categoryInfos[DefaultCategory]
}
