package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/google/uuid"
)

const (
	minRating = 1
	maxRating = 5

	maxUserIDLength  = 128
	maxCommentLength = 2000
)

// Validator checks user input before it reaches the pipeline
type Validator struct {
	cfg config.APIConfig
}

func New(cfg config.APIConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateChat checks a chat request and returns the parsed category,
// empty when the category should be inferred
func (v *Validator) ValidateChat(req *entity.ChatRequest) (entity.Category, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", fmt.Errorf("%w: question", entity.ErrMissingField)
	}
	if n := utf8.RuneCountInString(question); n > v.cfg.MaxQuestionLength {
		return "", fmt.Errorf("%w: question is %d characters (max %d)", entity.ErrQuestionTooLong, n, v.cfg.MaxQuestionLength)
	}
	if len(req.UserID) > maxUserIDLength {
		return "", fmt.Errorf("%w: user_id is too long", entity.ErrInvalidParameter)
	}

	if strings.TrimSpace(req.Category) == "" {
		return "", nil
	}
	return entity.ParseCategory(req.Category)
}

// ValidateFeedback checks a feedback request and returns the parsed query id
func (v *Validator) ValidateFeedback(req *entity.FeedbackRequest) (uuid.UUID, error) {
	if req.QueryID == "" {
		return uuid.Nil, fmt.Errorf("%w: query_id", entity.ErrMissingField)
	}
	queryID, err := uuid.Parse(req.QueryID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: query_id must be a UUID", entity.ErrInvalidFormat)
	}
	if req.Rating < minRating || req.Rating > maxRating {
		return uuid.Nil, fmt.Errorf("%w: rating must be between %d and %d, got %d", entity.ErrInvalidParameter, minRating, maxRating, req.Rating)
	}
	if len(req.UserID) > maxUserIDLength {
		return uuid.Nil, fmt.Errorf("%w: user_id is too long", entity.ErrInvalidParameter)
	}
	if utf8.RuneCountInString(req.Comment) > maxCommentLength {
		return uuid.Nil, fmt.Errorf("%w: comment is longer than %d characters", entity.ErrInvalidParameter, maxCommentLength)
	}

	return queryID, nil
}

// ValidateUserID requires a non-empty user id for history lookups
func (v *Validator) ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id", entity.ErrMissingField)
	}
	if len(userID) > maxUserIDLength {
		return fmt.Errorf("%w: user_id is too long", entity.ErrInvalidParameter)
	}
	return nil
}

// HistoryLimit resolves the requested page size; zero means the default
func (v *Validator) HistoryLimit(limit int) (int, error) {
	if limit == 0 {
		return v.cfg.HistoryLimit, nil
	}
	if limit < 1 || limit > v.cfg.MaxHistoryLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d, got %d", entity.ErrInvalidParameter, v.cfg.MaxHistoryLimit, limit)
	}
	return limit, nil
}

// ExportFormat parses the format query parameter; empty means markdown
func (v *Validator) ExportFormat(raw string) (entity.ResultFormat, error) {
	if raw == "" {
		return entity.FormatMarkdown, nil
	}
	format := entity.ResultFormat(strings.ToLower(raw))
	if !format.IsValid() {
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, raw)
	}
	return format, nil
}
