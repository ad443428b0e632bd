package entity

import (
	"time"

	"github.com/google/uuid"
)

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

// QueryRecord is a persisted question/answer pair
type QueryRecord struct {
	ID             uuid.UUID
	UserID         string
	Question       string
	Response       string
	Category       Category
	Sources        []RetrievalResult
	RetrievedCount int
	Degraded       bool
	BackendUsed    BackendKind
	ProcessingTime time.Duration
	CreatedAt      time.Time
}

type FeedbackRecord struct {
	ID        uuid.UUID
	QueryID   uuid.UUID
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Answer is a pipeline result together with its history id.
// QueryID is uuid.Nil when the answer was not persisted.
type Answer struct {
	QueryID uuid.UUID
	Result  PipelineResult
}

// ExportFile is a rendered history export ready for download
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
