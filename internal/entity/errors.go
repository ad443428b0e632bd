package entity

import "errors"

// Domain errors
var (
	// Retrieval errors
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrLengthMismatch    = errors.New("vectors and documents length mismatch")
	ErrEmptyVector       = errors.New("empty vector")

	// Generation errors
	ErrBackendNotReady    = errors.New("generation backend is not ready")
	ErrBackendUnavailable = errors.New("generation backend unavailable")
	ErrEmptyCompletion    = errors.New("empty completion")
	ErrUnknownBackend     = errors.New("unknown generation backend")

	// Embedding errors
	ErrEncoderUnavailable = errors.New("embedding encoder unavailable")

	// Pipeline errors
	ErrPipelineNotConfigured = errors.New("pipeline has no usable components")

	// History errors
	ErrQueryNotFound      = errors.New("query not found")
	ErrHistoryUnavailable = errors.New("history persistence is disabled")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrNothingToExport    = errors.New("no history to export")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrQuestionTooLong  = errors.New("question is too long")
)
