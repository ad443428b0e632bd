package entity

import "time"

// Query is a single question entering the pipeline
type Query struct {
	Question string
	// Category is empty when the caller wants automatic classification
	Category Category
	UserID   string
}

// PipelineResult is the externally visible outcome of one query
type PipelineResult struct {
	Response               string            `json:"response"`
	Category               Category          `json:"category"`
	RetrievedCount         int               `json:"retrieved_count"`
	UsingCapableEmbeddings bool              `json:"using_capable_embeddings"`
	Degraded               bool              `json:"degraded"`
	BackendUsed            BackendKind       `json:"backend_used"`
	Sources                []RetrievalResult `json:"sources"`
	Suggestion             string            `json:"suggestion,omitempty"`
	ProcessingTime         time.Duration     `json:"-"`
	Prompt                 string            `json:"-"`
}

// ComponentStatus is a snapshot of the pipeline collaborators
type ComponentStatus struct {
	EmbeddingMode      string          `json:"embedding_mode"`
	EmbeddingDimension int             `json:"embedding_dimension"`
	CapableEmbeddings  bool            `json:"using_capable_embeddings"`
	IndexBackend       string          `json:"index_backend"`
	IndexSize          int             `json:"index_size"`
	ActiveBackend      BackendKind     `json:"active_backend"`
	FallbackEnabled    bool            `json:"fallback_enabled"`
	Backends           []BackendStatus `json:"backends"`
	PersistenceEnabled bool            `json:"persistence_enabled"`
}
