package entity

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ChatRequest struct {
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

type ChatResponse struct {
	QueryID                string      `json:"query_id,omitempty"`
	Response               string      `json:"response"`
	Category               Category    `json:"category"`
	RetrievedCount         int         `json:"retrieved_count"`
	UsingCapableEmbeddings bool        `json:"using_capable_embeddings"`
	Degraded               bool        `json:"degraded"`
	BackendUsed            BackendKind `json:"backend_used"`
	Sources                []SourceDTO `json:"sources"`
	Suggestion             string      `json:"suggestion,omitempty"`
	ProcessingTimeMs       int64       `json:"processing_time_ms"`
}

type SourceDTO struct {
	Rank     int      `json:"rank"`
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
	Category Category `json:"category"`
	Topic    string   `json:"topic,omitempty"`
}

// StreamMeta is the first server-sent event of a streamed answer
type StreamMeta struct {
	QueryID                string      `json:"query_id,omitempty"`
	Category               Category    `json:"category"`
	RetrievedCount         int         `json:"retrieved_count"`
	UsingCapableEmbeddings bool        `json:"using_capable_embeddings"`
	Degraded               bool        `json:"degraded"`
	BackendUsed            BackendKind `json:"backend_used"`
	Sources                []SourceDTO `json:"sources"`
	Suggestion             string      `json:"suggestion,omitempty"`
}

// StreamDone is the terminating server-sent event
type StreamDone struct {
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type StreamChunk struct {
	Text string `json:"text"`
}

type FeedbackRequest struct {
	QueryID string `json:"query_id"`
	UserID  string `json:"user_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type FeedbackResponse struct {
	ID      string `json:"id"`
	QueryID string `json:"query_id"`
	Rating  int    `json:"rating"`
}

type HistoryItemDTO struct {
	ID             string      `json:"id"`
	Question       string      `json:"question"`
	Response       string      `json:"response"`
	Category       Category    `json:"category"`
	RetrievedCount int         `json:"retrieved_count"`
	Degraded       bool        `json:"degraded"`
	BackendUsed    BackendKind `json:"backend_used"`
	CreatedAt      string      `json:"created_at"`
}

type HistoryResponse struct {
	UserID string           `json:"user_id"`
	Items  []HistoryItemDTO `json:"items"`
}
