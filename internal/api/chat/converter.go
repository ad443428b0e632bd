package chat

import (
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/google/uuid"
)

func toChatResponse(answer *entity.Answer) *entity.ChatResponse {
	res := answer.Result
	resp := &entity.ChatResponse{
		Response:               res.Response,
		Category:               res.Category,
		RetrievedCount:         res.RetrievedCount,
		UsingCapableEmbeddings: res.UsingCapableEmbeddings,
		Degraded:               res.Degraded,
		BackendUsed:            res.BackendUsed,
		Sources:                toSourceDTOs(res.Sources),
		Suggestion:             res.Suggestion,
		ProcessingTimeMs:       res.ProcessingTime.Milliseconds(),
	}
	if answer.QueryID != uuid.Nil {
		resp.QueryID = answer.QueryID.String()
	}
	return resp
}

func toStreamMeta(answer *entity.Answer) *entity.StreamMeta {
	res := answer.Result
	meta := &entity.StreamMeta{
		Category:               res.Category,
		RetrievedCount:         res.RetrievedCount,
		UsingCapableEmbeddings: res.UsingCapableEmbeddings,
		Degraded:               res.Degraded,
		BackendUsed:            res.BackendUsed,
		Sources:                toSourceDTOs(res.Sources),
		Suggestion:             res.Suggestion,
	}
	if answer.QueryID != uuid.Nil {
		meta.QueryID = answer.QueryID.String()
	}
	return meta
}

func toSourceDTOs(sources []entity.RetrievalResult) []entity.SourceDTO {
	out := make([]entity.SourceDTO, len(sources))
	for i, s := range sources {
		out[i] = entity.SourceDTO{
			Rank:     s.Rank,
			Text:     s.Text,
			Score:    s.Score,
			Category: s.Category,
			Topic:    s.Topic,
		}
	}
	return out
}

func toFeedbackResponse(f *entity.FeedbackRecord) *entity.FeedbackResponse {
	return &entity.FeedbackResponse{
		ID:      f.ID.String(),
		QueryID: f.QueryID.String(),
		Rating:  f.Rating,
	}
}

func toHistoryResponse(userID string, records []entity.QueryRecord) *entity.HistoryResponse {
	items := make([]entity.HistoryItemDTO, len(records))
	for i, r := range records {
		items[i] = entity.HistoryItemDTO{
			ID:             r.ID.String(),
			Question:       r.Question,
			Response:       r.Response,
			Category:       r.Category,
			RetrievedCount: r.RetrievedCount,
			Degraded:       r.Degraded,
			BackendUsed:    r.BackendUsed,
			CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		}
	}
	return &entity.HistoryResponse{UserID: userID, Items: items}
}
