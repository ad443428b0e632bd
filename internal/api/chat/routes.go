package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the advisor API routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/chat/stream", h.ChatStream)
		r.Get("/categories", h.Categories)
		r.Get("/status", h.Status)
		r.Post("/model/reload", h.ReloadModel)
		r.Post("/feedback", h.SubmitFeedback)
		r.Get("/history", h.History)
		r.Get("/history/export", h.ExportHistory)
	})
}
