package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Generation.
	r.Post("/generate", h.Generate)
	r.Post("/classify", h.Classify)

	// History CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.SaveDocument)
	r.Post("/documents/import", h.ImportDocuments)
	r.Get("/documents/export", h.ExportDocuments)
	r.Get("/documents/{id}", h.GetDocument)
	r.Put("/documents/{id}", h.UpdateDocument)
	r.Delete("/documents/{id}", h.DeleteDocument)
	r.Post("/documents/{id}/duplicate", h.DuplicateDocument)
	r.Post("/documents/{id}/favorite", h.ToggleFavorite)
	r.Post("/documents/{id}/rename", h.RenameDocument)

	// Work mode.
	r.Post("/work/session", h.StartSession)
	r.Get("/work/session", h.GetSession)
	r.Post("/work/derive", h.Derive)
	r.Post("/work/chat", h.Chat)
	r.Get("/work/chat", h.ChatHistory)
	r.Post("/work/chat/document", h.ChatToDocument)

	// Catalogue and settings.
	r.Get("/subjects", h.Subjects)
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Post("/settings/verify-key", h.VerifyKey)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
