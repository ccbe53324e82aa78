package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/fiche/internal/anthropic"
	"github.com/starford/fiche/internal/checksum"
	"github.com/starford/fiche/internal/fichesvc"
	"github.com/starford/fiche/internal/history"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/normalize"
	"github.com/starford/fiche/internal/sse"
	"github.com/starford/fiche/internal/worksession"
)

const maxBodyBytes = 50 << 20

// Defaults are the config-file fallbacks, applied when neither the
// request nor the stored settings name a value.
type Defaults struct {
	FontSize int
	Subject  models.Subject
}

// Handler holds API route handlers.
type Handler struct {
	svc      *fichesvc.Service
	engine   *worksession.Engine
	store    *history.Store
	client   *anthropic.Client
	broker   *sse.Broker
	defaults Defaults
}

// NewHandler creates a new Handler.
func NewHandler(svc *fichesvc.Service, engine *worksession.Engine, store *history.Store, client *anthropic.Client, broker *sse.Broker, defaults Defaults) *Handler {
	return &Handler{svc: svc, engine: engine, store: store, client: client, broker: broker, defaults: defaults}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListDocuments handles GET /api/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	favoritesOnly := r.URL.Query().Get("favorites") == "true"
	docs, err := h.store.List(favoritesOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// SaveDocument handles POST /api/documents.
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	if doc.ID == "" || doc.HTML == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id and html are required"))
		return
	}
	if doc.Date.IsZero() {
		doc.Date = time.Now()
	}
	if doc.Title == "" {
		doc.Title = normalize.ExtractTitle(doc.HTML)
	}
	if err := h.store.Save(doc); err != nil {
		writeError(w, err)
		return
	}
	h.broker.PublishDocumentEvent("created", doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", `"`+checksum.Sum([]byte(doc.HTML))+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// UpdateDocument handles PUT /api/documents/{id} with optimistic
// concurrency: when If-Match is present it must equal the checksum of the
// stored markup.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	existing, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	ifMatch := r.Header.Get("If-Match")
	if ifMatch != "" {
		ifMatch = trimQuotes(ifMatch)
		if ifMatch != checksum.Sum([]byte(existing.HTML)) {
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
			return
		}
	}

	title := normalize.ExtractTitle(req.HTML)
	if title == "Sans titre" {
		title = existing.Title
	}
	if err := h.store.UpdateHTML(id, req.HTML, title); err != nil {
		writeError(w, err)
		return
	}
	h.broker.PublishDocumentEvent("updated", id)

	doc, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// DeleteDocument handles DELETE /api/documents/{id}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	h.broker.PublishDocumentEvent("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateDocument handles POST /api/documents/{id}/duplicate.
func (h *Handler) DuplicateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dup, err := h.store.Duplicate(id, "fiche_"+uuid.NewString(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	h.broker.PublishDocumentEvent("created", dup.ID)
	writeJSON(w, http.StatusCreated, dup)
}

// ToggleFavorite handles POST /api/documents/{id}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	favorite, err := h.store.ToggleFavorite(id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.broker.PublishDocumentEvent("updated", id)
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": favorite})
}

// RenameDocument handles POST /api/documents/{id}/rename.
func (h *Handler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.store.Rename(id, req.Title); err != nil {
		writeError(w, err)
		return
	}
	h.broker.PublishDocumentEvent("updated", id)
	doc, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ImportDocuments handles POST /api/documents/import. The body is the
// exported record array; existing records win on id collision.
func (h *Handler) ImportDocuments(w http.ResponseWriter, r *http.Request) {
	var records []models.Document
	if !decodeBody(w, r, &records) {
		return
	}
	res, err := h.store.Import(records)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportDocuments handles GET /api/documents/export.
func (h *Handler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.Export()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="fiches-export.json"`)
	writeJSON(w, http.StatusOK, docs)
}

// Subjects handles GET /api/subjects.
func (h *Handler) Subjects(w http.ResponseWriter, r *http.Request) {
	out := make([]SubjectInfo, 0, len(models.Subjects))
	for _, s := range models.Subjects {
		c := s.Colors()
		out = append(out, SubjectInfo{Name: s, Main: c.Main, Accent: c.Accent})
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": out})
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /api/settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	settings := history.Settings{
		APIKey:          req.APIKey,
		DefaultFontSize: req.DefaultFontSize,
		DefaultSubject:  models.Subject(req.DefaultSubject),
		Model:           req.Model,
	}
	if len(req.CustomInstructions) > 0 {
		settings.CustomInstructions = make(map[models.Subject]string, len(req.CustomInstructions))
		for subject, text := range req.CustomInstructions {
			settings.CustomInstructions[models.Subject(subject)] = text
		}
	}
	if err := h.store.SaveSettings(settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// VerifyKey handles POST /api/settings/verify-key.
func (h *Handler) VerifyKey(w http.ResponseWriter, r *http.Request) {
	var req VerifyKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	valid := h.client.VerifyCredential(r.Context(), req.APIKey)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}
