package api

import (
	"errors"
	"net/http"

	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/worksession"
)

// SessionInfo describes the active work session.
type SessionInfo struct {
	State      worksession.State `json:"state"`
	DocumentID string            `json:"documentId,omitempty"`
	Title      string            `json:"title,omitempty"`
	Subject    models.Subject    `json:"subject,omitempty"`
}

func (h *Handler) sessionInfo() SessionInfo {
	info := SessionInfo{State: h.engine.State()}
	if src, err := h.engine.Source(); err == nil {
		info.DocumentID = src.ID
		info.Title = src.Title
		info.Subject = src.Subject
	}
	return info
}

// StartSession handles POST /api/work/session: loads a stored document as
// the session source and resets the conversation.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	doc, err := h.store.Get(req.DocumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.engine.Start(*doc)
	writeJSON(w, http.StatusOK, h.sessionInfo())
}

// GetSession handles GET /api/work/session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionInfo())
}

// Derive handles POST /api/work/derive: generates a new document from the
// session source in the requested mode. The result is returned but not
// persisted.
func (h *Handler) Derive(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	doc, err := h.engine.Derive(r.Context(), req.Spec())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ChatTurn is one rendered conversation turn.
type ChatTurn struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
	HTML    string      `json:"html,omitempty"`
}

// Chat handles POST /api/work/chat: appends the user's message and returns
// the tutor's reply with its rendered markup.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	reply, err := h.engine.Chat(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	html, err := worksession.RenderTurnHTML(reply.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatTurn{Role: reply.Role, Content: reply.Content, HTML: html})
}

// ChatHistory handles GET /api/work/chat.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	turns := h.engine.Turns()
	out := make([]ChatTurn, len(turns))
	for i, t := range turns {
		out[i] = ChatTurn{Role: t.Role, Content: t.Content}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": out})
}

// ChatToDocument handles POST /api/work/chat/document: converts the full
// conversation into a new document.
func (h *Handler) ChatToDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.ChatToDocument(r.Context())
	if err != nil {
		if errors.Is(err, worksession.ErrEmptyConversation) {
			writeJSON(w, http.StatusBadRequest, errorBody("conversation is empty"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
