package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/models"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sessionStore.List())
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	_, session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, session)
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, _, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.sessionStore.Delete(sessionID)
	slog.Info("Session deleted", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleClear drops the conversation history but keeps the image
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	sessionID, session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	if err := h.assistant.Clear(r.Context(), session.Provider, h.sessionImage(session)); err != nil {
		slog.Warn("Unable to clear provider conversation", "session_id", sessionID, "err", err)
	}

	h.sessionStore.Update(sessionID, func(cs *models.ChatSession) {
		cs.History = []providers.Exchange{}
		cs.LastLocation = nil
		cs.AnnotatedURL = ""
		cs.UpdatedAt = time.Now()
	})

	session, _ = h.snapshot(sessionID)
	h.writeJSON(w, session)
}

// sessionImage reads the session's stored image, or nil when it is gone
func (h *Handler) sessionImage(session *models.ChatSession) *providers.Image {
	data, err := os.ReadFile(session.ImagePath)
	if err != nil {
		slog.Warn("Unable to read session image", "path", session.ImagePath, "err", err)
		return nil
	}
	return &providers.Image{
		Name: filepath.Base(session.ImagePath),
		Data: data,
		MIME: session.ImageMIME,
	}
}
