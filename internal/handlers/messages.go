package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/models"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

// HandleMessage asks the session's model a question about its image and
// appends the exchange to the history
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		Prompt       string `json:"prompt"`
		SystemPrompt string `json:"system_prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	prompt := strings.TrimSpace(request.Prompt)
	if prompt == "" {
		prompt = assistant.DefaultQuestion
	}
	systemPrompt := request.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = session.SystemPrompt
	}

	image := h.sessionImage(session)
	if image == nil {
		h.writeError(w, "Session image is no longer available", http.StatusGone)
		return
	}

	answer, err := h.assistant.Ask(r.Context(), assistant.Query{
		Provider:     session.Provider,
		Model:        session.Model,
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		Image:        image,
		History:      session.History,
	})
	if err != nil {
		h.writeError(w, "Model request failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	assistant.ParseInto(answer)

	turn := len(session.History) + 1
	result := models.MessageResult{
		Reply:    answer.Reply,
		Provider: answer.Provider,
		Model:    answer.Model,
		Location: answer.Location,
		Duration: answer.Duration.Seconds(),
		Turns:    turn,
	}

	if answer.Location != nil {
		url, err := h.writeAnnotated(session, *answer.Location, turn)
		if err != nil {
			slog.Warn("Unable to annotate image", "session_id", sessionID, "err", err)
		} else {
			result.AnnotatedURL = url
		}
	}

	found := h.sessionStore.Update(sessionID, func(cs *models.ChatSession) {
		cs.History = append(cs.History, providers.Exchange{User: prompt, Assistant: answer.Reply})
		if answer.Location != nil {
			cs.LastLocation = answer.Location
			cs.AnnotatedURL = result.AnnotatedURL
		}
		cs.UpdatedAt = time.Now()
		result.Turns = len(cs.History)
	})
	if !found {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, result)
}
