package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/magma/internal/images"
)

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := h.ensureUploadsDir(); err != nil {
		h.writeError(w, "Failed to create uploads directory: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL     string `json:"image_url"`
		Provider     string `json:"provider"`
		Model        string `json:"model"`
		SystemPrompt string `json:"system_prompt"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}
	if !images.IsURL(request.ImageURL) {
		h.writeError(w, "image_url must be an http(s) URL", http.StatusBadRequest)
		return
	}

	session, err := h.createSessionFromURL(r.Context(), request.ImageURL, sessionOptions{
		Provider:     request.Provider,
		Model:        request.Model,
		SystemPrompt: request.SystemPrompt,
	})
	if err != nil {
		h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSONStatus(w, http.StatusCreated, session)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, images.MaxImageSize+1024*1024)

	file, header, err := r.FormFile("files")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, images.MaxImageSize+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if len(fileData) > images.MaxImageSize {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	src, imageFilename, err := h.processImageFile(fileData, header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	session := h.createImageSession(src, imageFilename, sessionOptions{
		Provider:     r.FormValue("provider"),
		Model:        r.FormValue("model"),
		SystemPrompt: r.FormValue("system_prompt"),
	})

	h.writeJSONStatus(w, http.StatusCreated, session)
}
