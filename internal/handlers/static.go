package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HandleStatic serves uploaded and annotated images
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	// Prevent directory traversal attacks
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.uploadsDir, name))
}
