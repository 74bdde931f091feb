package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/lehigh-university-libraries/magma/internal/models"
	"github.com/lehigh-university-libraries/magma/internal/monitoring"
	"github.com/lehigh-university-libraries/magma/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	sessionStore *storage.SessionStore
	assistant    *assistant.Service
	fetcher      *images.Fetcher
	uploadsDir   string
}

func New(svc *assistant.Service, uploadsDir string) *Handler {
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}
	return &Handler{
		sessionStore: storage.New(),
		assistant:    svc,
		fetcher:      images.NewFetcher(),
		uploadsDir:   uploadsDir,
	}
}

// Router wires the API routes
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(monitoring.Middleware)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.HandleCreateSession)
		r.Get("/", h.HandleListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleDeleteSession)
			r.Post("/messages", h.HandleMessage)
			r.Post("/clear", h.HandleClear)
		})
	})
	r.Get("/static/uploads/*", h.HandleStatic)
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (string, *models.ChatSession, bool) {
	sessionID := chi.URLParam(r, "id")
	session, exists := h.snapshot(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return sessionID, nil, false
	}
	return sessionID, session, true
}

// snapshot copies a session under the store lock
func (h *Handler) snapshot(sessionID string) (*models.ChatSession, bool) {
	return h.sessionStore.Get(sessionID)
}

func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadsDir, 0755)
}

func (h *Handler) uploadURL(filename string) string {
	return "/static/uploads/" + filename
}
