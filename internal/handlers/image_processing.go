package handlers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/magma/internal/annotate"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/lehigh-university-libraries/magma/internal/models"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

type sessionOptions struct {
	Provider     string
	Model        string
	SystemPrompt string
}

func calculateDataMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// processImageFile validates the upload and stores it as uploads/<md5>.<ext>
func (h *Handler) processImageFile(fileData []byte, filename string) (*images.Source, string, error) {
	src, err := images.Decode(filename, fileData)
	if err != nil {
		return nil, "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = mimetype.Detect(fileData).Extension()
	}
	imageFilename := calculateDataMD5(fileData) + ext
	imageFilePath := filepath.Join(h.uploadsDir, imageFilename)

	if err := os.WriteFile(imageFilePath, fileData, 0644); err != nil {
		return nil, "", fmt.Errorf("failed to save image: %w", err)
	}

	slog.Info("Image saved", "filename", imageFilename, "width", src.Width(), "height", src.Height())
	return src, imageFilename, nil
}

func (h *Handler) createImageSession(src *images.Source, imageFilename string, opts sessionOptions) *models.ChatSession {
	now := time.Now()
	session := &models.ChatSession{
		ID:           uuid.NewString(),
		ImagePath:    filepath.Join(h.uploadsDir, imageFilename),
		ImageURL:     h.uploadURL(imageFilename),
		ImageMIME:    src.MIME,
		ImageWidth:   src.Width(),
		ImageHeight:  src.Height(),
		Provider:     opts.Provider,
		Model:        opts.Model,
		SystemPrompt: opts.SystemPrompt,
		History:      []providers.Exchange{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	h.sessionStore.Set(session.ID, session)
	return session.Clone()
}

func (h *Handler) createSessionFromURL(ctx context.Context, imageURL string, opts sessionOptions) (*models.ChatSession, error) {
	src, err := h.fetcher.Load(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	_, imageFilename, err := h.processImageFile(src.Data, src.Name)
	if err != nil {
		return nil, err
	}

	session := h.createImageSession(src, imageFilename, opts)
	slog.Info("Session created from URL", "session_id", session.ID, "url", imageURL)
	return session, nil
}

// writeAnnotated draws loc over the session image and returns the new file's URL
func (h *Handler) writeAnnotated(session *models.ChatSession, loc coords.Location, turn int) (string, error) {
	data, err := os.ReadFile(session.ImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read session image: %w", err)
	}
	src, err := images.Decode(filepath.Base(session.ImagePath), data)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_annotated_%d.png", session.ID, turn)
	if err := annotate.SavePNG(annotate.Draw(src.Image, loc, annotate.Annotate), filepath.Join(h.uploadsDir, filename)); err != nil {
		return "", err
	}
	return h.uploadURL(filename), nil
}
