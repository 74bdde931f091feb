package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// MaxImageSize bounds downloads and uploads
const MaxImageSize = 10 * 1024 * 1024

// Fetcher retrieves images from local paths or remote URLs
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Source is a loaded image with its encoded bytes
type Source struct {
	Name  string
	Data  []byte
	MIME  string
	Image image.Image
}

// Width of the decoded image
func (s *Source) Width() int { return s.Image.Bounds().Dx() }

// Height of the decoded image
func (s *Source) Height() int { return s.Image.Bounds().Dy() }

// IsURL reports whether ref should be downloaded rather than read from disk
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Load reads an image from a path or an http(s) URL and decodes it
func (f *Fetcher) Load(ctx context.Context, ref string) (*Source, error) {
	if ref == "" {
		return nil, fmt.Errorf("no image provided")
	}

	var (
		data []byte
		err  error
	)
	if IsURL(ref) {
		data, err = f.download(ctx, ref)
	} else {
		data, err = os.ReadFile(ref)
	}
	if err != nil {
		return nil, err
	}

	return Decode(nameFromRef(ref), data)
}

// Decode builds a Source from encoded image bytes
func Decode(name string, data []byte) (*Source, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}
	slog.Debug("Decoded image", "name", name, "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	return &Source{
		Name:  name,
		Data:  data,
		MIME:  mimetype.Detect(data).String(),
		Image: img,
	}, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("image too large (max %d bytes)", MaxImageSize)
	}

	return data, nil
}

func nameFromRef(ref string) string {
	ref = strings.SplitN(ref, "?", 2)[0]
	parts := strings.Split(ref, "/")
	name := parts[len(parts)-1]
	if name == "" {
		return "image.jpg"
	}
	return name
}
