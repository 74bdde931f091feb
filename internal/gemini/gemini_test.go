package gemini

import (
	"context"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/magma/internal/providers"
)

func TestImageFormat(t *testing.T) {
	tests := map[string]string{
		"image/png":                "png",
		"image/jpeg":               "jpeg",
		"image/webp":               "webp",
		"":                         "png",
		"application/octet-stream": "png",
	}
	for mime, expected := range tests {
		if got := imageFormat(mime); got != expected {
			t.Errorf("imageFormat(%q) = %q, expected %q", mime, got, expected)
		}
	}
}

func TestGenerateRequiresKey(t *testing.T) {
	_, err := New("").Generate(context.Background(), providers.Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("Expected missing key error, got %v", err)
	}
}
