package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestQuadrants(t *testing.T) {
	q := Quadrants(101, 51)
	assert.Equal(t, image.Rect(0, 0, 50, 25), q[0])
	assert.Equal(t, image.Rect(50, 0, 101, 25), q[1])
	assert.Equal(t, image.Rect(0, 25, 50, 51), q[2])
	assert.Equal(t, image.Rect(50, 25, 101, 51), q[3])
}

func TestSplitQuadrants(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 8))
	img.Set(9, 7, color.RGBA{B: 255, A: 255})

	parts := SplitQuadrants(img)
	assert.Equal(t, 5, parts[0].Bounds().Dx())
	assert.Equal(t, 4, parts[0].Bounds().Dy())

	// bottom-right pixel lands in the last quadrant's bottom-right corner
	_, _, b, _ := parts[3].At(4, 3).RGBA()
	assert.Equal(t, uint32(0xffff), b)
}

func TestSaveQuadrants(t *testing.T) {
	src, err := Decode("in.png", testPNG(t, 20, 20))
	require.NoError(t, err)

	prefix := filepath.Join(t.TempDir(), "split_image")
	paths, err := SaveQuadrants(src.Image, prefix)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, prefix+"_1.png", paths[0])
	assert.Equal(t, prefix+"_4.png", paths[3])
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestCropTopLeft(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1125, 2436))
	out := CropTopLeft(img, 1200, 1200)
	assert.Equal(t, 1125, out.Bounds().Dx())
	assert.Equal(t, 1200, out.Bounds().Dy())
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, testPNG(t, 30, 40), 0644))

	src, err := NewFetcher().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "page.png", src.Name)
	assert.Equal(t, "image/png", src.MIME)
	assert.Equal(t, 30, src.Width())
	assert.Equal(t, 40, src.Height())
}

func TestLoadFromURL(t *testing.T) {
	data := testPNG(t, 8, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer server.Close()

	f := NewFetcher()
	src, err := f.Load(context.Background(), server.URL+"/images/shot.png?size=l")
	require.NoError(t, err)
	assert.Equal(t, "shot.png", src.Name)

	_, err = f.Load(context.Background(), server.URL+"/missing.png")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestLoadRejectsOversizeDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, MaxImageSize+1))
	}))
	defer server.Close()

	_, err := NewFetcher().Load(context.Background(), server.URL+"/huge.png")
	assert.ErrorContains(t, err, "image too large")
}

func TestLoadRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	_, err := NewFetcher().Load(context.Background(), path)
	assert.Error(t, err)

	_, err = NewFetcher().Load(context.Background(), "")
	assert.Error(t, err)
}
