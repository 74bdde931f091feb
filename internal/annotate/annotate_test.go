package annotate

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/magma/internal/coords"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xc000 && g < 0x4000 && b < 0x4000
}

func TestMarkerRadius(t *testing.T) {
	tests := []struct {
		w, h     int
		expected int
	}{
		{100, 100, 10},
		{1200, 900, 30},
		{300, 3000, 10},
		{3000, 1500, 50},
	}
	for _, tt := range tests {
		if got := MarkerRadius(tt.w, tt.h); got != tt.expected {
			t.Errorf("MarkerRadius(%d,%d) = %d, expected %d", tt.w, tt.h, got, tt.expected)
		}
	}
}

func TestDrawPoint(t *testing.T) {
	src := whiteImage(300, 300)
	out := Draw(src, coords.NewPoint(0.5, 0.5), Annotate)

	if out.Bounds() != src.Bounds() {
		t.Fatalf("Expected bounds %v, got %v", src.Bounds(), out.Bounds())
	}
	// cross arm
	if !isRed(out.At(150+5, 150)) {
		t.Error("Expected red pixel on horizontal cross arm")
	}
	// circle edge at radius 10
	if !isRed(out.At(150, 150-10)) {
		t.Error("Expected red pixel on circle")
	}
	// far corner untouched
	if isRed(out.At(5, 5)) {
		t.Error("Expected corner to stay white")
	}
	// source untouched
	if isRed(src.At(155, 150)) {
		t.Error("Draw must not modify the source image")
	}
}

func TestDrawBox(t *testing.T) {
	src := whiteImage(200, 100)
	out := Draw(src, coords.NewBox(0.25, 0.2, 0.75, 0.8), Highlight)

	// box is (50,20)-(150,80)
	if !isRed(out.At(100, 20)) {
		t.Error("Expected red pixel on top edge")
	}
	if !isRed(out.At(100, 22)) {
		t.Error("Expected inset passes to thicken the top edge")
	}
	if isRed(out.At(100, 50)) {
		t.Error("Expected box interior to stay white")
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := SavePNG(whiteImage(10, 10), path); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("Expected non-empty file")
	}
}

func TestDrawConvertsToRGBA(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 120, 90))
	draw.Draw(src, src.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	out := Draw(src, coords.NewPoint(0.5, 0.5), Annotate)
	if out.Bounds().Dx() != 120 || out.Bounds().Dy() != 90 {
		t.Fatalf("Expected 120x90, got %v", out.Bounds())
	}
	if c := out.RGBAAt(60+5, 45); c.R != 255 || c.G != 0 {
		t.Errorf("Expected red cross on grayscale source, got %v", c)
	}
}
