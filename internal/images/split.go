package images

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
)

// Quadrants returns the four regions of a width x height image in the order
// top-left, top-right, bottom-left, bottom-right. The right and bottom
// quadrants absorb the odd pixel.
func Quadrants(width, height int) [4]image.Rectangle {
	midX, midY := width/2, height/2
	return [4]image.Rectangle{
		image.Rect(0, 0, midX, midY),
		image.Rect(midX, 0, width, midY),
		image.Rect(0, midY, midX, height),
		image.Rect(midX, midY, width, height),
	}
}

// SplitQuadrants crops img into its four quadrants
func SplitQuadrants(img image.Image) [4]image.Image {
	b := img.Bounds()
	var out [4]image.Image
	for i, q := range Quadrants(b.Dx(), b.Dy()) {
		out[i] = imaging.Crop(img, q.Add(b.Min))
	}
	return out
}

// SaveQuadrants writes <prefix>_1.png through <prefix>_4.png
func SaveQuadrants(img image.Image, prefix string) ([]string, error) {
	paths := make([]string, 0, 4)
	for i, part := range SplitQuadrants(img) {
		path := fmt.Sprintf("%s_%d.png", prefix, i+1)
		if err := imaging.Save(part, path); err != nil {
			return paths, fmt.Errorf("failed to save %s: %w", path, err)
		}
		slog.Info("Saved quadrant", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// CropTopLeft keeps the top-left width x height region, clipped to the
// image bounds. A smaller image is returned as is, not padded out to
// width x height, so normalized coordinates refer to the clipped size.
func CropTopLeft(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	return imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Min.Y+height))
}
