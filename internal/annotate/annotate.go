package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/lehigh-university-libraries/magma/internal/coords"
)

// Options controls how a location is drawn
type Options struct {
	Color color.Color

	// CrossWidth and CircleWidth style the point marker
	CrossWidth  float64
	CircleWidth float64

	// BoxWidth is the stroke width of each box outline; BoxPasses outlines
	// are drawn, each inset one pixel further than the previous
	BoxWidth  float64
	BoxPasses int
}

var red = color.RGBA{R: 255, A: 255}

// Annotate is the style used for chat replies
var Annotate = Options{
	Color:       red,
	CrossWidth:  3,
	CircleWidth: 2,
	BoxWidth:    3,
	BoxPasses:   1,
}

// Highlight is the style used for web screenshots: a thicker triple outline
var Highlight = Options{
	Color:       red,
	CrossWidth:  3,
	CircleWidth: 2,
	BoxWidth:    2,
	BoxPasses:   3,
}

// MarkerRadius scales the point marker with the image
func MarkerRadius(width, height int) int {
	return max(10, min(width, height)/30)
}

// Draw returns an RGBA copy of img with the location drawn on it
func Draw(img image.Image, loc coords.Location, opts Options) *image.RGBA {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	dc := gg.NewContextForImage(img)
	dc.SetColor(opts.Color)

	switch loc.Kind {
	case coords.KindPoint:
		c := loc.Pixel(width, height)
		x, y := float64(c.X), float64(c.Y)
		r := float64(MarkerRadius(width, height))

		dc.SetLineWidth(opts.CrossWidth)
		dc.DrawLine(x-r, y, x+r, y)
		dc.Stroke()
		dc.DrawLine(x, y-r, x, y+r)
		dc.Stroke()

		dc.SetLineWidth(opts.CircleWidth)
		dc.DrawCircle(x, y, r)
		dc.Stroke()
	case coords.KindBox:
		rect := loc.Rect(width, height)
		passes := max(opts.BoxPasses, 1)
		dc.SetLineWidth(opts.BoxWidth)
		for i := 0; i < passes; i++ {
			x0, y0 := float64(rect.Min.X+i), float64(rect.Min.Y+i)
			x1, y1 := float64(rect.Max.X-i), float64(rect.Max.Y-i)
			if x1 < x0 || y1 < y0 {
				break
			}
			dc.DrawRectangle(x0, y0, x1-x0, y1-y0)
			dc.Stroke()
		}
	}

	// gg always draws on an *image.RGBA
	return dc.Image().(*image.RGBA)
}

// EncodePNG encodes img as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes img as a PNG file
func SavePNG(img image.Image, path string) error {
	data, err := EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
