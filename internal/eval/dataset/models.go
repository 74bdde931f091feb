package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/images"
)

// GroundingRecord is one GUI grounding example: a screenshot, an instruction
// naming an element, and the element's bounding box
type GroundingRecord struct {
	ID          string    `json:"id" parquet:"id"`
	Instruction string    `json:"instruction" parquet:"instruction"`
	Image       ImageData `json:"image" parquet:"image"`

	// BBox is (x_min, y_min, x_max, y_max), normalized or in pixels
	BBox []float64 `json:"bbox" parquet:"bbox,list"`

	Width    int    `json:"width" parquet:"width"`
	Height   int    `json:"height" parquet:"height"`
	DataType string `json:"data_type" parquet:"data_type"` // "text", "icon", ...
}

// ImageData holds either the encoded screenshot or a path to it
type ImageData struct {
	Bytes []byte `json:"bytes" parquet:"bytes"`
	Path  string `json:"path" parquet:"path"`
}

// ExpectedBox returns the record's box normalized to [0,1]. Pixel boxes are
// scaled by the record's width and height, or by the image size when those
// are missing.
func (r *GroundingRecord) ExpectedBox(imgWidth, imgHeight int) (coords.Box, error) {
	if len(r.BBox) != 4 {
		return coords.Box{}, fmt.Errorf("record %s: bbox has %d values, want 4", r.ID, len(r.BBox))
	}

	b := coords.Box{XMin: r.BBox[0], YMin: r.BBox[1], XMax: r.BBox[2], YMax: r.BBox[3]}
	if b.XMax > 1 || b.YMax > 1 {
		w, h := r.Width, r.Height
		if w == 0 || h == 0 {
			w, h = imgWidth, imgHeight
		}
		if w == 0 || h == 0 {
			return coords.Box{}, fmt.Errorf("record %s: pixel bbox without image size", r.ID)
		}
		b = coords.Box{
			XMin: b.XMin / float64(w),
			YMin: b.YMin / float64(h),
			XMax: b.XMax / float64(w),
			YMax: b.YMax / float64(h),
		}
	}

	if !b.Valid() {
		return coords.Box{}, fmt.Errorf("record %s: invalid bbox %v", r.ID, r.BBox)
	}
	return b, nil
}

// LoadImage decodes the record's screenshot. Relative paths resolve against baseDir.
func (r *GroundingRecord) LoadImage(baseDir string) (*images.Source, error) {
	name := r.ID + ".png"
	data := r.Image.Bytes
	if len(data) == 0 {
		if r.Image.Path == "" {
			return nil, fmt.Errorf("record %s has no image", r.ID)
		}
		path := r.Image.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image for record %s: %w", r.ID, err)
		}
		name = filepath.Base(path)
	}
	return images.Decode(name, data)
}
