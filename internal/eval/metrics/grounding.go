package metrics

import (
	"errors"
	"math"

	"github.com/lehigh-university-libraries/magma/internal/coords"
)

// Parse outcomes recorded per prediction
const (
	OutcomePoint      = "point"
	OutcomeBox        = "bbox"
	OutcomeNotFound   = "not_found"
	OutcomeMalformed  = "malformed"
	OutcomeOutOfRange = "out_of_range"
)

// Score is how well one prediction matches the expected box
type Score struct {
	Outcome string `json:"outcome" yaml:"outcome"`

	// Hit is set when the click target falls inside the expected box
	Hit bool `json:"hit" yaml:"hit"`

	// IoU is only meaningful for box predictions
	IoU    float64 `json:"iou" yaml:"iou"`
	HasIoU bool    `json:"has_iou" yaml:"hasiou"`

	// CenterDistance is the normalized distance between the click target and
	// the expected box center
	CenterDistance float64 `json:"center_distance" yaml:"centerdistance"`
}

// Parsed reports whether a location was recovered from the reply
func (s Score) Parsed() bool {
	return s.Outcome == OutcomePoint || s.Outcome == OutcomeBox
}

// ScoreLocation scores a parsed prediction, or the parse error that replaced it
func ScoreLocation(pred *coords.Location, parseErr error, expected coords.Box) Score {
	if pred == nil {
		return Score{Outcome: parseOutcome(parseErr)}
	}

	target := pred.Center()
	score := Score{
		Outcome:        string(pred.Kind),
		Hit:            expected.Contains(target),
		CenterDistance: distance(target, expected.Center()),
	}
	if pred.Kind == coords.KindBox {
		score.IoU = IoU(pred.Box, expected)
		score.HasIoU = true
	}
	return score
}

func parseOutcome(err error) string {
	switch {
	case errors.Is(err, coords.ErrMalformed):
		return OutcomeMalformed
	case errors.Is(err, coords.ErrOutOfRange):
		return OutcomeOutOfRange
	default:
		return OutcomeNotFound
	}
}

// IoU is the intersection over union of two boxes
func IoU(a, b coords.Box) float64 {
	ix := math.Min(a.XMax, b.XMax) - math.Max(a.XMin, b.XMin)
	iy := math.Min(a.YMax, b.YMax) - math.Max(a.YMin, b.YMin)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func distance(a, b coords.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
