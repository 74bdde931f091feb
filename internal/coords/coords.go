package coords

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNotFound   = errors.New("no coordinate found in text")
	ErrMalformed  = errors.New("coordinate values are not valid numbers")
	ErrOutOfRange = errors.New("coordinate values must be normalized to [0,1]")
)

// The four-value pattern is tried first; a sentence carrying a bounding box
// would otherwise also match the prefix of the two-value pattern.
var (
	bboxPattern  = regexp.MustCompile(`Coordinate: \(([0-9.]+), ([0-9.]+), ([0-9.]+), ([0-9.]+)\)`)
	pointPattern = regexp.MustCompile(`Coordinate: \(([0-9.]+), ([0-9.]+)\)`)
)

// Kind discriminates a Location
type Kind string

const (
	KindPoint Kind = "point"
	KindBox   Kind = "bbox"
)

// Point is a normalized center point
type Point struct {
	X float64
	Y float64
}

// Box is a normalized bounding box
type Box struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// Center returns the normalized center of the box
func (b Box) Center() Point {
	return Point{X: (b.XMin + b.XMax) / 2, Y: (b.YMin + b.YMax) / 2}
}

// Contains reports whether p lies inside the box, edges included
func (b Box) Contains(p Point) bool {
	return p.X >= b.XMin && p.X <= b.XMax && p.Y >= b.YMin && p.Y <= b.YMax
}

// Area returns the normalized area of the box
func (b Box) Area() float64 {
	return (b.XMax - b.XMin) * (b.YMax - b.YMin)
}

// Valid reports whether the box is normalized and not inverted
func (b Box) Valid() bool {
	return inUnit(b.XMin) && inUnit(b.YMin) && inUnit(b.XMax) && inUnit(b.YMax) &&
		b.XMin <= b.XMax && b.YMin <= b.YMax
}

// Location is either a Point or a Box parsed from model output
type Location struct {
	Kind  Kind
	Point Point
	Box   Box
}

// NewPoint builds a point location
func NewPoint(x, y float64) Location {
	return Location{Kind: KindPoint, Point: Point{X: x, Y: y}}
}

// NewBox builds a bounding box location
func NewBox(xMin, yMin, xMax, yMax float64) Location {
	return Location{Kind: KindBox, Box: Box{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}}
}

// Parse extracts the first coordinate sentence from free-form model text.
// A four-value match decides the outcome on its own: when its values fail
// to parse the two-value pattern is not consulted.
func Parse(text string) (Location, error) {
	if m := bboxPattern.FindStringSubmatch(text); m != nil {
		v, err := parseFloats(m[1:])
		if err != nil {
			return Location{}, err
		}
		loc := NewBox(v[0], v[1], v[2], v[3])
		if err := loc.Validate(); err != nil {
			return Location{}, err
		}
		return loc, nil
	}

	if m := pointPattern.FindStringSubmatch(text); m != nil {
		v, err := parseFloats(m[1:])
		if err != nil {
			return Location{}, err
		}
		loc := NewPoint(v[0], v[1])
		if err := loc.Validate(); err != nil {
			return Location{}, err
		}
		return loc, nil
	}

	return Location{}, ErrNotFound
}

func parseFloats(groups []string) ([]float64, error) {
	out := make([]float64, len(groups))
	for i, g := range groups {
		f, err := strconv.ParseFloat(g, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, g)
		}
		out[i] = f
	}
	return out, nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Validate checks the normalization invariants of the location
func (l Location) Validate() error {
	switch l.Kind {
	case KindPoint:
		if !inUnit(l.Point.X) || !inUnit(l.Point.Y) {
			return fmt.Errorf("%w: point (%g, %g)", ErrOutOfRange, l.Point.X, l.Point.Y)
		}
	case KindBox:
		if !l.Box.Valid() {
			return fmt.Errorf("%w: box (%g, %g, %g, %g)", ErrOutOfRange, l.Box.XMin, l.Box.YMin, l.Box.XMax, l.Box.YMax)
		}
	default:
		return fmt.Errorf("unknown location kind %q", l.Kind)
	}
	return nil
}

// Values returns the raw coordinates in sentence order
func (l Location) Values() []float64 {
	if l.Kind == KindBox {
		return []float64{l.Box.XMin, l.Box.YMin, l.Box.XMax, l.Box.YMax}
	}
	return []float64{l.Point.X, l.Point.Y}
}

// Center returns the normalized target point of the location
func (l Location) Center() Point {
	if l.Kind == KindBox {
		return l.Box.Center()
	}
	return l.Point
}

// Pixel denormalizes a point against width and height, truncating toward zero
func (l Location) Pixel(width, height int) image.Point {
	return image.Pt(int(l.Point.X*float64(width)), int(l.Point.Y*float64(height)))
}

// Rect denormalizes a box against width and height, truncating toward zero
func (l Location) Rect(width, height int) image.Rectangle {
	w, h := float64(width), float64(height)
	return image.Rect(int(l.Box.XMin*w), int(l.Box.YMin*h), int(l.Box.XMax*w), int(l.Box.YMax*h))
}

// ClickTarget returns the pixel to click for a viewport of width x height.
// Boxes target their center.
func (l Location) ClickTarget(width, height int) image.Point {
	if l.Kind == KindBox {
		w, h := float64(width), float64(height)
		return image.Pt(int((l.Box.XMin+l.Box.XMax)*w/2), int((l.Box.YMin+l.Box.YMax)*h/2))
	}
	return l.Pixel(width, height)
}

func (l Location) String() string {
	vals := l.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "Coordinate: (" + strings.Join(parts, ", ") + ")"
}

type locationJSON struct {
	Type   Kind      `json:"type"`
	Coords []float64 `json:"coords"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{Type: l.Kind, Coords: l.Values()})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var raw locationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Type == KindPoint && len(raw.Coords) == 2:
		*l = NewPoint(raw.Coords[0], raw.Coords[1])
	case raw.Type == KindBox && len(raw.Coords) == 4:
		*l = NewBox(raw.Coords[0], raw.Coords[1], raw.Coords[2], raw.Coords[3])
	default:
		return fmt.Errorf("invalid location %q with %d coords", raw.Type, len(raw.Coords))
	}
	return nil
}
