package coords

import (
	"encoding/json"
	"errors"
	"image"
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected Location
		err      error
	}{
		{
			name:     "bounding box",
			text:     "Coordinate: (0.1, 0.2, 0.3, 0.4)",
			expected: NewBox(0.1, 0.2, 0.3, 0.4),
		},
		{
			name:     "center point inside a sentence",
			text:     "The submit button is here. Coordinate: (0.5, 0.75). Click it.",
			expected: NewPoint(0.5, 0.75),
		},
		{
			name:     "bounding box wins over point",
			text:     "Coordinate: (0.5, 0.5) and also Coordinate: (0.1, 0.2, 0.3, 0.4)",
			expected: NewBox(0.1, 0.2, 0.3, 0.4),
		},
		{
			name:     "first point wins",
			text:     "Coordinate: (0.1, 0.1) then Coordinate: (0.9, 0.9)",
			expected: NewPoint(0.1, 0.1),
		},
		{
			name:     "integer values",
			text:     "Coordinate: (0, 1)",
			expected: NewPoint(0, 1),
		},
		{
			name: "no coordinate",
			text: "I could not find a button in this image.",
			err:  ErrNotFound,
		},
		{
			name: "three values match nothing",
			text: "Coordinate: (0.1, 0.2, 0.3)",
			err:  ErrNotFound,
		},
		{
			name: "missing space after comma",
			text: "Coordinate: (0.1,0.2)",
			err:  ErrNotFound,
		},
		{
			name: "negative values are not matched",
			text: "Coordinate: (-0.1, 0.2)",
			err:  ErrNotFound,
		},
		{
			name: "malformed point",
			text: "Coordinate: (1.2.3, 0.1)",
			err:  ErrMalformed,
		},
		{
			name: "malformed box does not fall through to point",
			text: "Coordinate: (0.1.1, 0.2, 0.3, 0.4) Coordinate: (0.5, 0.5)",
			err:  ErrMalformed,
		},
		{
			name: "point out of range",
			text: "Coordinate: (1.5, 0.2)",
			err:  ErrOutOfRange,
		},
		{
			name: "inverted box",
			text: "Coordinate: (0.5, 0.2, 0.3, 0.4)",
			err:  ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Parse(tt.text)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Expected error %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if loc != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, loc)
			}
		})
	}
}

func TestDenormalize(t *testing.T) {
	point := NewPoint(0.5, 0.25)
	if got := point.Pixel(1200, 800); got != image.Pt(600, 200) {
		t.Errorf("Expected (600,200), got %v", got)
	}

	// truncation, not rounding
	point = NewPoint(0.999, 0.999)
	if got := point.Pixel(10, 10); got != image.Pt(9, 9) {
		t.Errorf("Expected (9,9), got %v", got)
	}

	box := NewBox(0.1, 0.2, 0.3, 0.4)
	if got := box.Rect(1000, 500); got != image.Rect(100, 100, 300, 200) {
		t.Errorf("Expected rect (100,100)-(300,200), got %v", got)
	}
}

func TestClickTarget(t *testing.T) {
	tests := []struct {
		name     string
		loc      Location
		width    int
		height   int
		expected image.Point
	}{
		{
			name:     "point",
			loc:      NewPoint(0.5, 0.5),
			width:    375,
			height:   812,
			expected: image.Pt(187, 406),
		},
		{
			name:     "box center",
			loc:      NewBox(0.2, 0.4, 0.4, 0.6),
			width:    375,
			height:   812,
			expected: image.Pt(112, 406),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.ClickTarget(tt.width, tt.height); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestBoxGeometry(t *testing.T) {
	box := Box{XMin: 0.2, YMin: 0.2, XMax: 0.6, YMax: 0.4}

	if c := box.Center(); math.Abs(c.X-0.4) > 1e-9 || math.Abs(c.Y-0.3) > 1e-9 {
		t.Errorf("Unexpected center %+v", c)
	}
	if a := box.Area(); math.Abs(a-0.08) > 1e-9 {
		t.Errorf("Unexpected area %f", a)
	}
	if !box.Contains(Point{X: 0.2, Y: 0.4}) {
		t.Error("Expected edge point to be contained")
	}
	if box.Contains(Point{X: 0.7, Y: 0.3}) {
		t.Error("Expected outside point not to be contained")
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, loc := range []Location{NewPoint(0.25, 0.5), NewBox(0.1, 0.2, 0.3, 0.4)} {
		parsed, err := Parse("The answer. " + loc.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", loc.String(), err)
		}
		if parsed != loc {
			t.Errorf("Expected %+v, got %+v", loc, parsed)
		}
	}
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(NewBox(0.1, 0.2, 0.3, 0.4))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"bbox","coords":[0.1,0.2,0.3,0.4]}` {
		t.Errorf("Unexpected JSON %s", data)
	}

	var loc Location
	if err := json.Unmarshal([]byte(`{"type":"point","coords":[0.5,0.6]}`), &loc); err != nil {
		t.Fatal(err)
	}
	if loc != NewPoint(0.5, 0.6) {
		t.Errorf("Unexpected location %+v", loc)
	}

	if err := json.Unmarshal([]byte(`{"type":"point","coords":[0.5]}`), &loc); err == nil {
		t.Error("Expected error for short point")
	}
}
