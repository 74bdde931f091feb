package browser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "bare host", input: "example.com", expected: "https://example.com"},
		{name: "https kept", input: "https://example.com/a", expected: "https://example.com/a"},
		{name: "http kept", input: "http://localhost:8000", expected: "http://localhost:8000"},
		{name: "whitespace trimmed", input: "  lehigh.edu ", expected: "https://lehigh.edu"},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 650, opts.WindowWidth)
	assert.Equal(t, 850, opts.WindowHeight)
	assert.True(t, opts.Mobile)
	assert.Equal(t, int64(375), opts.DeviceWidth)
	assert.Equal(t, int64(812), opts.DeviceHeight)
	assert.Equal(t, 3.0, opts.PixelRatio)
	assert.Contains(t, opts.UserAgent, "iPhone")
	assert.Equal(t, 10*time.Second, opts.ReadyTimeout)
	assert.Equal(t, 2*time.Second, opts.SettleDelay)
	assert.Equal(t, 1200, opts.CropWidth)
	assert.Equal(t, 1200, opts.CropHeight)
}

func TestSummary(t *testing.T) {
	r := &ActionResult{Title: "Library", Content: "Welcome"}
	assert.Equal(t, "Page Title: Library\n\nContent Preview:\nWelcome...", r.Summary())
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", 600)
	assert.Len(t, []rune(truncate(long, 500)), 500)
	assert.Equal(t, "short", truncate("short", 500))
}

func TestClickScript(t *testing.T) {
	script := clickScript(12, 34)
	assert.Contains(t, script, "document.elementFromPoint(12, 34)")
	assert.Contains(t, script, "el.click()")
}

func TestMobileEmulationToggle(t *testing.T) {
	opts := DefaultOptions()
	assert.Len(t, New(opts).emulate(), 2)

	opts.Mobile = false
	assert.Nil(t, New(opts).emulate())
}

func TestOnProgressNil(t *testing.T) {
	b := New(DefaultOptions())
	b.OnProgress(nil)
	assert.NotPanics(t, func() { b.progress("x", 1) })

	var got []int
	b.OnProgress(func(_ string, pct int) { got = append(got, pct) })
	b.progress("a", 10)
	b.progress("b", 20)
	assert.Equal(t, []int{10, 20}, got)
}
