package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/lehigh-university-libraries/magma/internal/annotate"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/images"
)

// ErrNoElement is returned when nothing is rendered at the click target
var ErrNoElement = errors.New("no element at click target")

// iPhone user agent used for mobile emulation
const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 13_2_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/13.0.3 Mobile/15E148 Safari/604.1"

// Options configures the headless browser
type Options struct {
	WindowWidth  int
	WindowHeight int

	// Mobile emulation
	Mobile       bool
	DeviceWidth  int64
	DeviceHeight int64
	PixelRatio   float64
	UserAgent    string

	ReadyTimeout time.Duration
	SettleDelay  time.Duration

	CropWidth  int
	CropHeight int

	// ExecPath overrides Chrome discovery
	ExecPath string
}

// DefaultOptions emulates an iPhone in a headless Chrome window
func DefaultOptions() Options {
	return Options{
		WindowWidth:  650,
		WindowHeight: 850,
		Mobile:       true,
		DeviceWidth:  375,
		DeviceHeight: 812,
		PixelRatio:   3.0,
		UserAgent:    mobileUserAgent,
		ReadyTimeout: 10 * time.Second,
		SettleDelay:  2 * time.Second,
		CropWidth:    1200,
		CropHeight:   1200,
	}
}

// ProgressFunc receives status updates with a completion percentage
type ProgressFunc func(message string, percent int)

// Screenshot is a cropped page capture
type Screenshot struct {
	URL   string
	PNG   []byte
	Image image.Image
}

// ActionResult describes the page after a click
type ActionResult struct {
	Screenshot *Screenshot
	Title      string
	Content    string
	Target     image.Point
	Viewport   image.Point
}

// Summary renders the page title and a content preview
func (r *ActionResult) Summary() string {
	return fmt.Sprintf("Page Title: %s\n\nContent Preview:\n%s...", r.Title, r.Content)
}

// Browser drives a fresh headless Chrome for every operation
type Browser struct {
	opts     Options
	progress ProgressFunc
}

// New creates a browser with opts
func New(opts Options) *Browser {
	return &Browser{opts: opts, progress: func(string, int) {}}
}

// OnProgress installs a progress callback
func (b *Browser) OnProgress(fn ProgressFunc) {
	if fn == nil {
		fn = func(string, int) {}
	}
	b.progress = fn
}

// NormalizeURL requires a non-empty URL and defaults the scheme to https
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("please enter a URL first")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return raw, nil
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.WindowSize(b.opts.WindowWidth, b.opts.WindowHeight),
	)
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}
	return opts
}

// launch starts Chrome and returns a context bound to a new tab
func (b *Browser) launch(ctx context.Context) (context.Context, context.CancelFunc) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))
	return tabCtx, func() {
		cancelTab()
		cancelAlloc()
	}
}

func (b *Browser) emulate() chromedp.Tasks {
	if !b.opts.Mobile {
		return nil
	}
	return chromedp.Tasks{
		emulation.SetUserAgentOverride(b.opts.UserAgent),
		chromedp.EmulateViewport(b.opts.DeviceWidth, b.opts.DeviceHeight,
			chromedp.EmulateScale(b.opts.PixelRatio),
			chromedp.EmulateMobile,
			chromedp.EmulateTouch,
		),
	}
}

// load navigates and waits for the body to be ready
func (b *Browser) load(tabCtx context.Context, url string) error {
	if err := chromedp.Run(tabCtx, b.emulate()); err != nil {
		return fmt.Errorf("failed to configure emulation: %w", err)
	}

	b.progress("Loading page: "+url, 30)
	waitCtx, cancel := context.WithTimeout(tabCtx, b.opts.ReadyTimeout)
	defer cancel()
	if err := chromedp.Run(waitCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

func (b *Browser) screenshot(tabCtx context.Context, url string) (*Screenshot, error) {
	var raw []byte
	if err := chromedp.Run(tabCtx, chromedp.CaptureScreenshot(&raw)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	cropped := images.CropTopLeft(img, b.opts.CropWidth, b.opts.CropHeight)

	data, err := annotate.EncodePNG(cropped)
	if err != nil {
		return nil, err
	}

	return &Screenshot{URL: url, PNG: data, Image: cropped}, nil
}

// Capture loads url and returns a cropped screenshot
func (b *Browser) Capture(ctx context.Context, url string) (*Screenshot, error) {
	url, err := NormalizeURL(url)
	if err != nil {
		return nil, err
	}

	b.progress("Setting up browser...", 10)
	tabCtx, cancel := b.launch(ctx)
	defer cancel()

	b.progress("Launching browser...", 20)
	if err := b.load(tabCtx, url); err != nil {
		return nil, err
	}

	b.progress("Page loaded, capturing screenshot...", 70)
	shot, err := b.screenshot(tabCtx, url)
	if err != nil {
		return nil, err
	}

	b.progress("Screenshot captured!", 100)
	return shot, nil
}

// clickScript clicks the element rendered at (x, y) and reports whether one
// was found
func clickScript(x, y int) string {
	return fmt.Sprintf(`(() => { const el = document.elementFromPoint(%d, %d); if (!el) { return false; } el.click(); return true; })()`, x, y)
}

// Click loads url, clicks the element at loc, waits for the page to settle
// and captures the result
func (b *Browser) Click(ctx context.Context, url string, loc coords.Location) (*ActionResult, error) {
	url, err := NormalizeURL(url)
	if err != nil {
		return nil, err
	}

	b.progress("Setting up browser for interaction...", 10)
	tabCtx, cancel := b.launch(ctx)
	defer cancel()

	b.progress("Launching browser...", 20)
	if err := b.load(tabCtx, url); err != nil {
		return nil, err
	}

	var width, height int
	if err := chromedp.Run(tabCtx,
		chromedp.Evaluate(`document.documentElement.clientWidth`, &width),
		chromedp.Evaluate(`document.documentElement.clientHeight`, &height),
	); err != nil {
		return nil, fmt.Errorf("failed to read viewport size: %w", err)
	}

	b.progress("Preparing to click on element...", 50)
	target := loc.ClickTarget(width, height)

	var clicked bool
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(clickScript(target.X, target.Y), &clicked)); err != nil {
		return nil, fmt.Errorf("failed to click at (%d, %d): %w", target.X, target.Y, err)
	}
	if !clicked {
		return nil, fmt.Errorf("%w (%d, %d)", ErrNoElement, target.X, target.Y)
	}
	if loc.Kind == coords.KindBox {
		b.progress(fmt.Sprintf("Clicked at center of box: (%d, %d)", target.X, target.Y), 60)
	} else {
		b.progress(fmt.Sprintf("Clicked at point (%d, %d)", target.X, target.Y), 60)
	}

	b.progress("Waiting for page transition...", 70)
	if err := chromedp.Run(tabCtx, chromedp.Sleep(b.opts.SettleDelay)); err != nil {
		return nil, err
	}

	shot, err := b.screenshot(tabCtx, url)
	if err != nil {
		return nil, err
	}

	var title, text string
	if err := chromedp.Run(tabCtx,
		chromedp.Title(&title),
		chromedp.Text("body", &text, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	b.progress("Action completed! Processing results...", 90)
	return &ActionResult{
		Screenshot: shot,
		Title:      title,
		Content:    truncate(text, 500),
		Target:     target,
		Viewport:   image.Pt(width, height),
	}, nil
}

// truncate keeps the first n runes of s
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
