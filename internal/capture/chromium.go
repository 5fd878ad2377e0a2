// Package capture screenshots the viewer with headless Chromium so the
// current theme can be served as a static PNG (kiosk previews, chat
// unfurls, e-ink photo frames).
package capture

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"countdown/internal/config"
	appLog "countdown/internal/log"
	"countdown/internal/theme"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 720
	DefaultTimeout = 30 * time.Second
)

// Options defines one screenshot.
type Options struct {
	// URL of the viewer, e.g. "http://127.0.0.1:8080/".
	URL string
	// OutputPath receives the PNG.
	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// CapturePNG opens opts.URL, waits for the viewer to mark itself
// data-ready="true" and writes a full-page screenshot.
func CapturePNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Let the first effect frame paint.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := config.WriteFileAtomic(opts.OutputPath, png, ".preview-*.png"); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}

// Renderer re-captures the preview whenever the theme or daypart changes.
type Renderer struct {
	opts    Options
	capture func(context.Context, Options) error
}

// NewRenderer builds a renderer from the capture config.
func NewRenderer(cfg config.CaptureConfig) *Renderer {
	return &Renderer{
		opts: Options{
			URL:        cfg.URL,
			OutputPath: cfg.Output,
			Width:      cfg.Width,
			Height:     cfg.Height,
		},
		capture: CapturePNG,
	}
}

// RenderTheme captures the viewer pinned to key and dp.
func (r *Renderer) RenderTheme(ctx context.Context, key string, dp theme.Daypart) error {
	target, err := previewURL(r.opts.URL, key, dp)
	if err != nil {
		return err
	}
	opts := r.opts
	opts.URL = target

	start := time.Now()
	if err := r.capture(ctx, opts); err != nil {
		return err
	}
	appLog.Info("preview captured", "theme", key, "daypart", dp, "output", opts.OutputPath, "duration", time.Since(start))
	return nil
}

func previewURL(base, key string, dp theme.Daypart) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("capture: bad viewer URL: %w", err)
	}
	q := u.Query()
	q.Set("preview", key)
	q.Set("daypart", string(dp))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
