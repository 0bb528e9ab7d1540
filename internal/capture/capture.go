// Package capture snapshots the rendered timeline into a PNG with a
// headless Chromium.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth   = 1200
	DefaultHeight  = 800
	DefaultTimeout = 30 * time.Second
)

// Options defines parameters for a screenshot.
type Options struct {
	// URL to capture, usually the /api/timeline.svg endpoint.
	URL string

	// OutputPath is where the PNG is written. Missing parent directories
	// are created.
	OutputPath string

	// Viewport size in pixels. Zero means DefaultWidth / DefaultHeight.
	Width  int
	Height int

	Timeout time.Duration

	// Username and Password are sent as HTTP Basic credentials when both
	// are set, for capturing a server that has basic_auth enabled.
	Username string
	Password string
}

// authorization returns the Authorization header value for opts, or "" when
// no credentials are configured.
func (o Options) authorization() string {
	if o.Username == "" || o.Password == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(o.Username+":"+o.Password))
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

// CaptureTimelinePNG navigates to opts.URL, waits for the root <svg> element
// and writes a full-page PNG screenshot to opts.OutputPath.
func CaptureTimelinePNG(parentCtx context.Context, opts Options) error {
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
	}
	if auth := opts.authorization(); auth != "" {
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Authorization": auth}),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`svg`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: failed to create output dir: %w", err)
	}
	// Write then rename so /preview.png never serves a partial file.
	tmp := opts.OutputPath + ".tmp"
	if err := os.WriteFile(tmp, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	if err := os.Rename(tmp, opts.OutputPath); err != nil {
		return fmt.Errorf("capture: failed to move PNG into place: %w", err)
	}
	return nil
}
