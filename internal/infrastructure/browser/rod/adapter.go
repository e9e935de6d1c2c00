package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

var ErrInvalidURL = errors.New("invalid URL")

const (
	defaultTimeout     = 30 * time.Second
	defaultBodyWait    = 5 * time.Second
	defaultSettle      = 2 * time.Second
	screenshotMaxWidth = 1024
	screenshotQuality  = 80
)

type BrowserConfig struct {
	Headless  bool
	NoSandbox bool
	// Timeout bounds navigation and load of a single page.
	Timeout time.Duration
	// BodyWait is how long to wait for <body>; expiry is not an error.
	BodyWait time.Duration
	// Settle is a fixed pause after load so client-side scripts can finish.
	Settle time.Duration
	// SnapshotDir, when set, receives a JPEG of every rendered page.
	SnapshotDir string
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless: true,
		Timeout:  defaultTimeout,
		BodyWait: defaultBodyWait,
		Settle:   defaultSettle,
	}
}

// BrowserAdapter launches a fresh Chromium per Render, so concurrent runs
// never share tabs, cookies or storage.
type BrowserAdapter struct {
	cfg    BrowserConfig
	logger output.LoggerPort
}

func NewBrowserAdapter(cfg BrowserConfig, logger output.LoggerPort) *BrowserAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BodyWait <= 0 {
		cfg.BodyWait = defaultBodyWait
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	return &BrowserAdapter{cfg: cfg, logger: logger}
}

// Available reports whether a local Chromium can be found without downloading one.
func Available() bool {
	_, ok := launcher.LookPath()
	return ok
}

func (b *BrowserAdapter) Render(ctx context.Context, rawURL string) (*entity.PageContent, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	start := time.Now()
	l := launcher.New().
		Context(ctx).
		Headless(b.cfg.Headless).
		NoSandbox(b.cfg.NoSandbox)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		l.Kill()
		l.Cleanup()
	}()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	loading := page.Timeout(b.cfg.Timeout)
	if err := loading.Navigate(rawURL); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	if err := loading.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page load failed: %w", err)
	}

	if _, err := page.Timeout(b.cfg.BodyWait).Element("body"); err != nil {
		b.logger.Warn("Body did not appear in time", "url", rawURL, "wait", b.cfg.BodyWait)
	}

	if err := sleep(ctx, b.cfg.Settle); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML: %w", err)
	}

	content := &entity.PageContent{URL: rawURL, HTML: html}
	if info, err := page.Info(); err == nil {
		content.URL = info.URL
		content.Title = info.Title
	}

	b.logger.Debug("Page rendered",
		"url", content.URL,
		"title", content.Title,
		"html_bytes", len(html),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if b.cfg.SnapshotDir != "" {
		b.snapshot(page, rawURL)
	}

	return content, nil
}

// snapshot failures are logged only; they never fail a render.
func (b *BrowserAdapter) snapshot(page *rod.Page, rawURL string) {
	shot, err := Screenshot(page)
	if err != nil {
		b.logger.Warn("Snapshot failed", "url", rawURL, "error", err)
		return
	}
	if err := os.MkdirAll(b.cfg.SnapshotDir, 0o755); err != nil {
		b.logger.Warn("Snapshot dir not writable", "dir", b.cfg.SnapshotDir, "error", err)
		return
	}
	path := filepath.Join(b.cfg.SnapshotDir, snapshotName(rawURL, time.Now()))
	if err := os.WriteFile(path, shot.Data, 0o644); err != nil {
		b.logger.Warn("Snapshot write failed", "path", path, "error", err)
		return
	}
	b.logger.Debug("Snapshot saved", "path", path, "width", shot.Width, "height", shot.Height)
}

// Screenshot captures the viewport as JPEG, scaled down to at most 1024px wide.
func Screenshot(page *rod.Page) (*entity.Screenshot, error) {
	imgBytes, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(screenshotQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return encodeScreenshot(imgBytes)
}

func encodeScreenshot(raw []byte) (*entity.Screenshot, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > screenshotMaxWidth {
		img = imaging.Resize(img, screenshotMaxWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func snapshotName(rawURL string, at time.Time) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = u.Host + u.Path
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, name)
	name = strings.Trim(name, "_")
	if len(name) > 100 {
		name = name[:100]
	}
	return fmt.Sprintf("%s_%s.jpg", at.UTC().Format("20060102T150405.000"), name)
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	}
	return fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidURL, u.Scheme, rawURL)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
