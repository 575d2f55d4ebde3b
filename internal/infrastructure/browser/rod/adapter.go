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
	"sync"
	"time"

	"kosher/internal/application/port/output"
	"kosher/internal/infrastructure/browser/snapshot"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

const (
	defaultTimeout     = 10 * time.Second
	defaultSlowMotion  = 0
	maxScreenshotWidth = 1024
)

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrBrowserClosed = errors.New("browser is closed")
	ErrRefNotFound   = errors.New("element ref not found")
	ErrUnknownKey    = errors.New("unknown key")
)

// markRefs tags every interactive element with a stable ref. Existing refs
// are kept so that handles survive repeated snapshots of the same page.
const markRefs = `(selector, attr) => {
	let next = 0;
	document.querySelectorAll('[' + attr + ']').forEach(el => {
		const n = parseInt(el.getAttribute(attr).slice(1), 10);
		if (n > next) next = n;
	});
	document.querySelectorAll(selector).forEach(el => {
		if (!el.hasAttribute(attr)) el.setAttribute(attr, 'e' + (++next));
	});
	return next;
}`

type BrowserAdapter struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
	closed   bool
}

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	DevTools   bool
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   false,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
		NoSandbox:  false,
		DevTools:   false,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
	}, nil
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
}

func (b *BrowserAdapter) activePage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.page == nil {
		return nil, ErrBrowserClosed
	}
	return b.page.Context(ctx).Timeout(b.timeout), nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}

	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load failed: %w", err)
	}
	_ = page.WaitIdle(2 * time.Second)
	return nil
}

func (b *BrowserAdapter) Snapshot(ctx context.Context) (string, error) {
	page, err := b.activePage(ctx)
	if err != nil {
		return "", err
	}

	if _, err := page.Eval(markRefs, snapshot.InteractiveSelector, snapshot.RefAttr); err != nil {
		return "", fmt.Errorf("mark refs failed: %w", err)
	}

	rawHTML, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}

	info, err := page.Info()
	if err != nil {
		return "", fmt.Errorf("failed to get page info: %w", err)
	}

	return snapshot.Build(snapshot.Page{URL: info.URL, HTML: rawHTML}, nil)
}

func (b *BrowserAdapter) element(ctx context.Context, ref string) (*rod.Element, error) {
	page, err := b.activePage(ctx)
	if err != nil {
		return nil, err
	}
	selector := fmt.Sprintf(`[%s=%q]`, snapshot.RefAttr, ref)
	has, el, err := page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", ref, err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s (take a new snapshot)", ErrRefNotFound, ref)
	}
	return el, nil
}

func (b *BrowserAdapter) Click(ctx context.Context, ref string) error {
	el, err := b.element(ctx, ref)
	if err != nil {
		return err
	}

	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}

	if page, err := b.activePage(ctx); err == nil {
		_ = page.WaitIdle(time.Second)
	}
	return nil
}

func (b *BrowserAdapter) Type(ctx context.Context, ref, text string, submit bool) error {
	el, err := b.element(ctx, ref)
	if err != nil {
		return err
	}

	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}

	if submit {
		if err := el.Type(input.Enter); err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}
		if page, err := b.activePage(ctx); err == nil {
			_ = page.WaitIdle(time.Second)
		}
	}
	return nil
}

func (b *BrowserAdapter) PressKey(ctx context.Context, key string) error {
	k, err := keyFor(key)
	if err != nil {
		return err
	}
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Keyboard.Type(k); err != nil {
		return fmt.Errorf("failed to press %s: %w", key, err)
	}
	_ = page.WaitIdle(time.Second)
	return nil
}

func (b *BrowserAdapter) WaitForText(ctx context.Context, text string, gone bool) error {
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}
	js := `(text, gone) => document.body !== null && document.body.innerText.includes(text) !== gone`
	if err := page.Wait(rod.Eval(js, text, gone)); err != nil {
		if gone {
			return fmt.Errorf("text %q still present: %w", text, err)
		}
		return fmt.Errorf("text %q did not appear: %w", text, err)
	}
	return nil
}

func (b *BrowserAdapter) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *BrowserAdapter) Resize(ctx context.Context, width, height int) error {
	page, err := b.activePage(ctx)
	if err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("resize failed: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) Screenshot(ctx context.Context) ([]byte, error) {
	page, err := b.activePage(ctx)
	if err != nil {
		return nil, err
	}

	imgBytes, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > maxScreenshotWidth {
		img = imaging.Resize(img, maxScreenshotWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *BrowserAdapter) CurrentURL() string {
	page, err := b.activePage(context.Background())
	if err != nil {
		return ""
	}
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	case "about":
		if rawURL == "about:blank" {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
}

var namedKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"Delete":     input.Delete,
	"Space":      input.Space,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"Home":       input.Home,
	"End":        input.End,
	"PageUp":     input.PageUp,
	"PageDown":   input.PageDown,
}

// keyFor accepts the DOM key names used by Playwright plus single characters.
func keyFor(name string) (input.Key, error) {
	if k, ok := namedKeys[name]; ok {
		return k, nil
	}
	if r := []rune(name); len(r) == 1 && r[0] < 128 {
		return input.Key(r[0]), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}
