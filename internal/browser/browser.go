// Package browser wraps a playwright browser as a scoped session: opened
// once per run, recycled to bound memory growth, closed on every exit path.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	EngineChromium = "chromium"
	EngineFirefox  = "firefox"
)

var ErrClosed = errors.New("browser session closed")

type Options struct {
	Engine         string
	Headless       bool
	Timeout        time.Duration
	SettleDelay    time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Engine:         EngineChromium,
		Headless:       true,
		Timeout:        60 * time.Second,
		SettleDelay:    2 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-IN,en;q=0.9",
		TimezoneID:     "Asia/Kolkata",
		Locale:         "en-IN",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		},
	}
}

func (o *Options) validate() error {
	switch o.Engine {
	case EngineChromium, EngineFirefox:
	default:
		return fmt.Errorf("unsupported browser engine %q", o.Engine)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("browser timeout must be positive")
	}
	return nil
}

type Session struct {
	opts   *Options
	logger *slog.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	closed  bool

	// launch opens browser, context and page. New sets it to open.
	launch func() error
}

func New(opts *Options, logger *slog.Logger) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{
		opts:   opts,
		logger: logger.With("component", "browser"),
		pw:     pw,
	}
	s.launch = s.open
	if err := s.open(); err != nil {
		pw.Stop()
		return nil, err
	}
	return s, nil
}

func (s *Session) launcher() playwright.BrowserType {
	if s.opts.Engine == EngineFirefox {
		return s.pw.Firefox
	}
	return s.pw.Chromium
}

// open launches a browser with a fresh context and page. Callers hold mu
// or own the session exclusively.
func (s *Session) open() error {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &s.opts.Headless,
	}
	if s.opts.Engine == EngineChromium {
		launchOpts.Args = []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		}
	}

	browser, err := s.launcher().Launch(launchOpts)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	headers := make(map[string]string, len(s.opts.ExtraHeaders)+1)
	for k, v := range s.opts.ExtraHeaders {
		headers[k] = v
	}
	if s.opts.AcceptLanguage != "" {
		headers["Accept-Language"] = s.opts.AcceptLanguage
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &s.opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &s.opts.Locale,
		TimezoneId:        &s.opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	})
	if err != nil {
		browser.Close()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))

	s.browser = browser
	s.context = bctx
	s.page = page
	return nil
}

func (s *Session) shutdown() []error {
	var errs []error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
		s.context = nil
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		s.browser = nil
	}
	return errs
}

// Recycle throws away the browser process and starts a new one.
func (s *Session) Recycle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	for _, err := range s.shutdown() {
		s.logger.Warn("error while recycling browser", "error", err)
	}
	if err := s.launch(); err != nil {
		return fmt.Errorf("recycle browser: %w", err)
	}
	s.logger.Debug("browser recycled")
	return nil
}

// Fetch navigates to url and returns the rendered HTML.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigate(ctx, url); err != nil {
		return "", err
	}
	s.scrollToBottom(ctx, 3)
	return s.content()
}

// LoadAll opens a listing page and keeps clicking its "load more" control
// until the control disappears or maxClicks is reached.
func (s *Session) LoadAll(ctx context.Context, url, loadMoreSelector string, maxClicks int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.navigate(ctx, url); err != nil {
		return "", err
	}

	clicks := 0
	for loadMoreSelector != "" && clicks < maxClicks {
		if ctx.Err() != nil {
			break
		}
		button := s.page.Locator(loadMoreSelector).First()
		count, err := button.Count()
		if err != nil || count == 0 {
			break
		}
		visible, err := button.IsVisible()
		if err != nil || !visible {
			break
		}
		if err := button.ScrollIntoViewIfNeeded(); err != nil {
			s.logger.Debug("scroll to load more failed", "error", err)
		}
		if err := button.Click(); err != nil {
			s.logger.Debug("load more click failed", "url", url, "clicks", clicks, "error", err)
			break
		}
		clicks++
		s.wait(ctx, s.opts.SettleDelay)
	}

	s.logger.Info("listing loaded", "url", url, "load_more_clicks", clicks)
	s.scrollToBottom(ctx, 5)
	return s.content()
}

// navigate reopens the browser first when a failed recycle left the
// session without a page.
func (s *Session) navigate(ctx context.Context, url string) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.page == nil {
		if err := s.launch(); err != nil {
			return fmt.Errorf("reopen browser: %w", err)
		}
		s.logger.Info("browser reopened")
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	s.wait(ctx, s.opts.SettleDelay)
	return nil
}

// scrollToBottom nudges lazy-loaded tiles and images into the DOM.
func (s *Session) scrollToBottom(ctx context.Context, steps int) {
	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.page.Evaluate(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return
		}
		s.wait(ctx, 500*time.Millisecond)
	}
}

func (s *Session) content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

func (s *Session) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	errs := s.shutdown()
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}
