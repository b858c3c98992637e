// Package playwright drives a headless Chromium through playwright-go and
// exposes it as a rendering session for visual comparisons.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/kamilpajak/visualgate/internal/structure"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// ErrNotOpen is returned when a session has no page loaded.
var ErrNotOpen = errors.New("no page open")

// Options configures a browser session.
type Options struct {
	Headless bool
	Viewport models.Viewport
	// TimeoutMS bounds navigation and element waits. Zero uses playwright's default.
	TimeoutMS float64
}

// Session is one browser page. Methods serialize on the page, so a session
// may be shared between goroutines.
type Session struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opts    Options
	log     zerolog.Logger
	opened  bool
}

// Launch starts playwright and a Chromium page sized to opts.Viewport.
func Launch(opts Options, log zerolog.Logger) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	if opts.TimeoutMS > 0 {
		page.SetDefaultTimeout(opts.TimeoutMS)
	}

	return &Session{
		pw:      pw,
		browser: browser,
		page:    page,
		opts:    opts,
		log:     log.With().Str("component", "playwright").Logger(),
	}, nil
}

// Open navigates the page to url and waits for the network to go idle.
func (s *Session) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("could not navigate: %w", err)
	}
	s.opened = true
	s.log.Debug().Str("url", url).Msg("page loaded")
	return nil
}

// Capture screenshots the first element matching selector as PNG.
func (s *Session) Capture(ctx context.Context, selector string, viewport *models.Viewport) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	if viewport != nil {
		if err := s.page.SetViewportSize(viewport.Width, viewport.Height); err != nil {
			return nil, fmt.Errorf("could not resize viewport: %w", err)
		}
	}

	el := s.page.Locator(selector).First()
	if err := el.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return nil, fmt.Errorf("element %s not visible: %w", selector, err)
	}

	shot, err := el.Screenshot(playwright.LocatorScreenshotOptions{
		Type:       playwright.ScreenshotTypePng,
		Animations: playwright.ScreenshotAnimationsDisabled,
	})
	if err != nil {
		return nil, fmt.Errorf("could not screenshot %s: %w", selector, err)
	}
	return shot, nil
}

// Inspect evaluates the structure script against selector.
func (s *Session) Inspect(ctx context.Context, selector string, required []string) (*structure.TreeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	res, err := s.page.Evaluate(structure.InspectScript, structure.NewInspectArgs(selector, required).Map())
	if err != nil {
		return nil, fmt.Errorf("could not evaluate inspect script: %w", err)
	}
	return structure.DecodeTreeInfo(res)
}

func (s *Session) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.opened {
		return ErrNotOpen
	}
	return nil
}

// Close releases the page, the browser and the driver.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.browser.Close(), s.pw.Stop())
}

// Install installs playwright browsers
func Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

// IsAvailable checks if playwright browsers are installed
func IsAvailable() bool {
	pw, err := playwright.Run()
	if err != nil {
		return false
	}
	_ = pw.Stop()
	return true
}
