// Package rodbrowser is a rendering session backed by go-rod and a local
// Chrome, for hosts without the playwright driver.
package rodbrowser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/kamilpajak/visualgate/internal/structure"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// ErrNotOpen is returned when a session has no page loaded.
var ErrNotOpen = errors.New("no page open")

// Options configures a browser session.
type Options struct {
	Headless   bool
	ChromePath string
	Viewport   models.Viewport
}

// Session is one Chrome page. Methods serialize on the page.
type Session struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	log      zerolog.Logger
	opened   bool
}

// Launch starts Chrome and opens a blank page sized to opts.Viewport.
func Launch(ctx context.Context, opts Options, log zerolog.Logger) (*Session, error) {
	l := launcher.New().Headless(opts.Headless)
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}
	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("hide-scrollbars").
		Set("force-device-scale-factor", "1")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	s := &Session{
		launcher: l,
		browser:  browser,
		page:     page,
		log:      log.With().Str("component", "rodbrowser").Logger(),
	}
	if err := s.setViewport(ctx, opts.Viewport); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) setViewport(ctx context.Context, vp models.Viewport) error {
	if err := s.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}
	return nil
}

// Open navigates the page to url and waits for load.
func (s *Session) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("page load timeout for %s: %w", url, err)
	}
	s.opened = true
	s.log.Debug().Str("url", url).Msg("page loaded")
	return nil
}

// Capture screenshots the first element matching selector as PNG.
func (s *Session) Capture(ctx context.Context, selector string, viewport *models.Viewport) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil, ErrNotOpen
	}

	if viewport != nil {
		if err := s.setViewport(ctx, *viewport); err != nil {
			return nil, err
		}
	}

	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %s not found: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("element %s not visible: %w", selector, err)
	}

	shot, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to screenshot %s: %w", selector, err)
	}
	return shot, nil
}

// Inspect evaluates the structure script against selector.
func (s *Session) Inspect(ctx context.Context, selector string, required []string) (*structure.TreeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil, ErrNotOpen
	}

	res, err := s.page.Context(ctx).Eval(structure.InspectScript, structure.NewInspectArgs(selector, required).Map())
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate inspect script: %w", err)
	}

	return structure.DecodeTreeInfo(res.Value)
}

// Close shuts down the browser and removes the launcher's profile.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.browser.Close()
	s.launcher.Cleanup()
	return err
}
