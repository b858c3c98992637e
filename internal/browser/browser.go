// Package browser selects a rendering backend from configuration.
package browser

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kamilpajak/visualgate/internal/config"
	"github.com/kamilpajak/visualgate/internal/playwright"
	"github.com/kamilpajak/visualgate/internal/rodbrowser"
	"github.com/kamilpajak/visualgate/internal/verify"
)

// Session is a rendering session that can be pointed at a page.
type Session interface {
	verify.Renderer
	Open(ctx context.Context, url string) error
	Close() error
}

// Launcher starts a new session.
type Launcher func(ctx context.Context) (Session, error)

var (
	_ Session = (*playwright.Session)(nil)
	_ Session = (*rodbrowser.Session)(nil)
)

// NewLauncher returns a Launcher for the configured engine.
func NewLauncher(cfg config.BrowserConfig, log zerolog.Logger) (Launcher, error) {
	switch cfg.Engine {
	case "", "playwright":
		return func(context.Context) (Session, error) {
			if !playwright.IsAvailable() {
				return nil, fmt.Errorf("playwright not installed. Run: visualgate install-browsers")
			}
			s, err := playwright.Launch(playwright.Options{Headless: cfg.Headless, Viewport: cfg.Viewport}, log)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case "rod":
		return func(ctx context.Context) (Session, error) {
			s, err := rodbrowser.Launch(ctx, rodbrowser.Options{
				Headless:   cfg.Headless,
				ChromePath: cfg.ChromePath,
				Viewport:   cfg.Viewport,
			}, log)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q (playwright, rod)", cfg.Engine)
	}
}

// OpenPage launches a session and navigates it to url. The caller closes
// the session.
func OpenPage(ctx context.Context, launch Launcher, url string) (Session, error) {
	s, err := launch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx, url); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
