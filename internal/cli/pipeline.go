package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/kamilpajak/visualgate/internal/browser"
	"github.com/kamilpajak/visualgate/internal/judge"
	"github.com/kamilpajak/visualgate/internal/llm"
	"github.com/kamilpajak/visualgate/internal/store"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// launcher returns the configured browser launcher.
func (a *app) launcher() (browser.Launcher, error) {
	if a.launch != nil {
		return a.launch, nil
	}
	return browser.NewLauncher(a.cfg.Browser, a.log)
}

// semanticJudge returns the configured judge, or nil when no provider key
// is available.
func (a *app) semanticJudge() (judge.Judge, error) {
	if a.judge != nil {
		return a.judge, nil
	}
	if !a.cfg.HasJudge() {
		return nil, nil
	}
	jc := a.cfg.Judge
	client, err := llm.NewClient(llm.Provider(jc.Provider), jc.Model, jc.APIKey,
		llm.WithHTTPClient(&http.Client{Timeout: jc.Timeout}))
	if err != nil {
		return nil, fmt.Errorf("failed to create judge client: %w", err)
	}
	a.log.Debug().Str("provider", string(client.Provider())).Str("model", client.Model()).Msg("judge configured")
	return judge.NewRateLimited(judge.NewLLMJudge(client, a.log), jc.RequestsPerMinute), nil
}

// openStore opens the configured store; it returns nil when persistence is
// disabled.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

// saveResults persists results when a store is configured. Storage
// failures are logged and never change the outcome.
func (a *app) saveResults(ctx context.Context, results ...*models.VisualDiffResult) {
	s, err := a.openStore(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("results not stored")
		return
	}
	if s == nil {
		return
	}
	defer s.Close()

	for _, r := range results {
		if r == nil {
			continue
		}
		rec, err := s.Save(ctx, r)
		if err != nil {
			a.log.Warn().Err(err).Str("component_id", r.ComponentID).Msg("failed to store result")
			continue
		}
		a.log.Debug().Str("id", rec.ID.String()).Str("component_id", r.ComponentID).Msg("result stored")
	}
}

// ParseViewport parses "WIDTHxHEIGHT", e.g. "1280x800".
func ParseViewport(s string) (*models.Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return nil, argErrorf("invalid viewport %q, use WIDTHxHEIGHT", s)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return nil, argErrorf("invalid viewport %q, use WIDTHxHEIGHT", s)
	}
	return &models.Viewport{Width: width, Height: height}, nil
}

// exitCode maps a verdict to the process exit status.
func exitCode(v models.Verdict) int {
	switch v {
	case models.VerdictPass:
		return ExitOK
	case models.VerdictNeedsReview:
		return ExitNeedsReview
	default:
		return ExitFailure
	}
}

func verdictColor(v models.Verdict) *color.Color {
	switch v {
	case models.VerdictPass:
		return color.New(color.FgGreen, color.Bold)
	case models.VerdictNeedsReview:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// printVerdict writes a one-line human summary of r.
func printVerdict(w io.Writer, r *models.VisualDiffResult) {
	dim := color.New(color.FgHiBlack)

	_, _ = verdictColor(r.Verdict).Fprintf(w, "%-13s", strings.ToUpper(string(r.Verdict)))
	fmt.Fprintf(w, " %s", r.ComponentID)
	_, _ = dim.Fprintf(w, "  diff %.2f%%", r.PixelDiff.DiffPercentage)
	if !r.StructureCheck.Passed {
		_, _ = dim.Fprint(w, "  structure mismatch")
	}
	if r.AIComparison != nil {
		_, _ = dim.Fprintf(w, "  ai %s (%.0f%%)", r.AIComparison.Verdict, r.AIComparison.Confidence*100)
	}
	fmt.Fprintln(w)
}
