package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kamilpajak/visualgate/internal/browser"
	"github.com/kamilpajak/visualgate/internal/judge"
	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/internal/verify"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// SmokeOutcome is the result of one manifest entry.
type SmokeOutcome struct {
	ComponentID    string                   `json:"component_id"`
	Verdict        models.Verdict           `json:"verdict,omitempty"`
	DiffPercentage float64                  `json:"diff_percentage"`
	Error          string                   `json:"error,omitempty"`
	Result         *models.VisualDiffResult `json:"-"`
}

// SmokeReport summarizes a smoke run.
type SmokeReport struct {
	Components  []SmokeOutcome `json:"components"`
	Passed      int            `json:"passed"`
	NeedsReview int            `json:"needs_review"`
	Failed      int            `json:"failed"`
	Errors      int            `json:"errors"`
}

// ExitCode is 1 when anything failed or errored, 3 when something needs
// review, 0 otherwise.
func (r *SmokeReport) ExitCode() int {
	switch {
	case r.Failed > 0 || r.Errors > 0:
		return ExitFailure
	case r.NeedsReview > 0:
		return ExitNeedsReview
	default:
		return ExitOK
	}
}

func newSmokeCmd(a *app) *cobra.Command {
	var (
		concurrency int
		output      string
		timeout     time.Duration
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "smoke <manifest.yaml>",
		Short: "Verify every component listed in a manifest",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return argErrorf("--concurrency must be at least 1")
			}
			m, err := LoadManifest(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = a.cfg.OutputDir
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			report, err := a.runSmoke(ctx, cmd.ErrOrStderr(), m, output, concurrency)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(report); err != nil {
					return err
				}
			} else {
				printSmokeReport(cmd.OutOrStdout(), report)
			}
			if code := report.ExitCode(); code != ExitOK {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Components compared in parallel")
	cmd.Flags().StringVar(&output, "output", "", "Directory for actual and diff images (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall time limit (0 for none)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	return cmd
}

func (a *app) runSmoke(ctx context.Context, stderr io.Writer, m *Manifest, output string, concurrency int) (*SmokeReport, error) {
	pass, fail := a.cfg.Thresholds.Pass, a.cfg.Thresholds.Fail
	if m.Thresholds != nil {
		pass, fail = m.Thresholds.Pass, m.Thresholds.Fail
	}
	differ := pixeldiff.New(output, a.log)

	var live *liveRunner
	if m.hasLive() {
		launch, err := a.launcher()
		if err != nil {
			return nil, err
		}
		j, err := a.semanticJudge()
		if err != nil {
			return nil, err
		}
		live = &liveRunner{launch: launch, judge: j, differ: differ, log: a.log}
		defer live.close()
	}

	progress := newProgress(stderr, len(m.Components))
	progress.start()

	outcomes := make([]SmokeOutcome, len(m.Components))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, e := range m.Components {
		g.Go(func() error {
			var (
				res *models.VisualDiffResult
				err error
			)
			if e.Live() {
				res, err = live.compare(gctx, e.URL, models.CompareOptions{
					ComponentID:          e.ID,
					Selector:             e.Selector,
					DesignScreenshotPath: e.Design,
					RunAIComparison:      e.RunAI,
					PassThreshold:        pass,
					FailThreshold:        fail,
					Viewport:             m.Viewport,
					Expected:             e.Expected,
				})
			} else {
				var fr *verify.FileResult
				fr, err = verify.CompareFiles(differ, e.ID, e.Design, e.Actual, pass, fail)
				if err == nil {
					res = fr.VisualDiffResult()
				}
			}

			out := SmokeOutcome{ComponentID: e.ID, Result: res}
			if err != nil {
				a.log.Warn().Err(err).Str("component_id", e.ID).Msg("component check failed")
				out.Error = err.Error()
			} else {
				out.Verdict = res.Verdict
				out.DiffPercentage = res.PixelDiff.DiffPercentage
			}
			outcomes[i] = out
			progress.done()
			// per-component errors are reported, not propagated
			return nil
		})
	}
	_ = g.Wait()
	progress.stop()

	report := &SmokeReport{Components: outcomes}
	results := make([]*models.VisualDiffResult, 0, len(outcomes))
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			report.Errors++
		case o.Verdict == models.VerdictPass:
			report.Passed++
		case o.Verdict == models.VerdictNeedsReview:
			report.NeedsReview++
		default:
			report.Failed++
		}
		results = append(results, o.Result)
	}
	a.saveResults(ctx, results...)
	return report, nil
}

// liveRunner shares one browser session between live entries. Entries run
// one at a time because navigating and capturing must not interleave.
type liveRunner struct {
	mu      sync.Mutex
	launch  browser.Launcher
	judge   judge.Judge
	differ  *pixeldiff.Differ
	log     zerolog.Logger
	session browser.Session
	url     string
}

func (l *liveRunner) compare(ctx context.Context, url string, opts models.CompareOptions) (*models.VisualDiffResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		s, err := l.launch(ctx)
		if err != nil {
			return nil, err
		}
		l.session = s
	}
	if l.url != url {
		if err := l.session.Open(ctx, url); err != nil {
			return nil, err
		}
		l.url = url
	}
	return verify.New(l.session, l.judge, l.differ, l.log).Compare(ctx, opts)
}

func (l *liveRunner) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		_ = l.session.Close()
		l.session = nil
	}
}

// progress shows a spinner with a completion count when w is a terminal.
type progress struct {
	s     *spinner.Spinner
	total int
	mu    sync.Mutex
	n     int
}

func newProgress(w io.Writer, total int) *progress {
	p := &progress{total: total}
	if isTerminal(w) {
		p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		p.s.Suffix = fmt.Sprintf(" 0/%d components", total)
	}
	return p
}

func (p *progress) start() {
	if p.s != nil {
		p.s.Start()
	}
}

func (p *progress) done() {
	p.mu.Lock()
	p.n++
	n := p.n
	p.mu.Unlock()

	if p.s != nil {
		p.s.Lock()
		p.s.Suffix = fmt.Sprintf(" %d/%d components", n, p.total)
		p.s.Unlock()
	}
}

func (p *progress) stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printSmokeReport(w io.Writer, r *SmokeReport) {
	dim := color.New(color.FgHiBlack)
	red := color.New(color.FgRed, color.Bold)

	for _, o := range r.Components {
		if o.Error != "" {
			_, _ = red.Fprintf(w, "%-13s", "ERROR")
			fmt.Fprintf(w, " %s", o.ComponentID)
			_, _ = dim.Fprintf(w, "  %s\n", o.Error)
			continue
		}
		_, _ = verdictColor(o.Verdict).Fprintf(w, "%-13s", strings.ToUpper(string(o.Verdict)))
		fmt.Fprintf(w, " %s", o.ComponentID)
		_, _ = dim.Fprintf(w, "  diff %.2f%%\n", o.DiffPercentage)
	}

	fmt.Fprintln(w)
	_, _ = dim.Fprintln(w, "  "+strings.Repeat("━", 40))
	fmt.Fprintf(w, "  %d passed, %d needs review, %d failed, %d errors\n",
		r.Passed, r.NeedsReview, r.Failed, r.Errors)
}
