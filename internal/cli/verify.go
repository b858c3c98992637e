package cli

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/visualgate/internal/browser"
	"github.com/kamilpajak/visualgate/internal/events"
	"github.com/kamilpajak/visualgate/internal/pagehost"
	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/internal/verify"
	"github.com/kamilpajak/visualgate/pkg/models"
)

type verifyFlags struct {
	url            string
	html           string
	selector       string
	design         string
	componentID    string
	output         string
	runAI          bool
	pass           float64
	fail           float64
	viewport       string
	expectCount    int
	expectLayout   string
	expectChildren []string
	timeout        time.Duration
	verbose        bool
}

// VerifyArgs are the validated arguments of the verify command.
type VerifyArgs struct {
	URL      string
	HTMLFile string
	Output   string
	Timeout  time.Duration
	Verbose  bool
	Options  models.CompareOptions
}

func parseVerifyArgs(f verifyFlags) (*VerifyArgs, error) {
	if (f.url == "") == (f.html == "") {
		return nil, argErrorf("exactly one of --url or --html is required")
	}
	if f.selector == "" {
		return nil, argErrorf("required flag --selector not set")
	}
	if f.design == "" {
		return nil, argErrorf("required flag --design not set")
	}
	if f.componentID == "" {
		f.componentID = DefaultComponentID
	}

	opts := models.CompareOptions{
		ComponentID:          f.componentID,
		Selector:             f.selector,
		DesignScreenshotPath: f.design,
		RunAIComparison:      f.runAI,
		PassThreshold:        f.pass,
		FailThreshold:        f.fail,
	}
	if f.viewport != "" {
		vp, err := ParseViewport(f.viewport)
		if err != nil {
			return nil, err
		}
		opts.Viewport = vp
	}
	if f.expectCount >= 0 || f.expectLayout != "" || len(f.expectChildren) > 0 {
		opts.Expected = &models.ExpectedStructure{
			ElementCount:     max(f.expectCount, 0),
			LayoutDirection:  models.LayoutDirection(f.expectLayout),
			RequiredChildren: f.expectChildren,
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, argErrorf("%v", err)
	}

	return &VerifyArgs{
		URL:      f.url,
		HTMLFile: f.html,
		Output:   f.output,
		Timeout:  f.timeout,
		Verbose:  f.verbose,
		Options:  opts,
	}, nil
}

func newVerifyCmd(a *app) *cobra.Command {
	f := verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Render a component and verify it against its design",
		Long: `Render a page in a browser, capture the component matching --selector and
verify it against the design screenshot.

Prints the full result as JSON on stdout and exits 0 for pass, 1 for fail
and 3 for needs_review.`,
		Example: `  visualgate verify --url http://localhost:3000 --selector .card --design designs/card.png
  visualgate verify --html card.html --selector .card --design card.png --expect-count 3 --expect-layout row`,
		Args:        noArgs,
		Annotations: map[string]string{jsonErrors: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("pass") && !cmd.Flags().Changed("fail") {
				f.pass, f.fail = a.cfg.Thresholds.Pass, a.cfg.Thresholds.Fail
			}
			if f.output == "" {
				f.output = a.cfg.OutputDir
			}
			parsed, err := parseVerifyArgs(f)
			if err != nil {
				return err
			}
			return a.runVerify(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), parsed)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.url, "url", "", "Page URL to render")
	flags.StringVar(&f.html, "html", "", "Local HTML file to render")
	flags.StringVar(&f.selector, "selector", "", "CSS selector of the component container (required)")
	flags.StringVar(&f.design, "design", "", "Design reference PNG (required)")
	flags.StringVar(&f.componentID, "component-id", "", "Component identifier (default "+DefaultComponentID+")")
	flags.StringVar(&f.output, "output", "", "Directory for actual and diff images (default from config)")
	flags.BoolVar(&f.runAI, "run-ai", false, "Always consult the vision model, even outside the gray zone")
	flags.Float64Var(&f.pass, "pass", models.DefaultPassThreshold, "Pass threshold in percent")
	flags.Float64Var(&f.fail, "fail", models.DefaultFailThreshold, "Fail threshold in percent")
	flags.StringVar(&f.viewport, "viewport", "", "Viewport size before capture, e.g. 1280x800")
	flags.IntVar(&f.expectCount, "expect-count", -1, "Expected number of direct children")
	flags.StringVar(&f.expectLayout, "expect-layout", "", "Expected layout: row, column or grid")
	flags.StringArrayVar(&f.expectChildren, "expect-child", nil, "Selector that must match inside the container (repeatable)")
	flags.DurationVar(&f.timeout, "timeout", 2*time.Minute, "Overall time limit (0 for none)")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Print pipeline events to stderr")
	return cmd
}

func (a *app) runVerify(ctx context.Context, stdout, stderr io.Writer, args *VerifyArgs) error {
	if args.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, args.Timeout)
		defer cancel()
	}

	result, err := a.verifyLive(ctx, stderr, args)
	if err != nil {
		a.log.Error().Err(err).Str("component_id", args.Options.ComponentID).Msg("verification failed")
		writeErrorJSON(stdout, err)
		return &ExitError{Code: ExitFailure}
	}

	if err := json.NewEncoder(stdout).Encode(result); err != nil {
		return err
	}
	printVerdict(stderr, result)
	a.saveResults(ctx, result)

	if code := exitCode(result.Verdict); code != ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

func (a *app) verifyLive(ctx context.Context, stderr io.Writer, args *VerifyArgs) (*models.VisualDiffResult, error) {
	launch, err := a.launcher()
	if err != nil {
		return nil, err
	}
	j, err := a.semanticJudge()
	if err != nil {
		return nil, err
	}

	url := args.URL
	if args.HTMLFile != "" {
		host, err := pagehost.ServeFile(args.HTMLFile)
		if err != nil {
			return nil, err
		}
		defer host.Stop()
		url = host.EntryURL()
	}

	session, err := browser.OpenPage(ctx, launch, url)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	o := verify.New(session, j, pixeldiff.New(args.Output, a.log), a.log)
	if args.Verbose {
		o.Emitter = &events.TextEmitter{W: stderr}
	}
	return o.Compare(ctx, args.Options)
}
