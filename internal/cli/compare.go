package cli

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/internal/verify"
)

// Defaults for the compare command.
const (
	DefaultOutputDir   = "./visual-diffs"
	DefaultComponentID = "component"
)

// CompareArgs are the validated arguments of the compare command.
type CompareArgs struct {
	Design      string
	Actual      string
	Output      string
	ComponentID string
}

// ParseCompareArgs validates raw flag values and applies defaults.
func ParseCompareArgs(design, actual, output, componentID string) (*CompareArgs, error) {
	var missing []string
	if strings.TrimSpace(design) == "" {
		missing = append(missing, "--design")
	}
	if strings.TrimSpace(actual) == "" {
		missing = append(missing, "--actual")
	}
	if len(missing) > 0 {
		return nil, argErrorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	if output == "" {
		output = DefaultOutputDir
	}
	if componentID == "" {
		componentID = DefaultComponentID
	}
	return &CompareArgs{
		Design:      design,
		Actual:      actual,
		Output:      output,
		ComponentID: componentID,
	}, nil
}

func newCompareCmd(a *app) *cobra.Command {
	var design, actual, output, componentID string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Pixel-compare an implementation screenshot with a design image",
		Long: `Compare two PNG files and print one JSON line with the verdict.

The verdict uses the configured thresholds only: below the pass threshold is
pass, above the fail threshold is fail, and the band in between is
needs_review.`,
		Args:        noArgs,
		Annotations: map[string]string{jsonErrors: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.OutputDir
			}
			parsed, err := ParseCompareArgs(design, actual, output, componentID)
			if err != nil {
				return err
			}
			return a.runCompare(cmd.OutOrStdout(), parsed)
		},
	}

	cmd.Flags().StringVar(&design, "design", "", "Design reference PNG (required)")
	cmd.Flags().StringVar(&actual, "actual", "", "Implementation screenshot PNG (required)")
	cmd.Flags().StringVar(&output, "output", "", "Directory for actual and diff images (default "+DefaultOutputDir+")")
	cmd.Flags().StringVar(&componentID, "component-id", "", "Component identifier (default "+DefaultComponentID+")")
	return cmd
}

func (a *app) runCompare(stdout io.Writer, args *CompareArgs) error {
	differ := pixeldiff.New(args.Output, a.log)
	res, err := verify.CompareFiles(differ, args.ComponentID, args.Design, args.Actual, a.cfg.Thresholds.Pass, a.cfg.Thresholds.Fail)
	if err != nil {
		a.log.Error().Err(err).Str("component_id", args.ComponentID).Msg("comparison failed")
		writeErrorJSON(stdout, err)
		return &ExitError{Code: ExitFailure}
	}

	a.log.Debug().
		Str("component_id", res.ComponentID).
		Str("verdict", string(res.Verdict)).
		Float64("diff_percentage", res.PixelDiff.DiffPercentage).
		Msg("comparison complete")
	return json.NewEncoder(stdout).Encode(res)
}

func writeErrorJSON(w io.Writer, err error) {
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
