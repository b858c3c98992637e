// Package verify runs the visual verification pipeline: capture, structure
// check, pixel diff, optional escalation to a semantic judge and reduction to
// a single verdict.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/kamilpajak/visualgate/internal/events"
	"github.com/kamilpajak/visualgate/internal/imaging"
	"github.com/kamilpajak/visualgate/internal/judge"
	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/internal/structure"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// ErrNoRenderer is returned when a live comparison is requested without a
// rendering session.
var ErrNoRenderer = errors.New("no rendering session available")

// Renderer is a live rendering session: it can screenshot an element and
// inspect its subtree.
type Renderer interface {
	structure.Inspector
	// Capture returns a PNG screenshot of the first element matching
	// selector, after resizing the viewport when one is given.
	Capture(ctx context.Context, selector string, viewport *models.Viewport) ([]byte, error)
}

// Orchestrator runs comparisons. Judge and Emitter are optional.
type Orchestrator struct {
	Renderer Renderer
	Judge    judge.Judge
	Differ   *pixeldiff.Differ
	Emitter  events.Emitter
	Log      zerolog.Logger
	Now      func() time.Time
}

// New creates an orchestrator writing artifacts through differ.
func New(renderer Renderer, j judge.Judge, differ *pixeldiff.Differ, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		Renderer: renderer,
		Judge:    j,
		Differ:   differ,
		Log:      log.With().Str("component", "verify").Logger(),
	}
}

// Compare runs the full pipeline for one component. It either returns a
// complete result or an error; judge failures never abort it.
func (o *Orchestrator) Compare(ctx context.Context, opts models.CompareOptions) (*models.VisualDiffResult, error) {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log := o.Log.With().Str("component_id", opts.ComponentID).Logger()
	o.emit(events.Started(opts.ComponentID, o.now()))

	result, err := o.compare(ctx, log, opts)
	if err != nil {
		log.Error().Err(err).Msg("comparison aborted")
		o.emit(events.Failed(opts.ComponentID, err, o.now()))
		return nil, err
	}

	log.Info().
		Str("verdict", string(result.Verdict)).
		Float64("diff_percentage", result.PixelDiff.DiffPercentage).
		Bool("structure_passed", result.StructureCheck.Passed).
		Bool("judged", result.AIComparison != nil).
		Msg("comparison complete")
	o.emit(events.FromResult(result))
	return result, nil
}

func (o *Orchestrator) compare(ctx context.Context, log zerolog.Logger, opts models.CompareOptions) (*models.VisualDiffResult, error) {
	if o.Renderer == nil {
		return nil, ErrNoRenderer
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shot, err := o.Renderer.Capture(ctx, opts.Selector, opts.Viewport)
	if err != nil {
		return nil, fmt.Errorf("could not capture %s: %w", opts.Selector, err)
	}
	actual, err := imaging.DecodeBytes(opts.Selector+" screenshot", shot)
	if err != nil {
		return nil, err
	}

	structureCheck := models.VacuousStructureCheck()
	if opts.Expected != nil {
		checked, err := structure.NewChecker(o.Renderer).Check(ctx, opts.Selector, *opts.Expected)
		if err != nil {
			return nil, err
		}
		structureCheck = *checked
		log.Debug().
			Bool("passed", checked.Passed).
			Int("actual_count", checked.ActualElementCount).
			Strs("missing", checked.MissingElements).
			Msg("structure checked")
	}

	pixel, err := o.Differ.CompareBitmap(opts.ComponentID, opts.DesignScreenshotPath, actual)
	if err != nil {
		return nil, err
	}

	var ai *models.AIComparisonResult
	if o.Judge != nil && ShouldEscalate(opts.RunAIComparison, pixel.DiffPercentage, opts.PassThreshold, opts.FailThreshold) {
		ai = o.judge(ctx, log, opts, shot)
	}

	return &models.VisualDiffResult{
		ComponentID:    opts.ComponentID,
		StructureCheck: structureCheck,
		PixelDiff:      *pixel,
		AIComparison:   ai,
		Verdict:        ReduceVerdict(structureCheck.Passed, pixel.DiffPercentage, opts.PassThreshold, opts.FailThreshold, ai),
		Timestamp:      o.now(),
	}, nil
}

// judge consults the semantic judge, absorbing every failure.
func (o *Orchestrator) judge(ctx context.Context, log zerolog.Logger, opts models.CompareOptions, actualPNG []byte) *models.AIComparisonResult {
	design, err := os.ReadFile(opts.DesignScreenshotPath)
	if err != nil {
		log.Warn().Err(err).Msg("skipping judge: design unreadable")
		return nil
	}

	started := time.Now()
	ai, err := o.Judge.Judge(ctx, judge.Request{
		ComponentName: opts.ComponentID,
		DesignImage:   design,
		ActualImage:   actualPNG,
	})
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(started)).Msg("judge unavailable")
		return nil
	}
	log.Debug().Str("ai_verdict", string(ai.Verdict)).Float64("confidence", ai.Confidence).Dur("elapsed", time.Since(started)).Msg("judge replied")
	return ai
}

func (o *Orchestrator) emit(ev events.Event) {
	if o.Emitter != nil {
		o.Emitter.Emit(ev)
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}
