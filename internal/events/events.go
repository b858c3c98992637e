// Package events projects comparison results into the compact messages
// streamed to progress feeds.
package events

import (
	"fmt"
	"io"
	"time"

	"github.com/kamilpajak/visualgate/pkg/models"
)

// Event types.
const (
	TypeStarted = "visual_diff_started"
	TypeResult  = "visual_diff_result"
	TypeError   = "error"
)

// Event is one message on the progress feed. Field names and nullability are
// relied on by consumers.
type Event struct {
	Type                string            `json:"type"`
	ComponentID         string            `json:"component_id"`
	Verdict             models.Verdict    `json:"verdict,omitempty"`
	PixelDiffPercentage float64           `json:"pixel_diff_percentage"`
	StructurePassed     bool              `json:"structure_passed"`
	AIVerdict           *models.AIVerdict `json:"ai_verdict"`
	DiffImage           *string           `json:"diff_image"`
	Message             string            `json:"message,omitempty"`
	Timestamp           time.Time         `json:"timestamp"`
}

// FromResult projects r into a result event.
func FromResult(r *models.VisualDiffResult) Event {
	ev := Event{
		Type:                TypeResult,
		ComponentID:         r.ComponentID,
		Verdict:             r.Verdict,
		PixelDiffPercentage: r.PixelDiff.DiffPercentage,
		StructurePassed:     r.StructureCheck.Passed,
		Timestamp:           r.Timestamp,
	}
	if r.AIComparison != nil {
		v := r.AIComparison.Verdict
		ev.AIVerdict = &v
	}
	if r.PixelDiff.DiffImagePath != "" {
		p := r.PixelDiff.DiffImagePath
		ev.DiffImage = &p
	}
	return ev
}

// Started announces a comparison.
func Started(componentID string, at time.Time) Event {
	return Event{Type: TypeStarted, ComponentID: componentID, Timestamp: at}
}

// Failed reports a comparison that aborted.
func Failed(componentID string, err error, at time.Time) Event {
	return Event{Type: TypeError, ComponentID: componentID, Message: err.Error(), Timestamp: at}
}

// Emitter receives events.
type Emitter interface {
	Emit(ev Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(Event) {}

// TextEmitter formats events as human-readable lines for CLI output.
type TextEmitter struct {
	W io.Writer
}

// Emit writes a formatted line to the underlying writer.
func (e *TextEmitter) Emit(ev Event) {
	switch ev.Type {
	case TypeStarted:
		fmt.Fprintf(e.W, "[%s] comparing\n", ev.ComponentID)
	case TypeResult:
		fmt.Fprintf(e.W, "[%s] %s  diff=%.2f%%  structure=%t", ev.ComponentID, ev.Verdict, ev.PixelDiffPercentage, ev.StructurePassed)
		if ev.AIVerdict != nil {
			fmt.Fprintf(e.W, "  ai=%s", *ev.AIVerdict)
		}
		fmt.Fprintln(e.W)
	case TypeError:
		fmt.Fprintf(e.W, "[%s] error: %s\n", ev.ComponentID, ev.Message)
	}
}
