package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default escalation thresholds, in percent of differing pixels.
const (
	DefaultPassThreshold = 5.0
	DefaultFailThreshold = 15.0
)

// Viewport is the browser viewport size used before capturing.
type Viewport struct {
	Width  int `json:"width" yaml:"width" validate:"gt=0"`
	Height int `json:"height" yaml:"height" validate:"gt=0"`
}

// ExpectedStructure describes the shape the rendered container should have.
type ExpectedStructure struct {
	ElementCount     int             `json:"elementCount" yaml:"element_count" validate:"gte=0"`
	LayoutDirection  LayoutDirection `json:"layoutDirection,omitempty" yaml:"layout_direction,omitempty" validate:"omitempty,oneof=row column grid"`
	RequiredChildren []string        `json:"requiredChildren,omitempty" yaml:"required_children,omitempty" validate:"dive,required"`
}

// CompareOptions configures one orchestrated comparison.
type CompareOptions struct {
	ComponentID          string             `json:"componentId" validate:"required"`
	Selector             string             `json:"selector" validate:"required"`
	DesignScreenshotPath string             `json:"designScreenshotPath" validate:"required"`
	RunAIComparison      bool               `json:"runAIComparison"`
	PassThreshold        float64            `json:"passThreshold" validate:"gte=0,ltfield=FailThreshold"`
	FailThreshold        float64            `json:"failThreshold" validate:"lte=100"`
	Viewport             *Viewport          `json:"viewport,omitempty" validate:"omitempty"`
	Expected             *ExpectedStructure `json:"expected,omitempty" validate:"omitempty"`
}

// ApplyDefaults fills in the thresholds when FailThreshold is unset. A zero
// fail threshold can never satisfy pass < fail, so zero means "not given".
func (o *CompareOptions) ApplyDefaults() {
	if o.FailThreshold == 0 {
		o.FailThreshold = DefaultFailThreshold
		if o.PassThreshold == 0 {
			o.PassThreshold = DefaultPassThreshold
		}
	}
}

var validate = validator.New()

// Validate checks required fields and 0 <= pass < fail <= 100.
func (o *CompareOptions) Validate() error {
	return describe(validate.Struct(o))
}

// ValidateThresholds checks 0 <= pass < fail <= 100 on its own, for callers
// that have no selector (file mode).
func ValidateThresholds(pass, fail float64) error {
	if pass < 0 || fail > 100 || pass >= fail {
		return fmt.Errorf("invalid thresholds: need 0 <= pass (%.2f) < fail (%.2f) <= 100", pass, fail)
	}
	return nil
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", e.Namespace(), e.Tag(), e.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("invalid compare options: %s", strings.Join(msgs, "; "))
}
