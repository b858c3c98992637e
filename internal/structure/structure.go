// Package structure checks the rendered element tree under a container
// against an expected shape, independent of pixel content.
package structure

import (
	"context"
	"fmt"
	"strings"

	"github.com/kamilpajak/visualgate/pkg/models"
)

// CountTolerance is the allowed absolute deviation in direct child count,
// absorbing incidental wrapper nodes.
const CountTolerance = 2

// TreeInfo is what an Inspector reports about the root container.
type TreeInfo struct {
	Found         bool           `json:"found"`
	ChildCount    int            `json:"childCount"`
	Display       string         `json:"display"`
	FlexDirection string         `json:"flexDirection"`
	Matches       map[string]int `json:"matches"`
}

// Inspector reads layout facts from a live rendering session.
type Inspector interface {
	Inspect(ctx context.Context, selector string, required []string) (*TreeInfo, error)
}

// Checker runs structure checks through an Inspector.
type Checker struct {
	inspector Inspector
}

// NewChecker creates a Checker backed by inspector.
func NewChecker(inspector Inspector) *Checker {
	return &Checker{inspector: inspector}
}

// Check inspects the tree under selector and evaluates it against expected.
func (c *Checker) Check(ctx context.Context, selector string, expected models.ExpectedStructure) (*models.StructureCheckResult, error) {
	info, err := c.inspector.Inspect(ctx, selector, expected.RequiredChildren)
	if err != nil {
		return nil, fmt.Errorf("could not inspect %s: %w", selector, err)
	}
	res := Evaluate(selector, expected, *info)
	return &res, nil
}

// Evaluate compares reported tree facts with the expected shape. Every
// required child selector is checked; all misses are reported in order.
func Evaluate(selector string, expected models.ExpectedStructure, info TreeInfo) models.StructureCheckResult {
	res := models.StructureCheckResult{
		ExpectedElementCount: expected.ElementCount,
		ActualElementCount:   info.ChildCount,
		MissingElements:      []string{},
		ExtraElements:        []string{},
	}

	if !info.Found {
		res.ActualElementCount = 0
		res.MissingElements = append(res.MissingElements, selector)
		res.LayoutMatch = false
		res.Passed = false
		return res
	}

	res.LayoutMatch = LayoutMatches(expected.LayoutDirection, info.Display, info.FlexDirection)

	for _, child := range expected.RequiredChildren {
		if info.Matches[child] == 0 {
			res.MissingElements = append(res.MissingElements, child)
		}
	}

	res.Passed = len(res.MissingElements) == 0 &&
		res.LayoutMatch &&
		absInt(res.ActualElementCount-res.ExpectedElementCount) <= CountTolerance

	return res
}

// LayoutMatches reports whether a computed display/flex-direction pair
// satisfies the expected direction. An empty direction always matches.
func LayoutMatches(want models.LayoutDirection, display, flexDirection string) bool {
	display = strings.ToLower(strings.TrimSpace(display))
	flexDirection = strings.ToLower(strings.TrimSpace(flexDirection))

	switch want {
	case "":
		return true
	case models.LayoutGrid:
		return display == "grid" || display == "inline-grid"
	case models.LayoutRow:
		return isFlex(display) && (flexDirection == "row" || flexDirection == "row-reverse" || flexDirection == "")
	case models.LayoutColumn:
		return isFlex(display) && (flexDirection == "column" || flexDirection == "column-reverse")
	}
	return false
}

func isFlex(display string) bool {
	return display == "flex" || display == "inline-flex"
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
