package models

import "time"

// StructureCheckResult describes how the rendered element tree compares to the expected shape.
type StructureCheckResult struct {
	Passed               bool     `json:"passed"`
	ExpectedElementCount int      `json:"expectedElementCount"`
	ActualElementCount   int      `json:"actualElementCount"`
	LayoutMatch          bool     `json:"layoutMatch"`
	MissingElements      []string `json:"missingElements"`
	ExtraElements        []string `json:"extraElements"` // reserved, never populated
}

// VacuousStructureCheck is used when no expected shape was supplied.
func VacuousStructureCheck() StructureCheckResult {
	return StructureCheckResult{
		Passed:          true,
		LayoutMatch:     true,
		MissingElements: []string{},
		ExtraElements:   []string{},
	}
}

// PixelDiffResult is the outcome of a per-pixel comparison.
type PixelDiffResult struct {
	DiffPercentage    float64 `json:"diffPercentage"`
	TotalPixels       int     `json:"totalPixels"`
	DiffPixels        int     `json:"diffPixels"`
	DiffImagePath     string  `json:"diffImagePath"`
	ActualImagePath   string  `json:"actualImagePath"`
	ExpectedImagePath string  `json:"expectedImagePath"`
}

// Difference is one discrepancy reported by the semantic judge.
type Difference struct {
	Severity    Severity `json:"severity"`
	Area        string   `json:"area"`
	Description string   `json:"description"`
}

// AIComparisonResult is the parsed response of the semantic judge.
type AIComparisonResult struct {
	Verdict     AIVerdict    `json:"verdict"`
	Differences []Difference `json:"differences"`
	Confidence  float64      `json:"confidence"`
	Summary     string       `json:"summary,omitempty"`
	RawResponse string       `json:"rawResponse"`
}

// VisualDiffResult aggregates every layer of one comparison. It is never
// mutated after the orchestrator returns it.
type VisualDiffResult struct {
	ComponentID    string               `json:"componentId"`
	StructureCheck StructureCheckResult `json:"structureCheck"`
	PixelDiff      PixelDiffResult      `json:"pixelDiff"`
	AIComparison   *AIComparisonResult  `json:"aiComparison,omitempty"`
	Verdict        Verdict              `json:"verdict"`
	Timestamp      time.Time            `json:"timestamp"`
}
