package models

// Verdict is the final outcome of one visual comparison.
type Verdict string

const (
	VerdictPass        Verdict = "pass"
	VerdictNeedsReview Verdict = "needs_review"
	VerdictFail        Verdict = "fail"
)

// AIVerdict is the semantic judge's classification of a design/implementation pair.
type AIVerdict string

const (
	AIVerdictMatch                  AIVerdict = "match"
	AIVerdictMinorDifferences       AIVerdict = "minor_differences"
	AIVerdictSignificantDifferences AIVerdict = "significant_differences"
)

// Valid reports whether v is one of the known judge verdicts.
func (v AIVerdict) Valid() bool {
	switch v {
	case AIVerdictMatch, AIVerdictMinorDifferences, AIVerdictSignificantDifferences:
		return true
	}
	return false
}

// Severity grades a single difference reported by the judge.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// LayoutDirection is the expected main axis of a container.
type LayoutDirection string

const (
	LayoutRow    LayoutDirection = "row"
	LayoutColumn LayoutDirection = "column"
	LayoutGrid   LayoutDirection = "grid"
)
