package verify

import "github.com/kamilpajak/visualgate/pkg/models"

// InGrayZone reports whether pct lies in the inclusive [pass, fail] band.
func InGrayZone(pct, pass, fail float64) bool {
	return pct >= pass && pct <= fail
}

// ShouldEscalate reports whether the semantic judge should be consulted.
func ShouldEscalate(force bool, pct, pass, fail float64) bool {
	return force || InGrayZone(pct, pass, fail)
}

// ReduceVerdict combines every layer into the final verdict. A failed
// structure check always wins; the judge only matters inside the gray zone.
func ReduceVerdict(structurePassed bool, pct, pass, fail float64, ai *models.AIComparisonResult) models.Verdict {
	switch {
	case !structurePassed:
		return models.VerdictFail
	case pct < pass:
		return models.VerdictPass
	case pct > fail:
		return models.VerdictFail
	case ai == nil:
		return models.VerdictNeedsReview
	}

	switch ai.Verdict {
	case models.AIVerdictMatch:
		return models.VerdictPass
	case models.AIVerdictMinorDifferences:
		return models.VerdictNeedsReview
	default:
		return models.VerdictFail
	}
}

// ThresholdVerdict is the rule used when neither structure nor judge is
// available.
func ThresholdVerdict(pct, pass, fail float64) models.Verdict {
	return ReduceVerdict(true, pct, pass, fail, nil)
}
