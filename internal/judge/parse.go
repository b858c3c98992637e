package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kamilpajak/visualgate/pkg/models"
)

// ErrNoJSON means the judge reply contained no balanced JSON object.
var ErrNoJSON = errors.New("no JSON object in response")

// JudgeParseError reports a judge reply that could not be turned into a
// result. It is never fatal: the fail-closed default accompanies it.
type JudgeParseError struct {
	Raw string
	Err error
}

func (e *JudgeParseError) Error() string {
	return fmt.Sprintf("could not parse judge response: %v", e.Err)
}

func (e *JudgeParseError) Unwrap() error {
	return e.Err
}

// FailClosed is the result used when a reply cannot be parsed.
func FailClosed(raw string) *models.AIComparisonResult {
	return &models.AIComparisonResult{
		Verdict:     models.AIVerdictSignificantDifferences,
		Differences: []models.Difference{},
		Confidence:  0,
		RawResponse: raw,
	}
}

type judgeReply struct {
	Verdict     models.AIVerdict `json:"verdict"`
	Confidence  float64          `json:"confidence"`
	Differences []struct {
		Severity    models.Severity `json:"severity"`
		Area        string          `json:"area"`
		Description string          `json:"description"`
	} `json:"differences"`
	Summary string `json:"summary"`
}

// ParseResponse extracts the first JSON object from raw and converts it into
// a result. On failure it returns FailClosed(raw) and a *JudgeParseError.
func ParseResponse(raw string) (*models.AIComparisonResult, error) {
	span := extractJSON(raw)
	if span == "" {
		return FailClosed(raw), &JudgeParseError{Raw: raw, Err: ErrNoJSON}
	}

	var reply judgeReply
	if err := json.Unmarshal([]byte(span), &reply); err != nil {
		return FailClosed(raw), &JudgeParseError{Raw: raw, Err: err}
	}
	if !reply.Verdict.Valid() {
		return FailClosed(raw), &JudgeParseError{Raw: raw, Err: fmt.Errorf("unknown verdict %q", reply.Verdict)}
	}

	result := &models.AIComparisonResult{
		Verdict:     reply.Verdict,
		Confidence:  min(max(reply.Confidence, 0), 1),
		Differences: make([]models.Difference, 0, len(reply.Differences)),
		Summary:     strings.TrimSpace(reply.Summary),
		RawResponse: raw,
	}
	for _, d := range reply.Differences {
		sev := models.Severity(strings.ToLower(string(d.Severity)))
		if !sev.Valid() {
			sev = models.SeverityMedium
		}
		result.Differences = append(result.Differences, models.Difference{
			Severity:    sev,
			Area:        d.Area,
			Description: d.Description,
		})
	}
	return result, nil
}

// extractJSON returns the first balanced {...} span in s, or "" if there is
// none. Braces inside JSON strings are ignored.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end := matchBrace(s, start); end > 0 {
			return s[start : end+1]
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			return ""
		}
		start += next + 1
	}
	return ""
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
