package judge

import "fmt"

const promptTemplate = `You are a meticulous UI reviewer comparing a design reference with its implementation.

The first image is the DESIGN for the component %q.
The second image is the IMPLEMENTATION rendered in a browser.

Compare them and look for:
1. Layout and spacing differences
2. Typography (font family, size, weight, line height)
3. Colors, borders, shadows and radii
4. Missing, extra or reordered elements
5. Icon and image differences

Ignore sub-pixel anti-aliasing and font hinting noise.

Respond with exactly one JSON object and nothing else:
{
  "verdict": "match" | "minor_differences" | "significant_differences",
  "confidence": 0.0-1.0,
  "differences": [
    {"severity": "low" | "medium" | "high", "area": "where in the component", "description": "what differs"}
  ],
  "summary": "one sentence overall assessment"
}`

// BuildPrompt returns the judge instructions for componentName. The result
// depends on nothing but the name.
func BuildPrompt(componentName string) string {
	return fmt.Sprintf(promptTemplate, componentName)
}
