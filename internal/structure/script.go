package structure

import (
	"encoding/json"
	"fmt"
)

// InspectScript is evaluated in the page with {selector, required} and
// returns a TreeInfo-shaped object. Shared by every browser backend.
const InspectScript = `(args) => {
  const root = document.querySelector(args.selector);
  if (!root) {
    return { found: false, childCount: 0, display: "", flexDirection: "", matches: {} };
  }
  const style = window.getComputedStyle(root);
  const matches = {};
  for (const sel of (args.required || [])) {
    let n = 0;
    try { n = root.querySelectorAll(sel).length; } catch (e) { n = 0; }
    matches[sel] = n;
  }
  return {
    found: true,
    childCount: root.children.length,
    display: style.display,
    flexDirection: style.flexDirection,
    matches: matches,
  };
}`

// InspectArgs is the argument object passed to InspectScript.
type InspectArgs struct {
	Selector string   `json:"selector"`
	Required []string `json:"required"`
}

// NewInspectArgs builds script arguments, never passing a nil slice.
func NewInspectArgs(selector string, required []string) InspectArgs {
	if required == nil {
		required = []string{}
	}
	return InspectArgs{Selector: selector, Required: required}
}

// Map returns the arguments as plain maps and slices, the shape every
// browser driver's argument serializer accepts.
func (a InspectArgs) Map() map[string]any {
	required := make([]any, len(a.Required))
	for i, r := range a.Required {
		required[i] = r
	}
	return map[string]any{"selector": a.Selector, "required": required}
}

// DecodeTreeInfo converts a driver's loosely typed evaluation result into a
// TreeInfo.
func DecodeTreeInfo(v any) (*TreeInfo, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inspect result: %w", err)
	}
	var info TreeInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to decode inspect result: %w", err)
	}
	return &info, nil
}
