// Package intent classifies what a generation result represents and decides
// whether its artifacts may overwrite visible project state. Only the
// code-changing intents are allowed to touch code, preview, or conversation
// state; chat replies and clarification requests never do, even when the
// result object happens to carry stale code fields.
package intent

type Intent string

const (
	// code-changing intents
	CodeSimple  Intent = "code_simple"  // direct code change
	CodeContext Intent = "code_context" // code change needing extra project context
	CodeImage   Intent = "code_image"   // image generation plus code change
	CodeSearch  Intent = "code_search"  // web search plus code change

	// non-code intents
	Respond Intent = "respond" // pure chat reply
	Clarify Intent = "clarify" // follow-up question instead of code
)

// the fixed allow-list of intents permitted to overwrite code/preview state
var applies = map[Intent]bool{
	CodeSimple:  true,
	CodeContext: true,
	CodeImage:   true,
	CodeSearch:  true,
}

// reports whether a result with this intent may be applied to visible state.
// An absent intent applies: older orchestrator results predate classification
// and were always code-bearing.
func ShouldApply(it Intent) bool {
	if it == "" {
		return true
	}

	return applies[it]
}

// reports whether the result is a clarification request
func IsClarify(it Intent) bool {
	return it == Clarify
}
