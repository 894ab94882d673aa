package expr

import (
	"strings"

	"github.com/skinshortcuts/build/internal/cond"
)

// EvalIf evaluates a $IF[cond THEN value (ELIF cond THEN value)* (ELSE value)?]
// expression, delegating condition evaluation to cond.Evaluate. Keywords are
// case-sensitive - "then"/"Then" are not recognized. If no branch matches
// and there is no ELSE, the empty string is returned.
func EvalIf(ifExpr string, properties map[string]string) string {
	branches, ok := splitIfBranches(ifExpr)
	if !ok {
		return ifExpr
	}

	for _, b := range branches {
		if b.isElse {
			return b.value
		}
		if cond.Evaluate(b.condition, properties) {
			return b.value
		}
	}
	return ""
}

type ifBranch struct {
	condition string
	value     string
	isElse    bool
}

// splitIfBranches parses "cond1 THEN val1 ELIF cond2 THEN val2 ELSE val3"
// into ordered branches. Returns ok=false if no top-level THEN is found -
// malformed $IF bodies are left untouched by EvalIf, mirroring $MATH's
// fail-soft behavior.
func splitIfBranches(body string) ([]ifBranch, bool) {
	withElse := splitKeyword(body, "ELSE")
	var elseValue string
	hasElse := false
	if len(withElse) > 1 {
		elseValue = strings.TrimSpace(withElse[len(withElse)-1])
		hasElse = true
	}
	branchBody := withElse[0]

	segments := splitKeyword(branchBody, "ELIF")

	var branches []ifBranch
	for _, seg := range segments {
		thenParts := splitKeyword(seg, "THEN")
		if len(thenParts) < 2 {
			return nil, false
		}
		branches = append(branches, ifBranch{
			condition: strings.TrimSpace(thenParts[0]),
			value:     strings.TrimSpace(strings.Join(thenParts[1:], "THEN")),
		})
	}

	if hasElse {
		branches = append(branches, ifBranch{value: elseValue, isElse: true})
	}

	return branches, true
}

// splitKeyword splits text on every standalone occurrence of the keyword
// token, case-sensitive, word-boundary delimited by spaces.
func splitKeyword(text string, keyword string) []string {
	var parts []string
	remaining := text
	for {
		idx := indexWholeWord(remaining, keyword)
		if idx < 0 {
			parts = append(parts, remaining)
			break
		}
		parts = append(parts, remaining[:idx])
		remaining = remaining[idx+len(keyword):]
	}
	return parts
}

func indexWholeWord(text, word string) int {
	start := 0
	for {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return -1
		}
		abs := start + idx
		before := abs == 0 || text[abs-1] == ' ' || text[abs-1] == '\t'
		afterPos := abs + len(word)
		after := afterPos == len(text) || text[afterPos] == ' ' || text[afterPos] == '\t'
		if before && after {
			return abs
		}
		start = abs + len(word)
	}
}
