// Package cond implements the condition evaluator (C1): a small Boolean
// algebra over string properties, ported from
// original_source/resources/lib/skinshortcuts/conditions.py. Evaluation is
// total - malformed input never panics or errors, it simply evaluates to
// false (see Evaluate).
package cond

import (
	"regexp"
	"strings"
)

var (
	orSplit      = regexp.MustCompile(`\s*\|\s*`)
	compactMatch = regexp.MustCompile(`^(!?)([a-zA-Z_][a-zA-Z0-9_.]*)(=|~)(.*)$`)

	// Keyword forms normalize to symbols before parsing. Each keyword must
	// stand as its own whitespace-separated token (NOT may also open the
	// condition or follow '['), so a value written directly after '=' or
	// '~' - the AND in "prop=AND" - is never rewritten.
	keywordAnd      = regexp.MustCompile(`(?i)\s+AND\s+`)
	keywordOr       = regexp.MustCompile(`(?i)\s+OR\s+`)
	keywordNot      = regexp.MustCompile(`(?i)(^|[\s\[])NOT\s+`)
	keywordEquals   = regexp.MustCompile(`(?i)\s+EQUALS\s+`)
	keywordContains = regexp.MustCompile(`(?i)\s+CONTAINS\s+`)
	inForm          = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_.]*)\s+IN\s+(.*)$`)
	emptyForm       = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_.]*)\s+EMPTY$`)
)

// Evaluate reports whether condition holds against properties. An empty or
// whitespace-only condition is always true.
func Evaluate(condition string, properties map[string]string) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true
	}
	condition = normalizeKeywords(condition)
	if strings.Contains(condition, "|") {
		condition = ExpandCompactOr(condition)
	}
	return evaluateExpanded(condition, properties)
}

// normalizeKeywords rewrites the AND/OR/NOT/EQUALS/CONTAINS keyword forms
// to their symbol equivalents. A keyword is only replaced where it stands
// as its own whitespace-separated token between condition segments, so
// "prop=AND" - where AND is a literal value glued to the operator - keeps
// its right-hand side, and a longer word such as "Andromeda" is never
// matched.
func normalizeKeywords(condition string) string {
	condition = keywordAnd.ReplaceAllString(condition, " + ")
	condition = keywordOr.ReplaceAllString(condition, " | ")
	condition = keywordNot.ReplaceAllString(condition, "${1}!")
	condition = keywordEquals.ReplaceAllString(condition, "=")
	condition = keywordContains.ReplaceAllString(condition, "~")
	return condition
}

// ExpandCompactOr rewrites "prop=v1 | v2 | v3" to
// "prop=v1 | prop=v2 | prop=v3", carrying the property name/operator pair
// across bare OR operands that have no '=' or '~' of their own. The
// expansion is applied inside each '+'-separated (AND) segment
// independently, and recurses into bracketed groups.
func ExpandCompactOr(condition string) string {
	if condition == "" {
		return condition
	}

	var resultParts []string
	for _, andPart := range splitPreservingBrackets(condition, '+') {
		andPart = strings.TrimSpace(andPart)
		if andPart == "" {
			continue
		}

		negated := strings.HasPrefix(andPart, "!")
		if negated {
			andPart = strings.TrimSpace(andPart[1:])
		}

		if strings.HasPrefix(andPart, "[") && strings.HasSuffix(andPart, "]") {
			inner := strings.TrimSpace(andPart[1 : len(andPart)-1])
			expanded := expandOrSegment(inner)
			if negated {
				resultParts = append(resultParts, "!["+expanded+"]")
			} else {
				resultParts = append(resultParts, "["+expanded+"]")
			}
			continue
		}

		expanded := expandOrSegment(andPart)
		if negated {
			resultParts = append(resultParts, "!"+expanded)
		} else {
			resultParts = append(resultParts, expanded)
		}
	}

	return strings.Join(resultParts, " + ")
}

func splitPreservingBrackets(text string, delimiter rune) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range text {
		switch {
		case ch == '[':
			depth++
			current.WriteRune(ch)
		case ch == ']':
			depth--
			current.WriteRune(ch)
		case ch == delimiter && depth == 0:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func expandOrSegment(segment string) string {
	parts := orSplit.Split(segment, -1)
	if len(parts) <= 1 {
		return segment
	}

	var result []string
	var currentProperty, currentOperator string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := compactMatch.FindStringSubmatch(part); m != nil {
			negation, prop, op, value := m[1], m[2], m[3], m[4]
			currentProperty, currentOperator = prop, op
			result = append(result, negation+prop+op+value)
		} else if currentProperty != "" {
			result = append(result, currentProperty+currentOperator+part)
		} else {
			result = append(result, part)
		}
	}

	return strings.Join(result, " | ")
}

func isWrappedInBrackets(text string) bool {
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return false
	}
	depth := 0
	runes := []rune(text)
	for i, ch := range runes {
		switch ch {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 && i < len(runes)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func evaluateExpanded(condition string, properties map[string]string) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true
	}

	if isWrappedInBrackets(condition) {
		return evaluateExpanded(condition[1:len(condition)-1], properties)
	}

	// AND/OR are split before negation: "!a + b" is "(!a) AND b", not
	// "!(a AND b)".
	andParts := splitPreservingBrackets(condition, '+')
	if len(andParts) > 1 {
		for _, part := range andParts {
			if !evaluateExpanded(strings.TrimSpace(part), properties) {
				return false
			}
		}
		return true
	}

	orParts := splitPreservingBrackets(condition, '|')
	if len(orParts) > 1 {
		for _, part := range orParts {
			if evaluateExpanded(strings.TrimSpace(part), properties) {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(condition, "!") {
		inner := strings.TrimSpace(condition[1:])
		if isWrappedInBrackets(inner) {
			return !evaluateExpanded(inner[1:len(inner)-1], properties)
		}
		return !evaluateSingle(inner, properties)
	}

	return evaluateSingle(condition, properties)
}

func evaluateSingle(condition string, properties map[string]string) bool {
	condition = strings.TrimSpace(condition)

	negated := false
	if strings.HasPrefix(condition, "!") {
		negated = true
		condition = strings.TrimSpace(condition[1:])
	}

	if isWrappedInBrackets(condition) {
		result := evaluateExpanded(condition[1:len(condition)-1], properties)
		if negated {
			return !result
		}
		return result
	}

	if m := emptyForm.FindStringSubmatch(condition); m != nil {
		result := properties[m[1]] == ""
		if negated {
			return !result
		}
		return result
	}

	if m := inForm.FindStringSubmatch(condition); m != nil {
		actual := properties[m[1]]
		var result bool
		for _, v := range strings.Split(m[2], ",") {
			if strings.TrimSpace(v) == actual {
				result = true
				break
			}
		}
		if negated {
			return !result
		}
		return result
	}

	if idx := strings.Index(condition, "="); idx >= 0 {
		propName := strings.TrimSpace(condition[:idx])
		value := strings.TrimSpace(condition[idx+1:])
		actual := properties[propName]
		result := actual == value
		if negated {
			return !result
		}
		return result
	}

	if idx := strings.Index(condition, "~"); idx >= 0 {
		propName := strings.TrimSpace(condition[:idx])
		value := strings.TrimSpace(condition[idx+1:])
		actual := properties[propName]
		result := strings.Contains(actual, value)
		if negated {
			return !result
		}
		return result
	}

	result := properties[condition] != ""
	if negated {
		return !result
	}
	return result
}
