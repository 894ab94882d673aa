// Package suffix implements the suffix transformer (C4): rewriting property
// references inside condition strings and from_source attributes so a
// single template body can address parallel slots on one item (e.g. two
// widgets via ".2").
package suffix

import (
	"regexp"
	"strings"
)

// Reserved identifiers are iteration built-ins; the suffix is never applied
// to them.
var reserved = map[string]bool{
	"name":     true,
	"default":  true,
	"menu":     true,
	"index":    true,
	"id":       true,
	"idprefix": true,
	"suffix":   true,
}

var identBeforeOperator = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_.]*)\s*(=|~)`)

// ApplyToCondition scans cond for identifiers preceding '=' or '~' and
// appends suffix to each one not in the reserved set. Values after the
// operator are left untouched. An empty suffix leaves cond unchanged.
func ApplyToCondition(cond, suffix string) string {
	if suffix == "" {
		return cond
	}
	return identBeforeOperator.ReplaceAllStringFunc(cond, func(match string) string {
		sub := identBeforeOperator.FindStringSubmatch(match)
		ident, op := sub[1], sub[2]
		if reserved[ident] {
			return match
		}
		return ident + suffix + op
	})
}

// Combine applies the rule that an explicit reference suffix overrides the
// output's own suffix, which otherwise applies.
func Combine(refSuffix, outputSuffix string) string {
	if refSuffix != "" {
		return refSuffix
	}
	return outputSuffix
}

// ApplyToFrom applies the suffix to a from_source reference. Reserved
// identifiers are returned unchanged. Bracket syntax "preset[attr]" gets the
// suffix inserted before the '['; everything else has the suffix appended.
func ApplyToFrom(name, suffix string) string {
	if suffix == "" {
		return name
	}
	if reserved[name] {
		return name
	}
	if idx := strings.Index(name, "["); idx >= 0 {
		return name[:idx] + suffix + name[idx:]
	}
	return name + suffix
}
