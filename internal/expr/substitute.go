package expr

import "regexp"

var (
	mathPattern     = regexp.MustCompile(`\$MATH\[([^\[\]]*)\]`)
	ifPattern       = regexp.MustCompile(`\$IF\[([^\[\]]*)\]`)
	propertyPattern = regexp.MustCompile(`\$PROPERTY\[([^\[\]]*)\]`)
	includePattern  = regexp.MustCompile(`\$INCLUDE\[([^\[\]]*)\]`)
	expPattern      = regexp.MustCompile(`\$EXP\[([^\[\]]*)\]`)
)

// ExpandExpressions inlines $EXP[name] references against expressions,
// re-scanning the result so a named expression may itself reference
// another one. Capped at a fixed depth so a self-referencing expression
// can't loop forever; an unresolved name expands to empty text. Expansion
// is condition-only, textual, and re-evaluated each pass.
func ExpandExpressions(text string, expressions map[string]string) string {
	for depth := 0; depth < 8 && expPattern.MatchString(text); depth++ {
		text = expPattern.ReplaceAllStringFunc(text, func(match string) string {
			name := expPattern.FindStringSubmatch(match)[1]
			return expressions[name]
		})
	}
	return text
}

// SubstituteProperty resolves $PROPERTY[name] references against context,
// falling back to itemProperties, then the empty string. Nested $PROPERTY
// references are not supported - the replacement value is inserted
// literally, not rescanned.
func SubstituteProperty(text string, context, itemProperties map[string]string) string {
	return propertyPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := propertyPattern.FindStringSubmatch(match)[1]
		if v, ok := context[name]; ok {
			return v
		}
		if v, ok := itemProperties[name]; ok {
			return v
		}
		return ""
	})
}

// Substitute applies $MATH, $IF and $PROPERTY substitutions in that fixed
// order: $MATH operands may reference raw properties, $IF conditions are
// evaluated against the same properties, and only after both have
// resolved do bare $PROPERTY[...] references get filled in.
//
// $INCLUDE[...] is deliberately left untouched here - it is not a
// text substitution: the template processor (C8) turns it into an
// <include> element after substitution, and IncludeNames lists the names
// it references.
func Substitute(text string, properties map[string]string) string {
	text = mathPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := mathPattern.FindStringSubmatch(match)[1]
		return EvalMath(inner, properties)
	})
	text = ifPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := ifPattern.FindStringSubmatch(match)[1]
		return EvalIf(inner, properties)
	})
	text = SubstituteProperty(text, properties, nil)
	return text
}

// SubstituteAll applies $MATH, $IF and $PROPERTY substitutions in the same
// fixed order as Substitute, but resolves $MATH/$IF operands and bare
// $PROPERTY[...] references against context first and itemProperties
// second - the item-property fallback the template processor (C8) needs
// and Substitute's single-map signature can't express.
func SubstituteAll(text string, context, itemProperties map[string]string) string {
	merged := make(map[string]string, len(context)+len(itemProperties))
	for k, v := range itemProperties {
		merged[k] = v
	}
	for k, v := range context {
		merged[k] = v
	}
	text = mathPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := mathPattern.FindStringSubmatch(match)[1]
		return EvalMath(inner, merged)
	})
	text = ifPattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := ifPattern.FindStringSubmatch(match)[1]
		return EvalIf(inner, merged)
	})
	return SubstituteProperty(text, context, itemProperties)
}

// IncludeNames returns the skinshortcuts-template-{name} references found
// in text via $INCLUDE[skinshortcuts-template-{name}], used by the "auto"
// template_only detection pass (SPEC_FULL.md §9 Open Question resolution).
var templateIncludeRef = regexp.MustCompile(`\$INCLUDE\[skinshortcuts-template-([^\]]+)\]`)

func IncludeNames(text string) []string {
	matches := templateIncludeRef.FindAllStringSubmatch(text, -1)
	if matches == nil {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
