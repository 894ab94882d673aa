package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateBasics(t *testing.T) {
	assert.True(t, Evaluate("", nil))
	assert.True(t, Evaluate("   ", nil))

	props := map[string]string{"a": "", "b": "1", "widgetType": "episodes"}

	assert.True(t, Evaluate("widgetType=movies | tvshows | episodes", props))
	assert.True(t, Evaluate("!a + b", props))
	assert.False(t, Evaluate("![a | b]", props))
}

func TestEvaluateIn(t *testing.T) {
	assert.True(t, Evaluate("prop IN x,y,z", map[string]string{"prop": "y"}))
	assert.False(t, Evaluate("prop IN x,y,z", map[string]string{"prop": "q"}))
}

func TestEvaluateEmpty(t *testing.T) {
	assert.True(t, Evaluate("prop EMPTY", map[string]string{}))
	assert.False(t, Evaluate("prop EMPTY", map[string]string{"prop": "x"}))
	assert.True(t, Evaluate("prop=", map[string]string{}))
}

func TestEvaluateEqualsAndContains(t *testing.T) {
	props := map[string]string{"name": "movies"}
	assert.True(t, Evaluate("name=movies", props))
	assert.False(t, Evaluate("name=tv", props))
	assert.True(t, Evaluate("name~ovi", props))
	assert.True(t, Evaluate("name", props))
	assert.False(t, Evaluate("!name", props))
	assert.False(t, Evaluate("missing", props))
}

func TestEvaluateKeywordForms(t *testing.T) {
	props := map[string]string{"a": "1", "b": ""}
	assert.True(t, Evaluate("a AND NOT b", props))
	assert.True(t, Evaluate("a EQUALS 1", props))
	assert.False(t, Evaluate("a CONTAINS 9", props))
}

func TestExpandCompactOrEquivalence(t *testing.T) {
	expanded := ExpandCompactOr("widgetType=movies | tvshows | episodes")
	assert.Equal(t, "widgetType=movies | widgetType=tvshows | widgetType=episodes", expanded)

	props := map[string]string{"widgetType": "tvshows"}
	assert.Equal(t,
		Evaluate("widgetType=movies | tvshows | episodes", props),
		Evaluate(expanded, props),
	)
}

func TestGroupedCompactOrAcrossBrackets(t *testing.T) {
	cond := "base=1 + [widgetType=movies | tvshows]"
	props := map[string]string{"base": "1", "widgetType": "tvshows"}
	assert.True(t, Evaluate(cond, props))
}

func TestMissingPropertyIsEmpty(t *testing.T) {
	assert.False(t, Evaluate("nope=anything", map[string]string{}))
	assert.True(t, Evaluate("!nope", map[string]string{}))
}
