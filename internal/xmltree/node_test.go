package xmltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	src := `<template include="widget1" condition="widgetPath">
		<control type="group">
			<visible>true</visible>
		</control>
	</template>`

	root, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "template", root.Tag)
	assert.Equal(t, "widget1", root.AttributeOr("include", ""))
	assert.Equal(t, "widgetPath", root.AttributeOr("condition", ""))
	require.Len(t, root.Children, 1)
	assert.Equal(t, "control", root.Children[0].Tag)
	assert.Equal(t, "group", root.Children[0].AttributeOr("type", ""))
}

func TestCopyIsIndependent(t *testing.T) {
	root, err := Parse(strings.NewReader(`<a><b>x</b></a>`))
	require.NoError(t, err)

	cp := root.Copy()
	cp.Children[0].Text = "y"
	cp.SetAttribute("z", "1")

	assert.Equal(t, "x", root.Children[0].Text)
	_, ok := root.Attribute("z")
	assert.False(t, ok)
	assert.Equal(t, "y", cp.Children[0].Text)
}

func TestSetAttributeUpdatesInPlace(t *testing.T) {
	n := NewNode("item")
	n.SetAttribute("id", "1")
	n.SetAttribute("id", "2")
	require.Len(t, n.Attr, 1)
	assert.Equal(t, "2", n.AttributeOr("id", ""))
}
