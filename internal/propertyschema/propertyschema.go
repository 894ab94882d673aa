// Package propertyschema loads properties.xml (C3): property definitions,
// options, button mappings, and fallback rules, with Kodi-style
// <include content="…" suffix="…"/> expansion. Grounded on
// original_source/.../loaders/property.py and models/property.py.
package propertyschema

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skinshortcuts/build/internal/configerr"
	"github.com/skinshortcuts/build/internal/suffix"
)

// IconVariant is a conditional option icon.
type IconVariant struct {
	Path      string
	Condition string
}

// SchemaOption is one selectable value of an "options"-typed property.
type SchemaOption struct {
	Value     string
	Label     string
	Condition string
	Icons     []IconVariant
}

// ButtonMapping associates a picker button id with a property.
type ButtonMapping struct {
	ButtonID     int
	PropertyName string
	Suffix       bool
	Title        string
	ShowNone     bool
	ShowIcons    bool
	Type         string
	Requires     string
}

// SchemaProperty is one property definition.
type SchemaProperty struct {
	Name         string
	TemplateOnly bool
	Requires     string
	Options      []SchemaOption
	Type         string
}

// FallbackRule is one condition/value row of a property fallback.
type FallbackRule struct {
	Value     string
	Condition string
}

// PropertyFallback is the ordered fallback rule set for one property.
type PropertyFallback struct {
	PropertyName string
	Rules        []FallbackRule
}

// Schema is the full parsed properties.xml document.
type Schema struct {
	Properties map[string]SchemaProperty
	Fallbacks  map[string]PropertyFallback
	Buttons    map[int]ButtonMapping
}

// GetProperty looks up a property definition by name.
func (s *Schema) GetProperty(name string) (SchemaProperty, bool) {
	if s == nil {
		return SchemaProperty{}, false
	}
	p, ok := s.Properties[name]
	return p, ok
}

// GetButton looks up a button mapping by id.
func (s *Schema) GetButton(id int) (ButtonMapping, bool) {
	if s == nil {
		return ButtonMapping{}, false
	}
	b, ok := s.Buttons[id]
	return b, ok
}

// GetFallback looks up the fallback rule set for a property.
func (s *Schema) GetFallback(name string) (PropertyFallback, bool) {
	if s == nil {
		return PropertyFallback{}, false
	}
	fb, ok := s.Fallbacks[name]
	return fb, ok
}

// Load parses path, returning an empty Schema if the file does not exist.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Schema{Properties: map[string]SchemaProperty{}, Fallbacks: map[string]PropertyFallback{}, Buttons: map[int]ButtonMapping{}}, nil
	}
	if err != nil {
		return nil, configerr.New(configerr.KindProperty, path, err)
	}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, configerr.New(configerr.KindProperty, path, fmt.Errorf("parsing properties.xml: %w", err))
	}
	if root.XMLName.Local != "properties" {
		return nil, configerr.New(configerr.KindProperty, path, fmt.Errorf("root element must be <properties>, got <%s>", root.XMLName.Local))
	}

	l := &loader{path: path, includes: map[string][]xmlNode{}}
	if includesNode := root.child("includes"); includesNode != nil {
		for _, inc := range includesNode.children("include") {
			name := inc.attr("name")
			if name == "" {
				continue
			}
			l.includes[name] = inc.Children
		}
	}

	properties := map[string]SchemaProperty{}
	for _, propNode := range root.children("property") {
		p, err := l.parseProperty(propNode)
		if err != nil {
			return nil, err
		}
		properties[p.Name] = p
	}

	fallbacks := map[string]PropertyFallback{}
	if fbSection := root.child("fallbacks"); fbSection != nil {
		for _, fbNode := range fbSection.children("fallback") {
			fb, err := l.parseFallback(fbNode)
			if err != nil {
				return nil, err
			}
			fallbacks[fb.PropertyName] = fb
		}
	}

	buttons := map[int]ButtonMapping{}
	if buttonsSection := root.child("buttons"); buttonsSection != nil {
		defaultSuffix := strings.EqualFold(buttonsSection.attr("suffix"), "true")
		for _, child := range buttonsSection.Children {
			switch child.XMLName.Local {
			case "button":
				btn, err := l.parseButton(child, defaultSuffix)
				if err != nil {
					return nil, err
				}
				if btn != nil {
					buttons[btn.ButtonID] = *btn
				}
			case "group":
				groupSuffix := defaultSuffix
				if raw := child.attr("suffix"); raw != "" {
					groupSuffix = strings.EqualFold(raw, "true")
				}
				for _, btnNode := range child.children("button") {
					btn, err := l.parseButton(btnNode, groupSuffix)
					if err != nil {
						return nil, err
					}
					if btn != nil {
						buttons[btn.ButtonID] = *btn
					}
				}
			}
		}
	}

	return &Schema{Properties: properties, Fallbacks: fallbacks, Buttons: buttons}, nil
}

type loader struct {
	path     string
	includes map[string][]xmlNode
}

func (l *loader) expandInclude(n xmlNode, overrideSuffix string) []xmlNode {
	contentName := n.attr("content")
	if contentName == "" {
		return nil
	}
	children, ok := l.includes[contentName]
	if !ok {
		return nil
	}
	sfx := overrideSuffix
	if sfx == "" {
		sfx = n.attr("suffix")
	}
	result := make([]xmlNode, 0, len(children))
	for _, c := range children {
		result = append(result, copyWithSuffix(c, sfx))
	}
	return result
}

// copyWithSuffix deep-copies an include body, applying the suffix transform
// to any "condition" attribute at every level.
func copyWithSuffix(n xmlNode, sfx string) xmlNode {
	copied := n
	if sfx != "" {
		newAttrs := make([]xml.Attr, len(n.Attrs))
		copy(newAttrs, n.Attrs)
		for i, a := range newAttrs {
			if a.Name.Local == "condition" {
				newAttrs[i].Value = suffix.ApplyToCondition(a.Value, sfx)
			}
		}
		copied.Attrs = newAttrs
	}
	if len(n.Children) > 0 {
		newChildren := make([]xmlNode, len(n.Children))
		for i, c := range n.Children {
			newChildren[i] = copyWithSuffix(c, sfx)
		}
		copied.Children = newChildren
	}
	return copied
}

func (l *loader) parseProperty(n xmlNode) (SchemaProperty, error) {
	name := n.attr("name")
	if name == "" {
		return SchemaProperty{}, configerr.New(configerr.KindProperty, l.path, fmt.Errorf("property missing name attribute"))
	}

	templateOnly := strings.EqualFold(n.attr("templateonly"), "true")
	propType := n.attr("type")

	requires := n.attr("requires")
	if requires == "" {
		if reqNode := n.child("requires"); reqNode != nil {
			requires = reqNode.attr("property")
		}
	}

	var options []SchemaOption
	if optionsNode := n.child("options"); optionsNode != nil {
		options = l.parseOptions(optionsNode)
	}

	return SchemaProperty{
		Name:         name,
		TemplateOnly: templateOnly,
		Requires:     requires,
		Options:      options,
		Type:         propType,
	}, nil
}

func (l *loader) parseOptions(n *xmlNode) []SchemaOption {
	var result []SchemaOption
	for _, child := range n.Children {
		switch child.XMLName.Local {
		case "include":
			for _, expanded := range l.expandInclude(child, "") {
				if expanded.XMLName.Local == "option" {
					result = append(result, parseOption(expanded))
				}
			}
		case "option":
			result = append(result, parseOption(child))
		}
	}
	return result
}

func parseOption(n xmlNode) SchemaOption {
	var icons []IconVariant
	for _, iconNode := range n.children("icon") {
		iconPath := strings.TrimSpace(string(iconNode.Content))
		if iconPath == "" {
			continue
		}
		icons = append(icons, IconVariant{Path: iconPath, Condition: iconNode.attr("condition")})
	}
	return SchemaOption{
		Value:     n.attr("value"),
		Label:     n.attr("label"),
		Condition: n.attr("condition"),
		Icons:     icons,
	}
}

func (l *loader) parseFallback(n xmlNode) (PropertyFallback, error) {
	propertyName := n.attr("property")
	if propertyName == "" {
		return PropertyFallback{}, configerr.New(configerr.KindProperty, l.path, fmt.Errorf("fallback missing property attribute"))
	}

	var expanded []xmlNode
	for _, child := range n.Children {
		if child.XMLName.Local == "include" {
			expanded = append(expanded, l.expandInclude(child, "")...)
		} else {
			expanded = append(expanded, child)
		}
	}

	var rules []FallbackRule
	for _, child := range expanded {
		switch child.XMLName.Local {
		case "when":
			rules = append(rules, FallbackRule{
				Value:     strings.TrimSpace(string(child.Content)),
				Condition: child.attr("condition"),
			})
		case "default":
			rules = append(rules, FallbackRule{
				Value:     strings.TrimSpace(string(child.Content)),
				Condition: "",
			})
		}
	}

	return PropertyFallback{PropertyName: propertyName, Rules: rules}, nil
}

func (l *loader) parseButton(n xmlNode, defaultSuffix bool) (*ButtonMapping, error) {
	idStr := n.attr("id")
	if idStr == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, configerr.New(configerr.KindProperty, l.path, fmt.Errorf("invalid button id %q", idStr))
	}

	propertyName := n.attr("property")
	if propertyName == "" {
		return nil, configerr.New(configerr.KindProperty, l.path, fmt.Errorf("button %d missing property attribute", id))
	}

	sfx := defaultSuffix
	if raw := n.attr("suffix"); raw != "" {
		sfx = strings.EqualFold(raw, "true")
	}

	return &ButtonMapping{
		ButtonID:     id,
		PropertyName: propertyName,
		Suffix:       sfx,
		Title:        n.attr("title"),
		ShowNone:     n.attrOr("showNone", "true") != "false",
		ShowIcons:    n.attrOr("showIcons", "true") != "false",
		Type:         n.attr("type"),
		Requires:     n.attr("requires"),
	}, nil
}

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  []byte     `xml:",innerxml"`
	Children []xmlNode  `xml:",any"`
}

func (n xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n xmlNode) attrOr(name, def string) string {
	if v := n.attr(name); v != "" {
		return v
	}
	return def
}

func (n *xmlNode) child(tag string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == tag {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *xmlNode) children(tag string) []xmlNode {
	var result []xmlNode
	for _, c := range n.Children {
		if c.XMLName.Local == tag {
			result = append(result, c)
		}
	}
	return result
}
