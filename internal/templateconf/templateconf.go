// Package templateconf holds the TemplateSchema data model and the
// templates.xml loader (C3). Grounded on
// original_source/.../models/template.py for the type shapes; no Python
// loader for templates.xml was retrieved, so the parsing structure here
// follows the same generic-node decoding pattern used by the other C3
// loaders, applied to templates.xml's sectioned layout: <expressions>,
// <presets>, <propertyGroups>, <variables>, <includes>, then
// <template>/<submenu>.
package templateconf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skinshortcuts/build/internal/configerr"
	"github.com/skinshortcuts/build/internal/xmltree"
)

// BuildMode controls how a Template iterates input.
type BuildMode string

const (
	BuildModeMenu BuildMode = "menu"
	BuildModeList BuildMode = "list"
	BuildModeRaw  BuildMode = "true"
)

// TemplateParam is a named RAW-mode parameter with a default value.
type TemplateParam struct {
	Name    string
	Default string
}

// TemplateProperty is a single property assignment: literal, from_source,
// or conditional - exactly one of Value/FromSource is meaningful at a
// time.
type TemplateProperty struct {
	Name       string
	Value      string
	FromSource string
	Condition  string
}

// TemplateVar is a multi-conditional property: the first matching
// (Condition, Value) pair wins; a trailing empty-condition pair is the
// default.
type TemplateVar struct {
	Name   string
	Values []TemplateProperty
}

// PresetValues is one row of a Preset lookup table.
type PresetValues struct {
	Condition string
	Values    map[string]string
	// Keys preserves declaration order for deterministic write-if-absent
	// iteration.
	Keys []string
}

// Preset is an ordered lookup table.
type Preset struct {
	Name string
	Rows []PresetValues
}

// PropertyGroup bundles properties and vars for reuse across templates.
type PropertyGroup struct {
	Name       string
	Properties []TemplateProperty
	Vars       []TemplateVar
}

// PropertyGroupReference applies a PropertyGroup with a suffix/condition.
type PropertyGroupReference struct {
	Name      string
	Suffix    string
	Condition string
}

// PresetReference applies a Preset with a suffix/condition.
type PresetReference struct {
	Name      string
	Suffix    string
	Condition string
}

// IncludeDefinition is a reusable XML fragment spliced by
// <skinshortcuts include="name"/> during element processing (C8).
type IncludeDefinition struct {
	Name     string
	Controls *xmltree.Node
}

// ListItem is a single row of a LIST-mode template's literal item list.
type ListItem struct {
	Attributes map[string]string
	// Keys preserves declaration order.
	Keys []string
}

// VariableDefinition is a <variable> body plus its emission rules.
type VariableDefinition struct {
	Name      string
	Condition string
	Output    string
	Content   *xmltree.Node
}

// VariableReference points to a VariableDefinition from within a
// VariableGroup, with its own condition.
type VariableReference struct {
	Name      string
	Condition string
}

// VariableGroupRef is a nested-group reference inside a VariableGroup.
type VariableGroupRef struct {
	Name string
}

// VariableGroup bundles variable references (and nested group references)
// for reuse across templates.
type VariableGroup struct {
	Name       string
	References []VariableReference
	GroupRefs  []VariableGroupRef
}

// VariableGroupReference applies a VariableGroup from a template, with a
// suffix/condition.
type VariableGroupReference struct {
	Name      string
	Suffix    string
	Condition string
}

// Template is the primary per-output definition processed by C8.
type Template struct {
	Include        string
	Build          BuildMode
	IDPrefix       string
	TemplateOnly   string // "", "true", "auto"
	// Menu restricts MENU-build iteration to a single menu by name; empty
	// means iterate every non-submenu menu.
	Menu           string
	Conditions     []string
	Params         []TemplateParam
	Properties     []TemplateProperty
	Vars           []TemplateVar
	PropertyGroups []PropertyGroupReference
	PresetRefs     []PresetReference
	ListItems      []ListItem
	Controls       *xmltree.Node
	Variables      []VariableDefinition
	VariableGroups []VariableGroupReference
	// Outputs lists the template's multiple named outputs; a template with
	// no explicit <output> children gets a single synthetic output built
	// from the template's own Include/IDPrefix.
	Outputs []TemplateOutput
}

// TemplateOutput is one emission slot of a multi-output template: its own
// include name, id prefix, and suffix.
type TemplateOutput struct {
	Include  string
	IDPrefix string
	Suffix   string
}

// SubmenuTemplate is a submenu-specific template definition.
type SubmenuTemplate struct {
	Include        string
	Level          int
	Name           string
	Properties     []TemplateProperty
	Vars           []TemplateVar
	PropertyGroups []PropertyGroupReference
	Controls       *xmltree.Node
}

// Schema is the full parsed templates.xml document.
type Schema struct {
	Expressions         map[string]string
	PropertyGroupsByName map[string]PropertyGroup
	Includes            map[string]IncludeDefinition
	Presets             map[string]Preset
	VariableDefinitions map[string]VariableDefinition
	VariableGroupsByName map[string]VariableGroup
	Templates           []Template
	Submenus            []SubmenuTemplate
}

func (s *Schema) GetExpression(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.Expressions[name]
	return v, ok
}

func (s *Schema) GetPropertyGroup(name string) (PropertyGroup, bool) {
	if s == nil {
		return PropertyGroup{}, false
	}
	v, ok := s.PropertyGroupsByName[name]
	return v, ok
}

func (s *Schema) GetInclude(name string) (IncludeDefinition, bool) {
	if s == nil {
		return IncludeDefinition{}, false
	}
	v, ok := s.Includes[name]
	return v, ok
}

func (s *Schema) GetPreset(name string) (Preset, bool) {
	if s == nil {
		return Preset{}, false
	}
	v, ok := s.Presets[name]
	return v, ok
}

func (s *Schema) GetVariableDefinition(name string) (VariableDefinition, bool) {
	if s == nil {
		return VariableDefinition{}, false
	}
	v, ok := s.VariableDefinitions[name]
	return v, ok
}

func (s *Schema) GetVariableGroup(name string) (VariableGroup, bool) {
	if s == nil {
		return VariableGroup{}, false
	}
	v, ok := s.VariableGroupsByName[name]
	return v, ok
}

// Load parses path, returning an empty Schema if the file does not exist.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return emptySchema(), nil
	}
	if err != nil {
		return nil, configerr.New(configerr.KindTemplate, path, err)
	}

	root, err := xmltree.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, configerr.New(configerr.KindTemplate, path, fmt.Errorf("parsing templates.xml: %w", err))
	}
	if root.Tag != "templates" {
		return nil, configerr.New(configerr.KindTemplate, path, fmt.Errorf("root element must be <templates>, got <%s>", root.Tag))
	}

	schema := emptySchema()

	if expr := root.FindChild("expressions"); expr != nil {
		for _, e := range expr.Children {
			if e.Tag == "expression" {
				name, _ := e.Attribute("name")
				if name != "" {
					schema.Expressions[name] = strings.TrimSpace(e.Text)
				}
			}
		}
	}

	if presets := root.FindChild("presets"); presets != nil {
		for _, p := range presets.Children {
			if p.Tag != "preset" {
				continue
			}
			name, _ := p.Attribute("name")
			if name == "" {
				continue
			}
			schema.Presets[name] = parsePreset(name, p)
		}
	}

	if groups := root.FindChild("propertyGroups"); groups != nil {
		for _, g := range groups.Children {
			if g.Tag != "propertyGroup" {
				continue
			}
			name, _ := g.Attribute("name")
			if name == "" {
				continue
			}
			schema.PropertyGroupsByName[name] = parsePropertyGroup(name, g)
		}
	}

	if includes := root.FindChild("includes"); includes != nil {
		for _, inc := range includes.Children {
			if inc.Tag != "include" {
				continue
			}
			name, _ := inc.Attribute("name")
			if name == "" {
				continue
			}
			controls := xmltree.NewNode("controls")
			controls.Children = inc.Children
			schema.Includes[name] = IncludeDefinition{Name: name, Controls: controls}
		}
	}

	if variables := root.FindChild("variables"); variables != nil {
		for _, v := range variables.Children {
			if v.Tag != "variable" {
				continue
			}
			vd := parseVariableDefinition(v)
			schema.VariableDefinitions[vd.Name] = vd
		}
	}

	if groups := root.FindChild("variableGroups"); groups != nil {
		for _, g := range groups.Children {
			if g.Tag != "variableGroup" {
				continue
			}
			name, _ := g.Attribute("name")
			if name == "" {
				continue
			}
			schema.VariableGroupsByName[name] = parseVariableGroup(name, g)
		}
	}

	for _, t := range root.Children {
		switch t.Tag {
		case "template":
			tmpl, err := parseTemplate(t, path)
			if err != nil {
				return nil, err
			}
			schema.Templates = append(schema.Templates, tmpl)
		case "submenu":
			schema.Submenus = append(schema.Submenus, parseSubmenuTemplate(t))
		}
	}

	return schema, nil
}

func emptySchema() *Schema {
	return &Schema{
		Expressions:          map[string]string{},
		PropertyGroupsByName: map[string]PropertyGroup{},
		Includes:             map[string]IncludeDefinition{},
		Presets:              map[string]Preset{},
		VariableDefinitions:  map[string]VariableDefinition{},
		VariableGroupsByName: map[string]VariableGroup{},
	}
}

func parsePreset(name string, n *xmltree.Node) Preset {
	p := Preset{Name: name}
	for _, row := range n.Children {
		if row.Tag != "row" {
			continue
		}
		condition, _ := row.Attribute("condition")
		values := map[string]string{}
		var keys []string
		for _, a := range row.Attr {
			if a.Name == "condition" {
				continue
			}
			values[a.Name] = a.Value
			keys = append(keys, a.Name)
		}
		p.Rows = append(p.Rows, PresetValues{Condition: condition, Values: values, Keys: keys})
	}
	return p
}

func parsePropertyGroup(name string, n *xmltree.Node) PropertyGroup {
	pg := PropertyGroup{Name: name}
	for _, c := range n.Children {
		switch c.Tag {
		case "property":
			pg.Properties = append(pg.Properties, parseTemplateProperty(c))
		case "var":
			pg.Vars = append(pg.Vars, parseTemplateVar(c))
		}
	}
	return pg
}

func parseTemplateProperty(n *xmltree.Node) TemplateProperty {
	name, _ := n.Attribute("name")
	value, hasValue := n.Attribute("value")
	if !hasValue {
		value = strings.TrimSpace(n.Text)
	}
	fromSource, _ := n.Attribute("from")
	condition, _ := n.Attribute("condition")
	return TemplateProperty{Name: name, Value: value, FromSource: fromSource, Condition: condition}
}

func parseTemplateVar(n *xmltree.Node) TemplateVar {
	name, _ := n.Attribute("name")
	v := TemplateVar{Name: name}
	for _, c := range n.Children {
		if c.Tag != "value" {
			continue
		}
		condition, _ := c.Attribute("condition")
		v.Values = append(v.Values, TemplateProperty{Condition: condition, Value: strings.TrimSpace(c.Text)})
	}
	return v
}

func parseVariableDefinition(n *xmltree.Node) VariableDefinition {
	name, _ := n.Attribute("name")
	condition, _ := n.Attribute("condition")
	output, _ := n.Attribute("output")
	content := n.Copy()
	return VariableDefinition{Name: name, Condition: condition, Output: output, Content: content}
}

func parseVariableGroup(name string, n *xmltree.Node) VariableGroup {
	vg := VariableGroup{Name: name}
	for _, c := range n.Children {
		switch c.Tag {
		case "reference":
			refName, _ := c.Attribute("name")
			condition, _ := c.Attribute("condition")
			vg.References = append(vg.References, VariableReference{Name: refName, Condition: condition})
		case "groupRef":
			refName, _ := c.Attribute("name")
			vg.GroupRefs = append(vg.GroupRefs, VariableGroupRef{Name: refName})
		}
	}
	return vg
}

func parseTemplate(n *xmltree.Node, path string) (Template, error) {
	include, _ := n.Attribute("include")
	if include == "" {
		return Template{}, configerr.New(configerr.KindTemplate, path, fmt.Errorf("template missing include attribute"))
	}

	build := BuildModeMenu
	if raw, ok := n.Attribute("build"); ok {
		switch raw {
		case "list":
			build = BuildModeList
		case "true":
			build = BuildModeRaw
		}
	}

	t := Template{
		Include:      include,
		Build:        build,
		IDPrefix:     n.AttributeOr("idprefix", ""),
		TemplateOnly: n.AttributeOr("templateonly", ""),
		Menu:         n.AttributeOr("menu", ""),
	}

	for _, c := range n.Children {
		switch c.Tag {
		case "condition":
			t.Conditions = append(t.Conditions, strings.TrimSpace(c.Text))
		case "param":
			name, _ := c.Attribute("name")
			t.Params = append(t.Params, TemplateParam{Name: name, Default: c.AttributeOr("default", "")})
		case "property":
			t.Properties = append(t.Properties, parseTemplateProperty(c))
		case "var":
			t.Vars = append(t.Vars, parseTemplateVar(c))
		case "propertyGroup":
			refName, _ := c.Attribute("name")
			t.PropertyGroups = append(t.PropertyGroups, PropertyGroupReference{
				Name:      refName,
				Suffix:    c.AttributeOr("suffix", ""),
				Condition: c.AttributeOr("condition", ""),
			})
		case "preset":
			refName, _ := c.Attribute("name")
			t.PresetRefs = append(t.PresetRefs, PresetReference{
				Name:      refName,
				Suffix:    c.AttributeOr("suffix", ""),
				Condition: c.AttributeOr("condition", ""),
			})
		case "list":
			for _, item := range c.Children {
				if item.Tag != "item" {
					continue
				}
				t.ListItems = append(t.ListItems, parseListItem(item))
			}
		case "controls":
			t.Controls = c.Copy()
		case "variables":
			for _, v := range c.Children {
				if v.Tag == "variable" {
					t.Variables = append(t.Variables, parseVariableDefinition(v))
				}
			}
		case "variableGroup":
			refName, _ := c.Attribute("name")
			t.VariableGroups = append(t.VariableGroups, VariableGroupReference{
				Name:      refName,
				Suffix:    c.AttributeOr("suffix", ""),
				Condition: c.AttributeOr("condition", ""),
			})
		case "output":
			outInclude, _ := c.Attribute("include")
			if outInclude == "" {
				outInclude = include
			}
			t.Outputs = append(t.Outputs, TemplateOutput{
				Include:  outInclude,
				IDPrefix: c.AttributeOr("idprefix", t.IDPrefix),
				Suffix:   c.AttributeOr("suffix", ""),
			})
		}
	}

	if len(t.Outputs) == 0 {
		t.Outputs = []TemplateOutput{{Include: t.Include, IDPrefix: t.IDPrefix, Suffix: ""}}
	}

	return t, nil
}

func parseListItem(n *xmltree.Node) ListItem {
	item := ListItem{Attributes: map[string]string{}}
	for _, a := range n.Attr {
		item.Attributes[a.Name] = a.Value
		item.Keys = append(item.Keys, a.Name)
	}
	return item
}

func parseSubmenuTemplate(n *xmltree.Node) SubmenuTemplate {
	st := SubmenuTemplate{
		Include: n.AttributeOr("include", ""),
		Name:    n.AttributeOr("name", ""),
	}
	if lvl, ok := n.Attribute("level"); ok {
		if v, err := strconv.Atoi(lvl); err == nil {
			st.Level = v
		}
	}
	for _, c := range n.Children {
		switch c.Tag {
		case "property":
			st.Properties = append(st.Properties, parseTemplateProperty(c))
		case "var":
			st.Vars = append(st.Vars, parseTemplateVar(c))
		case "propertyGroup":
			refName, _ := c.Attribute("name")
			st.PropertyGroups = append(st.PropertyGroups, PropertyGroupReference{
				Name:      refName,
				Suffix:    c.AttributeOr("suffix", ""),
				Condition: c.AttributeOr("condition", ""),
			})
		case "controls":
			st.Controls = c.Copy()
		}
	}
	return st
}
