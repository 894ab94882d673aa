// Package templatebuild implements C8: the template processor. For every
// Template × TemplateOutput pair it iterates the configured input (menu
// items, literal list rows, or a single RAW-mode pass), builds a property
// context per iteration (C7), deep-copies and recursively transforms the
// template's control body, and accumulates the result into per-output
// include elements plus a flat list of emitted <variable> elements.
//
// Cross-checked against original_source/.../builders/template.py for the
// element-processing recursion shape and the variable-group walk. See
// DESIGN.md for the two deliberate deviations from that Python reference:
// $EXP expansion has no {NOSUFFIX:...} marker here, and there is no
// "preset group" concept, only plain preset references.
package templatebuild

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/skinshortcuts/build/internal/buildctx"
	"github.com/skinshortcuts/build/internal/cond"
	"github.com/skinshortcuts/build/internal/expr"
	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/ordmap"
	"github.com/skinshortcuts/build/internal/propertyschema"
	"github.com/skinshortcuts/build/internal/suffix"
	"github.com/skinshortcuts/build/internal/templateconf"
	"github.com/skinshortcuts/build/internal/xmltree"
)

const emptyIncludeDescription = "Automatically generated - no menu items matched this template"

var (
	parentPattern        = regexp.MustCompile(`\$PARENT\[([^\[\]]*)\]`)
	paramPattern         = regexp.MustCompile(`\$PARAM\[([^\[\]]*)\]`)
	inlineIncludePattern = regexp.MustCompile(`\$INCLUDE\[([^\[\]]*)\]`)
)

// Result is the output of Process: the include elements keyed by include
// name (also listed in encounter order) and the flat list of <variable>
// elements, ready for the include assembler (C9) to splice in.
type Result struct {
	IncludeNames []string
	Includes     map[string]*xmltree.Node
	Variables    []*xmltree.Node
}

// Process runs C8 over every Template in schema. assignedTemplates holds
// the bare include names (the part after "skinshortcuts-template-") that
// some other part of the config references via
// $INCLUDE[skinshortcuts-template-{name}]; it resolves templateonly="auto"
// gating and is typically built by scanning every item property value
// with expr.IncludeNames.
func Process(schema *templateconf.Schema, menus []menuconf.Menu, propertySchema *propertyschema.Schema, assignedTemplates map[string]bool) *Result {
	p := &processor{
		schema:         schema,
		propertySchema: propertySchema,
		menus:          menus,
		menuByName:     indexMenus(menus),
		assigned:       assignedTemplates,
		includes:       map[string]*xmltree.Node{},
		templateOnly:   map[string]string{},
	}

	for _, tmpl := range schema.Templates {
		outputs := tmpl.Outputs
		if len(outputs) == 0 {
			// The templates.xml loader always synthesizes a default output
			// for a template with no explicit <output> children, but
			// callers that build a Template value directly (tests, other
			// future loaders) may not have - so Process falls back the
			// same way here.
			outputs = []templateconf.TemplateOutput{{Include: tmpl.Include, IDPrefix: tmpl.IDPrefix, Suffix: ""}}
		}
		for _, output := range outputs {
			p.buildOutput(tmpl, output)
		}
	}

	return p.finalize()
}

type processor struct {
	schema         *templateconf.Schema
	propertySchema *propertyschema.Schema
	menus          []menuconf.Menu
	menuByName     map[string]menuconf.Menu
	assigned       map[string]bool

	includeOrder []string
	includes     map[string]*xmltree.Node
	templateOnly map[string]string
	variables    []*xmltree.Node
}

func indexMenus(menus []menuconf.Menu) map[string]menuconf.Menu {
	m := make(map[string]menuconf.Menu, len(menus))
	for _, menu := range menus {
		m[menu.Name] = menu
	}
	return m
}

func includeNameFor(output templateconf.TemplateOutput) string {
	return "skinshortcuts-template-" + output.Include
}

func (p *processor) accumulator(name string) *xmltree.Node {
	node, ok := p.includes[name]
	if !ok {
		node = xmltree.NewNode("include")
		node.SetAttribute("name", name)
		p.includes[name] = node
		p.includeOrder = append(p.includeOrder, name)
	}
	return node
}

func (p *processor) buildOutput(tmpl templateconf.Template, output templateconf.TemplateOutput) {
	name := includeNameFor(output)
	if tmpl.TemplateOnly != "" {
		p.templateOnly[name] = tmpl.TemplateOnly
	}
	acc := p.accumulator(name)

	params := map[string]string{}
	for _, param := range tmpl.Params {
		params[param.Name] = param.Default
	}

	switch tmpl.Build {
	case templateconf.BuildModeList:
		p.buildList(tmpl, output, acc, params)
	case templateconf.BuildModeRaw:
		p.buildRaw(tmpl, output, acc, params)
	default:
		p.buildMenu(tmpl, output, acc, params)
	}
}

func (p *processor) buildMenu(tmpl templateconf.Template, output templateconf.TemplateOutput, acc *xmltree.Node, params map[string]string) {
	for _, menu := range p.menus {
		if menu.IsSubmenu {
			continue
		}
		if tmpl.Menu != "" && menu.Name != tmpl.Menu {
			continue
		}
		for idx, item := range menu.Items {
			if item.Disabled {
				continue
			}
			if !p.checkConditions(tmpl.Conditions, menu, item) {
				continue
			}
			p.runIteration(tmpl, output, menu, item, idx+1, acc, params)
		}
	}
}

func (p *processor) buildList(tmpl templateconf.Template, output templateconf.TemplateOutput, acc *xmltree.Node, params map[string]string) {
	for idx, li := range tmpl.ListItems {
		props := ordmap.New()
		for _, k := range li.Keys {
			props.Set(k, li.Attributes[k])
		}
		item := menuconf.MenuItem{Name: li.Attributes["name"], Properties: props}
		menu := menuconf.Menu{}
		if !p.checkConditions(tmpl.Conditions, menu, item) {
			continue
		}
		p.runIteration(tmpl, output, menu, item, idx+1, acc, params)
	}
}

func (p *processor) buildRaw(tmpl templateconf.Template, output templateconf.TemplateOutput, acc *xmltree.Node, params map[string]string) {
	item := menuconf.MenuItem{Properties: ordmap.New()}
	menu := menuconf.Menu{}
	if !p.checkConditions(tmpl.Conditions, menu, item) {
		return
	}

	ctx := buildctx.Build(menu, item, 0, tmpl, output, p.propertySchema, p.schema)
	ctx.Set("index", "")
	ctx.Set("name", "")
	ctx.Set("menu", "")

	p.processControls(tmpl, item, menu, ctx, acc, params)
	p.emitVariables(tmpl, output, item, ctx)
}

// runIteration is the per-item body MENU and LIST builds share: build the
// context, process the controls, emit variables.
func (p *processor) runIteration(tmpl templateconf.Template, output templateconf.TemplateOutput, menu menuconf.Menu, item menuconf.MenuItem, index int, acc *xmltree.Node, params map[string]string) {
	ctx := buildctx.Build(menu, item, index, tmpl, output, p.propertySchema, p.schema)
	p.processControls(tmpl, item, menu, ctx, acc, params)
	p.emitVariables(tmpl, output, item, ctx)
}

func (p *processor) processControls(tmpl templateconf.Template, item menuconf.MenuItem, menu menuconf.Menu, ctx *ordmap.Map, acc *xmltree.Node, params map[string]string) {
	if tmpl.Controls == nil {
		return
	}
	f := &frame{p: p, ctx: ctx, item: item, menu: menu, params: params}
	for _, c := range f.processChildren(tmpl.Controls.Copy().Children) {
		acc.AddChild(c)
	}
}

func (p *processor) emitVariables(tmpl templateconf.Template, output templateconf.TemplateOutput, item menuconf.MenuItem, ctx *ordmap.Map) {
	for _, vd := range tmpl.Variables {
		if v := p.buildVariable(vd, ctx, item); v != nil {
			p.variables = append(p.variables, v)
		}
	}
	for _, ref := range tmpl.VariableGroups {
		sfx := suffix.Combine(ref.Suffix, output.Suffix)
		condition := suffix.ApplyToCondition(expr.ExpandExpressions(ref.Condition, p.schema.Expressions), sfx)
		if !cond.Evaluate(condition, ctxWithItemMap(ctx, item)) {
			continue
		}
		p.walkVariableGroup(ref.Name, ctx, item, sfx)
	}
}

func (p *processor) checkConditions(conditions []string, menu menuconf.Menu, item menuconf.MenuItem) bool {
	props := itemProperties(menu, item)
	for _, c := range conditions {
		if !cond.Evaluate(expr.ExpandExpressions(c, p.schema.Expressions), props) {
			return false
		}
	}
	return true
}

func itemProperties(menu menuconf.Menu, item menuconf.MenuItem) map[string]string {
	merged := map[string]string{}
	if menu.Defaults.Properties != nil {
		for k, v := range menu.Defaults.Properties.ToMap() {
			merged[k] = v
		}
	}
	if item.Properties != nil {
		for k, v := range item.Properties.ToMap() {
			merged[k] = v
		}
	}
	return merged
}

func ctxWithItemMap(ctx *ordmap.Map, item menuconf.MenuItem) map[string]string {
	merged := map[string]string{}
	if item.Properties != nil {
		for k, v := range item.Properties.ToMap() {
			merged[k] = v
		}
	}
	for k, v := range ctx.ToMap() {
		merged[k] = v
	}
	return merged
}

// frame threads the state element processing needs through one recursive
// walk of a copied <controls> body: the active property context, the item
// and menu the iteration is for, the template's RAW-mode parameter
// defaults, and - only inside a skinshortcuts items="" subtree - the
// enclosing parent frame that $PARENT[...] resolves against.
type frame struct {
	p      *processor
	ctx    *ordmap.Map
	item   menuconf.MenuItem
	menu   menuconf.Menu
	params map[string]string
	parent *frame
}

func (f *frame) evalProps() map[string]string {
	return ctxWithItemMap(f.ctx, f.item)
}

// processChildren processes each of children, returning the replacement
// list for the parent's child slice: a node that fails a gating condition
// contributes nothing, an unwrapped include splices in several nodes,
// everything else contributes exactly the one node it started as.
func (f *frame) processChildren(children []*xmltree.Node) []*xmltree.Node {
	var out []*xmltree.Node
	for _, child := range children {
		out = append(out, f.processElement(child)...)
	}
	return out
}

func (f *frame) processElement(n *xmltree.Node) []*xmltree.Node {
	if n.Tag == "skinshortcuts" {
		if strings.TrimSpace(n.Text) == "visibility" {
			return []*xmltree.Node{f.buildVisibility(n)}
		}
		if includeName, ok := n.Attribute("include"); ok {
			return f.expandInclude(n, includeName)
		}
		if subkey, ok := n.Attribute("items"); ok {
			return f.expandItems(n, subkey)
		}
		return nil
	}

	n.Text = f.substitute(n.Text)
	n.Tail = f.substitute(n.Tail)
	for i, a := range n.Attr {
		n.Attr[i].Value = f.substitute(a.Value)
	}
	n.Children = f.processChildren(n.Children)
	n.Children = splitIncludeText(n)

	return []*xmltree.Node{n}
}

func (f *frame) buildVisibility(n *xmltree.Node) *xmltree.Node {
	visible := xmltree.NewNode("visible")
	visible.Text = fmt.Sprintf("String.IsEqual(Container(%s).ListItem.Property(name),%s)", f.menu.Container, f.item.Name)
	visible.Tail = n.Tail
	return visible
}

func (f *frame) expandInclude(n *xmltree.Node, includeName string) []*xmltree.Node {
	if condition, ok := n.Attribute("condition"); ok {
		expanded := expr.ExpandExpressions(condition, f.p.schema.Expressions)
		if !cond.Evaluate(expanded, f.evalProps()) {
			return nil
		}
	}
	def, ok := f.p.schema.GetInclude(includeName)
	if !ok || def.Controls == nil {
		return nil
	}

	copied := def.Controls.Copy()
	copied.Children = f.processChildren(copied.Children)

	if strings.EqualFold(n.AttributeOr("wrap", ""), "true") {
		wrapper := xmltree.NewNode("include")
		wrapper.SetAttribute("name", includeName)
		wrapper.Children = copied.Children
		wrapper.Tail = n.Tail
		return []*xmltree.Node{wrapper}
	}

	if len(copied.Children) > 0 && n.Tail != "" {
		last := copied.Children[len(copied.Children)-1]
		last.Tail += n.Tail
	}
	return copied.Children
}

func (f *frame) expandItems(n *xmltree.Node, subkey string) []*xmltree.Node {
	if condition, ok := n.Attribute("condition"); ok {
		expanded := expr.ExpandExpressions(condition, f.p.schema.Expressions)
		if !cond.Evaluate(expanded, f.evalProps()) {
			return nil
		}
	}

	submenuName := f.item.Name + "." + subkey
	submenu, ok := f.p.menuByName[submenuName]
	if !ok {
		return nil
	}
	filterExpr, hasFilter := n.Attribute("filter")

	var out []*xmltree.Node
	for idx, subItem := range submenu.Items {
		if subItem.Disabled {
			continue
		}
		if hasFilter {
			expanded := expr.ExpandExpressions(filterExpr, f.p.schema.Expressions)
			if !cond.Evaluate(expanded, itemProperties(submenu, subItem)) {
				continue
			}
		}

		childCtx := buildctx.Build(submenu, subItem, idx+1, templateconf.Template{}, templateconf.TemplateOutput{}, f.p.propertySchema, f.p.schema)
		child := &frame{p: f.p, ctx: childCtx, item: subItem, menu: submenu, params: f.params, parent: f}
		for _, c := range n.Children {
			out = append(out, child.processElement(c.Copy())...)
		}
	}
	return out
}

// substitute applies, in order: $PARENT (only inside an items="" subtree),
// $EXP (textual inline against the schema's expression table), $PARAM
// (RAW-mode parameter defaults), then $MATH/$IF/$PROPERTY via
// expr.SubstituteAll, with context taking priority over item properties.
func (f *frame) substitute(text string) string {
	if text == "" {
		return text
	}
	if f.parent != nil {
		text = parentPattern.ReplaceAllStringFunc(text, func(match string) string {
			name := parentPattern.FindStringSubmatch(match)[1]
			return f.parent.resolve(name)
		})
	}
	text = expr.ExpandExpressions(text, f.p.schema.Expressions)
	text = substituteParams(text, f.params)
	itemProps := map[string]string{}
	if f.item.Properties != nil {
		itemProps = f.item.Properties.ToMap()
	}
	return expr.SubstituteAll(text, f.ctx.ToMap(), itemProps)
}

func (f *frame) resolve(name string) string {
	if v, ok := f.ctx.Get(name); ok {
		return v
	}
	if f.item.Properties != nil {
		if v, ok := f.item.Properties.Get(name); ok {
			return v
		}
	}
	return ""
}

func substituteParams(text string, params map[string]string) string {
	if len(params) == 0 {
		return text
	}
	return paramPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := paramPattern.FindStringSubmatch(match)[1]
		return params[name]
	})
}

// splitIncludeText converts the first $INCLUDE[name] reference remaining
// in n.Text (after other substitutions) into a prepended <include>name
// </include> child, matching the original's single-match behavior.
func splitIncludeText(n *xmltree.Node) []*xmltree.Node {
	loc := inlineIncludePattern.FindStringSubmatchIndex(n.Text)
	if loc == nil {
		return n.Children
	}
	before, name, after := n.Text[:loc[0]], n.Text[loc[2]:loc[3]], n.Text[loc[1]:]
	n.Text = before

	includeNode := xmltree.NewNode("include")
	includeNode.Text = name
	includeNode.Tail = after
	return append([]*xmltree.Node{includeNode}, n.Children...)
}

func (p *processor) buildVariable(vd templateconf.VariableDefinition, ctx *ordmap.Map, item menuconf.MenuItem) *xmltree.Node {
	if !cond.Evaluate(expr.ExpandExpressions(vd.Condition, p.schema.Expressions), ctxWithItemMap(ctx, item)) {
		return nil
	}

	itemProps := map[string]string{}
	if item.Properties != nil {
		itemProps = item.Properties.ToMap()
	}

	name := vd.Name
	if vd.Output != "" {
		name = expr.SubstituteProperty(vd.Output, ctx.ToMap(), itemProps)
	}

	variable := xmltree.NewNode("variable")
	variable.SetAttribute("name", name)
	if vd.Content != nil {
		variable.Text = expr.SubstituteProperty(vd.Content.Text, ctx.ToMap(), itemProps)
		for _, c := range vd.Content.Children {
			variable.AddChild(substituteVariableTree(c, ctx.ToMap(), itemProps))
		}
	}
	return variable
}

func substituteVariableTree(n *xmltree.Node, context, itemProperties map[string]string) *xmltree.Node {
	cp := n.Copy()
	cp.Walk(func(node *xmltree.Node) {
		node.Text = expr.SubstituteProperty(node.Text, context, itemProperties)
		node.Tail = expr.SubstituteProperty(node.Tail, context, itemProperties)
		for i, a := range node.Attr {
			node.Attr[i].Value = expr.SubstituteProperty(a.Value, context, itemProperties)
		}
	})
	return cp
}

func (p *processor) walkVariableGroup(name string, ctx *ordmap.Map, item menuconf.MenuItem, sfx string) {
	group, ok := p.schema.GetVariableGroup(name)
	if !ok {
		return
	}
	for _, ref := range group.References {
		condition := suffix.ApplyToCondition(expr.ExpandExpressions(ref.Condition, p.schema.Expressions), sfx)
		if !cond.Evaluate(condition, ctxWithItemMap(ctx, item)) {
			continue
		}
		vd, ok := p.schema.GetVariableDefinition(ref.Name)
		if !ok {
			continue
		}
		if v := p.buildVariable(vd, ctx, item); v != nil {
			p.variables = append(p.variables, v)
		}
	}
	for _, gr := range group.GroupRefs {
		p.walkVariableGroup(gr.Name, ctx, item, sfx)
	}
}

func (p *processor) finalize() *Result {
	result := &Result{Includes: map[string]*xmltree.Node{}, Variables: p.variables}
	for _, name := range p.includeOrder {
		switch p.templateOnly[name] {
		case "true":
			continue
		case "auto":
			bareName := strings.TrimPrefix(name, "skinshortcuts-template-")
			if !p.assigned[bareName] {
				continue
			}
		}

		node := p.includes[name]
		if len(node.Children) == 0 {
			desc := xmltree.NewNode("description")
			desc.Text = emptyIncludeDescription
			node.AddChild(desc)
		}
		result.Includes[name] = node
		result.IncludeNames = append(result.IncludeNames, name)
	}
	return result
}
