// Package includes implements C9, the include assembler: it walks the
// menu graph and emits the script-skinshortcuts-includes.xml document -
// one <include> per root menu, one combined submenu include per root
// menu, one per custom-widget slot referenced by an item, the template
// includes and variables produced by the template processor (C8) when a
// template schema is configured, and the view-locking expressions
// produced by the view-expression builder (C10) when view rules and user
// data are available.
//
// Grounded on original_source/.../builders/includes.py: the menu/submenu/
// custom-widget shape, the before/conditional/unconditional/after action
// ordering, the control-type-mode property exclusion (all mirroring
// IncludesBuilder._build_item), and IncludesBuilder.build()'s top-level
// append order (menu includes, then template includes, then view
// expressions, all siblings of one <includes> root). Output serialization
// uses internal/xmltree's two-space indent rather than the Python's
// tab-based _indent_xml (see DESIGN.md).
package includes

import (
	"bytes"
	"path/filepath"
	"strconv"

	"github.com/skinshortcuts/build/internal/atomicfile"
	"github.com/skinshortcuts/build/internal/expr"
	"github.com/skinshortcuts/build/internal/hashgate"
	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/propertyschema"
	"github.com/skinshortcuts/build/internal/templateconf"
	"github.com/skinshortcuts/build/internal/templatebuild"
	"github.com/skinshortcuts/build/internal/userdata"
	"github.com/skinshortcuts/build/internal/viewexpr"
	"github.com/skinshortcuts/build/internal/viewsconf"
	"github.com/skinshortcuts/build/internal/xmltree"
)

var customWidgetSlots = []string{"", ".2", ".3", ".4", ".5", ".6", ".7", ".8", ".9", ".10"}

type builder struct {
	propertySchema *propertyschema.Schema
	menuByName     map[string]menuconf.Menu
}

// Build assembles the full <includes> document: menu/submenu/custom-widget
// includes for menus, template includes and variables when templates
// declares at least one template, and view-locking expressions when views
// has at least one content rule and data is non-nil.
func Build(menus []menuconf.Menu, propertySchema *propertyschema.Schema, templates *templateconf.Schema, views *viewsconf.Config, data *userdata.UserData) *xmltree.Node {
	b := &builder{propertySchema: propertySchema, menuByName: indexMenus(menus)}

	root := xmltree.NewNode("includes")

	var templateResult *templatebuild.Result
	if templates != nil && len(templates.Templates) > 0 {
		templateResult = templatebuild.Process(templates, menus, propertySchema, detectAssignedTemplates(menus, templates))
	}

	if templateResult != nil {
		for _, v := range templateResult.Variables {
			root.AddChild(v)
		}
	}

	for _, menu := range menus {
		if menu.IsSubmenu {
			continue
		}

		root.AddChild(b.buildMenuInclude(menu))

		if submenuInclude := b.buildSubmenuInclude(menu); submenuInclude != nil {
			root.AddChild(submenuInclude)
		}

		for _, cw := range b.buildCustomWidgetIncludes(menu) {
			root.AddChild(cw)
		}
	}

	if templateResult != nil {
		for _, name := range templateResult.IncludeNames {
			root.AddChild(templateResult.Includes[name])
		}
	}

	if data != nil {
		for _, expression := range viewexpr.Build(views, data) {
			root.AddChild(expression)
		}
	}

	return root
}

// WriteAll serializes doc and writes it atomically, as
// hashgate.IncludesFileName, into every directory in outputPaths.
func WriteAll(doc *xmltree.Node, outputPaths []string) error {
	var buf bytes.Buffer
	if err := xmltree.Write(&buf, doc); err != nil {
		return err
	}
	for _, dir := range outputPaths {
		path := filepath.Join(dir, hashgate.IncludesFileName)
		if err := atomicfile.Write(path, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func indexMenus(menus []menuconf.Menu) map[string]menuconf.Menu {
	m := make(map[string]menuconf.Menu, len(menus))
	for _, menu := range menus {
		m[menu.Name] = menu
	}
	return m
}

// detectAssignedTemplates scans every menu-default and item property
// value for $INCLUDE[skinshortcuts-template-{name}] references, producing
// the set template_only="auto" gating checks against.
func detectAssignedTemplates(menus []menuconf.Menu, templates *templateconf.Schema) map[string]bool {
	assigned := map[string]bool{}
	mark := func(v string) {
		for _, name := range expr.IncludeNames(v) {
			assigned[name] = true
		}
	}
	for _, menu := range menus {
		if menu.Defaults.Properties != nil {
			for _, v := range menu.Defaults.Properties.ToMap() {
				mark(v)
			}
		}
		for _, item := range menu.Items {
			if item.Properties != nil {
				for _, v := range item.Properties.ToMap() {
					mark(v)
				}
			}
			for _, a := range item.Actions {
				mark(a.Action)
			}
		}
	}
	for _, tmpl := range templates.Templates {
		for _, output := range tmpl.Outputs {
			mark(output.Include)
		}
	}
	return assigned
}

func (b *builder) buildMenuInclude(menu menuconf.Menu) *xmltree.Node {
	include := xmltree.NewNode("include")
	include.SetAttribute("name", "skinshortcuts-"+menu.Name)

	start := 1
	if menu.ControlType != "" {
		start = menu.StartID
	}
	for idx, item := range menu.Items {
		if item.Disabled {
			continue
		}
		include.AddChild(b.buildItem(item, start+idx, menu))
	}
	return include
}

type submenuEntry struct {
	parent menuconf.MenuItem
	item   menuconf.MenuItem
	menu   menuconf.Menu
}

func (b *builder) buildSubmenuInclude(parentMenu menuconf.Menu) *xmltree.Node {
	var entries []submenuEntry
	for _, parentItem := range parentMenu.Items {
		if parentItem.Disabled {
			continue
		}
		submenuName := parentItem.Submenu
		if submenuName == "" {
			submenuName = parentItem.Name
		}
		submenu, ok := b.menuByName[submenuName]
		if !ok {
			continue
		}
		for _, subItem := range submenu.Items {
			if subItem.Disabled {
				continue
			}
			entries = append(entries, submenuEntry{parent: parentItem, item: subItem, menu: submenu})
		}
	}
	if len(entries) == 0 {
		return nil
	}

	include := xmltree.NewNode("include")
	include.SetAttribute("name", "skinshortcuts-"+parentMenu.Name+"-submenu")

	for idx, e := range entries {
		include.AddChild(b.buildSubmenuItem(e.item, idx+1, e.parent, e.menu, parentMenu.Container))
	}
	return include
}

func (b *builder) buildSubmenuItem(item menuconf.MenuItem, idx int, parentItem menuconf.MenuItem, menu menuconf.Menu, container string) *xmltree.Node {
	elem := b.buildItem(item, idx, menu)
	addProperty(elem, "parent", parentItem.Name)

	if container != "" {
		visibility := "String.IsEqual(Container(" + container + ").ListItem.Property(name)," + parentItem.Name + ")"
		if existing := elem.FindChild("visible"); existing != nil && existing.Text != "" {
			existing.Text = "[" + existing.Text + "] + [" + visibility + "]"
		} else if existing != nil {
			existing.Text = visibility
		} else {
			v := xmltree.NewNode("visible")
			v.Text = visibility
			elem.AddChild(v)
		}
	}
	return elem
}

func (b *builder) buildCustomWidgetIncludes(parentMenu menuconf.Menu) []*xmltree.Node {
	var out []*xmltree.Node
	for _, parentItem := range parentMenu.Items {
		if parentItem.Disabled {
			continue
		}
		for _, slotSuffix := range customWidgetSlots {
			propName := "customWidget" + slotSuffix
			if parentItem.Properties == nil {
				continue
			}
			cwMenuRef, ok := parentItem.Properties.Get(propName)
			if !ok || cwMenuRef == "" {
				continue
			}
			cwMenu, ok := b.menuByName[cwMenuRef]
			if !ok || len(cwMenu.Items) == 0 {
				continue
			}

			nameSuffix := slotSuffix
			if nameSuffix != "" {
				nameSuffix = nameSuffix[1:]
			}
			include := xmltree.NewNode("include")
			include.SetAttribute("name", "skinshortcuts-"+parentItem.Name+"-customwidget"+nameSuffix)

			idx := 1
			for _, cwItem := range cwMenu.Items {
				if cwItem.Disabled {
					continue
				}
				include.AddChild(b.buildItem(cwItem, idx, cwMenu))
				idx++
			}
			out = append(out, include)
		}
	}
	return out
}

// buildItem mirrors IncludesBuilder._build_item: an <item> (default) or a
// <control type="..."> (control-type menus), label/icon/thumb, onclick
// actions in before-defaults / conditional / unconditional /
// after-defaults order, visibility, and (non-control-type menus only) the
// id/name/menu/path/submenuVisibility/hasSubmenu built-ins plus
// every merged menu-default+item property not marked template_only.
func (b *builder) buildItem(item menuconf.MenuItem, idx int, menu menuconf.Menu) *xmltree.Node {
	var elem *xmltree.Node
	if menu.ControlType != "" {
		elem = xmltree.NewNode("control")
		elem.SetAttribute("type", menu.ControlType)
	} else {
		elem = xmltree.NewNode("item")
	}
	elem.SetAttribute("id", strconv.Itoa(idx))

	label := xmltree.NewNode("label")
	label.Text = item.Label
	elem.AddChild(label)
	if item.Label2 != "" {
		label2 := xmltree.NewNode("label2")
		label2.Text = item.Label2
		elem.AddChild(label2)
	}
	icon := xmltree.NewNode("icon")
	icon.Text = item.Icon
	elem.AddChild(icon)
	if item.Thumb != "" {
		thumb := xmltree.NewNode("thumb")
		thumb.Text = item.Thumb
		elem.AddChild(thumb)
	}

	var conditional, unconditional []menuconf.Action
	for _, a := range item.Actions {
		if a.Condition != "" {
			conditional = append(conditional, a)
		} else {
			unconditional = append(unconditional, a)
		}
	}
	var before, after []menuconf.DefaultAction
	for _, a := range menu.Defaults.Actions {
		if a.When == "after" {
			after = append(after, a)
		} else {
			before = append(before, a)
		}
	}

	for _, a := range before {
		elem.AddChild(onclick(a.Action, a.Condition))
	}
	for _, a := range conditional {
		elem.AddChild(onclick(a.Action, a.Condition))
	}
	for _, a := range unconditional {
		elem.AddChild(onclick(a.Action, a.Condition))
	}
	for _, a := range after {
		elem.AddChild(onclick(a.Action, a.Condition))
	}

	if item.Visible != "" {
		visible := xmltree.NewNode("visible")
		visible.Text = item.Visible
		elem.AddChild(visible)
	}

	if menu.ControlType == "" {
		addProperty(elem, "id", strconv.Itoa(idx))
		addProperty(elem, "name", item.Name)
		addProperty(elem, "menu", menu.Name)
		if len(item.Actions) > 0 {
			addProperty(elem, "path", item.Actions[0].Action)
		}

		submenuName := item.Submenu
		if submenuName == "" {
			submenuName = item.Name
		}
		if submenu, ok := b.menuByName[submenuName]; ok && len(submenu.Items) > 0 {
			addProperty(elem, "submenuVisibility", submenuName)
			addProperty(elem, "hasSubmenu", "True")
		}

		for _, key := range mergedPropertyOrder(menu, item) {
			if b.isTemplateOnly(key) {
				continue
			}
			addProperty(elem, key, mergedProperty(menu, item, key))
		}
	}

	return elem
}

// mergedPropertyOrder walks menu defaults first, then item properties,
// each in declared order, producing the deduplicated key order item
// properties override by value but never displace in position.
func mergedPropertyOrder(menu menuconf.Menu, item menuconf.MenuItem) []string {
	seen := map[string]bool{}
	var order []string
	if menu.Defaults.Properties != nil {
		for _, k := range menu.Defaults.Properties.Keys() {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}
	if item.Properties != nil {
		for _, k := range item.Properties.Keys() {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}
	return order
}

func mergedProperty(menu menuconf.Menu, item menuconf.MenuItem, key string) string {
	if item.Properties != nil {
		if v, ok := item.Properties.Get(key); ok {
			return v
		}
	}
	if menu.Defaults.Properties != nil {
		if v, ok := menu.Defaults.Properties.Get(key); ok {
			return v
		}
	}
	return ""
}

func (b *builder) isTemplateOnly(name string) bool {
	if b.propertySchema == nil {
		return false
	}
	prop, ok := b.propertySchema.GetProperty(name)
	return ok && prop.TemplateOnly
}

func onclick(action, condition string) *xmltree.Node {
	n := xmltree.NewNode("onclick")
	n.Text = action
	if condition != "" {
		n.SetAttribute("condition", condition)
	}
	return n
}

func addProperty(parent *xmltree.Node, name, value string) {
	if value == "" {
		return
	}
	prop := xmltree.NewNode("property")
	prop.SetAttribute("name", name)
	prop.Text = value
	parent.AddChild(prop)
}
