// Package menuconf loads menus.xml (C3) and holds the menu graph data
// model. No original_source model exists for this file (the retrieval
// pack never included a menu.py); the loader's shape (generic node decode
// + attr/child helpers) follows the same pattern established for
// widgets/backgrounds/propertyschema/viewsconf, which are grounded on the
// Python loaders.
package menuconf

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skinshortcuts/build/internal/configerr"
	"github.com/skinshortcuts/build/internal/ordmap"
)

// Action is a single action string with an optional guarding condition.
type Action struct {
	Action    string
	Condition string
}

// DefaultAction is a Menu-level default action, tagged for before/after
// placement relative to an item's own actions and optionally conditional.
type DefaultAction struct {
	Action    string
	Condition string
	When      string // "before" or "after"
}

// Protection is a deletion/edit guard record surfaced to the external
// dialog; the core only carries it through unchanged.
type Protection struct {
	Message string
}

// MenuItem is the atomic unit of a Menu.
type MenuItem struct {
	Name           string
	Label          string
	Label2         string
	Icon           string
	Thumb          string
	Actions        []Action
	OriginalAction string
	Visible        string
	DialogVisible  string
	Disabled       bool
	Required       bool
	Protection     *Protection
	Submenu        string
	Properties     *ordmap.Map
}

// MenuDefaults are the properties and default actions a Menu contributes to
// every one of its items before item-level overrides apply.
type MenuDefaults struct {
	Properties *ordmap.Map
	Actions    []DefaultAction
}

// MenuAllow holds three independent per-menu feature toggles.
type MenuAllow struct {
	Widgets     bool
	Backgrounds bool
	Submenus    bool
}

// Menu is a named, ordered list of MenuItems.
type Menu struct {
	Name        string
	Container   string
	IsSubmenu   bool
	Items       []MenuItem
	Defaults    MenuDefaults
	Allow       MenuAllow
	ControlType string
	StartID     int
}

// ActionOverrideRule rewrites an action string via case-insensitive match.
type ActionOverrideRule struct {
	Match       string
	Replacement string
}

// Config is the full parsed menus.xml document.
type Config struct {
	Menus               []Menu
	ActionOverrides     []ActionOverrideRule
	ContextMenuEnabled  bool
}

// GetMenu looks up a menu by name.
func (c *Config) GetMenu(name string) (*Menu, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Menus {
		if c.Menus[i].Name == name {
			return &c.Menus[i], true
		}
	}
	return nil, false
}

// Load parses path, returning an empty Config if the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{ContextMenuEnabled: true}, nil
	}
	if err != nil {
		return nil, configerr.New(configerr.KindMenu, path, err)
	}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, configerr.New(configerr.KindMenu, path, fmt.Errorf("parsing menus.xml: %w", err))
	}
	if root.XMLName.Local != "menus" {
		return nil, configerr.New(configerr.KindMenu, path, fmt.Errorf("root element must be <menus>, got <%s>", root.XMLName.Local))
	}

	cfg := &Config{ContextMenuEnabled: root.attrOr("contextmenu", "true") != "false"}

	for _, n := range root.children("menu") {
		m, err := parseMenu(n, path)
		if err != nil {
			return nil, err
		}
		cfg.Menus = append(cfg.Menus, m)
	}

	if overridesNode := root.child("actionoverrides"); overridesNode != nil {
		for _, n := range overridesNode.children("override") {
			match := n.attr("match")
			replacement := n.attr("replace")
			if match == "" {
				continue
			}
			cfg.ActionOverrides = append(cfg.ActionOverrides, ActionOverrideRule{Match: match, Replacement: replacement})
		}
	}

	return cfg, nil
}

func parseMenu(n xmlNode, path string) (Menu, error) {
	name := n.attr("name")
	if name == "" {
		return Menu{}, configerr.New(configerr.KindMenu, path, fmt.Errorf("menu missing name attribute"))
	}

	m := Menu{
		Name:        name,
		Container:   n.attr("container"),
		IsSubmenu:   strings.EqualFold(n.attr("submenu"), "true"),
		ControlType: n.attr("controltype"),
		Allow: MenuAllow{
			Widgets:     n.attrOr("allowwidgets", "true") != "false",
			Backgrounds: n.attrOr("allowbackgrounds", "true") != "false",
			Submenus:    n.attrOr("allowsubmenus", "true") != "false",
		},
	}

	if startID := n.attr("startid"); startID != "" {
		if v, err := strconv.Atoi(startID); err == nil {
			m.StartID = v
		}
	}

	if defaultsNode := n.child("defaults"); defaultsNode != nil {
		defaults, err := parseDefaults(*defaultsNode)
		if err != nil {
			return Menu{}, err
		}
		m.Defaults = defaults
	} else {
		m.Defaults = MenuDefaults{Properties: ordmap.New()}
	}

	widgetDesugar := n.attr("widget")
	backgroundDesugar := n.attr("background")

	for _, itemNode := range n.children("item") {
		item, err := parseItem(itemNode, path)
		if err != nil {
			return Menu{}, err
		}
		if widgetDesugar != "" {
			item.Properties.SetIfAbsent("widget", widgetDesugar)
		}
		if backgroundDesugar != "" {
			item.Properties.SetIfAbsent("background", backgroundDesugar)
		}
		m.Items = append(m.Items, item)
	}

	return m, nil
}

func parseDefaults(n xmlNode) (MenuDefaults, error) {
	props := ordmap.New()
	for _, p := range n.children("property") {
		name := p.attr("name")
		if name == "" {
			continue
		}
		props.Set(name, strings.TrimSpace(string(p.Content)))
	}

	var actions []DefaultAction
	for _, a := range n.children("action") {
		when := a.attrOr("when", "before")
		actions = append(actions, DefaultAction{
			Action:    strings.TrimSpace(string(a.Content)),
			Condition: a.attr("condition"),
			When:      when,
		})
	}

	return MenuDefaults{Properties: props, Actions: actions}, nil
}

func parseItem(n xmlNode, path string) (MenuItem, error) {
	name := n.attr("name")
	if name == "" {
		return MenuItem{}, configerr.New(configerr.KindMenu, path, fmt.Errorf("item missing name attribute"))
	}
	label := n.childText("label")

	item := MenuItem{
		Name:          name,
		Label:         label,
		Label2:        n.childText("label2"),
		Icon:          n.childText("icon"),
		Thumb:         n.childText("thumb"),
		Visible:       n.attr("visible"),
		DialogVisible: n.attr("dialog_visible"),
		Disabled:      strings.EqualFold(n.attr("disabled"), "true"),
		Required:      strings.EqualFold(n.attr("required"), "true"),
		Submenu:       n.attr("submenu"),
		Properties:    ordmap.New(),
	}

	for _, a := range n.children("action") {
		item.Actions = append(item.Actions, Action{
			Action:    strings.TrimSpace(string(a.Content)),
			Condition: a.attr("condition"),
		})
	}
	if len(item.Actions) > 0 {
		item.OriginalAction = item.Actions[0].Action
	}

	if protectionNode := n.child("protection"); protectionNode != nil {
		item.Protection = &Protection{Message: strings.TrimSpace(string(protectionNode.Content))}
	}

	for _, p := range n.children("property") {
		pname := p.attr("name")
		if pname == "" {
			continue
		}
		item.Properties.Set(pname, strings.TrimSpace(string(p.Content)))
	}

	return item, nil
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

func (n xmlNode) childText(tag string) string {
	for _, c := range n.Children {
		if c.XMLName.Local == tag {
			return strings.TrimSpace(string(c.Content))
		}
	}
	return ""
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
