// Package widgets loads widgets.xml (C3): flat widget records plus
// recursive groupings that may nest further groups or dynamic-content
// references. Grounded on
// original_source/.../loaders/widget.py and models/widget.py.
package widgets

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skinshortcuts/build/internal/configerr"
	"github.com/skinshortcuts/build/internal/content"
	"github.com/skinshortcuts/build/internal/ordmap"
)

// Widget is a single widget definition.
type Widget struct {
	Name      string
	Label     string
	Path      string
	Type      string
	Target    string
	Icon      string
	Condition string
	Visible   string
	SortBy    string
	SortOrder string
	Limit     *int
	Source    string
	Slot      string
}

// IsCustom reports whether this widget is user-authored rather than
// skin-declared (type == "custom").
func (w Widget) IsCustom() bool { return w.Type == "custom" }

// ToProperties produces the fixed property map a matching item receives,
// keyed under prefix (conventionally "widget", or "widget.2" for a suffixed
// slot).
func (w Widget) ToProperties(prefix string) *ordmap.Map {
	m := ordmap.New()
	m.Set(prefix, w.Name)
	m.Set(prefix+"Path", w.Path)
	m.Set(prefix+"Label", w.Label)
	m.Set(prefix+"Type", w.Type)
	m.Set(prefix+"Target", w.Target)
	if w.Icon != "" {
		m.Set(prefix+"Icon", w.Icon)
	}
	if w.SortBy != "" {
		m.Set(prefix+"SortBy", w.SortBy)
	}
	if w.SortOrder != "" {
		m.Set(prefix+"SortOrder", w.SortOrder)
	}
	if w.Limit != nil {
		m.Set(prefix+"Limit", strconv.Itoa(*w.Limit))
	}
	if w.Slot != "" {
		m.Set(prefix+"Slot", w.Slot)
	}
	return m
}

// Group is a widget grouping: a mix of widgets, nested groups, and dynamic
// content descriptors, presented together in a picker UI outside this
// core's scope.
type Group struct {
	Name      string
	Label     string
	Condition string
	Visible   string
	Icon      string
	Widgets   []Widget
	Groups    []*Group
	Contents  []content.Descriptor
}

// Config is the full parsed widgets.xml document.
type Config struct {
	Widgets      []Widget
	Groupings    []interface{} // Widget, *Group - root-level ordering as authored
	ShowGetMore  bool
}

// Find looks up a widget by name, searching groups recursively.
func (c *Config) Find(name string) (Widget, bool) {
	if c == nil {
		return Widget{}, false
	}
	for _, w := range c.Widgets {
		if w.Name == name {
			return w, true
		}
	}
	for _, g := range c.Groupings {
		if grp, ok := g.(*Group); ok {
			if w, ok := findInGroup(grp, name); ok {
				return w, true
			}
		}
	}
	return Widget{}, false
}

func findInGroup(g *Group, name string) (Widget, bool) {
	for _, w := range g.Widgets {
		if w.Name == name {
			return w, true
		}
	}
	for _, sub := range g.Groups {
		if w, ok := findInGroup(sub, name); ok {
			return w, true
		}
	}
	return Widget{}, false
}

var targetMap = map[string]string{
	"movies":   "movies",
	"tvshows":  "tvshows",
	"episodes": "episodes",
	"music":    "music",
	"musicvideos": "musicvideos",
}

// Load parses path, returning an empty Config if the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, configerr.New(configerr.KindWidget, path, err)
	}

	var root xmlWidgetsRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, configerr.New(configerr.KindWidget, path, fmt.Errorf("parsing widgets.xml: %w", err))
	}

	cfg := &Config{ShowGetMore: root.showGetMore()}
	for _, raw := range root.Children {
		switch raw.XMLName.Local {
		case "widget":
			w, err := parseWidget(raw, path, "")
			if err != nil {
				return nil, err
			}
			cfg.Widgets = append(cfg.Widgets, w)
			cfg.Groupings = append(cfg.Groupings, w)
		case "group":
			g, err := parseGroup(raw, path, "")
			if err != nil {
				return nil, err
			}
			if g != nil {
				cfg.Groupings = append(cfg.Groupings, g)
			}
		}
	}
	return cfg, nil
}

// xmlWidgetsRoot / xmlNode are a generic capture of <widgets> children,
// since widget/group/content can interleave and nest arbitrarily - a fixed
// struct-tag decode can't express that recursion cleanly, so we decode into
// a generic node and interpret it by tag name.
type xmlWidgetsRoot struct {
	XMLName      xml.Name  `xml:"widgets"`
	ShowGetMore  string    `xml:"showGetMore,attr"`
	Children     []xmlNode `xml:",any"`
}

func (r xmlWidgetsRoot) showGetMore() bool {
	if r.ShowGetMore == "" {
		return true
	}
	return strings.EqualFold(r.ShowGetMore, "true")
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

func (n xmlNode) childText(tag string) string {
	for _, c := range n.Children {
		if c.XMLName.Local == tag {
			return strings.TrimSpace(string(c.Content))
		}
	}
	return ""
}

func parseWidget(n xmlNode, path, defaultSource string) (Widget, error) {
	name := n.attr("name")
	if name == "" {
		return Widget{}, configerr.New(configerr.KindWidget, path, fmt.Errorf("widget missing name attribute"))
	}
	label := n.attr("label")
	if label == "" {
		return Widget{}, configerr.New(configerr.KindWidget, path, fmt.Errorf("widget %q missing label attribute", name))
	}
	widgetType := n.attr("type")
	widgetPath := n.childText("path")
	if widgetPath == "" && widgetType != "custom" {
		return Widget{}, configerr.New(configerr.KindWidget, path, fmt.Errorf("widget %q missing <path>", name))
	}

	source := n.attr("source")
	if source == "" {
		source = defaultSource
	}

	rawTarget := n.attr("target")
	if rawTarget == "" {
		rawTarget = "videos"
	}
	target := rawTarget
	if mapped, ok := targetMap[strings.ToLower(rawTarget)]; ok {
		target = mapped
	}

	var limit *int
	if lt := n.childText("limit"); lt != "" {
		if v, err := strconv.Atoi(lt); err == nil {
			limit = &v
		}
	}

	return Widget{
		Name:      name,
		Label:     label,
		Path:      widgetPath,
		Type:      widgetType,
		Target:    target,
		Icon:      n.attr("icon"),
		Condition: n.attr("condition"),
		Visible:   n.attr("visible"),
		SortBy:    n.childText("sortby"),
		SortOrder: n.childText("sortorder"),
		Limit:     limit,
		Source:    source,
		Slot:      n.attr("slot"),
	}, nil
}

func parseGroup(n xmlNode, path, defaultSource string) (*Group, error) {
	name := n.attr("name")
	label := n.attr("label")
	if name == "" || label == "" {
		return nil, nil
	}

	source := n.attr("source")
	if source == "" {
		source = defaultSource
	}

	g := &Group{
		Name:      name,
		Label:     label,
		Condition: n.attr("condition"),
		Visible:   n.attr("visible"),
		Icon:      n.attr("icon"),
	}

	for _, child := range n.Children {
		switch child.XMLName.Local {
		case "widget":
			w, err := parseWidget(child, path, source)
			if err != nil {
				return nil, err
			}
			g.Widgets = append(g.Widgets, w)
		case "group":
			nested, err := parseGroup(child, path, source)
			if err != nil {
				return nil, err
			}
			if nested != nil {
				g.Groups = append(g.Groups, nested)
			}
		case "content":
			if d, ok := content.ParseDescriptor(contentAttrs(child)); ok {
				g.Contents = append(g.Contents, d)
			}
		}
	}
	return g, nil
}

func contentAttrs(n xmlNode) map[string]string {
	m := make(map[string]string, len(n.Attrs))
	for _, a := range n.Attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}
