// Package viewsconf loads views.xml (C3): the view-locking prefix, view
// definitions, and per-content-type view rules consumed by C10. Grounded on
// original_source/.../loaders/views.py and models/views.py.
package viewsconf

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/skinshortcuts/build/internal/configerr"
)

const defaultViewPrefix = "ShortcutView_"

// View is a single selectable view control.
type View struct {
	ID    string
	Label string
	Icon  string
}

// Content is a content-type's view rule: which views it may use, its
// library/plugin default, and the host visibility predicate gating it.
type Content struct {
	Name           string
	Label          string
	Visible        string
	Views          []string
	LibraryDefault string
	PluginDefault  string
	Icon           string
}

// GetDefault returns the effective default view id for isPlugin context,
// falling back to the library default when no plugin default is set.
func (c Content) GetDefault(isPlugin bool) string {
	if isPlugin && c.PluginDefault != "" {
		return c.PluginDefault
	}
	return c.LibraryDefault
}

// Config is the full parsed views.xml document.
type Config struct {
	Views        []View
	ContentRules []Content
	Prefix       string
}

// GetView looks up a view definition by id.
func (c *Config) GetView(id string) (View, bool) {
	if c == nil {
		return View{}, false
	}
	for _, v := range c.Views {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}

// GetContent looks up a content rule by name.
func (c *Config) GetContent(name string) (Content, bool) {
	if c == nil {
		return Content{}, false
	}
	for _, cr := range c.ContentRules {
		if cr.Name == name {
			return cr, true
		}
	}
	return Content{}, false
}

// Load parses path, returning an empty Config (with the default prefix) if
// the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{Prefix: defaultViewPrefix}, nil
	}
	if err != nil {
		return nil, configerr.New(configerr.KindView, path, err)
	}

	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("parsing views.xml: %w", err))
	}
	if root.XMLName.Local != "views" {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("root element must be <views>, got <%s>", root.XMLName.Local))
	}

	prefix := root.attr("prefix")
	if prefix == "" {
		prefix = defaultViewPrefix
	}

	views, err := parseViews(root, path)
	if err != nil {
		return nil, err
	}

	rules, err := parseRules(root, path, views)
	if err != nil {
		return nil, err
	}

	return &Config{Views: views, ContentRules: rules, Prefix: prefix}, nil
}

func parseViews(root xmlNode, path string) ([]View, error) {
	var views []View
	for _, n := range root.children("view") {
		id := n.attr("id")
		if id == "" {
			return nil, configerr.New(configerr.KindView, path, fmt.Errorf("view missing id attribute"))
		}
		label := n.attr("label")
		if label == "" {
			return nil, configerr.New(configerr.KindView, path, fmt.Errorf("view %q missing label attribute", id))
		}
		views = append(views, View{ID: id, Label: label, Icon: n.attr("icon")})
	}
	return views, nil
}

func parseRules(root xmlNode, path string, views []View) ([]Content, error) {
	rulesNode := root.child("rules")
	if rulesNode == nil {
		return nil, nil
	}

	validIDs := make(map[string]bool, len(views))
	for _, v := range views {
		validIDs[v.ID] = true
	}

	var rules []Content
	for _, n := range rulesNode.children("content") {
		c, err := parseContent(n, path, validIDs)
		if err != nil {
			return nil, err
		}
		if c != nil {
			rules = append(rules, *c)
		}
	}
	return rules, nil
}

func parseContent(n xmlNode, path string, validIDs map[string]bool) (*Content, error) {
	name := n.attr("name")
	if name == "" {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content rule missing name attribute"))
	}
	label := n.attr("label")
	if label == "" {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content %q missing label attribute", name))
	}
	libraryDefault := n.attr("library")
	if libraryDefault == "" {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content %q missing library attribute", name))
	}

	visibleNode := n.child("visible")
	if visibleNode == nil || strings.TrimSpace(string(visibleNode.Content)) == "" {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content %q missing <visible> element", name))
	}
	visible := strings.TrimSpace(string(visibleNode.Content))

	viewsNode := n.child("views")
	if viewsNode == nil || strings.TrimSpace(string(viewsNode.Content)) == "" {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content %q missing <views> element", name))
	}

	var viewIDs []string
	for _, raw := range strings.Split(strings.TrimSpace(string(viewsNode.Content)), ",") {
		id := strings.TrimSpace(raw)
		if id != "" && validIDs[id] {
			viewIDs = append(viewIDs, id)
		}
	}
	if len(viewIDs) == 0 {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content %q has no valid view ids", name))
	}

	if !validIDs[libraryDefault] {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content %q library default %q is not a defined view", name, libraryDefault))
	}

	pluginDefault := n.attr("plugin")
	if pluginDefault != "" && !validIDs[pluginDefault] {
		return nil, configerr.New(configerr.KindView, path, fmt.Errorf("content %q plugin default %q is not a defined view", name, pluginDefault))
	}

	return &Content{
		Name:           name,
		Label:          label,
		Visible:        visible,
		Views:          viewIDs,
		LibraryDefault: libraryDefault,
		PluginDefault:  pluginDefault,
		Icon:           n.attr("icon"),
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
