// Package backgrounds loads backgrounds.xml (C3), grounded on
// original_source/.../loaders/background.py and models/background.py.
package backgrounds

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/skinshortcuts/build/internal/configerr"
	"github.com/skinshortcuts/build/internal/content"
	"github.com/skinshortcuts/build/internal/ordmap"
)

// Type enumerates the seven background flavors.
type Type string

const (
	TypeStatic        Type = "static"
	TypePlaylist      Type = "playlist"
	TypeBrowse        Type = "browse"
	TypeMulti         Type = "multi"
	TypeProperty      Type = "property"
	TypeLive          Type = "live"
	TypeLivePlaylist  Type = "live-playlist"
)

var typeMap = map[string]Type{
	"static":        TypeStatic,
	"playlist":      TypePlaylist,
	"browse":        TypeBrowse,
	"multi":         TypeMulti,
	"property":      TypeProperty,
	"live":          TypeLive,
	"live-playlist": TypeLivePlaylist,
}

var optionalPathTypes = map[Type]bool{
	TypeBrowse:       true,
	TypeMulti:        true,
	TypePlaylist:     true,
	TypeLivePlaylist: true,
}

// PlaylistSource is a static/live playlist source entry.
type PlaylistSource struct {
	Label string
	Path  string
	Icon  string
}

// BrowseSource is a browse/multi source entry.
type BrowseSource struct {
	Label     string
	Path      string
	Condition string
	Visible   string
	Icon      string
}

// Background is a single background definition.
type Background struct {
	Name          string
	Label         string
	Path          string
	Type          Type
	Icon          string
	Condition     string
	Visible       string
	Sources       []PlaylistSource
	BrowseSources []BrowseSource
}

// ToProperties produces the fixed property map for a matching item, keyed
// under prefix rather than a hardcoded "background" so the caller can
// name the slot.
func (b Background) ToProperties(prefix string) *ordmap.Map {
	m := ordmap.New()
	m.Set(prefix, b.Name)
	m.Set(prefix+"Path", b.Path)
	m.Set(prefix+"Label", b.Label)
	m.Set(prefix+"Type", string(b.Type))
	if b.Icon != "" {
		m.Set(prefix+"Icon", b.Icon)
	}
	return m
}

// Group is a background grouping, potentially nested.
type Group struct {
	Name      string
	Label     string
	Condition string
	Visible   string
	Icon      string
	Backgrounds []Background
	Groups      []*Group
	Contents    []content.Descriptor
}

// Config is the full parsed backgrounds.xml document.
type Config struct {
	Backgrounds []Background
	Groupings   []interface{}
}

// Find looks up a background by name, searching groups recursively.
func (c *Config) Find(name string) (Background, bool) {
	if c == nil {
		return Background{}, false
	}
	for _, b := range c.Backgrounds {
		if b.Name == name {
			return b, true
		}
	}
	for _, g := range c.Groupings {
		if grp, ok := g.(*Group); ok {
			if b, ok := findInGroup(grp, name); ok {
				return b, true
			}
		}
	}
	return Background{}, false
}

func findInGroup(g *Group, name string) (Background, bool) {
	for _, b := range g.Backgrounds {
		if b.Name == name {
			return b, true
		}
	}
	for _, sub := range g.Groups {
		if b, ok := findInGroup(sub, name); ok {
			return b, true
		}
	}
	return Background{}, false
}

// Load parses path, returning an empty Config if the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, configerr.New(configerr.KindBackground, path, err)
	}

	var root xmlBackgroundsRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, configerr.New(configerr.KindBackground, path, fmt.Errorf("parsing backgrounds.xml: %w", err))
	}

	cfg := &Config{}
	for _, raw := range root.Children {
		switch raw.XMLName.Local {
		case "background":
			bg, err := parseBackground(raw, path)
			if err != nil {
				return nil, err
			}
			cfg.Backgrounds = append(cfg.Backgrounds, bg)
			cfg.Groupings = append(cfg.Groupings, bg)
		case "group":
			g, err := parseGroup(raw, path)
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

type xmlBackgroundsRoot struct {
	XMLName  xml.Name  `xml:"backgrounds"`
	Children []xmlNode `xml:",any"`
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

func parseBackground(n xmlNode, path string) (Background, error) {
	name := n.attr("name")
	if name == "" {
		return Background{}, configerr.New(configerr.KindBackground, path, fmt.Errorf("background missing name attribute"))
	}
	label := n.attr("label")
	if label == "" {
		return Background{}, configerr.New(configerr.KindBackground, path, fmt.Errorf("background %q missing label attribute", name))
	}

	bgPath := n.childText("path")
	typeStr := n.attrOr("type", "static")
	bgType, ok := typeMap[strings.ToLower(typeStr)]
	if !ok {
		bgType = TypeStatic
	}

	if bgPath == "" && !optionalPathTypes[bgType] {
		return Background{}, configerr.New(configerr.KindBackground, path, fmt.Errorf("background %q missing <path>", name))
	}

	var sources []PlaylistSource
	var browseSources []BrowseSource
	for _, child := range n.Children {
		if child.XMLName.Local != "source" {
			continue
		}
		sourcePath := strings.TrimSpace(string(child.Content))
		if sourcePath == "" {
			continue
		}
		sourceLabel := child.attr("label")
		if bgType == TypeBrowse || bgType == TypeMulti {
			browseSources = append(browseSources, BrowseSource{
				Label:     sourceLabel,
				Path:      sourcePath,
				Condition: child.attr("condition"),
				Visible:   child.attr("visible"),
				Icon:      child.attr("icon"),
			})
		} else {
			sources = append(sources, PlaylistSource{
				Label: sourceLabel,
				Path:  sourcePath,
				Icon:  child.attrOr("icon", "DefaultPlaylist.png"),
			})
		}
	}

	return Background{
		Name:          name,
		Label:         label,
		Path:          bgPath,
		Type:          bgType,
		Icon:          n.childText("icon"),
		Condition:     n.attr("condition"),
		Visible:       n.attr("visible"),
		Sources:       sources,
		BrowseSources: browseSources,
	}, nil
}

func parseGroup(n xmlNode, path string) (*Group, error) {
	name := n.attr("name")
	label := n.attr("label")
	if name == "" || label == "" {
		return nil, nil
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
		case "background":
			bg, err := parseBackground(child, path)
			if err != nil {
				return nil, err
			}
			g.Backgrounds = append(g.Backgrounds, bg)
		case "group":
			nested, err := parseGroup(child, path)
			if err != nil {
				return nil, err
			}
			if nested != nil {
				g.Groups = append(g.Groups, nested)
			}
		case "content":
			attrs := make(map[string]string, len(child.Attrs))
			for _, a := range child.Attrs {
				attrs[a.Name.Local] = a.Value
			}
			if d, ok := content.ParseDescriptor(attrs); ok {
				g.Contents = append(g.Contents, d)
			}
		}
	}
	return g, nil
}
