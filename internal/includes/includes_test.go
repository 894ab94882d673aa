package includes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/ordmap"
	"github.com/skinshortcuts/build/internal/propertyschema"
	"github.com/skinshortcuts/build/internal/userdata"
	"github.com/skinshortcuts/build/internal/viewsconf"
	"github.com/skinshortcuts/build/internal/xmltree"
)

func itemNamed(name string, props ...string) menuconf.MenuItem {
	m := ordmap.New()
	for i := 0; i+1 < len(props); i += 2 {
		m.Set(props[i], props[i+1])
	}
	return menuconf.MenuItem{Name: name, Label: name, Icon: "icon-" + name, Properties: m}
}

func findChild(n *xmltree.Node, tag string) *xmltree.Node {
	return n.FindChild(tag)
}

func findAllChildren(n *xmltree.Node, tag string) []*xmltree.Node {
	var out []*xmltree.Node
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

func findIncludeByName(root *xmltree.Node, name string) *xmltree.Node {
	for _, c := range root.Children {
		if c.Tag == "include" {
			if v, ok := c.Attribute("name"); ok && v == name {
				return c
			}
		}
	}
	return nil
}

func TestBuildMenuIncludeEmitsOneItemPerEnabledEntry(t *testing.T) {
	movies := itemNamed("movies")
	tvshows := itemNamed("tvshows")
	tvshows.Disabled = true
	menu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{movies, tvshows},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{menu}, nil, nil, nil, nil)

	include := findIncludeByName(root, "skinshortcuts-mainmenu")
	require.NotNil(t, include)
	items := findAllChildren(include, "item")
	require.Len(t, items, 1)
	id, _ := items[0].Attribute("id")
	assert.Equal(t, "1", id)
}

func TestBuildItemControlTypeOmitsGenericProperties(t *testing.T) {
	item := itemNamed("movies", "extra", "value")
	menu := menuconf.Menu{
		Name:        "dashboard",
		ControlType: "group",
		StartID:     100,
		Items:       []menuconf.MenuItem{item},
		Defaults:    menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{menu}, nil, nil, nil, nil)
	include := findIncludeByName(root, "skinshortcuts-dashboard")
	require.NotNil(t, include)
	controls := findAllChildren(include, "control")
	require.Len(t, controls, 1)
	ctrl := controls[0]
	typ, _ := ctrl.Attribute("type")
	assert.Equal(t, "group", typ)
	id, _ := ctrl.Attribute("id")
	assert.Equal(t, "100", id)
	assert.Empty(t, findAllChildren(ctrl, "property"))
}

func TestBuildItemDefaultModeEmitsBuiltinProperties(t *testing.T) {
	item := itemNamed("movies", "widget", "recentmovies")
	item.Actions = []menuconf.Action{{Action: "ActivateWindow(Videos,path)"}}
	menu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{item},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{menu}, nil, nil, nil, nil)
	include := findIncludeByName(root, "skinshortcuts-mainmenu")
	itemElem := findChild(include, "item")
	require.NotNil(t, itemElem)

	props := map[string]string{}
	for _, p := range findAllChildren(itemElem, "property") {
		name, _ := p.Attribute("name")
		props[name] = p.Text
	}
	assert.Equal(t, "1", props["id"])
	assert.Equal(t, "movies", props["name"])
	assert.Equal(t, "mainmenu", props["menu"])
	assert.Equal(t, "ActivateWindow(Videos,path)", props["path"])
	assert.Equal(t, "recentmovies", props["widget"])
}

func TestBuildItemExcludesTemplateOnlyProperty(t *testing.T) {
	item := itemNamed("movies", "internalFlag", "yes")
	menu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{item},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}
	schema := &propertyschema.Schema{Properties: map[string]propertyschema.SchemaProperty{
		"internalFlag": {Name: "internalFlag", TemplateOnly: true},
	}}

	root := Build([]menuconf.Menu{menu}, schema, nil, nil, nil)
	include := findIncludeByName(root, "skinshortcuts-mainmenu")
	itemElem := findChild(include, "item")
	for _, p := range findAllChildren(itemElem, "property") {
		name, _ := p.Attribute("name")
		assert.NotEqual(t, "internalFlag", name)
	}
}

func TestBuildActionOrderIsBeforeConditionalUnconditionalAfter(t *testing.T) {
	item := itemNamed("movies")
	item.Actions = []menuconf.Action{
		{Action: "unconditional-action"},
		{Action: "conditional-action", Condition: "System.HasAddon(x)"},
	}
	menu := menuconf.Menu{
		Name: "mainmenu",
		Defaults: menuconf.MenuDefaults{
			Properties: ordmap.New(),
			Actions: []menuconf.DefaultAction{
				{Action: "before-action", When: "before"},
				{Action: "after-action", When: "after"},
			},
		},
		Items: []menuconf.MenuItem{item},
	}

	root := Build([]menuconf.Menu{menu}, nil, nil, nil, nil)
	itemElem := findChild(findIncludeByName(root, "skinshortcuts-mainmenu"), "item")
	onclicks := findAllChildren(itemElem, "onclick")
	require.Len(t, onclicks, 4)
	assert.Equal(t, "before-action", onclicks[0].Text)
	assert.Equal(t, "conditional-action", onclicks[1].Text)
	assert.Equal(t, "unconditional-action", onclicks[2].Text)
	assert.Equal(t, "after-action", onclicks[3].Text)
}

func TestBuildSubmenuIncludeLinksParentAndVisibility(t *testing.T) {
	subItem := itemNamed("action")
	submenu := menuconf.Menu{
		Name:      "movies.widgets",
		IsSubmenu: true,
		Items:     []menuconf.MenuItem{subItem},
		Defaults:  menuconf.MenuDefaults{Properties: ordmap.New()},
	}
	parentItem := itemNamed("movies")
	parentItem.Submenu = "movies.widgets"
	mainMenu := menuconf.Menu{
		Name:      "mainmenu",
		Container: "9000",
		Items:     []menuconf.MenuItem{parentItem},
		Defaults:  menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{mainMenu, submenu}, nil, nil, nil, nil)
	submenuInclude := findIncludeByName(root, "skinshortcuts-mainmenu-submenu")
	require.NotNil(t, submenuInclude)

	itemElem := findChild(submenuInclude, "item")
	require.NotNil(t, itemElem)
	visible := findChild(itemElem, "visible")
	require.NotNil(t, visible)
	assert.Equal(t, "String.IsEqual(Container(9000).ListItem.Property(name),movies)", visible.Text)

	var parentProp string
	for _, p := range findAllChildren(itemElem, "property") {
		if name, _ := p.Attribute("name"); name == "parent" {
			parentProp = p.Text
		}
	}
	assert.Equal(t, "movies", parentProp)
}

func TestBuildSkipsSubmenuWithNoItems(t *testing.T) {
	parentItem := itemNamed("movies")
	mainMenu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{parentItem},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{mainMenu}, nil, nil, nil, nil)
	assert.Nil(t, findIncludeByName(root, "skinshortcuts-mainmenu-submenu"))
}

func TestBuildCustomWidgetIncludesOnePerSlot(t *testing.T) {
	widgetItem := itemNamed("widgetitem")
	widgetMenu := menuconf.Menu{
		Name:     "homewidget",
		Items:    []menuconf.MenuItem{widgetItem},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}
	parentItem := itemNamed("home", "customWidget", "homewidget")
	mainMenu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{parentItem},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{mainMenu, widgetMenu}, nil, nil, nil, nil)
	cwInclude := findIncludeByName(root, "skinshortcuts-home-customwidget")
	require.NotNil(t, cwInclude)
	assert.Len(t, findAllChildren(cwInclude, "item"), 1)
}

func TestBuildCustomWidgetSecondSlotUsesNumberedName(t *testing.T) {
	widgetItem := itemNamed("widgetitem")
	widgetMenu := menuconf.Menu{
		Name:     "homewidget2",
		Items:    []menuconf.MenuItem{widgetItem},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}
	parentItem := itemNamed("home", "customWidget.2", "homewidget2")
	mainMenu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{parentItem},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{mainMenu, widgetMenu}, nil, nil, nil, nil)
	require.NotNil(t, findIncludeByName(root, "skinshortcuts-home-customwidget2"))
}

func TestBuildSkipsSubmenuMenusAsRootIncludes(t *testing.T) {
	submenu := menuconf.Menu{
		Name:      "movies.widgets",
		IsSubmenu: true,
		Items:     []menuconf.MenuItem{itemNamed("x")},
		Defaults:  menuconf.MenuDefaults{Properties: ordmap.New()},
	}

	root := Build([]menuconf.Menu{submenu}, nil, nil, nil, nil)
	assert.Nil(t, findIncludeByName(root, "skinshortcuts-movies.widgets"))
}

func TestBuildAppendsViewExpressionsWhenUserDataProvided(t *testing.T) {
	mainMenu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{itemNamed("movies")},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}
	views := &viewsconf.Config{
		Prefix: "ShortcutView_",
		Views:  []viewsconf.View{{ID: "List"}},
		ContentRules: []viewsconf.Content{
			{Name: "movies", Visible: "Container.Content(movies)", Views: []string{"List"}, LibraryDefault: "List"},
		},
	}

	root := Build([]menuconf.Menu{mainMenu}, nil, nil, views, userdata.Empty())

	var found *xmltree.Node
	for _, c := range root.Children {
		if c.Tag == "expression" {
			if v, ok := c.Attribute("name"); ok && v == "ShortcutView_List" {
				found = c
			}
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "[Container.Content(movies)]", found.Text)
}

func TestBuildOmitsViewExpressionsWhenUserDataNil(t *testing.T) {
	mainMenu := menuconf.Menu{
		Name:     "mainmenu",
		Items:    []menuconf.MenuItem{itemNamed("movies")},
		Defaults: menuconf.MenuDefaults{Properties: ordmap.New()},
	}
	views := &viewsconf.Config{
		Prefix: "ShortcutView_",
		Views:  []viewsconf.View{{ID: "List"}},
		ContentRules: []viewsconf.Content{
			{Name: "movies", Visible: "Container.Content(movies)", Views: []string{"List"}, LibraryDefault: "List"},
		},
	}

	root := Build([]menuconf.Menu{mainMenu}, nil, nil, views, nil)
	for _, c := range root.Children {
		assert.NotEqual(t, "expression", c.Tag)
	}
}
