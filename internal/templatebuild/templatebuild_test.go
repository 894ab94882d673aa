package templatebuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/ordmap"
	"github.com/skinshortcuts/build/internal/propertyschema"
	"github.com/skinshortcuts/build/internal/templateconf"
	"github.com/skinshortcuts/build/internal/xmltree"
)

func emptySchema() *propertyschema.Schema {
	return &propertyschema.Schema{Properties: map[string]propertyschema.SchemaProperty{}, Fallbacks: map[string]propertyschema.PropertyFallback{}, Buttons: map[int]propertyschema.ButtonMapping{}}
}

func baseSchema() *templateconf.Schema {
	return &templateconf.Schema{
		Expressions:          map[string]string{},
		PropertyGroupsByName: map[string]templateconf.PropertyGroup{},
		Includes:             map[string]templateconf.IncludeDefinition{},
		Presets:              map[string]templateconf.Preset{},
		VariableDefinitions:  map[string]templateconf.VariableDefinition{},
		VariableGroupsByName: map[string]templateconf.VariableGroup{},
	}
}

func itemNamed(name string) menuconf.MenuItem {
	return menuconf.MenuItem{Name: name, Properties: ordmap.New()}
}

func menuWith(name, container string, items ...menuconf.MenuItem) menuconf.Menu {
	return menuconf.Menu{Name: name, Container: container, Items: items, Defaults: menuconf.MenuDefaults{Properties: ordmap.New()}}
}

func parseControls(t *testing.T, body string) *xmltree.Node {
	t.Helper()
	frag, err := xmltree.ParseFragment(body)
	require.NoError(t, err)
	controls := xmltree.NewNode("controls")
	controls.Children = frag.Children
	return controls
}

func TestProcessEmitsOneButtonPerItem(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"), itemNamed("tvshows"))
	tmpl := templateconf.Template{
		Include:  "widget",
		Build:    templateconf.BuildModeMenu,
		Controls: parseControls(t, `<button><label>$PROPERTY[name]</label></button>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)

	inc := result.Includes["skinshortcuts-template-widget"]
	require.NotNil(t, inc)
	require.Len(t, inc.Children, 2)
	assert.Equal(t, "movies", inc.Children[0].Children[0].Text)
	assert.Equal(t, "tvshows", inc.Children[1].Children[0].Text)
}

func TestProcessSkipsDisabledItems(t *testing.T) {
	disabled := itemNamed("hidden")
	disabled.Disabled = true
	menu := menuWith("mainmenu", "9000", itemNamed("movies"), disabled)
	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<button/>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)

	assert.Len(t, result.Includes["skinshortcuts-template-widget"].Children, 1)
}

func TestProcessVisibilityDirective(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<button><skinshortcuts>visibility</skinshortcuts></button>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)

	visible := result.Includes["skinshortcuts-template-widget"].Children[0].Children[0]
	assert.Equal(t, "visible", visible.Tag)
	assert.Equal(t, "String.IsEqual(Container(9000).ListItem.Property(name),movies)", visible.Text)
}

func TestProcessIncludeUnwrapSplicesChildren(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	schema := baseSchema()
	sub := xmltree.NewNode("controls")
	frag, err := xmltree.ParseFragment(`<label>a</label><label>b</label>`)
	require.NoError(t, err)
	sub.Children = frag.Children
	schema.Includes["shared"] = templateconf.IncludeDefinition{Name: "shared", Controls: sub}

	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<skinshortcuts include="shared"/>`),
	}
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	children := result.Includes["skinshortcuts-template-widget"].Children
	require.Len(t, children, 2)
	assert.Equal(t, "a", children[0].Text)
	assert.Equal(t, "b", children[1].Text)
}

func TestProcessIncludeWrapProducesIncludeElement(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	schema := baseSchema()
	sub := xmltree.NewNode("controls")
	sub.AddChild(xmltree.NewNode("label"))
	schema.Includes["shared"] = templateconf.IncludeDefinition{Name: "shared", Controls: sub}

	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<skinshortcuts include="shared" wrap="true"/>`),
	}
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	children := result.Includes["skinshortcuts-template-widget"].Children
	require.Len(t, children, 1)
	assert.Equal(t, "include", children[0].Tag)
	name, _ := children[0].Attribute("name")
	assert.Equal(t, "shared", name)
}

func TestProcessIncludeConditionFalseDropsElement(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	schema := baseSchema()
	sub := xmltree.NewNode("controls")
	sub.AddChild(xmltree.NewNode("label"))
	schema.Includes["shared"] = templateconf.IncludeDefinition{Name: "shared", Controls: sub}

	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<skinshortcuts include="shared" condition="name=tvshows"/>`),
	}
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	children := result.Includes["skinshortcuts-template-widget"].Children
	require.Len(t, children, 1)
	assert.Equal(t, "description", children[0].Tag)
}

func TestProcessInlineIncludeTextBecomesChildElement(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<button>before $INCLUDE[skinshortcuts-template-other] after</button>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	btn := result.Includes["skinshortcuts-template-widget"].Children[0]
	assert.Equal(t, "before ", btn.Text)
	require.Len(t, btn.Children, 1)
	assert.Equal(t, "include", btn.Children[0].Tag)
	assert.Equal(t, "skinshortcuts-template-other", btn.Children[0].Text)
	assert.Equal(t, " after", btn.Children[0].Tail)
}

func TestProcessTemplateOnlyTrueNeverEmits(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	tmpl := templateconf.Template{
		Include:      "widget",
		TemplateOnly: "true",
		Controls:     parseControls(t, `<button/>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	assert.Empty(t, result.IncludeNames)
}

func TestProcessTemplateOnlyAutoRequiresAssignment(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	tmpl := templateconf.Template{
		Include:      "widget",
		TemplateOnly: "auto",
		Controls:     parseControls(t, `<button/>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	notAssigned := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	assert.Empty(t, notAssigned.IncludeNames)

	assigned := Process(schema, []menuconf.Menu{menu}, emptySchema(), map[string]bool{"widget": true})
	assert.Equal(t, []string{"skinshortcuts-template-widget"}, assigned.IncludeNames)
}

func TestProcessEmptyIncludeGetsDescription(t *testing.T) {
	menu := menuWith("mainmenu", "9000")
	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<button/>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	inc := result.Includes["skinshortcuts-template-widget"]
	require.Len(t, inc.Children, 1)
	assert.Equal(t, "description", inc.Children[0].Tag)
	assert.Equal(t, emptyIncludeDescription, inc.Children[0].Text)
}

func TestProcessMultiOutputEmitsOneIncludePerOutput(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<button><label>$PROPERTY[id]</label></button>`),
		Outputs: []templateconf.TemplateOutput{
			{Include: "widget", IDPrefix: "SS", Suffix: ""},
			{Include: "widget2", IDPrefix: "SS", Suffix: "2"},
		},
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	assert.ElementsMatch(t, []string{"skinshortcuts-template-widget", "skinshortcuts-template-widget2"}, result.IncludeNames)

	first := result.Includes["skinshortcuts-template-widget"].Children[0].Children[0]
	second := result.Includes["skinshortcuts-template-widget2"].Children[0].Children[0]
	assert.Equal(t, "SS1", first.Text)
	assert.Equal(t, "SS1", second.Text)
}

func TestProcessRawBuildRunsOnceWithEmptyBuiltins(t *testing.T) {
	tmpl := templateconf.Template{
		Include:  "settings",
		Build:    templateconf.BuildModeRaw,
		Params:   []templateconf.TemplateParam{{Name: "count", Default: "5"}},
		Controls: parseControls(t, `<setting>$PARAM[count] items, name=[$PROPERTY[name]]</setting>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, nil, emptySchema(), nil)
	node := result.Includes["skinshortcuts-template-settings"].Children[0]
	assert.Equal(t, "5 items, name=[]", node.Text)
}

func TestProcessListBuildIteratesLiteralRows(t *testing.T) {
	tmpl := templateconf.Template{
		Include: "list",
		Build:   templateconf.BuildModeList,
		ListItems: []templateconf.ListItem{
			{Attributes: map[string]string{"name": "one"}, Keys: []string{"name"}},
			{Attributes: map[string]string{"name": "two"}, Keys: []string{"name"}},
		},
		Controls: parseControls(t, `<item><label>$PROPERTY[name]</label></item>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, nil, emptySchema(), nil)
	children := result.Includes["skinshortcuts-template-list"].Children
	require.Len(t, children, 2)
	assert.Equal(t, "one", children[0].Children[0].Text)
	assert.Equal(t, "two", children[1].Children[0].Text)
}

func TestProcessVariableEmission(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	content := xmltree.NewNode("variable")
	content.Text = "$PROPERTY[name]"
	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<button/>`),
		Variables: []templateconf.VariableDefinition{
			{Name: "label_movies", Content: content},
		},
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	require.Len(t, result.Variables, 1)
	assert.Equal(t, "label_movies", result.Variables[0].AttributeOr("name", ""))
	assert.Equal(t, "movies", result.Variables[0].Text)
}

func TestProcessVariableGroupWalkDepthFirst(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	content := xmltree.NewNode("variable")
	content.Text = "x"

	schema := baseSchema()
	schema.VariableDefinitions["leaf"] = templateconf.VariableDefinition{Name: "leaf", Content: content}
	schema.VariableGroupsByName["inner"] = templateconf.VariableGroup{
		Name:       "inner",
		References: []templateconf.VariableReference{{Name: "leaf"}},
	}
	schema.VariableGroupsByName["outer"] = templateconf.VariableGroup{
		Name:      "outer",
		GroupRefs: []templateconf.VariableGroupRef{{Name: "inner"}},
	}

	tmpl := templateconf.Template{
		Include:        "widget",
		Controls:       parseControls(t, `<button/>`),
		VariableGroups: []templateconf.VariableGroupReference{{Name: "outer"}},
	}
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	require.Len(t, result.Variables, 1)
	assert.Equal(t, "leaf", result.Variables[0].AttributeOr("name", ""))
}

func TestProcessItemsDirectiveIteratesSubmenu(t *testing.T) {
	parent := itemNamed("movies")
	submenu := menuWith("movies.widgets", "9000", itemNamed("recent"), itemNamed("popular"))
	submenu.IsSubmenu = true
	mainMenu := menuWith("mainmenu", "9000", parent)

	tmpl := templateconf.Template{
		Include:  "widget",
		Controls: parseControls(t, `<skinshortcuts items="widgets"><widget>$PROPERTY[name] of $PARENT[name]</widget></skinshortcuts>`),
	}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{tmpl}

	result := Process(schema, []menuconf.Menu{mainMenu, submenu}, emptySchema(), nil)
	children := result.Includes["skinshortcuts-template-widget"].Children
	require.Len(t, children, 2)
	assert.Equal(t, "recent of movies", children[0].Text)
	assert.Equal(t, "popular of movies", children[1].Text)
}

func TestProcessSameIncludeNameMergesAcrossTemplates(t *testing.T) {
	menu := menuWith("mainmenu", "9000", itemNamed("movies"))
	first := templateconf.Template{Include: "shared", Controls: parseControls(t, `<a/>`)}
	second := templateconf.Template{Include: "shared", Controls: parseControls(t, `<b/>`)}
	schema := baseSchema()
	schema.Templates = []templateconf.Template{first, second}

	result := Process(schema, []menuconf.Menu{menu}, emptySchema(), nil)
	children := result.Includes["skinshortcuts-template-shared"].Children
	require.Len(t, children, 2)
	assert.Equal(t, "a", children[0].Tag)
	assert.Equal(t, "b", children[1].Tag)
}
