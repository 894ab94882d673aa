package buildctx

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/ordmap"
	"github.com/skinshortcuts/build/internal/propertyschema"
	"github.com/skinshortcuts/build/internal/templateconf"
)

func plainMenu() menuconf.Menu {
	props := ordmap.New()
	props.Set("thumb", "DefaultShortcut.png")
	return menuconf.Menu{Name: "mainmenu", Defaults: menuconf.MenuDefaults{Properties: props}}
}

func plainItem(name string) menuconf.MenuItem {
	props := ordmap.New()
	return menuconf.MenuItem{Name: name, Properties: props}
}

func emptySchema() *propertyschema.Schema {
	return &propertyschema.Schema{Properties: map[string]propertyschema.SchemaProperty{}, Fallbacks: map[string]propertyschema.PropertyFallback{}, Buttons: map[int]propertyschema.ButtonMapping{}}
}

func emptyTemplates() *templateconf.Schema {
	return &templateconf.Schema{
		Expressions:          map[string]string{},
		PropertyGroupsByName: map[string]templateconf.PropertyGroup{},
		Includes:             map[string]templateconf.IncludeDefinition{},
		Presets:              map[string]templateconf.Preset{},
		VariableDefinitions:  map[string]templateconf.VariableDefinition{},
		VariableGroupsByName: map[string]templateconf.VariableGroup{},
	}
}

func TestBuildCopiesDefaultsThenItemOverrides(t *testing.T) {
	menu := plainMenu()
	item := plainItem("movies")
	item.Properties.Set("thumb", "movies.png")

	ctx := Build(menu, item, 1, templateconf.Template{}, templateconf.TemplateOutput{}, emptySchema(), emptyTemplates())

	v, _ := ctx.Get("thumb")
	assert.Equal(t, "movies.png", v)
}

func TestBuildSetsBuiltins(t *testing.T) {
	menu := plainMenu()
	item := plainItem("movies")
	output := templateconf.TemplateOutput{IDPrefix: "SS", Suffix: "1"}

	ctx := Build(menu, item, 3, templateconf.Template{}, output, emptySchema(), emptyTemplates())

	name, _ := ctx.Get("name")
	assert.Equal(t, "movies", name)
	id, _ := ctx.Get("id")
	assert.Equal(t, "SS3", id)
	idx, _ := ctx.Get("index")
	assert.Equal(t, "3", idx)
	sfx, _ := ctx.Get("suffix")
	assert.Equal(t, "1", sfx)
}

func TestBuildTemplatePropertyWriteIfAbsent(t *testing.T) {
	menu := plainMenu()
	item := plainItem("movies")

	tmpl := templateconf.Template{
		Properties: []templateconf.TemplateProperty{
			{Name: "widget", Value: "recentmovies"},
		},
	}
	ctx := Build(menu, item, 1, tmpl, templateconf.TemplateOutput{}, emptySchema(), emptyTemplates())
	v, _ := ctx.Get("widget")
	assert.Equal(t, "recentmovies", v)

	item.Properties.Set("widget", "already-set")
	ctx2 := Build(menu, item, 1, tmpl, templateconf.TemplateOutput{}, emptySchema(), emptyTemplates())
	v2, _ := ctx2.Get("widget")
	assert.Equal(t, "already-set", v2)
}

func TestBuildTemplateVarFirstMatchWins(t *testing.T) {
	menu := plainMenu()
	item := plainItem("movies")
	item.Properties.Set("count", "5")

	tmpl := templateconf.Template{
		Vars: []templateconf.TemplateVar{
			{
				Name: "label",
				Values: []templateconf.TemplateProperty{
					{Condition: "count=0", Value: "empty"},
					{Condition: "", Value: "has items"},
				},
			},
		},
	}
	ctx := Build(menu, item, 1, tmpl, templateconf.TemplateOutput{}, emptySchema(), emptyTemplates())
	v, _ := ctx.Get("label")
	assert.Equal(t, "has items", v)
}

func TestBuildPresetReferenceWritesRowAttributes(t *testing.T) {
	menu := plainMenu()
	item := plainItem("movies")

	templates := emptyTemplates()
	templates.Presets["colors"] = templateconf.Preset{
		Name: "colors",
		Rows: []templateconf.PresetValues{
			{Condition: "", Values: map[string]string{"color": "blue"}, Keys: []string{"color"}},
		},
	}
	tmpl := templateconf.Template{
		PresetRefs: []templateconf.PresetReference{{Name: "colors"}},
	}
	ctx := Build(menu, item, 1, tmpl, templateconf.TemplateOutput{}, emptySchema(), templates)
	v, _ := ctx.Get("color")
	assert.Equal(t, "blue", v)
}

func TestBuildPropertyGroupAppliesSuffixToCondition(t *testing.T) {
	menu := plainMenu()
	item := plainItem("movies")
	item.Properties.Set("flag1", "true")

	templates := emptyTemplates()
	templates.PropertyGroupsByName["extras"] = templateconf.PropertyGroup{
		Name: "extras",
		Properties: []templateconf.TemplateProperty{
			{Name: "extra", Value: "on", Condition: "flag=true"},
		},
	}
	tmpl := templateconf.Template{
		PropertyGroups: []templateconf.PropertyGroupReference{{Name: "extras", Suffix: "1"}},
	}
	ctx := Build(menu, item, 1, tmpl, templateconf.TemplateOutput{}, emptySchema(), templates)
	v, ok := ctx.Get("extra")
	assert.True(t, ok)
	assert.Equal(t, "on", v)
}

func TestBuildFallbackAppliesWhenContextMissing(t *testing.T) {
	menu := plainMenu()
	item := plainItem("movies")

	schema := emptySchema()
	schema.Fallbacks["icon"] = propertyschema.PropertyFallback{
		PropertyName: "icon",
		Rules: []propertyschema.FallbackRule{
			{Condition: "", Value: "DefaultIcon.png"},
		},
	}
	ctx := Build(menu, item, 1, templateconf.Template{}, templateconf.TemplateOutput{}, schema, emptyTemplates())
	v, _ := ctx.Get("icon")
	assert.Equal(t, "DefaultIcon.png", v)
}

func TestResolveFromSourceContextThenItemThenEmpty(t *testing.T) {
	ctx := ordmap.New()
	ctx.Set("fromctx", "ctxvalue")
	item := plainItem("movies")
	item.Properties.Set("fromitem", "itemvalue")

	assert.Equal(t, "ctxvalue", resolveFromSource("fromctx", ctx, item, emptyTemplates(), ""))
	assert.Equal(t, "itemvalue", resolveFromSource("fromitem", ctx, item, emptyTemplates(), ""))
	assert.Equal(t, "", resolveFromSource("missing", ctx, item, emptyTemplates(), ""))
}

func TestResolveFromSourceBracketPresetSyntax(t *testing.T) {
	ctx := ordmap.New()
	item := plainItem("movies")
	templates := emptyTemplates()
	templates.Presets["colors"] = templateconf.Preset{
		Rows: []templateconf.PresetValues{
			{Condition: "", Values: map[string]string{"primary": "red"}, Keys: []string{"primary"}},
		},
	}
	assert.Equal(t, "red", resolveFromSource("colors[primary]", ctx, item, templates, ""))
	assert.Equal(t, "red", resolveFromSource("colors.primary", ctx, item, templates, ""))
}

func TestResolveFromSourceBracketPresetSyntaxWithSuffix(t *testing.T) {
	ctx := ordmap.New()
	item := plainItem("movies")
	templates := emptyTemplates()
	templates.Presets["colors"] = templateconf.Preset{
		Rows: []templateconf.PresetValues{
			{Condition: "slot=on", Values: map[string]string{"primary": "red"}, Keys: []string{"primary"}},
		},
	}
	ctx.Set("slot.2", "on")
	assert.Equal(t, "red", resolveFromSource("colors[primary]", ctx, item, templates, ".2"))
}
