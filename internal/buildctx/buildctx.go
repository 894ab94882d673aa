// Package buildctx implements C7: assembling the ordered per-(template,
// item) property context that C8 substitutes against. The retrieved
// original_source tree only ever shows this logic inlined into the
// template builder, not as a separable step.
package buildctx

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/skinshortcuts/build/internal/cond"
	"github.com/skinshortcuts/build/internal/expr"
	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/ordmap"
	"github.com/skinshortcuts/build/internal/propertyschema"
	"github.com/skinshortcuts/build/internal/suffix"
	"github.com/skinshortcuts/build/internal/templateconf"
)

var (
	bracketFromSource = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\[([A-Za-z_][A-Za-z0-9_]*)\]$`)
	dotFromSource     = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)$`)
)

// Build assembles the property context for one (menu, item, index) pair
// against tmpl's output slot, following its eight ordered resolution
// steps.
func Build(menu menuconf.Menu, item menuconf.MenuItem, index int, tmpl templateconf.Template, output templateconf.TemplateOutput, schema *propertyschema.Schema, templates *templateconf.Schema) *ordmap.Map {
	ctx := ordmap.New()

	if menu.Defaults.Properties != nil {
		ctx.Merge(menu.Defaults.Properties)
	}
	if item.Properties != nil {
		ctx.Merge(item.Properties)
	}

	ctx.Set("index", strconv.Itoa(index))
	ctx.Set("name", item.Name)
	ctx.Set("menu", menu.Name)
	ctx.Set("idprefix", output.IDPrefix)
	ctx.Set("id", output.IDPrefix+strconv.Itoa(index))
	ctx.Set("suffix", output.Suffix)

	applyFallbacks(ctx, item, schema, templates, output.Suffix)
	applyTemplateProperties(ctx, item, tmpl.Properties, templates, output.Suffix)
	applyTemplateVars(ctx, item, tmpl.Vars, templates, output.Suffix)

	for _, ref := range tmpl.PresetRefs {
		applyPresetReference(ctx, ref, templates, suffix.Combine(ref.Suffix, output.Suffix))
	}
	for _, ref := range tmpl.PropertyGroups {
		applyPropertyGroupReference(ctx, item, ref, templates, suffix.Combine(ref.Suffix, output.Suffix))
	}

	return ctx
}

func applyFallbacks(ctx *ordmap.Map, item menuconf.MenuItem, schema *propertyschema.Schema, templates *templateconf.Schema, sfx string) {
	if schema == nil {
		return
	}
	names := make([]string, 0, len(schema.Fallbacks))
	for name := range schema.Fallbacks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Has(name) {
			continue
		}
		fb := schema.Fallbacks[name]
		for _, rule := range fb.Rules {
			condition := suffix.ApplyToCondition(expr.ExpandExpressions(rule.Condition, templates.Expressions), sfx)
			if cond.Evaluate(condition, ctxWithItem(ctx, item)) {
				ctx.Set(name, rule.Value)
				break
			}
		}
	}
}

func applyTemplateProperties(ctx *ordmap.Map, item menuconf.MenuItem, props []templateconf.TemplateProperty, templates *templateconf.Schema, sfx string) {
	for _, tp := range props {
		condition := expr.ExpandExpressions(tp.Condition, templates.Expressions)
		if sfx != "" {
			condition = suffix.ApplyToCondition(condition, sfx)
		}
		if !cond.Evaluate(condition, ctxWithItem(ctx, item)) {
			continue
		}
		ctx.SetIfAbsent(tp.Name, resolveValue(tp, ctx, item, templates, sfx))
	}
}

func applyTemplateVars(ctx *ordmap.Map, item menuconf.MenuItem, vars []templateconf.TemplateVar, templates *templateconf.Schema, sfx string) {
	for _, v := range vars {
		for _, pair := range v.Values {
			condition := expr.ExpandExpressions(pair.Condition, templates.Expressions)
			if sfx != "" {
				condition = suffix.ApplyToCondition(condition, sfx)
			}
			if cond.Evaluate(condition, ctxWithItem(ctx, item)) {
				ctx.SetIfAbsent(v.Name, expr.SubstituteProperty(pair.Value, ctx.ToMap(), item.Properties.ToMap()))
				break
			}
		}
	}
}

func applyPresetReference(ctx *ordmap.Map, ref templateconf.PresetReference, templates *templateconf.Schema, sfx string) {
	refCondition := suffix.ApplyToCondition(expr.ExpandExpressions(ref.Condition, templates.Expressions), sfx)
	if !cond.Evaluate(refCondition, ctx.ToMap()) {
		return
	}
	preset, ok := templates.GetPreset(ref.Name)
	if !ok {
		return
	}
	for _, row := range preset.Rows {
		condition := suffix.ApplyToCondition(expr.ExpandExpressions(row.Condition, templates.Expressions), sfx)
		if !cond.Evaluate(condition, ctx.ToMap()) {
			continue
		}
		for _, k := range row.Keys {
			ctx.SetIfAbsent(k, row.Values[k])
		}
		return
	}
}

func applyPropertyGroupReference(ctx *ordmap.Map, item menuconf.MenuItem, ref templateconf.PropertyGroupReference, templates *templateconf.Schema, sfx string) {
	refCondition := suffix.ApplyToCondition(expr.ExpandExpressions(ref.Condition, templates.Expressions), sfx)
	if !cond.Evaluate(refCondition, ctxWithItem(ctx, item)) {
		return
	}
	group, ok := templates.GetPropertyGroup(ref.Name)
	if !ok {
		return
	}
	applyTemplateProperties(ctx, item, group.Properties, templates, sfx)
	applyTemplateVars(ctx, item, group.Vars, templates, sfx)
}

// resolveValue matches from_source against the preset bracket/dot pattern
// on its original, unsuffixed form - suffixing is applied afterward, to
// the preset row's condition, not to the pattern itself. That keeps
// "dim[top]"+".2" and "dim.top"+".2" both parseable, where naively
// suffixing the string first (producing "dim.2[top]" or "dim.top.2")
// would not be.
func resolveValue(tp templateconf.TemplateProperty, ctx *ordmap.Map, item menuconf.MenuItem, templates *templateconf.Schema, sfx string) string {
	if tp.FromSource != "" {
		return resolveFromSource(tp.FromSource, ctx, item, templates, sfx)
	}
	return expr.SubstituteProperty(tp.Value, ctx.ToMap(), item.Properties.ToMap())
}

// resolveFromSource resolves a from_source reference in order: preset
// lookup, then built-in, then context, then item property, then empty
// string. sfx is applied to a resolved preset's row conditions, and to
// fromSource itself before the built-in/context/item-property lookups.
func resolveFromSource(fromSource string, ctx *ordmap.Map, item menuconf.MenuItem, templates *templateconf.Schema, sfx string) string {
	if m := bracketFromSource.FindStringSubmatch(fromSource); m != nil {
		return lookupPreset(templates, m[1], m[2], ctx, sfx)
	}
	if m := dotFromSource.FindStringSubmatch(fromSource); m != nil {
		return lookupPreset(templates, m[1], m[2], ctx, sfx)
	}

	from := fromSource
	if sfx != "" {
		from = suffix.ApplyToFrom(from, sfx)
	}
	// Built-ins (index/name/menu/id/idprefix) are already present in ctx by
	// the time this runs, so the context lookup below also satisfies the
	// built-in resolution step without a separate branch.
	if v, ok := ctx.Get(from); ok {
		return v
	}
	if v, ok := item.Properties.Get(from); ok {
		return v
	}
	return ""
}

func lookupPreset(templates *templateconf.Schema, presetName, attr string, ctx *ordmap.Map, sfx string) string {
	preset, ok := templates.GetPreset(presetName)
	if !ok {
		return ""
	}
	for _, row := range preset.Rows {
		condition := expr.ExpandExpressions(row.Condition, templates.Expressions)
		if sfx != "" {
			condition = suffix.ApplyToCondition(condition, sfx)
		}
		if cond.Evaluate(condition, ctx.ToMap()) {
			return row.Values[attr]
		}
	}
	return ""
}

// ctxWithItem merges an item's own properties under the current context
// for condition evaluation, without letting item values shadow ones
// already written to ctx.
func ctxWithItem(ctx *ordmap.Map, item menuconf.MenuItem) map[string]string {
	merged := item.Properties.ToMap()
	for k, v := range ctx.ToMap() {
		merged[k] = v
	}
	return merged
}
