// Package viewexpr implements C10: the view-expression builder. It turns
// the view-locking rules in views.xml, combined with the user's recorded
// view selections and any plugin-specific overrides, into a flat list of
// Kodi boolean `<expression>` elements the skin can reference directly.
//
// Grounded on original_source/.../builders/views.py (ViewExpressionBuilder):
// the per-view condition accumulation, the plugin-override helper pair,
// and the two-pass emission order (view expressions, then _Include
// expressions) all mirror that file. Where the Python relies on dict
// insertion order for the plugin-override conditions (itself dependent on
// userdata.json key order), this package sorts add-on ids explicitly so
// output stays deterministic given identical inputs regardless of map
// iteration order.
package viewexpr

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/skinshortcuts/build/internal/userdata"
	"github.com/skinshortcuts/build/internal/viewsconf"
	"github.com/skinshortcuts/build/internal/xmltree"
)

var nonWordPattern = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeName(name string) string {
	if name == "" {
		return name
	}
	s := nonWordPattern.ReplaceAllString(name, "_")
	return strings.ToUpper(s[:1]) + s[1:]
}

// Build emits one {prefix}{view} and one {prefix}{view}_Include expression
// per declared view, plus a {prefix}{content}_HasPluginOverride/
// _IsGenericPlugin pair for every content rule that has at least one valid
// plugin-specific view override recorded in data. Returns nil if config has
// no content rules (nothing references a view, so nothing to lock).
func Build(config *viewsconf.Config, data *userdata.UserData) []*xmltree.Node {
	if config == nil || len(config.ContentRules) == 0 {
		return nil
	}

	prefix := config.Prefix
	viewConditions := make(map[string][]string, len(config.Views))
	for _, v := range config.Views {
		viewConditions[v.ID] = nil
	}

	var out []*xmltree.Node
	for _, content := range config.ContentRules {
		overrides := effectivePluginOverrides(content, data)
		contentName := sanitizeName(content.Name)
		if len(overrides) > 0 {
			out = append(out, buildPluginHelpers(prefix, contentName, overrides)...)
		}
		collectViewConditions(viewConditions, content, data, overrides, prefix, contentName)
	}

	for _, v := range config.Views {
		out = append(out, buildViewExpression(prefix, v.ID, viewConditions[v.ID]))
	}
	for _, v := range config.Views {
		out = append(out, buildIncludeExpression(prefix, v.ID, viewConditions[v.ID]))
	}
	return out
}

func buildPluginHelpers(prefix, contentName string, overrides map[string]string) []*xmltree.Node {
	ids := sortedKeys(overrides)
	conds := make([]string, len(ids))
	for i, id := range ids {
		conds[i] = fmt.Sprintf("String.IsEqual(Container.PluginName,%s)", id)
	}

	hasOverride := xmltree.NewNode("expression")
	hasOverride.SetAttribute("name", prefix+contentName+"_HasPluginOverride")
	hasOverride.Text = strings.Join(conds, " | ")

	isGeneric := xmltree.NewNode("expression")
	isGeneric.SetAttribute("name", prefix+contentName+"_IsGenericPlugin")
	isGeneric.Text = fmt.Sprintf("!String.IsEmpty(Container.PluginName) + !$EXP[%s%s_HasPluginOverride]", prefix, contentName)

	return []*xmltree.Node{hasOverride, isGeneric}
}

// collectViewConditions appends this content rule's visibility predicate,
// wrapped appropriately for its source, to every view it actually resolves
// to - library view, generic-plugin view, and each plugin-specific
// override - skipping any resolved id not present in viewConditions (an
// invalid or unconfigured view).
func collectViewConditions(viewConditions map[string][]string, content viewsconf.Content, data *userdata.UserData, overrides map[string]string, prefix, contentName string) {
	visible := content.Visible
	libraryView := effectiveLibraryView(content, data)
	genericPluginView := effectiveGenericPluginView(content, data)
	sameView := libraryView == genericPluginView
	noOverrides := len(overrides) == 0

	if _, ok := viewConditions[libraryView]; ok {
		if sameView && noOverrides {
			viewConditions[libraryView] = append(viewConditions[libraryView], "["+visible+"]")
		} else {
			viewConditions[libraryView] = append(viewConditions[libraryView], "["+visible+" + String.IsEmpty(Container.PluginName)]")
		}
	}

	if _, ok := viewConditions[genericPluginView]; ok {
		switch {
		case sameView && noOverrides:
			// already captured by the library-view branch above.
		case !noOverrides:
			cond := fmt.Sprintf("[%s + $EXP[%s%s_IsGenericPlugin]]", visible, prefix, contentName)
			viewConditions[genericPluginView] = append(viewConditions[genericPluginView], cond)
		default:
			viewConditions[genericPluginView] = append(viewConditions[genericPluginView], "["+visible+" + !String.IsEmpty(Container.PluginName)]")
		}
	}

	for _, pluginID := range sortedKeys(overrides) {
		viewID := overrides[pluginID]
		if _, ok := viewConditions[viewID]; !ok {
			continue
		}
		cond := fmt.Sprintf("[%s + String.IsEqual(Container.PluginName,%s)]", visible, pluginID)
		viewConditions[viewID] = append(viewConditions[viewID], cond)
	}
}

func buildViewExpression(prefix, viewID string, conditions []string) *xmltree.Node {
	n := xmltree.NewNode("expression")
	n.SetAttribute("name", prefix+viewID)
	if len(conditions) == 0 {
		n.Text = "False"
		return n
	}
	n.Text = strings.Join(conditions, " | ")
	return n
}

func buildIncludeExpression(prefix, viewID string, conditions []string) *xmltree.Node {
	n := xmltree.NewNode("expression")
	n.SetAttribute("name", prefix+viewID+"_Include")
	if len(conditions) > 0 {
		n.Text = "True"
	} else {
		n.Text = "False"
	}
	return n
}

func effectiveLibraryView(content viewsconf.Content, data *userdata.UserData) string {
	if v, ok := data.GetView("library", content.Name); ok && v != "" && containsString(content.Views, v) {
		return v
	}
	return content.LibraryDefault
}

func effectiveGenericPluginView(content viewsconf.Content, data *userdata.UserData) string {
	if v, ok := data.GetView("plugins", content.Name); ok && v != "" && containsString(content.Views, v) {
		return v
	}
	return content.GetDefault(true)
}

func effectivePluginOverrides(content viewsconf.Content, data *userdata.UserData) map[string]string {
	raw := data.GetPluginOverrides(content.Name)
	valid := make(map[string]bool, len(content.Views))
	for _, v := range content.Views {
		valid[v] = true
	}
	out := map[string]string{}
	for addonID, viewID := range raw {
		if valid[viewID] {
			out[addonID] = viewID
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
