// Package userdata holds the user customization model and the merge
// algorithm (C5) that overlays it onto a menuconf.Menu. Grounded on
// original_source/.../userdata.py, with the dialog_visible filtering that
// file applies dropped: host-side dialog visibility is out of scope for
// this core (see DESIGN.md).
package userdata

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/ordmap"
)

// Action mirrors menuconf.Action for JSON round-tripping.
type Action struct {
	Action    string `json:"action"`
	Condition string `json:"condition,omitempty"`
}

// MenuItemOverride is one user customization of a menu item, or a
// user-added item when IsNew is true.
type MenuItemOverride struct {
	Name       string            `json:"name"`
	Label      *string           `json:"label,omitempty"`
	Actions    []Action          `json:"actions,omitempty"`
	Icon       *string           `json:"icon,omitempty"`
	Disabled   *bool             `json:"disabled,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Position   *int              `json:"position,omitempty"`
	IsNew      bool              `json:"is_new,omitempty"`
}

// MenuOverride is all user customizations for one menu.
type MenuOverride struct {
	Items   []MenuItemOverride `json:"items,omitempty"`
	Removed []string           `json:"removed,omitempty"`
}

// UserData is the full set of user customizations for a skin: per-menu
// item overrides and per-source/content view selections.
type UserData struct {
	Menus map[string]MenuOverride    `json:"menus,omitempty"`
	Views map[string]map[string]string `json:"views,omitempty"`
}

// Empty returns a zero-value UserData with initialized maps.
func Empty() *UserData {
	return &UserData{Menus: map[string]MenuOverride{}, Views: map[string]map[string]string{}}
}

// Load reads UserData from a JSON file at path. A missing file is not an
// error - it yields Empty().
func Load(path string) (*UserData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Empty(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading userdata")
	}

	var u UserData
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, errors.Wrap(err, "parsing userdata")
	}
	if u.Menus == nil {
		u.Menus = map[string]MenuOverride{}
	}
	if u.Views == nil {
		u.Views = map[string]map[string]string{}
	}
	return &u, nil
}

// GetView returns the user's selected view id for source/content, if any.
func (u *UserData) GetView(source, content string) (string, bool) {
	if u == nil {
		return "", false
	}
	sourceViews, ok := u.Views[source]
	if !ok {
		return "", false
	}
	v, ok := sourceViews[content]
	return v, ok
}

// SetView records the user's view selection for source/content.
func (u *UserData) SetView(source, content, viewID string) {
	if u.Views == nil {
		u.Views = map[string]map[string]string{}
	}
	if u.Views[source] == nil {
		u.Views[source] = map[string]string{}
	}
	u.Views[source][content] = viewID
}

// ClearView removes the user's view selection for source/content.
func (u *UserData) ClearView(source, content string) {
	sourceViews, ok := u.Views[source]
	if !ok {
		return
	}
	delete(sourceViews, content)
	if len(sourceViews) == 0 {
		delete(u.Views, source)
	}
}

// ClearAllViews removes every recorded view selection.
func (u *UserData) ClearAllViews() {
	u.Views = map[string]map[string]string{}
}

// GetPluginOverrides returns every recorded view override for content keyed
// by add-on id - every Views source other than the "library" and "plugins"
// generic buckets, a view-selection source being either "library",
// "plugins", or a concrete add-on identifier.
func (u *UserData) GetPluginOverrides(content string) map[string]string {
	overrides := map[string]string{}
	if u == nil {
		return overrides
	}
	for source, byContent := range u.Views {
		if source == "library" || source == "plugins" {
			continue
		}
		if v, ok := byContent[content]; ok && v != "" {
			overrides[source] = v
		}
	}
	return overrides
}

// Save writes u to path as indented JSON.
func Save(u *UserData, path string) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding userdata")
	}
	return os.WriteFile(path, data, 0o644)
}

// ActionOverrideRule matches menuconf.ActionOverrideRule; kept distinct so
// this package does not need to know about menuconf's XML parsing types.
type ActionOverrideRule = menuconf.ActionOverrideRule

// MergeMenu overlays override onto base, producing the effective Menu
// consumed by the rest of the build. A nil override keeps every item of
// base as it is, apart from the action rewrites of rules; dialog-time
// visibility filtering is left to the host, not this core.
//
// Steps, in order: drop removed items (unless required), apply per-item
// overrides, append is_new items, reorder by the position values recorded
// on overrides, then apply rewrites for every item's actions.
func MergeMenu(base menuconf.Menu, override *MenuOverride, rules []ActionOverrideRule) (menuconf.Menu, error) {
	result := base
	result.Items = nil

	if override == nil {
		result.Items = append([]menuconf.MenuItem(nil), base.Items...)
		applyActionOverrides(result.Items, rules)
		return result, nil
	}

	var errs *multierror.Error

	removed := make(map[string]bool, len(override.Removed))
	for _, name := range override.Removed {
		removed[name] = true
	}

	overrideByName := make(map[string]MenuItemOverride, len(override.Items))
	for _, o := range override.Items {
		if o.Name == "" {
			errs = multierror.Append(errs, fmt.Errorf("menu %q: override item with empty name", base.Name))
			continue
		}
		overrideByName[o.Name] = o
	}

	var items []menuconf.MenuItem
	for _, item := range base.Items {
		if removed[item.Name] && !item.Required {
			continue
		}
		if ovr, ok := overrideByName[item.Name]; ok {
			items = append(items, applyItemOverride(item, ovr))
			continue
		}
		items = append(items, item)
	}

	for _, o := range override.Items {
		if o.IsNew {
			items = append(items, newItemFromOverride(o))
		}
	}

	positioned := map[int]menuconf.MenuItem{}
	var unpositioned []menuconf.MenuItem
	for _, item := range items {
		if ovr, ok := overrideByName[item.Name]; ok && ovr.Position != nil {
			pos := *ovr.Position
			if pos < 0 {
				pos = 0
			}
			positioned[pos] = item
		} else {
			unpositioned = append(unpositioned, item)
		}
	}

	// Walk positions in ascending order, dropping in a positioned item
	// wherever its slot falls and an unpositioned item everywhere else,
	// until every item (positioned or not) has been placed. A position
	// past the end of items still gets its slot this way, rather than
	// being silently dropped once i reaches len(items).
	final := make([]menuconf.MenuItem, 0, len(items))
	next := 0
	for i := 0; len(final) < len(items); i++ {
		if item, ok := positioned[i]; ok {
			final = append(final, item)
			continue
		}
		if next < len(unpositioned) {
			final = append(final, unpositioned[next])
			next++
		}
	}

	applyActionOverrides(final, rules)

	result.Items = final
	return result, errs.ErrorOrNil()
}

func applyItemOverride(item menuconf.MenuItem, ovr MenuItemOverride) menuconf.MenuItem {
	merged := item
	if ovr.Label != nil {
		merged.Label = *ovr.Label
	}
	if ovr.Actions != nil {
		merged.Actions = toMenuconfActions(ovr.Actions)
	}
	if ovr.Icon != nil {
		merged.Icon = *ovr.Icon
	}
	if ovr.Disabled != nil {
		merged.Disabled = *ovr.Disabled
	}
	merged.OriginalAction = item.OriginalAction
	if merged.OriginalAction == "" && len(item.Actions) > 0 {
		merged.OriginalAction = item.Actions[0].Action
	}

	props := item.Properties.Clone()
	for _, k := range sortedKeys(ovr.Properties) {
		props.Set(k, ovr.Properties[k])
	}
	merged.Properties = props

	return merged
}

func newItemFromOverride(o MenuItemOverride) menuconf.MenuItem {
	label := ""
	if o.Label != nil {
		label = *o.Label
	}
	actions := toMenuconfActions(o.Actions)
	if len(actions) == 0 {
		actions = []menuconf.Action{{Action: "noop"}}
	}
	icon := "DefaultShortcut.png"
	if o.Icon != nil && *o.Icon != "" {
		icon = *o.Icon
	}

	props := ordmap.New()
	for _, k := range sortedKeys(o.Properties) {
		props.Set(k, o.Properties[k])
	}

	return menuconf.MenuItem{
		Name:       o.Name,
		Label:      label,
		Actions:    actions,
		Icon:       icon,
		Properties: props,
	}
}

func toMenuconfActions(actions []Action) []menuconf.Action {
	if actions == nil {
		return nil
	}
	result := make([]menuconf.Action, len(actions))
	for i, a := range actions {
		result[i] = menuconf.Action{Action: a.Action, Condition: a.Condition}
	}
	return result
}

// applyActionOverrides rewrites every action string of every item in place
// via a case-insensitive match against rules.
func applyActionOverrides(items []menuconf.MenuItem, rules []ActionOverrideRule) {
	if len(rules) == 0 {
		return
	}
	for i := range items {
		for j, a := range items[i].Actions {
			items[i].Actions[j].Action = rewriteAction(a.Action, rules)
		}
	}
}

func rewriteAction(action string, rules []ActionOverrideRule) string {
	for _, r := range rules {
		if strings.EqualFold(action, r.Match) {
			return r.Replacement
		}
	}
	return action
}

// sortedKeys returns m's keys sorted, giving deterministic write order for
// map[string]string property overrides decoded from JSON.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
