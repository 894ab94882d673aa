// Package pipeline wires C1-C10 together into the single build entry
// point, plus the peripheral reset-all/reset-menus/reset-views/
// clear-custom-widget entry points that mutate user data and re-invoke
// build. Grounded on original_source/.../entry.py and
// original_source/.../builders/includes.py's top-level orchestration,
// in a load-merge-write shape.
package pipeline

import (
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/skinshortcuts/build/internal/backgrounds"
	"github.com/skinshortcuts/build/internal/builderr"
	"github.com/skinshortcuts/build/internal/buildlog"
	"github.com/skinshortcuts/build/internal/config"
	"github.com/skinshortcuts/build/internal/content"
	"github.com/skinshortcuts/build/internal/hashgate"
	"github.com/skinshortcuts/build/internal/includes"
	"github.com/skinshortcuts/build/internal/menuconf"
	"github.com/skinshortcuts/build/internal/ordmap"
	"github.com/skinshortcuts/build/internal/propertyschema"
	"github.com/skinshortcuts/build/internal/templateconf"
	"github.com/skinshortcuts/build/internal/userdata"
	"github.com/skinshortcuts/build/internal/viewsconf"
	"github.com/skinshortcuts/build/internal/widgets"
)

// configFileNames are the six declarative files C3 loads from SkinDir, in
// the fixed order C6 hashes them under.
var configFileNames = []string{
	"menus.xml",
	"widgets.xml",
	"backgrounds.xml",
	"properties.xml",
	"templates.xml",
	"views.xml",
}

var widgetSlots = []string{"", ".2", ".3", ".4", ".5", ".6", ".7", ".8", ".9", ".10"}

// loaded holds every C3 config file plus the merged user overlay, threaded
// through the rest of a build.
type loaded struct {
	menus       *menuconf.Config
	widgets     *widgets.Config
	backgrounds *backgrounds.Config
	properties  *propertyschema.Schema
	templates   *templateconf.Schema
	views       *viewsconf.Config
	data        *userdata.UserData
}

// Build runs the full build pipeline: the C6 short-circuit, then loading,
// merging, compiling and writing, then recording a fresh fingerprint.
// Returns true if a build ran (or was skipped because nothing changed),
// and a non-nil error on any fatal failure.
func Build(cfg *config.Config, logger *buildlog.Logger, provider content.Provider) (bool, error) {
	stored := hashgate.ReadStored(cfg.HashFilePath)
	current := hashgate.GenerateConfigHashes(cfg.SkinDir, configFileNames, cfg.UserDataPath, map[string]string{
		"script_version": cfg.ScriptVersion,
		"host_version":   cfg.HostVersion,
		"skin_dir":       cfg.SkinDir,
	})

	if !cfg.Force && !hashgate.NeedsRebuild(stored, current, cfg.OutputPaths) {
		logger.Info("skipping build, nothing changed")
		return true, nil
	}

	l, err := load(cfg)
	if err != nil {
		return false, err
	}

	mergedMenus, err := mergeUserData(l)
	if err != nil {
		logger.Error(err, "merging user data, continuing with partial results")
	}

	expandWidgetsAndBackgrounds(mergedMenus, l.widgets, l.backgrounds)
	warnOrphanSubmenus(mergedMenus, logger)

	doc := includes.Build(mergedMenus, l.properties, l.templates, l.views, l.data)

	if err := includes.WriteAll(doc, cfg.OutputPaths); err != nil {
		return false, builderr.New("write", err)
	}

	recorded := hashgate.RecordOutputs(current, cfg.OutputPaths)
	if err := hashgate.WriteStored(cfg.HashFilePath, recorded); err != nil {
		logger.Error(err, "recording build fingerprint, build output is still valid")
	}

	logger.Info("build complete", "menus", len(mergedMenus), "outputs", len(cfg.OutputPaths))
	return true, nil
}

// load reads every C3 config file. Any failure here is fatal: a
// syntactically broken skin cannot produce a reliable output.
func load(cfg *config.Config) (*loaded, error) {
	path := func(name string) string { return filepath.Join(cfg.SkinDir, name) }

	menus, err := menuconf.Load(path("menus.xml"))
	if err != nil {
		return nil, builderr.New("load menus", err)
	}
	widgetsCfg, err := widgets.Load(path("widgets.xml"))
	if err != nil {
		return nil, builderr.New("load widgets", err)
	}
	backgroundsCfg, err := backgrounds.Load(path("backgrounds.xml"))
	if err != nil {
		return nil, builderr.New("load backgrounds", err)
	}
	properties, err := propertyschema.Load(path("properties.xml"))
	if err != nil {
		return nil, builderr.New("load properties", err)
	}
	templates, err := templateconf.Load(path("templates.xml"))
	if err != nil {
		return nil, builderr.New("load templates", err)
	}
	views, err := viewsconf.Load(path("views.xml"))
	if err != nil {
		return nil, builderr.New("load views", err)
	}

	data := userdata.Empty()
	if cfg.UserDataPath != "" {
		data, err = userdata.Load(cfg.UserDataPath)
		if err != nil {
			return nil, builderr.New("load user data", err)
		}
	}

	return &loaded{
		menus:       menus,
		widgets:     widgetsCfg,
		backgrounds: backgroundsCfg,
		properties:  properties,
		templates:   templates,
		views:       views,
		data:        data,
	}, nil
}

// mergeUserData runs C5 over every declared menu. A malformed override
// entry on one menu (an override naming no item) is logged and skipped;
// it never aborts the rest of the merge.
func mergeUserData(l *loaded) ([]menuconf.Menu, error) {
	var errs *multierror.Error
	merged := make([]menuconf.Menu, 0, len(l.menus.Menus))
	for _, menu := range l.menus.Menus {
		var override *userdata.MenuOverride
		if ovr, ok := l.data.Menus[menu.Name]; ok {
			override = &ovr
		}
		m, err := userdata.MergeMenu(menu, override, l.menus.ActionOverrides)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		merged = append(merged, m)
	}
	return merged, errs.ErrorOrNil()
}

// expandWidgetsAndBackgrounds resolves the "widget"/"background" (and
// numbered-slot) item properties menus.xml's widget=/background=
// desugaring and widgets.xml/backgrounds.xml authoring both populate with
// a bare name, filling in every fixed property the referenced definition
// contributes. An item's own explicit properties always win; a reference
// to an undefined widget or background is left as the bare name, same as
// an item property with no matching definition anywhere else in the
// build.
func expandWidgetsAndBackgrounds(menus []menuconf.Menu, widgetsCfg *widgets.Config, backgroundsCfg *backgrounds.Config) {
	for mi := range menus {
		for ii := range menus[mi].Items {
			item := &menus[mi].Items[ii]
			for _, slot := range widgetSlots {
				key := "widget" + slot
				name, ok := item.Properties.Get(key)
				if !ok || name == "" {
					continue
				}
				if w, found := widgetsCfg.Find(name); found {
					fillAbsent(item.Properties, w.ToProperties(key))
				}
			}
			for _, slot := range widgetSlots {
				key := "background" + slot
				name, ok := item.Properties.Get(key)
				if !ok || name == "" {
					continue
				}
				if b, found := backgroundsCfg.Find(name); found {
					fillAbsent(item.Properties, b.ToProperties(key))
				}
			}
		}
	}
}

func fillAbsent(dst, src *ordmap.Map) {
	for _, k := range src.Keys() {
		dst.SetIfAbsent(k, src.GetOr(k, ""))
	}
}

// warnOrphanSubmenus logs (but never fails the build for) every item that
// explicitly names a submenu that doesn't resolve to a declared menu with
// at least one item.
// An item with no explicit submenu falls back to looking up a menu named
// after the item itself (the customwidget-style convention C9 also uses);
// that fallback silently missing is the ordinary case of an item with no
// submenu at all, not an authoring error, so it is not warned about.
func warnOrphanSubmenus(menus []menuconf.Menu, logger *buildlog.Logger) {
	byName := make(map[string]menuconf.Menu, len(menus))
	for _, m := range menus {
		byName[m.Name] = m
	}
	for _, menu := range menus {
		if menu.IsSubmenu {
			continue
		}
		for _, item := range menu.Items {
			if item.Disabled || item.Submenu == "" {
				continue
			}
			if submenu, ok := byName[item.Submenu]; !ok || len(submenu.Items) == 0 {
				logger.Warn("submenu reference does not resolve to a menu with items", "menu", menu.Name, "item", item.Name, "submenu", item.Submenu)
			}
		}
	}
}

// ResetAll discards the entire user overlay - every menu customization and
// every view selection - then forces a rebuild. Grounded on
// original_source/.../entry.py's reset_all_menus, minus the host
// confirmation dialog (out of scope here, see spec's interactive-dialog
// non-goal).
func ResetAll(cfg *config.Config, logger *buildlog.Logger, provider content.Provider) (bool, error) {
	if cfg.UserDataPath != "" {
		if err := userdata.Save(userdata.Empty(), cfg.UserDataPath); err != nil {
			return false, builderr.New("reset all", err)
		}
	}
	return rebuildForced(cfg, logger, provider)
}

// ResetMenus discards every menu customization but preserves view
// selections. Grounded on entry.py's reset_menus.
func ResetMenus(cfg *config.Config, logger *buildlog.Logger, provider content.Provider) (bool, error) {
	data, err := userdata.Load(cfg.UserDataPath)
	if err != nil {
		return false, builderr.New("reset menus", err)
	}
	data.Menus = map[string]userdata.MenuOverride{}
	if err := userdata.Save(data, cfg.UserDataPath); err != nil {
		return false, builderr.New("reset menus", err)
	}
	return rebuildForced(cfg, logger, provider)
}

// ResetViews discards every view selection but preserves menu
// customizations. Grounded on entry.py's reset_views.
func ResetViews(cfg *config.Config, logger *buildlog.Logger, provider content.Provider) (bool, error) {
	data, err := userdata.Load(cfg.UserDataPath)
	if err != nil {
		return false, builderr.New("reset views", err)
	}
	data.ClearAllViews()
	if err := userdata.Save(data, cfg.UserDataPath); err != nil {
		return false, builderr.New("reset views", err)
	}
	return rebuildForced(cfg, logger, provider)
}

// ClearCustomWidget removes the "customWidget{suffix}" override recorded
// for one item of one menu, reverting that slot to whatever menus.xml
// itself declares. Grounded on entry.py's clear_custom_widget, minus the
// optional extra property_name cleanup the Python version offers.
func ClearCustomWidget(cfg *config.Config, logger *buildlog.Logger, provider content.Provider, menuName, itemName, suffix string) (bool, error) {
	data, err := userdata.Load(cfg.UserDataPath)
	if err != nil {
		return false, builderr.New("clear custom widget", err)
	}
	if ovr, ok := data.Menus[menuName]; ok {
		for i := range ovr.Items {
			if ovr.Items[i].Name == itemName && ovr.Items[i].Properties != nil {
				delete(ovr.Items[i].Properties, "customWidget"+suffix)
			}
		}
		data.Menus[menuName] = ovr
	}
	if err := userdata.Save(data, cfg.UserDataPath); err != nil {
		return false, builderr.New("clear custom widget", err)
	}
	return rebuildForced(cfg, logger, provider)
}

func rebuildForced(cfg *config.Config, logger *buildlog.Logger, provider content.Provider) (bool, error) {
	forced := *cfg
	forced.Force = true
	return Build(&forced, logger, provider)
}
