// Package content defines the narrow collaborator interface the core calls
// out to when a widget or background grouping references dynamic host
// content, without importing any host/JSON-RPC client itself. Grounded on
// original_source/.../providers/content.py's descriptor shape
// (source/target/path/condition/visible/icon/label/folder), adapted to an
// injected-collaborator pattern since the host JSON-RPC client itself is
// out of scope for this core.
package content

import "errors"

// Descriptor mirrors a <content> element: an opaque reference the core
// forwards to a Provider without interpreting.
type Descriptor struct {
	Source    string
	Target    string
	Path      string
	Condition string
	Visible   string
	Icon      string
	Label     string
	Folder    string
}

// ParseDescriptor builds a Descriptor from an attribute map. A missing
// "source" attribute means the element isn't a content reference at all.
func ParseDescriptor(attrs map[string]string) (Descriptor, bool) {
	source := attrs["source"]
	if source == "" {
		return Descriptor{}, false
	}
	return Descriptor{
		Source:    source,
		Target:    attrs["target"],
		Path:      attrs["path"],
		Condition: attrs["condition"],
		Visible:   attrs["visible"],
		Icon:      attrs["icon"],
		Label:     attrs["label"],
		Folder:    attrs["folder"],
	}, true
}

// ShortcutRecord is the shape a resolved content record is converted to
// before feeding it back through the menu/item pipeline.
type ShortcutRecord struct {
	Name       string
	Label      string
	Path       string
	Icon       string
	Properties map[string]string
}

// ErrContentUnavailable is returned by NopProvider, and by any Provider
// that cannot resolve a descriptor at build time.
var ErrContentUnavailable = errors.New("content: no provider configured to resolve descriptor")

// Provider resolves a content Descriptor into shortcut records. The core
// depends only on this interface; real host integration (JSON-RPC against
// a running media center) is out of scope and left to callers.
type Provider interface {
	Resolve(d Descriptor) ([]ShortcutRecord, error)
}

// NopProvider always fails resolution. It's the default wired in by the
// CLI when no real content provider is configured.
type NopProvider struct{}

func (NopProvider) Resolve(Descriptor) ([]ShortcutRecord, error) {
	return nil, ErrContentUnavailable
}
