package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/ducnote/ducnote/internal/core"
)

// catalogItem wraps one catalog locator for the bubbles list.
// Implements list.DefaultItem (Title + Description + FilterValue).
type catalogItem struct {
	category string
	locator  string
	kind     core.LinkKind
	builtIn  bool
	present  bool
	path     string // Destination on storage, empty when it cannot be resolved.
}

func (i catalogItem) Title() string {
	name := core.Basename(i.locator)
	if i.present {
		return name + " " + installedStyle.Render("(on storage)")
	}
	return name
}

func (i catalogItem) Description() string {
	var badges []string
	badges = append(badges, i.kind.String())
	if i.builtIn {
		badges = append(badges, "built-in")
	}
	return badgeStyle.Render("["+strings.Join(badges, ", ")+"]") + " " + i.locator
}

func (i catalogItem) FilterValue() string { return core.Basename(i.locator) + " " + i.locator }

// catalogToItems converts one category of the catalog to list items.
// resolver may be nil when the destination is not fixed; presence is then unknown.
func catalogToItems(c *core.Catalog, category string, resolver *core.Resolver) []list.Item {
	locators := c.List(category)
	items := make([]list.Item, 0, len(locators))
	for _, loc := range locators {
		it := catalogItem{
			category: category,
			locator:  loc,
			kind:     core.Classify(loc),
			builtIn:  c.IsDefault(category, loc),
		}
		if resolver != nil {
			if path, kind, err := resolver.Resolve(category, loc); err == nil {
				it.path = path
				it.kind = kind
			}
			if _, ok, err := resolver.Installed(category, loc); err == nil {
				it.present = ok
			}
		}
		items = append(items, it)
	}
	return items
}
