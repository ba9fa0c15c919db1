package roles

import (
	"fmt"
	"io/fs"
	"sync"
)

// Catalog caches merged role catalogs per theme. The base set is
// parsed once, each theme's merge happens once, and the results are
// read-only afterwards, so they are safe to hand out without copying.
type Catalog struct {
	fsys fs.FS

	mu     sync.Mutex
	base   *BaseSet
	themes map[string]*ThemeSet
	merged map[string][]Role
}

// NewCatalog builds a catalog over the given rule data. Nothing is
// parsed until first use.
func NewCatalog(fsys fs.FS) *Catalog {
	return &Catalog{
		fsys:   fsys,
		themes: make(map[string]*ThemeSet),
		merged: make(map[string][]Role),
	}
}

func (c *Catalog) loadBaseLocked() (*BaseSet, error) {
	if c.base != nil {
		return c.base, nil
	}
	base, err := LoadBase(c.fsys)
	if err != nil {
		return nil, err
	}
	c.base = base
	return base, nil
}

func (c *Catalog) loadThemeLocked(theme string) (*ThemeSet, error) {
	if set, ok := c.themes[theme]; ok {
		return set, nil
	}
	set, err := LoadTheme(c.fsys, theme)
	if err != nil {
		return nil, err
	}
	c.themes[theme] = set
	return set, nil
}

// RolesFor returns the effective catalog for a theme, merging on first
// access. The returned slice must not be mutated.
func (c *Catalog) RolesFor(theme string) ([]Role, error) {
	if theme == "" {
		theme = ClassicTheme
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if merged, ok := c.merged[theme]; ok {
		return merged, nil
	}

	base, err := c.loadBaseLocked()
	if err != nil {
		return nil, err
	}

	if theme == ClassicTheme {
		c.merged[theme] = base.Roles
		return base.Roles, nil
	}

	set, err := c.loadThemeLocked(theme)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("theme %q not found", theme)
	}

	merged := Merge(base, set)
	c.merged[theme] = merged

	return merged, nil
}

// RoleByID looks up one role in a theme's effective catalog.
func (c *Catalog) RoleByID(theme, id string) (*Role, error) {
	catalog, err := c.RolesFor(theme)
	if err != nil {
		return nil, err
	}
	role := findRole(catalog, id)
	if role == nil {
		return nil, fmt.Errorf("role %q not found in theme %q", id, theme)
	}
	return role, nil
}

// DistributionFor resolves the preset for a theme and player count.
func (c *Catalog) DistributionFor(theme string, playerCount int) (Distribution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, err := c.loadBaseLocked()
	if err != nil {
		return nil, err
	}

	var set *ThemeSet
	if theme != "" && theme != ClassicTheme {
		set, err = c.loadThemeLocked(theme)
		if err != nil {
			return nil, err
		}
		if set == nil {
			return nil, fmt.Errorf("theme %q not found", theme)
		}
	}

	return DistributionFor(playerCount, base, set), nil
}

// MetadataFor returns a theme's metadata, falling back to the base
// set's when the theme supplies none.
func (c *Catalog) MetadataFor(theme string) (Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, err := c.loadBaseLocked()
	if err != nil {
		return Metadata{}, err
	}

	if theme == "" || theme == ClassicTheme {
		return base.Metadata, nil
	}

	set, err := c.loadThemeLocked(theme)
	if err != nil {
		return Metadata{}, err
	}
	if set == nil {
		return Metadata{}, fmt.Errorf("theme %q not found", theme)
	}
	if set.Metadata == (Metadata{}) {
		return base.Metadata, nil
	}

	return set.Metadata, nil
}

// Themes lists every theme in the catalog's rule data.
func (c *Catalog) Themes() ([]string, error) {
	return ListThemes(c.fsys)
}

// Reset drops all cached data. Test harnesses only.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.base = nil
	c.themes = make(map[string]*ThemeSet)
	c.merged = make(map[string][]Role)
}
