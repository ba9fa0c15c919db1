package roles

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed data
var defaultData embed.FS

// ClassicTheme is the base rule set with no overrides applied.
const ClassicTheme = "classic"

// DefaultFS returns the rule data shipped with the binary.
func DefaultFS() fs.FS {
	sub, err := fs.Sub(defaultData, "data")
	if err != nil {
		panic("embedded rule data missing: " + err.Error())
	}
	return sub
}

// LoadBase reads base-roles.json from the root of fsys.
func LoadBase(fsys fs.FS) (*BaseSet, error) {
	content, err := fs.ReadFile(fsys, "base-roles.json")
	if err != nil {
		return nil, fmt.Errorf("read base roles: %w", err)
	}

	var base BaseSet
	if err := json.Unmarshal(content, &base); err != nil {
		return nil, fmt.Errorf("parse base roles: %w", err)
	}
	if len(base.Roles) == 0 {
		return nil, errors.New("base roles: empty role list")
	}

	return &base, nil
}

// LoadTheme reads <theme>/<theme>-roles.json. A missing theme file is
// not an error; it returns (nil, nil) so callers fall back to the base
// set.
func LoadTheme(fsys fs.FS, theme string) (*ThemeSet, error) {
	content, err := fs.ReadFile(fsys, theme+"/"+theme+"-roles.json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read theme %q: %w", theme, err)
	}

	var set ThemeSet
	if err := json.Unmarshal(content, &set); err != nil {
		return nil, fmt.Errorf("parse theme %q: %w", theme, err)
	}

	return &set, nil
}

// ListThemes names every theme available in fsys. The classic base set
// is always first; the rest are sorted.
func ListThemes(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	themes := []string{ClassicTheme}
	found := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		rolesFile := name + "/" + name + "-roles.json"
		if _, err := fs.Stat(fsys, rolesFile); err == nil {
			found = append(found, name)
		}
	}
	sort.Strings(found)

	return append(themes, found...), nil
}
