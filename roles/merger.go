package roles

import (
	"log"
	"sort"
	"strconv"
	"strings"
)

// Merge combines a base rule set with a theme's overrides and
// additions into one effective catalog. With no theme, the base roles
// are returned as-is.
//
// Ordering is deterministic: mapped-and-merged roles first (in mapping
// order), then unmapped base roles (in base order), then the theme's
// new roles (in their given order).
func Merge(base *BaseSet, theme *ThemeSet) []Role {
	if theme == nil {
		return base.Roles
	}

	merged := make([]Role, 0, len(base.Roles)+len(theme.NewRoles))
	mapped := make(map[string]bool, len(theme.RoleMappings))

	for _, mapping := range theme.RoleMappings {
		baseRole := findRole(base.Roles, mapping.BaseRole)
		if baseRole == nil {
			// Non-fatal: a theme referencing a base role that no
			// longer exists must not break the rest of the merge.
			log.Printf("WARN: base role %q not found for theme %q mapping", mapping.BaseRole, theme.ThemeID)
			continue
		}

		merged = append(merged, applyOverride(*baseRole, mapping.Overrides))
		mapped[mapping.BaseRole] = true
	}

	for _, baseRole := range base.Roles {
		if !mapped[baseRole.ID] {
			merged = append(merged, baseRole)
		}
	}

	merged = append(merged, theme.NewRoles...)

	return merged
}

// applyOverride produces the merged role: scalar fields win when set,
// structured fields (abilities, knowledge, win condition, card
// instructions) are replaced wholesale only when the override supplies
// them, and flavor is merged field by field.
func applyOverride(base Role, o RoleOverride) Role {
	merged := base

	if o.Name != "" {
		merged.Name = o.Name
	}
	if o.Alignment != "" {
		merged.Alignment = o.Alignment
	}
	if o.Description != "" {
		merged.Description = o.Description
	}
	if o.Abilities != nil {
		merged.Abilities = o.Abilities
	}
	if o.Knowledge != nil {
		merged.Knowledge = o.Knowledge
	}
	if o.WinCondition != nil {
		merged.WinCondition = *o.WinCondition
	}
	if o.CardInstructions != nil {
		merged.CardInstructions = o.CardInstructions
	}
	merged.Flavor = mergeFlavor(base.Flavor, o.Flavor)

	return merged
}

func mergeFlavor(base, override *Flavor) *Flavor {
	if override == nil {
		return base
	}
	if base == nil {
		merged := *override
		return &merged
	}

	merged := *base
	if override.Icon != "" {
		merged.Icon = override.Icon
	}
	if override.Color != "" {
		merged.Color = override.Color
	}
	if override.FlavorText != "" {
		merged.FlavorText = override.FlavorText
	}
	return &merged
}

func findRole(catalog []Role, id string) *Role {
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i]
		}
	}
	return nil
}

// DistributionFor picks the preset for a player count. Theme presets
// override the base presets wholesale. An exact "N_players" key wins;
// otherwise the largest preset not exceeding the player count is used.
// Returns nil when no preset fits.
func DistributionFor(playerCount int, base *BaseSet, theme *ThemeSet) Distribution {
	presets := base.Presets
	if theme != nil && len(theme.Presets) > 0 {
		presets = theme.Presets
	}
	if len(presets) == 0 {
		return nil
	}

	exact := strconv.Itoa(playerCount) + "_players"
	if dist, ok := presets[exact]; ok {
		return dist
	}

	counts := make([]int, 0, len(presets))
	for key := range presets {
		count, err := strconv.Atoi(strings.SplitN(key, "_", 2)[0])
		if err != nil {
			continue
		}
		counts = append(counts, count)
	}
	sort.Ints(counts)

	best := 0
	for _, count := range counts {
		if count <= playerCount {
			best = count
		}
	}
	if best == 0 {
		return nil
	}

	return presets[strconv.Itoa(best)+"_players"]
}
