// Package roles loads, merges, and deals the role catalogs used by a
// game. A base rule set ships with the binary; themes reflavor it by
// overriding base roles and adding new ones.
package roles

// Alignment is the team a role wins with.
type Alignment string

const (
	AlignmentGood    Alignment = "good"
	AlignmentEvil    Alignment = "evil"
	AlignmentNeutral Alignment = "neutral"
)

// Phase tags when an ability may be used.
type Phase string

const (
	PhaseNight   Phase = "night"
	PhaseDay     Phase = "day"
	PhasePassive Phase = "passive"
)

// Ability is a single action a role can perform.
type Ability struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Phase        Phase    `json:"phase"`
	Target       string   `json:"target,omitempty"`
	Collective   bool     `json:"collective,omitempty"`
	Uses         string   `json:"uses,omitempty"` // "unlimited" or "limited"
	MaxUses      int      `json:"max_uses,omitempty"`
	Restrictions []string `json:"restrictions,omitempty"`
}

// Knowledge is something a role learns at game start.
type Knowledge struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// WinCondition describes how a role wins.
type WinCondition struct {
	Type        string `json:"type"`
	Target      string `json:"target,omitempty"`
	Description string `json:"description"`
}

// Flavor is purely cosmetic and merged field by field across themes.
type Flavor struct {
	Icon       string `json:"icon,omitempty"`
	Color      string `json:"color,omitempty"`
	FlavorText string `json:"flavor_text,omitempty"`
}

// Role is one entry in a catalog. Immutable once loaded; every player
// assigned a role shares the same definition.
type Role struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Alignment        Alignment    `json:"alignment"`
	Description      string       `json:"description"`
	Abilities        []Ability    `json:"abilities"`
	Knowledge        []Knowledge  `json:"knowledge"`
	WinCondition     WinCondition `json:"win_condition"`
	CardInstructions []string     `json:"card_instructions"`
	Flavor           *Flavor      `json:"flavor,omitempty"`
}

// Metadata describes a rule set for lobby listings.
type Metadata struct {
	GameName           string `json:"game_name"`
	MinPlayers         int    `json:"min_players"`
	MaxPlayers         int    `json:"max_players"`
	RecommendedPlayers string `json:"recommended_players"`
	Complexity         string `json:"complexity"`
	Author             string `json:"author,omitempty"`
	Version            string `json:"version,omitempty"`
}

// Distribution maps role id to the number of players dealt that role.
type Distribution map[string]int

// Total is the number of seats the distribution fills.
func (d Distribution) Total() int {
	total := 0
	for _, count := range d {
		total += count
	}
	return total
}

// BaseSet is the full base rule set: roles plus per-player-count
// distribution presets, keyed "7_players", "9_players", and so on.
type BaseSet struct {
	SchemaVersion string                  `json:"schema_version"`
	Roles         []Role                  `json:"roles"`
	Presets       map[string]Distribution `json:"role_distribution_presets"`
	Metadata      Metadata                `json:"metadata"`
}

// RoleOverride is the subset of Role fields a theme mapping may
// replace. Pointer and nil-slice semantics distinguish "not supplied"
// from "supplied empty": a structured field is replaced wholesale only
// when the override carries it.
type RoleOverride struct {
	Name             string        `json:"name,omitempty"`
	Alignment        Alignment     `json:"alignment,omitempty"`
	Description      string        `json:"description,omitempty"`
	Abilities        []Ability     `json:"abilities,omitempty"`
	Knowledge        []Knowledge   `json:"knowledge,omitempty"`
	WinCondition     *WinCondition `json:"win_condition,omitempty"`
	CardInstructions []string      `json:"card_instructions,omitempty"`
	Flavor           *Flavor       `json:"flavor,omitempty"`
}

// RoleMapping reflavors one base role.
type RoleMapping struct {
	BaseRole  string       `json:"base_role"`
	Overrides RoleOverride `json:"overrides"`
}

// ThemeSet is a theme's additions and overrides on top of a BaseSet.
type ThemeSet struct {
	SchemaVersion string                  `json:"schema_version"`
	ThemeID       string                  `json:"theme_id"`
	ThemeName     string                  `json:"theme_name"`
	BaseTheme     string                  `json:"base_theme"`
	Description   string                  `json:"description"`
	RoleMappings  []RoleMapping           `json:"role_mappings"`
	NewRoles      []Role                  `json:"new_roles"`
	Presets       map[string]Distribution `json:"role_distribution_presets"`
	Metadata      Metadata                `json:"metadata"`
}
