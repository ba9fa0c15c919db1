package game

import "math/rand"

// Theme-specific announcements for eliminated players. Cosmetic only;
// themes without their own list fall back to the classic one.
var deathMessages = map[string][]string{
	"classic": {
		"was found sleeping with the fishes",
		"took an unexpected swim in cement shoes",
		"was last seen entering a very suspicious warehouse",
		"went for a one-way ride in a black sedan",
		"fell victim to a poisoned cannoli",
		"was 'convinced' to retire permanently",
		"received an offer they couldn't refuse... or survive",
		"discovered the hard way that snitches get stitches",
		"went to make a phone call and never came back",
		"had an allergic reaction to lead",
	},
	"deep-space": {
		"was spaced through the forward airlock",
		"never came back from a routine hull inspection",
		"trusted the wrong crewmate in the reactor room",
		"was found floating near the cargo bay, helmet missing",
		"took a shortcut through an unpressurized corridor",
		"answered a distress call that wasn't",
		"was recycled by the life support system",
		"lost an argument with the ship's androids",
	},
}

func deathMessage(theme string) string {
	messages, ok := deathMessages[theme]
	if !ok || len(messages) == 0 {
		messages = deathMessages["classic"]
	}
	return messages[rand.Intn(len(messages))]
}
