package invariant

import (
	"sort"

	"github.com/samber/lo"
)

// villagers are the NPC internal names the game uses as dictionary keys and event actors.
var villagers = []string{
	"Abigail", "Alex", "Birdie", "Bouncer", "Caroline", "Clint", "Demetrius", "Dwarf",
	"Elliott", "Emily", "Evelyn", "George", "Gil", "Governor", "Grandpa", "Gunther",
	"Gus", "Haley", "Harvey", "Henchman", "Jas", "Jodi", "Kent", "Krobus", "Leah",
	"Leo", "Lewis", "Linus", "Marlon", "Marnie", "Maru", "Morris", "Pam", "Penny",
	"Pierre", "Qi", "Robin", "Sam", "Sandy", "Sebastian", "Shane", "Vincent", "Willy",
	"Wizard",
}

// locations are internal location names passed to warps, events and map lookups.
var locations = []string{
	"AdventureGuild", "AnimalShop", "ArchaeologyHouse", "Backwoods", "BathHouse_Entry",
	"Beach", "Blacksmith", "BugLand", "BusStop", "Caldera", "Cellar", "Club",
	"CommunityCenter", "Desert", "ElliottHouse", "Farm", "FarmCave", "FarmHouse",
	"FishShop", "Forest", "Greenhouse", "HaleyHouse", "Hospital", "IslandEast",
	"IslandNorth", "IslandSouth", "IslandWest", "JojaMart", "JoshHouse", "LeahHouse",
	"ManorHouse", "Mine", "Mountain", "QiNutRoom", "Railroad", "Saloon", "SamHouse",
	"ScienceHouse", "SebastianRoom", "SeedShop", "Sewer", "SkullCave", "Submarine",
	"Sunroom", "Tent", "Town", "Trailer", "Woods", "WizardHouse",
}

var properNouns = func() map[string]struct{} {
	m := make(map[string]struct{}, len(villagers)+len(locations))
	for _, n := range villagers {
		m[n] = struct{}{}
	}
	for _, n := range locations {
		m[n] = struct{}{}
	}
	return m
}()

// ProperNouns returns the built-in proper nouns in sorted order.
func ProperNouns() []string {
	out := lo.Keys(properNouns)
	sort.Strings(out)
	return out
}

// IsProperNoun reports whether s is one of the built-in proper nouns.
func IsProperNoun(s string) bool {
	_, ok := properNouns[s]
	return ok
}
