package invariant

import (
	"fmt"
	"regexp"
	"strings"

	"localize-from-source/internal/il"
	"localize-from-source/internal/textutil"
)

// shapes are the string forms that are code rather than content.
var shapes = []*regexp.Regexp{
	// Asset/file paths: Characters/Abigail, Maps\Town, LooseSprites/Cursors.png
	regexp.MustCompile(`^[\w.\-]+(?:[/\\][\w.\-]+)+[/\\]?$`),
	// Dotted identifiers and file names: Data.ObjectInformation, portrait.png
	regexp.MustCompile(`^[A-Za-z_]\w*(?:\.[A-Za-z_0-9]\w*)+$`),
	// camelCase: mailReceived
	regexp.MustCompile(`^[a-z][a-z0-9]*[A-Z][A-Za-z0-9]*$`),
	// PascalCase with at least two humps: CommunityCenter, IsMultiplayer
	regexp.MustCompile(`^[A-Z][a-z0-9]+[A-Z][A-Za-z0-9]*$`),
	// snake_case and SCREAMING_SNAKE: spring_onion, MOD_ID
	regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)+$`),
	regexp.MustCompile(`^[A-Z0-9]+(?:_[A-Z0-9]+)+$`),
	// Qualified item ids: (O)128, (BC)Keg, (F)1226
	regexp.MustCompile(`^\([A-Za-z]{1,2}\)[\w.\-]+$`),
}

// builtinCalls are framework members whose string arguments are never player-facing.
var builtinCalls = []string{
	"StardewModdingAPI.IMonitor::Log",
	"StardewModdingAPI.IMonitor::LogOnce",
	"StardewModdingAPI.IMonitor::VerboseLog",
	"StardewModdingAPI.IModContentHelper::Load",
	"StardewModdingAPI.IGameContentHelper::Load",
	"StardewModdingAPI.IGameContentHelper::InvalidateCache",
	"StardewModdingAPI.IGameContentHelper::ParseAssetName",
	"StardewModdingAPI.IAssetName::IsEquivalentTo",
	"StardewModdingAPI.IAssetName::StartsWith",
	"StardewModdingAPI.IDataHelper::ReadJsonFile",
	"StardewModdingAPI.IDataHelper::WriteJsonFile",
	"StardewModdingAPI.IDataHelper::ReadSaveData",
	"StardewModdingAPI.IDataHelper::WriteSaveData",
	"StardewModdingAPI.IDataHelper::ReadGlobalData",
	"StardewModdingAPI.IDataHelper::WriteGlobalData",
	"StardewModdingAPI.IModRegistry::IsLoaded",
	"StardewModdingAPI.IModRegistry::GetApi",

	"System.Collections.Generic.Dictionary`2::ContainsKey",
	"System.Collections.Generic.Dictionary`2::TryGetValue",
	"System.Collections.Generic.Dictionary`2::get_Item",
	"System.Collections.Generic.Dictionary`2::set_Item",
	"System.Collections.Generic.Dictionary`2::Add",
	"System.Collections.Generic.Dictionary`2::Remove",
	"System.Collections.Generic.IDictionary`2::ContainsKey",
	"System.Collections.Generic.IDictionary`2::TryGetValue",
	"System.Collections.Generic.IDictionary`2::get_Item",
	"System.Collections.Generic.IDictionary`2::set_Item",
	"System.Collections.Generic.HashSet`1::Contains",
	"System.Collections.Generic.HashSet`1::Add",
	"System.Collections.Generic.HashSet`1::Remove",
	"Netcode.NetStringHashSet::Contains",
	"Netcode.NetStringHashSet::Add",
	"Netcode.NetStringHashSet::Remove",

	"System.String::Equals",
	"System.String::op_Equality",
	"System.String::op_Inequality",
	"System.String::Contains",
	"System.String::StartsWith",
	"System.String::EndsWith",
	"System.String::IndexOf",
	"System.String::Split",
	"System.String::Replace",
	"System.String::Trim",

	"System.Exception::.ctor",
	"System.ArgumentException::.ctor",
	"System.ArgumentNullException::.ctor",
	"System.ArgumentOutOfRangeException::.ctor",
	"System.InvalidOperationException::.ctor",
	"System.NotSupportedException::.ctor",
	"System.NotImplementedException::.ctor",
	"System.Collections.Generic.KeyNotFoundException::.ctor",

	"System.Text.RegularExpressions.Regex::.ctor",
	"System.Text.RegularExpressions.Regex::IsMatch",
	"System.Text.RegularExpressions.Regex::Match",
	"System.Text.RegularExpressions.Regex::Matches",
	"System.Text.RegularExpressions.Regex::Replace",

	"System.Type::GetType",
	"System.Type::GetMethod",
	"System.Type::GetProperty",
	"System.Type::GetField",
	"System.Reflection.Assembly::GetType",
	"HarmonyLib.AccessTools::Method",
	"HarmonyLib.AccessTools::Field",
	"HarmonyLib.AccessTools::Property",
	"HarmonyLib.AccessTools::PropertyGetter",
	"HarmonyLib.AccessTools::PropertySetter",
	"HarmonyLib.AccessTools::TypeByName",
	"HarmonyLib.AccessTools::Constructor",

	"StardewValley.Game1::playSound",
	"StardewValley.Game1::getLocationFromName",
	"StardewValley.Game1::getCharacterFromName",
	"StardewValley.Game1::warpFarmer",
	"StardewValley.ItemRegistry::Create",
	"StardewValley.ItemRegistry::GetData",
	"StardewValley.ItemRegistry::Exists",
	"StardewValley.Farmer::hasOrWillReceiveMail",
	"StardewValley.Farmer::hasQuest",
	"StardewValley.Farmer::changeFriendship",
}

// Classifier decides which literals and call targets are not localizable.
type Classifier struct {
	patterns []*regexp.Regexp
	calls    map[string]struct{}
	// names holds configured entries given without a declaring type.
	names map[string]struct{}
}

// New builds a classifier from the built-in rules plus user-supplied string
// patterns and invariant method names ("Type::Method", "Type.Method" or "Method").
func New(patterns, methods []string) (*Classifier, error) {
	c := &Classifier{
		calls: make(map[string]struct{}, len(builtinCalls)+len(methods)),
		names: make(map[string]struct{}),
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile invariant pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	for _, ref := range builtinCalls {
		c.calls[ref] = struct{}{}
	}
	for _, m := range methods {
		c.addName(m)
	}
	return c, nil
}

func (c *Classifier) addName(name string) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
	case strings.Contains(name, "::"):
		c.calls[name] = struct{}{}
	case strings.Contains(name, "."):
		i := strings.LastIndex(name, ".")
		c.calls[name[:i]+"::"+name[i+1:]] = struct{}{}
	default:
		c.names[name] = struct{}{}
	}
}

// AddInvariantMethod marks ref as taking invariant arguments, typically because
// the method carries ArgumentIsCultureInvariantAttribute.
func (c *Classifier) AddInvariantMethod(ref il.MethodRef) {
	c.calls[ref.String()] = struct{}{}
}

// IsKnownInvariant reports whether s looks like code rather than player-facing text.
func (c *Classifier) IsKnownInvariant(s string) bool {
	if !textutil.HasLetter(s) {
		return true
	}
	if IsProperNoun(s) {
		return true
	}
	for _, re := range shapes {
		if re.MatchString(s) {
			return true
		}
	}
	for _, re := range c.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsInvariantArgumentCall reports whether string arguments to ref are never localized.
func (c *Classifier) IsInvariantArgumentCall(ref il.MethodRef) bool {
	if _, ok := c.calls[ref.String()]; ok {
		return true
	}
	_, ok := c.names[ref.Name]
	return ok
}
