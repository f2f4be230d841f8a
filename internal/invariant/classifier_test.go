package invariant

import (
	"testing"

	"localize-from-source/internal/il"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnownInvariant(t *testing.T) {
	c, err := New([]string{`^\[\w+\]$`}, nil)
	require.NoError(t, err)

	invariant := []string{
		"", "42", "12:30 - 45%", "+",
		"Characters/Abigail", `Maps\Town`, "LooseSprites/Cursors.png",
		"Data.ObjectInformation", "portrait.png",
		"mailReceived", "CommunityCenter", "spring_onion", "MOD_ID",
		"(O)128", "(BC)Keg",
		"Abigail", "Town",
		"[debug]",
	}
	for _, s := range invariant {
		assert.True(t, c.IsKnownInvariant(s), "%q should be invariant", s)
	}

	content := []string{
		"Hello", "Hello, world!", "You found a rare item.", "Done.",
		"Abigail's gift", "(O) is not an id", "debug",
	}
	for _, s := range content {
		assert.False(t, c.IsKnownInvariant(s), "%q should be localizable", s)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New([]string{"("}, nil)
	assert.Error(t, err)
}

func TestIsInvariantArgumentCall(t *testing.T) {
	c, err := New(nil, []string{"MyMod.Util::Key", "MyMod.Log.Trace", "Debug"})
	require.NoError(t, err)

	assert.True(t, c.IsInvariantArgumentCall(il.MethodRef{DeclaringType: "StardewModdingAPI.IMonitor", Name: "Log"}))
	assert.True(t, c.IsInvariantArgumentCall(il.MethodRef{DeclaringType: "System.ArgumentException", Name: ".ctor"}))
	assert.True(t, c.IsInvariantArgumentCall(il.MethodRef{DeclaringType: "MyMod.Util", Name: "Key"}))
	assert.True(t, c.IsInvariantArgumentCall(il.MethodRef{DeclaringType: "MyMod.Log", Name: "Trace"}))
	assert.True(t, c.IsInvariantArgumentCall(il.MethodRef{DeclaringType: "Anything.At.All", Name: "Debug"}))
	assert.False(t, c.IsInvariantArgumentCall(il.MethodRef{DeclaringType: "MyMod.Util", Name: "Show"}))

	ref := il.MethodRef{DeclaringType: "MyMod.Helpers", Name: "SetFlag"}
	assert.False(t, c.IsInvariantArgumentCall(ref))
	c.AddInvariantMethod(ref)
	assert.True(t, c.IsInvariantArgumentCall(ref))
}

func TestProperNounsSorted(t *testing.T) {
	nouns := ProperNouns()
	require.NotEmpty(t, nouns)
	assert.IsNonDecreasing(t, nouns)
	assert.Contains(t, nouns, "Krobus")
}
