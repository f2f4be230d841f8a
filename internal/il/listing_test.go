package il

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListing = `
//  Microsoft (R) .NET IL Disassembler.
.assembly extern LocalizeFromSourceLib
{
  .ver 1:0:0:0
}
.class public auto ansi beforefieldinit BetterCrafting.ModEntry
       extends [StardewModdingAPI]StardewModdingAPI.Mod
{
  .custom instance void [LocalizeFromSourceLib]LocalizeFromSourceLib.NoStrictAttribute::.ctor() = ( 01 00 00 00 )
  .method public hidebysig virtual instance void
          Entry(class [StardewModdingAPI]StardewModdingAPI.IModHelper helper) cil managed
  {
    .custom instance void [LocalizeFromSourceLib]LocalizeFromSourceLib.ArgumentIsCultureInvariantAttribute::.ctor() = ( 01 00 00 00 )
    // Code size       42 (0x2a)
    .maxstack  8
    .line 12,12 : 9,35 'C:\src\BetterCrafting\ModEntry.cs'
    IL_0000:  ldstr      "Hello \"world\""
    IL_0005:  call       string [LocalizeFromSourceLib]LocalizeFromSourceLib.SdvLocalize::L(string)
    IL_000a:  pop
    .line 13,13 : 9,40 ''
    IL_000b:  ldstr      "first half "
    + "second half"
    IL_0010:  ldstr      bytearray (48 00 E9 00 6C 00 6C 00   // H.é.l.l.
                                    6F 00 )                 // o.
    .line 16707566,16707566 : 0,0 ''
    IL_0015:  callvirt   instance void class [System.Collections]System.Collections.Generic.Dictionary` + "`" + `2<string,class [StardewValley]StardewValley.Object>::Add(!0, !1)
    IL_001a:  newobj     instance void [System.Runtime]System.ArgumentException::.ctor(string)
    IL_001f:  ret
  } // end of method ModEntry::Entry

  .method private hidebysig specialname rtspecialname instance void .ctor() cil managed
  {
    IL_0000:  ldarg.0
    IL_0001:  call       instance void [StardewModdingAPI]StardewModdingAPI.Mod::.ctor()
    IL_0006:  ret
  } // end of method ModEntry::.ctor

  .class auto ansi sealed nested private beforefieldinit '<>c'
         extends [System.Runtime]System.Object
  {
    .method assembly hidebysig instance string
            '<Entry>b__0_0'(string s) cil managed
    {
      .param [1]
      .custom instance void [System.Runtime]System.Diagnostics.CodeAnalysis.NotNullAttribute::.ctor() = ( 01 00 00 00 )
      .line 20,20 : 13,30 'C:\src\BetterCrafting\ModEntry.cs'
      IL_0000:  ldstr      "Lambda text"
      IL_0005:  ret
    } // end of method '<>c'::'<Entry>b__0_0'
  } // end of class '<>c'
} // end of class BetterCrafting.ModEntry
`

func TestReadListing(t *testing.T) {
	asm, err := ReadListing(strings.NewReader(sampleListing), "BetterCrafting")
	require.NoError(t, err)
	require.Len(t, asm.Methods, 3)

	entry := asm.Methods[0]
	assert.Equal(t, "BetterCrafting.ModEntry", entry.DeclaringType)
	assert.Equal(t, "Entry", entry.Name)
	assert.True(t, entry.HasAttribute("ArgumentIsCultureInvariantAttribute"))
	assert.True(t, entry.TypeHasAttribute("LocalizeFromSourceLib.NoStrictAttribute"))
	assert.True(t, entry.HasProvenance())

	ins := entry.Instructions
	require.Len(t, ins, 8)

	assert.Equal(t, KindLoadString, ins[0].Kind)
	assert.Equal(t, `Hello "world"`, ins[0].String)
	assert.Equal(t, Provenance{File: `C:\src\BetterCrafting\ModEntry.cs`, Line: 12}, ins[0].Pos)

	marker := MethodRef{DeclaringType: "LocalizeFromSourceLib.SdvLocalize", Name: "L"}
	assert.True(t, ins[1].IsCallTo(func(ref MethodRef) bool { return ref == marker }))
	assert.False(t, ins[0].IsCallTo(func(MethodRef) bool { return true }), "a literal load is not a call")
	assert.False(t, ins[1].Pos.Valid())

	assert.Equal(t, "first half second half", ins[3].String)
	assert.Equal(t, 13, ins[3].Pos.Line)
	assert.Equal(t, `C:\src\BetterCrafting\ModEntry.cs`, ins[3].Pos.File, "empty file name repeats the previous file")

	assert.Equal(t, "Héllo", ins[4].String)

	assert.Equal(t, MethodRef{DeclaringType: "System.Collections.Generic.Dictionary`2", Name: "Add"}, ins[5].Callee)
	assert.False(t, ins[5].Pos.Valid(), "hidden sequence points carry no provenance")
	assert.Equal(t, MethodRef{DeclaringType: "System.ArgumentException", Name: ".ctor"}, ins[6].Callee)

	ctor := asm.Methods[1]
	assert.Equal(t, ".ctor", ctor.Name)
	assert.False(t, ctor.HasProvenance())

	lambda := asm.Methods[2]
	assert.Equal(t, "BetterCrafting.ModEntry/<>c", lambda.DeclaringType)
	assert.Equal(t, "<Entry>b__0_0", lambda.Name)
	assert.Empty(t, lambda.Attributes, "parameter attributes stay off the method")
	assert.True(t, lambda.TypeHasAttribute("NoStrictAttribute"))
}

func TestParseMethodRef(t *testing.T) {
	cases := []struct {
		operand string
		want    MethodRef
	}{
		{"string [Lib]Ns.SdvLocalize::LF(class [System.Runtime]System.FormattableString)", MethodRef{"Ns.SdvLocalize", "LF"}},
		{"instance void Ns.Outer/'<>c'::'<M>b__1'()", MethodRef{"Ns.Outer/<>c", "<M>b__1"}},
		{"!!0 [Lib]Ns.Util::Get<int32>(string)", MethodRef{"Ns.Util", "Get"}},
	}
	for _, c := range cases {
		got, ok := parseMethodRef(c.operand)
		require.True(t, ok, c.operand)
		assert.Equal(t, c.want, got, c.operand)
	}

	_, ok := parseMethodRef("int32 5")
	assert.False(t, ok)
}

func TestUnquote(t *testing.T) {
	s, ok := unquote(`"tab\there\\ \101"`)
	require.True(t, ok)
	assert.Equal(t, "tab\there\\ A", s)

	_, ok = unquote(`"unterminated`)
	assert.False(t, ok)
}
