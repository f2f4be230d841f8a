package scanner

import (
	"testing"

	"localize-from-source/internal/il"
	"localize-from-source/internal/invariant"
	"localize-from-source/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modType = "MyMod.ModEntry"

func at(line int) il.Provenance {
	return il.Provenance{File: "ModEntry.cs", Line: line}
}

func ldstr(s string, line int) il.Instruction {
	in := il.Instruction{Opcode: "ldstr", Kind: il.KindLoadString, String: s}
	if line > 0 {
		in.Pos = at(line)
	}
	return in
}

func call(typ, name string) il.Instruction {
	return il.Instruction{Opcode: "call", Kind: il.KindCall, Callee: il.MethodRef{DeclaringType: typ, Name: name}}
}

func mark(name string) il.Instruction {
	return call(MarkerType, name)
}

func op(code string, line int) il.Instruction {
	in := il.Instruction{Opcode: code}
	if line > 0 {
		in.Pos = at(line)
	}
	return in
}

func method(typ, name string, ins ...il.Instruction) *il.Method {
	return &il.Method{DeclaringType: typ, Name: name, Instructions: ins}
}

func newScanner(t *testing.T, opts Options) (*Scanner, *report.Collector) {
	t.Helper()
	cls, err := invariant.New(nil, []string{"MyMod.Util::Key"})
	require.NoError(t, err)
	col := report.NewCollector(nil)
	return New(DefaultRegistry(), cls, col, opts), col
}

func scan(t *testing.T, opts Options, methods ...*il.Method) *report.Collector {
	t.Helper()
	s, col := newScanner(t, opts)
	s.Scan(&il.Assembly{Name: "MyMod", Methods: methods})
	return col
}

func TestLocalizedStrings(t *testing.T) {
	col := scan(t, Options{Strict: true}, method(modType, "Entry",
		ldstr("Hello", 10), mark("L"), op("pop", 0),
		op("ldarg.0", 11), ldstr("You have {0} coins", 0), op("box", 0),
		call("System.Runtime.CompilerServices.FormattableStringFactory", "Create"), mark("LF"),
		ldstr("Hello", 12), mark("L"),
		ldstr("Dear @,^Welcome!%item money 500%%[#]Welcome", 13), mark("SdvMail"),
	))

	assert.Equal(t, []report.DiscoveredString{
		{Text: "Hello", Pos: at(10)},
		{Text: "You have {{arg0}} coins", Format: true, Pos: at(11)},
		{Text: "Dear @,^Welcome!", Pos: at(13)},
		{Text: "Welcome", Pos: at(13)},
	}, col.Strings())
	assert.Empty(t, col.Diagnostics())
	assert.False(t, col.Blocking())
}

func TestProvenanceFallsForwardWhenNothingPrecedes(t *testing.T) {
	col := scan(t, Options{}, method(modType, "Entry",
		ldstr("Hi there", 0), mark("L"), op("ret", 7),
	))
	require.Len(t, col.Strings(), 1)
	assert.Equal(t, at(7), col.Strings()[0].Pos)
}

func TestUsageErrorReportedOnce(t *testing.T) {
	col := scan(t, Options{}, method(modType, "Entry",
		op("nop", 5), op("ldarg.1", 0), mark("L"), op("pop", 0),
	))
	assert.Equal(t, 1, col.Count(report.CodeMisuse))
	assert.True(t, col.Blocking(), "misuse is an error even without strict mode")
	assert.Empty(t, col.Strings())
}

func TestPlainMarkerAfterUnrelatedCall(t *testing.T) {
	col := scan(t, Options{Strict: true}, method(modType, "Entry",
		ldstr("Shown elsewhere", 3), call("MyMod.Ui", "Show"), op("ldloc.0", 0), mark("L"),
	))
	assert.Equal(t, 1, col.Count(report.CodeMisuse))
	assert.Equal(t, 1, col.Count(report.CodeUnmarked))
	assert.Empty(t, col.Strings())
}

func TestStrictUnmarked(t *testing.T) {
	col := scan(t, Options{Strict: true}, method(modType, "Entry",
		ldstr("Bare text", 20), call("MyMod.Ui", "Show"),
		ldstr("Another bare", 21), ldstr("Marked", 22), mark("L"),
	))
	assert.Equal(t, 2, col.Unmarked())
	assert.True(t, col.Blocking())
	require.Len(t, col.Strings(), 1)
	assert.Equal(t, "Marked", col.Strings()[0].Text)

	diags := col.Diagnostics()
	assert.Equal(t, at(20), diags[0].Pos)
	assert.Equal(t, report.Error, diags[0].Severity)
}

func TestUnmarkedAtEndOfMethod(t *testing.T) {
	col := scan(t, Options{Strict: true}, method(modType, "Entry",
		op("nop", 4), ldstr("Trailing text", 0), op("ret", 0),
	))
	assert.Equal(t, 1, col.Unmarked())
}

func TestNonStrictIsQuietUnlessAsked(t *testing.T) {
	m := method(modType, "Entry", ldstr("Bare text", 20), op("ret", 0))

	col := scan(t, Options{}, m)
	assert.Empty(t, col.Diagnostics())

	col = scan(t, Options{WarnUnmarked: true}, m)
	require.Len(t, col.Diagnostics(), 1)
	assert.Equal(t, report.Warning, col.Diagnostics()[0].Severity)
	assert.False(t, col.Blocking())
}

func TestInvariantCallsAndShapes(t *testing.T) {
	col := scan(t, Options{Strict: true}, method(modType, "Entry",
		ldstr("Loading the thing", 1), op("ldc.i4.0", 0), call("StardewModdingAPI.IMonitor", "Log"),
		ldstr("Not for players", 2), mark("I"),
		ldstr("Config key text", 3), call("MyMod.Util", "Key"),
		ldstr("Characters/Abigail", 4), call("MyMod.Ui", "Portrait"),
		ldstr("mailReceived", 5), op("pop", 0),
		ldstr("", 6), op("pop", 0),
		ldstr("Maps/Town", 7), mark("L"),
	))
	assert.Empty(t, col.Diagnostics())
	require.Len(t, col.Strings(), 1)
	assert.Equal(t, "Maps/Town", col.Strings()[0].Text, "explicit markers override shape heuristics")
}

func TestEmptyLocalization(t *testing.T) {
	col := scan(t, Options{}, method(modType, "Entry", ldstr("", 9), mark("L")))
	assert.Equal(t, 1, col.Count(report.CodeEmptyLocalization))
	assert.Empty(t, col.Strings())
}

func TestMethodsWithoutProvenanceAreSkipped(t *testing.T) {
	col := scan(t, Options{Strict: true}, method(modType, "ToString",
		ldstr("Bare text", 0), op("ldarg.1", 0), mark("L"),
	))
	assert.Empty(t, col.Diagnostics())
	assert.Empty(t, col.Strings())
}

func TestNoStrictOptOut(t *testing.T) {
	onMethod := method(modType, "Noisy", ldstr("Bare one", 1), op("ret", 0))
	onMethod.Attributes = []string{noStrictAttribute}

	onType := method("MyMod.Debug", "Dump", ldstr("Bare two", 2), op("ret", 0))
	onType.TypeAttributes = [][]string{{"NoStrictAttribute"}}

	source := method(modType, "Setup", op("nop", 3))
	source.Attributes = []string{noStrictAttribute}
	lambda := method(modType+"/<>c", "<Setup>b__0_0", ldstr("Bare three", 4), op("ret", 0))
	stateMachine := method(modType+"/<Setup>d__5", "MoveNext", ldstr("Bare four", 5), op("ret", 0))

	strictLambda := method(modType+"/<>c", "<Other>b__1_0", ldstr("Bare five", 6), op("ret", 0))

	col := scan(t, Options{Strict: true}, onMethod, onType, source, lambda, stateMachine, strictLambda)
	require.Equal(t, 1, col.Unmarked())
	assert.Contains(t, col.Diagnostics()[0].Message, "Bare five")
}

func TestArgumentIsCultureInvariantAttribute(t *testing.T) {
	helper := method("MyMod.Flags", "Set", op("ret", 1))
	helper.Attributes = []string{invariantArgumentAttribute}

	col := scan(t, Options{Strict: true},
		method(modType, "Entry", ldstr("Some flag text", 1), call("MyMod.Flags", "Set")),
		helper,
	)
	assert.Empty(t, col.Diagnostics())
}

func TestRegistryPanics(t *testing.T) {
	ref := il.MethodRef{DeclaringType: "X", Name: "L"}
	plain := func(s string) []string { return []string{s} }

	assert.Panics(t, func() {
		NewRegistry([]Marker{{Ref: ref, Decompile: plain}, {Ref: ref, Decompile: plain}}, nil)
	})
	assert.Panics(t, func() { NewRegistry([]Marker{{Ref: ref}}, nil) })
	assert.Panics(t, func() { NewRegistry([]Marker{{Ref: ref, Decompile: plain}}, []il.MethodRef{ref}) })
	assert.NotPanics(t, func() { DefaultRegistry() })
}
