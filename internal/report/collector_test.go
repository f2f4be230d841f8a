package report

import (
	"bytes"
	"strings"
	"testing"

	"localize-from-source/internal/il"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorDeduplicatesFirstFoundWins(t *testing.T) {
	c := NewCollector(nil)
	first := il.Provenance{File: "A.cs", Line: 3}
	c.ReportLocalized("Hello", false, first)
	c.ReportLocalized("Bye", false, il.Provenance{File: "A.cs", Line: 9})
	c.ReportLocalized("Hello", true, il.Provenance{File: "B.cs", Line: 1})

	got := c.Strings()
	require.Len(t, got, 2)
	assert.Equal(t, DiscoveredString{Text: "Hello", Format: true, Pos: first}, got[0])
	assert.Equal(t, "Bye", got[1].Text)
	assert.False(t, c.Blocking())
}

func TestCollectorWritesMSBuildDiagnostics(t *testing.T) {
	var out bytes.Buffer
	c := NewCollector(&out)

	c.ReportUnmarked("Hello", il.Provenance{File: `C:\src\Mod.cs`, Line: 12}, false)
	assert.False(t, c.Blocking(), "non-strict unmarked strings only warn")

	c.ReportUnmarked("Hello", il.Provenance{File: `C:\src\Mod.cs`, Line: 14}, true)
	c.ReportMisuse(il.Provenance{}, "L() must be called with a string literal")
	c.Report(Warnf(CodeIncomplete, il.Provenance{}, "[de] no translation for key %q", "abc123"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		`C:\src\Mod.cs(12): warning LFS0001: unmarked string "Hello"; wrap it in L() or I()`,
		`C:\src\Mod.cs(14): error LFS0001: unmarked string "Hello"; wrap it in L() or I()`,
		`localize: error LFS0002: L() must be called with a string literal`,
		`localize: warning LFS0005: [de] no translation for key "abc123"`,
	}, lines)

	assert.True(t, c.Blocking())
	assert.Equal(t, 2, c.Unmarked())
	assert.Equal(t, 2, c.Count(CodeUnmarked))
	assert.Len(t, c.Diagnostics(), 4)
}

func TestEmptyLocalizationBlocks(t *testing.T) {
	c := NewCollector(nil)
	c.ReportEmptyLocalization(il.Provenance{File: "A.cs", Line: 1})
	assert.True(t, c.Blocking())
	assert.Equal(t, 1, c.Count(CodeEmptyLocalization))
}
