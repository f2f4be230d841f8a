// Package report collects discovered strings and build diagnostics.
package report

import (
	"fmt"

	"localize-from-source/internal/il"
)

// Tool prefixes diagnostics that carry no source location.
const Tool = "localize"

// Severity of a diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Code is a stable diagnostic identifier.
type Code string

const (
	CodeUnmarked          Code = "LFS0001"
	CodeMisuse            Code = "LFS0002"
	CodeEmptyLocalization Code = "LFS0003"
	CodeCorruptFile       Code = "LFS0004"
	CodeIncomplete        Code = "LFS0005"
	CodeNotUpdated        Code = "LFS0006"
	CodeCorruptTable      Code = "LFS0007"
	CodeMissingRuntime    Code = "LFS0008"
	CodeCommit            Code = "LFS0009"
	CodeOrphanKey         Code = "LFS0010"
)

// Diagnostic is one finding.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Pos      il.Provenance
	Message  string
}

// String renders the diagnostic in MSBuild canonical form so build-log
// parsers pick it up:
//
//	C:\src\Mod.cs(12): error LFS0001: unmarked string "Hello"
//	localize: warning LFS0005: [de] no translation for key "abc123"
func (d Diagnostic) String() string {
	origin := Tool
	if d.Pos.Valid() {
		origin = d.Pos.String()
	}
	return fmt.Sprintf("%s: %s %s: %s", origin, d.Severity, d.Code, d.Message)
}

// Warnf builds a warning diagnostic.
func Warnf(code Code, pos il.Provenance, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Errorf builds an error diagnostic.
func Errorf(code Code, pos il.Provenance, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// DiscoveredString is a translatable string found in a listing.
type DiscoveredString struct {
	Text string
	// Format marks a template with {{argN}} placeholders.
	Format bool
	// Key is set when the string came from a legacy table rather than a scan.
	Key string
	Pos il.Provenance
}
