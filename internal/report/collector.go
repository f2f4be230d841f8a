package report

import (
	"fmt"
	"io"
	"sync"

	"localize-from-source/internal/il"
	"localize-from-source/internal/textutil"

	"github.com/rs/zerolog/log"
)

// Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Reporter is what the scanner reports discoveries and findings to.
type Reporter interface {
	Sink
	ReportLocalized(text string, format bool, pos il.Provenance)
	ReportUnmarked(text string, pos il.Provenance, strict bool)
	ReportMisuse(pos il.Provenance, message string)
	ReportEmptyLocalization(pos il.Provenance)
}

// Collector accumulates discovered strings and writes each diagnostic to its
// output as soon as it is reported. Strings are deduplicated by exact text;
// the first provenance reported for a text is kept.
type Collector struct {
	mu  sync.Mutex
	out io.Writer

	strings []DiscoveredString
	index   map[string]int

	diagnostics []Diagnostic
	errors      int
	unmarked    int
}

// NewCollector creates a collector writing diagnostics to out (nil discards them).
func NewCollector(out io.Writer) *Collector {
	if out == nil {
		out = io.Discard
	}
	return &Collector{out: out, index: make(map[string]int)}
}

func (c *Collector) ReportLocalized(text string, format bool, pos il.Provenance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[text]; ok {
		// A later plain discovery never downgrades a format template.
		c.strings[i].Format = c.strings[i].Format || format
		return
	}
	c.index[text] = len(c.strings)
	c.strings = append(c.strings, DiscoveredString{Text: text, Format: format, Pos: pos})
}

func (c *Collector) ReportUnmarked(text string, pos il.Provenance, strict bool) {
	msg := fmt.Sprintf("unmarked string %q; wrap it in L() or I()", textutil.Truncate(text, 80))
	if strict {
		c.Report(Errorf(CodeUnmarked, pos, "%s", msg))
	} else {
		c.Report(Warnf(CodeUnmarked, pos, "%s", msg))
	}
	c.mu.Lock()
	c.unmarked++
	c.mu.Unlock()
}

func (c *Collector) ReportMisuse(pos il.Provenance, message string) {
	c.Report(Errorf(CodeMisuse, pos, "%s", message))
}

func (c *Collector) ReportEmptyLocalization(pos il.Provenance) {
	c.Report(Errorf(CodeEmptyLocalization, pos, "localizing an empty string"))
}

// Report records d and writes it out.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.diagnostics = append(c.diagnostics, d)
	if d.Severity == Error {
		c.errors++
	}
	if _, err := fmt.Fprintln(c.out, d.String()); err != nil {
		log.Warn().Err(err).Msg("Failed to write diagnostic")
	}
}

// Strings returns the discovered strings in discovery order.
func (c *Collector) Strings() []DiscoveredString {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DiscoveredString(nil), c.strings...)
}

// Diagnostics returns every diagnostic reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.diagnostics...)
}

// Count returns how many diagnostics carried code.
func (c *Collector) Count(code Code) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diagnostics {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Unmarked returns the number of unmarked-string findings.
func (c *Collector) Unmarked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmarked
}

// Blocking reports whether any error was recorded; table generation is
// refused when it is true.
func (c *Collector) Blocking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors > 0
}
