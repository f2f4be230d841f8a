// Package scanner finds the string literals that reach marker calls in method bodies.
package scanner

import (
	"fmt"
	"regexp"
	"strings"

	"localize-from-source/internal/il"
	"localize-from-source/internal/invariant"
	"localize-from-source/internal/report"

	"github.com/rs/zerolog/log"
)

// generatedName matches compiler-generated lambdas (<M>b__0_1), local
// functions (<M>g__Local|0_0) and state machines (<M>d__4).
var generatedName = regexp.MustCompile(`^<([^>]+)>[bgd]__`)

type state int

const (
	seekingLiteral state = iota
	seekingCall
)

// Options tune how findings are reported.
type Options struct {
	// Strict turns unmarked literals into errors unless the method opts out
	// with NoStrictAttribute.
	Strict bool
	// WarnUnmarked reports unmarked literals as warnings in non-strict methods.
	WarnUnmarked bool
}

// Scanner walks method bodies and reports discoveries to a Reporter.
type Scanner struct {
	registry   *Registry
	classifier *invariant.Classifier
	reporter   report.Reporter
	opts       Options

	// methods indexes every scanned method by Type::Name for lambda lookups.
	methods map[il.MethodRef][]*il.Method
}

// New creates a scanner.
func New(registry *Registry, classifier *invariant.Classifier, reporter report.Reporter, opts Options) *Scanner {
	return &Scanner{
		registry:   registry,
		classifier: classifier,
		reporter:   reporter,
		opts:       opts,
		methods:    make(map[il.MethodRef][]*il.Method),
	}
}

// Scan processes every method of the given assemblies in order.
func (s *Scanner) Scan(assemblies ...*il.Assembly) {
	for _, asm := range assemblies {
		for _, m := range asm.Methods {
			s.methods[m.Ref()] = append(s.methods[m.Ref()], m)
			if m.HasAttribute(invariantArgumentAttribute) {
				s.classifier.AddInvariantMethod(m.Ref())
			}
		}
	}

	for _, asm := range assemblies {
		scanned, skipped := 0, 0
		for _, m := range asm.Methods {
			if !m.HasProvenance() {
				skipped++
				continue
			}
			s.ScanMethod(m)
			scanned++
		}
		log.Info().Str("assembly", asm.Name).Int("scanned", scanned).Int("skipped", skipped).Msg("Scanned assembly")
	}
}

// ScanMethod runs both passes over one method body. Methods with no source
// provenance are compiler-generated and skipped.
func (s *Scanner) ScanMethod(m *il.Method) {
	if !m.HasProvenance() {
		log.Debug().Str("method", m.Ref().String()).Msg("Skipping method without line information")
		return
	}
	s.checkUsage(m)

	strict := s.strictFor(m)
	ins := m.Instructions
	st := seekingLiteral
	pending := 0

	for i, in := range ins {
		if st == seekingCall {
			switch {
			case in.IsLoadString():
				s.unmarked(m, pending, strict)
				st = seekingLiteral
			case in.Kind == il.KindCall:
				if mk, ok := s.registry.Lookup(in.Callee); ok {
					if !mk.Format && pending != i-1 {
						// checkUsage already reported the call; the literal never reached it.
						s.unmarked(m, pending, strict)
					} else {
						s.emit(m, pending, mk)
					}
					st = seekingLiteral
				} else if s.isInvariantCall(in.Callee) {
					st = seekingLiteral
				}
				continue
			default:
				continue
			}
		}

		if in.IsLoadString() && !s.prefiltered(ins, i) {
			pending = i
			st = seekingCall
		}
	}

	if st == seekingCall {
		s.unmarked(m, pending, strict)
	}
}

// checkUsage reports every plain-marker call not immediately preceded by a literal load.
func (s *Scanner) checkUsage(m *il.Method) {
	for i, in := range m.Instructions {
		if !in.IsCallTo(s.registry.IsPlain) {
			continue
		}
		if i > 0 && m.Instructions[i-1].IsLoadString() {
			continue
		}
		s.reporter.ReportMisuse(provenanceAt(m.Instructions, i),
			fmt.Sprintf("%s() must be called with a string literal, not a computed value (in %s)", in.Callee.Name, m.Ref()))
	}
}

// prefiltered reports whether the literal at i is dropped before the main pass.
// A literal passed straight to a plain marker is always kept.
func (s *Scanner) prefiltered(ins []il.Instruction, i int) bool {
	if i+1 < len(ins) && ins[i+1].IsCallTo(s.registry.IsPlain) {
		return false
	}
	text := ins[i].String
	return text == "" || s.classifier.IsKnownInvariant(text)
}

func (s *Scanner) isInvariantCall(ref il.MethodRef) bool {
	return s.registry.IsInvariant(ref) || s.classifier.IsInvariantArgumentCall(ref)
}

func (s *Scanner) emit(m *il.Method, i int, mk Marker) {
	pos := provenanceAt(m.Instructions, i)
	text := m.Instructions[i].String
	if text == "" {
		s.reporter.ReportEmptyLocalization(pos)
		return
	}
	for _, frag := range mk.Decompile(text) {
		if frag == "" {
			continue
		}
		s.reporter.ReportLocalized(frag, mk.Format, pos)
	}
}

func (s *Scanner) unmarked(m *il.Method, i int, strict bool) {
	if !strict && !s.opts.WarnUnmarked {
		return
	}
	s.reporter.ReportUnmarked(m.Instructions[i].String, provenanceAt(m.Instructions, i), strict)
}

// strictFor resolves strict mode for m: the project setting, unless the method,
// an enclosing type or the method a lambda was generated from opts out.
func (s *Scanner) strictFor(m *il.Method) bool {
	if !s.opts.Strict {
		return false
	}
	if m.HasAttribute(noStrictAttribute) || m.TypeHasAttribute(noStrictAttribute) {
		return false
	}
	for _, src := range s.sourceMethods(m) {
		if src.HasAttribute(noStrictAttribute) {
			return false
		}
	}
	return true
}

// sourceMethods finds the user-written methods a compiler-generated method
// (lambda, local function, iterator/async state machine) came from.
func (s *Scanner) sourceMethods(m *il.Method) []*il.Method {
	name := ""
	if g := generatedName.FindStringSubmatch(m.Name); g != nil {
		name = g[1]
	}

	// Strip generated nested types (<>c, <>c__DisplayClass0_0, <M>d__4) to reach the user type.
	segments := strings.Split(m.DeclaringType, "/")
	for len(segments) > 1 && strings.HasPrefix(segments[len(segments)-1], "<") {
		if name == "" {
			if g := generatedName.FindStringSubmatch(segments[len(segments)-1]); g != nil {
				name = g[1]
			}
		}
		segments = segments[:len(segments)-1]
	}
	if name == "" {
		return nil
	}
	return s.methods[il.MethodRef{DeclaringType: strings.Join(segments, "/"), Name: name}]
}

// provenanceAt returns the instruction's own location, else the nearest
// preceding one, else the nearest following one.
func provenanceAt(ins []il.Instruction, i int) il.Provenance {
	for j := i; j >= 0; j-- {
		if ins[j].Pos.Valid() {
			return ins[j].Pos
		}
	}
	for j := i + 1; j < len(ins); j++ {
		if ins[j].Pos.Valid() {
			return ins[j].Pos
		}
	}
	return il.Provenance{}
}
