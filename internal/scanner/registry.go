package scanner

import (
	"fmt"

	"localize-from-source/internal/extract"
	"localize-from-source/internal/il"
	"localize-from-source/internal/interpolation"
)

// MarkerType is the declaring type of the built-in marker functions.
const MarkerType = "LocalizeFromSourceLib.SdvLocalize"

const (
	noStrictAttribute          = "LocalizeFromSourceLib.NoStrictAttribute"
	invariantArgumentAttribute = "LocalizeFromSourceLib.ArgumentIsCultureInvariantAttribute"
)

// Decompile turns the literal passed to a marker into the strings to translate.
type Decompile func(literal string) []string

// Marker is a recognized localization call.
type Marker struct {
	Ref il.MethodRef
	// Format markers take a composite format string rather than a plain literal.
	Format    bool
	Decompile Decompile
}

// Registry is the fixed table of marker and invariant-marker calls.
type Registry struct {
	markers   map[il.MethodRef]Marker
	invariant map[il.MethodRef]struct{}
}

// NewRegistry builds a registry. A duplicate entry or a marker without a
// Decompile function is a programming error and panics.
func NewRegistry(markers []Marker, invariant []il.MethodRef) *Registry {
	r := &Registry{
		markers:   make(map[il.MethodRef]Marker, len(markers)),
		invariant: make(map[il.MethodRef]struct{}, len(invariant)),
	}
	for _, m := range markers {
		if m.Decompile == nil {
			panic(fmt.Sprintf("scanner: marker %s has no decompile function", m.Ref))
		}
		if _, dup := r.markers[m.Ref]; dup {
			panic(fmt.Sprintf("scanner: marker %s registered twice", m.Ref))
		}
		r.markers[m.Ref] = m
	}
	for _, ref := range invariant {
		if _, dup := r.markers[ref]; dup {
			panic(fmt.Sprintf("scanner: %s registered as both marker and invariant", ref))
		}
		if _, dup := r.invariant[ref]; dup {
			panic(fmt.Sprintf("scanner: invariant marker %s registered twice", ref))
		}
		r.invariant[ref] = struct{}{}
	}
	return r
}

func marker(name string) il.MethodRef {
	return il.MethodRef{DeclaringType: MarkerType, Name: name}
}

func fragments(fn extract.Func) Decompile {
	return func(s string) []string { return fn(s).Fragments() }
}

// DefaultRegistry returns the markers shipped with the companion runtime library.
func DefaultRegistry() *Registry {
	return NewRegistry([]Marker{
		{Ref: marker("L"), Decompile: fragments(extract.Plain)},
		{Ref: marker("LF"), Format: true, Decompile: func(s string) []string {
			return []string{interpolation.ToDomain(s)}
		}},
		{Ref: marker("SdvEvent"), Decompile: fragments(extract.Event)},
		{Ref: marker("SdvQuest"), Decompile: fragments(extract.Quest)},
		{Ref: marker("SdvMail"), Decompile: fragments(extract.Mail)},
	}, []il.MethodRef{
		marker("I"),
		marker("IF"),
	})
}

// Lookup returns the marker registered for ref.
func (r *Registry) Lookup(ref il.MethodRef) (Marker, bool) {
	m, ok := r.markers[ref]
	return m, ok
}

// IsPlain reports whether ref is a plain-string marker, whose argument must
// be a literal.
func (r *Registry) IsPlain(ref il.MethodRef) bool {
	m, ok := r.markers[ref]
	return ok && !m.Format
}

// IsInvariant reports whether ref is an invariant marker.
func (r *Registry) IsInvariant(ref il.MethodRef) bool {
	_, ok := r.invariant[ref]
	return ok
}
