package il

import "fmt"

// Kind classifies an instruction for string discovery.
type Kind int

const (
	// KindOther is any instruction the scanner does not care about.
	KindOther Kind = iota
	// KindLoadString pushes a string literal (ldstr).
	KindLoadString
	// KindCall invokes a method (call, callvirt, newobj).
	KindCall
)

// MethodRef identifies a callable by its declaring type and member name.
type MethodRef struct {
	DeclaringType string
	Name          string
}

// String renders the reference the way ildasm does, Type::Member.
func (m MethodRef) String() string {
	return m.DeclaringType + "::" + m.Name
}

// Provenance is the source location a sequence point attributes to an instruction.
// The zero value means the instruction carries no location.
type Provenance struct {
	File string
	Line int
}

// Valid reports whether the provenance names a real source line.
func (p Provenance) Valid() bool {
	return p.Line > 0
}

func (p Provenance) String() string {
	if !p.Valid() {
		return ""
	}
	return fmt.Sprintf("%s(%d)", p.File, p.Line)
}

// Instruction is one entry of a method body.
type Instruction struct {
	// Offset is the IL offset (IL_xxxx label).
	Offset int
	// Opcode is the mnemonic as written in the listing.
	Opcode string
	Kind   Kind
	// String is the literal operand of a KindLoadString instruction.
	String string
	// Callee is the operand of a KindCall instruction.
	Callee MethodRef
	// Pos is set only on instructions that start a sequence point.
	Pos Provenance
}

// IsLoadString reports whether the instruction pushes a string literal.
func (in Instruction) IsLoadString() bool { return in.Kind == KindLoadString }

// IsCallTo reports whether the instruction is a call to a method match accepts.
func (in Instruction) IsCallTo(match func(MethodRef) bool) bool {
	return in.Kind == KindCall && match(in.Callee)
}

// Method is a method body plus the metadata the scanner needs.
type Method struct {
	// DeclaringType is the full type name, nested types joined with '/'.
	DeclaringType string
	Name          string
	// Attributes are the full type names of custom attributes on the method.
	Attributes []string
	// TypeAttributes holds, per enclosing type (outermost first), the attribute names on it.
	TypeAttributes [][]string
	Instructions   []Instruction
}

// Ref returns the identity other methods use to call this one.
func (m *Method) Ref() MethodRef {
	return MethodRef{DeclaringType: m.DeclaringType, Name: m.Name}
}

// HasProvenance reports whether any instruction carries a source location.
// Compiler-synthesized methods (record Equals, ToString, ...) have none.
func (m *Method) HasProvenance() bool {
	for _, in := range m.Instructions {
		if in.Pos.Valid() {
			return true
		}
	}
	return false
}

// HasAttribute reports whether the method itself carries the named attribute.
// Names match on the full type name or on the simple (namespace-less) name.
func (m *Method) HasAttribute(name string) bool {
	return containsAttribute(m.Attributes, name)
}

// TypeHasAttribute reports whether any enclosing type carries the named attribute.
func (m *Method) TypeHasAttribute(name string) bool {
	for _, attrs := range m.TypeAttributes {
		if containsAttribute(attrs, name) {
			return true
		}
	}
	return false
}

func containsAttribute(attrs []string, name string) bool {
	for _, a := range attrs {
		if a == name || simpleName(a) == name || a == simpleName(name) {
			return true
		}
	}
	return false
}

func simpleName(full string) string {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '.' || full[i] == '/' {
			return full[i+1:]
		}
	}
	return full
}

// Assembly is the set of methods read from one listing.
type Assembly struct {
	Name    string
	Methods []*Method
}
