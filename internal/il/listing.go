package il

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/rs/zerolog/log"
)

// hiddenLine is the sequence-point line number compilers use for hidden code.
const hiddenLine = 0xFEEFEE

// instructionPattern matches "IL_002a:  ldstr      "text"".
var instructionPattern = regexp.MustCompile(`^IL_([0-9a-fA-F]+):\s*(\S+)\s*(.*)$`)

// linePattern matches ".line 12,12 : 9,35 'C:\src\Mod.cs'" and the short ".line 12 'f'" form.
var linePattern = regexp.MustCompile(`^\.line\s+(\d+)(?:\s*,\s*\d+)?(?:\s*:\s*\d+(?:\s*,\s*\d+)?)?(?:\s+'([^']*)')?`)

type frameKind int

const (
	frameOther frameKind = iota
	frameClass
	frameMethod
)

type frame struct {
	kind   frameKind
	name   string
	attrs  []string
	method *Method
}

// listingReader turns an ildasm text listing into methods.
type listingReader struct {
	asm *Assembly

	stack []*frame

	pendingClass  string
	hasClass      bool
	methodHeader  strings.Builder
	inMethodHead  bool
	inParam       bool
	pendingPos    Provenance
	lastFile      string
	byteArray     *strings.Builder
	lastLiteral   *Instruction
	lastLiteralOK bool
}

// ReadListingFile reads an ildasm listing from disk.
func ReadListingFile(path string) (*Assembly, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadListing(f, name)
}

// ReadListing parses an ildasm listing (produced with /linenum so sequence
// points appear as .line directives). Malformed lines are skipped; only I/O
// failures are returned as errors.
func ReadListing(r io.Reader, name string) (*Assembly, error) {
	lr := &listingReader{asm: &Assembly{Name: name}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		lr.line(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan listing %s: %w", name, err)
	}

	for len(lr.stack) > 0 {
		lr.close()
	}

	log.Debug().Str("assembly", name).Int("lines", lineNum).Int("methods", len(lr.asm.Methods)).Msg("Read listing")
	return lr.asm, nil
}

func (lr *listingReader) line(text string) {
	if lr.byteArray != nil {
		lr.continueByteArray(text)
		return
	}

	if text == "" || strings.HasPrefix(text, "//") {
		return
	}

	// A literal split across lines continues with + "...".
	if lr.lastLiteralOK && strings.HasPrefix(text, "+") {
		rest := strings.TrimSpace(text[1:])
		if s, ok := unquote(rest); ok {
			lr.lastLiteral.String += s
			return
		}
	}
	lr.lastLiteralOK = false

	if lr.inMethodHead && text != "{" {
		lr.methodHeader.WriteByte(' ')
		lr.methodHeader.WriteString(text)
		return
	}

	// Attributes listed right after .param belong to the parameter.
	if !strings.HasPrefix(text, ".custom") {
		lr.inParam = false
	}

	switch {
	case text == "{":
		lr.open()
	case strings.HasPrefix(text, "}"):
		lr.close()
	case strings.HasPrefix(text, ".class"):
		lr.pendingClass = className(text)
		lr.hasClass = true
	case strings.HasPrefix(text, ".method"):
		lr.inMethodHead = true
		lr.methodHeader.Reset()
		lr.methodHeader.WriteString(text)
	case strings.HasPrefix(text, ".param"):
		lr.inParam = true
	case strings.HasPrefix(text, ".custom"):
		lr.custom(text)
	case strings.HasPrefix(text, ".line"):
		lr.sequencePoint(text)
	case strings.HasPrefix(text, "IL_"):
		lr.instruction(text)
	}
}

func (lr *listingReader) open() {
	f := &frame{kind: frameOther}
	switch {
	case lr.inMethodHead:
		f.kind = frameMethod
		f.method = &Method{
			DeclaringType:  lr.typeName(),
			Name:           methodName(lr.methodHeader.String()),
			TypeAttributes: lr.typeAttributes(),
		}
		lr.inMethodHead = false
		lr.pendingPos = Provenance{}
	case lr.hasClass:
		f.kind = frameClass
		f.name = lr.pendingClass
		lr.hasClass = false
	}
	lr.stack = append(lr.stack, f)
}

func (lr *listingReader) close() {
	if len(lr.stack) == 0 {
		return
	}
	top := lr.stack[len(lr.stack)-1]
	lr.stack = lr.stack[:len(lr.stack)-1]
	if top.kind == frameMethod && top.method != nil {
		lr.asm.Methods = append(lr.asm.Methods, top.method)
	}
}

func (lr *listingReader) top() *frame {
	if len(lr.stack) == 0 {
		return nil
	}
	return lr.stack[len(lr.stack)-1]
}

func (lr *listingReader) currentMethod() *Method {
	for i := len(lr.stack) - 1; i >= 0; i-- {
		if lr.stack[i].kind == frameMethod {
			return lr.stack[i].method
		}
	}
	return nil
}

func (lr *listingReader) typeName() string {
	var names []string
	for _, f := range lr.stack {
		if f.kind == frameClass {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "/")
}

func (lr *listingReader) typeAttributes() [][]string {
	var attrs [][]string
	for _, f := range lr.stack {
		if f.kind == frameClass {
			attrs = append(attrs, f.attrs)
		}
	}
	return attrs
}

func (lr *listingReader) custom(text string) {
	if lr.inParam {
		return
	}
	ref, ok := parseMethodRef(strings.TrimPrefix(text, ".custom"))
	if !ok {
		return
	}
	top := lr.top()
	if top == nil {
		return
	}
	switch top.kind {
	case frameMethod:
		top.method.Attributes = append(top.method.Attributes, ref.DeclaringType)
	case frameClass:
		top.attrs = append(top.attrs, ref.DeclaringType)
	}
}

func (lr *listingReader) sequencePoint(text string) {
	m := linePattern.FindStringSubmatch(text)
	if m == nil {
		return
	}
	line, err := strconv.Atoi(m[1])
	if err != nil || line == hiddenLine || line <= 0 {
		lr.pendingPos = Provenance{}
		return
	}
	if m[2] != "" {
		lr.lastFile = m[2]
	}
	lr.pendingPos = Provenance{File: lr.lastFile, Line: line}
}

func (lr *listingReader) instruction(text string) {
	method := lr.currentMethod()
	if method == nil {
		return
	}
	m := instructionPattern.FindStringSubmatch(text)
	if m == nil {
		return
	}
	offset, _ := strconv.ParseInt(m[1], 16, 32)
	in := Instruction{
		Offset: int(offset),
		Opcode: m[2],
		Pos:    lr.pendingPos,
	}
	lr.pendingPos = Provenance{}
	operand := strings.TrimSpace(m[3])

	switch in.Opcode {
	case "ldstr":
		in.Kind = KindLoadString
		if strings.HasPrefix(operand, "bytearray") {
			method.Instructions = append(method.Instructions, in)
			lr.lastLiteral = &method.Instructions[len(method.Instructions)-1]
			lr.byteArray = &strings.Builder{}
			lr.continueByteArray(strings.TrimSpace(strings.TrimPrefix(operand, "bytearray")))
			return
		}
		s, _ := unquote(operand)
		in.String = s
		method.Instructions = append(method.Instructions, in)
		lr.lastLiteral = &method.Instructions[len(method.Instructions)-1]
		lr.lastLiteralOK = true
		return
	case "call", "callvirt", "newobj":
		if ref, ok := parseMethodRef(operand); ok {
			in.Kind = KindCall
			in.Callee = ref
		}
	}
	method.Instructions = append(method.Instructions, in)
}

// continueByteArray collects the hex digits of "bytearray (48 00 65 00 ...)",
// which may span several lines, and decodes them as UTF-16LE on the closing paren.
func (lr *listingReader) continueByteArray(text string) {
	if i := strings.Index(text, "//"); i >= 0 {
		text = text[:i]
	}
	done := false
	if i := strings.Index(text, ")"); i >= 0 {
		text = text[:i]
		done = true
	}
	text = strings.TrimPrefix(strings.TrimSpace(text), "(")
	for _, field := range strings.Fields(text) {
		lr.byteArray.WriteString(field)
	}
	if !done {
		return
	}
	raw, err := hex.DecodeString(lr.byteArray.String())
	lr.byteArray = nil
	if err != nil {
		log.Warn().Err(err).Msg("Undecodable bytearray literal")
		return
	}
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])|uint16(raw[i+1])<<8)
	}
	lr.lastLiteral.String = string(utf16.Decode(units))
	lr.lastLiteralOK = true
}

// className pulls the type name out of a ".class ... Name [extends X]" header line.
func className(text string) string {
	for _, kw := range []string{" extends ", " implements "} {
		if i := strings.Index(text, kw); i >= 0 {
			text = text[:i]
		}
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return cleanName(fields[len(fields)-1])
}

// methodName finds the member name in a (possibly multi-line) ".method" header.
func methodName(header string) string {
	open := strings.Index(header, "(")
	if open < 0 {
		return ""
	}
	head := strings.TrimSpace(header[:open])
	if strings.HasSuffix(head, "'") {
		if start := strings.LastIndex(head[:len(head)-1], "'"); start >= 0 {
			return head[start+1 : len(head)-1]
		}
	}
	if i := strings.LastIndexAny(head, " \t"); i >= 0 {
		head = head[i+1:]
	}
	return cleanName(head)
}

// parseMethodRef extracts Type::Member from a call operand such as
// "string [Lib]Ns.SdvLocalize::L(string)" or
// "instance void class [x]Ns.Dict`2<string,class [x]Ns.Y>::Add(!0, !1)".
func parseMethodRef(operand string) (MethodRef, bool) {
	sep := strings.Index(operand, "::")
	if sep < 0 {
		return MethodRef{}, false
	}

	member := operand[sep+2:]
	if member != "" && member[0] == '\'' {
		if end := strings.Index(member[1:], "'"); end >= 0 {
			member = member[1 : end+1]
		}
	} else if end := strings.IndexAny(member, "(<"); end >= 0 {
		member = member[:end]
	}

	// Walk back from "::" to the start of the type token, skipping spaces
	// nested inside generic arguments or assembly brackets.
	typePart := operand[:sep]
	depth := 0
	start := 0
	for i := len(typePart) - 1; i >= 0; i-- {
		switch typePart[i] {
		case '>', ']':
			depth++
		case '<', '[':
			depth--
		case ' ', '\t':
			if depth == 0 {
				start = i + 1
				i = -1
			}
		}
	}
	typeName := typePart[start:]
	if strings.HasPrefix(typeName, "[") {
		if end := strings.Index(typeName, "]"); end >= 0 {
			typeName = typeName[end+1:]
		}
	}
	typeName = cleanName(typeName)
	if typeName == "" || member == "" {
		return MethodRef{}, false
	}
	return MethodRef{DeclaringType: typeName, Name: strings.Trim(member, "'")}, true
}

// cleanName drops generic argument lists and ildasm quoting.
func cleanName(name string) string {
	var sb strings.Builder
	quoted := false
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c == '\'':
			quoted = !quoted
		case c == '<' && !quoted && i > 0:
			return sb.String()
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// unquote decodes an ildasm quoted string literal.
func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' {
		return "", false
	}
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			return sb.String(), true
		case c == '\\' && i+1 < len(s):
			i++
			switch e := s[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'a':
				sb.WriteByte('\a')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'v':
				sb.WriteByte('\v')
			case '0', '1', '2', '3', '4', '5', '6', '7':
				end := i + 1
				for end < len(s) && end < i+3 && s[end] >= '0' && s[end] <= '7' {
					end++
				}
				n, _ := strconv.ParseUint(s[i:end], 8, 8)
				sb.WriteByte(byte(n))
				i = end - 1
			default:
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), false
}
