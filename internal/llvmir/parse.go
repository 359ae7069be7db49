package llvmir

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single IR line; constant initialisers can be huge.
const maxLineSize = 512 << 20

type pendingCall struct {
	in     *Instruction
	name   string
	global bool
}

type parser struct {
	name    string
	mod     *Module
	lineNo  int
	fn      *Function
	block   *BasicBlock
	last    *Instruction
	// depth of unclosed '[' in the current instruction (switch spans lines)
	depth   int
	pending []pendingCall
}

// Parse reads a module from textual LLVM IR.
func Parse(name string, src []byte) (*Module, error) {
	return ParseReader(name, bytes.NewReader(src))
}

// ParseReader reads textual LLVM IR from r. Only the parts the reachability
// analysis needs are kept: function symbols, block structure, call operands
// and !dbg locations.
func ParseReader(name string, r io.Reader) (*Module, error) {
	p := &parser{
		name: name,
		mod: &Module{
			Name:    name,
			byName:  make(map[string]*Function),
			globals: make(map[string]struct{}),
			md:      newMetadataTable(),
		},
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for sc.Scan() {
		p.lineNo++
		if err := p.line(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, p.errorf("read: %v", err)
	}
	if p.fn != nil {
		return nil, p.errorf("unterminated body of @%s", p.fn.name)
	}
	p.resolve()
	return p.mod, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Name: p.name, Line: p.lineNo, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) line(raw string) error {
	text := strings.TrimSpace(stripComment(raw))
	if text == "" {
		return nil
	}
	if p.fn != nil {
		return p.bodyLine(text)
	}
	switch {
	case strings.HasPrefix(text, "define "):
		return p.function(text, true)
	case strings.HasPrefix(text, "declare "):
		return p.function(text, false)
	case text[0] == '@':
		return p.global(text)
	case text[0] == '!':
		return p.metadata(text)
	default:
		// target, source_filename, attributes, type definitions, comdats
		return nil
	}
}

func (p *parser) function(text string, hasBody bool) error {
	name, _, ok, err := scanCallee(text)
	if err != nil {
		return p.errorf("%s header: %v", keyword(text), err)
	}
	if !ok {
		return p.errorf("%s without a function name", keyword(text))
	}
	if !validText(name) {
		return &EncodingError{Name: p.name, Line: p.lineNo, What: "function name"}
	}
	f, exists := p.mod.byName[name]
	switch {
	case !exists:
		f = &Function{mod: p.mod, name: name, index: len(p.mod.funcs)}
		p.mod.funcs = append(p.mod.funcs, f)
		p.mod.byName[name] = f
	case len(f.blocks) > 0 || !hasBody:
		return p.errorf("redefinition of @%s", name)
	}
	if hasBody {
		if !strings.HasSuffix(text, "{") {
			return p.errorf("expected '{' after define of @%s", name)
		}
		p.fn = f
		p.block = nil
	}
	return nil
}

func keyword(text string) string {
	if i := strings.IndexByte(text, ' '); i > 0 {
		return text[:i]
	}
	return text
}

func (p *parser) global(text string) error {
	c := newCursor(text)
	c.bump()
	name, err := c.ident()
	if err != nil {
		return p.errorf("global: %v", err)
	}
	c.skipSpace()
	if !c.eat('=') {
		return p.errorf("expected '=' after @%s", name)
	}
	p.mod.globals[name] = struct{}{}
	return nil
}

func (p *parser) bodyLine(text string) error {
	if text == "}" {
		if p.fn != nil && len(p.fn.blocks) == 0 {
			return p.errorf("function @%s has an empty body", p.fn.name)
		}
		p.fn = nil
		p.block = nil
		p.last = nil
		p.depth = 0
		return nil
	}
	// labels first: rustc names landing-pad blocks "cleanup:"
	if label, ok := blockLabel(text); ok && p.depth == 0 {
		p.startBlock(label)
		p.last = nil
		return nil
	}
	if p.last != nil && p.continues(text) {
		return p.continuation(text)
	}
	if strings.HasPrefix(text, "#dbg_") {
		// debug records (LLVM 19+) are not instructions
		return nil
	}
	if p.block == nil {
		// the entry block may be unlabelled
		p.startBlock("")
	}
	in, err := p.instruction(text)
	if err != nil {
		return err
	}
	p.block.instrs = append(p.block.instrs, in)
	p.last = in
	p.depth = bracketDepth(text)
	return nil
}

// continues reports whether text carries on the previous instruction:
// invoke and callbr destinations, landingpad clauses, switch tables.
func (p *parser) continues(text string) bool {
	if p.depth > 0 {
		return true
	}
	c := newCursor(text)
	switch c.word() {
	case "to", "cleanup", "catch", "filter":
		return true
	default:
		return false
	}
}

func (p *parser) continuation(text string) error {
	p.depth += bracketDepth(text)
	if p.depth < 0 {
		p.depth = 0
	}
	if i := indexOutsideStrings(text, "!dbg !"); i >= 0 {
		slot, err := metadataSlot(text[i+len("!dbg !"):])
		if err != nil {
			return p.errorf("!dbg attachment: %v", err)
		}
		p.last.dbg = slot
	}
	return nil
}

func bracketDepth(s string) int {
	depth := 0
	inStr := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inStr = !inStr
		case '[':
			if !inStr {
				depth++
			}
		case ']':
			if !inStr {
				depth--
			}
		}
	}
	return depth
}

func (p *parser) startBlock(label string) {
	b := &BasicBlock{fn: p.fn, label: label}
	p.fn.blocks = append(p.fn.blocks, b)
	p.block = b
}

// blockLabel recognises "name:" and "\"quoted name\":" lines.
func blockLabel(text string) (string, bool) {
	if !strings.HasSuffix(text, ":") {
		return "", false
	}
	label := text[:len(text)-1]
	if strings.HasPrefix(label, "\"") {
		if len(label) < 2 || !strings.HasSuffix(label, "\"") {
			return "", false
		}
		return unescape(label[1 : len(label)-1]), true
	}
	for i := 0; i < len(label); i++ {
		if !isIdentByte(label[i]) {
			return "", false
		}
	}
	return label, label != ""
}

func (p *parser) instruction(text string) (*Instruction, error) {
	in := &Instruction{block: p.block, line: p.lineNo, dbg: -1}
	c := newCursor(text)
	if c.peek() == '%' {
		c.bump()
		if _, err := c.ident(); err != nil {
			return nil, p.errorf("instruction result: %v", err)
		}
		c.skipSpace()
		if !c.eat('=') {
			return nil, p.errorf("expected '=' after instruction result")
		}
		c.skipSpace()
	}
	op := c.word()
	switch op {
	case "tail", "musttail", "notail":
		c.skipSpace()
		op = c.word()
	}
	if op == "" {
		return nil, p.errorf("expected opcode")
	}
	in.Opcode = op

	switch op {
	case "call", "invoke", "callbr":
		in.Kind = InstrCall
		name, global, ok, err := scanCallee(c.rest())
		if err != nil {
			return nil, p.errorf("%s operand: %v", op, err)
		}
		switch {
		case !ok:
			in.Callee = Value{Kind: ValueOther, Text: "<indirect>"}
		case global:
			in.Callee = Value{Kind: ValueOther, Text: "@" + name}
			p.pending = append(p.pending, pendingCall{in: in, name: name, global: true})
		default:
			in.Callee = Value{Kind: ValueOther, Text: "%" + name}
		}
	default:
		in.Kind = InstrOther
	}

	if i := indexOutsideStrings(text, "!dbg !"); i >= 0 {
		slot, err := metadataSlot(text[i+len("!dbg !"):])
		if err != nil {
			return nil, p.errorf("!dbg attachment: %v", err)
		}
		in.dbg = slot
	}
	return in, nil
}

// scanCallee finds the first @ or % identifier directly followed by an
// argument list. ok is false for callees that are not named values: inline
// asm and constant expressions.
func scanCallee(s string) (name string, global bool, ok bool, err error) {
	c := newCursor(s)
	for !c.eof() {
		b := c.peek()
		switch {
		case b == '@' || b == '%':
			c.bump()
			id, idErr := c.ident()
			if idErr != nil {
				return "", false, false, idErr
			}
			if c.peek() == '(' {
				return id, b == '@', true, nil
			}
		case b == '"':
			c.skipQuoted()
			if c.peek() == '(' {
				return "", false, false, nil
			}
		case b == '(' || b == '{' || b == '[' || b == '<':
			c.skipGroup()
			if c.peek() == '(' {
				return "", false, false, nil
			}
		case isWordByte(b):
			w := c.word()
			if w == "asm" {
				return "", false, false, nil
			}
			if c.peek() == '(' {
				// attribute with arguments: align(8), range(i32 0, 4)
				c.skipGroup()
			}
		default:
			c.bump()
		}
	}
	return "", false, false, nil
}

func metadataSlot(s string) (int, error) {
	end := 0
	for end < len(s) && '0' <= s[end] && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1, fmt.Errorf("expected metadata slot number")
	}
	return strconv.Atoi(s[:end])
}

func (p *parser) resolve() {
	for _, pc := range p.pending {
		if !pc.global {
			continue
		}
		if f, ok := p.mod.byName[pc.name]; ok {
			pc.in.Callee = Value{Kind: ValueFunction, Func: f, Text: "@" + pc.name}
		}
	}
	p.pending = nil
}
