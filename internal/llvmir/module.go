package llvmir

import (
	"iter"
)

// Module is a parsed LLVM module. Functions, blocks and instructions are
// views into it and must not be used after Close.
type Module struct {
	Name string

	funcs  []*Function
	byName map[string]*Function
	// globals holds non-function symbols (variables, aliases, ifuncs).
	globals map[string]struct{}
	md      *metadataTable
	closed  bool
}

// Functions yields every defined or declared function in module order.
// Each call starts a fresh pass.
func (m *Module) Functions() iter.Seq[*Function] {
	m.mustOpen()
	return func(yield func(*Function) bool) {
		for _, f := range m.funcs {
			if !yield(f) {
				return
			}
		}
	}
}

// Len returns the number of functions in the module.
func (m *Module) Len() int {
	m.mustOpen()
	return len(m.funcs)
}

// Lookup returns the function with the given unquoted name.
func (m *Module) Lookup(name string) (*Function, bool) {
	m.mustOpen()
	f, ok := m.byName[name]
	return f, ok
}

// HasGlobal reports whether name is a non-function global symbol.
func (m *Module) HasGlobal(name string) bool {
	m.mustOpen()
	_, ok := m.globals[name]
	return ok
}

// Close releases the module. Views obtained from it panic afterwards.
func (m *Module) Close() error {
	if m == nil || m.closed {
		return nil
	}
	m.closed = true
	for _, f := range m.funcs {
		f.blocks = nil
	}
	m.funcs = nil
	m.byName = nil
	m.globals = nil
	m.md = nil
	return nil
}

func (m *Module) mustOpen() {
	if m == nil || m.closed {
		panic(ErrModuleClosed)
	}
}

// Function is a borrowed view of a function in a Module. Identity is the
// pointer; names are not assumed unique for ordering.
type Function struct {
	mod    *Module
	name   string
	index  int
	blocks []*BasicBlock
}

// Name returns the mangled symbol name without the leading '@'.
func (f *Function) Name() string {
	f.mod.mustOpen()
	return f.name
}

// Index returns the position of the function in module order.
func (f *Function) Index() int { return f.index }

// IsDeclaration reports whether the function has no body in this module.
func (f *Function) IsDeclaration() bool {
	f.mod.mustOpen()
	return len(f.blocks) == 0
}

// NumBlocks returns the number of basic blocks in the body.
func (f *Function) NumBlocks() int {
	f.mod.mustOpen()
	return len(f.blocks)
}

// Block returns the i-th basic block.
func (f *Function) Block(i int) *BasicBlock {
	f.mod.mustOpen()
	return f.blocks[i]
}

// Blocks yields the basic blocks of the function body.
func (f *Function) Blocks() iter.Seq[*BasicBlock] {
	f.mod.mustOpen()
	return func(yield func(*BasicBlock) bool) {
		for _, b := range f.blocks {
			if !yield(b) {
				return
			}
		}
	}
}

// Instructions yields every instruction of the body, block by block.
func (f *Function) Instructions() iter.Seq[*Instruction] {
	f.mod.mustOpen()
	return func(yield func(*Instruction) bool) {
		for _, b := range f.blocks {
			for _, in := range b.instrs {
				if !yield(in) {
					return
				}
			}
		}
	}
}

func (f *Function) String() string { return "@" + f.name }

// BasicBlock is a labelled straight-line sequence of instructions.
type BasicBlock struct {
	fn     *Function
	label  string
	instrs []*Instruction
}

// Label returns the block label (possibly a numeric slot).
func (b *BasicBlock) Label() string { return b.label }

// Len returns the number of instructions in the block.
func (b *BasicBlock) Len() int { return len(b.instrs) }

// At returns the i-th instruction.
func (b *BasicBlock) At(i int) *Instruction { return b.instrs[i] }

// Instructions yields the block's instructions in order.
func (b *BasicBlock) Instructions() iter.Seq[*Instruction] {
	b.fn.mod.mustOpen()
	return func(yield func(*Instruction) bool) {
		for _, in := range b.instrs {
			if !yield(in) {
				return
			}
		}
	}
}

// InstrKind discriminates the closed set of instruction shapes the analysis
// cares about.
type InstrKind uint8

const (
	// InstrOther is any non-call instruction.
	InstrOther InstrKind = iota
	// InstrCall is call, invoke or callbr.
	InstrCall
)

func (k InstrKind) String() string {
	switch k {
	case InstrCall:
		return "call"
	case InstrOther:
		return "other"
	default:
		return "unknown"
	}
}

// Instruction is a single IR instruction.
type Instruction struct {
	Kind InstrKind
	// Opcode is the textual opcode ("call", "invoke", "store", ...).
	Opcode string
	// Callee is set for InstrCall only.
	Callee Value

	block *BasicBlock
	line  int // line in the IR text, for diagnostics
	dbg   int // metadata slot of !dbg, -1 if absent
}

// Block returns the enclosing basic block.
func (in *Instruction) Block() *BasicBlock { return in.block }

// Function returns the function the instruction belongs to.
func (in *Instruction) Function() *Function { return in.block.fn }

// IRLine returns the 1-based line of the instruction in the IR text.
func (in *Instruction) IRLine() int { return in.line }

// CalledFunction returns the callee when it resolves to a concrete function.
func (in *Instruction) CalledFunction() (*Function, bool) {
	if in.Kind != InstrCall {
		return nil, false
	}
	switch in.Callee.Kind {
	case ValueFunction:
		return in.Callee.Func, in.Callee.Func != nil
	case ValueOther:
		return nil, false
	default:
		return nil, false
	}
}

// DebugLocations resolves the !dbg attachment of the instruction.
func (in *Instruction) DebugLocations() DebugLocations {
	mod := in.block.fn.mod
	mod.mustOpen()
	if in.dbg < 0 {
		return DebugLocations{}
	}
	return mod.md.locations(in.dbg)
}

// ValueKind discriminates callee values.
type ValueKind uint8

const (
	// ValueOther is anything that is not a function of the module: a local
	// register, inline asm, a constant expression or a global variable.
	ValueOther ValueKind = iota
	// ValueFunction is a function defined or declared in the module.
	ValueFunction
)

// Value is the operand of a call.
type Value struct {
	Kind ValueKind
	Func *Function
	// Text is the operand as written ("@foo", "%3", "asm").
	Text string
}
