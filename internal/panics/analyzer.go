package panics

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"panicmap/internal/llvmir"
	"panicmap/internal/trace"
)

// AnnotateMode selects which instructions contribute to line statuses.
type AnnotateMode uint8

const (
	// AnnotateCalls applies call instructions only.
	AnnotateCalls AnnotateMode = iota
	// AnnotateInstructions also marks lines of non-call instructions as
	// present and panic-free.
	AnnotateInstructions
)

func (m AnnotateMode) String() string {
	switch m {
	case AnnotateCalls:
		return "calls"
	case AnnotateInstructions:
		return "instructions"
	default:
		return "unknown"
	}
}

// ParseAnnotateMode accepts "calls" (also "") and "instructions".
func ParseAnnotateMode(s string) (AnnotateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "calls":
		return AnnotateCalls, nil
	case "instructions", "all":
		return AnnotateInstructions, nil
	default:
		return AnnotateCalls, fmt.Errorf("invalid annotate mode %q (expected: calls|instructions)", s)
	}
}

// Stats are counters of one analysis.
type Stats struct {
	Functions   int // classified functions, roots included
	Panicky     int // classified as panicky, roots included
	Roots       int // roots reached
	Calls       int // call instructions visited by classification
	Unresolved  int // calls whose callee is not a module function
	CycleBreaks int // re-entries cut by the in-progress rule
}

// frame is one suspended classification. The cursor points at the next
// instruction to visit.
type frame struct {
	fn     *llvmir.Function
	block  int
	instr  int
	result bool
}

// Analyzer classifies functions of a single module. It is not safe for
// concurrent use; Progress may be read from any goroutine.
type Analyzer struct {
	roots      Roots
	memo       map[*llvmir.Function]bool
	inProgress map[*llvmir.Function]struct{}
	stack      []frame
	stats      Stats
	tracer     trace.Tracer
	parent     uint64
	progress   atomic.Int64
}

// NewAnalyzer returns an analyzer with an empty memo.
func NewAnalyzer(roots Roots, tracer trace.Tracer) *Analyzer {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Analyzer{
		roots:      roots,
		memo:       make(map[*llvmir.Function]bool),
		inProgress: make(map[*llvmir.Function]struct{}),
		tracer:     tracer,
	}
}

// IsPanicky reports whether f can reach a root through direct calls.
//
// The traversal is the usual memoised depth-first search with an explicit
// stack: every call of a body is visited, callees in instruction order.
func (a *Analyzer) IsPanicky(f *llvmir.Function) bool {
	if v, done := a.enter(f); done {
		return v
	}
	for len(a.stack) > 0 {
		top := &a.stack[len(a.stack)-1]
		callee, more := a.nextCall(top)
		if !more {
			a.leave()
			continue
		}
		if callee == nil {
			continue
		}
		if v, done := a.enter(callee); done {
			top.result = top.result || v
		}
	}
	return a.memo[f]
}

// enter decides f without traversal when possible; otherwise it pushes a
// frame and reports done == false.
func (a *Analyzer) enter(f *llvmir.Function) (result, done bool) {
	if v, ok := a.memo[f]; ok {
		return v, true
	}
	if a.roots.IsRoot(f) {
		a.record(f, true)
		a.stats.Roots++
		return true, true
	}
	if _, busy := a.inProgress[f]; busy {
		a.stats.CycleBreaks++
		trace.Point(a.tracer, trace.ScopeFunction, "cycle", f.Name(), a.parent)
		return false, true
	}
	a.inProgress[f] = struct{}{}
	a.stack = append(a.stack, frame{fn: f})
	return false, false
}

// leave pops the finished frame and folds its result into the caller.
func (a *Analyzer) leave() {
	n := len(a.stack) - 1
	done := a.stack[n]
	a.stack = a.stack[:n]
	delete(a.inProgress, done.fn)
	a.record(done.fn, done.result)
	if n > 0 {
		caller := &a.stack[n-1]
		caller.result = caller.result || done.result
	}
}

func (a *Analyzer) record(f *llvmir.Function, v bool) {
	a.memo[f] = v
	a.stats.Functions++
	if v {
		a.stats.Panicky++
	}
	a.progress.Add(1)
}

// nextCall advances the frame to its next call instruction. callee is nil
// for unresolved calls; more is false at the end of the body.
func (a *Analyzer) nextCall(fr *frame) (callee *llvmir.Function, more bool) {
	for fr.block < fr.fn.NumBlocks() {
		b := fr.fn.Block(fr.block)
		if fr.instr >= b.Len() {
			fr.block++
			fr.instr = 0
			continue
		}
		in := b.At(fr.instr)
		fr.instr++
		if in.Kind != llvmir.InstrCall {
			continue
		}
		a.stats.Calls++
		if f, ok := in.CalledFunction(); ok {
			return f, true
		}
		a.stats.Unresolved++
		return nil, true
	}
	return nil, false
}

// CallIsPanicky reports whether in is a call to a panicky function.
func (a *Analyzer) CallIsPanicky(in *llvmir.Instruction) bool {
	switch in.Kind {
	case llvmir.InstrCall:
		f, ok := in.CalledFunction()
		return ok && a.IsPanicky(f)
	case llvmir.InstrOther:
		return false
	default:
		return false
	}
}

// Stats returns the counters so far.
func (a *Analyzer) Stats() Stats { return a.stats }

// Progress returns the number of classified functions.
func (a *Analyzer) Progress() int64 { return a.progress.Load() }

// Panicky returns the names of non-root panicky functions in module order.
func (a *Analyzer) Panicky(mod *llvmir.Module) []string {
	var out []string
	for f := range mod.Functions() {
		if a.memo[f] && !a.roots.IsRoot(f) {
			out = append(out, f.Name())
		}
	}
	return out
}

// Options configure Analyze.
type Options struct {
	Roots    Roots
	Annotate AnnotateMode
	Tracer   trace.Tracer
	// Analyzer, if set, is used instead of a fresh one (for Progress).
	Analyzer *Analyzer
}

// Result is the outcome of Analyze.
type Result struct {
	Files   *LineTable
	Stats   Stats
	Panicky []string
}

// checkEvery bounds how often Analyze polls the context.
const checkEvery = 256

// Analyze classifies every function in module order, then annotates every
// call site of every body with the classification of its callee.
func Analyze(ctx context.Context, mod *llvmir.Module, opts Options) (*Result, error) {
	a := opts.Analyzer
	if a == nil {
		a = NewAnalyzer(opts.Roots, opts.Tracer)
	}
	parent := trace.Parent(ctx)

	classify := trace.Begin(a.tracer, trace.ScopePass, "classify", parent)
	a.parent = classify.ID()
	n := 0
	for f := range mod.Functions() {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				classify.Fail(err).End("")
				return nil, err
			}
		}
		n++
		a.IsPanicky(f)
	}
	classify.Count("functions", a.stats.Functions).Count("panicky", a.stats.Panicky).End("")

	annotate := trace.Begin(a.tracer, trace.ScopePass, "annotate", parent)
	table := NewLineTable()
	n = 0
	for f := range mod.Functions() {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				annotate.Fail(err).End("")
				return nil, err
			}
		}
		n++
		for in := range f.Instructions() {
			switch in.Kind {
			case llvmir.InstrCall:
				panicky := a.CallIsPanicky(in)
				in.DebugLocations().Each(func(loc llvmir.SourceLocation) {
					table.Apply(loc, panicky)
				})
			case llvmir.InstrOther:
				if opts.Annotate == AnnotateInstructions {
					in.DebugLocations().Each(func(loc llvmir.SourceLocation) {
						table.Apply(loc, false)
					})
				}
			}
		}
	}
	annotate.Count("files", table.Len()).End("")

	return &Result{Files: table, Stats: a.stats, Panicky: a.Panicky(mod)}, nil
}
