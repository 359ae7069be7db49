package llvmir

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleIR = `; ModuleID = 'demo'
source_filename = "demo.c"
target triple = "x86_64-unknown-linux-gnu"

%"core::fmt::Arguments" = type { ptr, i64 }

@vtable = private unnamed_addr constant ptr @helper, align 8
@alias_fn = alias void (), ptr @helper

define internal void @helper() unnamed_addr #0 !dbg !10 {
start:
  call void @_ZN4core9panicking5panic17h1E(ptr @vtable) #3, !dbg !20
  unreachable
}

define void @"quoted\22name"(ptr %f) !dbg !11 {
  %r = tail call { i64, i64 } %f(i64 1), !dbg !21
  call void asm sideeffect "nop", "~{memory}"(), !dbg !21
  %x = call noundef align(8) ptr @helper2(i32 0)
  invoke void @helper()
          to label %ok unwind label %bad, !dbg !22
ok:                                               ; preds = %0
  #dbg_value(ptr %f, !12, !DIExpression(), !21)
  call void @alias_fn()
  ret void

bad:
  %lp = landingpad { ptr, i32 }
          cleanup, !dbg !23
  switch i32 0, label %ok [
    i32 1, label %bad
  ], !dbg !21
  call void (ptr, ...) @printf(ptr @vtable), !dbg !23
  ret void
}

declare void @_ZN4core9panicking5panic17h1E(ptr) #1
declare ptr @helper2(i32)
declare i32 @printf(ptr, ...)

!llvm.dbg.cu = !{!0}
!0 = distinct !DICompileUnit(language: DW_LANG_Rust, file: !1, producer: "clang; version")
!1 = !DIFile(filename: "src/main.rs", directory: "/home/user/app")
!2 = !DIFile(filename: "src/lib.rs", directory: "/home/user/app")
!10 = distinct !DISubprogram(name: "helper", scope: !1, file: !1, line: 3, unit: !0)
!11 = distinct !DISubprogram(name: "quoted", scope: !1, file: !2, line: 8, unit: !0)
!12 = !DILocalVariable(name: "f", scope: !11, file: !2, line: 8)
!13 = distinct !DILexicalBlock(scope: !11, file: !1, line: 9, column: 5)
!20 = !DILocation(line: 4, column: 5, scope: !10)
!21 = !DILocation(line: 9, column: 7, scope: !11)
!22 = !DILocation(line: 10, column: 1, scope: !13, inlinedAt: !21)
!23 = !DILocation(line: 0, scope: !30)
`

func mustParse(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := Parse("test.ll", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	t.Cleanup(func() { _ = mod.Close() })
	return mod
}

func calls(f *Function) []*Instruction {
	var out []*Instruction
	for in := range f.Instructions() {
		if in.Kind == InstrCall {
			out = append(out, in)
		}
	}
	return out
}

func TestParseFunctions(t *testing.T) {
	mod := mustParse(t, sampleIR)

	var names []string
	for f := range mod.Functions() {
		names = append(names, f.Name())
	}
	want := []string{"helper", "quoted\"name", "_ZN4core9panicking5panic17h1E", "helper2", "printf"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("functions = %v, want %v", names, want)
	}

	helper, ok := mod.Lookup("helper")
	if !ok || helper.IsDeclaration() {
		t.Fatalf("helper should be defined")
	}
	panicFn, _ := mod.Lookup("_ZN4core9panicking5panic17h1E")
	if !panicFn.IsDeclaration() {
		t.Fatalf("panic root should be a declaration")
	}
	if !mod.HasGlobal("vtable") || !mod.HasGlobal("alias_fn") {
		t.Fatalf("globals not recorded")
	}
}

func TestParseCallees(t *testing.T) {
	mod := mustParse(t, sampleIR)
	quoted, ok := mod.Lookup("quoted\"name")
	if !ok {
		t.Fatalf("quoted function missing")
	}

	var blocks []string
	for b := range quoted.Blocks() {
		blocks = append(blocks, b.Label())
	}
	if strings.Join(blocks, ",") != ",ok,bad" {
		t.Fatalf("blocks = %q", blocks)
	}

	cs := calls(quoted)
	if len(cs) != 6 {
		t.Fatalf("got %d calls, want 6", len(cs))
	}
	cases := []struct {
		opcode string
		callee string
		isFunc bool
	}{
		{"call", "%f", false},
		{"call", "<indirect>", false},
		{"call", "@helper2", true},
		{"invoke", "@helper", true},
		{"call", "@alias_fn", false},
		{"call", "@printf", true},
	}
	for i, tc := range cases {
		in := cs[i]
		if in.Opcode != tc.opcode {
			t.Errorf("call %d opcode = %q, want %q", i, in.Opcode, tc.opcode)
		}
		if in.Callee.Text != tc.callee {
			t.Errorf("call %d callee = %q, want %q", i, in.Callee.Text, tc.callee)
		}
		_, isFunc := in.CalledFunction()
		if isFunc != tc.isFunc {
			t.Errorf("call %d resolves to function = %v, want %v", i, isFunc, tc.isFunc)
		}
	}
}

func TestDebugLocations(t *testing.T) {
	mod := mustParse(t, sampleIR)

	helper, _ := mod.Lookup("helper")
	loc := calls(helper)[0].DebugLocations()
	if loc.Direct == nil || loc.Direct.Filename != "src/main.rs" || loc.Direct.Line != 4 {
		t.Fatalf("direct = %+v", loc.Direct)
	}
	if loc.Direct.Directory != "/home/user/app" {
		t.Fatalf("directory = %q", loc.Direct.Directory)
	}
	if loc.InlinedAt != nil {
		t.Fatalf("unexpected inlined-at %+v", loc.InlinedAt)
	}

	quoted, _ := mod.Lookup("quoted\"name")
	cs := calls(quoted)

	inv := cs[3].DebugLocations()
	if inv.Direct == nil || inv.Direct.Filename != "src/main.rs" || inv.Direct.Line != 10 {
		t.Fatalf("lexical block location = %+v", inv.Direct)
	}
	if inv.InlinedAt == nil || inv.InlinedAt.Filename != "src/lib.rs" || inv.InlinedAt.Line != 9 {
		t.Fatalf("inlined-at = %+v", inv.InlinedAt)
	}
	if inv.InlinedAt.Origin != OriginInlinedAt || inv.Direct.Origin != OriginDirect {
		t.Fatalf("origins = %v, %v", inv.Direct.Origin, inv.InlinedAt.Origin)
	}

	var n int
	inv.Each(func(SourceLocation) { n++ })
	if n != 2 {
		t.Fatalf("Each visited %d locations, want 2", n)
	}

	if got := cs[2].DebugLocations(); got.Direct != nil {
		t.Fatalf("call without !dbg has location %+v", got.Direct)
	}
	// line 0 in an unknown scope carries no location at all
	if got := cs[5].DebugLocations(); got.Direct != nil {
		t.Fatalf("empty location not dropped: %+v", got.Direct)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"unterminated", "define void @f() {\n  ret void\n", ErrParse},
		{"redefinition", "declare void @f()\ndeclare void @f()\n", ErrParse},
		{"no brace", "define void @f()\n", ErrParse},
		{"bad name", "declare void @\"\\FF\\FE\"()\n", ErrEncoding},
		{"bad filename", "!1 = !DIFile(filename: \"a\\FF.rs\", directory: \"/\")\n", ErrEncoding},
	}
	for _, tc := range cases {
		_, err := Parse(tc.name, []byte(tc.src))
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestCleanupBlockLabel(t *testing.T) {
	src := `define void @f() personality ptr @rust_eh_personality {
start:
  invoke void @may_unwind()
          to label %bb1 unwind label %cleanup
bb1:
  ret void

cleanup:                                          ; preds = %start
  %lp = landingpad { ptr, i32 }
          cleanup
  call void @_ZN4core9panicking19panic_cannot_unwind17h0E()
  unreachable
}
declare void @may_unwind()
declare void @_ZN4core9panicking19panic_cannot_unwind17h0E()
declare i32 @rust_eh_personality(...)
`
	mod := mustParse(t, src)
	f, ok := mod.Lookup("f")
	if !ok {
		t.Fatalf("f not found")
	}
	var labels []string
	for b := range f.Blocks() {
		labels = append(labels, b.Label())
	}
	if strings.Join(labels, ",") != "start,bb1,cleanup" {
		t.Fatalf("blocks = %v, want [start bb1 cleanup]", labels)
	}
	if n := f.Block(1).Len(); n != 1 {
		t.Fatalf("bb1 has %d instructions, want 1", n)
	}
	cleanup := f.Block(2)
	if cleanup.Len() != 3 {
		t.Fatalf("cleanup has %d instructions, want 3", cleanup.Len())
	}
	if op := cleanup.At(0).Opcode; op != "landingpad" {
		t.Fatalf("cleanup starts with %q, want landingpad", op)
	}
	callee, ok := cleanup.At(1).CalledFunction()
	if !ok || callee.Name() != "_ZN4core9panicking19panic_cannot_unwind17h0E" {
		t.Fatalf("cleanup call not resolved: %v %v", callee, ok)
	}
}

func TestDefineAfterDeclare(t *testing.T) {
	mod := mustParse(t, "declare void @g()\ndefine void @f() {\n  call void @g()\n  ret void\n}\ndefine void @g() {\n  ret void\n}\n")
	if mod.Len() != 2 {
		t.Fatalf("Len = %d, want 2", mod.Len())
	}
	g, _ := mod.Lookup("g")
	if g.IsDeclaration() {
		t.Fatalf("g should have a body after its define")
	}
}

func TestModuleClose(t *testing.T) {
	mod, err := Parse("m", []byte("declare void @f()\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, _ := mod.Lookup("f")
	if err := mod.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	defer func() {
		if r := recover(); r != ErrModuleClosed {
			t.Fatalf("recover = %v, want ErrModuleClosed", r)
		}
	}()
	_ = f.Name()
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in   string
		want Version
	}{
		{"17.0.6\n", Version{17, 0, 6}},
		{"17.0.6git", Version{17, 0, 6}},
		{"17.0.2-rust-1.74.0-nightly", Version{17, 0, 2}},
		{"LLVM version 16.0.0", Version{16, 0, 0}},
		{"18", Version{18, 0, 0}},
	}
	for _, tc := range cases {
		got, err := ParseVersion(tc.in)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseVersion(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseVersion("garbage"); err == nil {
		t.Fatalf("expected error for garbage")
	}
	if err := CheckVersion(Version{16, 0, 0}, 17); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("CheckVersion = %v, want ErrVersionMismatch", err)
	}
	if err := CheckVersion(Version{17, 0, 6}, 17); err != nil {
		t.Fatalf("CheckVersion: %v", err)
	}
}

type fakeToolchain struct {
	text string
	err  error
}

func (f fakeToolchain) Version(context.Context) (Version, error) { return Version{17, 0, 6}, nil }

func (f fakeToolchain) Disassemble(context.Context, string) (io.ReadCloser, error) {
	return fakeStream{Reader: strings.NewReader(f.text), err: f.err}, nil
}

type fakeStream struct {
	*strings.Reader
	err error
}

func (s fakeStream) Close() error { return s.err }

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	ll := filepath.Join(dir, "a.ll")
	if err := os.WriteFile(ll, []byte("declare void @f()\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	mod, err := Open(context.Background(), ll, nil)
	if err != nil {
		t.Fatalf("Open(.ll): %v", err)
	}
	if mod.Len() != 1 {
		t.Fatalf("Len = %d", mod.Len())
	}
	_ = mod.Close()

	bc := filepath.Join(dir, "a.bc")
	if err := os.WriteFile(bc, append([]byte("BC\xC0\xDE"), 0, 1, 2), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	mod, err = Open(context.Background(), bc, fakeToolchain{text: "declare void @g()\ndeclare void @h()\n"})
	if err != nil {
		t.Fatalf("Open(.bc): %v", err)
	}
	if mod.Len() != 2 {
		t.Fatalf("Len = %d, want 2", mod.Len())
	}
	_ = mod.Close()

	toolErr := errors.Join(ErrParse, errors.New("llvm-dis: error: Invalid bitcode signature"))
	if _, err := Open(context.Background(), bc, fakeToolchain{err: toolErr}); !errors.Is(err, ErrParse) {
		t.Fatalf("Open with failing tool = %v, want ErrParse", err)
	}
	if _, err := Open(context.Background(), bc, nil); !errors.Is(err, ErrParse) {
		t.Fatalf("Open bitcode without toolchain = %v, want ErrParse", err)
	}
	if _, err := Open(context.Background(), filepath.Join(dir, "missing.bc"), nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open missing = %v, want ErrNotFound", err)
	}
}
