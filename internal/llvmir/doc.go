// Package llvmir reads LLVM modules for call-graph analysis.
//
// The reader understands the textual IR printed by llvm-dis and keeps a
// narrow view of it: functions (defined and declared), basic blocks,
// instructions classified as calls or other, call operands resolved to
// functions where possible, and the !dbg location of each instruction
// including its inlined-at parent. Bitcode is converted to text by the host
// llvm-dis.
//
//	mod, err := llvmir.Open(ctx, "target/x/release/deps/app.bc", llvmir.Tools{})
//	if err != nil {
//		return err
//	}
//	defer mod.Close()
//	for f := range mod.Functions() {
//		...
//	}
package llvmir
