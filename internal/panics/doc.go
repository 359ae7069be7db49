// Package panics classifies the functions of an LLVM module by whether they
// can reach a panic entry point, and projects that classification onto the
// source lines recorded in debug info.
//
// Classification is memoised for the lifetime of an Analyzer. Recursion is
// cut conservatively: a function already on the traversal stack counts as
// non-panicking for the caller that re-entered it. Inside a cycle that never
// escapes to a root the outcome therefore depends on the order functions are
// visited in; Analyze always visits them in module order.
package panics
