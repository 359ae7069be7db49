package llvmir

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing module file.
	ErrNotFound = errors.New("module not found")
	// ErrParse reports IR that could not be parsed.
	ErrParse = errors.New("failed to parse module")
	// ErrEncoding reports a name or filename that is not valid UTF-8.
	ErrEncoding = errors.New("invalid text encoding")
	// ErrVersionMismatch reports an LLVM toolchain with the wrong major version.
	ErrVersionMismatch = errors.New("LLVM version mismatch")
	// ErrModuleClosed is the panic value for views used after Module.Close.
	ErrModuleClosed = errors.New("llvmir: module used after Close")
)

// ParseError points at the IR line that failed to parse.
type ParseError struct {
	Name string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Name, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}

// Unwrap makes errors.Is(err, ErrParse) hold.
func (e *ParseError) Unwrap() error { return ErrParse }

// EncodingError names the offending string and where it came from.
type EncodingError struct {
	Name string
	Line int
	What string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s:%d: %s is not valid UTF-8", e.Name, e.Line, e.What)
}

// Unwrap makes errors.Is(err, ErrEncoding) hold.
func (e *EncodingError) Unwrap() error { return ErrEncoding }
