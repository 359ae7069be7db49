package panics

import (
	"strings"

	"panicmap/internal/llvmir"
)

// DefaultRootPrefix is the legacy mangling of the core::panicking module.
const DefaultRootPrefix = "_ZN4core9panicking"

// Roots decides which functions are panic entry points.
type Roots struct {
	prefixes []string
}

// NewRoots builds a classifier. With no prefixes the default is used.
// Empty prefixes are ignored; they would match every function.
func NewRoots(prefixes ...string) Roots {
	var r Roots
	seen := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		r.prefixes = append(r.prefixes, p)
	}
	if len(r.prefixes) == 0 {
		r.prefixes = []string{DefaultRootPrefix}
	}
	return r
}

// Prefixes returns the configured prefixes.
func (r Roots) Prefixes() []string {
	if len(r.prefixes) == 0 {
		return []string{DefaultRootPrefix}
	}
	return append([]string(nil), r.prefixes...)
}

// IsRoot reports whether f is a panic entry point.
func (r Roots) IsRoot(f *llvmir.Function) bool {
	return r.MatchName(f.Name())
}

// MatchName is IsRoot on a bare mangled name.
func (r Roots) MatchName(name string) bool {
	if len(r.prefixes) == 0 {
		return strings.HasPrefix(name, DefaultRootPrefix)
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
