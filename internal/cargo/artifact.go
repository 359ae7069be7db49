// Package cargo locates and builds the LLVM bitcode of a Rust package.
package cargo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrArtifactNotFound is returned when no bitcode exists for the package.
var ErrArtifactNotFound = errors.New("artifact not found")

// ProfileDir maps a cargo profile to its directory under target/.
func ProfileDir(profile string) string {
	switch profile {
	case "", "release":
		return "release"
	case "dev", "test":
		return "debug"
	case "bench":
		return "release"
	default:
		return profile
	}
}

// CrateName is the package name as rustc spells it in file names.
func CrateName(pkg string) string {
	return strings.ReplaceAll(pkg, "-", "_")
}

// DepsDir is target/<target>/<profile-dir>/deps. An empty target means a
// host build without --target.
func DepsDir(root, target, profile string) string {
	parts := []string{root, "target"}
	if target != "" {
		parts = append(parts, target)
	}
	parts = append(parts, ProfileDir(profile), "deps")
	return filepath.Join(parts...)
}

// ArtifactPath is the expected bitcode of the package.
func ArtifactPath(target, profile, pkg string) string {
	return filepath.Join(DepsDir("", target, profile), pkg+".bc")
}

// Locate finds the bitcode under root. It tries <pkg>.bc, then <crate>.bc,
// then the newest <crate>-<hash>.bc.
func Locate(root, target, profile, pkg string) (string, error) {
	if pkg == "" {
		return "", fmt.Errorf("%w: no package name given", ErrArtifactNotFound)
	}
	deps := DepsDir(root, target, profile)
	expected := filepath.Join(deps, pkg+".bc")
	candidates := []string{expected}
	if crate := CrateName(pkg); crate != pkg {
		candidates = append(candidates, filepath.Join(deps, crate+".bc"))
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			return c, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", c, err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(deps, CrateName(pkg)+"-*.bc"))
	if err != nil {
		return "", err
	}
	var (
		newest string
		stamp  int64
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if t := info.ModTime().UnixNano(); newest == "" || t > stamp {
			newest, stamp = m, t
		}
	}
	if newest != "" {
		return newest, nil
	}
	return "", fmt.Errorf("%w: %s does not exist", ErrArtifactNotFound, expected)
}
