package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Template renders a commented panicmap.toml for a package.
func Template(pkg, target string) string {
	var sb strings.Builder
	sb.WriteString("[package]\n")
	fmt.Fprintf(&sb, "name = %q\n", pkg)
	fmt.Fprintf(&sb, "target = %q\n", target)
	fmt.Fprintf(&sb, "profile = %q\n\n", DefaultProfile)

	sb.WriteString("[toolchain]\n")
	fmt.Fprintf(&sb, "rust = %q\n", DefaultNightly)
	fmt.Fprintf(&sb, "build_std = %q\n", DefaultBuildStd)
	fmt.Fprintf(&sb, "llvm_major = %d\n", DefaultLLVMMajor)
	sb.WriteString("# llvm_config = \"/usr/lib/llvm-17/bin/llvm-config\"\n")
	sb.WriteString("# llvm_dis = \"/usr/lib/llvm-17/bin/llvm-dis\"\n\n")

	sb.WriteString("[analysis]\n")
	sb.WriteString("# prefixes of mangled panic entry points; default is core::panicking\n")
	sb.WriteString("# roots = [\"_ZN4core9panicking\"]\n")
	sb.WriteString("annotate = \"calls\"\n\n")

	sb.WriteString("[report]\n")
	fmt.Fprintf(&sb, "output = %q\n", DefaultOutput)
	sb.WriteString("formats = [\"html\"]\n")
	sb.WriteString("# include = [\"src/*\"]\n")
	sb.WriteString("# exclude = [\"/rustc/*\"]\n")
	sb.WriteString("# snapshot = \"target/panicatorul/report.msgpack\"\n")
	return sb.String()
}

// WriteTemplate creates dir/panicmap.toml. Existing files are kept unless
// force is set.
func WriteTemplate(dir, pkg, target string, force bool) (string, error) {
	p := filepath.Join(dir, FileName)
	if !force {
		if _, err := os.Stat(p); err == nil {
			return p, fmt.Errorf("%s already exists", p)
		}
	}
	if err := os.WriteFile(p, []byte(Template(pkg, target)), 0o600); err != nil {
		return p, fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}
