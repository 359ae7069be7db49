// Package config loads panicmap.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project file looked up from the working
// directory upwards.
const FileName = "panicmap.toml"

// Defaults used when neither the file nor flags set a value.
const (
	DefaultProfile   = "release"
	DefaultNightly   = "nightly-2023-09-17"
	DefaultBuildStd  = "std,core,panic_abort"
	DefaultLLVMMajor = 17
	DefaultOutput    = "target/panicatorul"
)

// Formats understood by [report].formats.
var knownFormats = map[string]bool{"html": true, "text": true, "json": true}

type Config struct {
	Package   Package   `toml:"package"`
	Toolchain Toolchain `toml:"toolchain"`
	Analysis  Analysis  `toml:"analysis"`
	Report    Report    `toml:"report"`
}

type Package struct {
	Name    string `toml:"name"`
	Target  string `toml:"target"`
	Profile string `toml:"profile"`
}

type Toolchain struct {
	Rust       string `toml:"rust"`
	BuildStd   string `toml:"build_std"`
	LLVMMajor  int    `toml:"llvm_major"`
	LLVMConfig string `toml:"llvm_config"`
	LLVMDis    string `toml:"llvm_dis"`
}

type Analysis struct {
	// Roots are mangled-name prefixes of panic entry points.
	Roots    []string `toml:"roots"`
	Annotate string   `toml:"annotate"`
}

type Report struct {
	Output   string   `toml:"output"`
	Formats  []string `toml:"formats"`
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
	Snapshot string   `toml:"snapshot"`
}

// Default returns the configuration used without a project file.
func Default() Config {
	return Config{
		Package: Package{Profile: DefaultProfile},
		Toolchain: Toolchain{
			Rust:      DefaultNightly,
			BuildStd:  DefaultBuildStd,
			LLVMMajor: DefaultLLVMMajor,
		},
		Analysis: Analysis{Annotate: "calls"},
		Report: Report{
			Output:  DefaultOutput,
			Formats: []string{"html"},
		},
	}
}

// File is a loaded project file.
type File struct {
	Path   string
	Root   string
	Config Config
}

// Find walks up from startDir looking for panicmap.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest project file. ok is false when there
// is none; the caller then uses Default.
func Discover(startDir string) (*File, bool, error) {
	p, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	f, err := Load(p)
	if err != nil {
		return nil, true, err
	}
	return f, true, nil
}

// Load decodes a project file over the defaults and validates it.
func Load(p string) (*File, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(p, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", p, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", p, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return &File{Path: p, Root: filepath.Dir(p), Config: cfg}, nil
}

// Validate checks values that flags cannot fix later.
func (c *Config) Validate() error {
	if c.Toolchain.LLVMMajor <= 0 {
		return fmt.Errorf("[toolchain].llvm_major must be positive, got %d", c.Toolchain.LLVMMajor)
	}
	switch strings.ToLower(c.Analysis.Annotate) {
	case "", "calls", "instructions":
	default:
		return fmt.Errorf("[analysis].annotate must be calls or instructions, got %q", c.Analysis.Annotate)
	}
	for _, r := range c.Analysis.Roots {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("[analysis].roots must not contain empty prefixes")
		}
	}
	for _, f := range c.Report.Formats {
		if !knownFormats[strings.ToLower(f)] {
			return fmt.Errorf("[report].formats: unknown format %q (expected: html|text|json)", f)
		}
	}
	for _, pats := range [][]string{c.Report.Include, c.Report.Exclude} {
		for _, pat := range pats {
			if _, err := path.Match(pat, ""); err != nil {
				return fmt.Errorf("[report] bad pattern %q: %w", pat, err)
			}
		}
	}
	return nil
}

// HasFormat reports whether the report format is enabled.
func (c *Config) HasFormat(name string) bool {
	for _, f := range c.Report.Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// ResolveOutput makes the output folder absolute relative to root.
func (c *Config) ResolveOutput(root string) string {
	out := c.Report.Output
	if out == "" {
		out = DefaultOutput
	}
	if filepath.IsAbs(out) || root == "" {
		return out
	}
	return filepath.Join(root, filepath.FromSlash(out))
}
