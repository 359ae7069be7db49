package cargo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// InitOptions describe the bitcode build.
type InitOptions struct {
	Toolchain string // rustup toolchain, e.g. nightly-2023-09-17
	BuildStd  string // crates for -Z build-std
	Package   string
	Profile   string
	Target    string
}

// Commands returns the command lines Init runs, in order.
func Commands(opts InitOptions) [][]string {
	profile := opts.Profile
	if profile == "" {
		profile = "release"
	}
	build := []string{
		"rustup", "run", opts.Toolchain, "cargo", "rustc",
		"-p", opts.Package,
		"--profile", profile,
	}
	if opts.BuildStd != "" {
		build = append(build, "-Z", "build-std="+opts.BuildStd)
	}
	if opts.Target != "" {
		build = append(build, "--target", opts.Target)
	}
	build = append(build, "--", "--emit", "llvm-bc")
	return [][]string{
		{"rustup", "install", opts.Toolchain},
		build,
	}
}

// Runner executes one command line.
type Runner interface {
	Run(ctx context.Context, argv []string) error
}

// Init installs the toolchain and builds the package with bitcode output.
func Init(ctx context.Context, r Runner, opts InitOptions) error {
	if opts.Toolchain == "" {
		return fmt.Errorf("no rust toolchain configured")
	}
	if opts.Package == "" {
		return fmt.Errorf("no package given")
	}
	for _, argv := range Commands(opts) {
		if err := r.Run(ctx, argv); err != nil {
			return err
		}
	}
	return nil
}

// ExecRunner runs commands as child processes, echoing each one first.
type ExecRunner struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	// DryRun only echoes.
	DryRun bool
}

// Run executes argv.
func (r ExecRunner) Run(ctx context.Context, argv []string) error {
	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if _, err := fmt.Fprintf(stdout, "Running command: %s\n", strings.Join(argv, " ")); err != nil {
		return fmt.Errorf("failed to print command: %w", err)
	}
	if r.DryRun {
		return nil
	}
	name := argv[0]
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found; install rustup from https://rustup.rs", name)
	}
	// #nosec G204 -- command line is built from local configuration
	cmd := exec.CommandContext(ctx, name, argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = stdout
	var tail bytes.Buffer
	cmd.Stderr = io.MultiWriter(stderr, &tail)
	if err := cmd.Run(); err != nil {
		msg := lastLine(tail.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %s: %w", name, msg, err)
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
