package llvmir

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Version is an LLVM release number.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion accepts "17.0.6", "17.0.6git", "17.0.6-rust-1.74.0-nightly"
// and "LLVM version 17.0.6".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "version "); i >= 0 {
		s = s[i+len("version "):]
	}
	if f := strings.Fields(s); len(f) > 0 {
		s = f[0]
	}
	parts := strings.SplitN(s, ".", 3)
	var nums [3]int
	for i, part := range parts {
		end := 0
		for end < len(part) && '0' <= part[end] && part[end] <= '9' {
			end++
		}
		if end == 0 {
			return Version{}, fmt.Errorf("malformed version %q", s)
		}
		n, err := strconv.Atoi(part[:end])
		if err != nil {
			return Version{}, fmt.Errorf("malformed version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// CheckVersion requires an exact major version match.
func CheckVersion(v Version, requiredMajor int) error {
	if v.Major != requiredMajor {
		return fmt.Errorf("%w: LLVM %d is required, found %s", ErrVersionMismatch, requiredMajor, v)
	}
	return nil
}

// Toolchain is the host LLVM installation.
type Toolchain interface {
	// Version reports the LLVM release.
	Version(ctx context.Context) (Version, error)
	// Disassemble streams the textual form of a bitcode file. Closing the
	// reader waits for the tool and reports its failure.
	Disassemble(ctx context.Context, path string) (io.ReadCloser, error)
}

// Tools runs llvm-config and llvm-dis from PATH or explicit locations.
type Tools struct {
	Config string
	Dis    string
}

func (t Tools) configPath() string {
	if t.Config == "" {
		return "llvm-config"
	}
	return t.Config
}

func (t Tools) disPath() string {
	if t.Dis == "" {
		return "llvm-dis"
	}
	return t.Dis
}

// Version runs `llvm-config --version`.
func (t Tools) Version(ctx context.Context) (Version, error) {
	name := t.configPath()
	if _, err := exec.LookPath(name); err != nil {
		return Version{}, fmt.Errorf("%w: %s not found", ErrVersionMismatch, name)
	}
	out, err := exec.CommandContext(ctx, name, "--version").Output()
	if err != nil {
		return Version{}, fmt.Errorf("%s --version: %w", name, err)
	}
	return ParseVersion(string(out))
}

// Disassemble runs `llvm-dis <path> -o -`.
func (t Tools) Disassemble(ctx context.Context, path string) (io.ReadCloser, error) {
	name := t.disPath()
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s not found; install LLVM tools or set [toolchain].llvm_dis", name)
	}
	// #nosec G204 -- tool and path come from local configuration
	cmd := exec.CommandContext(ctx, name, path, "-o", "-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	dp := &disProcess{cmd: cmd, stdout: stdout, name: name}
	cmd.Stderr = &dp.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return dp, nil
}

type disProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	name   string
}

func (d *disProcess) Read(p []byte) (int, error) { return d.stdout.Read(p) }

func (d *disProcess) Close() error {
	// drain so the tool is not blocked on a full pipe
	_, _ = io.Copy(io.Discard, d.stdout)
	if err := d.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(d.stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s: %s", ErrParse, d.name, msg)
	}
	return nil
}
