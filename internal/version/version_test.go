package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColoredPlain(t *testing.T) {
	if got := Colored(false); got != Version {
		t.Errorf("Colored(false) = %q, want %q", got, Version)
	}
}

func TestColoredKeepsSuffix(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3-rc.1+build.123"
	got := Colored(true)
	if !strings.HasSuffix(got, "-rc.1+build.123") {
		t.Errorf("suffix lost: %q", got)
	}
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected escape codes in %q", got)
	}

	Version = "dev"
	if got := Colored(true); got != "dev" {
		t.Errorf("non-semver version = %q", got)
	}
}

func TestLine(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version = "1.2.3"
	GitCommit = "1234567890abcdef1234567890abcdef12345678"
	BuildDate = "2024-01-15T10:30:00Z"
	want := "panicmap 1.2.3 (1234567890ab, 2024-01-15T10:30:00Z)"
	if got := Line(false); got != want {
		t.Errorf("Line = %q, want %q", got, want)
	}

	GitCommit, BuildDate = "", ""
	if got := Line(false); got != "panicmap 1.2.3" {
		t.Errorf("Line = %q", got)
	}
}
