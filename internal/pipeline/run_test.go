package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"panicmap/internal/cargo"
	"panicmap/internal/config"
	"panicmap/internal/llvmir"
	"panicmap/internal/observ"
)

const moduleIR = `
define void @_ZN3app4main17h1E() {
  call void @_ZN3app6helper17h2E(), !dbg !20
  call void @_ZN3app5quiet17h3E(), !dbg !21
  ret void
}
define void @_ZN3app6helper17h2E() {
  call void @_ZN4core9panicking5panic17h9E(), !dbg !22
  ret void
}
define void @_ZN3app5quiet17h3E() {
  ret void
}
declare void @_ZN4core9panicking5panic17h9E()

!1 = !DIFile(filename: "src/main.rs", directory: "")
!2 = distinct !DISubprogram(name: "main", scope: !1, file: !1, line: 1)
!20 = !DILocation(line: 2, scope: !2)
!21 = !DILocation(line: 3, scope: !2)
!22 = !DILocation(line: 6, scope: !2)
`

type fakeToolchain struct {
	version string
	dis     int
}

func (f *fakeToolchain) Version(context.Context) (llvmir.Version, error) {
	return llvmir.ParseVersion(f.version)
}

func (f *fakeToolchain) Disassemble(context.Context, string) (io.ReadCloser, error) {
	f.dis++
	return io.NopCloser(strings.NewReader(moduleIR)), nil
}

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) OnEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) statuses(st Stage) []Status {
	var out []Status
	for _, ev := range c.events {
		if ev.Stage == st {
			out = append(out, ev.Status)
		}
	}
	return out
}

func project(t *testing.T) (string, config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Package.Name = "app"
	cfg.Package.Target = "x86_64-unknown-linux-gnu"
	cfg.Report.Formats = []string{"html"}
	return root, cfg
}

func writeBitcode(t *testing.T, root string) string {
	t.Helper()
	p := filepath.Join(cargo.DepsDir(root, "x86_64-unknown-linux-gnu", "release"), "app.bc")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte{'B', 'C', 0xC0, 0xDE, 0, 0}, 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunBitcode(t *testing.T) {
	root, cfg := project(t)
	artifact := writeBitcode(t, root)
	tc := &fakeToolchain{version: "17.0.6"}
	events := &collector{}
	timer := observ.NewTimer()

	res, err := Run(context.Background(), &Request{
		Root:      root,
		Config:    cfg,
		Toolchain: tc,
		Progress:  events,
		Timer:     timer,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Artifact != artifact || tc.dis != 1 {
		t.Fatalf("artifact = %q, disassembled %d times", res.Artifact, tc.dis)
	}
	if res.Analysis.Stats.Panicky != 3 {
		t.Fatalf("panicky = %d, want 3 (root, helper, main)", res.Analysis.Stats.Panicky)
	}
	if res.Written.Files != 1 {
		t.Fatalf("files = %d", res.Written.Files)
	}
	page := filepath.Join(root, "target", "panicatorul", "src_main_rs.html")
	if _, err := os.Stat(page); err != nil {
		t.Fatalf("page not written: %v", err)
	}
	for _, st := range Stages {
		got := events.statuses(st)
		if len(got) != 3 || got[0] != StatusQueued || got[1] != StatusWorking || got[2] != StatusDone {
			t.Fatalf("%s statuses = %v", st, got)
		}
	}
	if len(timer.Report().Phases) != len(Stages) {
		t.Fatalf("timer phases = %d", len(timer.Report().Phases))
	}
}

func TestRunVersionMismatch(t *testing.T) {
	root, cfg := project(t)
	writeBitcode(t, root)
	tc := &fakeToolchain{version: "16.0.0"}

	_, err := Run(context.Background(), &Request{Root: root, Config: cfg, Toolchain: tc})
	if !errors.Is(err, llvmir.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	if tc.dis != 0 {
		t.Fatalf("module must not be loaded after a version mismatch")
	}
}

func TestRunArtifactNotFound(t *testing.T) {
	root, cfg := project(t)
	events := &collector{}
	_, err := Run(context.Background(), &Request{
		Root:      root,
		Config:    cfg,
		Toolchain: &fakeToolchain{version: "17.0.1"},
		Progress:  events,
	})
	if !errors.Is(err, cargo.ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if got := events.statuses(StageBuild); got[len(got)-1] != StatusError {
		t.Fatalf("build statuses = %v", got)
	}
	if got := events.statuses(StageLoad); len(got) != 1 {
		t.Fatalf("load must not start, got %v", got)
	}
}

func TestRunTextualArtifact(t *testing.T) {
	root, cfg := project(t)
	ll := filepath.Join(root, "app.ll")
	if err := os.WriteFile(ll, []byte(moduleIR), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Report.Formats = []string{"text"}
	var out strings.Builder
	events := &collector{}

	res, err := Run(context.Background(), &Request{
		Root:     root,
		Config:   cfg,
		Artifact: ll,
		Progress: events,
		Text:     &out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := events.statuses(StageToolchain); got[len(got)-1] != StatusSkipped {
		t.Fatalf("toolchain statuses = %v", got)
	}
	if !strings.Contains(out.String(), "src/main.rs") {
		t.Fatalf("text report missing file:\n%s", out.String())
	}
	if len(res.Analysis.Panicky) != 2 {
		t.Fatalf("panicky = %v", res.Analysis.Panicky)
	}
}

type recordRunner struct{ argv [][]string }

func (r *recordRunner) Run(_ context.Context, argv []string) error {
	r.argv = append(r.argv, argv)
	return nil
}

func TestRunInit(t *testing.T) {
	root, cfg := project(t)
	writeBitcode(t, root)
	runner := &recordRunner{}
	_, err := Run(context.Background(), &Request{
		Root:      root,
		Config:    cfg,
		Init:      true,
		Runner:    runner,
		Toolchain: &fakeToolchain{version: "17.0.6"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.argv) != 2 || runner.argv[0][1] != "install" {
		t.Fatalf("init commands = %q", runner.argv)
	}
}

func TestRunCanceled(t *testing.T) {
	root, cfg := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, &Request{Root: root, Config: cfg}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
