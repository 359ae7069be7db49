package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelOff, false},
		{"off", LevelOff, false},
		{"Phase", LevelPhase, false},
		{"detail", LevelDetail, false},
		{" debug ", LevelDebug, false},
		{"verbose", LevelOff, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShouldEmit(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeModule) {
		t.Fatalf("phase level must not emit module events")
	}
	if !LevelDetail.ShouldEmit(ScopeModule) || LevelDetail.ShouldEmit(ScopeFunction) {
		t.Fatalf("detail level must stop at module scope")
	}
	if !LevelDebug.ShouldEmit(ScopeFunction) {
		t.Fatalf("debug level must emit everything")
	}
}

func TestNewOff(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatalf("off level must give a disabled tracer")
	}
}

func TestStreamTextSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)

	outer := Begin(tr, ScopePass, "classify", 0)
	inner := Begin(tr, ScopeModule, "load", outer.ID())
	inner.Count("functions", 3).End("")
	Point(tr, ScopeFunction, "cycle", "@f", outer.ID()) // filtered at detail
	outer.End("done")

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "← load {functions=3}") {
		t.Fatalf("unexpected end line %q", lines[2])
	}
	if !strings.Contains(lines[3], "classify (done)") {
		t.Fatalf("unexpected outer end %q", lines[3])
	}
}

func TestErrorLevelKeepsFailures(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelError, FormatNDJSON)

	ok := Begin(tr, ScopeDriver, "toolchain", 0)
	ok.End("")
	bad := Begin(tr, ScopeDriver, "load", 0)
	bad.Fail(errors.New("boom")).End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the failing span, got %q", buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("invalid ndjson: %v", err)
	}
	if ev["name"] != "load" || ev["kind"] != "end" {
		t.Fatalf("unexpected event %v", ev)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat(json) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}

func TestContextParent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	ctx := WithTracer(context.Background(), tr)
	if FromContext(ctx) != tr || Parent(ctx) != 0 {
		t.Fatalf("fresh context should carry the tracer and no parent")
	}
	stage := Begin(tr, ScopeDriver, "load", Parent(ctx))
	ctx = stage.Enter(ctx)
	if Parent(ctx) != stage.ID() {
		t.Fatalf("Parent = %d, want %d", Parent(ctx), stage.ID())
	}
	// a filtered span keeps spans attached to the stage
	hidden := Begin(tr, ScopeModule, "src/main.rs", Parent(ctx))
	if hidden.ID() != 0 {
		t.Fatalf("module span should be filtered at phase level")
	}
	if got := Parent(hidden.Enter(ctx)); got != stage.ID() {
		t.Fatalf("Parent after filtered span = %d, want %d", got, stage.ID())
	}
	var empty context.Context
	if FromContext(empty) != Nop {
		t.Fatalf("nil context should give Nop")
	}
}
