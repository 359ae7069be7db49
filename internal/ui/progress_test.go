package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"panicmap/internal/pipeline"
)

func TestApplyEvent(t *testing.T) {
	m := NewProgressModel("app", nil).(*progressModel)

	m.applyEvent(pipeline.Event{Stage: pipeline.StageToolchain, Status: pipeline.StatusDone, Detail: "LLVM 17.0.6", Elapsed: 3 * time.Millisecond})
	m.applyEvent(pipeline.Event{Stage: pipeline.StageBuild, Status: pipeline.StatusWorking})
	if got := m.fraction(); got != 0.3 {
		t.Fatalf("fraction = %v, want 0.3", got)
	}

	view := m.View()
	if !strings.Contains(view, "LLVM 17.0.6") || !strings.Contains(view, "building") {
		t.Fatalf("view missing stage state:\n%s", view)
	}

	m.applyEvent(pipeline.Event{Stage: pipeline.StageBuild, Status: pipeline.StatusError, Err: errors.New("artifact not found")})
	m.done = true
	if view := m.View(); !strings.Contains(view, "failed: app") || !strings.Contains(view, "artifact not found") {
		t.Fatalf("failure not shown:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
