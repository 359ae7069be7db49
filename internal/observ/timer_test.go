package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("load")
	b := tm.Begin("analyze")
	tm.End(b, "3 files")
	tm.End(a, "")
	tm.End(42, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 || rep.Phases[1].Note != "3 files" {
		t.Fatalf("report = %+v", rep)
	}
	s := tm.Summary()
	if !strings.Contains(s, "analyze") || !strings.Contains(s, "// 3 files") || !strings.Contains(s, "total") {
		t.Fatalf("summary = %q", s)
	}
}

func TestTimerEmpty(t *testing.T) {
	if rep := NewTimer().Report(); len(rep.Phases) != 0 || rep.TotalMS != 0 {
		t.Fatalf("empty timer report = %+v", rep)
	}
}
