package panics

import "testing"

func TestSummarizeBoundary(t *testing.T) {
	rep := &FileReport{Filename: "a.rs", Lines: make([]LineStatus, 10)}
	rep.Lines[3] = Panic
	rep.Lines[7] = Panic
	rep.Lines[8] = NoPanic

	s := Summarize(rep)
	if s.TotalLines != 10 || s.PanicLines != 2 || s.CleanLines != 8 {
		t.Fatalf("summary = %+v", s)
	}
	if s.PercentString() != "80.00%" {
		t.Fatalf("percent = %s, want 80.00%%", s.PercentString())
	}
	if s.Band() != BandGood {
		t.Fatalf("band = %v, want good", s.Band())
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		pct  float64
		want Band
	}{
		{100, BandGood},
		{80, BandGood},
		{79.99, BandWarning},
		{50, BandWarning},
		{49.99, BandBad},
		{0, BandBad},
	}
	for _, tt := range tests {
		if got := BandFor(tt.pct); got != tt.want {
			t.Fatalf("BandFor(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(&FileReport{Filename: "x.rs"})
	if s.CleanPercent != 100 || s.TotalLines != 0 {
		t.Fatalf("empty report = %+v", s)
	}
}

func TestTotal(t *testing.T) {
	got := Total([]Summary{
		{TotalLines: 10, PanicLines: 5},
		{TotalLines: 30, PanicLines: 3},
	})
	if got.TotalLines != 40 || got.PanicLines != 8 || got.CleanPercent != 80 {
		t.Fatalf("total = %+v", got)
	}
}
