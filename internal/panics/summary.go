package panics

import "strconv"

// Summary aggregates the lines of one file.
type Summary struct {
	CleanPercent float64
	CleanLines   int
	TotalLines   int
	PanicLines   int
}

// Summarize counts a report. TotalLines includes lines that are not in the
// binary and the index 0 filler, so small files are never reported worse
// than they are. An empty report is fully clean.
func Summarize(r *FileReport) Summary {
	if r == nil || len(r.Lines) == 0 {
		return Summary{CleanPercent: 100}
	}
	s := Summary{TotalLines: len(r.Lines)}
	for _, st := range r.Lines {
		if st == Panic {
			s.PanicLines++
		}
	}
	s.CleanLines = s.TotalLines - s.PanicLines
	s.CleanPercent = float64(s.CleanLines) * 100 / float64(s.TotalLines)
	return s
}

// PercentString renders the percentage with two decimals.
func (s Summary) PercentString() string {
	return strconv.FormatFloat(s.CleanPercent, 'f', 2, 64) + "%"
}

// Band is the presentation class of a clean percentage.
type Band uint8

const (
	BandGood Band = iota
	BandWarning
	BandBad
)

func (b Band) String() string {
	switch b {
	case BandGood:
		return "good"
	case BandWarning:
		return "warning"
	case BandBad:
		return "bad"
	default:
		return "unknown"
	}
}

// BandFor classifies a percentage: >= 80 good, >= 50 warning, bad below.
func BandFor(percent float64) Band {
	switch {
	case percent >= 80:
		return BandGood
	case percent >= 50:
		return BandWarning
	default:
		return BandBad
	}
}

// Band is BandFor(s.CleanPercent).
func (s Summary) Band() Band { return BandFor(s.CleanPercent) }

// Total sums summaries of several files.
func Total(sums []Summary) Summary {
	var t Summary
	for _, s := range sums {
		t.TotalLines += s.TotalLines
		t.PanicLines += s.PanicLines
	}
	t.CleanLines = t.TotalLines - t.PanicLines
	if t.TotalLines == 0 {
		t.CleanPercent = 100
		return t
	}
	t.CleanPercent = float64(t.CleanLines) * 100 / float64(t.TotalLines)
	return t
}
