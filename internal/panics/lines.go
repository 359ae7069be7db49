package panics

import (
	"slices"

	"fortio.org/safecast"

	"panicmap/internal/llvmir"
)

// LineStatus is the outcome recorded for one source line.
type LineStatus uint8

const (
	// NotInBinary: no instruction of the module maps to the line.
	NotInBinary LineStatus = iota
	// NoPanic: every call mapped to the line is panic-free.
	NoPanic
	// Panic: at least one call mapped to the line can panic. Sticky.
	Panic
)

func (s LineStatus) String() string {
	switch s {
	case NotInBinary:
		return "not-in-binary"
	case NoPanic:
		return "no-panic"
	case Panic:
		return "panic"
	default:
		return "unknown"
	}
}

// FileReport holds per-line statuses of one source file. Lines is indexed
// by line number; index 0 is filler and is never written.
type FileReport struct {
	Filename  string
	Directory string
	Lines     []LineStatus
}

// Status returns the status of a line, NotInBinary past the end.
func (r *FileReport) Status(line int) LineStatus {
	if line <= 0 || line >= len(r.Lines) {
		return NotInBinary
	}
	return r.Lines[line]
}

// merge applies one observation to a line.
func (r *FileReport) merge(line int, panicky bool) {
	if line >= len(r.Lines) {
		r.Lines = slices.Grow(r.Lines, line+1-len(r.Lines))
		r.Lines = r.Lines[:line+1]
	}
	if r.Lines[line] == Panic {
		return
	}
	if panicky {
		r.Lines[line] = Panic
	} else {
		r.Lines[line] = NoPanic
	}
}

// LineTable maps filenames to their reports. Not safe for concurrent
// mutation; rendering after analysis only reads it.
type LineTable struct {
	files map[string]*FileReport
}

// NewLineTable returns an empty table.
func NewLineTable() *LineTable {
	return &LineTable{files: make(map[string]*FileReport)}
}

// Apply merges one source location into the table.
func (t *LineTable) Apply(loc llvmir.SourceLocation, panicky bool) {
	if loc.Filename == "" && loc.Line == 0 {
		return
	}
	r := t.file(loc)
	if loc.Line == 0 {
		return
	}
	line, err := safecast.Conv[int](loc.Line)
	if err != nil {
		return
	}
	r.merge(line, panicky)
}

func (t *LineTable) file(loc llvmir.SourceLocation) *FileReport {
	r, ok := t.files[loc.Filename]
	if !ok {
		// the slice starts with the index 0 filler
		r = &FileReport{Filename: loc.Filename, Directory: loc.Directory, Lines: make([]LineStatus, 1)}
		t.files[loc.Filename] = r
	}
	if r.Directory == "" {
		r.Directory = loc.Directory
	}
	return r
}

// File returns the report of one file.
func (t *LineTable) File(name string) (*FileReport, bool) {
	r, ok := t.files[name]
	return r, ok
}

// Files returns every report sorted by filename.
func (t *LineTable) Files() []*FileReport {
	out := make([]*FileReport, 0, len(t.files))
	for _, r := range t.files {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *FileReport) int {
		switch {
		case a.Filename < b.Filename:
			return -1
		case a.Filename > b.Filename:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of files.
func (t *LineTable) Len() int { return len(t.files) }

// Restore inserts a report as is; used when loading a snapshot.
func (t *LineTable) Restore(r *FileReport) {
	if len(r.Lines) == 0 {
		r.Lines = make([]LineStatus, 1)
	}
	t.files[r.Filename] = r
}
