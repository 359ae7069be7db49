package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"panicmap/internal/llvmir"
	"panicmap/internal/panics"
)

func table(t *testing.T, dir string) *panics.LineTable {
	t.Helper()
	tab := panics.NewLineTable()
	src := filepath.Join(dir, "src", "main.rs")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("fn main() {\n    helper();\n    let x = 1 < 2;\n}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tab.Apply(llvmir.SourceLocation{Filename: "src/main.rs", Directory: dir, Line: 2}, true)
	tab.Apply(llvmir.SourceLocation{Filename: "src/main.rs", Directory: dir, Line: 3}, false)
	tab.Apply(llvmir.SourceLocation{Filename: "/rustc/abc/library/core/src/num.rs", Line: 40}, false)
	return tab
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		`src\main.rs`:        "src_main_rs.html",
		"/home/u/src/lib.rs": "_home_u_src_lib_rs.html",
		`C:\work\a.rs`:       "C__work_a_rs.html",
		"plain":              "plain.html",
	}
	for in, want := range tests {
		if got := OutputName(in); got != want {
			t.Fatalf("OutputName(%q) = %q, want %q", in, got, want)
		}
	}
	names := uniqueNames([]string{"a.rs", "a_rs"})
	if names["a.rs"] == names["a_rs"] {
		t.Fatalf("colliding names not disambiguated: %v", names)
	}
}

func TestFilter(t *testing.T) {
	f := Filter{Include: []string{"src/*.rs"}, Exclude: []string{"src/gen_*.rs"}}
	tests := []struct {
		name string
		want bool
	}{
		{"/home/u/app/src/main.rs", true},
		{`src\lib.rs`, true},
		{"src/gen_tables.rs", false},
		{"/rustc/abc/library/core/src/num/mod.rs", false},
	}
	for _, tt := range tests {
		if got := f.Keep(tt.name); got != tt.want {
			t.Fatalf("Keep(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if !(Filter{}).Keep("anything") {
		t.Fatalf("empty filter must keep everything")
	}
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "target", "panicatorul")
	tab := table(t, dir)

	w, err := Write(context.Background(), tab, Meta{Title: "app"}, Options{
		Output:  out,
		Formats: []string{"html", "json"},
		Jobs:    2,
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.Files != 2 || len(w.Pages) != 2 {
		t.Fatalf("written = %+v", w)
	}

	page, err := os.ReadFile(filepath.Join(out, "src_main_rs.html"))
	if err != nil {
		t.Fatal(err)
	}
	html := string(page)
	if !strings.Contains(html, `<pre class="has-background-danger-light py-0 px-2">    helper();</pre>`) {
		t.Fatalf("panic line not rendered:\n%s", html)
	}
	if !strings.Contains(html, "let x = 1 &lt; 2;") {
		t.Fatalf("source text must be escaped")
	}
	if !strings.Contains(html, "75.00% (3 / 4)") {
		t.Fatalf("summary missing")
	}

	core, err := os.ReadFile(filepath.Join(out, "_rustc_abc_library_core_src_num_rs.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(core), "source not found") || strings.Count(string(core), `role="row"`) != 40 {
		t.Fatalf("missing source must still list observed lines")
	}

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(index), `<a href="src_main_rs.html">src/main.rs</a>`) {
		t.Fatalf("index does not link the page:\n%s", index)
	}

	data, err := os.ReadFile(filepath.Join(out, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	var sum jsonSummary
	if err := json.Unmarshal(data, &sum); err != nil {
		t.Fatal(err)
	}
	if len(sum.Files) != 2 || sum.Total.PanicLines != 1 {
		t.Fatalf("json summary = %+v", sum)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tab := table(t, dir)
	p := filepath.Join(dir, "report.msgpack")
	meta := Meta{Title: "app", Stats: panics.Stats{Functions: 10, Panicky: 4}}

	if err := WriteSnapshot(p, NewSnapshot(meta, tab)); err != nil {
		t.Fatal(err)
	}
	snap, err := ReadSnapshot(p)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Meta.Title != "app" || snap.Meta.Stats.Panicky != 4 {
		t.Fatalf("meta = %+v", snap.Meta)
	}
	back, err := snap.Table()
	if err != nil {
		t.Fatal(err)
	}
	rep, ok := back.File("src/main.rs")
	if !ok || rep.Status(2) != panics.Panic || rep.Status(3) != panics.NoPanic || rep.Directory != dir {
		t.Fatalf("restored report = %+v", rep)
	}
}

func TestSnapshotRejectsOtherSchema(t *testing.T) {
	p := filepath.Join(t.TempDir(), "s.msgpack")
	if err := WriteSnapshot(p, &Snapshot{Schema: 99}); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(p); !errors.Is(err, ErrSnapshotVersion) {
		t.Fatalf("expected ErrSnapshotVersion, got %v", err)
	}
}

func TestSnapshotRejectsBadStatus(t *testing.T) {
	s := &Snapshot{Schema: snapshotSchemaVersion, Files: []SnapshotFile{{Filename: "a.rs", Lines: []byte{0, 7}}}}
	if _, err := s.Table(); err == nil {
		t.Fatalf("expected invalid status error")
	}
}

func TestRenderText(t *testing.T) {
	tab := panics.NewLineTable()
	for i := uint32(1); i <= 1200; i++ {
		tab.Apply(llvmir.SourceLocation{Filename: "src/big.rs", Line: i}, i%3 == 0)
	}
	var buf bytes.Buffer
	entries := Entries(tab, Filter{})
	meta := Meta{Stats: panics.Stats{Functions: 2500, Panicky: 1000}}
	if err := RenderText(&buf, meta, entries, TextOptions{Width: 80}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"src/big.rs", "66.69%", "801 / 1,201", "total (1 files)", "1,000 of 2,500 functions can panic"} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color disabled but escape codes found")
	}
}

func TestFit(t *testing.T) {
	if got := fit("/very/long/path/to/src/main.rs", 14); got != "...src/main.rs" {
		t.Fatalf("fit = %q", got)
	}
}
