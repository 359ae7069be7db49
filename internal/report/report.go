// Package report renders line tables as HTML pages, a terminal table, a JSON
// summary and a msgpack snapshot.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"panicmap/internal/panics"
)

// Meta describes the run a report belongs to.
type Meta struct {
	Title     string        `msgpack:"title" json:"title"`
	Artifact  string        `msgpack:"artifact" json:"artifact,omitempty"`
	Target    string        `msgpack:"target" json:"target,omitempty"`
	Profile   string        `msgpack:"profile" json:"profile,omitempty"`
	LLVM      string        `msgpack:"llvm" json:"llvm,omitempty"`
	Stats     panics.Stats  `msgpack:"stats" json:"stats"`
	Panicky   []string      `msgpack:"panicky" json:"panicky,omitempty"`
	Generated time.Time     `msgpack:"generated" json:"generated"`
	Elapsed   time.Duration `msgpack:"elapsed" json:"-"`
}

// Entry is one file selected for output.
type Entry struct {
	Report  *panics.FileReport
	Summary panics.Summary
	// Page is the HTML file name, empty when HTML is not written.
	Page string
}

// Entries summarises the files of table that pass filter, in filename order.
func Entries(table *panics.LineTable, filter Filter) []Entry {
	files := table.Files()
	out := make([]Entry, 0, len(files))
	for _, r := range files {
		if !filter.Keep(r.Filename) {
			continue
		}
		out = append(out, Entry{Report: r, Summary: panics.Summarize(r)})
	}
	return out
}

// Total sums the summaries of entries.
func Total(entries []Entry) panics.Summary {
	sums := make([]panics.Summary, len(entries))
	for i, e := range entries {
		sums[i] = e.Summary
	}
	return panics.Total(sums)
}

// Options configure Write.
type Options struct {
	Output     string   // folder for html and json
	Formats    []string // html, text, json
	Filter     Filter
	Snapshot   string // msgpack path, empty to skip
	SourceRoot string // base for relative filenames without a directory
	Jobs       int    // parallel page renderers, 0 means GOMAXPROCS

	Text  io.Writer // destination of the text format
	Color bool
	Width int
}

func (o Options) has(format string) bool {
	for _, f := range o.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// Written lists what Write produced.
type Written struct {
	Files    int
	Pages    []string
	Index    string
	JSON     string
	Snapshot string
}

// Write renders every enabled format.
func Write(ctx context.Context, table *panics.LineTable, meta Meta, opts Options) (Written, error) {
	var out Written
	entries := Entries(table, opts.Filter)
	out.Files = len(entries)

	if opts.has("html") || opts.has("json") {
		if err := os.MkdirAll(opts.Output, 0o750); err != nil {
			return out, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	if opts.has("html") {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Report.Filename
		}
		pages := uniqueNames(names)
		for i := range entries {
			entries[i].Page = pages[entries[i].Report.Filename]
		}
		written, err := writePages(ctx, opts, entries)
		if err != nil {
			return out, err
		}
		out.Pages = written
		idx, err := writeIndex(opts.Output, meta, entries)
		if err != nil {
			return out, err
		}
		out.Index = idx
	}

	if opts.has("json") {
		p, err := writeJSON(opts.Output, meta, entries)
		if err != nil {
			return out, err
		}
		out.JSON = p
	}

	if opts.has("text") {
		w := opts.Text
		if w == nil {
			w = os.Stdout
		}
		if err := RenderText(w, meta, entries, TextOptions{Color: opts.Color, Width: opts.Width}); err != nil {
			return out, err
		}
	}

	if opts.Snapshot != "" {
		if err := WriteSnapshot(opts.Snapshot, NewSnapshot(meta, table)); err != nil {
			return out, err
		}
		out.Snapshot = opts.Snapshot
	}
	return out, nil
}

func writePages(ctx context.Context, opts Options, entries []Entry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	written := make([]string, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(entries)))
	for i := range entries {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			p, err := writePage(opts.Output, opts.SourceRoot, entries[i])
			if err != nil {
				return err
			}
			written[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return written, nil
}
