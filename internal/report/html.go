package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"panicmap/internal/panics"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	fileTemplate  = template.Must(template.ParseFS(templateFS, "templates/file.html.tmpl"))
	indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))
)

// Bulma classes per status and band.
func lineClass(s panics.LineStatus) string {
	switch s {
	case panics.Panic:
		return "has-background-danger-light"
	case panics.NoPanic:
		return "has-background-success-light"
	case panics.NotInBinary:
		return "has-background-light"
	default:
		return "has-background-light"
	}
}

func textClass(b panics.Band) string {
	switch b {
	case panics.BandGood:
		return "has-text-success"
	case panics.BandWarning:
		return "has-text-warning"
	default:
		return "has-text-danger"
	}
}

type lineView struct {
	N     int
	Text  string
	Class string
}

type pageView struct {
	Filename   string
	SourcePath string
	Missing    bool
	Summary    panics.Summary
	TextClass  string
	Lines      []lineView
}

// buildPage lays out one file. Without source text the page still shows
// every observed line number.
func buildPage(e Entry, src []string, srcPath string) pageView {
	v := pageView{
		Filename:   e.Report.Filename,
		SourcePath: srcPath,
		Missing:    src == nil,
		Summary:    e.Summary,
		TextClass:  textClass(e.Summary.Band()),
	}
	n := len(src)
	if src == nil {
		n = len(e.Report.Lines) - 1
	}
	v.Lines = make([]lineView, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		lv := lineView{N: i, Class: lineClass(e.Report.Status(i))}
		if src != nil {
			lv.Text = src[i-1]
		}
		v.Lines = append(v.Lines, lv)
	}
	return v
}

// RenderPage writes the HTML of one file.
func RenderPage(buf *bytes.Buffer, e Entry, sourceRoot string) error {
	srcPath := SourcePath(e.Report, sourceRoot)
	src, err := readSource(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", srcPath, err)
	}
	return fileTemplate.Execute(buf, buildPage(e, src, srcPath))
}

func writePage(dir, sourceRoot string, e Entry) (string, error) {
	var buf bytes.Buffer
	if err := RenderPage(&buf, e, sourceRoot); err != nil {
		return "", err
	}
	p := filepath.Join(dir, e.Page)
	if err := os.WriteFile(p, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}

type indexRow struct {
	Filename  string
	Page      string
	Summary   panics.Summary
	TextClass string
}

type indexView struct {
	Title     string
	Meta      Meta
	Total     panics.Summary
	TextClass string
	Files     []indexRow
}

func writeIndex(dir string, meta Meta, entries []Entry) (string, error) {
	total := Total(entries)
	v := indexView{
		Title:     meta.Title,
		Meta:      meta,
		Total:     total,
		TextClass: textClass(total.Band()),
		Files:     make([]indexRow, len(entries)),
	}
	if v.Title == "" {
		v.Title = "report"
	}
	for i, e := range entries {
		v.Files[i] = indexRow{
			Filename:  e.Report.Filename,
			Page:      e.Page,
			Summary:   e.Summary,
			TextClass: textClass(e.Summary.Band()),
		}
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, v); err != nil {
		return "", err
	}
	p := filepath.Join(dir, "index.html")
	if err := os.WriteFile(p, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}
