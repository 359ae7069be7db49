package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"panicmap/internal/panics"
)

// TextOptions configure RenderText.
type TextOptions struct {
	Color bool
	Width int // terminal width, 0 for 100
}

var (
	styleGood    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleBad     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleHeader  = lipgloss.NewStyle().Bold(true)
)

func bandStyle(b panics.Band) lipgloss.Style {
	switch b {
	case panics.BandGood:
		return styleGood
	case panics.BandWarning:
		return styleWarning
	default:
		return styleBad
	}
}

// RenderText prints a per-file table with a total row.
func RenderText(w io.Writer, meta Meta, entries []Entry, opts TextOptions) error {
	width := opts.Width
	if width <= 0 {
		width = 100
	}
	p := message.NewPrinter(language.English)

	const (
		pctWidth   = 8
		linesWidth = 21
		panicWidth = 9
	)
	nameWidth := width - pctWidth - linesWidth - panicWidth - 6
	if nameWidth < 20 {
		nameWidth = 20
	}

	render := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	header := pad("file", nameWidth) + "  " + leftPad("clean", pctWidth) + "  " +
		leftPad("lines", linesWidth) + "  " + leftPad("panics", panicWidth)
	b.WriteString(render(styleHeader, header))
	b.WriteString("\n")

	row := func(name string, s panics.Summary) {
		b.WriteString(pad(fit(name, nameWidth), nameWidth))
		b.WriteString("  ")
		b.WriteString(render(bandStyle(s.Band()), leftPad(s.PercentString(), pctWidth)))
		b.WriteString("  ")
		b.WriteString(leftPad(p.Sprintf("%d / %d", s.CleanLines, s.TotalLines), linesWidth))
		b.WriteString("  ")
		b.WriteString(leftPad(p.Sprintf("%d", s.PanicLines), panicWidth))
		b.WriteString("\n")
	}
	for _, e := range entries {
		row(e.Report.Filename, e.Summary)
	}
	b.WriteString(strings.Repeat("-", min(width, nameWidth+pctWidth+linesWidth+panicWidth+6)))
	b.WriteString("\n")
	row(fmt.Sprintf("total (%d files)", len(entries)), Total(entries))
	if meta.Stats.Functions > 0 {
		b.WriteString(p.Sprintf("%d of %d functions can panic\n", meta.Stats.Panicky, meta.Stats.Functions))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// fit shortens from the left so the file name stays visible.
func fit(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	r := []rune(s)
	for len(r) > 0 && runewidth.StringWidth(string(r))+3 > width {
		r = r[1:]
	}
	return "..." + string(r)
}

func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func leftPad(s string, width int) string {
	return runewidth.FillLeft(s, width)
}
