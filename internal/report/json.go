package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type jsonFile struct {
	Filename   string  `json:"filename"`
	Page       string  `json:"page,omitempty"`
	Clean      float64 `json:"clean_percent"`
	CleanLines int     `json:"clean_lines"`
	TotalLines int     `json:"total_lines"`
	PanicLines int     `json:"panic_lines"`
	Band       string  `json:"band"`
}

type jsonSummary struct {
	Meta  Meta       `json:"meta"`
	Total jsonFile   `json:"total"`
	Files []jsonFile `json:"files"`
}

func writeJSON(dir string, meta Meta, entries []Entry) (string, error) {
	total := Total(entries)
	out := jsonSummary{
		Meta: meta,
		Total: jsonFile{
			Filename:   "total",
			Clean:      total.CleanPercent,
			CleanLines: total.CleanLines,
			TotalLines: total.TotalLines,
			PanicLines: total.PanicLines,
			Band:       total.Band().String(),
		},
		Files: make([]jsonFile, len(entries)),
	}
	for i, e := range entries {
		out.Files[i] = jsonFile{
			Filename:   e.Report.Filename,
			Page:       e.Page,
			Clean:      e.Summary.CleanPercent,
			CleanLines: e.Summary.CleanLines,
			TotalLines: e.Summary.TotalLines,
			PanicLines: e.Summary.PanicLines,
			Band:       e.Summary.Band().String(),
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "summary.json")
	if err := os.WriteFile(p, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}
